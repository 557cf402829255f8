//go:build darwin || linux

package metrics

import "golang.org/x/sys/unix"

// TakeSnapshot returns the combined rusage of this process and all its
// terminated children at the moment of the call, per spec.md §4.4.
func TakeSnapshot() (Snapshot, error) {
	self, err := getrusage(unix.RUSAGE_SELF)
	if err != nil {
		return Snapshot{}, err
	}
	children, err := getrusage(unix.RUSAGE_CHILDREN)
	if err != nil {
		return Snapshot{}, err
	}
	return combine(self, children), nil
}

func getrusage(who int) (unix.Rusage, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(who, &ru); err != nil {
		return unix.Rusage{}, err
	}
	return ru, nil
}

func timevalSeconds(tv unix.Timeval) float64 {
	return float64(tv.Sec) + float64(tv.Usec)/1e6
}

func combine(self, children unix.Rusage) Snapshot {
	return Snapshot{
		UserTime:   timevalSeconds(self.Utime) + timevalSeconds(children.Utime),
		SystemTime: timevalSeconds(self.Stime) + timevalSeconds(children.Stime),
		MaxRSS:     self.Maxrss + children.Maxrss,
		IxRSS:      self.Ixrss + children.Ixrss,
		IdRSS:      self.Idrss + children.Idrss,
		IsRSS:      self.Isrss + children.Isrss,
		MinFlt:     self.Minflt + children.Minflt,
		MajFlt:     self.Majflt + children.Majflt,
		NSwap:      self.Nswap + children.Nswap,
		InBlock:    self.Inblock + children.Inblock,
		OutBlock:   self.Oublock + children.Oublock,
		MsgSnd:     self.Msgsnd + children.Msgsnd,
		MsgRcv:     self.Msgrcv + children.Msgrcv,
		NSignals:   self.Nsignals + children.Nsignals,
		NVCSw:      self.Nvcsw + children.Nvcsw,
		NIvCSw:     self.Nivcsw + children.Nivcsw,
	}
}
