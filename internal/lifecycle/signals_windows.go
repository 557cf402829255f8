//go:build windows

package lifecycle

import "os"

// signalMap on Windows only has a portable stop signal available; the
// worker only deploys to Linux containers (see internal/metrics's same
// platform split), so toggle/reload/help are reached through the same
// control action values via whatever out-of-band channel a Windows host
// process wires up, not through os/signal.
func signalMap() map[os.Signal]Action {
	return map[os.Signal]Action{
		os.Interrupt: ActionStop,
	}
}
