//go:build windows

package metrics

import "fmt"

// TakeSnapshot has no Windows implementation: spec.md's rusage fields
// (maxrss, ixrss, block counts, signal counts) have no Win32 equivalent
// worth faking. The worker (internal/worker) is deployed to Linux
// containers only; this stub exists so the package still builds on a
// developer's Windows machine, mirroring
// internal/resources/memory_windows.go's per-OS split in the teacher.
func TakeSnapshot() (Snapshot, error) {
	return Snapshot{}, fmt.Errorf("metrics: rusage snapshot is not supported on windows")
}
