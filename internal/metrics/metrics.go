// Package metrics implements the Metrics Collector (C7): a snapshot/delta
// of child-process resource usage plus a recursive working-directory byte
// total, rendered as the per-execution record of spec.md §3.
//
// Grounded on original_source/src/docker/job_control.py's recursive
// directory byte accounting (there is no rusage collection in the
// original; job_control.py never reports resource usage, only exit
// status) — the rusage snapshot/delta itself is a platform API with no
// corpus Python analogue, built the way the teacher splits a
// platform-specific resource query across build-tagged files (see
// internal/resources/memory_unix.go, internal/diskspace/diskspace_unix.go).
package metrics

import (
	"encoding/json"
	"io/fs"
	"path/filepath"
)

// Snapshot is the 16 rusage counters for a process and its terminated
// children, combined, at one point in time.
type Snapshot struct {
	UserTime   float64 `json:"user_time"`
	SystemTime float64 `json:"system_time"`

	MaxRSS       int64 `json:"max_rss"`
	IxRSS        int64 `json:"ix_rss"`
	IdRSS        int64 `json:"id_rss"`
	IsRSS        int64 `json:"is_rss"`
	MinFlt       int64 `json:"min_flt"`
	MajFlt       int64 `json:"maj_flt"`
	NSwap        int64 `json:"n_swap"`
	InBlock      int64 `json:"in_block"`
	OutBlock     int64 `json:"out_block"`
	MsgSnd       int64 `json:"msg_snd"`
	MsgRcv       int64 `json:"msg_rcv"`
	NSignals     int64 `json:"n_signals"`
	NVCSw        int64 `json:"nvcsw"`
	NIvCSw       int64 `json:"nivcsw"`
}

// Delta is the componentwise difference between two Snapshots, with the
// two time fields rounded to 2 decimals, per spec.md §4.4.
type Delta struct {
	UserTime   float64 `json:"user_time"`
	SystemTime float64 `json:"system_time"`

	MaxRSS   int64 `json:"max_rss"`
	IxRSS    int64 `json:"ix_rss"`
	IdRSS    int64 `json:"id_rss"`
	IsRSS    int64 `json:"is_rss"`
	MinFlt   int64 `json:"min_flt"`
	MajFlt   int64 `json:"maj_flt"`
	NSwap    int64 `json:"n_swap"`
	InBlock  int64 `json:"in_block"`
	OutBlock int64 `json:"out_block"`
	MsgSnd   int64 `json:"msg_snd"`
	MsgRcv   int64 `json:"msg_rcv"`
	NSignals int64 `json:"n_signals"`
	NVCSw    int64 `json:"nvcsw"`
	NIvCSw   int64 `json:"nivcsw"`
}

// Record is the JSON document written to <JobTag>/<kind>-metrics.json.
type Record struct {
	Metrics RecordBody `json:"metrics"`
}

// RecordBody is Record's nested payload.
type RecordBody struct {
	Rusage            Delta   `json:"rusage"`
	RuntimeInSeconds   float64 `json:"runtime_in_seconds"`
	DiskStorageInBytes int64   `json:"disk_storage_in_bytes"`
	ExitCode           int     `json:"exit_code"`
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// ComputeDelta subtracts prev from next componentwise, per spec.md §4.4.
func ComputeDelta(prev, next Snapshot) Delta {
	return Delta{
		UserTime:   round2(next.UserTime - prev.UserTime),
		SystemTime: round2(next.SystemTime - prev.SystemTime),
		MaxRSS:     next.MaxRSS - prev.MaxRSS,
		IxRSS:      next.IxRSS - prev.IxRSS,
		IdRSS:      next.IdRSS - prev.IdRSS,
		IsRSS:      next.IsRSS - prev.IsRSS,
		MinFlt:     next.MinFlt - prev.MinFlt,
		MajFlt:     next.MajFlt - prev.MajFlt,
		NSwap:      next.NSwap - prev.NSwap,
		InBlock:    next.InBlock - prev.InBlock,
		OutBlock:   next.OutBlock - prev.OutBlock,
		MsgSnd:     next.MsgSnd - prev.MsgSnd,
		MsgRcv:     next.MsgRcv - prev.MsgRcv,
		NSignals:   next.NSignals - prev.NSignals,
		NVCSw:      next.NVCSw - prev.NVCSw,
		NIvCSw:     next.NIvCSw - prev.NIvCSw,
	}
}

// StorageBytes returns the recursive sum of regular-file sizes under dir,
// skipping directories and symlinks, per job_control.py's byte accounting
// (SPEC_FULL.md supplemented feature #1).
func StorageBytes(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 || !info.Mode().IsRegular() {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Render builds the JSON bytes for a Record, per spec.md §3.
func Render(delta Delta, runtimeSeconds float64, diskStorageBytes int64, exitCode int) ([]byte, error) {
	rec := Record{Metrics: RecordBody{
		Rusage:             delta,
		RuntimeInSeconds:   round2(runtimeSeconds),
		DiskStorageInBytes: diskStorageBytes,
		ExitCode:           exitCode,
	}}
	return json.Marshal(rec)
}
