package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestComputeDelta(t *testing.T) {
	prev := Snapshot{UserTime: 1.001, SystemTime: 0.5, MaxRSS: 1000, MinFlt: 5}
	next := Snapshot{UserTime: 2.505, SystemTime: 0.75, MaxRSS: 1500, MinFlt: 12}

	d := ComputeDelta(prev, next)
	if d.UserTime != 1.5 {
		t.Errorf("UserTime = %v, want 1.5 (rounded)", d.UserTime)
	}
	if d.SystemTime != 0.25 {
		t.Errorf("SystemTime = %v, want 0.25", d.SystemTime)
	}
	if d.MaxRSS != 500 {
		t.Errorf("MaxRSS = %v, want 500", d.MaxRSS)
	}
	if d.MinFlt != 7 {
		t.Errorf("MinFlt = %v, want 7", d.MinFlt)
	}
}

func TestStorageBytes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("12345"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.txt"), []byte("1234567890"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := StorageBytes(dir)
	if err != nil {
		t.Fatalf("StorageBytes: %v", err)
	}
	if got != 15 {
		t.Errorf("StorageBytes() = %d, want 15", got)
	}
}

func TestRender(t *testing.T) {
	delta := Delta{UserTime: 1.23, MaxRSS: 100}
	data, err := Render(delta, 12.345, 4096, 0)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec.Metrics.RuntimeInSeconds != 12.35 {
		t.Errorf("RuntimeInSeconds = %v, want 12.35 (rounded)", rec.Metrics.RuntimeInSeconds)
	}
	if rec.Metrics.DiskStorageInBytes != 4096 {
		t.Errorf("DiskStorageInBytes = %v", rec.Metrics.DiskStorageInBytes)
	}
	if rec.Metrics.Rusage.UserTime != 1.23 {
		t.Errorf("Rusage.UserTime = %v", rec.Metrics.Rusage.UserTime)
	}
}
