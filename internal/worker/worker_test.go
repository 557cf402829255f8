package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Electrostatics/apbs-aws/internal/config"
	"github.com/Electrostatics/apbs-aws/internal/lifecycle"
	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/objectstore/objectstoretest"
	"github.com/Electrostatics/apbs-aws/internal/queue/queuetest"
	"github.com/Electrostatics/apbs-aws/internal/statusdoc"
)

func newTestWorker(t *testing.T, gw *objectstoretest.Fake, q *queuetest.Fake) (*Worker, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		InputBucket:     "input-bucket",
		OutputBucket:    "output-bucket",
		JobQueueName:    "jobs",
		JobMaxRuntime:   2000,
		SQSQueueTimeout: 1,
		SQSMaxTries:     2,
		SQSRetryTime:    time.Millisecond,
		JobPath:         t.TempDir(),
	}
	store := statusdoc.NewStore(gw, "output-bucket")
	ctrl := lifecycle.New(logging.New("worker-test"), nil, nil)
	w := New(cfg, gw, q, store, ctrl, logging.New("worker-test"))
	return w, cfg
}

func writeFakeBinary(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-tool.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandleMessageSuccessPath(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	w, cfg := newTestWorker(t, gw, q)

	gw.Seed("input-bucket", "2026-07-30/job0000001/input.dat", []byte("data"))

	bin := writeFakeBinary(t, "#!/bin/sh\necho out > extra.txt\nexit 0\n")
	t.Setenv("APBS_BIN_PATH", bin)

	store := statusdoc.NewStore(gw, "output-bucket")
	pending := statusdoc.NewPending("job0000001", statusdoc.KindAPBS, 1000, []string{"input.dat"}, nil)
	if err := store.Write(context.Background(), "2026-07-30/job0000001", statusdoc.KindAPBS, pending); err != nil {
		t.Fatal(err)
	}

	body := `{"job_date":"2026-07-30","job_id":"job0000001","job_tag":"2026-07-30/job0000001","job_type":"A","bucket_name":"input-bucket","input_files":["input.dat"],"command_line_args":""}`
	if err := q.Send(context.Background(), body); err != nil {
		t.Fatal(err)
	}
	msg, err := q.Receive(context.Background(), time.Second)
	if err != nil || msg == nil {
		t.Fatalf("Receive: %v, %v", msg, err)
	}

	w.handleMessage(context.Background(), cfg, msg)

	doc, err := store.Read(context.Background(), "2026-07-30/job0000001", statusdoc.KindAPBS)
	if err != nil {
		t.Fatalf("Read status: %v", err)
	}
	if doc.Body.Status != statusdoc.StatusComplete {
		t.Errorf("Status = %q, want complete", doc.Body.Status)
	}
	if doc.Body.EndTime == nil {
		t.Error("EndTime not set")
	}

	found := false
	for _, f := range doc.Body.OutputFiles {
		if f == "extra.txt" {
			found = true
		}
	}
	if !found {
		t.Errorf("OutputFiles = %v, want extra.txt present", doc.Body.OutputFiles)
	}

	objs := gw.Objects()
	if _, ok := objs["output-bucket/2026-07-30/job0000001/apbs-metrics.json"]; !ok {
		t.Error("metrics document not written")
	}
	if _, ok := objs["output-bucket/2026-07-30/job0000001/extra.txt"]; !ok {
		t.Error("extra.txt not uploaded")
	}

	if q.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 (message deleted)", q.Pending())
	}
}

func TestHandleMessageMalformedBodyDeletesAndReturns(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	w, cfg := newTestWorker(t, gw, q)

	if err := q.Send(context.Background(), "not json"); err != nil {
		t.Fatal(err)
	}
	msg, _ := q.Receive(context.Background(), time.Second)

	w.handleMessage(context.Background(), cfg, msg)

	if q.Pending() != 0 {
		t.Errorf("expected malformed message to be deleted")
	}
}

func TestHandleMessageMaterializeFailureWritesFailed(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	w, cfg := newTestWorker(t, gw, q)

	// input.dat is never seeded, so Materialize's object-store GET fails
	// naturally (objectstoretest.Fake returns a not-found error), without
	// an injected GetErr that would also break the failed-status Merge's
	// own read-modify-write.
	store := statusdoc.NewStore(gw, "output-bucket")
	pending := statusdoc.NewPending("job0000002", statusdoc.KindPDB2PQR, 1000, []string{"missing.dat"}, nil)
	if err := store.Write(context.Background(), "2026-07-30/job0000002", statusdoc.KindPDB2PQR, pending); err != nil {
		t.Fatal(err)
	}

	body := `{"job_date":"2026-07-30","job_id":"job0000002","job_tag":"2026-07-30/job0000002","job_type":"P","bucket_name":"input-bucket","input_files":["missing.dat"],"command_line_args":""}`
	if err := q.Send(context.Background(), body); err != nil {
		t.Fatal(err)
	}
	msg, _ := q.Receive(context.Background(), time.Second)

	w.handleMessage(context.Background(), cfg, msg)

	doc, err := store.Read(context.Background(), "2026-07-30/job0000002", statusdoc.KindPDB2PQR)
	if err != nil {
		t.Fatalf("Read status: %v", err)
	}
	if doc.Body.Status != statusdoc.StatusFailed {
		t.Errorf("Status = %q, want failed", doc.Body.Status)
	}
	if q.Pending() != 0 {
		t.Error("expected message to be deleted after materialize failure")
	}
}

func TestRunExitsAfterMaxEmptyPolls(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	w, _ := newTestWorker(t, gw, q)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil after exhausting empty polls", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after MAX_TRIES empty polls")
	}
}
