package intake

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Electrostatics/apbs-aws/internal/logging"
	"github.com/Electrostatics/apbs-aws/internal/models"
	"github.com/Electrostatics/apbs-aws/internal/objectstore/objectstoretest"
	"github.com/Electrostatics/apbs-aws/internal/queue/queuetest"
	"github.com/Electrostatics/apbs-aws/internal/statusdoc"
)

func newHandler(gw *objectstoretest.Fake, q *queuetest.Fake) *Handler {
	return &Handler{
		ObjectStore:  gw,
		Queue:        q,
		Status:       statusdoc.NewStore(gw, "output-bucket"),
		InputBucket:  "input-bucket",
		OutputBucket: "output-bucket",
		DefaultMaxRT: 2000,
		Log:          logging.New("intake-test"),
	}
}

func TestHandleDirectASuccess(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	jobTag := "2026-07-30/abc1234567"
	key := jobTag + "/A-job.json"

	gw.Seed("input-bucket", key, []byte(`{"form": {"filename": "A-job.in", "support_files": []}}`))
	gw.Seed("input-bucket", jobTag+"/A-job.in", []byte("contents"))

	h := newHandler(gw, q)
	if err := h.Handle(context.Background(), "input-bucket", key); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	doc, err := h.Status.Read(context.Background(), jobTag, statusdoc.KindAPBS)
	if err != nil {
		t.Fatalf("Status.Read: %v", err)
	}
	if doc.Body.Status != statusdoc.StatusPending {
		t.Errorf("Status = %q, want pending", doc.Body.Status)
	}
	if doc.Body.StartTime == nil {
		t.Error("StartTime should be set")
	}
	if doc.Body.EndTime != nil {
		t.Error("EndTime should be nil for pending")
	}

	if q.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1 enqueued message", q.Pending())
	}
	msg, _ := q.Receive(context.Background(), 0)
	var wm models.WorkMessage
	if err := json.Unmarshal([]byte(msg.Body), &wm); err != nil {
		t.Fatalf("unmarshal WorkMessage: %v", err)
	}
	if wm.JobType != "A" || wm.JobTag != jobTag || wm.CommandLineArgs != "A-job.in" {
		t.Errorf("WorkMessage = %+v", wm)
	}
	if wm.MaxRunTime != 2000 {
		t.Errorf("MaxRunTime = %d, want default 2000", wm.MaxRunTime)
	}
}

func TestHandleMissingFilesWritesFailed(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	jobTag := "2026-07-30/abc1234567"
	key := jobTag + "/A-job.json"

	gw.Seed("input-bucket", key, []byte(`{"form": {"filename": "A-job.in", "support_files": ["missing.dat"]}}`))

	h := newHandler(gw, q)
	if err := h.Handle(context.Background(), "input-bucket", key); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	doc, err := h.Status.Read(context.Background(), jobTag, statusdoc.KindAPBS)
	if err != nil {
		t.Fatalf("Status.Read: %v", err)
	}
	if doc.Body.Status != statusdoc.StatusFailed {
		t.Errorf("Status = %q, want failed", doc.Body.Status)
	}
	if doc.Body.Message == "" {
		t.Error("Message should be set")
	}
	if doc.Body.EndTime == nil {
		t.Error("EndTime should be set for failed")
	}
	if q.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 (no enqueue on failure)", q.Pending())
	}
}

func TestHandleUnknownJobTypeWritesInvalid(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	jobTag := "2026-07-30/abc1234567"
	key := jobTag + "/weird-job.json"

	gw.Seed("input-bucket", key, []byte(`{}`))

	h := newHandler(gw, q)
	if err := h.Handle(context.Background(), "input-bucket", key); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	doc, err := h.Status.Read(context.Background(), jobTag, "weird")
	if err != nil {
		t.Fatalf("Status.Read: %v", err)
	}
	if doc.Body.Status != statusdoc.StatusInvalid {
		t.Errorf("Status = %q, want invalid", doc.Body.Status)
	}
	if doc.Body.StartTime != nil || doc.Body.InputFiles != nil || doc.Body.OutputFiles != nil {
		t.Errorf("invalid doc should have null startTime/inputFiles/outputFiles: %+v", doc.Body)
	}
	if q.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0 (no enqueue for invalid)", q.Pending())
	}
}

func TestHandleMalformedKey(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	h := newHandler(gw, q)
	if err := h.Handle(context.Background(), "input-bucket", "toolongno"); err == nil {
		t.Fatal("expected error for key with fewer than 3 segments")
	}
}

func TestHandleIdempotentRedelivery(t *testing.T) {
	gw := objectstoretest.New()
	q := queuetest.New()
	jobTag := "2026-07-30/abc1234567"
	key := jobTag + "/P-job.json"
	gw.Seed("input-bucket", key, []byte(`{"form": {"invoke_method": "cli", "pdb_name": "1abc.pdb", "pqr_name": "1abc.pqr", "flags": {}}}`))

	h := newHandler(gw, q)
	if err := h.Handle(context.Background(), "input-bucket", key); err != nil {
		t.Fatalf("Handle (first): %v", err)
	}
	first, err := h.Status.Read(context.Background(), jobTag, statusdoc.KindPDB2PQR)
	if err != nil {
		t.Fatalf("Status.Read: %v", err)
	}

	if err := h.Handle(context.Background(), "input-bucket", key); err != nil {
		t.Fatalf("Handle (second): %v", err)
	}
	second, err := h.Status.Read(context.Background(), jobTag, statusdoc.KindPDB2PQR)
	if err != nil {
		t.Fatalf("Status.Read: %v", err)
	}

	if first.Body.Status != second.Body.Status || first.JobID != second.JobID {
		t.Errorf("redelivery should reproduce the same fields modulo startTime: %+v vs %+v", first, second)
	}
	if q.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2 (intake does not dedupe sends)", q.Pending())
	}
}
