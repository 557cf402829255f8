// Package statusdoc implements the per-job status document (C3): its type,
// the invariants spec.md §3 requires of it, and a Store that reads and
// writes it as JSON in the output bucket.
package statusdoc

import (
	"encoding/json"
	"fmt"
)

// Status is one of the closed set of values a StatusDoc's Status field may
// hold.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusInvalid   Status = "invalid"
)

// Kind is the per-kind sub-document key name ("apbs" or "pdb2pqr"), not to
// be confused with jobtag.Kind's single-letter A/P; the status document's
// on-disk shape nests under the tool's full name (see
// original_source/.../job_service.py's build_status_dict, which keys the
// sub-document by job_type = "apbs"|"pdb2pqr").
type Kind string

const (
	KindAPBS    Kind = "apbs"
	KindPDB2PQR Kind = "pdb2pqr"
)

// Body is the per-kind sub-document nested under StatusDoc's kind key.
type Body struct {
	Status      Status          `json:"status"`
	StartTime   *float64        `json:"startTime"`
	EndTime     *float64        `json:"endTime"`
	Subtasks    json.RawMessage `json:"subtasks"`
	InputFiles  []string        `json:"inputFiles"`
	OutputFiles []string        `json:"outputFiles"`
	Message     string          `json:"message,omitempty"`
}

// Doc is the StatusDoc described in spec.md §3: a top-level jobid/jobtype
// pair plus one Body nested under the kind's name.
type Doc struct {
	JobID   string
	JobType Kind
	Body    Body
}

var subtasksEmpty = json.RawMessage("[]")
var subtasksNull = json.RawMessage("null")

// MarshalJSON renders {jobid, jobtype, <kind>: {...}}, matching the shape
// the worker and intake both read/write.
func (d Doc) MarshalJSON() ([]byte, error) {
	jobid, err := json.Marshal(d.JobID)
	if err != nil {
		return nil, err
	}
	jobtype, err := json.Marshal(string(d.JobType))
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(d.Body)
	if err != nil {
		return nil, err
	}

	return orderedDoc{JobID: jobid, JobType: jobtype, Kind: string(d.JobType), Body: body}.MarshalJSON()
}

// orderedDoc exists only so MarshalJSON can emit "jobid", "jobtype", then
// the kind-named field in a stable, human-familiar order; Go's map-based
// json.Marshal would otherwise sort keys alphabetically, which still
// parses correctly but reads oddly next to the original Python's
// insertion-ordered dict.
type orderedDoc struct {
	JobID   json.RawMessage
	JobType json.RawMessage
	Kind    string
	Body    json.RawMessage
}

func (o orderedDoc) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"jobid":%s,"jobtype":%s,%q:%s}`, o.JobID, o.JobType, o.Kind, o.Body)), nil
}

// UnmarshalJSON parses {jobid, jobtype, <kind>: {...}} back into a Doc.
func (d *Doc) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["jobid"]; ok {
		if err := json.Unmarshal(v, &d.JobID); err != nil {
			return err
		}
	}
	var jobtype string
	if v, ok := raw["jobtype"]; ok {
		if err := json.Unmarshal(v, &jobtype); err != nil {
			return err
		}
	}
	d.JobType = Kind(jobtype)

	if v, ok := raw[jobtype]; ok {
		if err := json.Unmarshal(v, &d.Body); err != nil {
			return err
		}
	}
	return nil
}

// NewPending builds a Doc for the "pending" state intake writes on a
// successful translation, per spec.md §4.2.
func NewPending(jobID string, kind Kind, startTime float64, inputFiles, outputFiles []string) Doc {
	st := startTime
	return Doc{
		JobID:   jobID,
		JobType: kind,
		Body: Body{
			Status:      StatusPending,
			StartTime:   &st,
			EndTime:     nil,
			Subtasks:    subtasksEmpty,
			InputFiles:  inputFiles,
			OutputFiles: outputFiles,
		},
	}
}

// NewInvalid builds a Doc for the "invalid" terminal state: every one of
// startTime/inputFiles/outputFiles/subtasks is null and message is set,
// per spec.md §3's invariant.
func NewInvalid(jobID string, kind Kind, message string) Doc {
	return Doc{
		JobID:   jobID,
		JobType: kind,
		Body: Body{
			Status:      StatusInvalid,
			StartTime:   nil,
			EndTime:     nil,
			Subtasks:    subtasksNull,
			InputFiles:  nil,
			OutputFiles: nil,
			Message:     message,
		},
	}
}

// NewFailed builds a Doc for a translator MissingFiles failure: intake
// still sets startTime/endTime per the state-machine invariant that
// status∈{complete,failed} ⇒ endTime non-null and ≥ startTime.
func NewFailed(jobID string, kind Kind, startTime, endTime float64, message string) Doc {
	st, et := startTime, endTime
	return Doc{
		JobID:   jobID,
		JobType: kind,
		Body: Body{
			Status:      StatusFailed,
			StartTime:   &st,
			EndTime:     &et,
			Subtasks:    subtasksEmpty,
			InputFiles:  nil,
			OutputFiles: nil,
			Message:     message,
		},
	}
}

// WithRunning returns a copy transitioned to "running", the only
// transition the worker makes out of "pending".
func (d Doc) WithRunning() Doc {
	next := d
	next.Body.Status = StatusRunning
	return next
}

// WithComplete returns a copy transitioned to "complete" with outputFiles
// and endTime set.
func (d Doc) WithComplete(outputFiles []string, endTime float64) Doc {
	next := d
	et := endTime
	next.Body.Status = StatusComplete
	next.Body.OutputFiles = outputFiles
	next.Body.EndTime = &et
	return next
}

// WithFailed returns a copy transitioned to "failed" with a message and
// endTime set.
func (d Doc) WithFailed(message string, endTime float64) Doc {
	next := d
	et := endTime
	next.Body.Status = StatusFailed
	next.Body.Message = message
	next.Body.EndTime = &et
	return next
}
