// Package models holds the wire and in-process data shapes shared across
// the translator, intake handler, and worker: WorkMessage, PreparedJob, and
// the MissingFiles failure, per spec.md §3.
package models

import (
	"fmt"
	"strings"
)

// WorkMessage is the JSON body of a queue message, per spec.md §3.
// Consumed exactly by the worker's lease handler (internal/worker).
type WorkMessage struct {
	JobDate         string `json:"job_date"`
	JobID           string `json:"job_id"`
	JobTag          string `json:"job_tag"`
	JobType         string `json:"job_type"`
	BucketName      string `json:"bucket_name"`
	InputFiles      []string `json:"input_files"`
	CommandLineArgs string `json:"command_line_args"`
	MaxRunTime      int    `json:"max_run_time,omitempty"`
}

// PreparedJob is the Descriptor Translator's (C4) successful output.
type PreparedJob struct {
	// CLIArgs is passed verbatim as the subprocess argument tail.
	CLIArgs string

	// InputFiles is an ordered list; each entry is either a fully-qualified
	// URL (fetched by HTTP) or an object-store key relative to the job
	// (fetched by GET). Order is preserved, duplicates are allowed.
	InputFiles []string

	// OutputFiles lists object-store keys the translator has already
	// produced (e.g. a water-preserved copy written before filtering).
	OutputFiles []string

	// EstimatedMaxRuntime is in seconds; used to extend the queue lease if
	// larger than the configured default.
	EstimatedMaxRuntime int
}

// MissingFiles is the Descriptor Translator's failure mode: the listed
// files were promised by the descriptor but absent from the object store.
type MissingFiles struct {
	Files []string
}

func (e *MissingFiles) Error() string {
	return fmt.Sprintf("Files specified but not found: %s. Please check your job submission and try again.",
		strings.Join(e.Files, ", "))
}

// InvalidDescriptor reports a descriptor the translator cannot accept:
// malformed descriptor JSON or a GUI-P form that fails validation, per
// spec.md §7. An unrecognized job_type is rejected by internal/intake
// before translation and does not use this type.
type InvalidDescriptor struct {
	Reason string
}

func (e *InvalidDescriptor) Error() string {
	return e.Reason
}
