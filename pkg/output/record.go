// Package output provides JSONL output for inventory results.
//
// Output is structured as typed record envelopes containing inventory
// entries, errors, and a final summary. Each line is a self-contained
// JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: arbor.<type>.v<version>
const (
	// TypeEntry identifies inventory entry records.
	TypeEntry = "arbor.entry.v1"

	// TypeError identifies error records.
	TypeError = "arbor.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "arbor.summary.v1"
)

// Record is the envelope for all JSONL output.
//
// Each line of JSONL output contains a Record with a type-specific
// payload in the Data field. The type field determines how to
// interpret the Data payload.
type Record struct {
	// Type identifies the record type (e.g., "arbor.entry.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// JobID is the correlation ID for this inventory job.
	JobID string `json:"job_id"`

	// Backend identifies the source backend (e.g., "s3", "msgraph").
	Backend string `json:"backend"`

	// Root is the root handle the inventory was generated against.
	Root string `json:"root"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// EntryRecord is the data payload for inventory entries.
//
// It mirrors one row of the generated inventory: a reachable file, or
// a not-found / branch-error marker.
type EntryRecord struct {
	// Path is the slash-rooted path below the root.
	Path string `json:"path"`

	// File is true for reachable files.
	File bool `json:"file,omitempty"`

	// Status carries the HTTP-style status of non-file rows
	// (404 not found, 500 branch error).
	Status int `json:"status,omitempty"`

	// Error is the failure detail for branch-error rows.
	Error string `json:"error,omitempty"`
}

// ErrorRecord is the data payload for job-level errors.
//
// Branch errors inside a tree stay inventory entries; ErrorRecord is
// for failures that abort or degrade the job itself.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Spec is the path spec being processed when the error occurred.
	Spec string `json:"spec,omitempty"`
}

// Error codes for ErrorRecord.
const (
	// ErrCodeAccessDenied indicates permission failure.
	ErrCodeAccessDenied = "ACCESS_DENIED"

	// ErrCodeNotFound indicates the root was not found.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeThrottled indicates rate limiting.
	ErrCodeThrottled = "THROTTLED"

	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal = "INTERNAL"
)

// SummaryRecord is the data payload for final summaries.
//
// A summary record is emitted at the end of a job with aggregate
// statistics.
type SummaryRecord struct {
	// Specs is the number of path specs processed.
	Specs int `json:"specs"`

	// Entries is the total number of inventory rows emitted.
	Entries int64 `json:"entries"`

	// Files is the number of file rows.
	Files int64 `json:"files"`

	// NotFound is the number of 404 rows.
	NotFound int64 `json:"not_found"`

	// Errors is the number of branch-error rows.
	Errors int64 `json:"errors"`

	// Cancelled reports whether the job stopped on a cancellation
	// signal and the inventory is a partial snapshot.
	Cancelled bool `json:"cancelled,omitempty"`

	// Duration is the total job duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
