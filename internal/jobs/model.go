// Package jobs implements the transfer-job registry: submitting a GBN/SR
// transfer, tracking its lifecycle, and persisting its manifest either in
// memory or in etcd.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a transfer job.
type State int

const (
	// StatePending is a job that has been submitted but not yet started.
	StatePending State = iota
	// StateRunning is a job whose sender/receiver loop is in progress.
	StateRunning
	// StateDone is a job that completed its transfer successfully.
	StateDone
	// StateFailed is a job that terminated on a fatal transport error.
	StateFailed
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Protocol names which of the two wire protocols a job transfers over.
type Protocol string

const (
	// ProtocolGBN selects Go-Back-N.
	ProtocolGBN Protocol = "gbn"
	// ProtocolSR selects Selective-Repeat.
	ProtocolSR Protocol = "sr"
)

// Job is a single submitted transfer.
type Job struct {
	JobID    uuid.UUID `json:"job_id"`
	Protocol Protocol  `json:"protocol"`

	// PeerAddr is the UDP address of the other side of the transfer.
	PeerAddr string `json:"peer_addr"`
	// FilePath is the local file read (sender) or written (receiver).
	FilePath string `json:"file_path"`

	State State  `json:"state"`
	Err   string `json:"error,omitempty"`

	BytesMoved uint64 `json:"bytes_moved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the job has finished, successfully or not.
func (j *Job) IsTerminal() bool {
	return j.State == StateDone || j.State == StateFailed
}

// Filter narrows a List call down to a subset of jobs, with pagination.
type Filter struct {
	State  *State
	Limit  int
	Offset int
}
