// Package review defines the messages exchanged between a submitter and the reviewer.
package review

import (
	"fmt"

	"github.com/Strob0t/patchpal/internal/domain"
)

// Status is the reviewer's verdict on a submission.
type Status int32

// StatusUnknown is only produced when decoding a value this build does not
// recognize. The broker never emits it.
const (
	StatusUnknown  Status = 0
	StatusAccepted Status = 1
	StatusRejected Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a verdict the broker may act on.
func (s Status) Valid() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Enforce returns domain.ErrProtocolViolation unless s is Accepted or Rejected.
func Enforce(s Status) error {
	if !s.Valid() {
		return fmt.Errorf("status %d: %w", int32(s), domain.ErrProtocolViolation)
	}
	return nil
}

// Submission is a unit of review work: unified diff text plus optional metadata.
type Submission struct {
	Patch    string
	Metadata *string
}

// NewSubmission builds a Submission. An empty metadata string means none.
func NewSubmission(patch, metadata string) Submission {
	s := Submission{Patch: patch}
	if metadata != "" {
		s.Metadata = &metadata
	}
	return s
}

// MetadataOr returns the metadata or fallback when none was sent.
func (s Submission) MetadataOr(fallback string) string {
	if s.Metadata == nil {
		return fallback
	}
	return *s.Metadata
}
