package registry

import (
	"errors"
	"fmt"

	"github.com/weftlab/domo-registry/internal/docstore"
)

// MergeMode selects how structured sub-document fields in an update payload
// are applied.
type MergeMode int

const (
	// MergeReplace overwrites a sub-document field wholesale.
	MergeReplace MergeMode = iota

	// MergeAdd overlays only the payload's inner keys onto the existing
	// sub-document, persisting each under a dotted path so untouched
	// sibling keys survive.
	MergeAdd
)

// Work accumulates the state of one reconciliation: the evolving document,
// the minimal write-set to persist, and whether the document was created by
// this request. It is threaded through the validation steps as an explicit
// value.
type Work struct {
	// Doc is the reconciled document, updated as payload fields are
	// accepted.
	Doc docstore.Document

	// Set is the pending write-set. Keys may be dotted paths for
	// additive sub-document merges.
	Set docstore.WriteSet

	// IsNew is true when the document was freshly initialized with an
	// allocated identifier rather than read from the store.
	IsNew bool

	// Query is the stable identifying filter the final upsert is keyed
	// by.
	Query docstore.Filter
}

// RejectionError carries the human-readable reason a reconciliation was
// refused. No write is attempted for a rejected update.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

// Reject builds a RejectionError from a format string.
func Reject(format string, args ...any) *RejectionError {
	return &RejectionError{Reason: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a validation rejection, as opposed to
// an infrastructure failure.
func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}
