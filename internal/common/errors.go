package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInvalidArgument = errors.New("invalid argument")

	// Wiring errors.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// PartialDeleteError reports a group deletion that could not remove every
// contained blob. The group record is kept when it is returned.
type PartialDeleteError struct {
	GroupID string
	Failed  map[string]error
}

// FailedIDs returns the ids of the blobs that were not deleted, sorted.
func (e *PartialDeleteError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("group %s: %d file(s) not deleted: %s",
		e.GroupID, len(e.Failed), strings.Join(e.FailedIDs(), ", "))
}

// Unwrap exposes the per-file causes to errors.Is and errors.As.
func (e *PartialDeleteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, id := range e.FailedIDs() {
		errs = append(errs, e.Failed[id])
	}
	return errs
}
