package services

import (
	"errors"
	"fmt"
)

// ErrNotFound means a record is absent. For quota lookups this is the
// normal first-time-user case, not a failure.
var ErrNotFound = errors.New("item not found")

// ErrCandidateGone means the matched candidate's row was already removed
// from the pending ledger, typically by a concurrent match. The caller
// should retry the whole match attempt against a fresh scan.
var ErrCandidateGone = errors.New("matched candidate no longer in the pending ledger")

// ErrSessionExpired means the chat room exists but its 24h window closed.
var ErrSessionExpired = errors.New("chat session expired")

// ConsistencyViolation is raised when a consumption batch would delete
// more rows than the two matched entries. It aborts the deletion and is
// never shown to users verbatim.
type ConsistencyViolation struct {
	Rows int
}

func (e *ConsistencyViolation) Error() string {
	return fmt.Sprintf("consistency violation: deletion batch would remove %d rows, expected at most 2", e.Rows)
}
