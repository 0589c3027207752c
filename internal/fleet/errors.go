package fleet

import "fmt"

// VersionConflictError signals that a scoped update hit optimistic
// concurrency conflicts and the retry budget is not yet exhausted. Callers
// catch it with errors.As, increment the request's RetryCount, and retry
// the same batch. All other errors from the controller are fatal.
type VersionConflictError struct {
	Conflicts int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict of %d agents", e.Conflicts)
}
