package errors

import "fmt"

// FetchFailed means a refresh pull failed and the store kept its last known state.
type FetchFailed struct {
	Resource string
	Cause    error
}

func (e *FetchFailed) Error() string {
	return fmt.Sprintf("fetch %s failed: %v", e.Resource, e.Cause)
}

func (e *FetchFailed) Unwrap() error {
	return e.Cause
}

func (e *FetchFailed) Retriable() bool {
	return true
}
