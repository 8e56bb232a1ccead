package errors

import "fmt"

// MutationFailed is reported when a request was rejected after its optimistic
// change was already applied. The change is left in place.
type MutationFailed struct {
	Kind   string
	Target string
	Cause  error
}

func (e *MutationFailed) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("mutation %s failed: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("mutation %s %s failed: %v", e.Kind, e.Target, e.Cause)
}

func (e *MutationFailed) Unwrap() error {
	return e.Cause
}
