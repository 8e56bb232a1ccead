package errors

import "fmt"

type ChannelError struct {
	Op    string
	Cause error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("push channel %s: %v", e.Op, e.Cause)
}

func (e *ChannelError) Unwrap() error {
	return e.Cause
}
