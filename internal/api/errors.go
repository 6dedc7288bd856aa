package api

import "fmt"

// AuthError is returned when the server rejects credentials or registration
// input. It carries the server-provided reason verbatim.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return e.Reason
}

// FetchError is returned when a durable HTTP call failed or timed out. The
// engine never retries these; retry-or-not is the caller's decision.
type FetchError struct {
	Op     string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: status %d", e.Op, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
