package provider

import "fmt"

// Error is returned by provider clients when the remote API answers with a
// non-2xx status. The body is kept raw for logging; callers must not parse it.
type Error struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed: status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}
