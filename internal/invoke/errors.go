package invoke

import "fmt"

// NoRouteError reports a command dispatched in HTTP mode with no route table
// entry. This is a configuration error (code/deployment mismatch), never a
// transient condition, and is raised before any network activity.
type NoRouteError struct {
	Command string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no route mapped for command %q", e.Command)
}

// StatusError is a non-2xx backend response normalized into an error. The
// message is the backend-declared "error" field when the body parses as
// JSON, else a generic status line.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}
