package error

import "net/http"

// CycleError indicates an edge insertion that would make the dependency
// graph cyclic. This points at a fingerprinting bug in the caller, so it is
// surfaced loudly instead of being merged or ignored.
type CycleError string

func (err CycleError) Error() string {
	return string(err)
}

func (err CycleError) ErrCode() string {
	return "CYCLE_DETECTED"
}

func (err CycleError) StatusCode() int {
	return http.StatusUnprocessableEntity
}
