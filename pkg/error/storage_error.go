package error

import "net/http"

// StorageError wraps failures of the underlying store. Retry policy belongs
// to the caller owning the connection, not to this engine.
type StorageError string

func (err StorageError) Error() string {
	return string(err)
}

func (err StorageError) ErrCode() string {
	return "STORAGE_UNAVAILABLE"
}

func (err StorageError) StatusCode() int {
	return http.StatusServiceUnavailable
}
