package backend

import (
	"fmt"

	"github.com/pkg/errors"
)

// TransportError covers everything that kept a well-formed answer from arriving:
// unreachable host, timeout, unreadable or non-JSON body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError is a non-2xx answer. Detail carries the backend's own message when it sent one.
type BackendError struct {
	Op     string
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsBackend(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}

// Detail returns the text an operator should see for err.
func Detail(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Error()
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "could not reach the support API"
	}
	return err.Error()
}
