package adx

import (
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Category tells whether a failure came from the service or from reaching it.
type Category string

const (
	// CategoryDatabase is a query or command the service rejected or failed to run.
	CategoryDatabase Category = "database"
	// CategoryOperational is a failure to authenticate against the cluster.
	CategoryOperational Category = "operational"
)

// ServiceError wraps a cluster failure with its category. It is never retried.
type ServiceError struct {
	Category Category
	Op       string
	Err      error
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return "adx: " + e.Op + " failed"
	}
	return "adx: " + e.Op + ": " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Classify wraps err in a ServiceError. Authentication failures are operational. Everything else the
// client reports, *errors.Error from azkustodata included, is a database error.
// Errors that are already classified are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return &ServiceError{Category: CategoryOperational, Op: op, Err: err}
	}
	return &ServiceError{Category: CategoryDatabase, Op: op, Err: err}
}

// CategoryOf reports the category of a classified error.
func CategoryOf(err error) (Category, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Category, true
	}
	return "", false
}

// APIError carries the HTTP status an execution failure maps to.
type APIError struct {
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
