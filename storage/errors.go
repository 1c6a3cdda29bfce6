package storage

import "errors"

var (
	// ErrDuplicateEmail is returned when a client email already exists
	ErrDuplicateEmail = errors.New("client email already exists")
	// ErrClientNotFound is returned when an operation references a client id
	// that does not exist
	ErrClientNotFound = errors.New("client not found")
	// ErrNoFilter is returned by FindClient when no filter was supplied
	ErrNoFilter = errors.New("no client filter supplied")
	// ErrNoSchema is returned when the registry tables do not exist
	ErrNoSchema = errors.New("schema does not exist")
	// ErrValueTooLong is returned when a value does not fit its column
	ErrValueTooLong = errors.New("value too long for column")
)
