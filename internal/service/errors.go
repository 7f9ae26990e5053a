package service

import "errors"

var (
	ErrIDRequired       = errors.New("id is required")
	ErrNotFound         = errors.New("document not found")
	ErrReaderNil        = errors.New("reader is nil")
	ErrIncidentRequired = errors.New("incident id is required")

	// ErrInvalidPayload wraps validation failures of an evidence append.
	ErrInvalidPayload = errors.New("invalid evidence payload")
	// ErrInvalidRequest wraps validation failures of a document issue request.
	ErrInvalidRequest = errors.New("invalid issue request")

	// ErrConcurrentAppendConflict is returned when every append attempt lost the
	// race for the next block index.
	ErrConcurrentAppendConflict = errors.New("concurrent append conflict")
	// ErrCodeGenerationExhausted is returned when every generated verification
	// code was already taken.
	ErrCodeGenerationExhausted = errors.New("verification code generation exhausted")
)
