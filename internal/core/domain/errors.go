package domain

import "errors"

var (
	// ErrAcquisition means the pool could not supply a connection. No release is owed.
	ErrAcquisition = errors.New("acquiring connection")
	// ErrExecution means the explain form or the real execution failed.
	ErrExecution = errors.New("executing query")
	// ErrCatalog means the index catalog query failed.
	ErrCatalog = errors.New("reading index catalog")

	ErrEmptyQuery        = errors.New("empty query")
	ErrParseFailed       = errors.New("failed to parse SQL")
	ErrMutatingStatement = errors.New("statement modifies data and would execute during profiling")
)
