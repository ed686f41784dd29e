package storage

import "errors"

// Storage errors shared by the ledger and its mirror sinks.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists. Trade records are immutable once written.
	ErrDuplicateKey = errors.New("duplicate key: trade records are immutable")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
