package database

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a strict insert hits a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrUnknownEmployee is returned when a ledger write references an employee that no longer exists.
	ErrUnknownEmployee = errors.New("unknown employee")
)
