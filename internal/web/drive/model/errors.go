package model

import "github.com/Laisky/errors/v2"

// Error kinds surfaced by the drive services. Callers match with errors.Is.
var (
	// ErrValidation indicates a malformed request or the wrong item type
	// for an operation.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates the referenced user, item or download request
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied indicates the caller lacks read or write access.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict indicates a duplicate folder name or a self-share.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates an operation against a download request
	// that is not in the required state.
	ErrInvalidState = errors.New("invalid state")
	// ErrIntegrity indicates server-side data loss, such as a READY
	// download whose archive blob has vanished. Not a client error.
	ErrIntegrity = errors.New("integrity fault")
)
