package model

import "errors"

var (
	// ErrUnauthenticated means no valid credential was presented.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the credential is valid but lacks access. Existing
	// entities the principal cannot reach surface as forbidden, never as
	// not-found, so callers cannot probe for existence.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the entity is truly absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is a schema or shape violation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is a uniqueness violation.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAlreadyMember is returned when adding a user to a space they are in.
	ErrAlreadyMember = errors.New("user is already a member of this space")
	// ErrCannotRemoveOwner guards the owner-always-a-member invariant.
	ErrCannotRemoveOwner = errors.New("cannot remove the owner of the space")
	// ErrEmbeddingUnavailable is an embedding provider failure or timeout.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrInvalidCursor is a malformed pagination cursor.
	ErrInvalidCursor = errors.New("invalid cursor format")
)
