package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")

	// ErrInsufficientShares is the ledger's fail-closed answer when a reserve
	// asks for more shares than are available. Never retried internally.
	ErrInsufficientShares = errors.New("insufficient shares available")

	// ErrInvalidTransition rejects any operation attempted from a
	// disqualifying status, including double approvals and double commits.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDeletionOpen signals an offering already has an open consensus round.
	ErrDeletionOpen = errors.New("deletion round already open")

	// ErrOfferingUnavailable rejects new requests against offerings that are
	// pending deletion or retired.
	ErrOfferingUnavailable = errors.New("offering not accepting requests")
)
