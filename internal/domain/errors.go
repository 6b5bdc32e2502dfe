package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Store invariants
	ErrNoWinner          = errors.New("no analyzed candidate available to select")
	ErrEditorRowMissing  = errors.New("editor row not found")
	ErrFlagInvariant     = errors.New("flag invariant violated: analyzed requires lt, mt and time")
	ErrStateNotSeeded    = errors.New("long-term state has not been seeded yet")

	// Round control
	ErrRoundNotDue       = errors.New("planner round is not due: chain is still open")
	ErrRoundInProgress   = errors.New("planner round already in progress")

	// Classifier errors
	ErrClassifierTimeout  = errors.New("classifier request timed out")
	ErrClassifierMalformed = errors.New("classifier returned a malformed response")
	ErrClassifierUnavailable = errors.New("classifier circuit is open")

	// Painter / delivery errors
	ErrImageEmpty        = errors.New("image generator returned an empty body")
	ErrImageRejected     = errors.New("image generator rejected the request")
	ErrDeliveryRejected  = errors.New("delivery surface rejected the message")

	// Preparator errors
	ErrUnknownTextFormat = errors.New("post text does not split into 2 or 4 parts")

	// Configuration errors
	ErrMissingCredential = errors.New("required credential is not configured")
	ErrInvalidWindow     = errors.New("publication window MIN must be <= MAX")
)
