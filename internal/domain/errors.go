package domain

import "errors"

var (
	// ErrInvalidQuiz is returned when an authoring payload breaks a structural rule.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrQuizNotFound is returned for unknown or malformed share codes.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrShareCodeTaken is returned by a store when the share code is already in use.
	ErrShareCodeTaken = errors.New("share code already taken")
	// ErrExhaustedRetries means no free share code was found within the attempt budget.
	ErrExhaustedRetries = errors.New("share code allocation exhausted retries")
	// ErrMalformedSubmission is returned when a submission body is structurally invalid.
	ErrMalformedSubmission = errors.New("malformed submission")
	// ErrInvalidDraftRequest is returned when a draft request lacks a topic.
	ErrInvalidDraftRequest = errors.New("invalid draft request")
	// ErrProviderFailure wraps failures of the draft generation provider.
	ErrProviderFailure = errors.New("draft provider failure")
	// ErrUnauthorized is returned when an author credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
)
