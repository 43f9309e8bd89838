// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// These codes give clients a stable, machine-readable error taxonomy next to
// the human-readable `error` message, which follows the wording the web client
// has always displayed.
//
// Conventions:
//   - Codes are lowercase and snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Domain-specific codes are reserved for outcomes that status alone cannot
//     convey (e.g. invalid_code vs validation_failed, both 400).
//
// Example response:
//
//	{
//	  "success": false,
//	  "error": "Invalid podcast code",
//	  "code": "invalid_code",
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeUnavailable      = "service_unavailable"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation   = "validation_failed"
	ErrCodeInvalidCode  = "invalid_code"
	ErrCodeCreateFailed = "create_failed"
	ErrCodeListFailed   = "list_failed"
)

// Client-facing messages for failures that are not validation errors.
const (
	msgInvalidJSON     = "Invalid JSON body"
	msgNotFound        = "Podcast not found"
	msgInternal        = "Internal server error"
	msgListFailed      = "Failed to fetch podcasts"
	msgAlreadyFinished = "Podcast has already finished"
)
