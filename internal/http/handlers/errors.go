// Package handlers defines HTTP-layer error codes used across all API
// endpoints. The codes are a stable, machine-readable taxonomy that clients
// can branch on; every error response carries exactly one of them alongside
// the HTTP status (see response.go).
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeConversationFailed = "conversation_failed"
	ErrCodeMenuFailed         = "menu_failed"
	ErrCodeTrackingFailed     = "tracking_failed"
)
