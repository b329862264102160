// Package services implements the business logic of the ordering assistant:
// session lifecycle, menu resolution, draft arithmetic, order submission,
// complaint policy, and the dialogue orchestrator that ties them together.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrEmptyMessage is returned when a conversation turn carries no text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSessionNotFound indicates the referenced session does not exist or
	// belongs to another customer.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyDraft is returned when submission or confirmation is attempted
	// on an empty cart.
	ErrEmptyDraft = errors.New("order draft is empty")

	// ErrItemUnavailable is returned when a draft line fails the availability
	// re-check inside the submission transaction.
	ErrItemUnavailable = errors.New("menu item no longer available")

	// ErrOrderNotFound indicates no order matched a tracking or complaint
	// lookup for the customer.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNoMenu is returned when the catalog cannot be loaded at all.
	ErrNoMenu = errors.New("menu unavailable")
)
