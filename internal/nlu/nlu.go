// Package nlu defines the language-understanding boundary of the assistant:
// the collaborator contracts for intent classification, semantic item
// matching, and free-form menu answering, plus the resilience wrappers that
// keep the dialogue loop alive when a collaborator is slow or down.
//
// Collaborators are pluggable. Production wires model-backed implementations;
// tests and degraded mode use the deterministic keyword classifier.
package nlu

import (
	"context"
	"time"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// Turn is one message of conversation history, either side.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ItemMention is a raw menu reference extracted from a user turn, before
// resolution against the catalog.
type ItemMention struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Entities carries the structured payload of a classified turn.
type Entities struct {
	Items   []ItemMention     `json:"items,omitempty"`
	OrderID string            `json:"order_id,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// IntentResult is a classifier verdict for a single user turn. Callers must
// run Normalize before trusting any field; classifier output is an external
// boundary.
type IntentResult struct {
	Intent     domain.Intent    `json:"intent"`
	Confidence float64          `json:"confidence"`
	Entities   Entities         `json:"entities"`
	Sentiment  domain.Sentiment `json:"sentiment"`
}

// Normalize repairs out-of-contract classifier output in place: unknown
// intent labels collapse to unclear, confidence is clamped to [0,1],
// sentiment defaults to neutral, and non-positive mention quantities
// become 1.
func (r *IntentResult) Normalize() {
	if !domain.ValidIntent(string(r.Intent)) {
		r.Intent = domain.IntentUnclear
	}
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
	switch r.Sentiment {
	case domain.SentimentPositive, domain.SentimentNeutral, domain.SentimentNegative:
	default:
		r.Sentiment = domain.SentimentNeutral
	}
	for i := range r.Entities.Items {
		if r.Entities.Items[i].Quantity < 1 {
			r.Entities.Items[i].Quantity = 1
		}
	}
}

// SessionContext is the slice of session state handed to the classifier so
// turns are interpreted in context ("yes" after a confirmation prompt).
type SessionContext struct {
	State        domain.ConversationState
	RecentTurns  []Turn
	HasDraft     bool
	DraftSummary string
}

// MenuCandidate is the catalog projection offered to the matcher and the
// menu answerer. It carries no price so collaborators cannot leak stale
// amounts into replies.
type MenuCandidate struct {
	ID         string
	Name       string
	ArabicName string
	Category   string
}

// MatchResult is the matcher's best candidate for a mention.
type MatchResult struct {
	ItemID     string
	Confidence float64
}

// IntentClassifier turns a raw user message into an intent verdict.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, sc SessionContext) (IntentResult, error)
}

// ItemMatcher scores a free-text mention against catalog candidates. A zero
// MatchResult with nil error means no candidate cleared the matcher's own
// floor.
type ItemMatcher interface {
	Match(ctx context.Context, mention string, candidates []MenuCandidate) (MatchResult, error)
}

// MenuAnswerer produces a conversational answer to a menu question, grounded
// on the provided catalog snapshot.
type MenuAnswerer interface {
	Answer(ctx context.Context, question string, menu []MenuCandidate) (string, error)
}
