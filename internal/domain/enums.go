// Package domain defines the persistence models and core value types for
// the ordering assistant: customers, menu items, sessions, orders, issues,
// and the in-progress order draft. These types are mapped with GORM and
// form the data layer shared by every service.
package domain

// ConversationState tracks where a session currently is in the dialogue.
type ConversationState string

const (
	StateGreeting        ConversationState = "greeting"
	StateBrowsingMenu    ConversationState = "browsing_menu"
	StateBuildingOrder   ConversationState = "building_order"
	StateConfirmingOrder ConversationState = "confirming_order"
	StateTrackingOrder   ConversationState = "tracking_order"
	StateResolvingIssue  ConversationState = "resolving_issue"
	StateEnded           ConversationState = "ended"
)

// Intent is the classified purpose of a single user turn.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentInquiry      Intent = "inquiry"
	IntentOrdering     Intent = "ordering"
	IntentComplaint    Intent = "complaint"
	IntentTracking     Intent = "tracking"
	IntentFarewell     Intent = "farewell"
	IntentCancel       Intent = "cancel"
	IntentRemove       Intent = "remove"
	IntentQueryOrder   Intent = "query_order"
	IntentConfirmOrder Intent = "confirm_order"
	IntentEscalate     Intent = "escalate"
	IntentUnclear      Intent = "unclear"
)

// ValidIntent reports whether s is a known intent label. Classifier output
// is validated at the boundary; unknown labels collapse to IntentUnclear.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentGreeting, IntentInquiry, IntentOrdering, IntentComplaint,
		IntentTracking, IntentFarewell, IntentCancel, IntentRemove,
		IntentQueryOrder, IntentConfirmOrder, IntentEscalate, IntentUnclear:
		return true
	}
	return false
}

// OrderStatus is the lifecycle state of a committed order.
type OrderStatus string

const (
	OrderPending        OrderStatus = "pending"
	OrderConfirmed      OrderStatus = "confirmed"
	OrderPreparing      OrderStatus = "preparing"
	OrderReady          OrderStatus = "ready"
	OrderOutForDelivery OrderStatus = "out_for_delivery"
	OrderDelivered      OrderStatus = "delivered"
	OrderCancelled      OrderStatus = "cancelled"
)

// IssueType is the complaint category assigned by the issue coordinator.
type IssueType string

const (
	IssueMissingItem   IssueType = "missing_item"
	IssueWrongOrder    IssueType = "wrong_order"
	IssueLateDelivery  IssueType = "late_delivery"
	IssueQuality       IssueType = "quality"
	IssueRefundRequest IssueType = "refund_request"
)

// IssueStatus is the resolution state of a complaint record.
type IssueStatus string

const (
	IssueOpen      IssueStatus = "open"
	IssueResolved  IssueStatus = "resolved"
	IssueEscalated IssueStatus = "escalated"
)

// Sentiment is the lexical polarity detected on a user turn.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)
