// Conversation HTTP handlers.
//
// This file exposes the single conversational entry point:
//   - POST /conversation   (process one user turn)
//
// The handler is transport-thin: it validates and normalizes the payload,
// delegates to the dialogue orchestrator, and translates sentinel errors
// into the standard envelope. Everything conversational (classification,
// clarification, cart mutation, submission) happens in the service layer.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/observability"
	"github.com/ksultani/go-dinebot-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ConversationService processes one user turn end to end.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type ConversationService interface {
	Process(ctx context.Context, phone, sessionID, message string) (*services.ConversationReply, error)
}

// MenuCatalog serves the available catalog for the menu endpoint.
type MenuCatalog interface {
	Items(ctx context.Context) ([]domain.MenuItem, error)
}

// OrderTracking locates committed orders and renders their status.
type OrderTracking interface {
	Track(ctx context.Context, customerID, orderNumber string) (*domain.Order, error)
	TrackingMessage(o *domain.Order) string
}

// CustomerResolver maps a phone number to the owning customer, provisioning
// one on first contact.
type CustomerResolver interface {
	ResolveByPhone(ctx context.Context, phone string) (*domain.Customer, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for conversation, menu, and order
// tracking. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	conv      ConversationService
	menu      MenuCatalog
	orders    OrderTracking
	customers CustomerResolver

	maxMessageRunes int
}

// New constructs a Handlers instance bound to the given services.
// maxMessageRunes caps inbound conversation payloads at the edge; <= 0
// falls back to 2000.
func New(conv ConversationService, menu MenuCatalog, orders OrderTracking, customers CustomerResolver, maxMessageRunes int) *Handlers {
	if maxMessageRunes <= 0 {
		maxMessageRunes = 2000
	}
	return &Handlers{
		conv: conv, menu: menu, orders: orders, customers: customers,
		maxMessageRunes: maxMessageRunes,
	}
}

//
// DTOs
//

// ConversationRequest is the JSON payload for one user turn.
type ConversationRequest struct {
	// Phone identifies the customer; customers are provisioned on first contact.
	Phone string `json:"phone" binding:"required" example:"+15550001111"`
	// SessionID optionally continues an existing conversation.
	SessionID string `json:"session_id,omitempty" format:"uuid"`
	// Message is the user's utterance. It must be non-empty.
	Message string `json:"message" binding:"required,min=1" example:"I'd like two cheeseburgers and a coke"`
}

//
// Helpers
//

// phoneDigitsRE validates a normalized phone number: optional +, 7-15 digits.
var phoneDigitsRE = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// normalizePhone strips formatting characters and validates the remainder.
func normalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9', r == '+':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '(', r == ')', r == '.':
			// formatting only
		default:
			return "", false
		}
	}
	p := b.String()
	if !phoneDigitsRE.MatchString(p) {
		return "", false
	}
	return p, true
}

// sanitizeMessage normalizes line endings and trims surrounding whitespace.
func sanitizeMessage(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

//
// Handlers
//

// PostConversation godoc
// @ID          postConversation
// @Summary     Process one conversation turn
// @Description Classifies the message, updates the session and order draft, and returns the assistant reply.
// @Tags        Conversation
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ConversationRequest  true  "User turn payload"
//
// @Success     200  {object}  services.ConversationReply   "Assistant reply"
// @Failure     400  {object}  handlers.ErrorResponse       "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse       "Internal error"
// @Router      /conversation [post]
func (h *Handlers) PostConversation(c *gin.Context) {
	var req ConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone and message required")
		return
	}

	phone, okPhone := normalizePhone(req.Phone)
	if !okPhone {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "phone must be 7-15 digits, optionally prefixed with +")
		return
	}

	message := sanitizeMessage(req.Message)
	if message == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}
	if utf8.RuneCountInString(message) > h.maxMessageRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("message too long: max %d runes", h.maxMessageRunes))
		return
	}

	ctx, span := otel.Tracer("httpapi").Start(c.Request.Context(), "conversation.turn",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	reply, err := h.conv.Process(ctx, phone, req.SessionID, message)
	if err != nil {
		switch err {
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeConversationFailed, err.Error())
		}
		return
	}

	if reply.OrderNumber != "" && reply.Intent == domain.IntentConfirmOrder {
		observability.OrderSubmissions.Inc()
	}

	ok(c, http.StatusOK, reply)
}
