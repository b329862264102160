// Package services – Orchestrator
//
// This file implements the dialogue loop: one entry point per user turn that
// resumes the session, classifies the message, applies the confidence gate
// and clarification ladder, routes to the domain services, and persists the
// updated session. A panic anywhere below ends the session with an apology
// and a hand-off; the conversation never crashes a request.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ksultani/go-dinebot-backend/internal/config"
	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
)

// ConversationReply is the outcome of one processed turn.
type ConversationReply struct {
	SessionID   string                   `json:"session_id"`
	Message     string                   `json:"message"`
	State       domain.ConversationState `json:"conversation_state"`
	Intent      domain.Intent            `json:"intent"`
	Confidence  float64                  `json:"confidence"`
	Draft       *domain.OrderDraft       `json:"draft,omitempty"`
	OrderNumber string                   `json:"order_number,omitempty"`
	Escalated   bool                     `json:"escalated,omitempty"`
}

// Orchestrator routes classified turns to the domain services.
type Orchestrator struct {
	Sessions   *SessionService
	Orders     *OrderService
	Issues     *IssueService
	Menu       *MenuService
	Classifier nlu.IntentClassifier

	Confidence config.ConfidenceConfig
	Audit      AuditSink

	// OnTurn is an optional metrics hook invoked once per processed turn.
	OnTurn func(intent domain.Intent, escalated bool)

	// Now is a clock seam for tests.
	Now func() time.Time
}

// NewOrchestrator wires the dialogue loop.
func NewOrchestrator(sessions *SessionService, orders *OrderService, issues *IssueService, menu *MenuService, classifier nlu.IntentClassifier, conf config.ConfidenceConfig, audit AuditSink) *Orchestrator {
	if audit == nil {
		audit = NopAuditSink{}
	}
	return &Orchestrator{
		Sessions: sessions, Orders: orders, Issues: issues, Menu: menu,
		Classifier: classifier, Confidence: conf, Audit: audit,
		Now: time.Now,
	}
}

const (
	welcomePrefix = "Welcome to Burgerizzer! "
	fallbackReply = "I'm sorry, something went wrong on our side. Let me connect you with a team member."
)

// Process handles one user turn. sessionID may be empty; the reply carries
// the session to continue with.
func (o *Orchestrator) Process(ctx context.Context, phone, sessionID, message string) (reply *ConversationReply, err error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	sess, cust, _, err := o.Sessions.Resume(ctx, phone, sessionID)
	if err != nil {
		return nil, err
	}
	firstTurn := len(o.Sessions.History(sess)) == 0
	draft := o.Sessions.Draft(sess)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("session", sess.ID).Msg("turn panicked")
			sess.State = domain.StateEnded
			reply = &ConversationReply{
				SessionID: sess.ID,
				Message:   fallbackReply,
				State:     sess.State,
				Intent:    domain.IntentUnclear,
				Draft:     draft,
				Escalated: true,
			}
			o.Audit.Record(ctx, domain.AuditLog{
				CustomerID: cust.ID,
				SessionID:  sess.ID,
				Action:     "auto_escalated_on_error",
				Severity:   "error",
				Details:    auditDetails(map[string]any{"panic": fmt.Sprint(r)}),
			})
			o.Sessions.AppendTurn(sess, "user", message)
			o.Sessions.AppendTurn(sess, "assistant", reply.Message)
			if serr := o.Sessions.Save(ctx, sess); serr != nil {
				log.Error().Err(serr).Str("session", sess.ID).Msg("session save failed")
			}
			err = nil
		}
	}()

	sc := nlu.SessionContext{
		State:       sess.State,
		RecentTurns: o.Sessions.RecentHistory(sess),
		HasDraft:    !draft.IsEmpty(),
	}
	if sc.HasDraft {
		sc.DraftSummary = Summary(draft)
	}

	result, cerr := o.Classifier.Classify(ctx, message, sc)
	if cerr != nil {
		log.Warn().Err(cerr).Str("session", sess.ID).Msg("classification unavailable")
		result = nlu.IntentResult{Intent: domain.IntentUnclear}
	}
	result.Normalize()

	reply = &ConversationReply{
		SessionID:  sess.ID,
		Intent:     result.Intent,
		Confidence: result.Confidence,
	}

	if result.Confidence < o.Confidence.Escalation {
		o.handleUnclear(ctx, sess, cust.ID, result, reply)
	} else {
		sess.UnclearCount = 0
		o.route(ctx, sess, cust, draft, message, result, reply, firstTurn)
	}

	if firstTurn && !strings.HasPrefix(reply.Message, strings.TrimSpace(welcomePrefix)) {
		reply.Message = welcomePrefix + reply.Message
	}

	reply.State = sess.State
	reply.Draft = o.Sessions.Draft(sess)

	o.Sessions.AppendTurn(sess, "user", message)
	o.Sessions.AppendTurn(sess, "assistant", reply.Message)
	if err := o.Sessions.Save(ctx, sess); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("session save failed")
	}
	if o.OnTurn != nil {
		o.OnTurn(result.Intent, reply.Escalated)
	}
	return reply, nil
}

// handleUnclear climbs the clarification ladder. The counter survives across
// turns and resets on the first confident one; the third rung hands off.
func (o *Orchestrator) handleUnclear(ctx context.Context, sess *domain.Session, customerID string, result nlu.IntentResult, reply *ConversationReply) {
	sess.UnclearCount++
	switch {
	case sess.UnclearCount == 1:
		msg := "I didn't quite catch that. Could you rephrase?"
		if hint := o.partialHint(result); hint != "" {
			msg = "I didn't quite catch that. " + hint
		}
		reply.Message = msg
	case sess.UnclearCount == 2:
		reply.Message = "I'm still not sure I understand. You can order food, ask about the menu, track an order, or report a problem with one."
	default:
		reply.Message = "I'm having trouble understanding. Let me connect you with a team member who can help."
		reply.Escalated = true
		o.Audit.Record(ctx, domain.AuditLog{
			CustomerID: customerID,
			SessionID:  sess.ID,
			Action:     "escalated_to_human",
			Severity:   "warn",
			Details:    auditDetails(map[string]any{"reason": "clarification ladder exhausted"}),
		})
	}
}

// partialHint tailors the first clarification when the classifier had a
// weak-but-nonzero guess.
func (o *Orchestrator) partialHint(result nlu.IntentResult) string {
	if result.Confidence < o.Confidence.PartialHint {
		return ""
	}
	switch result.Intent {
	case domain.IntentOrdering:
		return "Were you trying to order something?"
	case domain.IntentInquiry:
		return "Were you asking about our menu?"
	case domain.IntentTracking:
		return "Were you asking about an existing order?"
	case domain.IntentComplaint:
		return "Is there a problem with an order?"
	default:
		return ""
	}
}

func (o *Orchestrator) route(ctx context.Context, sess *domain.Session, cust *domain.Customer, draft *domain.OrderDraft, message string, result nlu.IntentResult, reply *ConversationReply, firstTurn bool) {
	switch result.Intent {
	case domain.IntentGreeting:
		o.handleGreeting(sess, draft, reply, firstTurn)
	case domain.IntentInquiry:
		o.handleInquiry(ctx, sess, message, reply)
	case domain.IntentOrdering:
		o.handleOrdering(ctx, sess, draft, message, result.Entities, reply)
	case domain.IntentRemove:
		o.handleRemove(ctx, sess, draft, message, result.Entities, reply)
	case domain.IntentCancel:
		o.handleCancel(sess, draft, reply)
	case domain.IntentQueryOrder:
		reply.Message = Summary(draft)
		if !draft.IsEmpty() {
			sess.State = domain.StateBuildingOrder
		}
	case domain.IntentConfirmOrder:
		o.handleConfirm(ctx, sess, cust.ID, draft, reply)
	case domain.IntentTracking:
		o.handleTracking(ctx, sess, cust.ID, message, result.Entities, reply)
	case domain.IntentComplaint:
		o.handleComplaint(ctx, sess, cust.ID, message, result, reply)
	case domain.IntentEscalate:
		reply.Message = "Of course. I'm connecting you with a team member now."
		reply.Escalated = true
		sess.State = domain.StateEnded
		o.Audit.Record(ctx, domain.AuditLog{
			CustomerID: cust.ID,
			SessionID:  sess.ID,
			Action:     "escalated_to_human",
			Severity:   "warn",
			Details:    auditDetails(map[string]any{"reason": "customer requested"}),
		})
	case domain.IntentFarewell:
		sess.State = domain.StateEnded
		reply.Message = "Thank you for visiting Burgerizzer. See you next time!"
	default:
		// A confident-but-unroutable verdict is a classifier contract bug;
		// treat it like the first ladder rung without burning the counter.
		reply.Message = "I didn't quite catch that. Could you rephrase?"
	}
}

func (o *Orchestrator) handleGreeting(sess *domain.Session, draft *domain.OrderDraft, reply *ConversationReply, firstTurn bool) {
	switch {
	case firstTurn:
		reply.Message = welcomePrefix + "I can take your order, answer menu questions, track an order, or help with a problem. What can I get you?"
	case !draft.IsEmpty():
		reply.Message = fmt.Sprintf("Hello again! You have %d item(s) in your order. Want to add something or check out?", draft.ItemCount())
	default:
		reply.Message = "Hello again! What can I get you today?"
	}
	if draft.IsEmpty() {
		sess.State = domain.StateBrowsingMenu
	} else {
		sess.State = domain.StateBuildingOrder
	}
}

func (o *Orchestrator) handleInquiry(ctx context.Context, sess *domain.Session, message string, reply *ConversationReply) {
	ans, err := o.Menu.Answer(ctx, message)
	if err != nil {
		log.Error().Err(err).Msg("menu answer failed")
		reply.Message = "I'm having trouble reading the menu right now. Please try again in a moment."
		return
	}
	reply.Message = ans
	if sess.State == domain.StateGreeting || sess.State == domain.StateEnded {
		sess.State = domain.StateBrowsingMenu
	}
}

func (o *Orchestrator) handleOrdering(ctx context.Context, sess *domain.Session, draft *domain.OrderDraft, message string, ents nlu.Entities, reply *ConversationReply) {
	mentions := ents.Items
	if len(mentions) == 0 {
		// No structured entities: let the resolver chew on the raw turn.
		mentions = []nlu.ItemMention{{Name: message, Quantity: 1}}
	}
	res, err := o.Orders.AddItems(ctx, draft, mentions)
	if err != nil {
		log.Error().Err(err).Msg("add items failed")
		reply.Message = "I couldn't update your order just now. Please try again."
		return
	}
	o.Sessions.SetDraft(sess, draft)
	reply.Message = res.Message
	if len(res.Added) > 0 {
		sess.State = domain.StateBuildingOrder
		if recs := o.recommendations(ctx, draft); recs != "" {
			reply.Message += " " + recs
		}
	} else if sess.State == domain.StateGreeting {
		sess.State = domain.StateBrowsingMenu
	}
}

// recommendations renders at most two cross-sell picks.
func (o *Orchestrator) recommendations(ctx context.Context, draft *domain.OrderDraft) string {
	menu, err := o.Menu.Items(ctx)
	if err != nil {
		return ""
	}
	recs := Recommend(draft, menu)
	if len(recs) > 2 {
		recs = recs[:2]
	}
	switch len(recs) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Would you like %s with that?", recs[0].Name)
	default:
		return fmt.Sprintf("Would you like %s or %s with that?", recs[0].Name, recs[1].Name)
	}
}

func (o *Orchestrator) handleRemove(ctx context.Context, sess *domain.Session, draft *domain.OrderDraft, message string, ents nlu.Entities, reply *ConversationReply) {
	if draft.IsEmpty() {
		// "Remove X and add Y" on an empty cart is really an add.
		if o.Orders.HasAddCue(message) {
			o.handleOrdering(ctx, sess, draft, message, ents, reply)
			return
		}
		reply.Message = "Your order is empty, so there's nothing to remove yet."
		return
	}

	if removePart, addPart, ok := o.Orders.SplitCompound(message); ok {
		o.handleCompound(ctx, sess, draft, removePart, addPart, ents, reply)
		return
	}

	mentions := ents.Items
	if len(mentions) == 0 {
		mentions = []nlu.ItemMention{{Name: message}}
	}
	res, err := o.Orders.RemoveItems(ctx, draft, mentions)
	if err != nil {
		log.Error().Err(err).Msg("remove items failed")
		reply.Message = "I couldn't update your order just now. Please try again."
		return
	}
	o.Sessions.SetDraft(sess, draft)
	reply.Message = res.Message
	if draft.IsEmpty() {
		sess.State = domain.StateBrowsingMenu
	}
}

// handleCompound serves a remove-then-add turn as two passes over the draft.
// Entity mentions are attributed to a half by where they appear; with no
// entities each half is resolved as one raw mention.
func (o *Orchestrator) handleCompound(ctx context.Context, sess *domain.Session, draft *domain.OrderDraft, removePart, addPart string, ents nlu.Entities, reply *ConversationReply) {
	var removeMentions, addMentions []nlu.ItemMention
	for _, m := range ents.Items {
		if strings.Contains(strings.ToLower(addPart), strings.ToLower(m.Name)) {
			addMentions = append(addMentions, m)
		} else {
			removeMentions = append(removeMentions, m)
		}
	}
	if len(removeMentions) == 0 {
		removeMentions = []nlu.ItemMention{{Name: removePart}}
	}
	if len(addMentions) == 0 {
		addMentions = []nlu.ItemMention{{Name: addPart, Quantity: 1}}
	}

	rmRes, err := o.Orders.RemoveItems(ctx, draft, removeMentions)
	if err != nil {
		log.Error().Err(err).Msg("compound remove failed")
		reply.Message = "I couldn't update your order just now. Please try again."
		return
	}
	addRes, err := o.Orders.AddItems(ctx, draft, addMentions)
	if err != nil {
		log.Error().Err(err).Msg("compound add failed")
		reply.Message = rmRes.Message
		o.Sessions.SetDraft(sess, draft)
		return
	}
	o.Sessions.SetDraft(sess, draft)
	reply.Message = strings.TrimSpace(rmRes.Message + " " + addRes.Message)
	if !draft.IsEmpty() {
		sess.State = domain.StateBuildingOrder
	} else {
		sess.State = domain.StateBrowsingMenu
	}
}

func (o *Orchestrator) handleCancel(sess *domain.Session, draft *domain.OrderDraft, reply *ConversationReply) {
	if draft.IsEmpty() {
		reply.Message = "You don't have an active order to cancel. Would you like to see the menu?"
		sess.State = domain.StateBrowsingMenu
		return
	}
	*draft = *domain.EmptyDraft()
	o.Sessions.SetDraft(sess, draft)
	sess.State = domain.StateBrowsingMenu
	reply.Message = "Done — I've cleared your order. Can I get you something else?"
}

func (o *Orchestrator) handleConfirm(ctx context.Context, sess *domain.Session, customerID string, draft *domain.OrderDraft, reply *ConversationReply) {
	if draft.IsEmpty() {
		reply.Message = "Your order is empty. What would you like to have?"
		sess.State = domain.StateBrowsingMenu
		return
	}

	order, err := o.Orders.Submit(ctx, customerID, draft)
	switch {
	case err == nil:
		o.Sessions.SetDraft(sess, domain.EmptyDraft())
		sess.State = domain.StateGreeting
		reply.OrderNumber = order.OrderNumber
		msg := fmt.Sprintf("Order placed! Your order number is %s and your total is $%.2f.", order.OrderNumber, order.Total)
		if order.EstimatedReady != nil {
			msg += fmt.Sprintf(" It should be ready around %s.", order.EstimatedReady.Format("15:04"))
		}
		reply.Message = msg
	case errors.Is(err, ErrItemUnavailable):
		sess.State = domain.StateBuildingOrder
		reply.Message = fmt.Sprintf("I'm sorry, %s. Your order is unchanged; you can remove it and try again.", err.Error())
	default:
		log.Error().Err(err).Str("session", sess.ID).Msg("order submission failed")
		reply.Message = "Something went wrong while placing your order. Nothing was charged. Shall I try again?"
	}
}

var orderNumberPattern = regexp.MustCompile(`(?i)\b[A-Z]{2,5}-\d{8}-\d{4}\b`)

func (o *Orchestrator) handleTracking(ctx context.Context, sess *domain.Session, customerID, message string, ents nlu.Entities, reply *ConversationReply) {
	number := ents.OrderID
	if number == "" {
		number = orderNumberPattern.FindString(message)
	}
	order, err := o.Orders.Track(ctx, customerID, number)
	switch {
	case err == nil:
		sess.State = domain.StateTrackingOrder
		reply.Message = o.Orders.TrackingMessage(order)
		reply.OrderNumber = order.OrderNumber
	case errors.Is(err, ErrOrderNotFound):
		reply.Message = "I couldn't find an order for you. Could you double-check the order number?"
	default:
		log.Error().Err(err).Msg("tracking lookup failed")
		reply.Message = "I couldn't look that up just now. Please try again."
	}
}

func (o *Orchestrator) handleComplaint(ctx context.Context, sess *domain.Session, customerID, message string, result nlu.IntentResult, reply *ConversationReply) {
	number := result.Entities.OrderID
	if number == "" {
		number = orderNumberPattern.FindString(message)
	}
	res, err := o.Issues.HandleComplaint(ctx, customerID, message, number, result.Sentiment)
	if err != nil {
		// A failed complaint turn must never strand the customer.
		log.Error().Err(err).Msg("complaint handling failed")
		sess.State = domain.StateResolvingIssue
		reply.Message = "I'm sorry about the trouble. I'm connecting you with a team member who can make this right."
		reply.Escalated = true
		o.Audit.Record(ctx, domain.AuditLog{
			CustomerID: customerID,
			SessionID:  sess.ID,
			Action:     "auto_escalated_on_error",
			Severity:   "error",
			Details:    auditDetails(map[string]any{"reason": "complaint processing failed"}),
		})
		return
	}
	sess.State = domain.StateResolvingIssue
	reply.Message = res.Message
	reply.Escalated = res.Escalated
}
