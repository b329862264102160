// Package services – IssueService
//
// This file implements the complaint coordinator: locating the order the
// complaint is about, classifying the issue type from the description,
// running the compensation policy, and persisting the issue with its
// outcome. Persistence failures degrade to a human hand-off instead of a
// failed turn.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// IssueRepo defines the repository contract required by IssueService.
type IssueRepo interface {
	CreateIssue(ctx context.Context, db *gorm.DB, orderID, customerID string, issueType domain.IssueType, description string, sentiment domain.Sentiment) (*domain.Issue, error)
	ResolveIssue(ctx context.Context, db *gorm.DB, id, resolution string, compensation *float64) error
	EscalateIssue(ctx context.Context, db *gorm.DB, id, resolution string) error
}

// ComplaintResult is what the orchestrator tells the customer.
type ComplaintResult struct {
	Message      string
	Escalated    bool
	NeedsOrder   bool
	IssueType    domain.IssueType
	Compensation float64
}

// IssueService coordinates complaint handling end to end.
type IssueService struct {
	DB     *gorm.DB
	Repo   IssueRepo
	Orders OrderRepo
	Policy PolicyEngine
	Audit  AuditSink

	// MaxDescriptionLen caps the stored complaint text by rune count.
	MaxDescriptionLen int

	// Now is a clock seam for tests.
	Now func() time.Time
}

// NewIssueService constructs an IssueService.
func NewIssueService(db *gorm.DB, r IssueRepo, orders OrderRepo, policy PolicyEngine, audit AuditSink) *IssueService {
	if audit == nil {
		audit = NopAuditSink{}
	}
	return &IssueService{
		DB: db, Repo: r, Orders: orders, Policy: policy, Audit: audit,
		MaxDescriptionLen: 500,
		Now:               time.Now,
	}
}

// HandleComplaint runs one complaint turn: find the order (by number prefix
// when given, else the most recent), classify, decide, persist, reply. An
// issue is never recorded without a located order.
func (s *IssueService) HandleComplaint(ctx context.Context, customerID, description, orderNumber string, sentiment domain.Sentiment) (*ComplaintResult, error) {
	order, err := s.locateOrder(ctx, customerID, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ComplaintResult{
				NeedsOrder: true,
				Message:    "I'm sorry to hear that. I couldn't find a recent order for you. Could you share your order number?",
			}, nil
		}
		return nil, err
	}

	issueType := ClassifyIssueType(description)
	decision := s.Policy.Decide(issueType, order.Total, s.lateDelay(order))
	description = truncateRunes(strings.TrimSpace(description), s.MaxDescriptionLen)

	issue, err := s.Repo.CreateIssue(ctx, s.DB, order.ID, customerID, issueType, description, sentiment)
	if err != nil {
		// The complaint must not be lost in a void: without a record to
		// resolve against, hand straight to a human.
		log.Error().Err(err).Str("order", order.OrderNumber).Msg("issue create failed, forcing hand-off")
		return &ComplaintResult{
			Escalated: true,
			IssueType: issueType,
			Message:   "I'm very sorry about this. I'm connecting you with a team member who will sort it out right away.",
		}, nil
	}

	res := &ComplaintResult{IssueType: issueType, Escalated: decision.Escalate, Compensation: decision.Compensation}
	if decision.Escalate {
		if err := s.Repo.EscalateIssue(ctx, s.DB, issue.ID, decision.Resolution); err != nil {
			log.Error().Err(err).Str("issue", issue.ID).Msg("issue escalate failed")
		}
		res.Message = fmt.Sprintf("I'm sorry about your order %s. I've escalated this to our team and someone will contact you shortly.", order.OrderNumber)
	} else {
		var comp *float64
		if decision.Compensation > 0 {
			comp = &decision.Compensation
		}
		if err := s.Repo.ResolveIssue(ctx, s.DB, issue.ID, decision.Resolution, comp); err != nil {
			log.Error().Err(err).Str("issue", issue.ID).Msg("issue resolve failed")
		}
		res.Message = s.resolutionMessage(issueType, order.OrderNumber, decision.Compensation)
	}

	s.Audit.Record(ctx, domain.AuditLog{
		CustomerID: customerID,
		Action:     "issue_" + statusWord(decision.Escalate),
		Severity:   severityOf(decision.Escalate),
		Details: auditDetails(map[string]any{
			"order_number": order.OrderNumber,
			"issue_type":   string(issueType),
			"compensation": decision.Compensation,
		}),
	})
	return res, nil
}

func (s *IssueService) locateOrder(ctx context.Context, customerID, orderNumber string) (*domain.Order, error) {
	if strings.TrimSpace(orderNumber) != "" {
		return s.Orders.FindOrderByNumber(ctx, s.DB, customerID, strings.TrimSpace(orderNumber))
	}
	return s.Orders.LatestOrderForCustomer(ctx, s.DB, customerID)
}

// lateDelay is how far past the promised ready time the order is now.
func (s *IssueService) lateDelay(o *domain.Order) time.Duration {
	if o.EstimatedReady == nil {
		return 0
	}
	if d := s.Now().UTC().Sub(*o.EstimatedReady); d > 0 {
		return d
	}
	return 0
}

func (s *IssueService) resolutionMessage(t domain.IssueType, orderNumber string, comp float64) string {
	switch {
	case comp > 0 && t == domain.IssueLateDelivery:
		return fmt.Sprintf("I'm sorry your order %s is running late. I've added a $%.2f credit to your account.", orderNumber, comp)
	case comp > 0:
		return fmt.Sprintf("I'm so sorry about order %s. I've issued a $%.2f refund; it should appear within 3-5 business days.", orderNumber, comp)
	default:
		return fmt.Sprintf("I'm sorry about order %s. It's still within our promised window, but we appreciate your patience.", orderNumber)
	}
}

func statusWord(escalated bool) string {
	if escalated {
		return "escalated"
	}
	return "resolved"
}

func severityOf(escalated bool) string {
	if escalated {
		return "warn"
	}
	return "info"
}

// issueCues maps description vocabulary to issue types, checked in order so
// the more specific complaints win over the generic refund bucket.
var issueCues = []struct {
	t    domain.IssueType
	cues []string
}{
	{domain.IssueMissingItem, []string{"missing", "didn't get", "didnt get", "forgot", "not in the bag", "ناقص", "نسيتوا"}},
	{domain.IssueWrongOrder, []string{"wrong", "not what i ordered", "someone else", "غلط", "خطأ"}},
	{domain.IssueLateDelivery, []string{"late", "taking too long", "still waiting", "delayed", "متأخر", "تأخر"}},
	{domain.IssueQuality, []string{"cold", "stale", "soggy", "burnt", "raw", "quality", "bad", "disgusting", "بارد", "سيء"}},
	{domain.IssueRefundRequest, []string{"refund", "money back", "استرجاع", "فلوسي"}},
}

// ClassifyIssueType maps a complaint description to an issue type, defaulting
// to refund_request (which the policy table escalates).
func ClassifyIssueType(description string) domain.IssueType {
	d := strings.ToLower(description)
	for _, rule := range issueCues {
		for _, cue := range rule.cues {
			if strings.Contains(d, cue) {
				return rule.t
			}
		}
	}
	return domain.IssueRefundRequest
}
