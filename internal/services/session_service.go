// Package services – SessionService
//
// This file implements the conversation session lifecycle: auto-provisioning
// of customers on first contact, resuming or superseding sessions, the
// 2-hour expiry check at read time, capped history with oldest-turn
// retention, and (de)serialization of the order draft stored on the session
// row.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/config"
	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
)

// SessionRepo defines the repository contract required by SessionService.
type SessionRepo interface {
	CreateSession(ctx context.Context, db *gorm.DB, customerID, channel string, ttl time.Duration) (*domain.Session, error)
	GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error)
	FindActiveSession(ctx context.Context, db *gorm.DB, customerID string, now time.Time) (*domain.Session, error)
	SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error
	ExpireActiveSessions(ctx context.Context, db *gorm.DB, customerID string, now time.Time) (int64, error)
}

// CustomerRepo defines the customer lookup contract used when resolving the
// conversation owner.
type CustomerRepo interface {
	GetOrCreateCustomerByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Customer, error)
}

// SessionService owns conversation sessions. Expiry is enforced at read
// time: a session past its TTL is treated as absent and a fresh one is
// created, superseding (and force-expiring) any stale rows.
type SessionService struct {
	DB        *gorm.DB
	Repo      SessionRepo
	Customers CustomerRepo

	// TTL is the sliding validity window, renewed on every save.
	TTL time.Duration
	// HistoryLimit caps stored turns; pruning keeps the first turn and the
	// most recent HistoryLimit-1.
	HistoryLimit int
	// MaxMessageLen truncates stored turn content by rune count.
	MaxMessageLen int
	// RecentTurns is the history window surfaced to the intent classifier.
	RecentTurns int

	// Now is a clock seam for tests.
	Now func() time.Time
}

// NewSessionService constructs a SessionService from configuration.
func NewSessionService(db *gorm.DB, r SessionRepo, c CustomerRepo, cfg config.SessionConfig) *SessionService {
	return &SessionService{
		DB:            db,
		Repo:          r,
		Customers:     c,
		TTL:           cfg.TTL,
		HistoryLimit:  cfg.HistoryLimit,
		MaxMessageLen: cfg.MaxMessageLen,
		RecentTurns:   cfg.RecentTurns,
		Now:           time.Now,
	}
}

// Resume returns the session a turn should run in, provisioning the customer
// on first contact. Resolution order:
//
//  1. An explicitly referenced session, when it exists, belongs to the
//     caller, and has not expired.
//  2. The customer's active session. Arriving without the session ID starts
//     a fresh exchange, so the superseded draft is discarded.
//  3. A brand-new session; any stale rows are force-expired first so a
//     superseded conversation can never resurrect its draft.
//
// The returned bool reports whether the session is new.
func (s *SessionService) Resume(ctx context.Context, phone, sessionID string) (*domain.Session, *domain.Customer, bool, error) {
	now := s.Now().UTC()

	cust, err := s.Customers.GetOrCreateCustomerByPhone(ctx, s.DB, phone)
	if err != nil {
		return nil, nil, false, err
	}

	if sessionID != "" {
		sess, err := s.Repo.GetSession(ctx, s.DB, sessionID)
		switch {
		case err == nil && sess.CustomerID == cust.ID && !sess.Expired(now):
			return sess, cust, false, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil, false, err
		}
		// Missing, foreign, or expired: fall through to the active lookup.
	}

	sess, err := s.Repo.FindActiveSession(ctx, s.DB, cust.ID, now)
	if err == nil {
		sess.Draft = nil
		return sess, cust, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, err
	}

	if _, err := s.Repo.ExpireActiveSessions(ctx, s.DB, cust.ID, now); err != nil {
		return nil, nil, false, err
	}
	sess, err = s.Repo.CreateSession(ctx, s.DB, cust.ID, "chat", s.TTL)
	if err != nil {
		return nil, nil, false, err
	}
	return sess, cust, true, nil
}

// AppendTurn records one message on the in-memory session, truncating and
// pruning per the history policy. Call Save to persist.
func (s *SessionService) AppendTurn(sess *domain.Session, role, content string) {
	turns := s.History(sess)
	turns = append(turns, nlu.Turn{
		Role:    role,
		Content: truncateRunes(content, s.MaxMessageLen),
		At:      s.Now().UTC(),
	})
	if limit := s.HistoryLimit; limit >= 2 && len(turns) > limit {
		// Keep the opening turn for context plus the most recent limit-1.
		pruned := make([]nlu.Turn, 0, limit)
		pruned = append(pruned, turns[0])
		pruned = append(pruned, turns[len(turns)-(limit-1):]...)
		turns = pruned
	}
	if b, err := json.Marshal(turns); err == nil {
		sess.History = string(b)
	}
}

// History decodes the stored turns; a corrupt column reads as empty rather
// than poisoning the conversation.
func (s *SessionService) History(sess *domain.Session) []nlu.Turn {
	var turns []nlu.Turn
	if sess.History != "" {
		_ = json.Unmarshal([]byte(sess.History), &turns)
	}
	return turns
}

// RecentHistory returns the classifier's context window: the last RecentTurns
// turns.
func (s *SessionService) RecentHistory(sess *domain.Session) []nlu.Turn {
	turns := s.History(sess)
	if n := s.RecentTurns; n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

// Draft decodes the session's order draft, returning the canonical empty
// draft when none is stored.
func (s *SessionService) Draft(sess *domain.Session) *domain.OrderDraft {
	if sess.Draft == nil || *sess.Draft == "" {
		return domain.EmptyDraft()
	}
	var d domain.OrderDraft
	if err := json.Unmarshal([]byte(*sess.Draft), &d); err != nil {
		return domain.EmptyDraft()
	}
	if d.Items == nil {
		d.Items = []domain.DraftItem{}
	}
	return &d
}

// SetDraft stores the draft on the session; a nil or empty draft clears the
// column entirely.
func (s *SessionService) SetDraft(sess *domain.Session, d *domain.OrderDraft) {
	if d.IsEmpty() {
		sess.Draft = nil
		return
	}
	if b, err := json.Marshal(d); err == nil {
		str := string(b)
		sess.Draft = &str
	}
}

// Save persists the session and slides its expiry window forward.
func (s *SessionService) Save(ctx context.Context, sess *domain.Session) error {
	now := s.Now().UTC()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.TTL)
	return s.Repo.SaveSession(ctx, s.DB, sess)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
