// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Session
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only CRUD persistence and query composition.
// Session lifecycle rules (TTL renewal, history pruning, supersession) live
// in services.SessionService.
//
// Error semantics:
//   - When a session is not found, functions return gorm.ErrRecordNotFound
//     (exported here as ErrNotFound).
//   - On other DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// CreateSession inserts a fresh session for customerID with the given TTL.
// History starts as an empty JSON array and state as greeting.
func CreateSession(ctx context.Context, db *gorm.DB, customerID, channel string, ttl time.Duration) (*domain.Session, error) {
	now := time.Now().UTC()
	s := &domain.Session{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Channel:    channel,
		History:    "[]",
		State:      domain.StateGreeting,
		CreatedAt:  now,
		UpdatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession fetches a session by ID regardless of expiry; callers decide
// what an expired row means.
func GetSession(ctx context.Context, db *gorm.DB, id string) (*domain.Session, error) {
	var s domain.Session
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindActiveSession returns the most recently touched unexpired session for
// customerID, or ErrNotFound.
func FindActiveSession(ctx context.Context, db *gorm.DB, customerID string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := db.WithContext(ctx).
		Where("customer_id = ? AND expires_at > ?", customerID, now).
		Order("updated_at desc").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSession persists the full session row (history, draft, state,
// counters, expiry).
func SaveSession(ctx context.Context, db *gorm.DB, s *domain.Session) error {
	return db.WithContext(ctx).Save(s).Error
}

// ExpireActiveSessions force-expires every live session of customerID,
// returning how many rows were touched. Used when a new conversation
// supersedes an old one.
func ExpireActiveSessions(ctx context.Context, db *gorm.DB, customerID string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("customer_id = ? AND expires_at > ?", customerID, now).
		Updates(map[string]any{"expires_at": now, "draft": nil})
	return res.RowsAffected, res.Error
}

// DeleteExpiredSessions removes sessions dead for longer than grace.
// Called by the background janitor; conversation reads never depend on it.
func DeleteExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time, grace time.Duration) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at < ?", now.Add(-grace)).
		Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
