package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/repo"
)

// AuditSink records notable business events (orders placed, complaints
// resolved or escalated, human hand-offs). Recording is best-effort: a sink
// must never fail the conversation turn that produced the event.
type AuditSink interface {
	Record(ctx context.Context, e domain.AuditLog)
}

// DBAuditSink appends audit rows to the database. Errors are logged and
// swallowed; the write runs on a short detached deadline so a stuck database
// cannot hold a turn hostage.
type DBAuditSink struct {
	DB      *gorm.DB
	Timeout time.Duration
}

// NewDBAuditSink constructs a sink with a 2s write deadline.
func NewDBAuditSink(db *gorm.DB) *DBAuditSink {
	return &DBAuditSink{DB: db, Timeout: 2 * time.Second}
}

// Record implements AuditSink.
func (s *DBAuditSink) Record(ctx context.Context, e domain.AuditLog) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	defer cancel()
	if err := repo.AppendAudit(wctx, s.DB, &e); err != nil {
		log.Warn().Err(err).Str("action", e.Action).Msg("audit append failed")
	}
}

// NopAuditSink discards events. Used where auditing is not wired.
type NopAuditSink struct{}

// Record implements AuditSink.
func (NopAuditSink) Record(context.Context, domain.AuditLog) {}

// auditDetails marshals a details map, falling back to "{}" so malformed
// payloads never block the event itself.
func auditDetails(kv map[string]any) string {
	if len(kv) == 0 {
		return "{}"
	}
	b, err := json.Marshal(kv)
	if err != nil {
		return "{}"
	}
	return string(b)
}
