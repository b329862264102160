package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// AppendAudit inserts an audit row, filling ID and timestamp when unset.
// The audit trail is append-only; there are no update or delete helpers.
func AppendAudit(ctx context.Context, db *gorm.DB, e *domain.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.PerformedBy == "" {
		e.PerformedBy = "system"
	}
	if e.Severity == "" {
		e.Severity = "info"
	}
	if e.Details == "" {
		e.Details = "{}"
	}
	return db.WithContext(ctx).Create(e).Error
}

// ListAuditForCustomer returns a customer's audit trail, newest first,
// capped at limit when limit > 0.
func ListAuditForCustomer(ctx context.Context, db *gorm.DB, customerID string, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	q := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
