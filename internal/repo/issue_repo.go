package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// CreateIssue inserts a new open complaint record tied to an order.
func CreateIssue(ctx context.Context, db *gorm.DB, orderID, customerID string, issueType domain.IssueType, description string, sentiment domain.Sentiment) (*domain.Issue, error) {
	i := &domain.Issue{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		CustomerID:  customerID,
		IssueType:   issueType,
		Description: description,
		Status:      domain.IssueOpen,
		Sentiment:   sentiment,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(i).Error; err != nil {
		return nil, err
	}
	return i, nil
}

// ResolveIssue marks an issue resolved with its resolution text and optional
// compensation amount. Returns ErrNotFound when the issue does not exist.
func ResolveIssue(ctx context.Context, db *gorm.DB, id, resolution string, compensation *float64) error {
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Issue{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":              domain.IssueResolved,
			"resolution":          resolution,
			"compensation_amount": compensation,
			"resolved_at":         now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// EscalateIssue hands an issue to a human queue. Returns ErrNotFound when
// the issue does not exist.
func EscalateIssue(ctx context.Context, db *gorm.DB, id, resolution string) error {
	res := db.WithContext(ctx).
		Model(&domain.Issue{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.IssueEscalated,
			"resolution": resolution,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListIssuesForCustomer returns a customer's complaints, newest first.
func ListIssuesForCustomer(ctx context.Context, db *gorm.DB, customerID string) ([]domain.Issue, error) {
	var out []domain.Issue
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}
