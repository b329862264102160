package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// CreateOrder inserts an order together with its line items. Callers run it
// inside db.Transaction when the write must be atomic with other effects.
func CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return db.WithContext(ctx).Create(o).Error
}

// GetOrder fetches an order by ID with its lines preloaded, or ErrNotFound.
func GetOrder(ctx context.Context, db *gorm.DB, id string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// FindOrderByNumber locates a customer's order by order-number prefix, so
// "BRG-20260825" or a full number both work. The newest match wins.
func FindOrderByNumber(ctx context.Context, db *gorm.DB, customerID, numberPrefix string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ? AND order_number LIKE ?", customerID, numberPrefix+"%").
		Order("created_at desc").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// LatestOrderForCustomer returns the customer's most recent order, or
// ErrNotFound. Used when a tracking or complaint turn names no order number.
func LatestOrderForCustomer(ctx context.Context, db *gorm.DB, customerID string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus transitions an order, returning ErrNotFound when the row
// does not exist.
func UpdateOrderStatus(ctx context.Context, db *gorm.DB, id string, status domain.OrderStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PromoteReadyOrders flips pending orders whose estimated-ready time has
// passed to ready. Returns the number of promoted rows. Driven by the
// background janitor.
func PromoteReadyOrders(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("status = ? AND estimated_ready IS NOT NULL AND estimated_ready <= ?", domain.OrderPending, now).
		Update("status", domain.OrderReady)
	return res.RowsAffected, res.Error
}
