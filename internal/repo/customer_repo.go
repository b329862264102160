package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// GetCustomerByPhone fetches a customer by phone number, or ErrNotFound.
func GetCustomerByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Customer, error) {
	var c domain.Customer
	if err := db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCustomer fetches a customer by ID, or ErrNotFound.
func GetCustomer(ctx context.Context, db *gorm.DB, id string) (*domain.Customer, error) {
	var c domain.Customer
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCustomer inserts a new customer row.
func CreateCustomer(ctx context.Context, db *gorm.DB, name, phone, email string) (*domain.Customer, error) {
	c := &domain.Customer{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     phone,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetOrCreateCustomerByPhone provisions a guest customer on first contact.
// A concurrent insert losing the unique-index race falls back to a re-read.
func GetOrCreateCustomerByPhone(ctx context.Context, db *gorm.DB, phone string) (*domain.Customer, error) {
	c, err := GetCustomerByPhone(ctx, db, phone)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c, err = CreateCustomer(ctx, db, "Guest", phone, "")
	if err == nil {
		return c, nil
	}
	if existing, rerr := GetCustomerByPhone(ctx, db, phone); rerr == nil {
		return existing, nil
	}
	return nil, err
}
