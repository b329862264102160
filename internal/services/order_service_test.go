package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ksultani/go-dinebot-backend/internal/config"
	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
	"github.com/ksultani/go-dinebot-backend/internal/repo"
)

func newServicesDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// Shims proxying the service repo contracts onto the repo package, the same
// wiring the router uses.

type gormOrderRepo struct{}

func (gormOrderRepo) CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return repo.CreateOrder(ctx, db, o)
}
func (gormOrderRepo) GetMenuItem(ctx context.Context, db *gorm.DB, id string) (*domain.MenuItem, error) {
	return repo.GetMenuItem(ctx, db, id)
}
func (gormOrderRepo) FindOrderByNumber(ctx context.Context, db *gorm.DB, customerID, prefix string) (*domain.Order, error) {
	return repo.FindOrderByNumber(ctx, db, customerID, prefix)
}
func (gormOrderRepo) LatestOrderForCustomer(ctx context.Context, db *gorm.DB, customerID string) (*domain.Order, error) {
	return repo.LatestOrderForCustomer(ctx, db, customerID)
}

type gormMenuRepo struct{}

func (gormMenuRepo) ListAvailableMenuItems(ctx context.Context, db *gorm.DB) ([]domain.MenuItem, error) {
	return repo.ListAvailableMenuItems(ctx, db)
}
func (gormMenuRepo) GetMenuItem(ctx context.Context, db *gorm.DB, id string) (*domain.MenuItem, error) {
	return repo.GetMenuItem(ctx, db, id)
}

type captureAudit struct{ entries []domain.AuditLog }

func (c *captureAudit) Record(_ context.Context, e domain.AuditLog) {
	c.entries = append(c.entries, e)
}

type staticMenuRepo struct{ items []domain.MenuItem }

func (r staticMenuRepo) ListAvailableMenuItems(context.Context, *gorm.DB) ([]domain.MenuItem, error) {
	return r.items, nil
}
func (r staticMenuRepo) GetMenuItem(_ context.Context, _ *gorm.DB, id string) (*domain.MenuItem, error) {
	for i := range r.items {
		if r.items[i].ID == id {
			return &r.items[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func testOrderConfig() config.OrderConfig {
	return config.OrderConfig{
		TaxRate:         0.15,
		DeliveryFee:     0,
		MaxQuantity:     50,
		BrandPrefix:     "BRG",
		ReadyOffset:     15 * time.Minute,
		FulfillmentType: "drive-thru",
		RemoveCues:      []string{"remove", "delete", "احذف"},
		AddCues:         []string{"add", "want", "أضف", "اضف"},
	}
}

func testConfidence() config.ConfidenceConfig {
	return config.ConfidenceConfig{AutoAccept: 0.85, Suggest: 0.60, Escalation: 0.60, PartialHint: 0.30}
}

func newTestOrderService(menuItems []domain.MenuItem) *OrderService {
	menu := NewMenuService(nil, staticMenuRepo{items: menuItems}, time.Minute, nil)
	return NewOrderService(nil, gormOrderRepo{}, menu, &Resolver{AutoAccept: 0.85},
		testOrderConfig(), testConfidence(), nil)
}

func suggestionMenu() []domain.MenuItem {
	m := testMenu()
	return append(m, domain.MenuItem{
		ID: "m7", Name: "Spicy Grilled Chicken Ranch Wrap Supreme Deluxe Meal",
		Category: "Burgers", Price: 13.49, IsAvailable: true,
	})
}

func TestAddItems_ConfidenceGates(t *testing.T) {
	svc := newTestOrderService(suggestionMenu())
	draft := domain.EmptyDraft()

	res, err := svc.AddItems(context.Background(), draft, []nlu.ItemMention{
		{Name: "Cheeseburger", Quantity: 2},
		{Name: "spicy grilled ranch wrap supreme deluxe meal", Quantity: 1},
		{Name: "xyzzy plugh", Quantity: 1},
	})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if len(res.Added) != 1 || res.Added[0].Name != "Cheeseburger" || res.Added[0].Quantity != 2 {
		t.Fatalf("added = %+v", res.Added)
	}
	if len(res.Suggestions) != 1 || res.Suggestions[0].Item.ID != "m7" {
		t.Fatalf("suggestions = %+v", res.Suggestions)
	}
	if got := res.Suggestions[0].Confidence; got < 0.60 || got >= 0.85 {
		t.Fatalf("suggestion confidence %v outside the suggest band", got)
	}
	if len(res.Rejections) != 1 || len(res.Rejections[0].Categories) == 0 || len(res.Rejections[0].Categories) > 2 {
		t.Fatalf("rejections = %+v", res.Rejections)
	}

	if draft.Subtotal != 19.98 || draft.Total != domain.Round2(19.98*1.15) {
		t.Fatalf("totals = %+v", draft)
	}
	if !strings.Contains(res.Message, "did you mean") || !strings.Contains(res.Message, "isn't on our menu") {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestAddItems_QuantityClamped(t *testing.T) {
	svc := newTestOrderService(testMenu())
	draft := domain.EmptyDraft()

	_, err := svc.AddItems(context.Background(), draft, []nlu.ItemMention{
		{Name: "Fries", Quantity: 500},
		{Name: "Cheeseburger", Quantity: -3},
	})
	if err != nil {
		t.Fatalf("AddItems: %v", err)
	}
	if draft.Items[0].Quantity != 50 {
		t.Errorf("oversized quantity = %d; want clamped to 50", draft.Items[0].Quantity)
	}
	if draft.Items[1].Quantity != 1 {
		t.Errorf("negative quantity = %d; want 1", draft.Items[1].Quantity)
	}
}

func TestRemoveItems_DecrementAndDelete(t *testing.T) {
	svc := newTestOrderService(testMenu())
	draft := &domain.OrderDraft{Items: []domain.DraftItem{
		{ItemID: "m2", Name: "Cheeseburger", Price: 9.99, Category: "Burgers", Quantity: 3},
		{ItemID: "m4", Name: "Fries", Price: 3.99, Category: "Sides", Quantity: 1},
	}}
	draft.Recompute(0.15, 0)

	res, err := svc.RemoveItems(context.Background(), draft, []nlu.ItemMention{
		{Name: "cheeseburger", Quantity: 1}, // decrement 3 → 2
		{Name: "the fries"},                 // whole line
		{Name: "pizza"},                     // not in the draft
	})
	if err != nil {
		t.Fatalf("RemoveItems: %v", err)
	}
	if len(draft.Items) != 1 || draft.Items[0].Quantity != 2 {
		t.Fatalf("draft after removal = %+v", draft.Items)
	}
	if len(res.NotFound) != 1 || res.NotFound[0] != "pizza" {
		t.Fatalf("not-found = %v", res.NotFound)
	}
	if draft.Subtotal != domain.Round2(9.99*2) {
		t.Fatalf("subtotal = %v", draft.Subtotal)
	}
}

func TestRemoveItems_DefaultQuantityRemovesOne(t *testing.T) {
	svc := newTestOrderService(testMenu())
	draft := &domain.OrderDraft{Items: []domain.DraftItem{
		{ItemID: "m4", Name: "Fries", Price: 3.99, Quantity: 2},
	}}
	draft.Recompute(0.15, 0)

	// No explicit quantity on the mention: one goes, not the whole line.
	if _, err := svc.RemoveItems(context.Background(), draft, []nlu.ItemMention{{Name: "fries"}}); err != nil {
		t.Fatalf("RemoveItems: %v", err)
	}
	if len(draft.Items) != 1 || draft.Items[0].Quantity != 1 {
		t.Fatalf("draft after removal = %+v", draft.Items)
	}

	// Removing the last one collapses to the canonical empty draft.
	res, err := svc.RemoveItems(context.Background(), draft, []nlu.ItemMention{{Name: "fries"}})
	if err != nil {
		t.Fatalf("RemoveItems: %v", err)
	}
	if !draft.IsEmpty() || draft.Total != 0 || draft.Tax != 0 {
		t.Fatalf("draft = %+v; want canonical empty", draft)
	}
	if !strings.Contains(res.Message, "empty") {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestSplitCompound(t *testing.T) {
	svc := newTestOrderService(testMenu())

	rm, add, ok := svc.SplitCompound("remove the fries and add a cola")
	if !ok {
		t.Fatal("compound not detected")
	}
	if !strings.Contains(rm, "fries") || !strings.HasPrefix(add, "add") {
		t.Fatalf("split = %q / %q", rm, add)
	}

	if _, _, ok := svc.SplitCompound("remove the fries"); ok {
		t.Fatal("plain removal misread as compound")
	}
	if _, _, ok := svc.SplitCompound("add a cola"); ok {
		t.Fatal("plain addition misread as compound")
	}
}

func seedMenuRows(t *testing.T, db *gorm.DB, items ...domain.MenuItem) {
	t.Helper()
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("seed menu: %v", err)
		}
	}
}

func TestSubmit_CreatesOrderAtomically(t *testing.T) {
	db := newServicesDB(t, &domain.MenuItem{}, &domain.Order{}, &domain.OrderItem{}, &domain.AuditLog{})
	seedMenuRows(t, db,
		domain.MenuItem{ID: "m1", Name: "Classic Burger", Price: 8.99, Category: "Burgers", IsAvailable: true, Brand: "Burger Hub"},
		domain.MenuItem{ID: "m4", Name: "Fries", Price: 3.99, Category: "Sides", IsAvailable: true, Brand: "Burger Hub"},
	)

	audit := &captureAudit{}
	menu := NewMenuService(db, gormMenuRepo{}, time.Minute, nil)
	svc := NewOrderService(db, gormOrderRepo{}, menu, &Resolver{AutoAccept: 0.85},
		testOrderConfig(), testConfidence(), audit)
	now := time.Date(2026, 8, 25, 18, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	draft := &domain.OrderDraft{Items: []domain.DraftItem{
		{ItemID: "m1", Name: "Classic Burger", Price: 8.99, Category: "Burgers", Quantity: 2},
		{ItemID: "m4", Name: "Fries", Price: 3.99, Category: "Sides", Quantity: 1},
	}}
	draft.Recompute(0.15, 0)

	order, err := svc.Submit(context.Background(), "cust-1", draft)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ok, _ := regexp.MatchString(`^BRG-20260825-\d{4}$`, order.OrderNumber); !ok {
		t.Errorf("order number = %q", order.OrderNumber)
	}
	if order.Status != domain.OrderPending || order.Total != draft.Total {
		t.Errorf("order = %+v", order)
	}
	if order.EstimatedReady == nil || !order.EstimatedReady.Equal(now.Add(15*time.Minute)) {
		t.Errorf("estimated ready = %v", order.EstimatedReady)
	}

	stored, err := repo.GetOrder(context.Background(), db, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(stored.Items) != 2 {
		t.Fatalf("stored lines = %d; want 2", len(stored.Items))
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != "order_created" {
		t.Fatalf("audit = %+v", audit.entries)
	}
}

func TestSubmit_UnavailableItemRollsBack(t *testing.T) {
	db := newServicesDB(t, &domain.MenuItem{}, &domain.Order{}, &domain.OrderItem{})
	seedMenuRows(t, db,
		domain.MenuItem{ID: "m1", Name: "Classic Burger", Price: 8.99, Category: "Burgers", IsAvailable: true, Brand: "Burger Hub"},
		domain.MenuItem{ID: "m9", Name: "Seasonal Shake", Price: 4.99, Category: "Beverages", IsAvailable: false, Brand: "Burger Hub"},
	)

	menu := NewMenuService(db, gormMenuRepo{}, time.Minute, nil)
	svc := NewOrderService(db, gormOrderRepo{}, menu, &Resolver{AutoAccept: 0.85},
		testOrderConfig(), testConfidence(), nil)

	draft := &domain.OrderDraft{Items: []domain.DraftItem{
		{ItemID: "m1", Name: "Classic Burger", Price: 8.99, Quantity: 1},
		{ItemID: "m9", Name: "Seasonal Shake", Price: 4.99, Quantity: 1},
	}}
	draft.Recompute(0.15, 0)
	before := draft.Clone()

	_, err := svc.Submit(context.Background(), "cust-1", draft)
	if !errors.Is(err, ErrItemUnavailable) {
		t.Fatalf("err = %v; want ErrItemUnavailable", err)
	}
	if !strings.Contains(err.Error(), "Seasonal Shake") {
		t.Errorf("error should name the item: %v", err)
	}

	var orders int64
	db.Model(&domain.Order{}).Count(&orders)
	var lines int64
	db.Model(&domain.OrderItem{}).Count(&lines)
	if orders != 0 || lines != 0 {
		t.Fatalf("rollback left %d orders / %d lines", orders, lines)
	}
	if len(draft.Items) != len(before.Items) || draft.Total != before.Total {
		t.Fatalf("draft mutated by failed submit: %+v", draft)
	}
}

func TestSubmit_EmptyDraft(t *testing.T) {
	svc := newTestOrderService(testMenu())
	if _, err := svc.Submit(context.Background(), "cust-1", domain.EmptyDraft()); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("err = %v; want ErrEmptyDraft", err)
	}
}

func TestTrack_NotFoundMapping(t *testing.T) {
	db := newServicesDB(t, &domain.Order{}, &domain.OrderItem{})
	menu := NewMenuService(db, gormMenuRepo{}, time.Minute, nil)
	svc := NewOrderService(db, gormOrderRepo{}, menu, &Resolver{AutoAccept: 0.85},
		testOrderConfig(), testConfidence(), nil)

	if _, err := svc.Track(context.Background(), "cust-1", ""); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v; want ErrOrderNotFound", err)
	}
}

func TestTrackingMessage_ETA(t *testing.T) {
	svc := newTestOrderService(testMenu())
	now := time.Date(2026, 8, 25, 18, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	ready := now.Add(10 * time.Minute)
	msg := svc.TrackingMessage(&domain.Order{
		OrderNumber: "BRG-20260825-0001", Status: domain.OrderPreparing, EstimatedReady: &ready,
	})
	if !strings.Contains(msg, "preparing") || !strings.Contains(msg, "minutes") {
		t.Fatalf("msg = %q", msg)
	}

	msg = svc.TrackingMessage(&domain.Order{
		OrderNumber: "BRG-20260825-0001", Status: domain.OrderReady, EstimatedReady: &ready,
	})
	if !strings.Contains(msg, "ready") {
		t.Fatalf("msg = %q", msg)
	}
}
