package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

func newOrder(customerID, number string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Status:          domain.OrderPending,
		Subtotal:        10,
		Tax:             1.5,
		Total:           11.5,
		FulfillmentType: "drive-thru",
		OrderNumber:     number,
		CreatedAt:       createdAt,
		Items: []domain.OrderItem{
			{ID: uuid.NewString(), MenuItemID: uuid.NewString(), Quantity: 1, UnitPrice: 10},
		},
	}
}

func TestCreateOrder_PersistsLines(t *testing.T) {
	db := newRepoDB(t, &domain.Order{}, &domain.OrderItem{})
	ctx := context.Background()

	o := newOrder("cust-1", "BRG-20260825-0001", time.Now().UTC())
	if err := CreateOrder(ctx, db, o); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	got, err := GetOrder(ctx, db, o.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].UnitPrice != 10 {
		t.Fatalf("lines not preloaded: %+v", got.Items)
	}
}

func TestFindOrderByNumber_PrefixNewestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.Order{}, &domain.OrderItem{})
	ctx := context.Background()
	now := time.Now().UTC()

	older := newOrder("cust-1", "BRG-20260824-1111", now.Add(-24*time.Hour))
	newer := newOrder("cust-1", "BRG-20260825-2222", now)
	for _, o := range []*domain.Order{older, newer} {
		if err := CreateOrder(ctx, db, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	got, err := FindOrderByNumber(ctx, db, "cust-1", "BRG-")
	if err != nil {
		t.Fatalf("FindOrderByNumber: %v", err)
	}
	if got.OrderNumber != "BRG-20260825-2222" {
		t.Errorf("prefix lookup returned %s; want the newest", got.OrderNumber)
	}

	if _, err := FindOrderByNumber(ctx, db, "cust-2", "BRG-"); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign customer lookup: err = %v; want ErrNotFound", err)
	}
}

func TestLatestOrderForCustomer(t *testing.T) {
	db := newRepoDB(t, &domain.Order{}, &domain.OrderItem{})
	ctx := context.Background()
	now := time.Now().UTC()

	_ = CreateOrder(ctx, db, newOrder("cust-1", "BRG-20260824-0001", now.Add(-time.Hour)))
	latest := newOrder("cust-1", "BRG-20260825-0002", now)
	_ = CreateOrder(ctx, db, latest)

	got, err := LatestOrderForCustomer(ctx, db, "cust-1")
	if err != nil {
		t.Fatalf("LatestOrderForCustomer: %v", err)
	}
	if got.ID != latest.ID {
		t.Errorf("got %s; want latest %s", got.OrderNumber, latest.OrderNumber)
	}
}

func TestPromoteReadyOrders(t *testing.T) {
	db := newRepoDB(t, &domain.Order{}, &domain.OrderItem{})
	ctx := context.Background()
	now := time.Now().UTC()

	due := newOrder("cust-1", "BRG-20260825-0001", now.Add(-time.Hour))
	past := now.Add(-30 * time.Minute)
	due.EstimatedReady = &past

	notYet := newOrder("cust-1", "BRG-20260825-0002", now)
	future := now.Add(15 * time.Minute)
	notYet.EstimatedReady = &future

	noEstimate := newOrder("cust-1", "BRG-20260825-0003", now)

	for _, o := range []*domain.Order{due, notYet, noEstimate} {
		if err := CreateOrder(ctx, db, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
	}

	n, err := PromoteReadyOrders(ctx, db, now)
	if err != nil {
		t.Fatalf("PromoteReadyOrders: %v", err)
	}
	if n != 1 {
		t.Fatalf("promoted %d orders; want 1", n)
	}
	got, _ := GetOrder(ctx, db, due.ID)
	if got.Status != domain.OrderReady {
		t.Errorf("due order status = %s; want ready", got.Status)
	}
	got, _ = GetOrder(ctx, db, notYet.ID)
	if got.Status != domain.OrderPending {
		t.Errorf("not-yet-due order promoted early: %s", got.Status)
	}
}

func TestUpdateOrderStatus_MissingRow(t *testing.T) {
	db := newRepoDB(t, &domain.Order{}, &domain.OrderItem{})
	err := UpdateOrderStatus(context.Background(), db, "nope", domain.OrderReady)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestSeedDefaultMenu_IdempotentAndOrdered(t *testing.T) {
	db := newRepoDB(t, &domain.MenuItem{})
	ctx := context.Background()

	n, err := SeedDefaultMenu(ctx, db)
	if err != nil {
		t.Fatalf("SeedDefaultMenu: %v", err)
	}
	if n == 0 {
		t.Fatal("fresh database should be seeded")
	}

	again, err := SeedDefaultMenu(ctx, db)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if again != 0 {
		t.Fatalf("second seed inserted %d rows; want 0", again)
	}

	items, err := ListAvailableMenuItems(ctx, db)
	if err != nil {
		t.Fatalf("ListAvailableMenuItems: %v", err)
	}
	if int64(len(items)) != n {
		t.Fatalf("listed %d items; seeded %d", len(items), n)
	}
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if prev.Category > cur.Category || (prev.Category == cur.Category && prev.Name > cur.Name) {
			t.Fatalf("menu not ordered at %d: %s/%s before %s/%s", i, prev.Category, prev.Name, cur.Category, cur.Name)
		}
	}
}
