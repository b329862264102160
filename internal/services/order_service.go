// Package services – OrderService
//
// This file implements cart mutation and order submission: mention
// resolution with confidence gating, quantity clamping, draft arithmetic,
// compound remove-and-add turns, and the transactional conversion of a
// draft into a durable order with an availability re-check inside the
// transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksultani/go-dinebot-backend/internal/config"
	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
)

// OrderRepo defines the repository contract required by OrderService.
type OrderRepo interface {
	CreateOrder(ctx context.Context, db *gorm.DB, o *domain.Order) error
	GetMenuItem(ctx context.Context, db *gorm.DB, id string) (*domain.MenuItem, error)
	FindOrderByNumber(ctx context.Context, db *gorm.DB, customerID, numberPrefix string) (*domain.Order, error)
	LatestOrderForCustomer(ctx context.Context, db *gorm.DB, customerID string) (*domain.Order, error)
}

// Suggestion is a mid-confidence resolution offered back as "did you mean".
type Suggestion struct {
	Mention    string
	Item       domain.MenuItem
	Quantity   int
	Confidence float64
}

// Rejection is a mention nothing on the menu plausibly matched.
type Rejection struct {
	Mention    string
	Categories []string
}

// AddResult reports what a batch of mentions did to the draft.
type AddResult struct {
	Added       []domain.DraftItem
	Suggestions []Suggestion
	Rejections  []Rejection
	Draft       *domain.OrderDraft
	Message     string
}

// RemoveResult reports a removal pass over the draft.
type RemoveResult struct {
	Removed  []string
	NotFound []string
	Draft    *domain.OrderDraft
	Message  string
}

// OrderService mutates order drafts and converts them into durable orders.
type OrderService struct {
	DB       *gorm.DB
	Repo     OrderRepo
	Menu     *MenuService
	Resolver *Resolver

	Cfg        config.OrderConfig
	Confidence config.ConfidenceConfig
	Audit      AuditSink

	// Now is a clock seam for tests.
	Now func() time.Time
}

// NewOrderService constructs an OrderService.
func NewOrderService(db *gorm.DB, r OrderRepo, menu *MenuService, resolver *Resolver, cfg config.OrderConfig, conf config.ConfidenceConfig, audit AuditSink) *OrderService {
	if audit == nil {
		audit = NopAuditSink{}
	}
	return &OrderService{
		DB: db, Repo: r, Menu: menu, Resolver: resolver,
		Cfg: cfg, Confidence: conf, Audit: audit,
		Now: time.Now,
	}
}

// clampQuantity bounds a requested quantity to [1, MaxQuantity].
func (s *OrderService) clampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	if max := s.Cfg.MaxQuantity; max > 0 && q > max {
		return max
	}
	return q
}

// AddItems resolves each mention against the catalog and mutates the draft
// in place under the confidence gates: auto-add at or above AutoAccept,
// "did you mean" in [Suggest, AutoAccept), rejection with category hints
// below Suggest. Totals are recomputed once at the end.
func (s *OrderService) AddItems(ctx context.Context, draft *domain.OrderDraft, mentions []nlu.ItemMention) (*AddResult, error) {
	menu, err := s.Menu.Items(ctx)
	if err != nil {
		return nil, ErrNoMenu
	}

	res := &AddResult{Draft: draft}
	for _, m := range mentions {
		qty := s.clampQuantity(m.Quantity)
		r := s.Resolver.Resolve(ctx, m.Name, menu)
		switch {
		case r.Item != nil && r.Confidence >= s.Confidence.AutoAccept:
			line := domain.DraftItem{
				ItemID:     r.Item.ID,
				Name:       r.Item.Name,
				ArabicName: r.Item.ArabicName,
				Price:      r.Item.Price,
				Category:   r.Item.Category,
				Quantity:   qty,
			}
			draft.Items = append(draft.Items, line)
			res.Added = append(res.Added, line)
		case r.Item != nil && r.Confidence >= s.Confidence.Suggest:
			res.Suggestions = append(res.Suggestions, Suggestion{
				Mention: m.Name, Item: *r.Item, Quantity: qty, Confidence: r.Confidence,
			})
		default:
			res.Rejections = append(res.Rejections, Rejection{
				Mention:    m.Name,
				Categories: SuggestCategories(m.Name, menu, 2),
			})
		}
	}
	draft.Recompute(s.Cfg.TaxRate, s.Cfg.DeliveryFee)
	res.Message = s.addMessage(res)
	return res, nil
}

func (s *OrderService) addMessage(res *AddResult) string {
	var lines []string
	for _, a := range res.Added {
		lines = append(lines, fmt.Sprintf("Added %d× %s ($%.2f each).", a.Quantity, a.Name, a.Price))
	}
	for _, sg := range res.Suggestions {
		lines = append(lines, fmt.Sprintf("I couldn't find %q, did you mean %s ($%.2f)?", sg.Mention, sg.Item.Name, sg.Item.Price))
	}
	for _, rj := range res.Rejections {
		if len(rj.Categories) > 0 {
			lines = append(lines, fmt.Sprintf("Sorry, %q isn't on our menu. You could browse our %s.", rj.Mention, strings.Join(rj.Categories, " or ")))
		} else {
			lines = append(lines, fmt.Sprintf("Sorry, %q isn't on our menu.", rj.Mention))
		}
	}
	if len(res.Added) > 0 {
		lines = append(lines, fmt.Sprintf("Your total is $%.2f.", res.Draft.Total))
	}
	return strings.Join(lines, " ")
}

// RemoveItems resolves mentions against the draft lines themselves and
// removes or decrements them. A mention without an explicit quantity removes
// one; removing at or beyond the line quantity deletes the whole line.
func (s *OrderService) RemoveItems(_ context.Context, draft *domain.OrderDraft, mentions []nlu.ItemMention) (*RemoveResult, error) {
	res := &RemoveResult{Draft: draft}
	for _, m := range mentions {
		idx := matchDraftLine(draft, m.Name)
		if idx < 0 {
			res.NotFound = append(res.NotFound, m.Name)
			continue
		}
		line := &draft.Items[idx]
		qty := m.Quantity
		if qty <= 0 {
			qty = 1
		}
		if qty < line.Quantity {
			line.Quantity -= qty
			res.Removed = append(res.Removed, fmt.Sprintf("%d× %s", qty, line.Name))
		} else {
			res.Removed = append(res.Removed, line.Name)
			draft.Items = append(draft.Items[:idx], draft.Items[idx+1:]...)
		}
	}
	draft.Recompute(s.Cfg.TaxRate, s.Cfg.DeliveryFee)

	var lines []string
	if len(res.Removed) > 0 {
		lines = append(lines, fmt.Sprintf("Removed %s from your order.", strings.Join(res.Removed, ", ")))
	}
	for _, nf := range res.NotFound {
		lines = append(lines, fmt.Sprintf("%q isn't in your order.", nf))
	}
	if draft.IsEmpty() {
		lines = append(lines, "Your order is now empty.")
	} else if len(res.Removed) > 0 {
		lines = append(lines, fmt.Sprintf("Your total is $%.2f.", draft.Total))
	}
	res.Message = strings.Join(lines, " ")
	return res, nil
}

// matchDraftLine finds the draft line a removal mention refers to, by
// normalized equality first, then substring either way.
func matchDraftLine(draft *domain.OrderDraft, mention string) int {
	q := normalizeText(mention)
	if q == "" {
		return -1
	}
	for i, line := range draft.Items {
		if normalizeText(line.Name) == q || (line.ArabicName != "" && normalizeText(line.ArabicName) == q) {
			return i
		}
	}
	for i, line := range draft.Items {
		name := normalizeText(line.Name)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return i
		}
		if line.ArabicName != "" {
			ar := normalizeText(line.ArabicName)
			if strings.Contains(ar, q) || strings.Contains(q, ar) {
				return i
			}
		}
	}
	return -1
}

// SplitCompound detects a removal phrase followed by an addition phrase in
// one turn ("remove the fries and add a coke") using the configured cue
// lists. It returns the two halves and whether the split applies.
func (s *OrderService) SplitCompound(message string) (removePart, addPart string, ok bool) {
	lower := strings.ToLower(message)
	removeAt := earliestCue(lower, s.Cfg.RemoveCues)
	if removeAt < 0 {
		return "", "", false
	}
	addAt := -1
	for _, cue := range s.Cfg.AddCues {
		if i := strings.Index(lower[removeAt+1:], strings.ToLower(cue)); i >= 0 {
			pos := removeAt + 1 + i
			if addAt < 0 || pos < addAt {
				addAt = pos
			}
		}
	}
	if addAt <= removeAt {
		return "", "", false
	}
	return strings.TrimSpace(message[removeAt:addAt]), strings.TrimSpace(message[addAt:]), true
}

// HasAddCue reports whether the message contains one of the configured
// addition cues.
func (s *OrderService) HasAddCue(message string) bool {
	return earliestCue(strings.ToLower(message), s.Cfg.AddCues) >= 0
}

func earliestCue(lower string, cues []string) int {
	best := -1
	for _, cue := range cues {
		if i := strings.Index(lower, strings.ToLower(cue)); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}

// Summary renders the draft for a query_order turn or a confirmation prompt.
func Summary(draft *domain.OrderDraft) string {
	if draft.IsEmpty() {
		return "Your order is empty."
	}
	var b strings.Builder
	b.WriteString("Your order:\n")
	for _, line := range draft.Items {
		fmt.Fprintf(&b, "  • %d× %s – $%.2f\n", line.Quantity, line.Name, domain.Round2(line.Price*float64(line.Quantity)))
	}
	fmt.Fprintf(&b, "Subtotal $%.2f, tax $%.2f", draft.Subtotal, draft.Tax)
	if draft.DeliveryFee > 0 {
		fmt.Fprintf(&b, ", delivery $%.2f", draft.DeliveryFee)
	}
	fmt.Fprintf(&b, "; total $%.2f.", draft.Total)
	return b.String()
}

// Submit converts the draft into a durable order inside one transaction.
// Every line is re-checked for availability with the transaction handle; any
// failure rolls the whole order back and the draft survives untouched on the
// session. On success the caller clears the draft.
func (s *OrderService) Submit(ctx context.Context, customerID string, draft *domain.OrderDraft) (*domain.Order, error) {
	if draft.IsEmpty() {
		return nil, ErrEmptyDraft
	}

	now := s.Now().UTC()
	ready := now.Add(s.Cfg.ReadyOffset)
	order := &domain.Order{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		Status:          domain.OrderPending,
		Subtotal:        draft.Subtotal,
		Tax:             draft.Tax,
		DeliveryFee:     draft.DeliveryFee,
		Total:           draft.Total,
		FulfillmentType: s.Cfg.FulfillmentType,
		OrderNumber:     s.newOrderNumber(now),
		EstimatedReady:  &ready,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, line := range draft.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			MenuItemID: line.ItemID,
			Quantity:   line.Quantity,
			UnitPrice:  line.Price,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range draft.Items {
			item, err := s.Repo.GetMenuItem(ctx, tx, line.ItemID)
			if err != nil || !item.IsAvailable {
				return fmt.Errorf("%w: %s", ErrItemUnavailable, line.Name)
			}
		}
		return s.Repo.CreateOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		CustomerID: customerID,
		Action:     "order_created",
		Details: auditDetails(map[string]any{
			"order_number": order.OrderNumber,
			"total":        order.Total,
			"items":        len(order.Items),
		}),
	})
	return order, nil
}

// newOrderNumber builds the human-facing identity: brand prefix, date, and
// a random 4-digit suffix.
func (s *OrderService) newOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%s-%04d", s.Cfg.BrandPrefix, now.Format("20060102"), rand.IntN(10000))
}

// Track locates an order for a tracking turn: by order-number prefix when
// one was given, otherwise the customer's most recent order.
func (s *OrderService) Track(ctx context.Context, customerID, orderNumber string) (*domain.Order, error) {
	var (
		o   *domain.Order
		err error
	)
	if strings.TrimSpace(orderNumber) != "" {
		o, err = s.Repo.FindOrderByNumber(ctx, s.DB, customerID, strings.TrimSpace(orderNumber))
	} else {
		o, err = s.Repo.LatestOrderForCustomer(ctx, s.DB, customerID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

// TrackingMessage renders a status reply with the ETA when one is promised.
func (s *OrderService) TrackingMessage(o *domain.Order) string {
	msg := fmt.Sprintf("Order %s is %s.", o.OrderNumber, strings.ReplaceAll(string(o.Status), "_", " "))
	if o.EstimatedReady != nil {
		switch o.Status {
		case domain.OrderPending, domain.OrderConfirmed, domain.OrderPreparing:
			remaining := o.EstimatedReady.Sub(s.Now().UTC())
			if remaining > 0 {
				msg += fmt.Sprintf(" It should be ready in about %d minutes.", int(remaining.Minutes())+1)
			} else {
				msg += " It should be ready any moment now."
			}
		case domain.OrderReady:
			msg += " You can pick it up at the counter."
		}
	}
	return msg
}
