package domain

import "math"

// DraftItem is a single cart line. Price, name, and category are snapshots
// taken from the catalog at add time.
type DraftItem struct {
	ItemID     string  `json:"id"`
	Name       string  `json:"name"`
	ArabicName string  `json:"arabic_name,omitempty"`
	Price      float64 `json:"price"`
	Category   string  `json:"category"`
	Quantity   int     `json:"quantity"`
}

// OrderDraft is the mutable, unsubmitted cart for a session. Monetary fields
// are always derived from Items via Recompute, never patched incrementally.
type OrderDraft struct {
	Items       []DraftItem `json:"items"`
	Subtotal    float64     `json:"subtotal"`
	Tax         float64     `json:"tax"`
	DeliveryFee float64     `json:"delivery_fee"`
	Total       float64     `json:"total"`
}

// EmptyDraft returns the canonical empty-cart shape: zero items and zero
// monetary fields, so client totals remain well-defined after a full removal.
func EmptyDraft() *OrderDraft {
	return &OrderDraft{Items: []DraftItem{}}
}

// IsEmpty reports whether the draft holds no line items.
func (d *OrderDraft) IsEmpty() bool {
	return d == nil || len(d.Items) == 0
}

// ItemCount returns the total quantity across all lines.
func (d *OrderDraft) ItemCount() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, it := range d.Items {
		n += it.Quantity
	}
	return n
}

// Aggregate merges lines that reference the same catalog item, summing
// quantities while preserving first-seen order. It must run before totals
// are computed.
func (d *OrderDraft) Aggregate() {
	if d == nil || len(d.Items) < 2 {
		return
	}
	index := make(map[string]int, len(d.Items))
	merged := d.Items[:0]
	for _, it := range d.Items {
		if pos, ok := index[it.ItemID]; ok {
			merged[pos].Quantity += it.Quantity
			continue
		}
		index[it.ItemID] = len(merged)
		merged = append(merged, it)
	}
	d.Items = merged
}

// Recompute aggregates duplicate lines and rederives all monetary fields:
// subtotal = Σ price×quantity, tax = subtotal×taxRate, total = subtotal +
// tax + deliveryFee, all rounded to cents. An empty draft resets to the
// canonical zero shape (including a zero delivery fee).
func (d *OrderDraft) Recompute(taxRate, deliveryFee float64) {
	d.Aggregate()
	if len(d.Items) == 0 {
		*d = *EmptyDraft()
		return
	}
	subtotal := 0.0
	for _, it := range d.Items {
		subtotal += it.Price * float64(it.Quantity)
	}
	d.Subtotal = Round2(subtotal)
	d.Tax = Round2(d.Subtotal * taxRate)
	d.DeliveryFee = Round2(deliveryFee)
	d.Total = Round2(d.Subtotal + d.Tax + d.DeliveryFee)
}

// Clone returns a deep copy, used to keep rollback snapshots byte-for-byte
// identical when a mutation fails.
func (d *OrderDraft) Clone() *OrderDraft {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Items = make([]DraftItem, len(d.Items))
	copy(cp.Items, d.Items)
	return &cp
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
