package domain

import (
	"time"
)

// Customer is the owner of sessions, orders, and issues. Customers are
// auto-provisioned on first contact, keyed by phone number.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Phone: unique contact identity used by the conversational entry point.
//   - Name / Email: placeholder profile data until the customer registers.
//   - LoyaltyPoints: accumulated reward balance.
type Customer struct {
	ID            string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Name          string    `json:"name"  gorm:"type:varchar(128);not null"`
	Phone         string    `json:"phone" gorm:"type:varchar(32);not null;uniqueIndex"`
	Email         string    `json:"email" gorm:"type:varchar(255)"`
	LoyaltyPoints int       `json:"loyalty_points" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the database table name for Customer.
func (Customer) TableName() string { return "customers" }

// MenuItem is a purchasable catalog entry. Items are immutable during a
// conversation; draft line items snapshot price and name at add time so
// committed orders stay stable if the catalog changes later.
type MenuItem struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"         gorm:"type:varchar(128);not null;index"`
	ArabicName  string    `json:"arabic_name"  gorm:"type:varchar(128)"`
	Description string    `json:"description"  gorm:"type:text"`
	Price       float64   `json:"price"        gorm:"not null"`
	Category    string    `json:"category"     gorm:"type:varchar(64);not null;index"`
	IsAvailable bool      `json:"is_available" gorm:"not null;default:true"`
	Brand       string    `json:"brand"        gorm:"type:varchar(64);not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for MenuItem.
func (MenuItem) TableName() string { return "menu_items" }

// Order is a committed, durable order created only by draft submission.
// OrderNumber is the human-readable identity (brand-date-suffix), distinct
// from the internal UUID.
type Order struct {
	ID              string      `json:"id"           gorm:"type:char(36);primaryKey"`
	CustomerID      string      `json:"customer_id"  gorm:"type:char(36);not null;index"`
	Status          OrderStatus `json:"status"       gorm:"type:varchar(24);not null;default:'pending'"`
	Subtotal        float64     `json:"subtotal"     gorm:"not null"`
	Tax             float64     `json:"tax"          gorm:"not null"`
	DeliveryFee     float64     `json:"delivery_fee" gorm:"not null;default:0"`
	Total           float64     `json:"total"        gorm:"not null"`
	FulfillmentType string      `json:"fulfillment_type" gorm:"type:varchar(32);not null"`
	OrderNumber     string      `json:"order_number" gorm:"type:varchar(32);index"`
	DeliveryAddress string      `json:"delivery_address,omitempty" gorm:"type:varchar(255)"`
	EstimatedReady  *time.Time  `json:"estimated_ready_time,omitempty"`
	CreatedAt       time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time   `json:"updated_at"`

	Customer Customer    `json:"-" gorm:"foreignKey:CustomerID;references:ID"`
	Items    []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Order.
func (Order) TableName() string { return "orders" }

// OrderItem is a persisted order line. UnitPrice is the price snapshot taken
// from the draft, not a live catalog reference.
type OrderItem struct {
	ID         string  `json:"id"           gorm:"type:char(36);primaryKey"`
	OrderID    string  `json:"order_id"     gorm:"type:char(36);not null;index"`
	MenuItemID string  `json:"menu_item_id" gorm:"type:char(36);not null"`
	Quantity   int     `json:"quantity"     gorm:"not null"`
	UnitPrice  float64 `json:"unit_price"   gorm:"not null"`

	MenuItem MenuItem `json:"-" gorm:"foreignKey:MenuItemID;references:ID"`
}

// TableName returns the database table name for OrderItem.
func (OrderItem) TableName() string { return "order_items" }

// Issue is a complaint record. Issues are never created without a located
// order; status reflects the policy outcome (resolved or escalated).
type Issue struct {
	ID                 string      `json:"id"          gorm:"type:char(36);primaryKey"`
	OrderID            string      `json:"order_id"    gorm:"type:char(36);index"`
	CustomerID         string      `json:"customer_id" gorm:"type:char(36);not null;index"`
	IssueType          IssueType   `json:"issue_type"  gorm:"type:varchar(24);not null"`
	Description        string      `json:"description" gorm:"type:text;not null"`
	Resolution         string      `json:"resolution"  gorm:"type:text"`
	Status             IssueStatus `json:"status"      gorm:"type:varchar(16);not null;default:'open'"`
	Sentiment          Sentiment   `json:"sentiment"   gorm:"type:varchar(16);not null;default:'neutral'"`
	CompensationAmount *float64    `json:"compensation_amount,omitempty"`
	ResolvedAt         *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// TableName returns the database table name for Issue.
func (Issue) TableName() string { return "issues" }

/// Session is a per-customer conversation: capped message history, current
// state, the in-progress order draft, and the unclear-intent counter that
// drives the clarification ladder.
//
// History and Draft are stored as JSON text columns; the session service
// owns (de)serialization and pruning. A session past ExpiresAt is treated
// as absent at read time, which triggers creation of a fresh one.
type Session struct {
	ID           string            `json:"id"          gorm:"type:char(36);primaryKey"`
	CustomerID   string            `json:"customer_id" gorm:"type:char(36);not null;index"`
	Channel      string            `json:"channel"     gorm:"type:varchar(16);not null;default:'chat'"`
	History      string            `json:"-"           gorm:"type:text;not null;default:'[]'"`
	Draft        *string           `json:"-"           gorm:"type:text"`
	State        ConversationState `json:"conversation_state" gorm:"type:varchar(24);not null;default:'greeting'"`
	UnclearCount int               `json:"unclear_count" gorm:"not null;default:0"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"index"`
	ExpiresAt    time.Time         `json:"expires_at" gorm:"index"`

	Customer Customer `json:"-" gorm:"foreignKey:CustomerID;references:ID"`
}

// TableName returns the database table name for Session.
func (Session) TableName() string { return "sessions" }

// Expired reports whether the session is logically dead at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// AuditLog is an append-only record of notable actions (order created,
// issue resolved/escalated, hand-offs). Writes are fire-and-forget.
type AuditLog struct {
	ID          string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Timestamp   time.Time `json:"timestamp" gorm:"index"`
	CustomerID  string    `json:"customer_id,omitempty" gorm:"type:char(36);index"`
	SessionID   string    `json:"session_id,omitempty"  gorm:"type:char(36)"`
	Action      string    `json:"action"    gorm:"type:varchar(64);not null"`
	Details     string    `json:"details"   gorm:"type:text;not null;default:'{}'"`
	PerformedBy string    `json:"performed_by" gorm:"type:varchar(64);not null;default:'system'"`
	Severity    string    `json:"severity"  gorm:"type:varchar(16);not null;default:'info'"`
}

// TableName returns the database table name for AuditLog.
func (AuditLog) TableName() string { return "audit_logs" }
