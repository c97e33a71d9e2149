package models

import (
	"time"

	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null"                 json:"role"`
	Guest        bool      `gorm:"default:false"            json:"guest"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type Address struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Title     string    `json:"title"`
	FirstName string    `gorm:"not null"       json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Line1     string    `json:"line1"`
	Line2     string    `json:"line2"`
	City      string    `json:"city"`
	District  string    `json:"district"`
	PostCode  string    `json:"post_code"`
	Country   string    `gorm:"default:'TR'"   json:"country"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string           `gorm:"not null"                 json:"name"`
	Slug        string           `gorm:"uniqueIndex"              json:"slug"`
	Description string           `json:"description"`
	Price       float64          `gorm:"not null"                 json:"price"`
	Stock       int64            `gorm:"not null;default:0"       json:"stock"`
	Active      bool             `gorm:"default:true"             json:"active"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID"     json:"variants,omitempty"`
}

type ProductVariant struct {
	ID         uint    `gorm:"primaryKey"         json:"id"`
	ProductID  uint    `gorm:"index;not null"     json:"product_id"`
	Name       string  `gorm:"not null"           json:"name"`
	Value      string  `json:"value"`
	PriceDelta float64 `gorm:"default:0"          json:"price_delta"`
	Stock      int64   `gorm:"not null;default:0" json:"stock"`
}

type Bundle struct {
	ID          uint    `gorm:"primaryKey"         json:"id"`
	Name        string  `gorm:"not null"           json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"           json:"price"`
	Stock       int64   `gorm:"not null;default:0" json:"stock"`
	Active      bool    `gorm:"default:true"       json:"active"`
}

type Coupon struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Code      string    `gorm:"uniqueIndex;not null" json:"code"`
	Type      string    `gorm:"not null"             json:"type"` // "percent" or "fixed"
	Value     float64   `gorm:"not null"             json:"value"`
	Active    bool      `gorm:"default:true"         json:"active"`
	UsedCount uint      `gorm:"default:0"            json:"used_count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CheckoutDraft holds the full checkout payload between handing the customer
// to 3-D Secure and receiving the gateway callback. At most one draft exists
// per order number; deleting it is the terminal event of the checkout,
// whatever the outcome.
type CheckoutDraft struct {
	ID          uint           `gorm:"primaryKey"           json:"id"`
	OrderNumber string         `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID      *uint          `json:"user_id,omitempty"`
	Payload     datatypes.JSON `gorm:"type:jsonb"           json:"payload"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Order struct {
	ID            uint          `gorm:"primaryKey"           json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID        uint          `gorm:"index;not null"       json:"user_id"`
	Status        OrderStatus   `gorm:"not null"             json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null"             json:"payment_status"`
	Subtotal      float64       `json:"subtotal"`
	ShippingCost  float64       `json:"shipping_cost"`
	Discount      float64       `json:"discount"`
	Tax           float64       `json:"tax"`
	Total         float64       `gorm:"not null"             json:"total"`

	BillingAddrID  *uint `json:"billing_address_id,omitempty"`
	ShippingAddrID *uint `json:"shipping_address_id,omitempty"`
	CouponID       *uint `json:"coupon_id,omitempty"`

	// AccessToken lets the buyer fetch their contract documents from an
	// emailed link without logging in.
	AccessToken string `gorm:"index" json:"-"`

	PaymentID      string `json:"payment_id"`
	ConversationID string `json:"conversation_id"`
	// Raw per-item settlement transactions as reported by the gateway.
	PaymentTxns datatypes.JSON `gorm:"type:jsonb" json:"payment_transactions,omitempty"`

	StatusHistory datatypes.JSON `gorm:"type:jsonb"         json:"status_history"`
	Items         []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// OrderItem snapshots price and quantity at purchase time so historical
// orders stay accurate when catalog rows change later.
type OrderItem struct {
	ID        uint           `gorm:"primaryKey"     json:"id"`
	OrderID   uint           `gorm:"index;not null" json:"order_id"`
	ProductID *uint          `json:"product_id,omitempty"`
	BundleID  *uint          `json:"bundle_id,omitempty"`
	VariantID *uint          `json:"variant_id,omitempty"`
	Name      string         `gorm:"not null"       json:"name"`
	UnitPrice float64        `gorm:"not null"       json:"unit_price"`
	Quantity  uint           `gorm:"not null;check:quantity>0" json:"quantity"`
	Subtotal  float64        `gorm:"not null"       json:"subtotal"`
	Variant   datatypes.JSON `gorm:"type:jsonb"     json:"variant,omitempty"`
}
