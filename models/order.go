package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// Payment statuses
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// orderTransitions lists the allowed next statuses; delivered and cancelled are terminal
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

var paymentTransitions = map[string][]string{
	PaymentStatusPending:  {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:   {PaymentStatusPending, PaymentStatusPaid},
	PaymentStatusPaid:     {PaymentStatusRefunded},
	PaymentStatusRefunded: {},
}

// ShippingAddress is embedded into the orders table with a shipping_ prefix
type ShippingAddress struct {
	Street     string `gorm:"not null" json:"street"`
	City       string `gorm:"not null" json:"city"`
	State      string `json:"state"`
	PostalCode string `gorm:"not null" json:"postal_code"`
	Country    string `gorm:"not null" json:"country"`
}

// Order is a customer purchase. TotalPrice is computed from the line items
// at creation time and never recomputed.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"` // foreign key to users table
	User            User            `gorm:"foreignKey:UserID" json:"user"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_price"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	OrderStatus     string          `gorm:"not null;default:'pending';index" json:"order_status"`
	PaymentStatus   string          `gorm:"not null;default:'pending'" json:"payment_status"`
	StockReleased   bool            `gorm:"not null;default:false" json:"-"` // set once reserved stock has been returned to the catalog
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem is one line item of an order
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"` // product price when the order was placed
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	_, ok := orderTransitions[status]
	return ok
}

// ValidPaymentStatus reports whether status is a known payment status
func ValidPaymentStatus(status string) bool {
	_, ok := paymentTransitions[status]
	return ok
}

// CanTransitionOrder reports whether an order may move from one status to another.
// Staying in the same status is always allowed.
func CanTransitionOrder(from, to string) bool {
	return canTransition(orderTransitions, from, to)
}

// CanTransitionPayment reports whether a payment may move from one status to another
func CanTransitionPayment(from, to string) bool {
	return canTransition(paymentTransitions, from, to)
}

func canTransition(graph map[string][]string, from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range graph[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether the order still holds reserved stock awaiting fulfilment
func (o Order) IsOpen() bool {
	return o.OrderStatus == OrderStatusPending || o.OrderStatus == OrderStatusProcessing
}

// IsDeletable reports whether the order may be removed. Orders that have
// left the warehouse are kept for the record.
func (o Order) IsDeletable() bool {
	switch o.OrderStatus {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCancelled:
		return true
	}
	return false
}
