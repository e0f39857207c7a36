package models

import "time"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
// The happy path is linear: PENDING -> PROCESSING -> SHIPPED ->
// DELIVERED. CANCELLED is reachable only from PENDING or PROCESSING.
// DELIVERED and CANCELLED are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderProcessing || next == OrderCancelled
	case OrderProcessing:
		return next == OrderShipped || next == OrderCancelled
	case OrderShipped:
		return next == OrderDelivered
	}
	return false
}

// Order is an immutable pricing snapshot of a cart taken at checkout.
// Only Status (and UpdatedAt) change after creation.
type Order struct {
	ID        int64       `json:"id" db:"id"`
	UserID    int64       `json:"userId" db:"user_id"`
	Status    OrderStatus `json:"status" db:"status"`
	Subtotal  float64     `json:"subtotal" db:"subtotal"`
	Tax       float64     `json:"tax" db:"tax"`
	Shipping  float64     `json:"shipping" db:"shipping"`
	Total     float64     `json:"total" db:"total"`
	CreatedAt time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time   `json:"updatedAt" db:"updated_at"`
}

// OrderItem carries the product name and unit price as they were at
// checkout time, so later catalog edits never rewrite order history.
type OrderItem struct {
	ID          int64     `json:"id" db:"id"`
	OrderID     int64     `json:"orderId" db:"order_id"`
	ProductID   int64     `json:"productId" db:"product_id"`
	ProductName string    `json:"productName" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unitPrice" db:"unit_price"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
