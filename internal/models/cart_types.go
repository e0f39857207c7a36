package models

import "time"

// Cart is owned by exactly one of: a registered user (UserID) or a
// guest session (SessionID). Created lazily on the first item add and
// deleted on checkout, explicit clear, or guest-to-user merge.
type Cart struct {
	ID        int64     `json:"id" db:"id"`
	UserID    *int64    `json:"userId,omitempty" db:"user_id"`
	SessionID *string   `json:"sessionId,omitempty" db:"session_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// CartItem is one product line in a cart. (cart_id, product_id) is
// unique, so adds upsert into the existing row.
type CartItem struct {
	ID        int64     `json:"id" db:"id"`
	CartID    int64     `json:"cartId" db:"cart_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
