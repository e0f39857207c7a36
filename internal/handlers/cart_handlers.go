package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"storefront-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// cartOwner resolves the identity set by middleware.CartIdentity:
// exactly one of userID (logged in) or sessionID (guest) is non-nil.
func cartOwner(c *gin.Context) (userID *int64, sessionID *string) {
	if v, ok := c.Get(middleware.CtxUserID); ok {
		id := v.(int64)
		return &id, nil
	}
	if v, ok := c.Get(middleware.CtxSessionID); ok {
		sid := v.(string)
		return nil, &sid
	}
	return nil, nil
}

// findCartID looks up the owner's cart. Returns sql.ErrNoRows when the
// owner has never added anything.
func findCartID(q Querier, userID *int64, sessionID *string) (int64, error) {
	var cartID int64
	var err error
	if userID != nil {
		err = q.QueryRow("SELECT id FROM carts WHERE user_id = ?", *userID).Scan(&cartID)
	} else {
		err = q.QueryRow("SELECT id FROM carts WHERE session_id = ?", *sessionID).Scan(&cartID)
	}
	return cartID, err
}

// getOrCreateCartID finds the owner's cart or lazily creates one.
// Meant to run inside a transaction.
func getOrCreateCartID(tx *sql.Tx, userID *int64, sessionID *string) (int64, error) {
	cartID, err := findCartID(tx, userID, sessionID)
	if err == nil {
		return cartID, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	now := time.Now()
	result, err := tx.Exec(
		"INSERT INTO carts (user_id, session_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
		userID, sessionID, now, now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// touchCart bumps the cart's updated_at. The maintenance pass reads
// that column as last-activity time when reclaiming idle guest carts,
// so every item mutation must refresh it.
func touchCart(e Execer, cartID int64) error {
	_, err := e.Exec("UPDATE carts SET updated_at = ? WHERE id = ?", time.Now(), cartID)
	return err
}

// CartItemResponse is one line of the cart as the storefront shows it.
// Price is the effective (discounted) price.
type CartItemResponse struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
	Stock     int     `json:"stock"`
}

// GetCart is the handler for GET /api/v1/cart.
func (h *Handlers) GetCart(c *gin.Context) {
	userID, sessionID := cartOwner(c)

	cartID, err := findCartID(h.DB, userID, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			// Never added anything: an empty cart, not an error.
			respondData(c, http.StatusOK, gin.H{
				"items":      []CartItemResponse{},
				"subtotal":   0.0,
				"totalItems": 0,
			})
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to find cart")
		return
	}

	query := `
		SELECT ci.product_id, p.name, p.slug, ROUND(p.price * (100 - p.discount_percent)) / 100, ci.quantity, p.stock
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ? AND p.is_active = 1`

	rows, err := h.DB.Query(query, cartID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to query cart items")
		return
	}
	defer rows.Close()

	items := []CartItemResponse{}
	var subtotal float64
	var totalItems int

	for rows.Next() {
		var item CartItemResponse
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Slug, &item.Price, &item.Quantity, &item.Stock); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to scan cart item")
			return
		}
		item.LineTotal = round2(item.Price * float64(item.Quantity))
		subtotal += item.LineTotal
		totalItems += item.Quantity
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		respondError(c, http.StatusInternalServerError, "Error iterating cart items")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"items":      items,
		"subtotal":   round2(subtotal),
		"totalItems": totalItems,
	})
}

type AddToCartInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// AddToCart is the handler for POST /api/v1/cart/items.
// Adding the same product again increases the quantity. The resulting
// quantity may never exceed the product's current stock.
func (h *Handlers) AddToCart(c *gin.Context) {
	userID, sessionID := cartOwner(c)

	var input AddToCartInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	cartID, err := getOrCreateCartID(tx, userID, sessionID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Cart initialization failed")
		return
	}

	var stock int
	err = tx.QueryRow("SELECT stock FROM products WHERE id = ? AND is_active = 1", input.ProductID).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Product not found or not available")
			return
		}
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	var existing int
	err = tx.QueryRow("SELECT quantity FROM cart_items WHERE cart_id = ? AND product_id = ?",
		cartID, input.ProductID).Scan(&existing)
	if err != nil && err != sql.ErrNoRows {
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	if existing+input.Quantity > stock {
		respondError(c, http.StatusConflict, "Insufficient stock")
		return
	}

	now := time.Now()
	_, err = tx.Exec(`
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			quantity = quantity + VALUES(quantity),
			updated_at = VALUES(updated_at)`,
		cartID, input.ProductID, input.Quantity, now, now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	if err := touchCart(tx, cartID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to commit")
		return
	}

	respondMessage(c, http.StatusCreated, nil, "Item added to cart")
}

type UpdateCartItemInput struct {
	// gte=0: a quantity of zero removes the item.
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// UpdateCartItem is the handler for PUT /api/v1/cart/items/:productId.
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	userID, sessionID := cartOwner(c)
	productID := c.Param("productId")

	var input UpdateCartItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	cartID, err := findCartID(h.DB, userID, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Cart not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to find cart")
		return
	}

	if *input.Quantity == 0 {
		h.deleteCartItem(c, cartID, productID)
		return
	}

	var stock int
	err = h.DB.QueryRow("SELECT stock FROM products WHERE id = ? AND is_active = 1", productID).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to check product stock")
		return
	}
	if stock < *input.Quantity {
		respondError(c, http.StatusConflict, "Insufficient stock for requested quantity")
		return
	}

	result, err := h.DB.Exec(
		"UPDATE cart_items SET quantity = ?, updated_at = ? WHERE cart_id = ? AND product_id = ?",
		*input.Quantity, time.Now(), cartID, productID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update item")
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		respondError(c, http.StatusNotFound, "Item not found in cart")
		return
	}

	if err := touchCart(h.DB, cartID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update cart")
		return
	}

	respondMessage(c, http.StatusOK, nil, "Cart item updated")
}

// DeleteCartItem is the handler for DELETE /api/v1/cart/items/:productId.
func (h *Handlers) DeleteCartItem(c *gin.Context) {
	userID, sessionID := cartOwner(c)

	cartID, err := findCartID(h.DB, userID, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Cart not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to find cart")
		return
	}

	h.deleteCartItem(c, cartID, c.Param("productId"))
}

func (h *Handlers) deleteCartItem(c *gin.Context, cartID int64, productID string) {
	result, err := h.DB.Exec("DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?", cartID, productID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to delete item")
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		respondError(c, http.StatusNotFound, "Item not found in cart")
		return
	}
	if err := touchCart(h.DB, cartID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update cart")
		return
	}
	respondMessage(c, http.StatusOK, nil, "Cart item removed")
}

// ClearCart is the handler for DELETE /api/v1/cart.
func (h *Handlers) ClearCart(c *gin.Context) {
	userID, sessionID := cartOwner(c)

	cartID, err := findCartID(h.DB, userID, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			respondMessage(c, http.StatusOK, nil, "Cart cleared")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to find cart")
		return
	}

	if _, err := h.DB.Exec("DELETE FROM cart_items WHERE cart_id = ?", cartID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to clear cart")
		return
	}
	respondMessage(c, http.StatusOK, nil, "Cart cleared")
}

// MergeGuestCart folds a guest session's cart into the user's cart.
// Quantities for the same product are summed, capped at current stock.
// The guest cart is deleted afterwards so the session cannot resurrect
// it. Called from Login; a missing guest cart is a no-op.
func (h *Handlers) MergeGuestCart(userID int64, sessionID string) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var guestCartID int64
	err = tx.QueryRow("SELECT id FROM carts WHERE session_id = ?", sessionID).Scan(&guestCartID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	userCartID, err := getOrCreateCartID(tx, &userID, nil)
	if err != nil {
		return err
	}

	rows, err := tx.Query(`
		SELECT ci.product_id, ci.quantity, p.stock
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ? AND p.is_active = 1`, guestCartID)
	if err != nil {
		return err
	}

	type guestItem struct {
		productID int64
		quantity  int
		stock     int
	}
	var guestItems []guestItem
	for rows.Next() {
		var gi guestItem
		if err := rows.Scan(&gi.productID, &gi.quantity, &gi.stock); err != nil {
			rows.Close()
			return err
		}
		guestItems = append(guestItems, gi)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	now := time.Now()
	for _, gi := range guestItems {
		var existing int
		err := tx.QueryRow("SELECT quantity FROM cart_items WHERE cart_id = ? AND product_id = ?",
			userCartID, gi.productID).Scan(&existing)
		if err != nil && err != sql.ErrNoRows {
			return err
		}

		merged := existing + gi.quantity
		if merged > gi.stock {
			merged = gi.stock
		}
		if merged <= 0 {
			continue
		}

		if _, err := tx.Exec(`
			INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				quantity = VALUES(quantity),
				updated_at = VALUES(updated_at)`,
			userCartID, gi.productID, merged, now, now); err != nil {
			return err
		}
	}

	if err := touchCart(tx, userCartID); err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM cart_items WHERE cart_id = ?", guestCartID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM carts WHERE id = ?", guestCartID); err != nil {
		return err
	}

	return tx.Commit()
}
