package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"storefront-api/internal/models"

	"github.com/gin-gonic/gin"
)

// Pricing policy. Tax is flat-rate on the subtotal; shipping is a flat
// fee waived above the free-shipping threshold.
const (
	taxRate         = 0.08
	shippingFee     = 10.0
	freeShippingMin = 100.0
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// orderTotals derives tax, shipping and total from a subtotal.
func orderTotals(subtotal float64) (tax, shipping, total float64) {
	tax = round2(subtotal * taxRate)
	if subtotal < freeShippingMin {
		shipping = shippingFee
	}
	total = round2(subtotal + tax + shipping)
	return tax, shipping, total
}

// checkoutItem is a cart line as read (and locked) during checkout.
type checkoutItem struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice float64 // effective price at checkout time
	Stock     int
}

// Checkout is the handler for POST /api/v1/orders.
// The whole flow runs in one serializable transaction with the product
// rows locked: stock check, stock decrement, order + item snapshot,
// cart clear. Either all of it happens or none of it does, so the
// catalog can never oversell.
func (h *Handlers) Checkout(c *gin.Context) {
	userID := currentUserID(c)

	tx, err := h.DB.BeginTx(c, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	var cartID int64
	err = tx.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusBadRequest, "Your cart is empty")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to find cart")
		return
	}

	// Lock the product rows for the duration of the transaction.
	query := `
		SELECT ci.product_id, p.name, ci.quantity, ROUND(p.price * (100 - p.discount_percent)) / 100, p.stock
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ? AND p.is_active = 1
		FOR UPDATE`

	rows, err := tx.Query(query, cartID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to read cart items")
		return
	}

	var items []checkoutItem
	var subtotal float64
	for rows.Next() {
		var item checkoutItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice, &item.Stock); err != nil {
			rows.Close()
			respondError(c, http.StatusInternalServerError, "Failed to scan cart item")
			return
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		respondError(c, http.StatusInternalServerError, "Error iterating cart items")
		return
	}

	if len(items) == 0 {
		respondError(c, http.StatusBadRequest, "Your cart is empty")
		return
	}

	for _, item := range items {
		if item.Stock < item.Quantity {
			respondError(c, http.StatusConflict,
				fmt.Sprintf("Not enough stock for %q", item.Name))
			return
		}
		subtotal += item.UnitPrice * float64(item.Quantity)
	}
	subtotal = round2(subtotal)
	tax, shipping, total := orderTotals(subtotal)

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO orders (user_id, status, subtotal, tax, shipping, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, models.OrderPending, subtotal, tax, shipping, total, now, now)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create order")
		return
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create order")
		return
	}

	for _, item := range items {
		if _, err := tx.Exec(`
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			orderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, now); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to save order item")
			return
		}

		if _, err := tx.Exec("UPDATE products SET stock = stock - ? WHERE id = ?",
			item.Quantity, item.ProductID); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to decrement stock")
			return
		}
	}

	if _, err := tx.Exec("DELETE FROM cart_items WHERE cart_id = ?", cartID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to clear cart")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to commit order")
		return
	}

	order := &models.Order{
		ID:        orderID,
		UserID:    userID,
		Status:    models.OrderPending,
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shipping,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Confirmation mail is best-effort and never blocks the response.
	var email, name string
	if err := h.DB.QueryRow("SELECT email, full_name FROM users WHERE id = ?", userID).Scan(&email, &name); err != nil {
		log.Printf("order %d confirmation: failed to load user %d: %v", orderID, userID, err)
	} else {
		go func() {
			if err := h.Mailer.SendOrderConfirmation(email, name, orderID, total); err != nil {
				log.Printf("order %d confirmation email failed: %v", orderID, err)
			}
		}()
	}

	respondMessage(c, http.StatusCreated, gin.H{"order": order}, "Order placed successfully")
}

const orderColumns = "id, user_id, status, subtotal, tax, shipping, total, created_at, updated_at"

func scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax,
			&o.Shipping, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetMyOrders is the handler for GET /api/v1/orders.
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userID := currentUserID(c)

	rows, err := h.DB.Query(
		"SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to scan orders")
		return
	}

	respondData(c, http.StatusOK, gin.H{"orders": orders})
}

// GetOrderDetails is the handler for GET /api/v1/orders/:id.
// Ownership is enforced in the query itself.
func (h *Handlers) GetOrderDetails(c *gin.Context) {
	userID := currentUserID(c)
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid order id")
		return
	}

	var o models.Order
	err = h.DB.QueryRow(
		"SELECT "+orderColumns+" FROM orders WHERE id = ? AND user_id = ?", orderID, userID).
		Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Order not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch order")
		return
	}

	rows, err := h.DB.Query(`
		SELECT id, order_id, product_id, product_name, quantity, unit_price, created_at
		FROM order_items WHERE order_id = ?`, o.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch order items")
		return
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.CreatedAt); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to scan order item")
			return
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		respondError(c, http.StatusInternalServerError, "Error iterating order items")
		return
	}

	respondData(c, http.StatusOK, gin.H{"order": o, "items": items})
}

// restoreOrderStock puts an order's quantities back into the catalog.
// Used when an order is cancelled before shipping.
func restoreOrderStock(tx *sql.Tx, orderID int64) error {
	_, err := tx.Exec(`
		UPDATE products p
		JOIN order_items oi ON p.id = oi.product_id
		SET p.stock = p.stock + oi.quantity
		WHERE oi.order_id = ?`, orderID)
	return err
}

// CancelOrder is the handler for POST /api/v1/orders/:id/cancel.
// Cancellation is only possible while the order is PENDING or
// PROCESSING; a shipped or delivered order stays on its path.
func (h *Handlers) CancelOrder(c *gin.Context) {
	userID := currentUserID(c)
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid order id")
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	var status models.OrderStatus
	err = tx.QueryRow("SELECT status FROM orders WHERE id = ? AND user_id = ? FOR UPDATE",
		orderID, userID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Order not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch order")
		return
	}

	if !status.CanTransitionTo(models.OrderCancelled) {
		respondError(c, http.StatusBadRequest,
			fmt.Sprintf("Order in status %s cannot be cancelled", status))
		return
	}

	if err := restoreOrderStock(tx, orderID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to restore stock")
		return
	}

	if _, err := tx.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		models.OrderCancelled, time.Now(), orderID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update order")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to commit")
		return
	}

	respondMessage(c, http.StatusOK, gin.H{"status": models.OrderCancelled}, "Order cancelled")
}

// --- Admin order management ---

// ListOrders is the handler for GET /api/v1/admin/orders.
// Supports ?status= filtering and page/limit pagination.
func (h *Handlers) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := ""
	args := []interface{}{}
	if statusFilter := c.Query("status"); statusFilter != "" {
		status := models.OrderStatus(statusFilter)
		if !status.Valid() {
			respondError(c, http.StatusBadRequest, "Unknown order status")
			return
		}
		where = "WHERE status = ?"
		args = append(args, status)
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to count orders")
		return
	}

	query := "SELECT " + orderColumns + " FROM orders " + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to scan orders")
		return
	}

	respondData(c, http.StatusOK, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + limit - 1) / limit,
		},
	})
}

type UpdateOrderStatusInput struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus is the handler for PATCH /api/v1/admin/orders/:id/status.
// Transitions are monotonic along the lifecycle; the guard lives in
// models.OrderStatus.CanTransitionTo. Cancelling via this endpoint
// restores stock the same way a customer cancellation does.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid order id")
		return
	}

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !input.Status.Valid() {
		respondError(c, http.StatusBadRequest, "Unknown order status")
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	var status models.OrderStatus
	err = tx.QueryRow("SELECT status FROM orders WHERE id = ? FOR UPDATE", orderID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Order not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to fetch order")
		return
	}

	if !status.CanTransitionTo(input.Status) {
		respondError(c, http.StatusBadRequest,
			fmt.Sprintf("Cannot transition order from %s to %s", status, input.Status))
		return
	}

	if input.Status == models.OrderCancelled {
		if err := restoreOrderStock(tx, orderID); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to restore stock")
			return
		}
	}

	if _, err := tx.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		input.Status, time.Now(), orderID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update order")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to commit")
		return
	}

	respondMessage(c, http.StatusOK, gin.H{"status": input.Status}, "Order status updated")
}
