package handlers

import (
	"database/sql"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTotals(t *testing.T) {
	tests := []struct {
		subtotal float64
		tax      float64
		shipping float64
		total    float64
	}{
		{50.00, 4.00, 10.00, 64.00},
		{99.99, 8.00, 10.00, 117.99},
		{100.00, 8.00, 0.00, 108.00}, // free shipping kicks in at 100
		{250.00, 20.00, 0.00, 270.00},
	}

	for _, tt := range tests {
		tax, shipping, total := orderTotals(tt.subtotal)
		assert.InDelta(t, tt.tax, tax, 1e-9, "tax for subtotal %v", tt.subtotal)
		assert.InDelta(t, tt.shipping, shipping, 1e-9, "shipping for subtotal %v", tt.subtotal)
		assert.InDelta(t, tt.total, total, 1e-9, "total for subtotal %v", tt.subtotal)
	}
}

func orderRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.POST("/orders", asUser(7), h.Checkout)
	router.GET("/orders/:id", asUser(7), h.GetOrderDetails)
	router.POST("/orders/:id/cancel", asUser(7), h.CancelOrder)
	router.PATCH("/admin/orders/:id/status", asUser(1), h.UpdateOrderStatus)
	return router
}

func TestCheckout(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := orderRouter(h)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM carts WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items ci")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "unit_price", "stock"}).
			AddRow(10, "Widget", 2, 25.00, 5))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock = stock - ?")).
		WithArgs(2, int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = ?")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, full_name FROM users WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"email", "full_name"}).
			AddRow("jane@example.com", "Jane Doe"))

	w := doJSON(router, http.MethodPost, "/orders", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"subtotal":50`)
	assert.Contains(t, body, `"tax":4`)
	assert.Contains(t, body, `"shipping":10`)
	assert.Contains(t, body, `"total":64`)
	assert.Contains(t, body, `"status":"PENDING"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutInsufficientStock(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := orderRouter(h)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM carts WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items ci")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "unit_price", "stock"}).
			AddRow(10, "Widget", 3, 25.00, 2))
	mock.ExpectRollback()

	w := doJSON(router, http.MethodPost, "/orders", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Not enough stock")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutEmptyCart(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := orderRouter(h)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM carts WHERE user_id = ?")).
		WithArgs(int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	w := doJSON(router, http.MethodPost, "/orders", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cart is empty")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelOrderRestoresStock(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := orderRouter(h)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(int64(42), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products p")).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(router, http.MethodPost, "/orders/42/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"CANCELLED"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelShippedOrderFails(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := orderRouter(h)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(int64(42), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("SHIPPED"))
	mock.ExpectRollback()

	w := doJSON(router, http.MethodPost, "/orders/42/cancel", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cannot be cancelled")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusHappyPath(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := orderRouter(h)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doJSON(router, http.MethodPatch, "/admin/orders/42/status", `{"status":"PROCESSING"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRejectsBackwardTransition(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := orderRouter(h)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("DELIVERED"))
	mock.ExpectRollback()

	w := doJSON(router, http.MethodPatch, "/admin/orders/42/status", `{"status":"PROCESSING"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cannot transition")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusUnknownStatus(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := orderRouter(h)

	w := doJSON(router, http.MethodPatch, "/admin/orders/42/status", `{"status":"REFUNDED"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown order status")
}
