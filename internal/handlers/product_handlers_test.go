package handlers

import (
	"database/sql"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.GET("/products", h.ListProducts)
	router.GET("/products/:id", h.GetProduct)
	router.POST("/admin/products", asUser(1), h.CreateProduct)
	router.DELETE("/admin/products/:id", asUser(1), h.DeleteProduct)
	return router
}

func productRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "slug", "description", "price",
		"discount_percent", "stock", "is_active", "created_at", "updated_at",
	}).
		AddRow(1, "Widget", "widget", "A widget", 25.00, 0.0, 5, true, now, now).
		AddRow(2, "Gadget", "gadget", "A gadget", 49.99, 10.0, 3, true, now, now)
}

func TestListProducts(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := productRouter(h)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE is_active = 1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE is_active = 1")).
		WillReturnRows(productRows())

	w := doJSON(router, http.MethodGet, "/products", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"slug":"widget"`)
	assert.Contains(t, body, `"total":2`)
	assert.Contains(t, body, `"totalPages":1`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListProductsRejectsUnknownSort(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := productRouter(h)

	w := doJSON(router, http.MethodGet, "/products?sort=cheapest", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetProductNotFound(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := productRouter(h)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ? AND is_active = 1")).
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	w := doJSON(router, http.MethodGet, "/products/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProduct(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := productRouter(h)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM products WHERE slug = ?")).
		WithArgs("blue-widget").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnResult(sqlmock.NewResult(5, 1))

	w := doJSON(router, http.MethodPost, "/admin/products",
		`{"name":"Blue Widget","price":25.00,"discountPercent":0,"stock":10}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"blue-widget"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductDuplicateName(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := productRouter(h)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM products WHERE slug = ?")).
		WithArgs("blue-widget").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	w := doJSON(router, http.MethodPost, "/admin/products",
		`{"name":"Blue Widget","price":25.00,"stock":10}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductDuplicateSlugRace(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := productRouter(h)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM products WHERE slug = ?")).
		WithArgs("blue-widget").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'blue-widget' for key 'products.slug'"})

	w := doJSON(router, http.MethodPost, "/admin/products",
		`{"name":"Blue Widget","price":25.00,"stock":10}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProductRejectsExcessiveDiscount(t *testing.T) {
	h, _ := newTestHandlers(t)
	router := productRouter(h)

	w := doJSON(router, http.MethodPost, "/admin/products",
		`{"name":"Blue Widget","price":25.00,"discountPercent":95,"stock":10}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProductSoftDeletes(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := productRouter(h)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET is_active = 0")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(router, http.MethodDelete, "/admin/products/5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProductNotFound(t *testing.T) {
	h, mock := newTestHandlers(t)
	router := productRouter(h)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET is_active = 0")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := doJSON(router, http.MethodDelete, "/admin/products/5", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
