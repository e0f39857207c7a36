package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"storefront-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

const productColumns = "id, name, slug, description, price, discount_percent, stock, is_active, created_at, updated_at"

func scanProduct(row *sql.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price,
		&p.DiscountPercent, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Public catalog ---

// ListProducts is the handler for GET /api/v1/products.
// Supports ?page, ?limit, ?search (name/description), ?minPrice,
// ?maxPrice and ?sort (price_asc | price_desc | newest). Only active
// products are listed.
func (h *Handlers) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	where := "WHERE is_active = 1"
	args := []interface{}{}

	if search := c.Query("search"); search != "" {
		where += " AND (name LIKE ? OR description LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if minPrice, err := strconv.ParseFloat(c.Query("minPrice"), 64); err == nil {
		where += " AND price >= ?"
		args = append(args, minPrice)
	}
	if maxPrice, err := strconv.ParseFloat(c.Query("maxPrice"), 64); err == nil {
		where += " AND price <= ?"
		args = append(args, maxPrice)
	}

	// Sort must be whitelisted, never interpolated from the client.
	orderBy := "ORDER BY created_at DESC"
	switch c.Query("sort") {
	case "price_asc":
		orderBy = "ORDER BY price ASC"
	case "price_desc":
		orderBy = "ORDER BY price DESC"
	case "newest", "":
	default:
		respondError(c, http.StatusBadRequest, "Unknown sort option")
		return
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM products "+where, args...).Scan(&total); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to count products")
		return
	}

	query := "SELECT " + productColumns + " FROM products " + where + " " + orderBy + " LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to query products")
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price,
			&p.DiscountPercent, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to scan product")
			return
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		respondError(c, http.StatusInternalServerError, "Error iterating products")
		return
	}

	totalPages := (total + limit - 1) / limit
	respondData(c, http.StatusOK, gin.H{
		"products": products,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

// GetProduct is the handler for GET /api/v1/products/:id.
func (h *Handlers) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	product, err := scanProduct(h.DB.QueryRow(
		"SELECT "+productColumns+" FROM products WHERE id = ? AND is_active = 1", id))
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}
	respondData(c, http.StatusOK, gin.H{"product": product})
}

// GetProductBySlug is the handler for GET /api/v1/products/slug/:slug.
func (h *Handlers) GetProductBySlug(c *gin.Context) {
	product, err := scanProduct(h.DB.QueryRow(
		"SELECT "+productColumns+" FROM products WHERE slug = ? AND is_active = 1", c.Param("slug")))
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}
	respondData(c, http.StatusOK, gin.H{"product": product})
}

// --- Admin catalog management ---

type CreateProductInput struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" binding:"required,gt=0"`
	DiscountPercent float64 `json:"discountPercent" binding:"gte=0,lte=90"`
	Stock           int     `json:"stock" binding:"gte=0"`
}

// CreateProduct is the handler for POST /api/v1/admin/products.
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	productSlug := slug.Make(input.Name)

	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM products WHERE slug = ?", productSlug).Scan(&existingID)
	if err == nil {
		respondError(c, http.StatusConflict, "A product with this name already exists")
		return
	}
	if err != sql.ErrNoRows {
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	now := time.Now()
	result, err := h.DB.Exec(`
		INSERT INTO products (name, slug, description, price, discount_percent, stock, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		input.Name, productSlug, input.Description, input.Price, input.DiscountPercent, input.Stock, now, now)
	if err != nil {
		if isDuplicateEntry(err) {
			respondError(c, http.StatusConflict, "A product with this name already exists")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to create product")
		return
	}
	productID, err := result.LastInsertId()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create product")
		return
	}

	product := &models.Product{
		ID:              productID,
		Name:            input.Name,
		Slug:            productSlug,
		Description:     input.Description,
		Price:           input.Price,
		DiscountPercent: input.DiscountPercent,
		Stock:           input.Stock,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	respondMessage(c, http.StatusCreated, gin.H{"product": product}, "Product created")
}

type UpdateProductInput struct {
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	Price           float64 `json:"price" binding:"required,gt=0"`
	DiscountPercent float64 `json:"discountPercent" binding:"gte=0,lte=90"`
	Stock           int     `json:"stock" binding:"gte=0"`
	IsActive        *bool   `json:"isActive" binding:"required"`
}

// UpdateProduct is the handler for PUT /api/v1/admin/products/:id.
// The slug is assigned at creation and stays stable across renames so
// bookmarked storefront URLs keep working.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	var input UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	result, err := h.DB.Exec(`
		UPDATE products
		SET name = ?, description = ?, price = ?, discount_percent = ?, stock = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		input.Name, input.Description, input.Price, input.DiscountPercent,
		input.Stock, *input.IsActive, time.Now(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update product")
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		// Could also be a no-op update of identical values, but the
		// admin UI always sends at least a fresh updated_at.
		respondError(c, http.StatusNotFound, "Product not found")
		return
	}

	respondMessage(c, http.StatusOK, nil, "Product updated")
}

// DeleteProduct is the handler for DELETE /api/v1/admin/products/:id.
// Products referenced by orders can never be hard-deleted, so delete
// means deactivate.
func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	result, err := h.DB.Exec("UPDATE products SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1",
		time.Now(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		respondError(c, http.StatusNotFound, "Product not found")
		return
	}

	respondMessage(c, http.StatusOK, nil, "Product deleted")
}

type UpdateStockInput struct {
	Stock *int `json:"stock" binding:"required,gte=0"`
}

// UpdateStock is the handler for PATCH /api/v1/admin/products/:id/stock.
func (h *Handlers) UpdateStock(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	var input UpdateStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	result, err := h.DB.Exec("UPDATE products SET stock = ?, updated_at = ? WHERE id = ?",
		*input.Stock, time.Now(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update stock")
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		respondError(c, http.StatusNotFound, "Product not found")
		return
	}

	respondMessage(c, http.StatusOK, nil, "Stock updated")
}
