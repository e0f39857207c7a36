package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// WishlistEntry is a wishlist row joined with its product data.
type WishlistEntry struct {
	ProductID int64     `json:"productId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	AddedAt   time.Time `json:"addedAt"`
}

// GetWishlist is the handler for GET /api/v1/wishlist.
func (h *Handlers) GetWishlist(c *gin.Context) {
	userID := currentUserID(c)

	rows, err := h.DB.Query(`
		SELECT w.product_id, p.name, p.slug, ROUND(p.price * (100 - p.discount_percent)) / 100, p.stock, w.created_at
		FROM wishlist_items w
		JOIN products p ON w.product_id = p.id
		WHERE w.user_id = ? AND p.is_active = 1
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to fetch wishlist")
		return
	}
	defer rows.Close()

	entries := []WishlistEntry{}
	for rows.Next() {
		var e WishlistEntry
		if err := rows.Scan(&e.ProductID, &e.Name, &e.Slug, &e.Price, &e.Stock, &e.AddedAt); err != nil {
			respondError(c, http.StatusInternalServerError, "Failed to scan wishlist entry")
			return
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		respondError(c, http.StatusInternalServerError, "Error iterating wishlist")
		return
	}

	respondData(c, http.StatusOK, gin.H{"items": entries})
}

// AddToWishlist is the handler for POST /api/v1/wishlist/:productId.
func (h *Handlers) AddToWishlist(c *gin.Context) {
	userID := currentUserID(c)
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	var exists int
	err = h.DB.QueryRow("SELECT 1 FROM products WHERE id = ? AND is_active = 1", productID).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	var count int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM wishlist_items WHERE user_id = ? AND product_id = ?",
		userID, productID).Scan(&count); err != nil {
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		respondError(c, http.StatusConflict, "Product is already in your wishlist")
		return
	}

	if _, err := h.DB.Exec(
		"INSERT INTO wishlist_items (user_id, product_id, created_at) VALUES (?, ?, ?)",
		userID, productID, time.Now()); err != nil {
		if isDuplicateEntry(err) {
			respondError(c, http.StatusConflict, "Product is already in your wishlist")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to add to wishlist")
		return
	}

	respondMessage(c, http.StatusCreated, nil, "Added to wishlist")
}

// RemoveFromWishlist is the handler for DELETE /api/v1/wishlist/:productId.
func (h *Handlers) RemoveFromWishlist(c *gin.Context) {
	userID := currentUserID(c)
	productID := c.Param("productId")

	result, err := h.DB.Exec("DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?",
		userID, productID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to remove from wishlist")
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		respondError(c, http.StatusNotFound, "Product not in wishlist")
		return
	}

	respondMessage(c, http.StatusOK, nil, "Removed from wishlist")
}
