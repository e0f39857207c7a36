package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"storefront-api/internal/middleware"
	"storefront-api/internal/models"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user's ID off the context.
// RequireAuth guarantees it is present on these routes.
func currentUserID(c *gin.Context) int64 {
	v, _ := c.Get(middleware.CtxUserID)
	return v.(int64)
}

func (h *Handlers) fetchUser(userID int64) (*models.User, error) {
	return scanUser(h.DB.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE id = ?", userID))
}

// GetMe is the handler for GET /api/v1/users/me.
func (h *Handlers) GetMe(c *gin.Context) {
	user, err := h.fetchUser(currentUserID(c))
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}
	respondData(c, http.StatusOK, gin.H{"user": user})
}

type UpdateProfileInput struct {
	FullName    string  `json:"fullName" binding:"required"`
	PhoneNumber *string `json:"phoneNumber"`
}

// UpdateMe is the handler for PUT /api/v1/users/me.
func (h *Handlers) UpdateMe(c *gin.Context) {
	userID := currentUserID(c)

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	_, err := h.DB.Exec(`
		UPDATE users SET full_name = ?, phone_number = ?, updated_at = ?
		WHERE id = ?`,
		input.FullName, input.PhoneNumber, time.Now(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	user, err := h.fetchUser(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	respondMessage(c, http.StatusOK, gin.H{"user": user}, "Profile updated")
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// ChangePassword is the handler for PUT /api/v1/users/me/password.
func (h *Handlers) ChangePassword(c *gin.Context) {
	userID := currentUserID(c)

	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var currentHash string
	if err := h.DB.QueryRow("SELECT password_hash FROM users WHERE id = ?", userID).Scan(&currentHash); err != nil {
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	password := models.Password{Hash: currentHash}
	match, err := password.Matches(input.CurrentPassword)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to verify password")
		return
	}
	if !match {
		respondError(c, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	if err := password.Set(input.NewPassword); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	_, err = h.DB.Exec("UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		password.Hash, time.Now(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to update password")
		return
	}

	respondMessage(c, http.StatusOK, nil, "Password updated")
}

// DeactivateMe is the handler for DELETE /api/v1/users/me.
// Accounts are soft-deactivated, never hard-deleted: order history
// references them. All refresh tokens are revoked so existing sessions
// die with the account.
func (h *Handlers) DeactivateMe(c *gin.Context) {
	userID := currentUserID(c)

	tx, err := h.DB.Begin()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE users SET is_active = 0, updated_at = ? WHERE id = ?", time.Now(), userID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to deactivate account")
		return
	}
	if _, err := tx.Exec("DELETE FROM refresh_tokens WHERE user_id = ?", userID); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to revoke sessions")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to commit")
		return
	}

	respondMessage(c, http.StatusOK, nil, "Account deactivated")
}
