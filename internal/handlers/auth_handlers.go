package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"storefront-api/internal/auth"
	"storefront-api/internal/middleware"
	"storefront-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const refreshCookieName = "refresh_token"

// setRefreshCookie attaches the refresh token as an HTTP-only cookie,
// scoped to the auth endpoints so it never rides along on normal API calls.
func setRefreshCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, value, maxAge, "/api/v1/auth", "", false, true)
}

// storeRefreshToken persists the hashed token for a user.
func (h *Handlers) storeRefreshToken(userID int64, tokenHash string) error {
	now := time.Now()
	_, err := h.DB.Exec(`
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		tokenHash, userID, now.Add(auth.RefreshTokenTTL), now)
	return err
}

// scanUser reads a full user row. Kept in one place so every handler
// selects the same columns in the same order.
func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Role, &u.Email, &u.PasswordHash, &u.FullName,
		&u.PhoneNumber, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userColumns = "id, role, email, password_hash, full_name, phone_number, is_active, created_at, updated_at"

// --- Register ---

type RegisterInput struct {
	FullName    string  `json:"fullName" binding:"required"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	PhoneNumber *string `json:"phoneNumber"`
}

// Register is the handler for POST /api/v1/auth/register.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Duplicate email is a conflict, not a validation error.
	var count int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM users WHERE email = ?", input.Email).Scan(&count); err != nil {
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		respondError(c, http.StatusConflict, "Email is already registered")
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	now := time.Now()
	result, err := h.DB.Exec(`
		INSERT INTO users (role, email, password_hash, full_name, phone_number, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		models.RoleUser, input.Email, password.Hash, input.FullName, input.PhoneNumber, now, now)
	if err != nil {
		// The count check above races with concurrent registrations;
		// the unique key on email catches the loser.
		if isDuplicateEntry(err) {
			respondError(c, http.StatusConflict, "Email is already registered")
			return
		}
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	user := &models.User{
		ID:          userID,
		Role:        models.RoleUser,
		Email:       input.Email,
		FullName:    input.FullName,
		PhoneNumber: input.PhoneNumber,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// Best-effort: registration succeeds even if the mail bounces.
	go func() {
		if err := h.Mailer.SendWelcome(user.Email, user.FullName); err != nil {
			log.Printf("welcome email to %s failed: %v", user.Email, err)
		}
	}()

	respondMessage(c, http.StatusCreated, gin.H{"user": user}, "Account created successfully")
}

// --- Login ---

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /api/v1/auth/login.
// On success it issues an access token (response body) and a refresh
// token (HTTP-only cookie). If the request carries a guest session
// header, that session's cart is merged into the user's cart.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	user, err := scanUser(h.DB.QueryRow(
		"SELECT "+userColumns+" FROM users WHERE email = ?", input.Email))
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	if !user.IsActive {
		respondError(c, http.StatusLocked, "Account is deactivated")
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to verify password")
		return
	}
	if !match {
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	refreshPlain, refreshHash := auth.NewRefreshToken()
	if err := h.storeRefreshToken(user.ID, refreshHash); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	// Fold the guest cart into the user's cart, if the client was
	// shopping anonymously before logging in.
	if sessionID := c.GetHeader(middleware.SessionHeader); sessionID != "" {
		if _, err := uuid.Parse(sessionID); err == nil {
			if err := h.MergeGuestCart(user.ID, sessionID); err != nil {
				log.Printf("guest cart merge for user %d failed: %v", user.ID, err)
			}
		}
	}

	setRefreshCookie(c, refreshPlain, int(auth.RefreshTokenTTL.Seconds()))
	respondData(c, http.StatusOK, gin.H{"token": token, "user": user})
}

// --- Refresh ---

// Refresh is the handler for POST /api/v1/auth/refresh.
// Tokens rotate on every use: the presented token is revoked and a new
// pair is issued, so a stolen cookie stops working as soon as the
// legitimate client refreshes.
func (h *Handlers) Refresh(c *gin.Context) {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Refresh token required")
		return
	}
	tokenHash := auth.HashRefreshToken(cookie)

	var (
		userID    int64
		expiresAt time.Time
		role      string
		isActive  bool
	)
	err = h.DB.QueryRow(`
		SELECT rt.user_id, rt.expires_at, u.role, u.is_active
		FROM refresh_tokens rt
		JOIN users u ON rt.user_id = u.id
		WHERE rt.token_hash = ?`, tokenHash).
		Scan(&userID, &expiresAt, &role, &isActive)
	if err != nil {
		if err == sql.ErrNoRows {
			respondError(c, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		respondError(c, http.StatusInternalServerError, "Database error")
		return
	}

	if time.Now().After(expiresAt) {
		_, _ = h.DB.Exec("DELETE FROM refresh_tokens WHERE token_hash = ?", tokenHash)
		respondError(c, http.StatusUnauthorized, "Refresh token expired")
		return
	}
	if !isActive {
		respondError(c, http.StatusLocked, "Account is deactivated")
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to start transaction")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM refresh_tokens WHERE token_hash = ?", tokenHash); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to rotate token")
		return
	}

	refreshPlain, refreshHash := auth.NewRefreshToken()
	now := time.Now()
	if _, err := tx.Exec(`
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		refreshHash, userID, now.Add(auth.RefreshTokenTTL), now); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to rotate token")
		return
	}

	if err := tx.Commit(); err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to commit")
		return
	}

	token, err := auth.GenerateToken(userID, role)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	setRefreshCookie(c, refreshPlain, int(auth.RefreshTokenTTL.Seconds()))
	respondData(c, http.StatusOK, gin.H{"token": token})
}

// --- Logout ---

// Logout is the handler for POST /api/v1/auth/logout.
// Revokes the presented refresh token and clears the cookie. Always
// succeeds; logging out twice is not an error.
func (h *Handlers) Logout(c *gin.Context) {
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		_, _ = h.DB.Exec("DELETE FROM refresh_tokens WHERE token_hash = ?", auth.HashRefreshToken(cookie))
	}
	setRefreshCookie(c, "", -1)
	respondMessage(c, http.StatusOK, nil, "Logged out")
}
