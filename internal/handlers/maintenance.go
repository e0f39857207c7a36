package handlers

import (
	"log"
	"time"
)

// guestCartMaxIdle is how long an untouched guest cart survives before
// the maintenance pass reclaims it.
const guestCartMaxIdle = 30 * 24 * time.Hour

// RunMaintenance removes expired refresh tokens and stale guest carts.
// Called periodically from the background worker in main.
func (h *Handlers) RunMaintenance() {
	now := time.Now()

	if result, err := h.DB.Exec("DELETE FROM refresh_tokens WHERE expires_at < ?", now); err != nil {
		log.Printf("maintenance: failed to purge refresh tokens: %v", err)
	} else if n, _ := result.RowsAffected(); n > 0 {
		log.Printf("maintenance: purged %d expired refresh tokens", n)
	}

	cutoff := now.Add(-guestCartMaxIdle)

	// Items first: order matters because of the foreign key.
	if _, err := h.DB.Exec(`
		DELETE ci FROM cart_items ci
		JOIN carts c ON ci.cart_id = c.id
		WHERE c.user_id IS NULL AND c.updated_at < ?`, cutoff); err != nil {
		log.Printf("maintenance: failed to purge stale guest cart items: %v", err)
		return
	}
	if result, err := h.DB.Exec(
		"DELETE FROM carts WHERE user_id IS NULL AND updated_at < ?", cutoff); err != nil {
		log.Printf("maintenance: failed to purge stale guest carts: %v", err)
	} else if n, _ := result.RowsAffected(); n > 0 {
		log.Printf("maintenance: purged %d stale guest carts", n)
	}
}
