package models

import (
	"math"
	"time"
)

// Product is a catalog entry. Price is the list price; DiscountPercent
// (0-90) is applied on top of it when quoting carts and orders.
type Product struct {
	ID              int64     `json:"id" db:"id"`
	Name            string    `json:"name" db:"name"`
	Slug            string    `json:"slug" db:"slug"`
	Description     string    `json:"description" db:"description"`
	Price           float64   `json:"price" db:"price"`
	DiscountPercent float64   `json:"discountPercent" db:"discount_percent"`
	Stock           int       `json:"stock" db:"stock"`
	IsActive        bool      `json:"isActive" db:"is_active"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// EffectivePrice is the list price after discount, rounded to cents.
// This is the price carts quote and orders snapshot.
func (p *Product) EffectivePrice() float64 {
	return EffectivePrice(p.Price, p.DiscountPercent)
}

// EffectivePrice applies a percentage discount and rounds to cents.
func EffectivePrice(price, discountPercent float64) float64 {
	return math.Round(price*(100-discountPercent)) / 100
}
