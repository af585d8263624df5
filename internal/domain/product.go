package domain

import "time"

// Product is the aggregate for a storefront item (books, kits, merchandise).
// It carries the same embedded review mechanics as Course.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	PriceAmount int64     `json:"price_amount"`
	Currency    string    `json:"currency"`
	Stock       int       `json:"stock"`
	Ratings     Ratings   `json:"ratings"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
