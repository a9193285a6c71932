package domain

import "time"

// Product is a catalog entity. Price is stored in cents. RatingAverage is the
// running mean of all reviews for the product, kept to one decimal place;
// RatingCount is the number of contributing reviews.
type Product struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	Price         int64     `json:"price"`
	Stock         int       `json:"stock"`
	Category      string    `json:"category"`
	ImageURL      string    `json:"image_url,omitempty"`
	RatingAverage float64   `json:"rating_average"`
	RatingCount   int       `json:"rating_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasStock reports whether the product can cover the requested quantity.
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
