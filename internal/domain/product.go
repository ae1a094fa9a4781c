package domain

import (
	"math"
	"time"
)

// Product is a catalog record as served by the remote API.
type Product struct {
	ID              string    `json:"_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Price           float64   `json:"price"`
	DiscountedPrice *float64  `json:"Discounted_price,omitempty"`
	PictureRef      string    `json:"picture"`
	Category        string    `json:"category"`
	Ratings         float64   `json:"ratings"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
}

// HasDiscount reports whether the discounted price is present and strictly lower than the list price.
func (p Product) HasDiscount() bool {
	return p.DiscountedPrice != nil && *p.DiscountedPrice < p.Price
}

// EffectivePrice is the price charged per unit. It is the only place the discount rule lives;
// hydration, the detail page and order totals all go through it.
func (p Product) EffectivePrice() float64 {
	if p.HasDiscount() {
		return *p.DiscountedPrice
	}
	return p.Price
}

// DiscountPercent is the rounded percentage shown on the detail page badge, 0 without a valid discount.
func (p Product) DiscountPercent() int {
	if !p.HasDiscount() || p.Price <= 0 {
		return 0
	}
	return int(math.Round((p.Price - *p.DiscountedPrice) / p.Price * 100))
}

// Pricing is the price block rendered next to a product.
type Pricing struct {
	Price           float64 `json:"price"`
	EffectivePrice  float64 `json:"effective_price"`
	HasDiscount     bool    `json:"has_discount"`
	DiscountPercent int     `json:"discount_percent"`
}

func (p Product) Pricing() Pricing {
	return Pricing{
		Price:           p.Price,
		EffectivePrice:  p.EffectivePrice(),
		HasDiscount:     p.HasDiscount(),
		DiscountPercent: p.DiscountPercent(),
	}
}

// SortOrder selects one of the catalog's sorted listings.
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortAll       SortOrder = "all"
	SortNewest    SortOrder = "newest"
	SortOldest    SortOrder = "oldest"
	SortPriceHigh SortOrder = "price-high"
	SortPriceLow  SortOrder = "price-low"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortNone, SortAll, SortNewest, SortOldest, SortPriceHigh, SortPriceLow:
		return true
	}
	return false
}

// NewProduct is the admin form for creating a catalog entry.
type NewProduct struct {
	Name            string `validate:"required"`
	Description     string
	Price           float64  `validate:"gt=0"`
	DiscountedPrice *float64 `validate:"omitempty,gt=0"`
	Category        string   `validate:"required"`
	Ratings         float64  `validate:"gte=0,lte=5"`
	Image           *Image
}

// Image is an uploaded picture. Content is read once during upload.
type Image struct {
	Filename    string
	ContentType string
	Content     []byte
}
