// Package catalog implements the product catalog: filtered listings,
// create/edit validation with duplicate detection, and soft deletion.
package catalog

import (
	"errors"
	"time"
)

// Product statuses. Deleted rows stay in storage and are excluded from
// every read path.
const (
	StatusDeleted  = -1
	StatusInactive = 0
	StatusActive   = 1
)

var (
	ErrInvalidInput = errors.New("input contains forbidden content")
	ErrValidation   = errors.New("validation failed")
	ErrDuplicate    = errors.New("product code or name already exists")
	ErrNotFound     = errors.New("not found")
)

// Product is the persisted catalog record.
type Product struct {
	ID            int64
	Code          string
	Name          string
	BrandID       int64
	PriceVnd      float64
	Stock         int
	Status        int
	Description   string
	ImageURL      string
	SearchKeyword string
	CreatedBy     int64
	UpdatedBy     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Brand is read-only from the catalog's perspective.
type Brand struct {
	ID   int64
	Name string
}

// ProductView is the projection returned to callers. Brand and account
// references are resolved to display strings.
type ProductView struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	BrandName   string    `json:"brandName"`
	PriceVnd    float64   `json:"priceVnd"`
	Stock       int       `json:"stock"`
	Status      int       `json:"status"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	CreatedBy   string    `json:"createdBy"`
	UpdatedBy   string    `json:"updatedBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProductFilter carries the optional listing dimensions. A nil Status
// means no restriction beyond the base exclusion of deleted rows.
type ProductFilter struct {
	Keyword   string
	BrandName string
	PriceFrom float64
	PriceTo   float64
	Price     float64
	StockFrom int
	StockTo   int
	Stock     int
	Status    *int
}

// HasPriceSignal reports whether any price dimension is set. The listing
// order switches to price-descending when it is.
func (f *ProductFilter) HasPriceSignal() bool {
	if f == nil {
		return false
	}
	return f.PriceFrom > 0 || f.PriceTo > 0 || f.Price > 0
}

// CreateProductInput is the payload for Create.
type CreateProductInput struct {
	Code        string
	Name        string
	BrandName   string
	PriceVnd    float64
	Stock       int
	Status      *int
	Description string
	ImageURL    string
	ActorID     int64
}

// EditProductInput is the payload for Edit. ImageURL is applied only
// when non-blank, ActorID only when it names a valid account.
type EditProductInput struct {
	ID          int64
	Code        string
	Name        string
	BrandName   string
	PriceVnd    float64
	Stock       int
	Status      int
	Description string
	ImageURL    string
	ActorID     int64
}
