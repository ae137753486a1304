package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a storefront product with optional variants.
// Monetary fields are int64 cents. Stock fields are owned by the
// inventory ledger and never written through catalog updates.
type Product struct {
	ID                uuid.UUID         `json:"id"`
	Name              string            `json:"name"`
	Slug              string            `json:"slug"`
	SKU               string            `json:"sku"`
	Description       string            `json:"description"`
	ShortDescription  string            `json:"short_description"`
	CategoryID        *uuid.UUID        `json:"category_id,omitempty"`
	BasePrice         int64             `json:"base_price"`
	SellingPrice      int64             `json:"selling_price"`
	CurrentStock      int               `json:"current_stock"`
	AvgPurchasePrice  int64             `json:"avg_purchase_price"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	HasVariants       bool              `json:"has_variants"`
	Variants          []Variant         `json:"variants,omitempty"`
	Attributes        map[string]string `json:"attributes,omitempty"`
	Tags              []string          `json:"tags,omitempty"`
	Images            []string          `json:"images,omitempty"`
	IsActive          bool              `json:"is_active"`
	IsFeatured        bool              `json:"is_featured"`
	Rating            float64           `json:"rating"`
	NumReviews        int               `json:"num_reviews"`
	CreatedBy         uuid.UUID         `json:"created_by"`
	UpdatedBy         uuid.UUID         `json:"updated_by"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Variant represents a sellable variation of a product. Variants are
// owned by the product and replaced wholesale on product update.
type Variant struct {
	ID              uuid.UUID         `json:"id"`
	ProductID       uuid.UUID         `json:"product_id"`
	Name            string            `json:"name"`
	SKU             string            `json:"sku"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	AdditionalPrice int64             `json:"additional_price"`
	CurrentStock    int               `json:"current_stock"`
	IsActive        bool              `json:"is_active"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// UnitPrice returns the effective price for the variant: the product's
// base price plus the variant surcharge.
func (v Variant) UnitPrice(basePrice int64) int64 {
	return basePrice + v.AdditionalPrice
}
