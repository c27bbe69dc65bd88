package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PlaceholderImage is the display image of a product that has no images
const PlaceholderImage = "/static/placeholder.png"

// Product represents a catalog entry after normalization
type Product struct {
	ID          string          `json:"id"`
	LegacyID    string          `json:"legacyId,omitempty"` // alias the backend may also send (e.g. "_id")
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	SubCategory string          `json:"subCategory"`
	Sizes       []string        `json:"sizes"`
	Images      []string        `json:"images"`
	Image       string          `json:"image"` // first element of Images or PlaceholderImage
	Bestseller  bool            `json:"bestseller"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// RawProduct is a product as it arrives over the wire, before normalization.
// Identity and price fields are kept raw because backends disagree on their shape.
type RawProduct struct {
	MongoID     json.RawMessage `json:"_id,omitempty"`
	ID          json.RawMessage `json:"id,omitempty"`
	LegacyID    json.RawMessage `json:"legacyId,omitempty"` // alias as sent by this backend
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price,omitempty"`
	Category    string          `json:"category"`
	SubCategory string          `json:"subCategory"`
	SubCatogory string          `json:"subCatogory,omitempty"` // legacy misspelling still sent by old records
	Sizes       []string        `json:"sizes,omitempty"`
	Images      []string        `json:"images,omitempty"`
	Bestseller  *bool           `json:"bestseller,omitempty"`
	CreatedAt   json.RawMessage `json:"createdAt,omitempty"`
	Date        json.RawMessage `json:"date,omitempty"`
}

// ProductInput represents the fields accepted when creating or updating a product.
// Empty fields on update keep the stored value.
type ProductInput struct {
	Name        string
	Description string
	Price       *decimal.Decimal
	Category    string
	SubCategory string
	Sizes       []string
	SizesSet    bool
	Bestseller  *bool
}
