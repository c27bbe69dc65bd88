package shop

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/models"
)

// DefaultCategory is assigned to products that arrive without one
const DefaultCategory = "Uncategorized"

// NormalizeProduct converts a wire record into the canonical product shape.
// The canonical id is "_id" when present, otherwise "id"; the other becomes the
// alias, falling back to "legacyId" when the pair gives none.
func NormalizeProduct(raw models.RawProduct) (models.Product, error) {
	mongoID, err := identityFromJSON(raw.MongoID)
	if err != nil {
		return models.Product{}, fmt.Errorf("_id: %w", err)
	}
	plainID, err := identityFromJSON(raw.ID)
	if err != nil {
		return models.Product{}, fmt.Errorf("id: %w", err)
	}
	legacyID, err := identityFromJSON(raw.LegacyID)
	if err != nil {
		return models.Product{}, fmt.Errorf("legacyId: %w", err)
	}

	p := models.Product{
		Name:        strings.TrimSpace(raw.Name),
		Description: raw.Description,
		Price:       parsePrice(raw.Price),
		Category:    strings.TrimSpace(raw.Category),
		SubCategory: strings.TrimSpace(raw.SubCategory),
		Sizes:       raw.Sizes,
		Bestseller:  raw.Bestseller != nil && *raw.Bestseller,
		CreatedAt:   parseTimestamp(raw.CreatedAt),
	}

	switch {
	case mongoID != "":
		p.ID = mongoID.String()
		if plainID != "" && plainID != mongoID {
			p.LegacyID = plainID.String()
		}
	case plainID != "":
		p.ID = plainID.String()
	default:
		return models.Product{}, fmt.Errorf("%w: product %q has no id", ErrInvalidIdentity, raw.Name)
	}
	if p.LegacyID == "" && legacyID != "" && legacyID.String() != p.ID {
		p.LegacyID = legacyID.String()
	}

	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.SubCategory == "" {
		p.SubCategory = strings.TrimSpace(raw.SubCatogory)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = parseTimestamp(raw.Date)
	}
	if p.Sizes == nil {
		p.Sizes = []string{}
	}

	p.Images = make([]string, 0, len(raw.Images))
	for _, img := range raw.Images {
		if img = strings.TrimSpace(img); img != "" {
			p.Images = append(p.Images, img)
		}
	}
	p.Image = models.PlaceholderImage
	if len(p.Images) > 0 {
		p.Image = p.Images[0]
	}

	return p, nil
}

// normalizeSnapshot normalizes every record, dropping the ones without an id
// and later duplicates of an id already seen
func normalizeSnapshot(raws []models.RawProduct, logger *zap.Logger) []models.Product {
	products := make([]models.Product, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for i, raw := range raws {
		p, err := NormalizeProduct(raw)
		if err != nil {
			logger.Warn("⚠️ skipping catalog record", zap.Int("index", i), zap.Error(err))
			continue
		}
		if seen[p.ID] {
			logger.Warn("⚠️ duplicate product id in catalog", zap.String("id", p.ID))
			continue
		}
		seen[p.ID] = true
		products = append(products, p)
	}
	return products
}

// parsePrice accepts a JSON number or a numeric string; anything else,
// including negative amounts, prices to zero
func parsePrice(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// parseTimestamp accepts an RFC3339 string or Unix milliseconds
func parseTimestamp(raw json.RawMessage) time.Time {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}
	}
	if unq, err := strconv.Unquote(s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, unq)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
