package shop

import (
	"strings"

	"storefront/models"
)

// Search returns the products whose name, description, category or
// sub-category contains query, case-insensitively, in snapshot order.
// A blank query matches nothing.
func Search(products []models.Product, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	results := []models.Product{}
	if q == "" {
		return results
	}
	for _, p := range products {
		if matches(p, q) {
			results = append(results, p)
		}
	}
	return results
}

func matches(p models.Product, q string) bool {
	for _, field := range [...]string{p.Name, p.Description, p.Category, p.SubCategory} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
