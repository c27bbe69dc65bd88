package models

import "github.com/shopspring/decimal"

// APIResponse is the envelope every backend endpoint answers with
// Example: {"success": true, "data": [...]}
// Example: {"success": false, "message": "Order not found"}
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// CartLine is a cart entry joined with its resolved product
type CartLine struct {
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}
