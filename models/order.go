package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultItemSize is recorded on order items when the cart did not carry a size
const DefaultItemSize = "M"

// TrackingPrefix prefixes every tracking number
const TrackingPrefix = "TRK"

// PaymentMethod identifies how an order is paid
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentStripe         PaymentMethod = "stripe"
	PaymentRazorpay       PaymentMethod = "razorpay"
)

// Valid reports whether m is one of the supported payment methods
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentStripe, PaymentRazorpay:
		return true
	}
	return false
}

// ParsePaymentMethod normalizes s; an empty string means cash on delivery
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PaymentCashOnDelivery, true
	}
	m := PaymentMethod(s)
	return m, m.Valid()
}

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	StatusProcessing     OrderStatus = "Processing"
	StatusConfirmed      OrderStatus = "Confirmed"
	StatusShipped        OrderStatus = "Shipped"
	StatusOutForDelivery OrderStatus = "Out for Delivery"
	StatusDelivered      OrderStatus = "Delivered"
	StatusCancelled      OrderStatus = "Cancelled"
)

// statusRank orders the forward chain; Cancelled is off the chain
var statusRank = map[OrderStatus]int{
	StatusProcessing:     0,
	StatusConfirmed:      1,
	StatusShipped:        2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

// AllStatuses lists every status in display order
var AllStatuses = []OrderStatus{
	StatusProcessing,
	StatusConfirmed,
	StatusShipped,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition can leave s
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
// The chain only moves forward, Cancelled is reachable from any non-terminal
// status, and a same-status update is accepted as a no-op.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// ShippingDetails holds the delivery address; every field is required
type ShippingDetails struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// MissingFields returns the JSON names of the blank fields, in form order
func (d ShippingDetails) MissingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"firstName", d.FirstName},
		{"lastName", d.LastName},
		{"email", d.Email},
		{"street", d.Street},
		{"city", d.City},
		{"state", d.State},
		{"zipcode", d.Zipcode},
		{"country", d.Country},
		{"phone", d.Phone},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail is a basic shape check: something@domain.tld without spaces
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// OrderItem is one priced line of an order, frozen at creation time
type OrderItem struct {
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage"`
	UnitPrice    decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Size         string          `json:"size"`
	LineTotal    decimal.Decimal `json:"total"`
}

// Order represents an immutable order record
// Example:
// {
//   "orderId": "1736942400123",
//   "userId": "",
//   "items": [{"productId": "p1", "productName": "Blue Shirt", "price": "10", "quantity": 2, "size": "M", "total": "20"}],
//   "shippingDetails": {...},
//   "paymentMethod": "cod",
//   "deliveryFee": "5",
//   "totalAmount": "25",
//   "status": "Processing",
//   "trackingNumber": "TRK400123",
//   "orderDate": "2025-01-15T12:00:00Z"
// }
type Order struct {
	OrderID         string          `json:"orderId"`
	Owner           string          `json:"userId,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingDetails ShippingDetails `json:"shippingDetails"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	DeliveryFee     decimal.Decimal `json:"deliveryFee"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Status          OrderStatus     `json:"status"`
	TrackingNumber  string          `json:"trackingNumber"`
	OrderDate       time.Time       `json:"orderDate"`
	UpdatedAt       time.Time       `json:"updatedAt,omitempty"`
}

// Subtotal sums the frozen line totals
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal)
	}
	return sum
}

// TrackingNumberFor derives the tracking number from an order id: the
// prefix followed by the last six characters of the id.
func TrackingNumberFor(orderID string) string {
	if len(orderID) > 6 {
		orderID = orderID[len(orderID)-6:]
	}
	return TrackingPrefix + orderID
}

// CreateOrderRequest represents the body of POST /api/orders
type CreateOrderRequest struct {
	OrderID         string          `json:"orderId"`
	Owner           string          `json:"userId,omitempty"`
	Items           []OrderItem     `json:"items"`
	ShippingDetails ShippingDetails `json:"shippingDetails"`
	PaymentMethod   string          `json:"paymentMethod"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
}

// UpdateOrderStatusRequest represents the body of PUT /api/orders/{orderId}/status
type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}
