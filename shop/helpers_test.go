package shop

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/models"
	"storefront/storage"
)

type stubSource struct {
	mu    sync.Mutex
	raws  []models.RawProduct
	err   error
	calls int
}

func (s *stubSource) FetchCatalog(ctx context.Context) ([]models.RawProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.raws, nil
}

type stubSubmitter struct {
	err  error
	reqs []models.CreateOrderRequest
}

func (s *stubSubmitter) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (models.Order, error) {
	s.reqs = append(s.reqs, req)
	if s.err != nil {
		return models.Order{}, s.err
	}
	return models.Order{OrderID: req.OrderID, Status: models.StatusProcessing}, nil
}

type stubLister struct {
	orders []models.Order
	err    error
}

func (s *stubLister) ListOrders(ctx context.Context, owner string) ([]models.Order, error) {
	return s.orders, s.err
}

// failingStore accepts loads but rejects every save
type failingStore struct {
	*storage.MemoryStore
}

func (f failingStore) Save(key string, data []byte) error {
	return errors.New("disk full")
}

func rawProduct(id, name, price string) models.RawProduct {
	return models.RawProduct{
		ID:       json.RawMessage(`"` + id + `"`),
		Name:     name,
		Price:    json.RawMessage(price),
		Category: "Men",
	}
}

func product(id, name, price string) models.Product {
	return models.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "Men",
		Sizes:    []string{},
		Images:   []string{},
		Image:    models.PlaceholderImage,
	}
}

func validShipping() models.ShippingDetails {
	return models.ShippingDetails{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Street:    "12 Analytical St",
		City:      "London",
		State:     "Greater London",
		Zipcode:   "N1 9GU",
		Country:   "UK",
		Phone:     "+44 20 7946 0000",
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
