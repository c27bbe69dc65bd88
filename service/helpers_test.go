package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/repository"
)

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[string]models.Product
}

func newFakeProductRepo(products ...models.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: map[string]models.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

var _ repository.ProductRepositoryInterface = (*fakeProductRepo)(nil)

func (r *fakeProductRepo) List(ctx context.Context) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.ID == id || (p.LegacyID != "" && p.LegacyID == id) {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeProductRepo) Insert(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return repository.ErrDuplicate
	}
	r.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	r.products[p.ID] = *p
	return nil
}

func (r *fakeProductRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]models.Order{}}
}

var _ repository.OrderRepositoryInterface = (*fakeOrderRepo)(nil)

func (r *fakeOrderRepo) Create(ctx context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.OrderID]; ok {
		return repository.ErrDuplicate
	}
	r.orders[o.OrderID] = *o
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r *fakeOrderRepo) List(ctx context.Context, owner string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if owner == "" || o.Owner == owner {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, o.Status, status)
	}
	o.Status = status
	r.orders[id] = o
	return &o, nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

type fakeImageStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	names     []string
	deleted   []string
	downloads int
	next      int
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{files: map[string][]byte{}}
}

var _ ImageStoreInterface = (*fakeImageStore)(nil)

func (s *fakeImageStore) UploadImage(ctx context.Context, name string, data []byte) (StoredImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("file%d", s.next)
	s.files[id] = data
	s.names = append(s.names, name)
	return StoredImage{FileID: id, URL: DriveImageURL(id)}, nil
}

func (s *fakeImageStore) DownloadImage(ctx context.Context, fileID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloads++
	data, ok := s.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}

func (s *fakeImageStore) DeleteImage(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, fileID)
	s.deleted = append(s.deleted, fileID)
	return nil
}

// pngImage encodes a solid w×h PNG
func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func catalogProduct(id, name, price string) models.Product {
	return models.Product{
		ID:        id,
		Name:      name,
		Price:     dec(price),
		Category:  "Men",
		Sizes:     []string{"M"},
		Images:    []string{},
		Image:     models.PlaceholderImage,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func shipping() models.ShippingDetails {
	return models.ShippingDetails{
		FirstName: "Ana",
		LastName:  "Diaz",
		Email:     "ana@example.com",
		Street:    "1 Main St",
		City:      "Springfield",
		State:     "IL",
		Zipcode:   "62701",
		Country:   "US",
		Phone:     "555-0100",
	}
}
