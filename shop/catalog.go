package shop

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/models"
)

// CatalogSource fetches the raw product list from the backend
type CatalogSource interface {
	FetchCatalog(ctx context.Context) ([]models.RawProduct, error)
}

// Resolver dereferences an identity against the current catalog snapshot
type Resolver interface {
	Resolve(id Identity) (models.Product, error)
}

// FixtureProducts is installed when the very first refresh fails, so the
// storefront has something to show
func FixtureProducts() []models.Product {
	return []models.Product{
		{
			ID:          "1",
			Name:        "Sample T-Shirt",
			Description: "A comfortable sample t-shirt",
			Price:       decimal.RequireFromString("29.99"),
			Category:    "Men",
			SubCategory: "Topwear",
			Sizes:       []string{"S", "M", "L"},
			Images:      []string{},
			Image:       models.PlaceholderImage,
			Bestseller:  true,
		},
	}
}

// Catalog holds the product snapshot. A snapshot is only ever replaced whole.
type Catalog struct {
	source CatalogSource
	logger *zap.Logger

	mu         sync.RWMutex
	products   []models.Product
	installed  bool // a fetched or fixture snapshot exists
	fixture    bool
	inFlight   int
	err        error
	generation uint64 // bumped when a refresh starts
	applied    uint64 // generation of the installed snapshot
	fetchedAt  time.Time
}

// NewCatalog creates an empty catalog fed by source
func NewCatalog(source CatalogSource, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{source: source, logger: logger}
}

// Ensure Catalog implements Resolver
var _ Resolver = (*Catalog)(nil)

// Refresh fetches and installs a new snapshot. On failure the current
// snapshot is kept, or the fixture snapshot is installed when there is none,
// and a *FetchError is returned alongside the snapshot in effect.
// A refresh that finishes after a newer one has already installed its
// result is discarded.
func (c *Catalog) Refresh(ctx context.Context) ([]models.Product, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.inFlight++
	c.mu.Unlock()

	c.logger.Debug("🔄 refreshing catalog", zap.Uint64("generation", gen))

	var raws []models.RawProduct
	var err error
	if c.source == nil {
		err = errNoSource
	} else {
		raws, err = c.source.FetchCatalog(ctx)
	}

	var products []models.Product
	if err == nil {
		products = normalizeSnapshot(raws, c.logger)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--

	if err != nil {
		fe := &FetchError{Op: "catalog", Err: err}
		if gen > c.applied {
			c.err = fe
		}
		if !c.installed {
			c.products = FixtureProducts()
			c.installed = true
			c.fixture = true
			c.logger.Warn("⚠️ catalog fetch failed, installed fixture catalog", zap.Error(err))
		} else {
			c.logger.Warn("⚠️ catalog fetch failed, keeping previous snapshot",
				zap.Int("products", len(c.products)), zap.Error(err))
		}
		return c.snapshotLocked(), fe
	}

	if gen < c.applied {
		c.logger.Debug("⏭️ discarding superseded catalog refresh", zap.Uint64("generation", gen))
		return c.snapshotLocked(), nil
	}

	c.products = products
	c.installed = true
	c.fixture = false
	c.applied = gen
	c.err = nil
	c.fetchedAt = time.Now()
	c.logger.Info("✅ catalog refreshed", zap.Int("products", len(products)))
	return c.snapshotLocked(), nil
}

// SetProducts installs a snapshot directly, replacing the current one
func (c *Catalog) SetProducts(products []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.applied = c.generation
	c.products = append([]models.Product(nil), products...)
	c.installed = true
	c.fixture = false
	c.err = nil
	c.fetchedAt = time.Now()
}

func (c *Catalog) snapshotLocked() []models.Product {
	return append([]models.Product(nil), c.products...)
}

// Products returns the current snapshot in catalog order
func (c *Catalog) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Loading reports whether a refresh is in flight
func (c *Catalog) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inFlight > 0
}

// Err returns the error of the latest failed refresh, nil after a success
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// IsFixture reports whether the installed snapshot is the fixture data
func (c *Catalog) IsFixture() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fixture
}

// FetchedAt returns when the installed snapshot was fetched
func (c *Catalog) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Resolve finds the product whose id or alias equals id
func (c *Catalog) Resolve(id Identity) (models.Product, error) {
	if id == "" {
		return models.Product{}, ErrNotFound
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == string(id) || (p.LegacyID != "" && p.LegacyID == string(id)) {
			return p, nil
		}
	}
	return models.Product{}, ErrNotFound
}

// ResolveAny builds the identity from a loosely typed value, then resolves it
func (c *Catalog) ResolveAny(v interface{}) (models.Product, error) {
	id, err := NewIdentity(v)
	if err != nil {
		return models.Product{}, ErrNotFound
	}
	return c.Resolve(id)
}

// ByCategory returns the products of a category, in catalog order
func (c *Catalog) ByCategory(category string) []models.Product {
	return c.filter(func(p models.Product) bool { return p.Category == category })
}

// BySubCategory returns the products of a sub-category, in catalog order
func (c *Catalog) BySubCategory(subCategory string) []models.Product {
	return c.filter(func(p models.Product) bool { return p.SubCategory == subCategory })
}

// Bestsellers returns the products flagged as bestsellers
func (c *Catalog) Bestsellers() []models.Product {
	return c.filter(func(p models.Product) bool { return p.Bestseller })
}

// Latest returns up to n products, newest first. Products without a
// creation time sort last; ties keep catalog order.
func (c *Catalog) Latest(n int) []models.Product {
	products := c.Products()
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	if n >= 0 && n < len(products) {
		products = products[:n]
	}
	return products
}

func (c *Catalog) filter(keep func(models.Product) bool) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []models.Product{}
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
