// Package shop is the storefront state container: the catalog snapshot, the
// persisted cart, derived totals, search and order placement.
package shop

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/models"
	"storefront/pricing"
	"storefront/storage"
)

// Options wires a Shop to its collaborators. Source, Submitter and Lister are
// usually the same API client.
type Options struct {
	Source    CatalogSource
	Submitter OrderSubmitter
	Lister    OrderLister
	Store     storage.Store
	Engine    *pricing.Engine
	Logger    *zap.Logger
	Now       func() time.Time
}

// Shop is the state shared by the presentation layer
type Shop struct {
	catalog *Catalog
	cart    *Cart
	orders  *Orders
	engine  *pricing.Engine
	logger  *zap.Logger

	mu        sync.RWMutex
	lastQuery string
}

// New builds the container and restores the persisted cart and order history.
// It does not fetch the catalog; call Refresh for that.
func New(opts Options) (*Shop, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := opts.Engine
	if engine == nil {
		var err error
		if engine, err = pricing.NewEngineWithConfig(pricing.DefaultConfig()); err != nil {
			return nil, err
		}
	}

	catalog := NewCatalog(opts.Source, logger.Named("catalog"))
	cart := LoadCart(opts.Store, logger.Named("cart"))
	orders, err := NewOrders(OrdersOptions{
		Cart:      cart,
		Resolver:  catalog,
		Engine:    engine,
		Submitter: opts.Submitter,
		Lister:    opts.Lister,
		Store:     opts.Store,
		Logger:    logger.Named("orders"),
		Now:       opts.Now,
	})
	if err != nil {
		return nil, err
	}

	return &Shop{catalog: catalog, cart: cart, orders: orders, engine: engine, logger: logger}, nil
}

// Catalog exposes the catalog snapshot holder
func (s *Shop) Catalog() *Catalog { return s.catalog }

// Cart exposes the cart store
func (s *Shop) Cart() *Cart { return s.cart }

// Engine exposes the pricing engine
func (s *Shop) Engine() *pricing.Engine { return s.engine }

// Refresh fetches a new catalog snapshot and rekeys cart entries held under
// an alias of a product's canonical id
func (s *Shop) Refresh(ctx context.Context) ([]models.Product, error) {
	products, err := s.catalog.Refresh(ctx)
	if err == nil {
		if cerr := s.cart.Canonicalize(s.catalog); cerr != nil {
			s.logger.Warn("⚠️ cart canonicalization not persisted", zap.Error(cerr))
		}
	}
	return products, err
}

// Products returns the current catalog snapshot
func (s *Shop) Products() []models.Product {
	return s.catalog.Products()
}

// canonical maps an identity to the canonical id of the product it resolves
// to, so an alias and its canonical id share one cart entry
func (s *Shop) canonical(v interface{}) (Identity, error) {
	id, err := NewIdentity(v)
	if err != nil {
		return "", err
	}
	if p, err := s.catalog.Resolve(id); err == nil {
		return Identity(p.ID), nil
	}
	return id, nil
}

// Add puts one more unit of the product in the cart
func (s *Shop) Add(v interface{}) error {
	id, err := s.canonical(v)
	if err != nil {
		return err
	}
	return s.cart.Add(id)
}

// Remove takes one unit of the product out of the cart
func (s *Shop) Remove(v interface{}) error {
	id, err := s.canonical(v)
	if err != nil {
		return err
	}
	return s.cart.Remove(id)
}

// Delete drops the product from the cart
func (s *Shop) Delete(v interface{}) error {
	id, err := s.canonical(v)
	if err != nil {
		return err
	}
	return s.cart.Delete(id)
}

// SetQuantity sets the product's quantity; n < 1 drops it
func (s *Shop) SetQuantity(v interface{}, n int) error {
	id, err := s.canonical(v)
	if err != nil {
		return err
	}
	return s.cart.SetQuantity(id, n)
}

// Clear empties the cart
func (s *Shop) Clear() error {
	return s.cart.Clear()
}

// ItemCount is the number of units in the cart
func (s *Shop) ItemCount() int {
	return s.cart.ItemCount()
}

// CartLines joins the cart entries with their products; entries that do not
// resolve are skipped
func (s *Shop) CartLines() []models.CartLine {
	entries := s.cart.Entries()
	lines := make([]models.CartLine, 0, len(entries))
	for _, e := range entries {
		p, err := s.catalog.Resolve(e.ID)
		if err != nil {
			continue
		}
		lines = append(lines, models.CartLine{
			Product:   p,
			Quantity:  e.Quantity,
			LineTotal: pricing.LineTotal(p.Price, e.Quantity),
		})
	}
	return lines
}

func (s *Shop) pricingLines() []pricing.Line {
	cartLines := s.CartLines()
	lines := make([]pricing.Line, 0, len(cartLines))
	for _, l := range cartLines {
		lines = append(lines, pricing.Line{ProductID: l.Product.ID, UnitPrice: l.Product.Price, Quantity: l.Quantity})
	}
	return lines
}

// Amount is the cart subtotal at current catalog prices
func (s *Shop) Amount() decimal.Decimal {
	return s.engine.Amount(s.pricingLines())
}

// DeliveryFee is the fee charged on the current subtotal
func (s *Shop) DeliveryFee() decimal.Decimal {
	return s.engine.DeliveryFeeFor(s.Amount())
}

// Total is the subtotal plus the delivery fee
func (s *Shop) Total() decimal.Decimal {
	return s.engine.Total(s.Amount())
}

// Breakdown prices every resolvable cart line
func (s *Shop) Breakdown() pricing.Breakdown {
	return s.engine.Calculate(s.pricingLines())
}

// Search matches query against the current snapshot and remembers it
func (s *Shop) Search(query string) []models.Product {
	s.mu.Lock()
	s.lastQuery = query
	s.mu.Unlock()
	return Search(s.catalog.Products(), query)
}

// LastQuery is the query of the most recent Search, as typed
func (s *Shop) LastQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQuery
}

// PlaceOrder turns the cart into an order
func (s *Shop) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (models.Order, error) {
	return s.orders.PlaceOrder(ctx, req)
}

// Orders returns the local order history, newest first
func (s *Shop) Orders() []models.Order {
	return s.orders.History()
}

// SyncOrders refreshes order statuses from the backend
func (s *Shop) SyncOrders(ctx context.Context, owner string) (SyncReport, error) {
	return s.orders.Sync(ctx, owner)
}
