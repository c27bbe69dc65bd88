package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/models"
	"storefront/pricing"
	"storefront/storage"
)

// OrdersKey is the storage key the local order history is persisted under
const OrdersKey = "orders"

var errNoSubmitter = errors.New("no order submitter configured")

// OrderSubmitter sends a new order to the backend
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (models.Order, error)
}

// OrderLister reads previously created orders from the backend
type OrderLister interface {
	ListOrders(ctx context.Context, owner string) ([]models.Order, error)
}

// PlaceOrderRequest is the shopper input needed to turn the cart into an order
type PlaceOrderRequest struct {
	Shipping      models.ShippingDetails
	PaymentMethod string
	Owner         string
}

// StatusRejection records a server status that is not a valid transition
type StatusRejection struct {
	OrderID string
	From    models.OrderStatus
	To      models.OrderStatus
}

// SyncReport summarizes what a history sync changed
type SyncReport struct {
	Updated  []string
	Added    []string
	Rejected []StatusRejection
}

// OrdersOptions wires the order materializer to its collaborators
type OrdersOptions struct {
	Cart      *Cart
	Resolver  Resolver
	Engine    *pricing.Engine
	Submitter OrderSubmitter
	Lister    OrderLister
	Store     storage.Store
	Logger    *zap.Logger
	Now       func() time.Time
}

// Orders turns cart snapshots into immutable orders and keeps the local history
type Orders struct {
	cart      *Cart
	resolver  Resolver
	engine    *pricing.Engine
	submitter OrderSubmitter
	lister    OrderLister
	store     storage.Store
	logger    *zap.Logger
	now       func() time.Time

	placeMu sync.Mutex // one placement at a time

	mu      sync.RWMutex
	history []models.Order
	lastID  int64
}

// NewOrders builds the materializer and loads the persisted history
func NewOrders(opts OrdersOptions) (*Orders, error) {
	if opts.Cart == nil || opts.Resolver == nil {
		return nil, errors.New("orders: cart and resolver are required")
	}
	o := &Orders{
		cart:      opts.Cart,
		resolver:  opts.Resolver,
		engine:    opts.Engine,
		submitter: opts.Submitter,
		lister:    opts.Lister,
		store:     opts.Store,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if o.engine == nil {
		o.engine, _ = pricing.NewEngineWithConfig(pricing.DefaultConfig())
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.loadHistory()
	return o, nil
}

func (o *Orders) loadHistory() {
	if o.store == nil {
		return
	}
	data, err := o.store.Load(OrdersKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			o.logger.Warn("⚠️ could not read order history, starting empty", zap.Error(err))
		}
		return
	}
	var history []models.Order
	if err := json.Unmarshal(data, &history); err != nil {
		o.logger.Warn("⚠️ order history is corrupt, starting empty", zap.Error(err))
		return
	}
	o.history = history
	for _, ord := range history {
		if id, err := strconv.ParseInt(ord.OrderID, 10, 64); err == nil && id > o.lastID {
			o.lastID = id
		}
	}
}

// PlaceOrder validates the input, freezes the current cart at current catalog
// prices and submits the order. The cart and history change only after the
// backend accepted the order.
func (o *Orders) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (models.Order, error) {
	o.placeMu.Lock()
	defer o.placeMu.Unlock()

	entries, version := o.cart.snapshot()
	items, lines := o.freeze(entries)
	if len(items) == 0 {
		return models.Order{}, &ValidationError{Fields: []string{"cart"}, Message: "cart is empty"}
	}

	if err := validateShipping(req.Shipping); err != nil {
		return models.Order{}, err
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return models.Order{}, &ValidationError{
			Fields:  []string{"paymentMethod"},
			Message: fmt.Sprintf("unsupported payment method %q", req.PaymentMethod),
		}
	}

	breakdown := o.engine.Calculate(lines)
	now := o.now().UTC()
	orderID := o.nextOrderID(now)

	order := models.Order{
		OrderID:         orderID,
		Owner:           req.Owner,
		Items:           items,
		ShippingDetails: trimShipping(req.Shipping),
		PaymentMethod:   method,
		DeliveryFee:     breakdown.DeliveryFee,
		TotalAmount:     breakdown.Total,
		Status:          models.StatusProcessing,
		TrackingNumber:  models.TrackingNumberFor(orderID),
		OrderDate:       now,
	}

	if o.submitter == nil {
		return models.Order{}, &SubmissionError{OrderID: orderID, Err: errNoSubmitter}
	}
	_, err := o.submitter.CreateOrder(ctx, models.CreateOrderRequest{
		OrderID:         order.OrderID,
		Owner:           order.Owner,
		Items:           order.Items,
		ShippingDetails: order.ShippingDetails,
		PaymentMethod:   string(order.PaymentMethod),
		TotalAmount:     order.TotalAmount,
	})
	if err != nil {
		o.logger.Warn("⚠️ order submission failed, cart kept", zap.String("order_id", orderID), zap.Error(err))
		return models.Order{}, &SubmissionError{OrderID: orderID, Err: err}
	}

	o.mu.Lock()
	o.history = append([]models.Order{order}, o.history...)
	if err := o.persistLocked(); err != nil {
		o.logger.Error("❌ failed to persist order history", zap.String("order_id", orderID), zap.Error(err))
	}
	o.mu.Unlock()

	if err := o.cart.settleOrder(version, entries); err != nil {
		o.logger.Error("❌ failed to persist cleared cart", zap.String("order_id", orderID), zap.Error(err))
	}

	o.logger.Info("✅ order placed",
		zap.String("order_id", orderID),
		zap.String("tracking", order.TrackingNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	return order, nil
}

// freeze joins the cart entries with their current catalog products.
// Entries that no longer resolve are left out.
func (o *Orders) freeze(entries []Entry) ([]models.OrderItem, []pricing.Line) {
	items := make([]models.OrderItem, 0, len(entries))
	lines := make([]pricing.Line, 0, len(entries))
	for _, e := range entries {
		p, err := o.resolver.Resolve(e.ID)
		if err != nil {
			o.logger.Debug("skipping unresolved cart entry", zap.String("id", e.ID.String()))
			continue
		}
		items = append(items, models.OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductImage: p.Image,
			UnitPrice:    p.Price,
			Quantity:     e.Quantity,
			Size:         models.DefaultItemSize,
			LineTotal:    pricing.LineTotal(p.Price, e.Quantity),
		})
		lines = append(lines, pricing.Line{ProductID: p.ID, UnitPrice: p.Price, Quantity: e.Quantity})
	}
	return items, lines
}

// nextOrderID is the creation time in Unix milliseconds, bumped past the
// last issued id so two orders in the same millisecond never collide
func (o *Orders) nextOrderID(now time.Time) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := now.UnixMilli()
	if id <= o.lastID {
		id = o.lastID + 1
	}
	o.lastID = id
	return strconv.FormatInt(id, 10)
}

func validateShipping(d models.ShippingDetails) error {
	if missing := d.MissingFields(); len(missing) > 0 {
		return &ValidationError{Fields: missing, Message: "missing shipping fields"}
	}
	if !models.ValidEmail(d.Email) {
		return &ValidationError{Fields: []string{"email"}, Message: "invalid email address"}
	}
	return nil
}

func trimShipping(d models.ShippingDetails) models.ShippingDetails {
	return models.ShippingDetails{
		FirstName: strings.TrimSpace(d.FirstName),
		LastName:  strings.TrimSpace(d.LastName),
		Email:     strings.TrimSpace(d.Email),
		Street:    strings.TrimSpace(d.Street),
		City:      strings.TrimSpace(d.City),
		State:     strings.TrimSpace(d.State),
		Zipcode:   strings.TrimSpace(d.Zipcode),
		Country:   strings.TrimSpace(d.Country),
		Phone:     strings.TrimSpace(d.Phone),
	}
}

// History returns the local orders, newest first
func (o *Orders) History() []models.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]models.Order(nil), o.history...)
}

// Sync fetches the owner's orders from the backend and applies their status
// to the local history. Orders unknown locally are added. A status that is
// not a valid transition from the local one is rejected and reported.
func (o *Orders) Sync(ctx context.Context, owner string) (SyncReport, error) {
	var report SyncReport
	if o.lister == nil {
		return report, &FetchError{Op: "orders", Err: errors.New("no order lister configured")}
	}
	remote, err := o.lister.ListOrders(ctx, owner)
	if err != nil {
		return report, &FetchError{Op: "orders", Err: err}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	index := make(map[string]int, len(o.history))
	for i, ord := range o.history {
		index[ord.OrderID] = i
	}

	for _, r := range remote {
		i, ok := index[r.OrderID]
		if !ok {
			if r.OrderID == "" || !r.Status.Valid() {
				continue
			}
			o.history = append(o.history, r)
			index[r.OrderID] = len(o.history) - 1
			report.Added = append(report.Added, r.OrderID)
			continue
		}
		local := &o.history[i]
		if local.Status == r.Status {
			continue
		}
		if !local.Status.CanTransitionTo(r.Status) {
			o.logger.Warn("⚠️ rejecting invalid status transition",
				zap.String("order_id", r.OrderID),
				zap.String("from", string(local.Status)),
				zap.String("to", string(r.Status)))
			report.Rejected = append(report.Rejected, StatusRejection{OrderID: r.OrderID, From: local.Status, To: r.Status})
			continue
		}
		local.Status = r.Status
		local.UpdatedAt = r.UpdatedAt
		report.Updated = append(report.Updated, r.OrderID)
	}

	if len(report.Added) == 0 && len(report.Updated) == 0 {
		return report, nil
	}
	sort.SliceStable(o.history, func(i, j int) bool {
		return o.history[i].OrderDate.After(o.history[j].OrderDate)
	})
	if err := o.persistLocked(); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orders) persistLocked() error {
	if o.store == nil {
		return nil
	}
	data, err := json.Marshal(o.history)
	if err != nil {
		return fmt.Errorf("encode order history: %w", err)
	}
	if err := o.store.Save(OrdersKey, data); err != nil {
		return fmt.Errorf("persist order history: %w", err)
	}
	return nil
}
