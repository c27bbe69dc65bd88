package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"storefront/models"
	"storefront/pricing"
	"storefront/repository"
	"storefront/utils"
)

// OrderService validates, prices and stores orders
type OrderService struct {
	orders   repository.OrderRepositoryInterface
	products repository.ProductRepositoryInterface
	engine   *pricing.Engine
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(orders repository.OrderRepositoryInterface, products repository.ProductRepositoryInterface, engine *pricing.Engine, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{orders: orders, products: products, engine: engine, logger: logger, now: time.Now}
}

// Create checks the request, re-prices every line from the catalog and stores
// the order. Submitted prices or totals that differ from the server's are
// rejected with ErrTotalMismatch.
func (s *OrderService) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, invalid("order has no items", "items")
	}
	if missing := req.ShippingDetails.MissingFields(); len(missing) > 0 {
		return nil, invalid("missing shipping fields", missing...)
	}
	if !models.ValidEmail(req.ShippingDetails.Email) {
		return nil, invalid("invalid email address", "email")
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, invalid(fmt.Sprintf("unsupported payment method %q", req.PaymentMethod), "paymentMethod")
	}

	now := s.now().UTC()
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		orderID = strconv.FormatInt(now.UnixMilli(), 10)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	lines := make([]pricing.Line, 0, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity < 1 {
			return nil, invalid(fmt.Sprintf("item %d: quantity must be at least 1", i), "items")
		}
		product, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid(fmt.Sprintf("item %d: unknown product %q", i, it.ProductID), "items")
			}
			return nil, err
		}

		lineTotal := pricing.LineTotal(product.Price, it.Quantity)
		if !it.UnitPrice.Equal(product.Price) || !it.LineTotal.Equal(lineTotal) {
			s.logger.Warn("⚠️ order line price mismatch",
				zap.String("order_id", orderID),
				zap.String("product_id", product.ID),
				zap.String("submitted", it.LineTotal.String()),
				zap.String("computed", lineTotal.String()))
			return nil, fmt.Errorf("%w: item %d", ErrTotalMismatch, i)
		}

		size := utils.NormalizeSize(it.Size)
		if size == "" {
			size = models.DefaultItemSize
		}
		name := it.ProductName
		if name == "" {
			name = product.Name
		}
		image := it.ProductImage
		if image == "" {
			image = product.Image
		}

		items = append(items, models.OrderItem{
			ProductID:    product.ID,
			ProductName:  name,
			ProductImage: image,
			UnitPrice:    product.Price,
			Quantity:     it.Quantity,
			Size:         size,
			LineTotal:    lineTotal,
		})
		lines = append(lines, pricing.Line{ProductID: product.ID, UnitPrice: product.Price, Quantity: it.Quantity})
	}

	breakdown := s.engine.Calculate(lines)
	if !req.TotalAmount.Equal(breakdown.Total) {
		s.logger.Warn("⚠️ order total mismatch",
			zap.String("order_id", orderID),
			zap.String("submitted", req.TotalAmount.String()),
			zap.String("computed", breakdown.Total.String()))
		return nil, fmt.Errorf("%w: submitted %s, computed %s", ErrTotalMismatch, req.TotalAmount.StringFixed(2), breakdown.Total.StringFixed(2))
	}

	order := &models.Order{
		OrderID:         orderID,
		Owner:           req.Owner,
		Items:           items,
		ShippingDetails: req.ShippingDetails,
		PaymentMethod:   method,
		DeliveryFee:     breakdown.DeliveryFee,
		TotalAmount:     breakdown.Total,
		Status:          models.StatusProcessing,
		TrackingNumber:  models.TrackingNumberFor(orderID),
		OrderDate:       now,
		UpdatedAt:       now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns the orders of owner, or all orders when owner is empty
func (s *OrderService) List(ctx context.Context, owner string) ([]models.Order, error) {
	return s.orders.List(ctx, strings.TrimSpace(owner))
}

// Get returns one order
func (s *OrderService) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// UpdateStatus moves an order along its lifecycle
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalid(fmt.Sprintf("unknown status %q", status), "status")
	}
	return s.orders.UpdateStatus(ctx, orderID, status)
}

// Delete removes an order
func (s *OrderService) Delete(ctx context.Context, orderID string) error {
	return s.orders.Delete(ctx, orderID)
}
