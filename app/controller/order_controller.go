package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/models"
	"storefront/service"
)

// OrderServiceInterface is what OrderController needs from the order service
type OrderServiceInterface interface {
	Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	List(ctx context.Context, owner string) ([]models.Order, error)
	Get(ctx context.Context, orderID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// ReceiptRenderer produces printable receipts
type ReceiptRenderer interface {
	RenderHTML(ctx context.Context, orderID string) ([]byte, error)
	GeneratePDF(ctx context.Context, orderID string) ([]byte, error)
}

var (
	_ OrderServiceInterface = (*service.OrderService)(nil)
	_ ReceiptRenderer       = (*service.ReceiptService)(nil)
)

// OrderController handles HTTP requests for orders
type OrderController struct {
	orders   OrderServiceInterface
	receipts ReceiptRenderer
	logger   *zap.Logger
}

// NewOrderController creates a new OrderController
func NewOrderController(orders OrderServiceInterface, receipts ReceiptRenderer, logger *zap.Logger) *OrderController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderController{orders: orders, receipts: receipts, logger: logger}
}

// Create handles POST /api/orders
func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Info("⚠️ Create order: invalid body", zap.Error(err))
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	c.logger.Debug("📋 Create order: request decoded",
		zap.String("order_id", req.OrderID), zap.Int("items", len(req.Items)), zap.String("total", req.TotalAmount.String()))

	order, err := c.orders.Create(r.Context(), req)
	if err != nil {
		fail(w, c.logger, "Create order", err)
		return
	}
	c.logger.Info("✅ Order created", zap.String("order_id", order.OrderID), zap.String("tracking", order.TrackingNumber))
	writeData(w, http.StatusCreated, order)
}

// List handles GET /api/orders?owner=
func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	orders, err := c.orders.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		fail(w, c.logger, "List orders", err)
		return
	}
	writeList(w, orders, len(orders))
}

// Get handles GET /api/orders/{orderId}
func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	order, err := c.orders.Get(r.Context(), mux.Vars(r)["orderId"])
	if err != nil {
		fail(w, c.logger, "Get order", err)
		return
	}
	writeData(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/orders/{orderId}/status
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	order, err := c.orders.UpdateStatus(r.Context(), mux.Vars(r)["orderId"], req.Status)
	if err != nil {
		fail(w, c.logger, "Update order status", err)
		return
	}
	writeData(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{orderId}
func (c *OrderController) Delete(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	if err := c.orders.Delete(r.Context(), orderID); err != nil {
		fail(w, c.logger, "Delete order", err)
		return
	}
	c.logger.Info("🗑️ Order deleted", zap.String("order_id", orderID))
	writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: "Order deleted"})
}

// Receipt handles GET /api/orders/{orderId}/receipt?format=html|pdf
func (c *OrderController) Receipt(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "html"
	}

	switch format {
	case "html":
		html, err := c.receipts.RenderHTML(r.Context(), orderID)
		if err != nil {
			fail(w, c.logger, "Render receipt", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(html); err != nil {
			c.logger.Warn("⚠️ Receipt: write failed", zap.Error(err))
		}

	case "pdf":
		pdf, err := c.receipts.GeneratePDF(r.Context(), orderID)
		if err != nil {
			fail(w, c.logger, "Generate receipt PDF", err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"receipt_%s.pdf\"", orderID))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(pdf); err != nil {
			c.logger.Warn("⚠️ Receipt: write failed", zap.Error(err))
		}

	default:
		writeError(w, http.StatusBadRequest, "Invalid format. Valid formats: html, pdf")
	}
}
