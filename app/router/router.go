package router

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/app/controller"
)

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-ID"

// Controllers groups the HTTP handlers the router dispatches to
type Controllers struct {
	Product *controller.ProductController
	Order   *controller.OrderController
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id and logs it once it is served
func requestLogger(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.Info("📥 request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}

// SetupRoutes registers every endpoint on a new router
func SetupRoutes(controllers *Controllers, logger *zap.Logger) *mux.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := mux.NewRouter()
	r.Use(requestLogger(logger))

	r.HandleFunc("/ping", pingHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Catalog and products
	api.HandleFunc("/catalog", controllers.Product.List).Methods(http.MethodGet)
	api.HandleFunc("/products", controllers.Product.List).Methods(http.MethodGet)
	api.HandleFunc("/products", controllers.Product.Create).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}", controllers.Product.Get).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", controllers.Product.Update).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", controllers.Product.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id}/image", controllers.Product.Image).Methods(http.MethodGet)

	// Orders
	api.HandleFunc("/orders", controllers.Order.Create).Methods(http.MethodPost)
	api.HandleFunc("/orders", controllers.Order.List).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderId}", controllers.Order.Get).Methods(http.MethodGet)
	api.HandleFunc("/orders/{orderId}", controllers.Order.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/orders/{orderId}/status", controllers.Order.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/orders/{orderId}/receipt", controllers.Order.Receipt).Methods(http.MethodGet)

	return r
}
