package repository

import (
	"context"
	"errors"

	"storefront/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when an order status change breaks the lifecycle
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrDuplicate is returned when a row with the same key already exists
	ErrDuplicate = errors.New("already exists")
)

// ProductRepositoryInterface defines the contract for product repository operations
type ProductRepositoryInterface interface {
	List(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

// OrderRepositoryInterface defines the contract for order repository operations
type OrderRepositoryInterface interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID string) (*models.Order, error)
	List(ctx context.Context, owner string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, orderID string) error
}
