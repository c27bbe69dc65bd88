package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storefront/models"
)

const productColumns = `id, COALESCE(legacy_id, ''), name, description, price, category, sub_category, sizes, images, bestseller, created_at`

// ProductRepository handles database operations for products
type ProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *ProductRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductRepository{db: db, logger: logger}
}

// Ensure ProductRepository implements ProductRepositoryInterface
var _ ProductRepositoryInterface = (*ProductRepository)(nil)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	var sizes, images []byte
	if err := row.Scan(
		&p.ID,
		&p.LegacyID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.SubCategory,
		&sizes,
		&images,
		&p.Bestseller,
		&p.CreatedAt,
	); err != nil {
		return p, err
	}
	if err := decodeStrings(sizes, &p.Sizes); err != nil {
		return p, fmt.Errorf("decode sizes of %s: %w", p.ID, err)
	}
	if err := decodeStrings(images, &p.Images); err != nil {
		return p, fmt.Errorf("decode images of %s: %w", p.ID, err)
	}
	p.Image = models.PlaceholderImage
	if len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
	return p, nil
}

func decodeStrings(data []byte, out *[]string) error {
	*out = []string{}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func encodeStrings(values []string) []byte {
	if values == nil {
		values = []string{}
	}
	data, _ := json.Marshal(values)
	return data
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// List returns every product, oldest first
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("❌ Error querying products", zap.Error(err))
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("❌ Error scanning product", zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	r.logger.Debug("✓ products listed", zap.Int("count", len(products)))
	return products, nil
}

// GetByID finds a product by its id or its legacy id
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 OR legacy_id = $1 LIMIT 1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}
	return &p, nil
}

// Insert stores a new product. CreatedAt defaults to now.
func (r *ProductRepository) Insert(ctx context.Context, product *models.Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO products (id, legacy_id, name, description, price, category, sub_category, sizes, images, bestseller, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		nullIfEmpty(product.LegacyID),
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.SubCategory,
		encodeStrings(product.Sizes),
		encodeStrings(product.Images),
		product.Bestseller,
		product.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.logger.Error("❌ Error inserting product", zap.String("id", product.ID), zap.Error(err))
		return fmt.Errorf("failed to insert product: %w", err)
	}
	r.logger.Info("✓ product created", zap.String("id", product.ID), zap.String("name", product.Name))
	return nil
}

// Update overwrites every mutable column of an existing product
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5, sub_category = $6,
			sizes = $7, images = $8, bestseller = $9
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Category,
		product.SubCategory,
		encodeStrings(product.Sizes),
		encodeStrings(product.Images),
		product.Bestseller,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireAffected(res)
}

// Delete removes a product by id
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1 OR legacy_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	r.logger.Info("🗑️ product deleted", zap.String("id", id))
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
