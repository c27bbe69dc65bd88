package controller

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/models"
	"storefront/service"
	"storefront/utils"
)

// maxUploadMemory bounds the multipart parts kept in memory
const maxUploadMemory = 32 << 20

// ProductServiceInterface is what ProductController needs from the product service
type ProductServiceInterface interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, input models.ProductInput, uploads []service.ImageUpload) (*models.Product, error)
	Update(ctx context.Context, id string, input models.ProductInput, uploads []service.ImageUpload) (*models.Product, error)
	Delete(ctx context.Context, id string) error
	Image(ctx context.Context, id, size string) ([]byte, string, error)
}

var _ ProductServiceInterface = (*service.ProductService)(nil)

// ProductController handles HTTP requests for the product catalog
type ProductController struct {
	products ProductServiceInterface
	logger   *zap.Logger
}

// NewProductController creates a new ProductController
func NewProductController(products ProductServiceInterface, logger *zap.Logger) *ProductController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductController{products: products, logger: logger}
}

// List handles GET /api/catalog
func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	products, err := c.products.List(r.Context())
	if err != nil {
		fail(w, c.logger, "List products", err)
		return
	}
	writeList(w, products, len(products))
}

// Get handles GET /api/products/{id}
func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	product, err := c.products.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		fail(w, c.logger, "Get product", err)
		return
	}
	writeData(w, http.StatusOK, product)
}

// Create handles POST /api/products (multipart/form-data)
func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	input, uploads, err := parseProductForm(r)
	if err != nil {
		c.logger.Info("⚠️ Create product: bad form", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := c.products.Create(r.Context(), input, uploads)
	if err != nil {
		fail(w, c.logger, "Create product", err)
		return
	}
	c.logger.Info("✅ Product created", zap.String("id", product.ID), zap.Int("images", len(product.Images)))
	writeData(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id} (multipart/form-data)
func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	input, uploads, err := parseProductForm(r)
	if err != nil {
		c.logger.Info("⚠️ Update product: bad form", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := c.products.Update(r.Context(), mux.Vars(r)["id"], input, uploads)
	if err != nil {
		fail(w, c.logger, "Update product", err)
		return
	}
	writeData(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}
func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := c.products.Delete(r.Context(), id); err != nil {
		fail(w, c.logger, "Delete product", err)
		return
	}
	c.logger.Info("🗑️ Product deleted", zap.String("id", id))
	writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Message: "Product deleted"})
}

// Image handles GET /api/products/{id}/image?size=thumb|medium|full
func (c *ProductController) Image(w http.ResponseWriter, r *http.Request) {
	size := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("size")))
	data, redirect, err := c.products.Image(r.Context(), mux.Vars(r)["id"], size)
	if err != nil {
		fail(w, c.logger, "Product image", err)
		return
	}
	if redirect != "" {
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		c.logger.Warn("⚠️ Product image: write failed", zap.Error(err))
	}
}

// parseProductForm reads the product fields and image files of a multipart
// request. Absent fields stay empty so updates keep the stored values.
func parseProductForm(r *http.Request) (models.ProductInput, []service.ImageUpload, error) {
	var input models.ProductInput
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return input, nil, fmt.Errorf("invalid multipart form: %w", err)
	}
	form := r.MultipartForm

	value := func(key string) (string, bool) {
		v, ok := form.Value[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return strings.TrimSpace(v[0]), true
	}

	input.Name, _ = value("name")
	input.Description, _ = value("description")
	input.Category, _ = value("category")
	input.SubCategory, _ = value("subCategory")

	if raw, ok := value("price"); ok && raw != "" {
		price, err := utils.ParseMoney(raw)
		if err != nil {
			return input, nil, fmt.Errorf("invalid price %q", raw)
		}
		input.Price = &price
	}
	if raw, ok := value("sizes"); ok {
		input.Sizes = utils.ParseSizes(raw)
		input.SizesSet = true
	}
	if raw, ok := value("bestseller"); ok && raw != "" {
		b := strings.EqualFold(raw, "true")
		input.Bestseller = &b
	}

	var uploads []service.ImageUpload
	for slot := 1; slot <= service.MaxProductImages; slot++ {
		files := form.File[fmt.Sprintf("image%d", slot)]
		if len(files) == 0 {
			continue
		}
		up, err := readUpload(files[0], slot)
		if err != nil {
			return input, nil, err
		}
		uploads = append(uploads, up)
	}
	// "images" files fill the slots not taken by an explicit imageN
	taken := make(map[int]bool, len(uploads))
	for _, up := range uploads {
		taken[up.Slot] = true
	}
	slot := 1
	for _, fh := range form.File["images"] {
		for taken[slot] {
			slot++
		}
		if slot > service.MaxProductImages {
			return input, nil, fmt.Errorf("at most %d images are allowed", service.MaxProductImages)
		}
		up, err := readUpload(fh, slot)
		if err != nil {
			return input, nil, err
		}
		uploads = append(uploads, up)
		taken[slot] = true
	}
	return input, uploads, nil
}

func readUpload(fh *multipart.FileHeader, slot int) (service.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return service.ImageUpload{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.ImageUpload{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return service.ImageUpload{Slot: slot, Filename: fh.Filename, Data: data}, nil
}
