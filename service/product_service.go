package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/models"
	"storefront/repository"
)

// MaxProductImages is the number of image slots a product has (image1..image4)
const MaxProductImages = 4

// ImageUpload is one uploaded file destined for an image slot (1-based)
type ImageUpload struct {
	Slot     int
	Filename string
	Data     []byte
}

// ProductService handles product catalog management
type ProductService struct {
	repo      repository.ProductRepositoryInterface
	images    ImageStoreInterface
	optimizer *ImageOptimizer
	logger    *zap.Logger
	newID     func() string
}

// NewProductService creates a new ProductService. images may be nil, in which
// case uploads fail with ErrImagesUnavailable.
func NewProductService(repo repository.ProductRepositoryInterface, images ImageStoreInterface, optimizer *ImageOptimizer, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:      repo,
		images:    images,
		optimizer: optimizer,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// List returns the whole catalog
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	return s.repo.List(ctx)
}

// Get returns one product by id or legacy id
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// priceScale matches the NUMERIC(12,2) price column so the response and
// the stored row agree.
const priceScale = 2

// Create validates the input, uploads the images and stores a new product
func (s *ProductService) Create(ctx context.Context, input models.ProductInput, uploads []ImageUpload) (*models.Product, error) {
	var missing []string
	if strings.TrimSpace(input.Name) == "" {
		missing = append(missing, "name")
	}
	if input.Price == nil {
		missing = append(missing, "price")
	}
	if strings.TrimSpace(input.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return nil, invalid("missing required fields", missing...)
	}
	if input.Price.IsNegative() {
		return nil, invalid("price must not be negative", "price")
	}

	product := &models.Product{
		ID:          s.newID(),
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price.Round(priceScale),
		Category:    strings.TrimSpace(input.Category),
		SubCategory: strings.TrimSpace(input.SubCategory),
		Sizes:       input.Sizes,
		Images:      []string{},
		Bestseller:  input.Bestseller != nil && *input.Bestseller,
	}
	if product.Sizes == nil {
		product.Sizes = []string{}
	}

	images, err := s.storeUploads(ctx, product.ID, product.Images, uploads)
	if err != nil {
		return nil, err
	}
	product.Images = images
	setDisplayImage(product)

	if err := s.repo.Insert(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update applies the non-empty fields of input to an existing product.
// An upload for slot N replaces the Nth image or is appended when the
// product has fewer images.
func (s *ProductService) Update(ctx context.Context, id string, input models.ProductInput, uploads []ImageUpload) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		product.Name = name
	}
	if input.Description != "" {
		product.Description = input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, invalid("price must not be negative", "price")
		}
		product.Price = input.Price.Round(priceScale)
	}
	if c := strings.TrimSpace(input.Category); c != "" {
		product.Category = c
	}
	if sc := strings.TrimSpace(input.SubCategory); sc != "" {
		product.SubCategory = sc
	}
	if input.SizesSet {
		product.Sizes = input.Sizes
	}
	if input.Bestseller != nil {
		product.Bestseller = *input.Bestseller
	}

	if len(uploads) > 0 {
		images, err := s.storeUploads(ctx, product.ID, product.Images, uploads)
		if err != nil {
			return nil, err
		}
		product.Images = images
		if s.optimizer != nil {
			s.optimizer.Invalidate(product.ID)
		}
	}
	setDisplayImage(product)

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("✓ product updated", zap.String("id", product.ID))
	return product, nil
}

// Delete removes a product and its cached image variants
func (s *ProductService) Delete(ctx context.Context, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, product.ID); err != nil {
		return err
	}
	if s.optimizer != nil {
		s.optimizer.Invalidate(product.ID)
	}
	if s.images != nil {
		for _, img := range product.Images {
			if fileID, ok := DriveFileID(img); ok {
				if err := s.images.DeleteImage(ctx, fileID); err != nil {
					s.logger.Warn("⚠️ could not delete product image", zap.String("file_id", fileID), zap.Error(err))
				}
			}
		}
	}
	return nil
}

// Image returns the optimized first image of a product. When the image is
// not held by the image store, redirect carries its URL instead.
func (s *ProductService) Image(ctx context.Context, id, size string) (data []byte, redirect string, err error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if len(product.Images) == 0 {
		return nil, "", repository.ErrNotFound
	}
	if _, ok := variants[size]; !ok {
		size = SizeMedium
	}

	fileID, ok := DriveFileID(product.Images[0])
	if !ok {
		return nil, product.Images[0], nil
	}
	if s.images == nil {
		return nil, "", ErrImagesUnavailable
	}

	var cachePath string
	if s.optimizer != nil {
		cachePath = s.optimizer.CachePath(product.ID, 0, size)
		if cached, hit := s.optimizer.ReadFromCache(cachePath); hit {
			return cached, "", nil
		}
	}

	raw, err := s.images.DownloadImage(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	if s.optimizer == nil {
		return raw, "", nil
	}
	optimized, err := s.optimizer.Optimize(raw, size)
	if err != nil {
		return nil, "", err
	}
	if err := s.optimizer.SaveToCache(cachePath, optimized); err != nil {
		s.logger.Warn("⚠️ could not cache image", zap.Error(err))
	}
	return optimized, "", nil
}

// storeUploads optimizes and uploads each file, placing it into its slot of current
func (s *ProductService) storeUploads(ctx context.Context, productID string, current []string, uploads []ImageUpload) ([]string, error) {
	images := append([]string{}, current...)
	if len(uploads) == 0 {
		return images, nil
	}
	if s.images == nil {
		return nil, ErrImagesUnavailable
	}

	sorted := append([]ImageUpload(nil), uploads...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Slot < sorted[j].Slot })

	for _, up := range sorted {
		if up.Slot < 1 || up.Slot > MaxProductImages {
			return nil, invalid(fmt.Sprintf("image slot must be between 1 and %d", MaxProductImages), "image")
		}
		data := up.Data
		if s.optimizer != nil {
			optimized, err := s.optimizer.Optimize(up.Data, SizeFull)
			if err != nil {
				return nil, invalid(fmt.Sprintf("%s is not a supported image", up.Filename), fmt.Sprintf("image%d", up.Slot))
			}
			data = optimized
		}

		stored, err := s.images.UploadImage(ctx, fmt.Sprintf("%s_%d_%s.jpg", productID, up.Slot, uuid.NewString()), data)
		if err != nil {
			return nil, err
		}
		if up.Slot <= len(images) {
			images[up.Slot-1] = stored.URL
		} else {
			images = append(images, stored.URL)
		}
	}
	return images, nil
}

func setDisplayImage(p *models.Product) {
	p.Image = models.PlaceholderImage
	if len(p.Images) > 0 {
		p.Image = p.Images[0]
	}
}
