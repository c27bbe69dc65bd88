package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/repository"
)

func newProductService(t *testing.T, repo *fakeProductRepo, store *fakeImageStore) *ProductService {
	t.Helper()
	var images ImageStoreInterface
	if store != nil {
		images = store
	}
	s := NewProductService(repo, images, NewImageOptimizer(t.TempDir(), nil), nil)
	s.newID = func() string { return "new-id" }
	return s
}

func TestProductService_CreateValidates(t *testing.T) {
	s := newProductService(t, newFakeProductRepo(), newFakeImageStore())

	_, err := s.Create(context.Background(), models.ProductInput{Description: "x"}, nil)
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []string{"name", "price", "category"}, ie.Fields)

	_, err = s.Create(context.Background(), models.ProductInput{Name: "Shirt", Category: "Men", Price: decPtr("-1")}, nil)
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []string{"price"}, ie.Fields)
}

func TestProductService_CreateWithImages(t *testing.T) {
	repo := newFakeProductRepo()
	store := newFakeImageStore()
	s := newProductService(t, repo, store)

	best := true
	p, err := s.Create(context.Background(), models.ProductInput{
		Name:       " Blue Shirt ",
		Price:      decPtr("19.99"),
		Category:   "Men",
		Sizes:      []string{"S", "M"},
		Bestseller: &best,
	}, []ImageUpload{
		{Slot: 2, Filename: "back.png", Data: pngImage(t, 40, 40)},
		{Slot: 1, Filename: "front.png", Data: pngImage(t, 40, 40)},
	})
	require.NoError(t, err)

	assert.Equal(t, "new-id", p.ID)
	assert.Equal(t, "Blue Shirt", p.Name)
	assert.True(t, p.Bestseller)
	require.Len(t, p.Images, 2)
	assert.Equal(t, DriveImageURL("file1"), p.Images[0])
	assert.Equal(t, p.Images[0], p.Image)
	assert.True(t, strings.HasPrefix(store.names[0], "new-id_1_"))
	assert.True(t, strings.HasPrefix(store.names[1], "new-id_2_"))

	stored, err := repo.GetByID(context.Background(), "new-id")
	require.NoError(t, err)
	assert.Equal(t, "19.99", stored.Price.String())
}

func TestProductService_CreateWithoutImageStore(t *testing.T) {
	s := newProductService(t, newFakeProductRepo(), nil)

	p, err := s.Create(context.Background(), models.ProductInput{Name: "Cap", Category: "Kids", Price: decPtr("5")}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PlaceholderImage, p.Image)
	assert.Empty(t, p.Images)

	_, err = s.Create(context.Background(), models.ProductInput{Name: "Cap", Category: "Kids", Price: decPtr("5")},
		[]ImageUpload{{Slot: 1, Filename: "a.png", Data: pngImage(t, 4, 4)}})
	assert.ErrorIs(t, err, ErrImagesUnavailable)
}

func TestProductService_CreateRejectsBadUpload(t *testing.T) {
	s := newProductService(t, newFakeProductRepo(), newFakeImageStore())

	_, err := s.Create(context.Background(), models.ProductInput{Name: "Cap", Category: "Kids", Price: decPtr("5")},
		[]ImageUpload{{Slot: 1, Filename: "notes.txt", Data: []byte("hello")}})
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []string{"image1"}, ie.Fields)

	_, err = s.Create(context.Background(), models.ProductInput{Name: "Cap", Category: "Kids", Price: decPtr("5")},
		[]ImageUpload{{Slot: 5, Filename: "a.png", Data: pngImage(t, 4, 4)}})
	assert.True(t, IsInputError(err))
}

func TestProductService_UpdateKeepsEmptyFields(t *testing.T) {
	existing := catalogProduct("p1", "Blue Shirt", "10")
	existing.Description = "cotton"
	existing.Images = []string{DriveImageURL("old1"), DriveImageURL("old2")}
	repo := newFakeProductRepo(existing)
	store := newFakeImageStore()
	s := newProductService(t, repo, store)

	p, err := s.Update(context.Background(), "p1", models.ProductInput{
		Price:    decPtr("12.50"),
		SizesSet: true,
		Sizes:    []string{"L"},
	}, []ImageUpload{{Slot: 2, Filename: "new.png", Data: pngImage(t, 8, 8)}})
	require.NoError(t, err)

	assert.Equal(t, "Blue Shirt", p.Name)
	assert.Equal(t, "cotton", p.Description)
	assert.Equal(t, "Men", p.Category)
	assert.Equal(t, "12.5", p.Price.String())
	assert.Equal(t, []string{"L"}, p.Sizes)
	assert.Equal(t, []string{DriveImageURL("old1"), DriveImageURL("file1")}, p.Images)
	assert.Equal(t, DriveImageURL("old1"), p.Image)

	_, err = s.Update(context.Background(), "missing", models.ProductInput{Name: "x"}, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductService_RoundsPriceToCents(t *testing.T) {
	repo := newFakeProductRepo()
	s := newProductService(t, repo, nil)

	p, err := s.Create(context.Background(), models.ProductInput{Name: "Cap", Category: "Kids", Price: decPtr("19.999")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "20", p.Price.String())

	stored, err := repo.GetByID(context.Background(), "new-id")
	require.NoError(t, err)
	assert.Equal(t, "20", stored.Price.String())

	p, err = s.Update(context.Background(), "new-id", models.ProductInput{Price: decPtr("12.345")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "12.35", p.Price.String())

	stored, err = repo.GetByID(context.Background(), "new-id")
	require.NoError(t, err)
	assert.Equal(t, "12.35", stored.Price.String())
}

func TestProductService_DeleteRemovesDriveFiles(t *testing.T) {
	existing := catalogProduct("p1", "Blue Shirt", "10")
	existing.Images = []string{DriveImageURL("f1"), "https://cdn.example.com/x.png"}
	store := newFakeImageStore()
	s := newProductService(t, newFakeProductRepo(existing), store)

	require.NoError(t, s.Delete(context.Background(), "p1"))
	assert.Equal(t, []string{"f1"}, store.deleted)

	_, err := s.Get(context.Background(), "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductService_ImageCachesOptimizedVariant(t *testing.T) {
	store := newFakeImageStore()
	store.files["f1"] = pngImage(t, 1000, 500)
	existing := catalogProduct("p1", "Blue Shirt", "10")
	existing.Images = []string{DriveImageURL("f1")}
	s := newProductService(t, newFakeProductRepo(existing), store)

	first, redirect, err := s.Image(context.Background(), "p1", SizeThumb)
	require.NoError(t, err)
	assert.Empty(t, redirect)
	assert.NotEmpty(t, first)

	second, _, err := s.Image(context.Background(), "p1", SizeThumb)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.downloads)
}

func TestProductService_ImageRedirectsForeignURLs(t *testing.T) {
	existing := catalogProduct("p1", "Blue Shirt", "10")
	existing.Images = []string{"https://cdn.example.com/x.png"}
	noImages := catalogProduct("p2", "Cap", "5")
	s := newProductService(t, newFakeProductRepo(existing, noImages), nil)

	data, redirect, err := s.Image(context.Background(), "p1", SizeMedium)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Equal(t, "https://cdn.example.com/x.png", redirect)

	_, _, err = s.Image(context.Background(), "p2", SizeMedium)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
