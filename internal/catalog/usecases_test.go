package catalog

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobazar/bazar-backend/internal/vendors"
)

type memCatalogRepo struct {
	products   map[string]*Product
	lastFilter ListFilter
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{products: map[string]*Product{}}
}

func (r *memCatalogRepo) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = "prod-" + p.Name
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memCatalogRepo) GetProduct(ctx context.Context, id string) (*Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memCatalogRepo) ListProducts(ctx context.Context, f ListFilter) ([]Product, int, error) {
	r.lastFilter = f
	return nil, 0, nil
}

func (r *memCatalogRepo) ListByVendor(ctx context.Context, vendorID string) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.VendorID == vendorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memCatalogRepo) UpdateProduct(ctx context.Context, p *Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return ErrProductNotFound
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memCatalogRepo) DeleteProduct(ctx context.Context, id string) error {
	if _, ok := r.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memCatalogRepo) CreateCategory(ctx context.Context, c *Category) error { return nil }
func (r *memCatalogRepo) ListCategories(ctx context.Context) ([]Category, error) {
	return nil, nil
}
func (r *memCatalogRepo) UpdateCategory(ctx context.Context, c *Category) error { return nil }
func (r *memCatalogRepo) DeleteCategory(ctx context.Context, id string) error   { return nil }

type fakeVendors map[string]string

func (f fakeVendors) VendorIDForUser(ctx context.Context, userID string) (string, error) {
	id, ok := f[userID]
	if !ok {
		return "", vendors.ErrVendorNotFound
	}
	return id, nil
}

func validProduct() ProductInput {
	return ProductInput{Name: "Cotton Panjabi", Price: 1200, Category: "clothing", Stock: 10}
}

func TestCreateProductBindsCallerVendor(t *testing.T) {
	repo := newMemCatalogRepo()
	uc := NewUseCase(repo, fakeVendors{"u1": "v1"}, zerolog.Nop())

	p, err := uc.CreateProduct(context.Background(), "u1", validProduct())
	require.NoError(t, err)
	assert.Equal(t, "v1", p.VendorID)
	assert.NotNil(t, p.Images)
}

func TestCreateProductRequiresVendorProfile(t *testing.T) {
	uc := NewUseCase(newMemCatalogRepo(), fakeVendors{}, zerolog.Nop())

	_, err := uc.CreateProduct(context.Background(), "u1", validProduct())
	assert.ErrorIs(t, err, vendors.ErrVendorNotFound)
}

func TestCreateProductValidation(t *testing.T) {
	uc := NewUseCase(newMemCatalogRepo(), fakeVendors{"u1": "v1"}, zerolog.Nop())

	in := validProduct()
	in.Price = -5
	_, err := uc.CreateProduct(context.Background(), "u1", in)
	assert.Error(t, err)

	in = validProduct()
	in.Name = "  "
	_, err = uc.CreateProduct(context.Background(), "u1", in)
	assert.Error(t, err)
}

func TestUpdateProductEnforcesOwnership(t *testing.T) {
	repo := newMemCatalogRepo()
	uc := NewUseCase(repo, fakeVendors{"owner": "v1", "rival": "v2"}, zerolog.Nop())

	p, err := uc.CreateProduct(context.Background(), "owner", validProduct())
	require.NoError(t, err)

	in := validProduct()
	in.Price = 999

	_, err = uc.UpdateProduct(context.Background(), "rival", false, p.ID, in)
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := uc.UpdateProduct(context.Background(), "owner", false, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 999.0, updated.Price)

	// Admin bypasses ownership.
	in.Price = 850
	updated, err = uc.UpdateProduct(context.Background(), "rival", true, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 850.0, updated.Price)
}

func TestDeleteProductEnforcesOwnership(t *testing.T) {
	repo := newMemCatalogRepo()
	uc := NewUseCase(repo, fakeVendors{"owner": "v1", "rival": "v2"}, zerolog.Nop())

	p, err := uc.CreateProduct(context.Background(), "owner", validProduct())
	require.NoError(t, err)

	err = uc.DeleteProduct(context.Background(), "rival", false, p.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, uc.DeleteProduct(context.Background(), "owner", false, p.ID))
	_, err = uc.GetProduct(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListProductsClampsPagination(t *testing.T) {
	repo := newMemCatalogRepo()
	uc := NewUseCase(repo, fakeVendors{}, zerolog.Nop())

	_, _, err := uc.ListProducts(context.Background(), ListFilter{Page: -3, Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lastFilter.Page)
	assert.Equal(t, maxPageSize, repo.lastFilter.Limit)

	_, _, err = uc.ListProducts(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, repo.lastFilter.Limit)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "home-kitchen", Slugify("  Home & Kitchen "))
	assert.Equal(t, "electronics", Slugify("Electronics"))
	assert.Equal(t, "kids-toys-2", Slugify("Kids' Toys 2"))
}
