package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// VendorDirectory resolves the vendor profile owned by a user account.
type VendorDirectory interface {
	VendorIDForUser(ctx context.Context, userID string) (string, error)
}

type UseCase struct {
	repo    Repository
	vendors VendorDirectory
	log     zerolog.Logger
}

func NewUseCase(repo Repository, vendors VendorDirectory, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, vendors: vendors, log: log}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (u *UseCase) CreateProduct(ctx context.Context, userID string, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	vendorID, err := u.vendors.VendorIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Product{
		VendorID:    vendorID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Category:    in.Category,
		Images:      in.Images,
		Stock:       in.Stock,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := u.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	u.log.Info().Str("product_id", p.ID).Str("vendor_id", vendorID).Msg("product created")
	return p, nil
}

func (u *UseCase) GetProduct(ctx context.Context, id string) (*Product, error) {
	return u.repo.GetProduct(ctx, id)
}

func (u *UseCase) ListProducts(ctx context.Context, f ListFilter) ([]Product, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return u.repo.ListProducts(ctx, f)
}

func (u *UseCase) MyProducts(ctx context.Context, userID string) ([]Product, error) {
	vendorID, err := u.vendors.VendorIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.repo.ListByVendor(ctx, vendorID)
}

// UpdateProduct applies in to the product after checking the caller owns it.
// Admins bypass the ownership check.
func (u *UseCase) UpdateProduct(ctx context.Context, userID string, isAdmin bool, productID string, in ProductInput) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p, err := u.authorize(ctx, userID, isAdmin, productID)
	if err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Stock = in.Stock
	if in.Images != nil {
		p.Images = in.Images
	}
	if err := u.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (u *UseCase) DeleteProduct(ctx context.Context, userID string, isAdmin bool, productID string) error {
	if _, err := u.authorize(ctx, userID, isAdmin, productID); err != nil {
		return err
	}
	return u.repo.DeleteProduct(ctx, productID)
}

func (u *UseCase) authorize(ctx context.Context, userID string, isAdmin bool, productID string) (*Product, error) {
	p, err := u.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if isAdmin {
		return p, nil
	}
	vendorID, err := u.vendors.VendorIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.VendorID != vendorID {
		return nil, ErrNotOwner
	}
	return p, nil
}

func (u *UseCase) CreateCategory(ctx context.Context, name, image string) (*Category, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	c := &Category{Name: name, Slug: Slugify(name), Image: image}
	if err := u.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *UseCase) ListCategories(ctx context.Context) ([]Category, error) {
	return u.repo.ListCategories(ctx)
}

func (u *UseCase) UpdateCategory(ctx context.Context, id, name, image string) (*Category, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	c := &Category{ID: id, Name: name, Slug: Slugify(name), Image: image}
	if err := u.repo.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (u *UseCase) DeleteCategory(ctx context.Context, id string) error {
	return u.repo.DeleteCategory(ctx, id)
}
