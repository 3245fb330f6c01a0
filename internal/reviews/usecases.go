package reviews

import (
	"context"

	"github.com/gobazar/bazar-backend/internal/catalog"
)

// ProductDirectory confirms a product exists before it is reviewed.
type ProductDirectory interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

type UseCase struct {
	repo     Repository
	products ProductDirectory
}

func NewUseCase(repo Repository, products ProductDirectory) *UseCase {
	return &UseCase{repo: repo, products: products}
}

func (u *UseCase) Create(ctx context.Context, userID, productID string, in ReviewInput) (*Review, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if _, err := u.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	rev := &Review{
		UserID:    userID,
		ProductID: productID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	}
	if err := u.repo.Create(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

func (u *UseCase) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	return u.repo.ListByProduct(ctx, productID)
}

func (u *UseCase) Delete(ctx context.Context, reviewID, userID string) error {
	ok, err := u.repo.DeleteOwn(ctx, reviewID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrReviewNotFound
	}
	return nil
}
