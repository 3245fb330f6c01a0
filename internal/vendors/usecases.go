package vendors

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

type UseCase struct {
	repo Repository
	log  zerolog.Logger
}

func NewUseCase(repo Repository, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, log: log}
}

// VendorIDForUser resolves the vendor profile linked to a user account.
func (u *UseCase) VendorIDForUser(ctx context.Context, userID string) (string, error) {
	v, err := u.repo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	return v.ID, nil
}

// CreateForUser creates a vendor profile linked to an existing user.
func (u *UseCase) CreateForUser(ctx context.Context, userID string, in ProfileInput) (*Vendor, error) {
	if in.StoreName == "" {
		return nil, errors.New("storeName is required")
	}
	v := &Vendor{
		UserID:       userID,
		StoreName:    in.StoreName,
		Description:  in.Description,
		Phone:        in.Phone,
		PayoutNumber: in.PayoutNumber,
		IsVerified:   true,
	}
	if err := u.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	u.log.Info().Str("vendor_id", v.ID).Str("user_id", userID).Msg("vendor created")
	return v, nil
}

func (u *UseCase) MyProfile(ctx context.Context, userID string) (*Vendor, error) {
	return u.repo.GetByUserID(ctx, userID)
}

func (u *UseCase) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Vendor, error) {
	v, err := u.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.StoreName != "" {
		v.StoreName = in.StoreName
	}
	if in.Description != "" {
		v.Description = in.Description
	}
	if in.Phone != "" {
		v.Phone = in.Phone
	}
	if in.PayoutNumber != "" {
		v.PayoutNumber = in.PayoutNumber
	}
	if err := u.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (u *UseCase) List(ctx context.Context) ([]Vendor, error) {
	return u.repo.List(ctx)
}

func (u *UseCase) MyStats(ctx context.Context, userID string) (*Stats, error) {
	v, err := u.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.repo.Stats(ctx, v.ID)
}

func (u *UseCase) MyOrders(ctx context.Context, userID string) ([]OrderView, error) {
	v, err := u.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.repo.Orders(ctx, v.ID)
}
