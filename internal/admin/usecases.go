package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/vendors"
)

var ErrUserNotFound = errors.New("user not found")

type UseCase struct {
	repo    Repository
	users   *auth.UseCase
	vendors *vendors.UseCase
	log     zerolog.Logger
}

func NewUseCase(repo Repository, users *auth.UseCase, vendorUC *vendors.UseCase, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, users: users, vendors: vendorUC, log: log}
}

func (u *UseCase) Dashboard(ctx context.Context) (*DashboardStats, error) {
	return u.repo.Dashboard(ctx)
}

func (u *UseCase) ListUsers(ctx context.Context) ([]UserSummary, error) {
	return u.repo.ListUsers(ctx)
}

func (u *UseCase) ListDeliveryStaff(ctx context.Context) ([]UserSummary, error) {
	return u.repo.ListUsersByRole(ctx, auth.RoleDelivery)
}

func (u *UseCase) CreateUser(ctx context.Context, name, email, password, role string) (*auth.User, error) {
	return u.users.Register(ctx, name, email, password, role)
}

func (u *UseCase) UpdateUserRole(ctx context.Context, userID, role string) error {
	if !auth.ValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	ok, err := u.repo.UpdateUserRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	u.log.Info().Str("user_id", userID).Str("role", role).Msg("user role updated")
	return nil
}

func (u *UseCase) DeleteUser(ctx context.Context, userID string) error {
	ok, err := u.repo.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	u.log.Info().Str("user_id", userID).Msg("user deleted")
	return nil
}

// CreateVendor registers a VENDOR user and its store profile in one call.
func (u *UseCase) CreateVendor(ctx context.Context, name, email, password string, profile vendors.ProfileInput) (*vendors.Vendor, error) {
	user, err := u.users.Register(ctx, name, email, password, auth.RoleVendor)
	if err != nil {
		return nil, err
	}
	return u.vendors.CreateForUser(ctx, user.ID, profile)
}
