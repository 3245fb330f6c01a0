package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// Claims is the JWT payload: user id and role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UseCase contains the auth business logic.
type UseCase struct {
	repo   Repository
	secret []byte
	log    zerolog.Logger
}

// NewUseCase creates a new auth UseCase.
func NewUseCase(repo Repository, secret string, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, secret: []byte(secret), log: log}
}

// Register creates a user with a bcrypt-hashed password. Role defaults to
// CUSTOMER when empty.
func (uc *UseCase) Register(ctx context.Context, name, email, password, role string) (*User, error) {
	if role == "" {
		role = RoleCustomer
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	if _, err := uc.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := uc.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	uc.log.Info().Str("user_id", u.ID).Str("role", u.Role).Msg("user registered")
	return u, nil
}

// Login verifies credentials and issues a signed JWT.
func (uc *UseCase) Login(ctx context.Context, email, password string) (string, *User, error) {
	u, err := uc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := uc.issueToken(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (uc *UseCase) issueToken(u *User) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(uc.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a signed token and returns its claims.
func (uc *UseCase) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return uc.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// UpdateProfile changes name and phone.
func (uc *UseCase) UpdateProfile(ctx context.Context, userID, name, phone string) (*User, error) {
	return uc.repo.UpdateProfile(ctx, userID, name, phone)
}

// ChangePassword verifies the current password and stores a new hash.
func (uc *UseCase) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := uc.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return uc.repo.UpdatePasswordHash(ctx, userID, string(hash))
}

// Addresses lists the user's address book.
func (uc *UseCase) Addresses(ctx context.Context, userID string) ([]Address, error) {
	return uc.repo.ListAddresses(ctx, userID)
}

// AddAddress appends an address; the first one becomes the default.
func (uc *UseCase) AddAddress(ctx context.Context, userID, details, city, postalCode string) (*Address, error) {
	a := &Address{UserID: userID, Details: details, City: city, PostalCode: postalCode}
	if err := uc.repo.AddAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAddress removes an address owned by the user.
func (uc *UseCase) DeleteAddress(ctx context.Context, userID, addressID string) error {
	return uc.repo.DeleteAddress(ctx, userID, addressID)
}

// SetDefaultAddress marks one address as default, clearing the others.
func (uc *UseCase) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	return uc.repo.SetDefaultAddress(ctx, userID, addressID)
}
