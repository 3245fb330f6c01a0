package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Handler contains the HTTP handlers for authentication and profiles.
type Handler struct {
	useCase *UseCase
	log     zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(useCase *UseCase, log zerolog.Logger) *Handler {
	return &Handler{useCase: useCase, log: log}
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var body struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.useCase.Register(c.Request.Context(), body.Name, body.Email, body.Password, body.Role)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user already exists"})
			return
		}
		h.log.Error().Err(err).Msg("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "user registered successfully"})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var body struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.useCase.Login(c.Request.Context(), body.Email, body.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  gin.H{"id": user.ID, "name": user.Name, "role": user.Role},
	})
}

// UpdateProfile handles PUT /api/profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var body struct {
		Name  string `json:"name" binding:"required"`
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.useCase.UpdateProfile(c.Request.Context(), UserID(c), body.Name, body.Phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated successfully", "user": user})
}

// ChangePassword handles PUT /api/profile/password.
func (h *Handler) ChangePassword(c *gin.Context) {
	var body struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.useCase.ChangePassword(c.Request.Context(), UserID(c), body.CurrentPassword, body.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect current password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated successfully"})
}

// ListAddresses handles GET /api/profile/addresses.
func (h *Handler) ListAddresses(c *gin.Context) {
	list, err := h.useCase.Addresses(c.Request.Context(), UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch addresses"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// AddAddress handles POST /api/profile/addresses.
func (h *Handler) AddAddress(c *gin.Context) {
	var body struct {
		Details    string `json:"details" binding:"required"`
		City       string `json:"city" binding:"required"`
		PostalCode string `json:"postalCode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	addr, err := h.useCase.AddAddress(c.Request.Context(), UserID(c), body.Details, body.City, body.PostalCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add address"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "address added", "address": addr})
}

// DeleteAddress handles DELETE /api/profile/addresses/:addressId.
func (h *Handler) DeleteAddress(c *gin.Context) {
	if err := h.useCase.DeleteAddress(c.Request.Context(), UserID(c), c.Param("addressId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete address"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
}

// SetDefaultAddress handles PUT /api/profile/addresses/:addressId/default.
func (h *Handler) SetDefaultAddress(c *gin.Context) {
	if err := h.useCase.SetDefaultAddress(c.Request.Context(), UserID(c), c.Param("addressId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update default address"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "default address updated"})
}
