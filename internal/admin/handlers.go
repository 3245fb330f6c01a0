package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/vendors"
)

type Handler struct {
	useCase *UseCase
}

func NewHandler(useCase *UseCase) *Handler {
	return &Handler{useCase: useCase}
}

func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.useCase.Dashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.useCase.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	if users == nil {
		users = []UserSummary{}
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) ListDeliveryStaff(c *gin.Context) {
	users, err := h.useCase.ListDeliveryStaff(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list delivery staff"})
		return
	}
	if users == nil {
		users = []UserSummary{}
	}
	c.JSON(http.StatusOK, users)
}

type createUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var in createUserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.useCase.CreateUser(c.Request.Context(), in.Name, in.Email, in.Password, in.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "name": user.Name, "email": user.Email, "role": user.Role})
}

type updateRoleInput struct {
	Role string `json:"role"`
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	var in updateRoleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.useCase.UpdateUserRole(c.Request.Context(), c.Param("id"), in.Role); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.useCase.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type createVendorInput struct {
	Name     string               `json:"name"`
	Email    string               `json:"email"`
	Password string               `json:"password"`
	Profile  vendors.ProfileInput `json:"profile"`
}

func (h *Handler) CreateVendor(c *gin.Context) {
	var in createVendorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	v, err := h.useCase.CreateVendor(c.Request.Context(), in.Name, in.Email, in.Password, in.Profile)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, vendors.ErrStoreNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
