package vendors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gobazar/bazar-backend/internal/auth"
)

type Handler struct {
	useCase *UseCase
}

func NewHandler(useCase *UseCase) *Handler {
	return &Handler{useCase: useCase}
}

func (h *Handler) MyProfile(c *gin.Context) {
	v, err := h.useCase.MyProfile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var in ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	v, err := h.useCase.UpdateProfile(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) MyStats(c *gin.Context) {
	s, err := h.useCase.MyStats(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) MyOrders(c *gin.Context) {
	views, err := h.useCase.MyOrders(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if views == nil {
		views = []OrderView{}
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) List(c *gin.Context) {
	vendors, err := h.useCase.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list vendors"})
		return
	}
	if vendors == nil {
		vendors = []Vendor{}
	}
	c.JSON(http.StatusOK, vendors)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrVendorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrStoreNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
