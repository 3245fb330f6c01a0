package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/orders"
)

type Handler struct {
	useCase *UseCase
}

func NewHandler(useCase *UseCase) *Handler {
	return &Handler{useCase: useCase}
}

type assignInput struct {
	DeliveryPersonID string `json:"deliveryPersonId"`
}

// Assign handles POST /api/delivery/orders/:id/assign (admin only).
func (h *Handler) Assign(c *gin.Context) {
	var in assignInput
	if err := c.ShouldBindJSON(&in); err != nil || in.DeliveryPersonID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "deliveryPersonId is required"})
		return
	}
	if err := h.useCase.Assign(c.Request.Context(), c.Param("id"), in.DeliveryPersonID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order assigned"})
}

type statusInput struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// UpdateStatus handles PATCH /api/delivery/orders/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var in statusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	err := h.useCase.UpdateStatus(c.Request.Context(), c.Param("id"), auth.UserID(c), auth.Role(c), in.Status, in.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

// MyDeliveries handles GET /api/delivery/orders.
func (h *Handler) MyDeliveries(c *gin.Context) {
	assignments, err := h.useCase.MyDeliveries(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list deliveries"})
		return
	}
	if assignments == nil {
		assignments = []Assignment{}
	}
	c.JSON(http.StatusOK, assignments)
}

// Tracking handles GET /api/delivery/orders/:id/tracking.
func (h *Handler) Tracking(c *gin.Context) {
	entries, err := h.useCase.Tracking(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tracking history"})
		return
	}
	if entries == nil {
		entries = []TrackingEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotAssigned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotDeliveryStaff), errors.Is(err, ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delivery operation failed"})
	}
}
