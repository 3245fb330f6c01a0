package orders

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/inventory"
)

// Handler contains the HTTP handlers for orders.
type Handler struct {
	useCase *UseCase
	log     zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(useCase *UseCase, log zerolog.Logger) *Handler {
	return &Handler{useCase: useCase, log: log}
}

// Create handles POST /api/orders.
func (h *Handler) Create(c *gin.Context) {
	var in PlacementInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.useCase.PlaceOrder(c.Request.Context(), auth.UserID(c), in, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.respondPlacementError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"orderId":       order.ID,
		"transactionId": order.TransactionID,
		"amount":        order.TotalAmount,
	})
}

func (h *Handler) respondPlacementError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, inventory.ErrOutOfStock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, inventory.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrDuplicateRequest):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("order placement failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to place order"})
	}
}

// List handles GET /api/orders; the result set depends on the caller's role.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()

	switch auth.Role(c) {
	case auth.RoleAdmin:
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}
		list, total, err := h.useCase.AllOrders(ctx, page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		pages := (total + limit - 1) / limit
		c.JSON(http.StatusOK, gin.H{
			"orders": list,
			"meta":   gin.H{"total": total, "page": page, "pages": pages},
		})
	case auth.RoleVendor:
		list, err := h.useCase.VendorOrders(ctx, auth.UserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	default:
		list, err := h.useCase.MyOrders(ctx, auth.UserID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	}
}

// My handles GET /api/orders/my.
func (h *Handler) My(c *gin.Context) {
	list, err := h.useCase.MyOrders(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /api/orders/:id. Only the owner or an admin may see it.
func (h *Handler) Get(c *gin.Context) {
	order, err := h.useCase.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
		return
	}

	if auth.Role(c) != auth.RoleAdmin && order.CustomerID != auth.UserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/orders/:id/status (admin and vendor).
func (h *Handler) UpdateStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.useCase.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		case errors.Is(err, ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order status updated"})
}

// Cancel handles POST /api/orders/:id/cancel for the owning customer.
func (h *Handler) Cancel(c *gin.Context) {
	err := h.useCase.CancelPending(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, ErrNotPending):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot cancel processed order"})
		default:
			h.log.Error().Err(err).Msg("order cancellation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cancellation failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order cancelled successfully"})
}

// Delete handles DELETE /api/orders/:id (admin only, guarded at the router).
func (h *Handler) Delete(c *gin.Context) {
	if err := h.useCase.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "order deleted successfully"})
}

// Track handles GET /api/track/:trackingId, public, safe fields only.
func (h *Handler) Track(c *gin.Context) {
	order, err := h.useCase.Track(c.Request.Context(), c.Param("trackingId"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found with this tracking id"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to track order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_status":   order.OrderStatus,
		"payment_status": order.PaymentStatus,
		"total_amount":   order.TotalAmount,
		"created_at":     order.CreatedAt,
		"items":          order.Items,
	})
}
