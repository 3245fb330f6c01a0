package payments

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/orders"
)

// Handler contains the HTTP handlers for checkout and provider callbacks.
type Handler struct {
	useCase *UseCase
	urls    URLs
	log     zerolog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(useCase *UseCase, urls URLs, log zerolog.Logger) *Handler {
	return &Handler{useCase: useCase, urls: urls, log: log}
}

// CreateCheckoutSession handles POST /api/orders/:id/checkout-session.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	redirectURL, err := h.useCase.StartCheckout(c.Request.Context(), c.Param("id"), auth.UserID(c))
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, ErrAlreadyPaid):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order already paid"})
		case errors.Is(err, orders.ErrNotPending):
			c.JSON(http.StatusBadRequest, gin.H{"error": "order is not pending"})
		case errors.Is(err, ErrGateway):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment session failed"})
		default:
			h.log.Error().Err(err).Msg("checkout session failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout session failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"redirectUrl": redirectURL})
}

// Success handles the provider's success callback. The provider retries on
// non-2xx and timeouts, so business-state oddities (unknown transaction,
// duplicate delivery) redirect instead of erroring.
func (h *Handler) Success(c *gin.Context) {
	tranID := c.Param("tranId")

	if err := h.useCase.HandleSuccess(c.Request.Context(), tranID); err != nil {
		h.log.Error().Err(err).Str("tran_id", tranID).Msg("success callback failed")
		c.Redirect(http.StatusSeeOther, h.urls.FrontendBase+"/payment/fail")
		return
	}
	c.Redirect(http.StatusSeeOther, h.urls.FrontendBase+"/payment/success?tranId="+tranID)
}

// Fail handles the provider's fail callback.
func (h *Handler) Fail(c *gin.Context) {
	h.reconcileFailure(c, c.Param("tranId"))
}

// Cancel handles the provider's cancel callback; same reconciliation as fail.
func (h *Handler) Cancel(c *gin.Context) {
	h.reconcileFailure(c, c.Param("tranId"))
}

func (h *Handler) reconcileFailure(c *gin.Context, tranID string) {
	if err := h.useCase.HandleFailure(c.Request.Context(), tranID); err != nil {
		// Not-found included: log and redirect, never a hard error back to
		// the provider.
		h.log.Error().Err(err).Str("tran_id", tranID).Msg("failure callback error")
	}
	c.Redirect(http.StatusSeeOther, h.urls.FrontendBase+"/payment/fail?tranId="+tranID)
}
