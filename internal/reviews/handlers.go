package reviews

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/catalog"
)

type Handler struct {
	useCase *UseCase
}

func NewHandler(useCase *UseCase) *Handler {
	return &Handler{useCase: useCase}
}

// Create handles POST /api/products/:id/reviews.
func (h *Handler) Create(c *gin.Context) {
	var in ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rev, err := h.useCase.Create(c.Request.Context(), auth.UserID(c), c.Param("id"), in)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrAlreadyExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create review"})
		}
		return
	}
	c.JSON(http.StatusCreated, rev)
}

// ListByProduct handles GET /api/products/:id/reviews (public).
func (h *Handler) ListByProduct(c *gin.Context) {
	reviews, err := h.useCase.ListByProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reviews"})
		return
	}
	if reviews == nil {
		reviews = []Review{}
	}
	c.JSON(http.StatusOK, reviews)
}

// Delete handles DELETE /api/reviews/:id; users may delete only their own.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.useCase.Delete(c.Request.Context(), c.Param("id"), auth.UserID(c)); err != nil {
		if errors.Is(err, ErrReviewNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
}
