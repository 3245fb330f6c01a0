package catalog

import (
	"errors"
	"net/http"
	"strconv"

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

// ListProducts handles GET /api/products with search, category, price range,
// sort and pagination query params.
func (h *Handler) ListProducts(c *gin.Context) {
	f := ListFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}
	f.MinPrice, _ = strconv.ParseFloat(c.Query("minPrice"), 64)
	f.MaxPrice, _ = strconv.ParseFloat(c.Query("maxPrice"), 64)
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	products, total, err := h.useCase.ListProducts(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	if products == nil {
		products = []Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": total, "page": f.Page, "limit": f.Limit})
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.useCase.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var in ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := h.useCase.CreateProduct(c.Request.Context(), auth.UserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) MyProducts(c *gin.Context) {
	products, err := h.useCase.MyProducts(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var in ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := h.useCase.UpdateProduct(c.Request.Context(), auth.UserID(c), auth.Role(c) == auth.RoleAdmin, c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	err := h.useCase.DeleteProduct(c.Request.Context(), auth.UserID(c), auth.Role(c) == auth.RoleAdmin, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.useCase.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list categories"})
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	c.JSON(http.StatusOK, categories)
}

type categoryInput struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cat, err := h.useCase.CreateCategory(c.Request.Context(), in.Name, in.Image)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cat, err := h.useCase.UpdateCategory(c.Request.Context(), c.Param("id"), in.Name, in.Image)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.useCase.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, ErrCategoryTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, vendors.ErrVendorNotFound):
		c.JSON(http.StatusForbidden, gin.H{"error": "vendor profile required"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
