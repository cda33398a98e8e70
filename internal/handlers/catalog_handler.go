package handlers

import (
	"net/http"
	"strconv"

	"storefront/internal/dto"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalog    service.CatalogService
	promotions service.PromotionService
	log        *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, promotions service.PromotionService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, promotions: promotions, log: log}
}

// ListProducts godoc
// @Summary Каталог товаров
// @Tags catalog
// @Produce json
// @Param search query string false "name, slug or sku"
// @Param category query string false "category"
// @Param page query int false "page, from 1"
// @Param limit query int false "page size, max 100"
// @Success 200 {object} dto.Response{data=dto.ProductList}
// @Router /products [get]
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	products, total, err := h.catalog.ListProducts(c.Request.Context(), service.ProductQuery{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if page < 1 {
		page = 1
	}
	c.JSON(http.StatusOK, dto.OK(dto.ProductList{
		Products: products,
		Meta:     dto.PageMeta{Page: page, Limit: limit, Total: total},
	}, ""))
}

// GetProduct godoc
// @Summary Товар по id или slug
// @Tags catalog
// @Produce json
// @Param idOrSlug path string true "Product id or slug"
// @Success 200 {object} dto.Response{data=models.Product}
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /products/{idOrSlug} [get]
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	p, err := h.catalog.GetProductByRef(c.Request.Context(), c.Param("idOrSlug"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !p.IsActive {
		writeError(c, h.log, service.ErrProductNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.OK(p, ""))
}

// ValidatePromotion godoc
// @Summary Проверить промокод
// @Description Evaluates a code against the given items without consuming it.
// @Tags catalog
// @Accept json
// @Produce json
// @Param body body dto.PromotionValidateRequest true "Code and items"
// @Success 200 {object} dto.Response{data=service.PromotionPreview}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 422 {object} dto.UnprocessableErrorResponse
// @Router /promotions/validate [post]
func (h *CatalogHandler) ValidatePromotion(c *gin.Context) {
	var req dto.PromotionValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, h.log, err)
		return
	}
	items, err := toLineInputs(req.Items)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	preview, err := h.promotions.Preview(c.Request.Context(), req.Code, items)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OK(preview, "promotion applicable"))
}
