// internal/handlers/product.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/models"
	"github.com/labtrust/trust-engine/internal/services"
	"github.com/labtrust/trust-engine/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// GET /products
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	params := services.ProductSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	// Parse filters
	if tier := c.Query("tier"); tier != "" {
		t := models.CertificationTier(tier)
		params.Tier = &t
	}
	if verified := c.Query("verified"); verified != "" {
		if v, err := strconv.ParseBool(verified); err == nil {
			params.IsVerified = &v
		}
	}
	if owner := c.Query("brand_owner_id"); owner != "" {
		params.BrandOwnerID = &owner
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), params)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params.PaginationParams))
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), actor, &req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, product)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), optionalActor(c), id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /products/:id/trust
func (h *ProductHandler) GetTrustStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	trust, err := h.productService.GetTrustStatus(c.Request.Context(), id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, trust)
}

// GET /brand/products
func (h *ProductHandler) ListOwnedProducts(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	products, err := h.productService.ListOwnedProducts(c.Request.Context(), actor)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, products)
}
