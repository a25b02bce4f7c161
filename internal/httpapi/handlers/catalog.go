package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetCatalog(c *gin.Context) {
	products, err := h.CatalogSvc.GetCatalog(c.Request.Context(), c.Query("search"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) GetProductStats(c *gin.Context) {
	stats, err := h.CatalogSvc.GetProductStats(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetProductsByPrice(c *gin.Context) {
	ascending := c.DefaultQuery("order", "asc") != "desc"
	products, err := h.CatalogSvc.GetProductsByPrice(c.Request.Context(), ascending)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}
