package api

import (
	"net/http"

	"basketbay/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) adminProducts(c *gin.Context) {
	page, err := h.admin.Products(c.Request.Context(), session(c), queryInt(c, "page", 1))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) adminAddProduct(c *gin.Context) {
	var p models.NewProduct
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.admin.AddProduct(c.Request.Context(), session(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": entry})
}

func (h *Handler) adminDeleteProduct(c *gin.Context) {
	if err := h.admin.DeleteProduct(c.Request.Context(), session(c), models.ProductID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminIncreaseStock(c *gin.Context) {
	entry, err := h.admin.IncreaseStock(c.Request.Context(), session(c), models.ProductID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": entry})
}

func (h *Handler) adminDecreaseStock(c *gin.Context) {
	entry, err := h.admin.DecreaseStock(c.Request.Context(), session(c), models.ProductID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": entry})
}

func (h *Handler) adminOrders(c *gin.Context) {
	orders, err := h.admin.LineupOrders(c.Request.Context(), session(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
