package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type addToCartReq struct {
	ProductID uint64 `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

func (h *Handler) AddToCart(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req addToCartReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "productId and quantity are required")
		return
	}

	result, err := h.CartSvc.AddToCart(c.Request.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	view, err := h.CartSvc.GetCart(c.Request.Context(), uid)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type updateItemReq struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := strconv.ParseUint(c.Param("productId"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid product id")
		return
	}

	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		fail(c, http.StatusBadRequest, "quantity is required")
		return
	}
	if *req.Quantity < 0 {
		fail(c, http.StatusBadRequest, "quantity must be 0 or greater")
		return
	}

	result, err := h.CartSvc.UpdateItemQuantity(c.Request.Context(), uid, productID, *req.Quantity)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ClearAllCarts(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.CartSvc.ClearAllCarts(c.Request.Context(), uid); err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
