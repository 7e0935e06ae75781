package handlers

import (
	"context"
	"net/http"

	"syntrad-backend/cart"
	"syntrad-backend/dtos"
	"syntrad-backend/middleware"
	"syntrad-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Catalog interface {
	ListProducts(ctx context.Context) ([]dtos.Product, error)
	FindProduct(ctx context.Context, id string) (*dtos.Product, error)
}

type CartHandler struct {
	Sessions *cart.Sessions
	Catalog  Catalog
	Log      logrus.FieldLogger
}

type lineItemView struct {
	cart.LineItem
	Subtotal string `json:"subtotal"`
}

func cartResponse(state cart.State) gin.H {
	items := make([]lineItemView, 0, len(state.Items))
	for _, it := range state.Items {
		items = append(items, lineItemView{LineItem: it, Subtotal: cart.FormatAmount(it.Subtotal())})
	}
	return gin.H{
		"items": items,
		"count": state.Count,
		"total": cart.FormatAmount(state.Total),
	}
}

func (h *CartHandler) store(c *gin.Context) (*cart.Store, bool) {
	store, err := h.Sessions.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		h.Log.WithError(err).Error("failed to load cart")
		respondCartError(c, err)
		return nil, false
	}
	return store, true
}

func (h *CartHandler) GetCart(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartResponse(store.Snapshot()))
}

// AddToCart resolves the product from the catalog; prices sent by the client are never used.
func (h *CartHandler) AddToCart(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required,max=100"`
		Quantity  *int   `json:"quantity" binding:"omitempty,max=999"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be at least 1"})
		return
	}

	product, err := h.Catalog.FindProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	state, err := store.Add(c.Request.Context(), product.ToCartProduct(), quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(state))
}

// UpdateCartItem sets the quantity of a line. Zero or less removes it.
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	var req struct {
		Quantity *int `json:"quantity" binding:"required,max=999"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	store, ok := h.store(c)
	if !ok {
		return
	}
	state, err := store.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity)
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(state))
}

func (h *CartHandler) RemoveFromCart(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	state, err := store.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(state))
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	state, err := store.Clear(c.Request.Context())
	if err != nil {
		respondCartError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartResponse(state))
}
