package handlers

import (
	"context"
	"errors"
	"net/http"

	"syntrad-backend/cart"
	"syntrad-backend/checkout"
	"syntrad-backend/dtos"
	"syntrad-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type OrderSubmitter interface {
	Submit(ctx context.Context, c checkout.Cart, d checkout.Details) (checkout.Receipt, error)
}

type CheckoutHandler struct {
	Carts     *CartHandler
	Submitter OrderSubmitter
	Log       logrus.FieldLogger
}

func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req struct {
		ShippingAddress  dtos.ShippingAddress `json:"shipping_address"`
		PaymentReference string               `json:"payment_reference" binding:"max=200"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	store, ok := h.Carts.store(c)
	if !ok {
		return
	}

	// user_email is only set when the caller sent a valid token.
	receipt, err := h.Submitter.Submit(c.Request.Context(), store, checkout.Details{
		Shipping:         req.ShippingAddress,
		UserEmail:        c.GetString("user_email"),
		PaymentReference: req.PaymentReference,
	})
	switch {
	case err == nil:
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
		return
	case errors.Is(err, checkout.ErrOrderRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		respondUpstreamError(c, h.Log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":          "Order placed successfully",
		"order_id":         receipt.OrderID,
		"total":            cart.FormatAmount(receipt.Total),
		"items":            receipt.Items,
		"payment_recorded": receipt.PaymentRecorded,
		"cart_cleared":     receipt.CartCleared,
		"cart":             cartResponse(store.Snapshot()),
	})
}
