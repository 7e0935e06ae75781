package handlers

import (
	"errors"
	"net/http"

	"syntrad-backend/cart"
	"syntrad-backend/upstream"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondUpstreamError passes the API's own 4xx answers through and turns
// everything else into a 502.
func respondUpstreamError(c *gin.Context, log logrus.FieldLogger, err error) {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		c.JSON(apiErr.StatusCode, gin.H{"error": msg})
		return
	}

	log.WithError(err).WithField("path", c.FullPath()).Error("upstream request failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": "Service temporarily unavailable. Please try again."})
}

func respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrPersist):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart could not be saved. Please try again."})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Cart unavailable"})
	}
}
