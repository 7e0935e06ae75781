package handlers

import (
	"net/http"
	"strings"

	"syntrad-backend/dtos"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ShopHandler struct {
	Catalog Catalog
	Log     logrus.FieldLogger
}

// ListProducts serves the shop page: the whole catalog narrowed by the
// optional search, category and subcategory query parameters.
func (h *ShopHandler) ListProducts(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	category := c.Query("category")
	subcategory := c.Query("subcategory")

	products, err := h.Catalog.ListProducts(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}

	filtered := make([]dtos.Product, 0, len(products))
	for _, p := range products {
		if p.Matches(search, category, subcategory) {
			filtered = append(filtered, p)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"products": filtered,
		"count":    len(filtered),
	})
}
