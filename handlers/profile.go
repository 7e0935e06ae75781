package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"syntrad-backend/dtos"
	"syntrad-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProfileAPI interface {
	ListMyOrders(ctx context.Context, token string) ([]dtos.Record, error)
	ListMyAppointments(ctx context.Context, token string) ([]dtos.Record, error)
	GetProfile(ctx context.Context, token string) (json.RawMessage, error)
	UpdateProfile(ctx context.Context, token string, update dtos.ProfileUpdate) (json.RawMessage, error)
}

// ProfileHandler backs the customer's own profile page. Calls go out under
// the customer's token so the API only ever returns their own records.
type ProfileHandler struct {
	API ProfileAPI
	Log logrus.FieldLogger
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profile, err := h.API.GetProfile(c.Request.Context(), c.GetString("token"))
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req dtos.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if req.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	updated, err := h.API.UpdateProfile(c.Request.Context(), c.GetString("token"), req)
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	h.Log.WithFields(logrus.Fields{
		"user_id":          c.GetString("user_id"),
		"password_changed": req.NewPassword != "",
	}).Info("profile updated")
	c.JSON(http.StatusOK, updated)
}

func (h *ProfileHandler) MyOrders(c *gin.Context) {
	orders, err := h.API.ListMyOrders(c.Request.Context(), c.GetString("token"))
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": nonNilRecords(orders), "status_counts": statusCounts(orders)})
}

func (h *ProfileHandler) MyAppointments(c *gin.Context) {
	appointments, err := h.API.ListMyAppointments(c.Request.Context(), c.GetString("token"))
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": nonNilRecords(appointments), "status_counts": statusCounts(appointments)})
}

func statusCounts(records []dtos.Record) map[string]int {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}
