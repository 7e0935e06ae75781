package handlers

import (
	"context"
	"net/http"

	"syntrad-backend/dtos"
	"syntrad-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AppointmentAPI interface {
	CreateAppointment(ctx context.Context, req dtos.AppointmentRequest) (*dtos.APIResult, error)
}

type AppointmentNotifier interface {
	SendAppointmentNotice(to string, req dtos.AppointmentRequest)
}

type AppointmentHandler struct {
	API         AppointmentAPI
	Notifier    AppointmentNotifier
	NotifyEmail string
	Log         logrus.FieldLogger
}

// CreateAppointment takes both contact-form messages and quote requests.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req dtos.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	result, err := h.API.CreateAppointment(c.Request.Context(), req)
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "Failed to send message. Please try again."
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if h.Notifier != nil && h.NotifyEmail != "" {
		h.Notifier.SendAppointmentNotice(h.NotifyEmail, req)
	}

	msg := "Message sent successfully! We'll get back to you soon."
	if req.IsQuoteRequest {
		msg = "Quote request sent successfully! We'll get back to you soon."
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}
