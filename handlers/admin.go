package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"syntrad-backend/dtos"
	"syntrad-backend/models"
	"syntrad-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AdminAPI interface {
	ListAppointments(ctx context.Context, token string) ([]dtos.Record, error)
	UpdateAppointmentStatus(ctx context.Context, token, id, status string) (json.RawMessage, error)
	ListOrders(ctx context.Context, token string) ([]dtos.Record, error)
	UpdateOrder(ctx context.Context, token, orderID string, update dtos.OrderUpdate) (json.RawMessage, error)
	ListProducts(ctx context.Context) ([]dtos.Product, error)
	CreateProduct(ctx context.Context, token string, req dtos.CreateProductRequest) (json.RawMessage, error)
}

// AdminHandler backs the admin dashboard. Every call is forwarded with the
// admin's own token so the API applies its own authorisation too.
type AdminHandler struct {
	API AdminAPI
	Log logrus.FieldLogger
}

func (h *AdminHandler) ListAppointments(c *gin.Context) {
	appointments, err := h.API.ListAppointments(c.Request.Context(), c.GetString("token"))
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}

	counts := map[models.AppointmentStatus]int{}
	active := 0
	for _, a := range appointments {
		status := models.AppointmentStatus(a.Status)
		counts[status]++
		if status.IsActive() {
			active++
		}
	}
	stats := gin.H{
		"completed": counts[models.AppointmentStatusCompleted],
		"pending":   counts[models.AppointmentStatusPending],
		"confirmed": counts[models.AppointmentStatusConfirmed],
		"cancelled": counts[models.AppointmentStatusCancelled],
		"active":    active,
	}

	c.JSON(http.StatusOK, gin.H{"appointments": nonNilRecords(appointments), "stats": stats})
}

// UpdateAppointmentStatus enforces the appointment state machine before
// forwarding. The current status is read back from the API.
func (h *AdminHandler) UpdateAppointmentStatus(c *gin.Context) {
	id := c.Param("id")
	var req dtos.AppointmentStatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	token := c.GetString("token")
	appointments, err := h.API.ListAppointments(c.Request.Context(), token)
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}

	var current *dtos.Record
	for i := range appointments {
		if appointments[i].ID == id {
			current = &appointments[i]
			break
		}
	}
	if current == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Appointment not found"})
		return
	}

	from := models.AppointmentStatus(current.Status)
	to := models.AppointmentStatus(req.Status)
	if !models.IsValidAppointmentTransition(from, to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot change appointment status from %s to %s", from, to)})
		return
	}

	updated, err := h.API.UpdateAppointmentStatus(c.Request.Context(), token, id, req.Status)
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	h.Log.WithFields(logrus.Fields{"appointment_id": id, "from": from, "to": to, "admin": c.GetString("user_id")}).Info("appointment status changed")
	c.JSON(http.StatusOK, gin.H{"appointment": updated})
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	orders, err := h.API.ListOrders(c.Request.Context(), c.GetString("token"))
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}

	pending := 0
	for _, o := range orders {
		if models.OrderStatus(o.Status) == models.OrderStatusPending {
			pending++
		}
	}
	c.JSON(http.StatusOK, gin.H{"orders": nonNilRecords(orders), "stats": gin.H{"pending": pending}})
}

func (h *AdminHandler) UpdateOrder(c *gin.Context) {
	var req dtos.OrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if req.Status == "" && req.PaymentStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status or paymentStatus is required"})
		return
	}
	if req.Status != "" && !models.IsValidOrderStatus(models.OrderStatus(req.Status)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}
	if req.PaymentStatus != "" && !models.IsValidPaymentStatus(models.PaymentStatus(req.PaymentStatus)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment status"})
		return
	}

	updated, err := h.API.UpdateOrder(c.Request.Context(), c.GetString("token"), c.Param("id"), req)
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": updated})
}

func (h *AdminHandler) ListProducts(c *gin.Context) {
	products, err := h.API.ListProducts(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	if products == nil {
		products = []dtos.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var req dtos.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.API.CreateProduct(c.Request.Context(), c.GetString("token"), req)
	if err != nil {
		respondUpstreamError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": created})
}

func nonNilRecords(records []dtos.Record) []dtos.Record {
	if records == nil {
		return []dtos.Record{}
	}
	return records
}
