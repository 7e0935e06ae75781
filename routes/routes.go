package routes

import (
	"net/http"
	"time"

	"syntrad-backend/cart"
	"syntrad-backend/handlers"
	"syntrad-backend/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// API is everything the routes need from the external API client.
type API interface {
	handlers.Catalog
	handlers.AdminAPI
	handlers.AppointmentAPI
	handlers.ProfileAPI
}

type Deps struct {
	Sessions     *cart.Sessions
	API          API
	Submitter    handlers.OrderSubmitter
	Notifier     handlers.AppointmentNotifier
	NotifyEmail  string
	Limiter      *middleware.RateLimiter
	CartTTL      time.Duration
	SecureCookie bool
	Log          logrus.FieldLogger
}

func SetupRoutes(r *gin.Engine, d Deps) {
	// Initialize handlers
	cartHandler := &handlers.CartHandler{Sessions: d.Sessions, Catalog: d.API, Log: d.Log}
	shopHandler := &handlers.ShopHandler{Catalog: d.API, Log: d.Log}
	checkoutHandler := &handlers.CheckoutHandler{Carts: cartHandler, Submitter: d.Submitter, Log: d.Log}
	appointmentHandler := &handlers.AppointmentHandler{API: d.API, Notifier: d.Notifier, NotifyEmail: d.NotifyEmail, Log: d.Log}
	adminHandler := &handlers.AdminHandler{API: d.API, Log: d.Log}
	authHandler := &handlers.AuthHandler{}
	profileHandler := &handlers.ProfileHandler{API: d.API, Log: d.Log}

	// Public routes
	api := r.Group("/api")
	{
		api.GET("/shop/products", shopHandler.ListProducts)
		api.POST("/appointments", d.Limiter.Middleware(), appointmentHandler.CreateAppointment)
	}

	// Cart routes are anonymous and keyed by the session cookie
	session := api.Group("")
	session.Use(middleware.CartSession(d.CartTTL, d.SecureCookie))
	{
		session.GET("/cart", cartHandler.GetCart)
		session.POST("/cart", cartHandler.AddToCart)
		session.PUT("/cart/:id", cartHandler.UpdateCartItem)
		session.DELETE("/cart/:id", cartHandler.RemoveFromCart)
		session.DELETE("/cart", cartHandler.ClearCart)

		session.POST("/checkout", d.Limiter.Middleware(), middleware.OptionalAuth(), checkoutHandler.Checkout)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/me", authHandler.GetProfile)
		protected.GET("/user/profile", profileHandler.GetProfile)
		protected.POST("/user/profile", profileHandler.UpdateProfile)
		protected.GET("/orders/my", profileHandler.MyOrders)
		protected.GET("/appointments/my-appointments", profileHandler.MyAppointments)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		admin.GET("/appointments", adminHandler.ListAppointments)
		admin.PATCH("/appointments/:id/status", adminHandler.UpdateAppointmentStatus)

		admin.GET("/orders", adminHandler.ListOrders)
		admin.PATCH("/orders/:id", adminHandler.UpdateOrder)

		admin.GET("/products", adminHandler.ListProducts)
		admin.POST("/products", adminHandler.CreateProduct)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
