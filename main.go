package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"syntrad-backend/cart"
	"syntrad-backend/checkout"
	"syntrad-backend/config"
	"syntrad-backend/database"
	"syntrad-backend/middleware"
	"syntrad-backend/routes"
	"syntrad-backend/storage"
	"syntrad-backend/upstream"
	"syntrad-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		logrus.Fatal("Error loading .env file: ", err)
	}

	log := utils.NewLogger(config.GetEnv("LOG_LEVEL", "info"))

	// Validate critical environment variables
	if err := config.ValidateEnv(log); err != nil {
		log.Fatal("Environment validation failed: ", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	backend, closeBackend := openBackend(ctx, cfg, log)

	sessions := cart.NewSessions(backend, cfg.CartIdleEvict, log)
	go sessions.Run(ctx, time.Minute)

	limiter := middleware.NewRateLimiter(10, time.Minute)
	go limiter.Run(ctx, 5*time.Minute)

	client := upstream.New(cfg.UpstreamURL, cfg.UpstreamTimeout, log)
	mailer := utils.NewMailer(utils.EmailConfig(cfg.SMTP), log)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	// CORS configuration - filter out empty strings from AllowOrigins
	var origins []string
	for _, o := range []string{cfg.FrontendURL, cfg.AdminURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.SessionHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.SessionHeader},
		AllowCredentials: true,
	}))

	routes.SetupRoutes(r, routes.Deps{
		Sessions:     sessions,
		API:          client,
		Submitter:    checkout.NewSubmitter(client, mailer, log),
		Notifier:     mailer,
		NotifyEmail:  cfg.NotifyEmail,
		Limiter:      limiter,
		CartTTL:      cfg.CartTTL,
		SecureCookie: strings.HasPrefix(cfg.FrontendURL, "https://"),
		Log:          log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Run server in a goroutine
	go func() {
		log.WithFields(logrus.Fields{"port": cfg.Port, "cart_backend": cfg.CartBackend}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")
	stop()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	closeBackend()
	log.Info("Server exited gracefully")
}

// openBackend connects the configured cart storage and returns it with its
// close function.
func openBackend(ctx context.Context, cfg *config.Config, log *logrus.Logger) (storage.Store, func()) {
	switch cfg.CartBackend {
	case config.BackendRedis:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		store, err := storage.NewRedisStore(connectCtx, cfg.RedisURL, cfg.CartTTL)
		if err != nil {
			log.Fatal("Failed to connect to Redis: ", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("Error closing Redis connection")
			}
		}

	case config.BackendPostgres:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database: ", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatal("Failed to run migrations: ", err)
		}
		go pruneSnapshots(ctx, db, cfg.CartTTL, log)
		return storage.NewGormStore(db), func() {
			sqlDB, err := db.DB()
			if err != nil {
				return
			}
			if err := sqlDB.Close(); err != nil {
				log.WithError(err).Warn("Error closing database connection")
			} else {
				log.Info("Database connection closed")
			}
		}

	default:
		return storage.NewMemoryStore(), func() {}
	}
}

func pruneSnapshots(ctx context.Context, db *gorm.DB, ttl time.Duration, log logrus.FieldLogger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := database.PruneSnapshots(db, now.Add(-ttl))
			if err != nil {
				log.WithError(err).Warn("cart snapshot prune failed")
				continue
			}
			if n > 0 {
				log.WithField("pruned", n).Info("pruned abandoned carts")
			}
		}
	}
}
