// main.go
// Plant maintenance API: service orders, preventive tasks, equipment and
// the management dashboard.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"plantmaint/auth"
	"plantmaint/config"
	"plantmaint/db"
	"plantmaint/handlers"
	"plantmaint/metrics"
	"plantmaint/middleware"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("⚠️  No .env file found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()
	setupLogging(cfg.Logging)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("❌ Invalid configuration")
	}

	log.WithFields(log.Fields{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"store":       cfg.Store.Backend,
	}).Info("🚀 Starting plant maintenance API")

	// Open the record store
	ctx := context.Background()
	store, err := db.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to open record store")
	}
	defer store.Close()
	repo := db.NewRepository(store)

	// Initialize identity
	jwtManager := auth.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.Expiration,
		cfg.JWT.RefreshTokenExpiration,
	)
	identity := auth.NewService(repo, jwtManager, auth.ServiceOptions{
		LoginAttempts: cfg.Auth.LoginAttempts,
		LoginWindow:   cfg.Auth.LoginWindow,
	})
	unsubscribe := identity.OnSessionChange(logSessionEvent)
	defer unsubscribe()
	log.WithField("expiration", cfg.JWT.Expiration).Info("🔐 Identity service initialized")

	m := metrics.New()
	router := handlers.NewRouter(cfg, repo, identity, m, nil)
	log.Info("✅ Handlers initialized")

	// Initialize rate limiter
	stop := make(chan struct{})
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	rateLimiter.CleanupOldLimiters(time.Minute, stop)
	log.WithFields(log.Fields{
		"requests": cfg.RateLimit.Requests,
		"window":   cfg.RateLimit.Window,
	}).Info("🛡️  Rate limiter initialized")

	// Apply global middleware
	var handler http.Handler = router
	handler = middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = middleware.RequestLogger(m, router.Known)(handler)

	// Create server. WriteTimeout stays zero so live feed connections are
	// not cut.
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.WithField("addr", server.Addr).Info("✅ Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("❌ Server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("🛑 Shutting down server...")
	close(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("❌ Server forced to shutdown")
	}

	log.Info("✅ Server stopped gracefully")
}
