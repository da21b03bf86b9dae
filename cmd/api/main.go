package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	agentapp "github.com/voxcalls/backend/internal/agents/app"
	agentRepoImpl "github.com/voxcalls/backend/internal/agents/repository/postgres"
	httptransport "github.com/voxcalls/backend/internal/api/http"
	"github.com/voxcalls/backend/internal/api/http/middleware"
	identityapp "github.com/voxcalls/backend/internal/identity/app"
	identitydomain "github.com/voxcalls/backend/internal/identity/domain"
	userRepoImpl "github.com/voxcalls/backend/internal/identity/repository/postgres"
	numberingapp "github.com/voxcalls/backend/internal/numbering/app"
	numberRepoImpl "github.com/voxcalls/backend/internal/numbering/repository/postgres"
	"github.com/voxcalls/backend/internal/platform/cache"
	"github.com/voxcalls/backend/internal/platform/config"
	"github.com/voxcalls/backend/internal/platform/database"
	"github.com/voxcalls/backend/internal/platform/logger"
	"github.com/voxcalls/backend/internal/platform/messagebroker"
	"github.com/voxcalls/backend/internal/provider/telephony"
	"github.com/voxcalls/backend/internal/provider/voiceagent"
	tenancyapp "github.com/voxcalls/backend/internal/tenancy/app"
	tenantRepoImpl "github.com/voxcalls/backend/internal/tenancy/repository/postgres"
)

const serviceName = "api"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info("API service starting...", "port", cfg.APIServicePort)

	dbPool, err := database.NewDBPool(context.Background(), cfg.PostgresDSN)
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL database")

	// NATS is optional; without it lifecycle events are simply not published.
	var natsClient *messagebroker.NATSClient
	if cfg.NATSUrl != "" {
		natsClient, err = messagebroker.NewNATSClient(cfg.NATSUrl, appLogger, serviceName)
		if err != nil {
			appLogger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		appLogger.Info("Connected to NATS")
	}

	providerTimeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	httpClient := &http.Client{Timeout: providerTimeout}

	var telephonyClient telephony.Client = telephony.NewTwilioClient(appLogger, telephony.TwilioConfig{
		AccountSID:     cfg.TwilioAccountSID,
		AuthToken:      cfg.TwilioAuthToken,
		AddressSID:     cfg.TwilioAddressSID,
		APIBaseURL:     cfg.TwilioAPIBaseURL,
		PricingBaseURL: cfg.TwilioPricingURL,
	}, httpClient)

	// Redis is optional; with it the telephony search/pricing catalogue is
	// served read-through cached.
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewClient(context.Background(), cfg.RedisURL)
		if err != nil {
			appLogger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cacheTTL := time.Duration(cfg.ProviderCacheTTLSeconds) * time.Second
		telephonyClient = telephony.NewCachingClient(telephonyClient, redisClient, cacheTTL, appLogger)
		appLogger.Info("Connected to Redis, telephony catalogue caching enabled", "ttl", cacheTTL)
	}

	voiceClient := voiceagent.NewElevenLabsClient(appLogger, voiceagent.ElevenLabsConfig{
		APIKey:           cfg.ElevenLabsAPIKey,
		BaseURL:          cfg.ElevenLabsBaseURL,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
	}, httpClient)

	// Repositories
	numberRepo := numberRepoImpl.NewPgPhoneNumberRepository(dbPool, appLogger)
	tenantRepo := tenantRepoImpl.NewPgTenantRepository(dbPool, appLogger)
	userRepo := userRepoImpl.NewPgUserRepository(dbPool, appLogger)
	agentRepo := agentRepoImpl.NewPgAgentRepository(dbPool, appLogger)

	// Applications
	var events numberingapp.EventPublisher
	if natsClient != nil {
		events = natsClient
	}
	numberingApp := numberingapp.NewApplication(numberRepo, agentRepo, userRepo, telephonyClient, voiceClient, events, appLogger)
	identityApp := identityapp.NewApplication(userRepo, tenantRepo, cfg.JWTAccessSecret, cfg.JWTAccessExpiryHours, appLogger)
	agentApp := agentapp.NewApplication(agentRepo, voiceClient, appLogger)
	tenancyApp := tenancyapp.NewApplication(tenantRepo, userRepo, agentRepo, numberRepo, appLogger)

	// HTTP transport
	validate := validator.New()
	authHandler := httptransport.NewAuthHandler(identityApp, appLogger, validate)
	phoneNumberHandler := httptransport.NewPhoneNumberHandler(numberingApp, appLogger, validate)
	agentHandler := httptransport.NewAgentHandler(agentApp, appLogger, validate)
	adminHandler := httptransport.NewAdminHandler(tenancyApp, identityApp, numberingApp, appLogger, validate)

	authMW := middleware.AuthMiddleware(identityApp, appLogger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(httptransport.PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "API service is healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler.RegisterPublicRoutes(v1)

		v1.Group(func(protected chi.Router) {
			protected.Use(authMW)
			authHandler.RegisterRoutes(protected)
			phoneNumberHandler.RegisterUserRoutes(protected)

			// Number and agent management is tenant-admin work.
			protected.Group(func(tenantAdmin chi.Router) {
				tenantAdmin.Use(middleware.RequireRole(identitydomain.RoleAdmin, appLogger))
				phoneNumberHandler.RegisterRoutes(tenantAdmin)
				agentHandler.RegisterRoutes(tenantAdmin)
			})
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(authMW)
			admin.Use(middleware.RequireRole(identitydomain.RoleSuperAdmin, appLogger))
			adminHandler.RegisterRoutes(admin)
		})
	})

	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.APIServicePort), Handler: r}
	appLogger.Info(fmt.Sprintf("API server listening on port %d", cfg.APIServicePort))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server failed to serve", "error", err)
		}
	}()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	<-quitChan
	appLogger.Info("Shutdown signal received, shutting down HTTP server...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		appLogger.Error("HTTP server shutdown failed", "error", err)
	} else {
		appLogger.Info("HTTP server shut down gracefully.")
	}
	appLogger.Info("API service shut down.")
}
