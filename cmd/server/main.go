package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/dkotenko/calobot/internal/cache"
	"github.com/dkotenko/calobot/internal/config"
	"github.com/dkotenko/calobot/internal/database"
	"github.com/dkotenko/calobot/internal/handlers"
	"github.com/dkotenko/calobot/internal/logger"
	"github.com/dkotenko/calobot/internal/middleware"
	"github.com/dkotenko/calobot/internal/services/estimator"
	"github.com/dkotenko/calobot/internal/telemetry"
	"github.com/dkotenko/calobot/internal/tracker"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.DebugLogging || *debugFlag

	zapLogger, err := logger.New(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("estimator_model", cfg.NebiusModel),
		zap.Bool("postgres", cfg.UsePostgres()),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
	)

	// Initialize tracing if enabled. A tracer failure downgrades to
	// untraced operation instead of refusing to start.
	tracingActive := false
	if cfg.TracingEnabled {
		tp, err := telemetry.Init(context.Background(), cfg.OTLPEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_tracer", zap.Error(err))
		} else {
			tracingActive = true
			zapLogger.Info("tracer_initialized",
				zap.String("endpoint", cfg.OTLPEndpoint),
			)
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_tracer", zap.Error(err))
				}
			}()
		}
	}

	// Open storage. The backend is selected by configuration; both run
	// their migrations before Open returns.
	store, err := database.Open(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_open_store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Warn("failed_to_close_store", zap.Error(err))
		}
	}()
	zapLogger.Info("store_opened")

	// Drop meal rows with non-positive calories left behind by older
	// builds before serving traffic.
	cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	removed, err := store.CleanCorruptedData(cleanupCtx)
	cleanupCancel()
	if err != nil {
		zapLogger.Warn("startup_cleanup_failed", zap.Error(err))
	} else if removed > 0 {
		zapLogger.Info("startup_cleanup_done", zap.Int64("meals_removed", removed))
	}

	// Analysis pipeline: response cache, vision oracle, estimation service.
	responseCache, err := cache.New(cfg.CacheSize, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_create_cache", zap.Error(err))
	}
	provider := estimator.NewNebiusProvider(cfg, zapLogger)
	estimatorService := estimator.NewService(provider, responseCache, cfg, zapLogger)

	// Per-user session state with lazy daily rollover.
	sessions := tracker.New(store, zapLogger)

	// Handlers.
	analysisHandler := handlers.NewAnalysisHandler(estimatorService, sessions, zapLogger)
	userHandler := handlers.NewUserHandler(store, sessions, zapLogger)
	mealHandler := handlers.NewMealHandler(store, sessions, zapLogger)
	sessionHandler := handlers.NewSessionHandler(sessions)
	registrationHandler := handlers.NewRegistrationHandler(store, sessions, zapLogger)
	targetHandler := handlers.NewTargetHandler()
	healthChecker := handlers.NewHealthChecker(store)
	openAPIHandler := handlers.NewOpenAPIHandler(cfg.OpenAPIPath)

	// Rate limiter for the analysis endpoints only; estimation is the
	// expensive path. Redis-backed when REDIS_URL is set, in-memory
	// otherwise.
	rateLimitMW, err := middleware.RateLimit(cfg.RateLimit, cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Router. Middleware runs in registration order: the first Use is the
	// outermost wrapper.
	r := mux.NewRouter()

	if tracingActive {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
		zapLogger.Info("tracing_middleware_enabled")
	}
	// Panic recovery wraps everything so even middleware failures produce
	// a JSON 500.
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	// The request timeout must stay above the estimator timeout so
	// fallback replies reach the client instead of a cut connection.
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes: probes and the contract itself.
	api.HandleFunc("/health", healthChecker.HealthCheck).Methods("GET")
	openAPIHandler.RegisterRoutes(api)

	// Everything else sits behind the optional service token.
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ServiceAuth(cfg.ServiceToken, zapLogger))

	analysisRouter := protected.PathPrefix("/analysis").Subrouter()
	analysisRouter.Use(rateLimitMW)
	analysisHandler.RegisterRoutes(analysisRouter)

	usersRouter := protected.PathPrefix("/users").Subrouter()
	userHandler.RegisterRoutes(usersRouter)
	mealHandler.RegisterRoutes(usersRouter)
	sessionHandler.RegisterRoutes(usersRouter)
	registrationHandler.RegisterRoutes(usersRouter)

	targetsRouter := protected.PathPrefix("/targets").Subrouter()
	targetHandler.RegisterRoutes(targetsRouter)

	// Preflight requests that fall through the CORS middleware still get
	// an empty 204 instead of a 405.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Write timeout sits above the per-request timeout for the same
	// reason the request timeout sits above the estimator's.
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   90 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		zapLogger.Info("server_listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
