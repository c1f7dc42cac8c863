package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/voxtask/voxtask/internal/config"
	"github.com/voxtask/voxtask/internal/handlers"
	"github.com/voxtask/voxtask/internal/logger"
	"github.com/voxtask/voxtask/internal/middleware"
	"github.com/voxtask/voxtask/internal/persistence"
	"github.com/voxtask/voxtask/internal/queue"
	"github.com/voxtask/voxtask/internal/services/agent"
	"github.com/voxtask/voxtask/internal/services/extraction"
	"github.com/voxtask/voxtask/internal/services/oidc"
	"github.com/voxtask/voxtask/internal/session"
	"github.com/voxtask/voxtask/internal/telemetry"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing is opt-in.
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "voxtask-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Task persistence goes to Postgres directly or through the remote task
	// API, whichever is configured. Postgres wins when both are set.
	var store persistence.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := persistence.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := pgStore.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		store = pgStore
		zapLogger.Info("connected_to_database")
	} else {
		store = persistence.NewRemoteStore(persistence.RemoteConfig{
			BaseURL:      cfg.TaskAPIURL,
			TokenURL:     cfg.TaskAPITokenURL,
			ClientID:     cfg.TaskAPIClientID,
			ClientSecret: cfg.TaskAPISecret,
		})
		zapLogger.Info("using_remote_task_api", zap.String("base_url", cfg.TaskAPIURL))
	}

	// Redis backs the rate limiter.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("invalid_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}
	zapLogger.Info("connected_to_redis")

	// RabbitMQ is optional; without it sessions simply skip summarization.
	var jobQueue queue.JobQueue
	var summaryPublisher session.SummaryPublisher
	if cfg.RabbitMQURL != "" {
		q, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
		}
		defer func() {
			if err := q.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		jobQueue = q
		summaryPublisher = queue.NewSummaryPublisher(q)
		zapLogger.Info("connected_to_rabbitmq")
	}

	// Extraction pipeline: oracle client, tag vocabulary, orchestrator.
	vocab, err := extraction.LoadVocabulary(cfg.VocabularyFile)
	if err != nil {
		zapLogger.Fatal("failed_to_load_tag_vocabulary", zap.Error(err))
	}
	oracle := extraction.NewOpenAIClientWithLogger(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)
	orchestrator := extraction.NewOrchestrator(oracle, vocab, cfg.ExtractionTimeout, zapLogger)
	sessionAgent := agent.NewOpenAIAgent(cfg.OpenAIKey, cfg.AIBaseURL, cfg.AIModel, zapLogger, debugMode)

	allowedOrigins := parseOrigins(cfg.FrontendURL)

	// Handlers and the session hub.
	extractHandler := handlers.NewExtractHandler(orchestrator, zapLogger)
	healthChecker := handlers.NewHealthChecker(store, jobQueue)
	hub := session.NewHub(orchestrator, sessionAgent, store, summaryPublisher, cfg.SessionJoinSecret, allowedOrigins, zapLogger)
	defer hub.Close()

	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("voxtask-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Public routes.
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// WebSocket sessions. The hub does its own join-token admission, and the
	// upgrade must not pass through body-oriented middleware.
	r.HandleFunc("/ws/session", hub.HandleSession).Methods("GET")

	// Turn-based extraction API.
	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(rateLimitMW)
	apiRouter.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	apiRouter.Use(middleware.ContentType)
	apiRouter.Use(middleware.Timeout(cfg.ExtractionTimeout + 10*time.Second))
	if cfg.OIDCIssuer != "" && cfg.OIDCJWKSURL != "" {
		verifier := oidc.NewVerifier(oidc.NewJWKSManager(), cfg.OIDCIssuer, cfg.OIDCJWKSURL)
		apiRouter.Use(middleware.Auth(verifier, zapLogger))
		zapLogger.Info("api_authentication_enabled", zap.String("issuer", cfg.OIDCIssuer))
	} else {
		zapLogger.Warn("api_authentication_disabled")
	}
	apiRouter.HandleFunc("/extract-tasks", extractHandler.ExtractTasks).Methods("POST")

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(r)

	// No global write timeout: /ws/session connections are long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ retries with exponential backoff to ride out broker
// startup delays.
func connectRabbitMQ(url string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url)
		if err == nil {
			return q, nil
		}
		lastErr = err

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}

func parseOrigins(frontendURL string) []string {
	origins := []string{"http://localhost:3000"}
	for _, origin := range strings.Split(frontendURL, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		duplicate := false
		for _, existing := range origins {
			if existing == trimmed {
				duplicate = true
				break
			}
		}
		if !duplicate {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
