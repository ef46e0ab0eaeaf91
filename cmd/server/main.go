package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hayekcoin/campus-wallet/internal/auth"
	"github.com/hayekcoin/campus-wallet/internal/chain"
	"github.com/hayekcoin/campus-wallet/internal/handler"
	"github.com/hayekcoin/campus-wallet/internal/metrics"
	"github.com/hayekcoin/campus-wallet/internal/repository"
	"github.com/hayekcoin/campus-wallet/internal/service"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	ServerPort string

	JWTSecret string
	JWTTTL    time.Duration

	ChainRPCURL string
	Symbol      string
	Network     string

	ReconcileInterval time.Duration
}

func main() {
	// Initialise logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration; a local .env is optional
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env")
	}
	config := loadConfig()
	if config.JWTSecret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}

	// Connect to the database
	db, err := connectDB(config)
	if err != nil {
		logger.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database successfully")

	// Initialise repos
	accountRepo := repository.NewAccountRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	settlementRepo := repository.NewSettlementRepository(db)
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	configRepo := repository.NewConfigRepository(db)

	// The treasury account must exist before any recharge or payout
	if _, err := accountRepo.EnsureTreasury(context.Background(), config.Symbol, config.Network); err != nil {
		logger.Error("failed to ensure treasury account", "error", err.Error())
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	tokens := auth.NewTokenManager(config.JWTSecret, config.JWTTTL)
	chainClient := chain.NewRPCClient(config.ChainRPCURL)

	// Initialise services
	accountService := service.NewAccountService(accountRepo, logger)
	auditService := service.NewAuditService(auditRepo, logger)
	authService := service.NewAuthService(userRepo, accountService, tokens, config.Symbol, config.Network, logger)
	transferService := service.NewTransferService(db, accountRepo, transactionRepo, configRepo, logger)
	withdrawalService := service.NewWithdrawalService(db, withdrawalRepo, accountRepo, transactionRepo, chainClient, logger)
	settlementService := service.NewSettlementService(db, settlementRepo, eventRepo, accountRepo, transactionRepo, logger)
	ledgerService := service.NewLedgerService(accountRepo, transactionRepo, withdrawalRepo, settlementRepo, configRepo, logger)
	userService := service.NewUserService(userRepo, logger)
	eventService := service.NewEventService(eventRepo, userRepo, accountService, config.Symbol, config.Network, logger)
	reportService := service.NewReportService(transactionRepo)

	// Initialise handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	walletHandler := handler.NewWalletHandler(accountService, ledgerService, transferService, withdrawalService, userService, auditService, m, logger)
	adminHandler := handler.NewAdminHandler(ledgerService, transferService, withdrawalService, settlementService, accountService, userService, auditService, reportService, m, logger)
	eventHandler := handler.NewEventHandler(eventService, settlementService, auditService, logger)

	// Setup router
	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware(m))

	authRouter := router.PathPrefix("/api/auth").Subrouter()
	authHandler.RegisterRoutes(authRouter)

	authenticated := router.PathPrefix("/api").Subrouter()
	authenticated.Use(auth.Middleware(tokens))

	meRouter := authenticated.PathPrefix("/auth").Subrouter()
	authHandler.RegisterProtectedRoutes(meRouter)

	walletRouter := authenticated.PathPrefix("/wallet").Subrouter()
	walletRouter.Use(auth.Require(auth.CapUseWallet))
	walletHandler.RegisterRoutes(walletRouter)

	adminRouter := authenticated.PathPrefix("/admin").Subrouter()
	adminHandler.RegisterRoutes(adminRouter)
	eventHandler.RegisterRoutes(adminRouter)

	// Health check and metrics endpoints
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Start the reconciler loop; it stops with the server
	reconcileCtx, stopReconciler := context.WithCancel(context.Background())
	defer stopReconciler()
	reconciler := service.NewReconciler(transactionRepo, chainClient, m, config.ReconcileInterval, logger)
	go reconciler.Run(reconcileCtx)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + config.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server on port " + config.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	stopReconciler()

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}

	logger.Info("server exited gracefully")
}

// loads config from environment variables
func loadConfig() Config {
	return Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "campus_wallet"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getEnvDuration("JWT_TTL_MINUTES", 12*time.Hour, time.Minute),

		ChainRPCURL: getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
		Symbol:      getEnv("TOKEN_SYMBOL", "HC"),
		Network:     getEnv("TOKEN_NETWORK", "hayeknet"),

		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL_SECONDS", 30*time.Second, time.Second),
	}
}

// getEnv fetches environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue, unit time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * unit
		}
	}
	return defaultValue
}

// connectDB establishes a connection to the Postgres database
func connectDB(cfg Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Confirm connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// loggingMiddleware logs incoming HTTP requests
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// metricsMiddleware records request counts and latency per route template.
func metricsMiddleware(m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
			m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
