package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/deltabank/backend/docs"
	"github.com/deltabank/backend/internal/database"
	"github.com/deltabank/backend/internal/handlers"
	mW "github.com/deltabank/backend/internal/middleware"
	"github.com/deltabank/backend/internal/services"
)

// @title Delta Bank Ledger API
// @version 1.0
// @description Double-entry ledger backend: accounts, transfers and loans
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("loan.rank_threshold", "LOAN_RANK_THRESHOLD")
	viper.BindEnv("reconcile.max_age", "RECONCILE_MAX_AGE")
	viper.BindEnv("reconcile.interval", "RECONCILE_INTERVAL")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Delta Bank Ledger API"
	docs.SwaggerInfo.Description = "Double-entry ledger backend: accounts, transfers and loans"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize storage
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Initialize services
	pendingTracker := services.NewPendingTransferTracker(redisClient)
	ledgerService := services.NewLedgerService(db, pendingTracker)
	accountService := services.NewAccountService(db)
	customerService := services.NewCustomerService(db, ledgerService, accountService)
	authService := services.NewAuthService(db, redisClient)

	transferHandler := handlers.NewTransferHandler(ledgerService, accountService)
	accountHandler := handlers.NewAccountHandler(accountService)
	customerHandler := handlers.NewCustomerHandler(customerService, accountService)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Reconciliation sweep for dangling split-transfer debits
	viper.SetDefault("reconcile.interval", 5*time.Minute)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go pendingTracker.Run(sweepCtx, viper.GetDuration("reconcile.interval"))

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/accounts", accountHandler.ListAccounts)
			r.Get("/accounts/{accountNumber}", accountHandler.GetAccount)
			r.Post("/accounts/validate", transferHandler.ValidateCreditAccount)

			r.Post("/transfers", transferHandler.MakeTransfer)
			r.Post("/transfers/from", transferHandler.TransferFrom)
			r.Post("/transfers/to", transferHandler.TransferTo)
			r.Get("/transactions/{correlationID}", transferHandler.GetTransaction)

			r.Post("/loans", customerHandler.MakeLoan)

			// Staff endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireStaff)

				r.Post("/staff/search", customerHandler.Search)
				r.Post("/staff/customers", customerHandler.NewCustomer)
				r.Post("/staff/accounts", customerHandler.NewAccount)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
