package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/vaultbank/backend/internal/config"
	"github.com/vaultbank/backend/internal/database"
	"github.com/vaultbank/backend/internal/gl"
	"github.com/vaultbank/backend/internal/handlers"
	"github.com/vaultbank/backend/internal/ledger"
	"github.com/vaultbank/backend/internal/logger"
	"github.com/vaultbank/backend/internal/settlement"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	cfg := config.Load()

	db, err := database.OpenPostgres(cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := database.OpenRedis(cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var queue *settlement.Queue
	if redisClient != nil {
		queue = settlement.NewQueue(redisClient, cfg.Settlement.QueueName)
	}

	var enqueuer ledger.Enqueuer
	if queue != nil {
		enqueuer = queue
	}
	ledgerService := ledger.NewService(db, cfg.Transfer, enqueuer)
	glService := gl.NewService(db)

	transferHandler := handlers.NewTransferHandler(ledgerService)
	glHandler := handlers.NewGLHandler(glService)

	// Settlement worker drains the deferred-transfer queue in the background.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if queue != nil {
		worker := settlement.NewWorker(queue, cfg.Settlement.PollInterval)
		go worker.Run(workerCtx)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/accounts", transferHandler.OpenAccount)
		r.Get("/accounts/{accountId}", transferHandler.GetAccount)
		r.Put("/accounts/{accountId}/status", transferHandler.SetAccountStatus)

		r.Post("/transfers/internal", transferHandler.TransferInternal)
		r.Post("/transfers/neft", transferHandler.TransferDeferred)
		r.Post("/transfers/imps", transferHandler.TransferInstant)

		r.Post("/gl/entries", glHandler.CreateEntry)
		r.Get("/gl/entries/{entryId}", glHandler.GetEntry)
		r.Post("/gl/entries/{entryId}/post", glHandler.PostEntry)
		r.Post("/gl/entries/{entryId}/reverse", glHandler.ReverseEntry)
		r.Post("/gl/entries/batch-post", glHandler.BatchPost)
		r.Get("/gl/trial-balance", glHandler.TrialBalance)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Log.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("server shutting down")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("server stopped")
}
