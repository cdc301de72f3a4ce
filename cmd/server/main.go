package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/openballot/api/internal/adapters/dispatcher/outbox"
	"github.com/openballot/api/internal/adapters/handler/http"
	"github.com/openballot/api/internal/adapters/repository/postgres"
	"github.com/openballot/api/internal/core/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	connStr := dbConnString()
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Initialize adapters
	voteRepo := postgres.NewVoteRepository(db)
	dispatcher := outbox.NewDispatcher(db)

	// Initialize service
	cache := services.NewCache()
	voteService := services.NewVoteService(voteRepo, dispatcher, cache, logger)

	// Warm the cache before serving traffic; an empty process serving
	// stale zeros is worse than a failed start.
	warmupCtx, cancelWarmup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := voteService.RefreshAll(warmupCtx); err != nil {
		log.Fatalf("failed to warm vote cache: %v", err)
	}
	cancelWarmup()

	voteHandler := http.NewVoteHandler(voteService)
	adminHandler := http.NewAdminHandler(voteService, os.Getenv("FLUSH_SECRET"))
	handler := http.NewHandler(voteHandler, adminHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &stdhttp.Server{Addr: "0.0.0.0:" + port, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}

func dbConnString() string {
	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")
	host := os.Getenv("POSTGRES_HOST")
	port := os.Getenv("POSTGRES_PORT")
	dbName := os.Getenv("POSTGRES_DB")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbName)
}
