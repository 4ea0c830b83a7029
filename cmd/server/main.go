// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"chaarchitti/internal/auth"
	"chaarchitti/internal/cache"
	"chaarchitti/internal/database"
	"chaarchitti/internal/handlers"
	"chaarchitti/internal/middleware"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if err := auth.Init(); err != nil {
		log.Fatalf("auth init failed: %v", err)
	}

	// Redis and Postgres are optional: rooms are fully in-memory and the
	// journal and round-result sinks simply stay off when unconfigured.
	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Warn("redis unavailable, action journal disabled")
	}
	if err := database.ConnectDB(); err != nil {
		logger.WithError(err).Warn("postgres unavailable, round results will not be recorded")
	}

	srv := handlers.NewServer(logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(logger, srv),
	)))
	mux.Handle("/healthz", middleware.LogMiddleware(logger)(srv.HealthHandler()))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("chaarchitti server running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
