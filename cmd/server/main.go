package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/logiflow/notification-service/internal/auth"
	"github.com/logiflow/notification-service/internal/broker"
	"github.com/logiflow/notification-service/internal/config"
	"github.com/logiflow/notification-service/internal/db"
	mw "github.com/logiflow/notification-service/internal/middleware"
	"github.com/logiflow/notification-service/internal/notifications"
	"github.com/logiflow/notification-service/internal/ws"
)

func main() {
	cfg := config.Load()

	// Database. Fatal when unreachable: persistence is the durability
	// guarantee behind every ack, so the consumer cannot run without it.
	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Printf("WARNING: migrations failed: %v", err)
	}

	// JWT
	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Realtime hub
	hub := ws.NewHub()
	wsHandler := ws.NewHandler(hub, jwtService, cfg.Strict())
	log.Printf("auth mode: %s", cfg.AuthMode)

	// Broker + ingestion consumer. A broker that is unreachable at startup
	// is fatal: the service cannot run headless without its event source.
	msgBroker, err := broker.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("broker setup failed: %v", err)
	}

	notifStore := notifications.NewNotificationStore(database.Pool)
	consumer := notifications.NewConsumer(msgBroker, notifStore, hub)
	if err := consumer.Start(); err != nil {
		log.Fatalf("consumer failed to start: %v", err)
	}

	// HTTP surface
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok")) //nolint:errcheck
	}).Methods(http.MethodGet)

	wsHandler.RegisterRoutes(router)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(mw.RateLimitMiddleware(50, 100))
	api.Use(mw.AuthMiddleware(jwtService))
	notifications.NewHandlers(notifStore).RegisterRoutes(api)
	wsHandler.RegisterAPIRoutes(api)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	// Shutdown order: stop accepting deliveries, let the in-flight ack
	// decision finish, release the broker, then drain HTTP.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	consumer.Stop()
	if err := msgBroker.Close(); err != nil {
		log.Printf("WARNING: broker close failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: server shutdown failed: %v", err)
	}
}
