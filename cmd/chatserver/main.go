package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"e2ee-chat/internal/config"
	"e2ee-chat/internal/observability/logging"
	"e2ee-chat/internal/observability/metrics"
	"e2ee-chat/internal/relay"
	"e2ee-chat/internal/service"
	"e2ee-chat/internal/store"
	httptransport "e2ee-chat/internal/transport/http"
	wstransport "e2ee-chat/internal/transport/ws"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "chatserver",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	metrics.MustRegister("chatserver")

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("gorm open: %v", err)
	}

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	tokens := service.NewTokenServiceHS256(service.TokenConfig{
		Issuer:     "e2ee-chat",
		TTL:        cfg.SessionTTL,
		SigningKey: []byte(cfg.TokenSecret),
	})
	auth := service.NewAuthService(st, tokens, cfg.BcryptCost, cfg.SessionTTL)

	router := relay.NewRouter()
	handshakes := service.NewHandshakeService(st, router)
	messages := service.NewMessageService(st, router)

	origins := strings.Split(cfg.CORSOrigins, ",")
	wsHandler := wstransport.NewHandler(router, auth, handshakes, messages, origins)
	handler := httptransport.NewRouter(httptransport.Config{
		CORSOrigins: origins,
		SessionTTL:  cfg.SessionTTL,
	}, auth, wsHandler)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("chatserver listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	// Live relay sessions do not outlive the process.
	router.Shutdown()
}
