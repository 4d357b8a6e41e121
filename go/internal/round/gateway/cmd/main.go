package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mcdev12/sumrush/go/internal/gamecfg"
	"github.com/mcdev12/sumrush/go/internal/round/gateway"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := gamecfg.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.Level())

	gatewayConfig := gateway.Config{
		ConnectionConfig: connectionConfig(cfg.WebSocket),
		Round:            cfg.Round,
		Limits: gateway.Limits{
			MaxNumberCount:      cfg.Limits.MaxNumberCount,
			MaxCountdownSeconds: cfg.Limits.MaxCountdownSeconds,
		},
	}

	gatewayService, err := gateway.NewService(gatewayConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	server := setupServer(cfg.Server.Port, gatewayService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := gatewayService.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Int("number_count", cfg.Round.NumberCount).
			Int("countdown_seconds", cfg.Round.CountdownSeconds).
			Msg("starting round gateway")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("round gateway stopped")
}

func connectionConfig(ws gamecfg.WebSocketConfig) gateway.ConnectionConfig {
	cc := gateway.DefaultConnectionConfig()
	cc.WriteTimeout = ws.WriteTimeout
	cc.ReadTimeout = ws.ReadTimeout
	cc.PingInterval = ws.PingInterval
	cc.MaxMessageSize = ws.MaxMessageSize
	cc.ReadBufferSize = ws.ReadBufferSize
	cc.WriteBufferSize = ws.WriteBufferSize
	cc.SendBufferSize = ws.SendBufferSize
	return cc
}

func setupServer(port string, gatewayService *gateway.Service) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	gatewayService.RegisterRoutes(mux)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	mux.HandleFunc("GET /info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(gatewayService.GetStats()); err != nil {
			log.Error().Err(err).Msg("failed to encode service info")
		}
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}
