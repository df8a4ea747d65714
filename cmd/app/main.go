package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade_arena/internal/app"
	"trade_arena/internal/broadcast"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(configPath); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	// Pprof server, localhost only
	if addr := bootstrap.Config.Server.PprofAddr; addr != "" {
		go func() {
			slog.Info("pprof server started", slog.String("addr", addr))
			if err := http.ListenAndServe(addr, nil); err != nil {
				slog.Error("pprof server failed", slog.Any("error", err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Websocket endpoint for competition observers
	wsServer := broadcast.NewServer(bootstrap.Hub, bootstrap.Metrics)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/competitions", wsServer.HandleSubscribe)

	srv := &http.Server{
		Addr:    bootstrap.Config.Server.WSAddr,
		Handler: mux,
	}
	go func() {
		slog.Info("observer endpoint listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("observer endpoint failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("observer endpoint shutdown failed", slog.Any("error", err))
	}
}
