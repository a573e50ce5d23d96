package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brunobiangulo/bizextract"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML or JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	cfg, err := bizextract.LoadConfig(*configPath)
	if err != nil {
		slog.Error("server: loading config", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("BIZEXTRACT_API_KEY")
	corsOrigins := os.Getenv("BIZEXTRACT_CORS_ORIGINS")

	pipeline, err := bizextract.New(cfg)
	if err != nil {
		slog.Error("server: creating pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      newServer(pipeline, apiKey, corsOrigins),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // processing large documents can be slow
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server: starting", "addr", *addr, "run_id", pipeline.RunID())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server: listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("server: shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server: shutdown error", "error", err)
	}

	slog.Info("server: stopped")
}

// newServer builds the route table and middleware chain.
func newServer(p bizextract.Pipeline, apiKey, corsOrigins string) http.Handler {
	h := newHandler(p)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /process", h.handleProcess)
	mux.HandleFunc("GET /processes", h.handleProcesses)
	mux.HandleFunc("GET /runs", h.handleListRuns)
	mux.HandleFunc("GET /runs/{id}/documents/{document}", h.handleGetRecord)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)
	return handler
}
