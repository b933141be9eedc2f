// Package main implements the vehicle form web server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/WessleyAI/vehicle-form/engine/classify"
	"github.com/WessleyAI/vehicle-form/pkg/metrics"
	"github.com/WessleyAI/vehicle-form/pkg/mid"
	"github.com/WessleyAI/vehicle-form/pkg/natsutil"
	"github.com/WessleyAI/vehicle-form/pkg/ollama"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	OllamaURL       string
	OllamaModel     string
	ClassifyTimeout time.Duration
	ClassifyRPS     float64
	NATSURL         string
	NATSSubject     string
	CORSOrigin      string
	WASMDir         string
	SubmitRPS       float64
	SubmitBurst     int
}

func loadConfig() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		OllamaURL:       envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:     envOr("OLLAMA_MODEL", "llama3.1"),
		ClassifyTimeout: envDuration("CLASSIFY_TIMEOUT", 60*time.Second),
		ClassifyRPS:     envFloat("CLASSIFY_RPS", 2),
		NATSURL:         os.Getenv("NATS_URL"),
		NATSSubject:     envOr("NATS_SUBJECT", "vehicle.classified"),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
		WASMDir:         os.Getenv("WASM_DIR"),
		SubmitRPS:       envFloat("SUBMIT_RPS", 1),
		SubmitBurst:     envInt("SUBMIT_BURST", 5),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	classifyOpts := []classify.Option{classify.WithMetrics(reg)}

	// --- Connect to NATS (optional) ---
	if cfg.NATSURL != "" {
		nc, err := natsutil.Connect(cfg.NATSURL, "vehicle-form", logger)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		classifyOpts = append(classifyOpts, classify.WithPublisher(natsutil.NewPublisher[classify.Event](nc, cfg.NATSSubject)))
		logger.Info("publishing classifications", "subject", cfg.NATSSubject)
	}

	// --- Build classifier ---
	var chat classify.Completer
	if cfg.OllamaURL != "off" {
		chat = ollama.NewChatClient(cfg.OllamaURL, cfg.OllamaModel, ollama.Options{Temperature: 0.5, NumPredict: 500}, 0)
	} else {
		logger.Warn("classification disabled", "reason", "OLLAMA_URL=off")
	}
	opts := classify.DefaultOptions()
	opts.Timeout = cfg.ClassifyTimeout
	opts.RPS = cfg.ClassifyRPS
	classifier := classify.New(chat, opts, logger, classifyOpts...)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newServer(classifier, reg, logger, cfg.WASMDir != "").routes(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ClassifyTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("vehicle form server starting", "port", cfg.Port, "model", cfg.OllamaModel)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// routes builds the mux and wraps it in the middleware chain.
func (s *server) routes(cfg Config) http.Handler {
	submitLimit := mid.RateLimit(mid.RateLimitOpts{
		Rate:    cfg.SubmitRPS,
		Burst:   cfg.SubmitBurst,
		OnLimit: http.HandlerFunc(s.handleLimited),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /{$}", submitLimit(http.HandlerFunc(s.handleSubmit)))
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.Handle("POST /api/classify", submitLimit(http.HandlerFunc(s.handleClassify)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /static/", http.FileServerFS(staticFS()))
	if cfg.WASMDir != "" {
		mux.Handle("GET /wasm/", http.StripPrefix("/wasm/", http.FileServer(http.Dir(filepath.Clean(cfg.WASMDir)))))
	}

	return mid.Chain(mux,
		mid.Recover(s.logger),
		mid.Logger(s.logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("vehicle-form"),
		mid.Metrics(s.metrics, nil),
	)
}
