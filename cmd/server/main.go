package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/cartsaver/internal/auth"
	"github.com/mmynk/cartsaver/internal/config"
	"github.com/mmynk/cartsaver/internal/llm"
	"github.com/mmynk/cartsaver/internal/metrics"
	"github.com/mmynk/cartsaver/internal/middleware"
	"github.com/mmynk/cartsaver/internal/optimizer"
	"github.com/mmynk/cartsaver/internal/oracle"
	"github.com/mmynk/cartsaver/internal/service"
	"github.com/mmynk/cartsaver/internal/session"
	"github.com/mmynk/cartsaver/internal/storage/sqlite"
	"github.com/mmynk/cartsaver/pkg/api"
	"github.com/mmynk/cartsaver/pkg/logging"
)

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		logging.Setup("info")
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.New()

	gen, closeGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	llmOracle := oracle.New(gen, m, cfg.MaxCandidates)
	engine := optimizer.NewEngine(llmOracle, llmOracle, optimizer.Options{
		MaxCandidates: cfg.MaxCandidates,
		StoreTimeout:  cfg.StoreTimeout,
		Thresholds:    cfg.Thresholds,
	}, m)
	sessions := session.NewManager(engine, optimizer.NewApplier(store, m), store, store, m)

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.JWTSecret, 24*time.Hour)
		slog.Info("Bearer token verification enabled")
	}

	mux := http.NewServeMux()
	path, handler := api.NewOptimizerServiceHandler(
		service.NewOptimizerService(sessions, store),
		connect.WithInterceptors(middleware.Interceptors(jwtManager)...),
	)
	mux.Handle(path, handler)
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	go cleanupSessions(ctx, sessions, cfg.SessionTTL)

	// h2c serves HTTP/2 without TLS, which Connect needs for streaming clients.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting",
			"address", srv.Addr,
			"url", fmt.Sprintf("http://localhost%s", srv.Addr),
			"oracle", cfg.OracleProvider,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newTextGenerator builds the configured model client. The returned func
// releases it.
func newTextGenerator(ctx context.Context, cfg *config.Config) (llm.TextGenerator, func(), error) {
	switch cfg.OracleProvider {
	case config.ProviderGroq:
		slog.Info("Using Groq oracle", "model", cfg.GroqModel)
		return llm.NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel), func() {}, nil
	default:
		client, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		slog.Info("Using Gemini oracle", "model", cfg.GeminiModel)
		return client, func() {
			if err := client.Close(); err != nil {
				slog.Warn("Failed to close Gemini client", "error", err)
			}
		}, nil
	}
}

// cleanupSessions expires idle sessions until ctx is done.
func cleanupSessions(ctx context.Context, sessions *session.Manager, ttl time.Duration) {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Cleanup(ctx, ttl)
		}
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		slog.Debug("Request received",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(w, r)

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
