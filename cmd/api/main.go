package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stratify/internal/blueprint"
	"stratify/internal/config"
	"stratify/internal/generate"
	"stratify/internal/llm"
	llmclient "stratify/internal/llmclient"
	"stratify/internal/onboarding"
	"stratify/internal/pipeline"
	"stratify/internal/server"
	"stratify/internal/store"
)

func main() {
	if err := runApp(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func runApp() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	client, err := buildClient(cfg)
	if err != nil {
		return fmt.Errorf("init llm client: %w", err)
	}
	defer client.Close()

	ledger := llm.NewLedger()
	wrapped := llm.Wrap(client,
		llm.RateLimit(cfg.Provider.RPS, cfg.Provider.Burst),
		llm.WithUsage(ledger),
		llm.WithLogging(logger),
	)

	adapter := generate.NewAdapter(wrapped, cfg.Pipeline.SectionTimeout)
	broker := llm.NewBroker(llm.NewLimiter(cfg.Provider.RPS, cfg.Provider.Burst))

	var docs *onboarding.DocStore
	if cfg.DocStore.Enabled {
		docs, err = onboarding.NewDocStore(onboarding.DocStoreConfig{
			Endpoint:  cfg.DocStore.Endpoint,
			Region:    cfg.DocStore.Region,
			AccessKey: cfg.DocStore.AccessKey,
			SecretKey: cfg.DocStore.SecretKey,
			Bucket:    cfg.DocStore.Bucket,
			UseSSL:    cfg.DocStore.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("init doc store: %w", err)
		}
	}

	app := &apiServer{
		cfg:      cfg,
		gen:      blueprint.NewGenerator(adapter, broker, logger),
		store:    store.NewFromEnv(cfg.StorePath),
		docs:     docs,
		ledger:   ledger,
		runs:     newRunStore(),
		sessions: newSessionStore(),
		breaker: pipeline.NewBreaker(pipeline.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown,
		}),
		log: logger,
	}
	defer app.store.Close()

	srv := server.New(cfg.Port, server.CORS(app.routes()))
	logger.Info("api listening", "port", cfg.Port, "provider", cfg.Provider.Name, "model", cfg.Provider.Model)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildClient(cfg *config.Config) (llmclient.LLMClient, error) {
	switch cfg.Provider.Name {
	case "groq":
		return llmclient.NewGroqClient(cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.TokenCap)
	case "fake":
		return llm.NewFakeClient(cfg.Provider.TokenCap), nil
	default:
		return llmclient.NewGeminiClient(context.Background(), cfg.Provider.APIKey, cfg.Provider.Model, cfg.Provider.TokenCap)
	}
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/blueprint", s.handleBlueprint)
	mux.HandleFunc("POST /api/onboarding/session", s.handleSessionStart)
	mux.HandleFunc("PATCH /api/onboarding/session/{id}/context", s.handleSessionContext)
	mux.HandleFunc("POST /api/onboarding/session/{id}/finish", s.handleSessionFinish)
	mux.HandleFunc("POST /api/blueprint/stream", s.handleBlueprintStream)
	mux.HandleFunc("PATCH /api/blueprint/{id}/budget", s.handleBudgetEdit)
	mux.HandleFunc("POST /api/mediaplan", s.handleMediaPlan)
	mux.HandleFunc("POST /api/mediaplan/stream", s.handleMediaPlanStream)
	mux.HandleFunc("PATCH /api/mediaplan/{id}/platforms", s.handlePlatformEdit)
	mux.HandleFunc("GET /api/artifacts/{id}", s.handleGetArtifact)
	mux.HandleFunc("GET /api/artifacts", s.handleListArtifacts)
	mux.HandleFunc("GET /api/watch/{runId}", s.handleWatchSSE)
	mux.HandleFunc("GET /api/watch/ws/{runId}", s.handleWatchWS)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}
