package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	coreapi "github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/finchdesk/finch/internal/agent"
	"github.com/finchdesk/finch/internal/api"
	"github.com/finchdesk/finch/internal/chatlog"
	"github.com/finchdesk/finch/internal/config"
	"github.com/finchdesk/finch/internal/knowledge"
	"github.com/finchdesk/finch/internal/order"
	"github.com/finchdesk/finch/internal/platform"
	"github.com/finchdesk/finch/internal/session"
	"github.com/finchdesk/finch/internal/tools"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
//
// A knowledge store failure is not fatal: it is logged and the agent runs
// in not-ready mode, answering every message with the fixed notice.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Knowledge = provideKnowledge(ctx, cfg, embedder, logger)

	a.Orders = order.NewStore(order.Fixtures(time.Now()), nil)
	a.Sessions = session.NewStore(cfg.MaxHistoryMessages)
	a.Logs = chatlog.NewStore(nil)

	if err := provideTools(a); err != nil {
		return nil, err
	}

	ag, err := agent.New(agent.Config{
		Genkit:    a.Genkit,
		Sessions:  a.Sessions,
		Logger:    logger,
		Tools:     a.Tools,
		Knowledge: a.Knowledge,
		ModelName: cfg.FullModelName(),
		MaxTurns:  cfg.MaxToolRounds,
		TopK:      cfg.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating agent: %w", err)
	}
	a.Agent = ag

	pc, err := platform.New(platform.Config{
		BaseURL:   cfg.BaseURL(),
		APIToken:  cfg.APIToken,
		BotUserID: cfg.BotUserID,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating platform client: %w", err)
	}
	a.Platform = pc

	srv, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Agent:       a.Agent,
		Sender:      a.Platform,
		Logs:        a.Logs,
		BotUserID:   cfg.BotUserID,
		Version:     version,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	a.Server = srv

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export before Genkit initialization.
// Must be called before provideGenkit to ensure TracerProvider is ready.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	otlp := cfg.OTLP
	if !otlp.Enabled() {
		return func() {}
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if otlp.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", otlp.ServiceName)
	}
	if otlp.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+otlp.Environment)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(otlp.Endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	}
	if otlp.APIKey != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{"api-key": otlp.APIKey}))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("OTLP tracing enabled",
		"endpoint", otlp.Endpoint,
		"service", otlp.ServiceName,
		"environment", otlp.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with the configured AI provider plugin.
// Supports gemini (default), ollama, and openai providers.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = config.ProviderGemini
	}

	var g *genkit.Genkit

	switch provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration (no auto-discovery)
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		logger.Info("initialized Genkit with ollama provider",
			"model", cfg.ModelName, "host", cfg.OllamaHost)

	case config.ProviderOpenAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

	default: // "gemini"
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)
	}

	return g, nil
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, coreapi.NewName("openai", cfg.EmbedderModel))
	default: // "gemini"
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// provideKnowledge opens the persisted FAQ index, building it from the
// source document when absent. Failure leaves the agent not ready rather
// than aborting startup.
func provideKnowledge(ctx context.Context, cfg *config.Config, embedder ai.Embedder, logger *slog.Logger) *knowledge.Store {
	ks, err := knowledge.Open(ctx, knowledge.Config{
		FAQPath:   cfg.FAQPath,
		IndexPath: cfg.IndexPath,
		ChunkSize: cfg.ChunkSize,
	}, knowledge.NewEmbeddingFunc(embedder), logger)
	if err != nil {
		logger.Error("knowledge store unavailable, agent will run in not-ready mode",
			"faq_path", cfg.FAQPath,
			"index_path", cfg.IndexPath,
			"error", err,
		)
		return nil
	}
	return ks
}

// provideTools creates toolsets, registers them with Genkit, and stores
// the Genkit-wrapped references in a.
func provideTools(a *App) error {
	logger := a.Logger
	var allTools []ai.Tool

	ot, err := tools.NewOrders(a.Orders, logger)
	if err != nil {
		return fmt.Errorf("creating order tools: %w", err)
	}
	orderTools, err := tools.RegisterOrders(a.Genkit, ot)
	if err != nil {
		return fmt.Errorf("registering order tools: %w", err)
	}
	allTools = append(allTools, orderTools...)

	// A nil knowledge store must stay a nil interface inside the toolset.
	var searcher tools.FAQSearcher
	if a.Knowledge != nil {
		searcher = a.Knowledge
	}
	ft, err := tools.NewFAQ(searcher, logger)
	if err != nil {
		return fmt.Errorf("creating FAQ tools: %w", err)
	}
	faqTools, err := tools.RegisterFAQ(a.Genkit, ft)
	if err != nil {
		return fmt.Errorf("registering FAQ tools: %w", err)
	}
	allTools = append(allTools, faqTools...)

	a.Tools = allTools
	logger.Info("tools registered at construction", "count", len(allTools))
	return nil
}
