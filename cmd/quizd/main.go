package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/term"

	"quizsolver/internal/adapter/cli"
	"quizsolver/internal/adapter/fetch"
	llm "quizsolver/internal/adapter/llm"
	"quizsolver/internal/adapter/llm/anthropic"
	llmhttp "quizsolver/internal/adapter/llm/http"
	"quizsolver/internal/adapter/llm/ollama"
	"quizsolver/internal/adapter/llm/openai"
	"quizsolver/internal/adapter/llm/static"
	"quizsolver/internal/adapter/observability"
	storeAdapter "quizsolver/internal/adapter/store"
	"quizsolver/internal/adapter/store/sqlite"
	"quizsolver/internal/adapter/submit"
	"quizsolver/internal/config"
	"quizsolver/internal/determinism"
	"quizsolver/internal/domain"
	"quizsolver/internal/guard"
	"quizsolver/internal/infra/memory"
	redisinfra "quizsolver/internal/infra/redis"
	"quizsolver/internal/parser"
	"quizsolver/internal/store"
	transport "quizsolver/internal/transport/http"
	"quizsolver/internal/usecase/solve"
	"quizsolver/internal/version"
)

func main() {
	if err := run(); err != nil {
		// Redact secrets from URLs in error messages before logging
		log.Println(llmhttp.RedactURLSecrets(err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "quizd",
		EnvPrefix:   "QUIZD",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	obs := buildObservability(cfg.Observability)

	providers := buildProviders(cfg.Providers, cfg.HTTP, obs)
	if len(providers) == 0 {
		return errors.New("no providers enabled; enable at least the static provider")
	}

	inputGuard, err := buildGuard(cfg.Guard)
	if err != nil {
		return fmt.Errorf("input guard setup failed: %w", err)
	}

	credentials, err := buildCredentials(ctx, cfg)
	if err != nil {
		return fmt.Errorf("credential store setup failed: %w", err)
	}

	retryCfg := llmhttp.BuildRetryConfig(config.ProviderConfig{}, cfg.HTTP)
	fetchTimeout := llmhttp.ParseTimeout(nil, cfg.Fetch.Timeout, 10*time.Second)

	fetcher := fetch.New(fetch.Options{
		Timeout:      fetchTimeout,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
		UserAgent:    cfg.Fetch.UserAgent,
		Retry:        retryCfg,
	})
	if obs.logger != nil {
		fetcher.SetLogger(obs.logger)
	}

	submitter := submit.New(submit.Options{
		Timeout:   fetchTimeout,
		UserAgent: cfg.Fetch.UserAgent,
		Retry:     retryCfg,
	})

	// Initialize attempt store if enabled
	var history store.Store
	var attempts solve.AttemptStore
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			sqliteStore, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				history = sqliteStore
				attempts = storeAdapter.NewBridge(sqliteStore)
				defer func() { _ = sqliteStore.Close() }()
			}
		}
	}

	var solveLogger solve.Logger
	if obs.logger != nil {
		solveLogger = observability.NewSolveLogger(obs.logger)
	}

	solver := solve.NewSolver(solve.Deps{
		Fetcher:     fetcher,
		Parse:       parser.Parse,
		Guard:       inputGuard,
		Providers:   providers,
		Submitter:   submitter,
		Credentials: credentials,
		Store:       attempts,
		Logger:      solveLogger,
		Seed:        determinism.GenerateSeed,
		Prompt:      solve.NewPromptBuilder(llm.EstimateTokens, cfg.Guard.MaxPromptTokens),
	})

	chainOpts := solve.ChainOptions{
		MaxQuestions:    cfg.Chain.MaxQuestions,
		QuestionTimeout: llmhttp.ParseTimeout(nil, cfg.Chain.QuestionTimeout, 30*time.Second),
		Delay:           llmhttp.ParseTimeout(nil, cfg.Chain.Delay, 500*time.Millisecond),
	}

	handler := transport.NewHandler(solver, chainOpts, version.Value())
	if obs.metrics != nil {
		handler.SetMetrics(obs.metrics)
	}
	if history != nil {
		handler.SetHistory(history)
	}

	server := transport.NewServer(handler, transport.ServerOptions{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     llmhttp.ParseTimeout(nil, cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:    llmhttp.ParseTimeout(nil, cfg.Server.WriteTimeout, 10*time.Minute),
		ShutdownTimeout: llmhttp.ParseTimeout(nil, cfg.Server.ShutdownTimeout, 5*time.Second),
	})

	root := cli.NewRootCommand(cli.Dependencies{
		Solver:       solver,
		Server:       server,
		History:      history,
		ChainOptions: chainOpts,
		Version:      version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "quizd"))
	}
	return paths
}

// openGuard forwards everything untouched, used when the guard is
// disabled in configuration.
type openGuard struct{}

func (openGuard) Inspect(text string) domain.GuardVerdict {
	return domain.GuardVerdict{Allowed: true, Sanitized: text}
}

func (openGuard) Protect(values ...string) {}

func buildGuard(cfg config.GuardConfig) (solve.Inspector, error) {
	if !cfg.Enabled {
		log.Println("input guard disabled; quiz text is forwarded unscreened")
		return openGuard{}, nil
	}
	return guard.New(guard.Options{
		CodeWords:    cfg.CodeWords,
		DenyPatterns: cfg.DenyPatterns,
	})
}

func buildCredentials(ctx context.Context, cfg config.Config) (solve.CredentialStore, error) {
	if cfg.Redis.Addr == "" {
		return memory.NewCredentialStore(cfg.Credentials), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	redisStore := redisinfra.NewCredentialStore(client)
	if err := redisStore.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if err := redisStore.Seed(ctx, cfg.Credentials); err != nil {
		return nil, fmt.Errorf("redis seed: %w", err)
	}
	return redisStore, nil
}

// observabilityComponents holds shared observability instances
type observabilityComponents struct {
	logger  llmhttp.Logger
	metrics llmhttp.Metrics
	pricing llmhttp.Pricing
}

// buildObservability creates observability components based on configuration
func buildObservability(cfg config.ObservabilityConfig) observabilityComponents {
	var logger llmhttp.Logger
	var metrics llmhttp.Metrics

	if cfg.Logging.Enabled {
		logLevel := llmhttp.LogLevelInfo
		switch cfg.Logging.Level {
		case "debug":
			logLevel = llmhttp.LogLevelDebug
		case "error":
			logLevel = llmhttp.LogLevelError
		}

		logger = llmhttp.NewDefaultLogger(logLevel, detectLogFormat(cfg.Logging.Format), cfg.Logging.RedactAPIKeys)
	}

	if cfg.Metrics.Enabled {
		metrics = llmhttp.NewDefaultMetrics()
	}

	// Pricing is always on; cost tracking is cheap and feeds /api/stats
	pricing := llmhttp.NewDefaultPricing()

	return observabilityComponents{
		logger:  logger,
		metrics: metrics,
		pricing: pricing,
	}
}

// detectLogFormat picks human output on a terminal and JSON elsewhere,
// unless the config pins a format.
func detectLogFormat(configured string) llmhttp.LogFormat {
	switch configured {
	case "json":
		return llmhttp.LogFormatJSON
	case "human":
		return llmhttp.LogFormatHuman
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return llmhttp.LogFormatHuman
	}
	return llmhttp.LogFormatJSON
}

// buildProviders returns the enabled providers in fallback order:
// anthropic first, then openai, ollama, and the static provider last.
func buildProviders(providersConfig map[string]config.ProviderConfig, httpConfig config.HTTPConfig, obs observabilityComponents) []solve.Provider {
	var providers []solve.Provider

	if cfg, ok := providersConfig["anthropic"]; ok && cfg.Enabled {
		model := cfg.Model
		if model == "" {
			model = "claude-3-5-sonnet-20241022"
		}
		if cfg.APIKey == "" {
			log.Println("Anthropic: No API key provided, skipping provider")
		} else {
			client := anthropic.NewHTTPClient(cfg.APIKey, model, cfg, httpConfig)
			wireObservability(client, obs)
			providers = append(providers, anthropic.NewProvider(model, client))
		}
	}

	if cfg, ok := providersConfig["openai"]; ok && cfg.Enabled {
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		if cfg.APIKey == "" {
			log.Println("OpenAI: No API key provided, skipping provider")
		} else {
			client := openai.NewHTTPClient(cfg.APIKey, model, cfg, httpConfig)
			wireObservability(client, obs)
			providers = append(providers, openai.NewProvider(model, client))
		}
	}

	if cfg, ok := providersConfig["ollama"]; ok && cfg.Enabled {
		model := cfg.Model
		if model == "" {
			model = "llama3"
		}
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = cfg.Host
		}
		if host == "" {
			host = "http://localhost:11434"
		}
		client := ollama.NewHTTPClient(host, model, cfg, httpConfig)
		// Local models have no pricing to wire.
		if obs.logger != nil {
			client.SetLogger(obs.logger)
		}
		if obs.metrics != nil {
			client.SetMetrics(obs.metrics)
		}
		providers = append(providers, ollama.NewProvider(model, client))
	}

	if cfg, ok := providersConfig["static"]; ok && cfg.Enabled {
		model := cfg.Model
		if model == "" {
			model = "static-v1"
		}
		providers = append(providers, static.NewProvider(model))
	}

	return providers
}

// observableClient is the surface shared by all HTTP provider clients.
type observableClient interface {
	SetLogger(llmhttp.Logger)
	SetMetrics(llmhttp.Metrics)
	SetPricing(llmhttp.Pricing)
}

func wireObservability(client observableClient, obs observabilityComponents) {
	if obs.logger != nil {
		client.SetLogger(obs.logger)
	}
	if obs.metrics != nil {
		client.SetMetrics(obs.metrics)
	}
	if obs.pricing != nil {
		client.SetPricing(obs.pricing)
	}
}

// Compile-time checks that the wiring satisfies the use case ports.
var (
	_ solve.Fetcher   = (*fetch.Fetcher)(nil)
	_ solve.Submitter = (*submit.Submitter)(nil)
	_ solve.Inspector = (*guard.Guard)(nil)
	_ solve.Provider  = (*static.Provider)(nil)
	_ cli.QuizSolver  = (*solve.Solver)(nil)
)
