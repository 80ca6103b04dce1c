package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"browser-agent/internal/application/port/output"
	"browser-agent/internal/application/service"
	"browser-agent/internal/infrastructure/browser/htmldom"
	"browser-agent/internal/infrastructure/browser/rod"
	"browser-agent/internal/infrastructure/browser/simulated"
	"browser-agent/internal/infrastructure/dispatch"
	"browser-agent/internal/infrastructure/llm/openrouter"
	"browser-agent/internal/infrastructure/logger"
	"browser-agent/internal/infrastructure/prompts"
	"browser-agent/internal/infrastructure/storage/memory"
	"browser-agent/internal/infrastructure/storage/sqlite"
	"browser-agent/internal/usecase/executor"
	"browser-agent/internal/usecase/feedback"
	"browser-agent/internal/usecase/orchestrator"
	"browser-agent/internal/usecase/planner"
	"browser-agent/internal/usecase/sequencer"
)

// Container holds the agent side: planner, sequencer and the dispatcher that
// reaches the page, either in process or through a page host.
type Container struct {
	Config     Config
	Logger     output.LoggerPort
	Store      output.SessionStore
	LLM        output.LLMPort
	Backend    *service.ExecutorBackend
	Dispatcher output.Dispatcher
	Feedback   *feedback.Controller
	Sequencer  *sequencer.Sequencer
	Turns      *orchestrator.UseCase

	closers []func()
}

// NewContainer wires the agent. reporter may be nil.
func NewContainer(ctx context.Context, cfg Config, reporter output.ProgressReporter) (*Container, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is required")
	}

	log, err := logger.NewLoggerAdapter(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	c := &Container{Config: cfg, Logger: log}
	c.closers = append(c.closers, func() { _ = log.Close() })

	if err := c.build(ctx, reporter); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx context.Context, reporter output.ProgressReporter) error {
	cfg := c.Config

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	c.Store = store
	c.onClose(func() { _ = store.Close() })

	llmCfg := openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel)
	if cfg.OpenRouterBaseURL != "" {
		llmCfg.BaseURL = cfg.OpenRouterBaseURL
	}
	llmCfg.Logger = c.Logger
	c.LLM = openrouter.NewOpenRouterAdapter(llmCfg)

	planPrompt, err := prompts.Generate("planner", prompts.PlannerPrompt)
	if err != nil {
		return fmt.Errorf("failed to generate planner prompt: %w", err)
	}
	feedbackPrompt, err := prompts.Generate("feedback", prompts.FeedbackPrompt)
	if err != nil {
		return fmt.Errorf("failed to generate feedback prompt: %w", err)
	}
	plan := planner.New(c.LLM, c.Logger, planPrompt, feedbackPrompt)

	if cfg.PageHostURL != "" {
		client := dispatch.NewClient(cfg.PageHostURL, cfg.DispatchTimeout, c.Logger)
		c.Dispatcher = client
		c.onClose(func() { _ = client.Close() })
		c.Logger.Info("Dispatching to page host", "url", cfg.PageHostURL)
	} else {
		backend, err := Executors(cfg, c.Logger).Open(ctx, cfg.ExecutorMode)
		if err != nil {
			return err
		}
		c.Backend = backend
		c.onClose(backend.Close)

		runner := executor.New(backend.Locator, c.Logger, executor.WithInspector(backend.Inspector))
		c.Dispatcher = dispatch.NewLocalBridge(runner, cfg.DispatchTimeout, c.Logger)
		c.Logger.Info("Dispatching in process", "mode", backend.Mode)
	}

	c.Feedback = feedback.NewController(plan, store, reporter, c.Logger)

	opts := []sequencer.Option{
		sequencer.WithController(c.Feedback),
		sequencer.WithDelay(cfg.ActionDelay),
	}
	if reporter != nil {
		opts = append(opts, sequencer.WithReporter(reporter))
	}
	c.Sequencer = sequencer.New(c.Dispatcher, c.Logger, opts...)
	c.onClose(func() {
		c.Sequencer.StopExecution()
		waitCtx, cancel := context.WithTimeout(context.Background(), cfg.DispatchTimeout)
		defer cancel()
		_, _ = c.Sequencer.Wait(waitCtx)
		c.Feedback.Wait()
	})

	c.Turns = orchestrator.New(plan, store, c.Sequencer, c.Feedback, reporter, c.Logger)
	return nil
}

// Inspector returns the in-process page inspector, or nil when pages live in
// a page host.
func (c *Container) Inspector() output.PageInspector {
	if c.Backend == nil {
		return nil
	}
	return c.Backend.Inspector
}

func (c *Container) onClose(f func()) {
	c.closers = append(c.closers, f)
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// PageHost owns the page and serves the dispatch channel for a remote agent.
type PageHost struct {
	Logger  output.LoggerPort
	Backend *service.ExecutorBackend
	Server  *dispatch.Server
}

func NewPageHost(ctx context.Context, cfg Config) (*PageHost, error) {
	log, err := logger.NewLoggerAdapter(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	backend, err := Executors(cfg, log).Open(ctx, cfg.ExecutorMode)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	runner := executor.New(backend.Locator, log, executor.WithInspector(backend.Inspector))
	return &PageHost{
		Logger:  log,
		Backend: backend,
		Server:  dispatch.NewServer(runner, log),
	}, nil
}

func (h *PageHost) Close() {
	h.Server.Close()
	h.Backend.Close()
	_ = h.Logger.Close()
}

// Executors registers the live and simulated executors for cfg.
func Executors(cfg Config, log output.LoggerPort) *service.ExecutorRegistry {
	registry := service.NewExecutorRegistry()

	registry.Register(service.ModeLive, func(ctx context.Context) (*service.ExecutorBackend, error) {
		browserCfg := rod.DefaultConfig()
		browserCfg.Headless = cfg.BrowserHeadless
		if cfg.BrowserTimeout > 0 {
			browserCfg.Timeout = cfg.BrowserTimeout
		}

		browser, err := rod.NewBrowserAdapter(ctx, browserCfg, log)
		if err != nil {
			return nil, err
		}
		if cfg.StartURL != "" {
			if err := browser.Open(ctx, cfg.StartURL); err != nil {
				browser.Close()
				return nil, err
			}
		}
		return &service.ExecutorBackend{Locator: browser, Inspector: browser, Close: browser.Close}, nil
	})

	registry.Register(service.ModeSimulated, func(ctx context.Context) (*service.ExecutorBackend, error) {
		var doc *htmldom.Document
		if cfg.StartURL != "" {
			client := &http.Client{Timeout: cfg.BrowserTimeout}
			loaded, err := simulated.Load(client, cfg.StartURL)
			if err != nil {
				return nil, err
			}
			doc = loaded
		}
		sim := simulated.New(doc, cfg.SimulatedDelay, log)
		return &service.ExecutorBackend{Locator: sim, Inspector: sim}, nil
	})

	return registry
}

func openStore(cfg Config) (output.SessionStore, error) {
	switch cfg.StorageDriver {
	case "", StorageMemory:
		return memory.New(), nil
	case StorageSQLite:
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
