package di

import (
	"time"

	"browser-agent/internal/application/service"
	"browser-agent/internal/infrastructure/dispatch"
	"browser-agent/internal/infrastructure/env"
	"browser-agent/internal/infrastructure/logger"
	"browser-agent/internal/infrastructure/storage/sqlite"
	"browser-agent/internal/usecase/sequencer"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type Config struct {
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string

	ExecutorMode    service.ExecutorMode
	BrowserHeadless bool
	BrowserTimeout  time.Duration
	StartURL        string

	ActionDelay     time.Duration
	SimulatedDelay  time.Duration
	DispatchTimeout time.Duration
	PageHostURL     string

	StorageDriver string
	SQLitePath    string

	HTTPAddr     string
	PageHostAddr string

	Log logger.Config
}

// ConfigFromEnv reads every setting from the environment, falling back to
// defaults for anything unset or unparsable.
func ConfigFromEnv(e *env.EnvService) Config {
	mode, err := service.ParseMode(e.GetWithDefault("EXECUTOR_MODE", string(service.ModeSimulated)))
	if err != nil {
		mode = service.ModeSimulated
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = e.GetWithDefault("LOG_LEVEL", logCfg.Level)
	logCfg.File = e.GetWithDefault("LOG_FILE", logCfg.File)

	return Config{
		OpenRouterAPIKey:  e.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:   e.GetWithDefault("OPENROUTER_MODEL_NAME", "openai/gpt-4o-mini"),
		OpenRouterBaseURL: e.Get("OPENROUTER_BASE_URL"),

		ExecutorMode:    mode,
		BrowserHeadless: e.GetBool("BROWSER_HEADLESS", false),
		BrowserTimeout:  e.GetDuration("BROWSER_TIMEOUT", 10*time.Second),
		StartURL:        e.Get("START_URL"),

		ActionDelay:     e.GetDuration("ACTION_DELAY", sequencer.DefaultDelay),
		SimulatedDelay:  e.GetDuration("SIMULATED_DELAY", time.Second),
		DispatchTimeout: e.GetDuration("DISPATCH_TIMEOUT", dispatch.DefaultTimeout),
		PageHostURL:     e.Get("PAGE_HOST_URL"),

		StorageDriver: e.GetWithDefault("STORAGE_DRIVER", StorageMemory),
		SQLitePath:    e.GetWithDefault("SQLITE_PATH", sqlite.DefaultPath),

		HTTPAddr:     e.GetWithDefault("HTTP_ADDR", ":8080"),
		PageHostAddr: e.GetWithDefault("PAGE_HOST_ADDR", ":8081"),

		Log: logCfg,
	}
}
