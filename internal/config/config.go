// Package config loads tool configuration from the environment.
package config

import (
	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	Logging     struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Metrics struct {
		Enabled bool   `env:"METRICS_ENABLED" envDefault:"false"`
		Addr    string `env:"METRICS_ADDR" envDefault:":9090"`
	}
	Run struct {
		MaxIters        uint64 `env:"RUN_MAX_ITERS" envDefault:"1000"`
		ObserveEvery    uint64 `env:"RUN_OBSERVE_EVERY" envDefault:"10"`
		CheckpointDir   string `env:"RUN_CHECKPOINT_DIR" envDefault:""`
		CheckpointEvery uint64 `env:"RUN_CHECKPOINT_EVERY" envDefault:"100"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// development runs want readable debug output unless told otherwise
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}
