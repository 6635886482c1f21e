package main

import (
	"flag"
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config is read from STRESS_* environment variables first; command line
// flags override it.
type Config struct {
	Duration       string  `config:"STRESS_DURATION"`
	Entities       int     `config:"STRESS_ENTITIES"`
	IndexedRatio   float64 `config:"STRESS_INDEXED_RATIO"`
	Relations      int     `config:"STRESS_RELATIONS"`
	LogLevel       string  `config:"STRESS_LOG_LEVEL"`
	GCPauseMetrics bool    `config:"STRESS_GC_PAUSE_METRICS"`
	Seed           int64   `config:"STRESS_SEED"`
	ReportFormat   string  `config:"STRESS_REPORT_FORMAT"`
}

func defaultConfig() Config {
	return Config{
		Duration:     "10s",
		Entities:     10000,
		IndexedRatio: 0.5,
		Relations:    2,
		LogLevel:     "info",
		Seed:         1,
		ReportFormat: "markdown",
	}
}

func loadConfig(args []string) (Config, error) {
	cfg := defaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "reading environment")
	}

	fs := flag.NewFlagSet("ecs-stress", flag.ContinueOnError)
	fs.StringVar(&cfg.Duration, "duration", cfg.Duration, "The total duration the test should run for.")
	fs.IntVar(&cfg.Entities, "entities", cfg.Entities, "The initial number of entities to create.")
	fs.Float64Var(&cfg.IndexedRatio, "indexed-ratio", cfg.IndexedRatio, "Fraction of entities spawned with indexed components.")
	fs.IntVar(&cfg.Relations, "relations", cfg.Relations, "Relations each hunter links to on spawn.")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "zerolog level for progress output.")
	fs.BoolVar(&cfg.GCPauseMetrics, "gc-pause-metrics", cfg.GCPauseMetrics, "Enable detailed GC pause metrics in the report.")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed for entity generation.")
	fs.StringVar(&cfg.ReportFormat, "report", cfg.ReportFormat, "Report format: markdown or json.")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	d, err := time.ParseDuration(c.Duration)
	if err != nil {
		return eris.Wrapf(err, "invalid duration %q", c.Duration)
	}
	if d <= 0 {
		return eris.Errorf("duration must be positive, got %s", d)
	}

	if c.Entities < 0 {
		return eris.Errorf("entities must not be negative, got %d", c.Entities)
	}
	if c.IndexedRatio < 0 || c.IndexedRatio > 1 {
		return eris.Errorf("indexed ratio must be within [0, 1], got %v", c.IndexedRatio)
	}
	if c.Relations < 0 {
		return eris.Errorf("relations must not be negative, got %d", c.Relations)
	}

	if c.ReportFormat != "markdown" && c.ReportFormat != "json" {
		return eris.Errorf("unknown report format %q", c.ReportFormat)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	return nil
}

// RunDuration is the parsed Duration. Only valid after validate.
func (c *Config) RunDuration() time.Duration {
	d, _ := time.ParseDuration(c.Duration)
	return d
}

// Level is the parsed LogLevel. Only valid after validate.
func (c *Config) Level() zerolog.Level {
	level, _ := zerolog.ParseLevel(c.LogLevel)
	return level
}
