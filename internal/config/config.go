package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Staging   StagingConfig   `yaml:"staging" mapstructure:"staging"`
	Places    PlacesConfig    `yaml:"places" mapstructure:"places"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	OpenData  OpenDataConfig  `yaml:"opendata" mapstructure:"opendata"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the consolidation backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// StagingConfig locates the staged-artifact directory.
type StagingConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PlacesConfig holds the search API credentials and endpoint.
type PlacesConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DiscoveryConfig configures the grid sweep.
type DiscoveryConfig struct {
	LatMin            float64  `yaml:"lat_min" mapstructure:"lat_min"`
	LatMax            float64  `yaml:"lat_max" mapstructure:"lat_max"`
	LngMin            float64  `yaml:"lng_min" mapstructure:"lng_min"`
	LngMax            float64  `yaml:"lng_max" mapstructure:"lng_max"`
	SpacingDeg        float64  `yaml:"spacing_deg" mapstructure:"spacing_deg"`
	Types             []string `yaml:"types" mapstructure:"types"`
	Keywords          []string `yaml:"keywords" mapstructure:"keywords"`
	RequestDelayMS    int      `yaml:"request_delay_ms" mapstructure:"request_delay_ms"`
	PageTokenDelayMS  int      `yaml:"page_token_delay_ms" mapstructure:"page_token_delay_ms"`
	QuotaCooldownSecs int      `yaml:"quota_cooldown_secs" mapstructure:"quota_cooldown_secs"`
	MaxPagesPerQuery  int      `yaml:"max_pages_per_query" mapstructure:"max_pages_per_query"`
	CheckpointPath    string   `yaml:"checkpoint_path" mapstructure:"checkpoint_path"`
}

// OpenDataConfig configures the civic dataset fetchers.
type OpenDataConfig struct {
	RecordLimit int `yaml:"record_limit" mapstructure:"record_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "soc_market_study.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("places.key", "")
	v.SetDefault("staging.dir", "staging")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("discovery.lat_min", 53.40)
	v.SetDefault("discovery.lat_max", 53.70)
	v.SetDefault("discovery.lng_min", -113.70)
	v.SetDefault("discovery.lng_max", -113.30)
	v.SetDefault("discovery.spacing_deg", 0.05)
	v.SetDefault("discovery.types", []string{"cafe"})
	v.SetDefault("discovery.keywords", []string{"coffee", "espresso"})
	v.SetDefault("discovery.request_delay_ms", 200)
	v.SetDefault("discovery.page_token_delay_ms", 2000)
	v.SetDefault("discovery.quota_cooldown_secs", 30)
	v.SetDefault("discovery.max_pages_per_query", 3)
	v.SetDefault("discovery.checkpoint_path", "staging/discovery_checkpoint.json")
	v.SetDefault("opendata.record_limit", 10000)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a given command mode needs before it runs.
func (c *Config) Validate(mode string) error {
	var problems []string

	add := func(p string) { problems = append(problems, p) }

	switch mode {
	case "discover":
		if c.Places.Key == "" {
			add("places.key is required")
		}
		if c.Discovery.LatMax <= c.Discovery.LatMin || c.Discovery.LngMax <= c.Discovery.LngMin {
			add("discovery region is degenerate")
		}
		if c.Discovery.SpacingDeg <= 0 {
			add("discovery.spacing_deg must be > 0")
		}
	case "fetch":
		if c.OpenData.RecordLimit <= 0 {
			add("opendata.record_limit must be > 0")
		}
	case "enrich":
		// Operates on staged artifacts only.
	case "consolidate":
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				add("store.path is required for the sqlite driver")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				add("store.database_url is required for the postgres driver")
			}
		default:
			add("store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Staging.Dir == "" {
		add("staging.dir is required")
	}
	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
