package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pbaille/notable/internal/errs"
)

// Config is the top-level notable configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig locates the sqlite database file.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EmbeddingConfig controls the external embedding service.
type EmbeddingConfig struct {
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	APIKey     string `mapstructure:"api_key"`
}

// NormalizeConfig tunes the tag-normalization analysis.
type NormalizeConfig struct {
	// SimilarityThreshold is a cosine *similarity* in [0,1]; the engine
	// converts it to a distance via 1 - similarity.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	MinClusterSize      int     `mapstructure:"min_cluster_size"`
}

// ServerConfig controls the REST API listener.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the config file (if any) and environment, applies defaults,
// and validates the result. Lookup order: --config flag value if non-empty,
// $NOTABLE_CONFIG, ~/.notable/config.yaml. A missing file is not an error;
// defaults and NOTABLE_* env vars still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("NOTABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("NOTABLE_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.Wrapf(err, errs.CodeConfigLoad, "reading config %s", path)
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".notable"))
			v.SetConfigName("config")
			if err := v.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if !errors.As(err, &notFound) {
					return nil, errs.Wrap(err, errs.CodeConfigLoad, "reading config")
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, errs.CodeConfigLoad, "unmarshalling config")
	}

	// GEMINI_API_KEY is the conventional variable for the embedding service;
	// an explicit config value wins.
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("database.path", filepath.Join(home, ".notable", "notable.db"))
	v.SetDefault("embedding.model", "gemini-embedding-exp-03-07")
	v.SetDefault("embedding.dimensions", 3072)
	v.SetDefault("normalize.similarity_threshold", 0.85)
	v.SetDefault("normalize.min_cluster_size", 2)
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("log.level", "info")
}

// Validate checks value ranges. The threshold is a similarity, not a distance.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errs.New(errs.CodeConfigInvalid, "database.path must not be empty")
	}
	if c.Embedding.Dimensions <= 0 {
		return errs.Errorf(errs.CodeConfigInvalid, "embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Normalize.SimilarityThreshold < 0 || c.Normalize.SimilarityThreshold > 1 {
		return errs.Errorf(errs.CodeConfigInvalid, "normalize.similarity_threshold must be in [0,1], got %v", c.Normalize.SimilarityThreshold)
	}
	if c.Normalize.MinClusterSize < 2 {
		return errs.Errorf(errs.CodeConfigInvalid, "normalize.min_cluster_size must be at least 2, got %d", c.Normalize.MinClusterSize)
	}
	if c.Server.Listen == "" {
		return errs.New(errs.CodeConfigInvalid, "server.listen must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errs.Errorf(errs.CodeConfigInvalid, "log.level must be one of debug|info|warn|error, got %q", c.Log.Level)
	}
	return nil
}

// DistanceThreshold converts the configured similarity into the cosine
// distance cutoff used by the similarity graph.
func (c *Config) DistanceThreshold() float64 {
	return 1 - c.Normalize.SimilarityThreshold
}
