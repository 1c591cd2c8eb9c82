package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for anime-warehouse.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env       string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"console"`
	Version   string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL warehouse)
	Database DatabaseConfig `yaml:"database"`

	// Delimited source exports
	Sources SourcesConfig `yaml:"sources"`

	Staging  StagingConfig  `yaml:"staging"`
	Entities EntitiesConfig `yaml:"entities"`
	Facts    FactsConfig    `yaml:"facts"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL warehouse configuration.
// URL, when set, wins over the individual connection fields.
type DatabaseConfig struct {
	URL             string `yaml:"url" env:"DATABASE_URL" env-default:""`
	Host            string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port            int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User            string `yaml:"user" env:"PGUSER" env-default:"anime"`
	Password        string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database        string `yaml:"database" env:"PGDATABASE" env-default:"anime_warehouse"`
	SSLMode         string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections  int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"8"`
	ConnectRetries  int    `yaml:"connect_retries" env:"PGCONNECT_RETRIES" env-default:"0"`
	DockerHostAlias string `yaml:"docker_host_alias" env:"DOCKER_HOST_ALIAS" env-default:"host.docker.internal"`
}

// SourceFileConfig describes one delimited export.
type SourceFileConfig struct {
	File      string `yaml:"file"`
	BatchSize int    `yaml:"batch_size"`
}

// SourcesConfig locates the four exports. Relative file names are resolved
// against DataDir.
type SourcesConfig struct {
	DataDir string           `yaml:"data_dir" env:"DATA_DIR" env-default:"."`
	Anime   SourceFileConfig `yaml:"anime"`
	Genres  SourceFileConfig `yaml:"genres"`
	Users   SourceFileConfig `yaml:"users"`
	Ratings SourceFileConfig `yaml:"ratings"`
}

// StagingConfig tunes the Staging Loader.
type StagingConfig struct {
	// Parallel loads the source files concurrently, one connection each.
	Parallel bool `yaml:"parallel" env:"STAGING_PARALLEL" env-default:"false"`
}

// EntitiesConfig tunes the Entity Loader.
type EntitiesConfig struct {
	PageSize int `yaml:"page_size" env:"ENTITIES_PAGE_SIZE" env-default:"5000"`
}

// FactsConfig tunes the Fact Builder.
type FactsConfig struct {
	PageSize int `yaml:"page_size" env:"FACTS_PAGE_SIZE" env-default:"20000"`
	// RatingConflict is "skip" (first occurrence wins) or "update" (last wins).
	RatingConflict string `yaml:"rating_conflict" env:"FACTS_RATING_CONFLICT" env-default:"skip"`
}

// PipelineConfig controls the driver.
// SkipReset keeps existing warehouse tables and only applies pending
// migrations, which turns a run into an incremental reload.
type PipelineConfig struct {
	SkipReset  bool   `yaml:"skip_reset" env:"SKIP_SCHEMA_RESET" env-default:"false"`
	ReportPath string `yaml:"report_path" env:"REPORT_PATH" env-default:""`
}

const (
	RatingConflictSkip   = "skip"
	RatingConflictUpdate = "update"

	defaultBatchSize        = 5_000
	defaultRatingsBatchSize = 100_000
)

// Load reads configuration from path with environment variable overrides.
// A missing file is not an error; defaults and the environment are used.
// A .env file in the working directory is loaded first when present.
func Load(path, version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.applySourceDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applySourceDefaults fills file names and batch sizes the YAML left empty.
func (c *Config) applySourceDefaults() {
	setDefault := func(s *SourceFileConfig, file string, batch int) {
		if s.File == "" {
			s.File = file
		}
		if s.BatchSize <= 0 {
			s.BatchSize = batch
		}
	}
	setDefault(&c.Sources.Anime, "AnimeCorePopulatedTable.txt", defaultBatchSize)
	setDefault(&c.Sources.Genres, "AnimeGenresCorePopulatedTable.txt", defaultBatchSize)
	setDefault(&c.Sources.Users, "UsersCorePopulatedTable.txt", defaultBatchSize)
	setDefault(&c.Sources.Ratings, "AnimeUserRatingsCorePopulatedTable.txt", defaultRatingsBatchSize)
}

func (c *Config) validate() error {
	switch c.Facts.RatingConflict {
	case RatingConflictSkip, RatingConflictUpdate:
	default:
		return fmt.Errorf("facts.rating_conflict must be %q or %q, got %q",
			RatingConflictSkip, RatingConflictUpdate, c.Facts.RatingConflict)
	}
	if c.Entities.PageSize <= 0 {
		return fmt.Errorf("entities.page_size must be positive")
	}
	if c.Facts.PageSize <= 0 {
		return fmt.Errorf("facts.page_size must be positive")
	}
	if c.Database.ConnectRetries < 0 {
		return fmt.Errorf("database.connect_retries must not be negative")
	}
	return nil
}

// Path resolves a source file name against DataDir.
func (s *SourcesConfig) Path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(s.DataDir, file)
}

// ConnectionString returns a PostgreSQL connection URL.
// When running inside Docker, a localhost host is rewritten to DockerHostAlias.
func (c *DatabaseConfig) ConnectionString() string {
	if c.URL != "" {
		return c.URL
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host, c.DockerHostAlias), c.Port),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}

	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()

	return u.String()
}

// SourceNames lists the configured sources in load order.
func (s *SourcesConfig) SourceNames() []string {
	return []string{"anime", "genres", "users", "ratings"}
}

// Lookup returns the file config for a source name.
func (s *SourcesConfig) Lookup(name string) (SourceFileConfig, bool) {
	switch strings.ToLower(name) {
	case "anime":
		return s.Anime, true
	case "genres":
		return s.Genres, true
	case "users":
		return s.Users, true
	case "ratings":
		return s.Ratings, true
	}
	return SourceFileConfig{}, false
}
