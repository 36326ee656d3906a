package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"hermannm.dev/safetab/disclosure"
	"hermannm.dev/wrap"
)

type Config struct {
	BaseConfig
	ClickHouse    ClickHouse
	Elasticsearch Elasticsearch
	SQL           SQL
}

type BaseConfig struct {
	IsProduction bool       `env:"PRODUCTION" envDefault:"false"`
	LogLevel     slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	API          API
	Query        Query
	Store        Store
	// Optional database to import datasets from.
	DatasetSource DatasetSource `env:"DATASET_SOURCE" envDefault:""`
	// Optional CSV file loaded at startup under the key "demo".
	DemoDatasetPath string `env:"DEMO_DATASET_PATH" envDefault:""`
}

type API struct {
	Port           string `env:"API_PORT" envDefault:"8000"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"1073741824"`
}

type Query struct {
	SuppressionThreshold int             `env:"SUPPRESSION_THRESHOLD" envDefault:"5"`
	PrivacyMode          disclosure.Mode `env:"PRIVACY_MODE" envDefault:"suppression"`
	BaseEpsilon          float64         `env:"DP_BASE_EPSILON" envDefault:"1.0"`
}

type Store struct {
	DatasetTTL  time.Duration `env:"DATASET_TTL" envDefault:"1h"`
	SnapshotDir string        `env:"DATASET_SNAPSHOT_DIR" envDefault:""`
}

type ClickHouse struct {
	Address      string `env:"CLICKHOUSE_ADDRESS"`
	DatabaseName string `env:"CLICKHOUSE_DB_NAME"`
	Username     string `env:"CLICKHOUSE_USERNAME"`
	Password     string `env:"CLICKHOUSE_PASSWORD"`
	Debug        bool   `env:"CLICKHOUSE_DEBUG_ENABLED" envDefault:"false"`
}

type Elasticsearch struct {
	Address      string `env:"ELASTICSEARCH_ADDRESS"`
	Debug        bool   `env:"ELASTICSEARCH_DEBUG_ENABLED" envDefault:"false"`
	MaxDocuments int    `env:"ELASTICSEARCH_MAX_DOCUMENTS" envDefault:"10000"`
}

// Used by both DuckDB and SQLite. An empty DSN opens an in-memory DuckDB database.
type SQL struct {
	DSN string `env:"SQL_DSN"`
}

// ReadFromEnv reads config from environment variables, after loading any .env file in the
// working directory. Config for the dataset source is only read when that source is selected.
func ReadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	parseOptions := env.Options{RequiredIfNoDef: true}

	var config Config

	if err := env.ParseWithOptions(&config.BaseConfig, parseOptions); err != nil {
		return Config{}, err
	}

	switch config.DatasetSource {
	case DatasetSourceNone:
	case DatasetSourceClickHouse:
		if err := env.ParseWithOptions(&config.ClickHouse, parseOptions); err != nil {
			return Config{}, err
		}
	case DatasetSourceElasticsearch:
		if err := env.ParseWithOptions(&config.Elasticsearch, parseOptions); err != nil {
			return Config{}, err
		}
	case DatasetSourceDuckDB, DatasetSourceSQLite:
		if err := env.ParseWithOptions(&config.SQL, parseOptions); err != nil {
			return Config{}, err
		}
	default:
		err := errors.New("must be one of: 'clickhouse', 'elasticsearch', 'duckdb', 'sqlite'")
		return Config{}, wrap.Errorf(
			err, "unsupported value '%v' for DATASET_SOURCE in env", config.DatasetSource,
		)
	}

	if errs := config.Validate(); len(errs) != 0 {
		return Config{}, wrap.Errors("invalid config", errs...)
	}

	return config, nil
}

func (config Config) Validate() []error {
	var errs []error

	if config.Query.SuppressionThreshold < 1 {
		errs = append(errs, errors.New("SUPPRESSION_THRESHOLD must be at least 1"))
	}
	if !config.Query.PrivacyMode.IsValid() {
		errs = append(errs, errors.New("PRIVACY_MODE is invalid"))
	}
	if config.Query.BaseEpsilon <= 0 {
		errs = append(errs, errors.New("DP_BASE_EPSILON must be positive"))
	}
	if config.API.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_BYTES must be positive"))
	}
	if config.Store.DatasetTTL <= 0 {
		errs = append(errs, errors.New("DATASET_TTL must be positive"))
	}
	if config.DatasetSource == DatasetSourceElasticsearch && config.Elasticsearch.MaxDocuments < 1 {
		errs = append(errs, errors.New("ELASTICSEARCH_MAX_DOCUMENTS must be at least 1"))
	}

	return errs
}
