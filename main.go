package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"hermannm.dev/devlog"
	"hermannm.dev/devlog/log"
	"hermannm.dev/safetab/api"
	"hermannm.dev/safetab/config"
	"hermannm.dev/safetab/csv"
	"hermannm.dev/safetab/db"
	"hermannm.dev/safetab/db/clickhouse"
	"hermannm.dev/safetab/db/duckdb"
	"hermannm.dev/safetab/db/elasticsearch"
	"hermannm.dev/safetab/db/sqlite"
	"hermannm.dev/safetab/engine"
	"hermannm.dev/safetab/store"
	"hermannm.dev/wrap"
)

const demoDatasetKey = "demo"

func main() {
	conf, err := config.ReadFromEnv()
	if err != nil {
		initializeLogger(config.BaseConfig{LogLevel: slog.LevelInfo})
		log.ErrorCause(err, "failed to read config from env")
		os.Exit(1)
	}

	initializeLogger(conf.BaseConfig)

	datasets, err := store.New(store.Options{
		TTL:         conf.Store.DatasetTTL,
		SnapshotDir: conf.Store.SnapshotDir,
	})
	if err != nil {
		log.ErrorCause(err, "failed to initialize dataset store")
		os.Exit(1)
	}
	defer datasets.Close()

	if conf.DemoDatasetPath != "" {
		if err := loadDemoDataset(datasets, conf.DemoDatasetPath); err != nil {
			log.ErrorCause(err, "failed to load demo dataset")
			os.Exit(1)
		}
	}

	source, err := initializeDatasetSource(context.Background(), conf)
	if err != nil {
		log.ErrorCause(err, "failed to initialize dataset source")
		os.Exit(1)
	}
	if source != nil {
		defer source.Close()
	}

	queryEngine := engine.New(datasets, engine.Options{
		DefaultThreshold:   conf.Query.SuppressionThreshold,
		DefaultPrivacyMode: conf.Query.PrivacyMode,
		BaseEpsilon:        conf.Query.BaseEpsilon,
	})

	datasetAPI := api.NewDatasetAPI(datasets, queryEngine, source, http.NewServeMux(), conf.API)

	log.Info(
		"listening",
		slog.String("port", conf.API.Port),
		slog.Any("privacyMode", conf.Query.PrivacyMode),
	)
	if err := datasetAPI.ListenAndServe(); err != nil {
		log.ErrorCause(err, "server stopped")
		os.Exit(1)
	}
}

func initializeLogger(conf config.BaseConfig) {
	var logHandler slog.Handler
	if conf.IsProduction {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: conf.LogLevel})
	} else {
		logHandler = devlog.NewHandler(os.Stdout, &devlog.Options{Level: conf.LogLevel})
	}
	slog.SetDefault(slog.New(logHandler))
}

// Returns a nil source if none is configured.
func initializeDatasetSource(ctx context.Context, conf config.Config) (db.Source, error) {
	switch conf.DatasetSource {
	case config.DatasetSourceClickHouse:
		log.Info("connecting to ClickHouse...")
		return clickhouse.NewClickHouseDB(ctx, conf.ClickHouse)
	case config.DatasetSourceElasticsearch:
		log.Info("connecting to Elasticsearch...")
		return elasticsearch.NewElasticsearchDB(conf.Elasticsearch)
	case config.DatasetSourceDuckDB:
		log.Info("opening DuckDB database...")
		return duckdb.New(ctx, conf.SQL)
	case config.DatasetSourceSQLite:
		log.Info("opening SQLite database...")
		return sqlite.New(ctx, conf.SQL)
	default:
		return nil, nil
	}
}

func loadDemoDataset(datasets *store.Store, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return wrap.Error(err, "failed to open demo dataset file")
	}
	defer file.Close()

	reader, err := csv.NewReader(file)
	if err != nil {
		return wrap.Errorf(err, "failed to read '%s'", path)
	}

	data, err := reader.ReadDataset()
	if err != nil {
		return wrap.Errorf(err, "failed to load dataset from '%s'", path)
	}

	if err := datasets.PutWithKey(context.Background(), demoDatasetKey, data); err != nil {
		return err
	}

	log.Info("loaded demo dataset", slog.String("key", demoDatasetKey), slog.String("path", path))
	return nil
}
