package config

import (
	"strconv"

	"hermannm.dev/enumnames"
)

type DatasetSource uint8

const (
	DatasetSourceNone DatasetSource = iota
	DatasetSourceClickHouse
	DatasetSourceElasticsearch
	DatasetSourceDuckDB
	DatasetSourceSQLite
)

var datasetSourceNames = enumnames.NewMap(map[DatasetSource]string{
	DatasetSourceClickHouse:    "clickhouse",
	DatasetSourceElasticsearch: "elasticsearch",
	DatasetSourceDuckDB:        "duckdb",
	DatasetSourceSQLite:        "sqlite",
})

func (source DatasetSource) IsValid() bool {
	return datasetSourceNames.ContainsEnumValue(source)
}

func (source DatasetSource) String() string {
	if source == DatasetSourceNone {
		return "none"
	}
	return datasetSourceNames.GetNameOrFallback(source, "INVALID_DATASET_SOURCE")
}

// An empty value selects no source.
func (source *DatasetSource) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*source = DatasetSourceNone
		return nil
	}
	return datasetSourceNames.UnmarshalFromNameJSON([]byte(strconv.Quote(string(text))), source)
}
