package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/safetab/config"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/wrap"
)

// Implements db.Source for Elasticsearch, loading indices as datasets.
type ElasticsearchDB struct {
	client       *elasticsearch.TypedClient
	maxDocuments int
}

func NewElasticsearchDB(config config.Elasticsearch) (ElasticsearchDB, error) {
	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses:         []string{config.Address},
		EnableDebugLogger: config.Debug,
	})
	if err != nil {
		return ElasticsearchDB{}, wrap.Error(err, "failed to connect to Elasticsearch")
	}

	return ElasticsearchDB{client: client, maxDocuments: config.MaxDocuments}, nil
}

// LoadDataset reads up to the configured maximum number of documents from the given index. Each
// top-level field of the documents' sources becomes a column, in name order.
func (elastic ElasticsearchDB) LoadDataset(
	ctx context.Context,
	index string,
) (*dataset.Dataset, error) {
	size := elastic.maxDocuments
	response, err := elastic.client.Search().
		Index(index).
		Request(&search.Request{
			Query: &types.Query{MatchAll: &types.MatchAllQuery{}},
			Size:  &size,
		}).
		Do(ctx)
	if err != nil {
		return nil, wrapElasticErrorf(err, "search request to index '%s' failed", index)
	}

	documents := make([]map[string]any, 0, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		document, err := decodeSource(hit.Source_)
		if err != nil {
			return nil, wrap.Errorf(err, "failed to decode source of document %d", i+1)
		}
		documents = append(documents, document)
	}

	return documentsToDataset(documents)
}

func (elastic ElasticsearchDB) Close() error {
	return nil
}

func decodeSource(source json.RawMessage) (map[string]any, error) {
	document := make(map[string]any)
	if len(source) == 0 {
		return document, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(source))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return nil, err
	}
	return document, nil
}

// A field is numeric if every non-null value of it is a JSON number.
func documentsToDataset(documents []map[string]any) (*dataset.Dataset, error) {
	nonNumeric := make(map[string]bool)
	for _, document := range documents {
		for field, value := range document {
			if _, isNumber := value.(json.Number); !isNumber && value != nil {
				nonNumeric[field] = true
			} else if _, seen := nonNumeric[field]; !seen {
				nonNumeric[field] = false
			}
		}
	}

	fields := make([]string, 0, len(nonNumeric))
	for field := range nonNumeric {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	if len(fields) == 0 {
		return nil, fmt.Errorf("found no fields in %d documents", len(documents))
	}

	schema := dataset.Schema{Columns: make([]dataset.ColumnDescriptor, len(fields))}
	for i, field := range fields {
		kind := dataset.ColumnKindNumeric
		if nonNumeric[field] {
			kind = dataset.ColumnKindCategorical
		}
		schema.Columns[i] = dataset.ColumnDescriptor{Name: field, Kind: kind}
	}

	builder, err := dataset.NewBuilder(schema)
	if err != nil {
		return nil, err
	}
	defer builder.Release()

	for _, document := range documents {
		for i, column := range schema.Columns {
			value, ok := document[column.Name]
			if !ok || value == nil {
				builder.AppendNull(i)
				continue
			}

			if column.Kind == dataset.ColumnKindNumeric {
				number, err := value.(json.Number).Float64()
				if err != nil {
					return nil, wrap.Errorf(err, "invalid number in field '%s'", column.Name)
				}
				err = builder.AppendNumber(i, number)
				if err != nil {
					return nil, err
				}
				continue
			}

			if err := builder.AppendText(i, fieldText(value)); err != nil {
				return nil, err
			}
		}
	}

	return builder.Build()
}

// Nested objects and arrays are kept as JSON text.
func fieldText(value any) string {
	switch value := value.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		if value {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(encoded)
	}
}
