package main

import (
	"context"
	"embed"
	"io"
	"log/slog"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/devlog"
	"hermannm.dev/safetab/csv"
	"hermannm.dev/safetab/disclosure"
	"hermannm.dev/safetab/engine"
	"hermannm.dev/safetab/store"
	"hermannm.dev/wrap"
)

var (
	//go:embed testdata/survey.csv
	testData embed.FS

	testRequest = engine.Request{
		Command: `tab age_group region if income >= 300 & education != "primary" | sex == "F"`,
	}
)

// Sets up logger before running tests. Debug logs are skipped, since the engine logs every query
// at debug level.
func TestMain(m *testing.M) {
	logHandler := devlog.NewHandler(os.Stdout, &devlog.Options{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(logHandler))

	os.Exit(m.Run())
}

func TestLoadDemoDataset(t *testing.T) {
	datasets, err := store.New(store.Options{})
	require.NoError(t, err)
	defer datasets.Close()

	require.NoError(t, loadDemoDataset(datasets, "testdata/survey.csv"))

	queryEngine := engine.New(datasets, engine.Options{})
	response, err := queryEngine.Run(context.Background(), demoDatasetKey, testRequest)
	require.NoError(t, err)

	assert.Equal(
		t, []string{"age_group", "east", "north", "south", "west", "Total"}, response.Columns,
	)
	assert.Len(t, response.Rows, 6)

	assert.Error(t, loadDemoDataset(datasets, "testdata/missing.csv"))
}

func BenchmarkIngestion(b *testing.B) {
	withTestReader(b, func(reader *csv.Reader) {
		for i := 0; i < b.N; i++ {
			data, err := reader.ReadDataset()
			if err != nil {
				b.Fatal(err)
			}

			b.StopTimer()
			data.Release()
			if err := reader.ResetReadPosition(false); err != nil {
				b.Fatal(wrap.Error(err, "failed to reset read position in CSV test file"))
			}
			b.StartTimer()
		}
	})
}

func BenchmarkQuery(b *testing.B) {
	withTestDataset(b, func(queryEngine *engine.Engine, key string) {
		for i := 0; i < b.N; i++ {
			if _, err := queryEngine.Run(context.Background(), key, testRequest); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkDifferentialPrivacyQuery(b *testing.B) {
	request := testRequest
	request.PrivacyMode = disclosure.ModeDifferentialPrivacy

	withTestDataset(b, func(queryEngine *engine.Engine, key string) {
		for i := 0; i < b.N; i++ {
			if _, err := queryEngine.Run(context.Background(), key, request); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkConcurrentQueries(b *testing.B) {
	const concurrentQueries = 1024

	withTestDataset(b, func(queryEngine *engine.Engine, key string) {
		// Divides by GOMAXPROCS, since SetParallelism multiplies its argument by GOMAXPROCS, and we
		// want exactly concurrentQueries number of concurrent queries
		b.SetParallelism(concurrentQueries / runtime.GOMAXPROCS(0))

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := queryEngine.Run(context.Background(), key, testRequest); err != nil {
					b.Fatal(err)
				}
			}
		})
	})
}

func withTestReader(b *testing.B, testFunc func(*csv.Reader)) {
	testFile, err := testData.Open("testdata/survey.csv")
	if err != nil {
		b.Fatal(wrap.Error(err, "failed to open test file"))
	}
	defer testFile.Close()

	reader, err := csv.NewReader(testFile.(io.ReadSeeker))
	if err != nil {
		b.Fatal(wrap.Error(err, "failed to create reader for CSV test file"))
	}

	b.ResetTimer()
	testFunc(reader)
	b.StopTimer()
}

func withTestDataset(b *testing.B, testFunc func(queryEngine *engine.Engine, key string)) {
	datasets, err := store.New(store.Options{})
	if err != nil {
		b.Fatal(wrap.Error(err, "failed to create dataset store"))
	}
	defer datasets.Close()

	withTestReader(b, func(reader *csv.Reader) {
		data, err := reader.ReadDataset()
		if err != nil {
			b.Fatal(wrap.Error(err, "failed to load CSV test file"))
		}

		key, err := datasets.Put(context.Background(), data)
		if err != nil {
			b.Fatal(wrap.Error(err, "failed to store test dataset"))
		}

		b.ResetTimer()
		testFunc(engine.New(datasets, engine.Options{}), key)
	})
}
