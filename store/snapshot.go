package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/wrap"
)

const snapshotFileExtension = ".snapshot"

// Keys are used as file names, so they are restricted to a safe character set.
var snapshotKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Snapshots are zstd-compressed msgpack encodings of a dataset's columns.
type snapshotDir struct {
	path    string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

type datasetSnapshot struct {
	Rows    int              `msgpack:"rows"`
	Columns []columnSnapshot `msgpack:"columns"`
}

type columnSnapshot struct {
	Name string `msgpack:"name"`
	Kind string `msgpack:"kind"`
	// False for null rows.
	Valid   []bool    `msgpack:"valid"`
	Texts   []string  `msgpack:"texts,omitempty"`
	Numbers []float64 `msgpack:"numbers,omitempty"`
}

func newSnapshotDir(path string) (*snapshotDir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, wrap.Errorf(err, "failed to create directory '%s'", path)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, wrap.Error(err, "failed to create zstd encoder")
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, wrap.Error(err, "failed to create zstd decoder")
	}

	return &snapshotDir{path: path, encoder: encoder, decoder: decoder}, nil
}

func (snapshots *snapshotDir) write(key string, data *dataset.Dataset) error {
	filePath, err := snapshots.filePath(key)
	if err != nil {
		return err
	}

	encoded, err := msgpack.Marshal(newDatasetSnapshot(data))
	if err != nil {
		return wrap.Error(err, "failed to encode dataset snapshot")
	}
	compressed := snapshots.encoder.EncodeAll(encoded, nil)

	// Writes to a temporary file first, so that readers never see a partial snapshot.
	file, err := os.CreateTemp(snapshots.path, key+"-*.tmp")
	if err != nil {
		return wrap.Error(err, "failed to create snapshot file")
	}
	defer os.Remove(file.Name())

	if _, err := file.Write(compressed); err != nil {
		file.Close()
		return wrap.Error(err, "failed to write snapshot file")
	}
	if err := file.Close(); err != nil {
		return wrap.Error(err, "failed to close snapshot file")
	}

	if err := os.Rename(file.Name(), filePath); err != nil {
		return wrap.Error(err, "failed to move snapshot file into place")
	}
	return nil
}

// Returns ErrDatasetNotFound if there is no snapshot for the key.
func (snapshots *snapshotDir) read(key string) (*dataset.Dataset, error) {
	filePath, err := snapshots.filePath(key)
	if err != nil {
		return nil, ErrDatasetNotFound
	}

	compressed, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDatasetNotFound
		}
		return nil, wrap.Errorf(err, "failed to read snapshot of dataset '%s'", key)
	}

	encoded, err := snapshots.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to decompress snapshot of dataset '%s'", key)
	}

	var snapshot datasetSnapshot
	if err := msgpack.Unmarshal(encoded, &snapshot); err != nil {
		return nil, wrap.Errorf(err, "failed to decode snapshot of dataset '%s'", key)
	}

	data, err := snapshot.toDataset()
	if err != nil {
		return nil, wrap.Errorf(err, "invalid snapshot of dataset '%s'", key)
	}
	return data, nil
}

func (snapshots *snapshotDir) remove(key string) (removed bool, err error) {
	filePath, err := snapshots.filePath(key)
	if err != nil {
		return false, nil
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (snapshots *snapshotDir) filePath(key string) (string, error) {
	if !snapshotKeyPattern.MatchString(key) {
		return "", fmt.Errorf("dataset key '%s' cannot be used as a snapshot file name", key)
	}
	return filepath.Join(snapshots.path, key+snapshotFileExtension), nil
}

func (snapshots *snapshotDir) close() {
	snapshots.encoder.Close()
	snapshots.decoder.Close()
}

func newDatasetSnapshot(data *dataset.Dataset) datasetSnapshot {
	snapshot := datasetSnapshot{
		Rows:    data.NumRows(),
		Columns: make([]columnSnapshot, 0, data.NumColumns()),
	}

	for _, column := range data.Columns() {
		snapshotColumn := columnSnapshot{
			Name:  column.Name(),
			Kind:  column.Kind().String(),
			Valid: make([]bool, column.Len()),
		}

		for row := 0; row < column.Len(); row++ {
			valid := !column.IsNull(row)
			snapshotColumn.Valid[row] = valid

			switch column.Kind() {
			case dataset.ColumnKindCategorical:
				var text string
				if valid {
					text = column.Text(row)
				}
				snapshotColumn.Texts = append(snapshotColumn.Texts, text)
			case dataset.ColumnKindNumeric:
				var number float64
				if valid {
					number = column.Number(row)
				}
				snapshotColumn.Numbers = append(snapshotColumn.Numbers, number)
			}
		}

		snapshot.Columns = append(snapshot.Columns, snapshotColumn)
	}

	return snapshot
}

func (snapshot datasetSnapshot) toDataset() (*dataset.Dataset, error) {
	schema := dataset.Schema{Columns: make([]dataset.ColumnDescriptor, len(snapshot.Columns))}
	for i, column := range snapshot.Columns {
		var kind dataset.ColumnKind
		if err := kind.UnmarshalText([]byte(column.Kind)); err != nil {
			return nil, wrap.Errorf(err, "invalid kind for column '%s'", column.Name)
		}
		if len(column.Valid) != snapshot.Rows {
			return nil, fmt.Errorf(
				"column '%s' has %d values, expected %d", column.Name, len(column.Valid), snapshot.Rows,
			)
		}
		schema.Columns[i] = dataset.ColumnDescriptor{Name: column.Name, Kind: kind}
	}

	builder, err := dataset.NewBuilder(schema)
	if err != nil {
		return nil, err
	}
	defer builder.Release()

	for i, column := range snapshot.Columns {
		for row, valid := range column.Valid {
			if !valid {
				builder.AppendNull(i)
				continue
			}

			switch schema.Columns[i].Kind {
			case dataset.ColumnKindCategorical:
				if row >= len(column.Texts) {
					return nil, fmt.Errorf("column '%s' is missing values", column.Name)
				}
				err = builder.AppendText(i, column.Texts[row])
			case dataset.ColumnKindNumeric:
				if row >= len(column.Numbers) {
					return nil, fmt.Errorf("column '%s' is missing values", column.Name)
				}
				err = builder.AppendNumber(i, column.Numbers[row])
			}
			if err != nil {
				return nil, err
			}
		}
	}

	return builder.Build()
}
