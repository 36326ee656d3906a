package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
	"hermannm.dev/wrap"
)

const maxLinesToCheckForDelimiter = 20

type Reader struct {
	inner      *csv.Reader
	file       io.ReadSeeker
	currentRow int
}

// NewReader deduces the field delimiter from the first rows of the file, and returns a reader
// positioned at the start of the file.
func NewReader(csvFile io.ReadSeeker) (*Reader, error) {
	delimiter, err := DeduceDelimiter(csvFile, maxLinesToCheckForDelimiter, DelimiterCandidates)
	if err != nil {
		return nil, err
	}

	return &Reader{inner: newInnerReader(csvFile, delimiter), file: csvFile, currentRow: 0}, nil
}

func newInnerReader(csvFile io.ReadSeeker, delimiter rune) *csv.Reader {
	reader := csv.NewReader(csvFile)
	reader.ReuseRecord = true
	reader.Comma = delimiter
	return reader
}

func (reader *Reader) Delimiter() rune {
	return reader.inner.Comma
}

// ReadRow returns the next row of the file. The returned slice is reused by the next call.
func (reader *Reader) ReadRow() (row []string, rowNumber int, done bool, err error) {
	reader.currentRow++

	row, err = reader.inner.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, true, nil
		} else {
			return nil, 0, false, err
		}
	}

	return row, reader.currentRow, false, nil
}

// ReadHeaderRow reads the column names from the first row. Names are trimmed and normalized to
// Unicode NFC, so that names typed in commands match regardless of how the file encoded them.
func (reader *Reader) ReadHeaderRow() (columnNames []string, err error) {
	row, rowNumber, done, err := reader.ReadRow()
	if done {
		return nil, errors.New("csv file ended before header row")
	}
	if err != nil {
		return nil, err
	}
	if rowNumber != 1 {
		return nil, errors.New("tried to read header row after reading previous rows")
	}

	columnNames = make([]string, len(row))
	seen := make(map[string]struct{}, len(row))
	var errs []error
	for i, field := range row {
		name := norm.NFC.String(strings.TrimSpace(field))
		if name == "" {
			errs = append(errs, fmt.Errorf("column %d has a blank name", i+1))
		} else if _, duplicate := seen[name]; duplicate {
			errs = append(errs, fmt.Errorf("duplicate column name '%s'", name))
		}
		seen[name] = struct{}{}
		columnNames[i] = name
	}
	if len(errs) != 0 {
		return nil, wrap.Errors("invalid CSV header row", errs...)
	}

	return columnNames, nil
}

func (reader *Reader) ResetReadPosition(skipHeaderRow bool) error {
	if _, err := reader.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	reader.currentRow = 0
	reader.inner = newInnerReader(reader.file, reader.inner.Comma)

	if skipHeaderRow {
		if _, err := reader.ReadHeaderRow(); err != nil {
			return wrap.Error(err, "failed to skip CSV header row")
		}
	}

	return nil
}
