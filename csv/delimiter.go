package csv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"hermannm.dev/wrap"
)

var DelimiterCandidates = []rune{',', ';', '\t', '|', ' '}

const fallbackDelimiter = ','

// DeduceDelimiter parses the first non-blank lines of the file with each candidate delimiter,
// and picks the one that splits every line into the same number of fields, preferring more
// fields and then earlier candidates. Quoted fields are respected. Files where no candidate
// gives more than one field (such as single-column files) get ','.
//
// The file is rewound before returning.
func DeduceDelimiter(
	csvFile io.ReadSeeker,
	maxLinesToCheck int,
	candidates []rune,
) (delimiter rune, err error) {
	defer func() {
		if _, seekErr := csvFile.Seek(0, io.SeekStart); seekErr != nil && err == nil {
			err = wrap.Error(seekErr, "failed to reset CSV file after deducing delimiter")
		}
	}()

	if len(candidates) == 0 {
		candidates = DelimiterCandidates
	}

	var sample strings.Builder
	scanner := bufio.NewScanner(csvFile)
	for lines := 0; lines < maxLinesToCheck && scanner.Scan(); {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		sample.WriteString(line)
		sample.WriteByte('\n')
		lines++
	}
	if err := scanner.Err(); err != nil {
		return 0, wrap.Error(err, "failed to scan CSV file for field delimiter")
	}

	delimiter = fallbackDelimiter
	mostFields := 1
	for _, candidate := range candidates {
		fields, consistent := countFields(sample.String(), candidate)
		if consistent && fields > mostFields {
			delimiter = candidate
			mostFields = fields
		}
	}

	return delimiter, nil
}

// Returns the number of fields per line, and whether every line had that many.
func countFields(sample string, delimiter rune) (fields int, consistent bool) {
	reader := csv.NewReader(strings.NewReader(sample))
	reader.Comma = delimiter
	reader.FieldsPerRecord = 0

	records := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A quoted field spanning the end of the sample is cut off, so a quote error after
			// consistent lines does not count against the delimiter.
			if errors.Is(err, csv.ErrQuote) && records > 0 {
				break
			}
			return 0, false
		}

		if records == 0 {
			fields = len(record)
		}
		records++
	}

	return fields, records > 0
}
