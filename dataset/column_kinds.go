package dataset

import (
	"strconv"

	"hermannm.dev/enumnames"
)

type ColumnKind uint8

const (
	ColumnKindCategorical ColumnKind = iota + 1
	ColumnKindNumeric
)

var columnKindNames = enumnames.NewMap(map[ColumnKind]string{
	ColumnKindCategorical: "CATEGORICAL",
	ColumnKindNumeric:     "NUMERIC",
})

func (kind ColumnKind) IsValid() bool {
	return columnKindNames.ContainsEnumValue(kind)
}

func (kind ColumnKind) String() string {
	return columnKindNames.GetNameOrFallback(kind, "INVALID_COLUMN_KIND")
}

func (kind ColumnKind) MarshalJSON() ([]byte, error) {
	return columnKindNames.MarshalToNameJSON(kind)
}

func (kind *ColumnKind) UnmarshalJSON(bytes []byte) error {
	return columnKindNames.UnmarshalFromNameJSON(bytes, kind)
}

// Lets the kind appear by name in YAML and other text encodings.
func (kind ColumnKind) MarshalText() ([]byte, error) {
	return []byte(kind.String()), nil
}

func (kind *ColumnKind) UnmarshalText(text []byte) error {
	return columnKindNames.UnmarshalFromNameJSON([]byte(strconv.Quote(string(text))), kind)
}
