package clickhouse

import (
	"errors"
	"fmt"
	"strings"
)

type QueryBuilder struct {
	strings.Builder
}

// Must only be called after calling ValidateIdentifier on the given identifier.
func (builder *QueryBuilder) WriteIdentifier(identifier string) {
	builder.WriteRune('`')
	builder.WriteString(identifier)
	builder.WriteRune('`')
}

func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return errors.New("identifier is blank")
	}

	if strings.ContainsAny(identifier, "`\\") {
		return fmt.Errorf("'%s' contains ` or \\, which is incompatible with database", identifier)
	}

	return nil
}
