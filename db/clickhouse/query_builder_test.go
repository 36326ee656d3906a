package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuilder(t *testing.T) {
	var query QueryBuilder
	query.WriteString("SELECT * FROM ")
	query.WriteIdentifier("survey 2024")

	assert.Equal(t, "SELECT * FROM `survey 2024`", query.String())
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("survey_2024"))
	assert.Error(t, ValidateIdentifier(""))
	assert.Error(t, ValidateIdentifier("survey` ; DROP TABLE x; --"))
	assert.Error(t, ValidateIdentifier(`survey\`))
}
