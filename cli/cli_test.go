package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"hermannm.dev/safetab/cli"
	"hermannm.dev/safetab/command"
)

const surveyCSV = `sex,region,age
F,north,34
F,north,41
F,south,29
M,north,52
M,north,38
M,north,45
M,south,61
M,south,27
M,south,33
F,north,NA
`

func writeSurvey(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(surveyCSV), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var output bytes.Buffer
	cmd := cli.NewRootCommand()
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return output.String(), err
}

func TestQueryText(t *testing.T) {
	path := writeSurvey(t)

	output, err := runCommand(t, "query", path, "tab sex region", "--threshold", "3")
	require.NoError(t, err)

	assert.Equal(t, `sex    north  south  Total
F      3      <3     3
M      <3     3      3
Total  3      3      10

Matching rows: 10
`, output)
}

func TestQueryJSON(t *testing.T) {
	path := writeSurvey(t)

	output, err := runCommand(t, "query", path, "tab region if age > 40", "--format", "json")
	require.NoError(t, err)

	var response map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &response))
	assert.Equal(t, []any{"region", "Frequency"}, response["columns"])
	assert.Equal(t, []any{
		[]any{"north", "<5"},
		[]any{"south", "<5"},
		[]any{"Total", 4.0},
	}, response["rows"])
	assert.Equal(t, "suppression", response["privacyMode"])
}

func TestQueryYAML(t *testing.T) {
	path := writeSurvey(t)

	output, err := runCommand(
		t, "query", path, "tab sex",
		"--privacy-mode", "differential_privacy", "--seed", "42", "--format", "yaml",
	)
	require.NoError(t, err)

	var response map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(output), &response))
	assert.Equal(t, "differential_privacy", response["privacyMode"])
	assert.EqualValues(t, 1, response["epsilon"])
	assert.Len(t, response["rows"], 3)

	again, err := runCommand(
		t, "query", path, "tab sex",
		"--privacy-mode", "differential_privacy", "--seed", "42", "--format", "yaml",
	)
	require.NoError(t, err)
	assert.Equal(t, output, again)
}

func TestQueryEmptyResult(t *testing.T) {
	path := writeSurvey(t)

	output, err := runCommand(t, "query", path, "tab sex if age > 100")
	require.NoError(t, err)
	assert.Equal(t, "No data matches the specified conditions\n", output)
}

func TestQueryErrors(t *testing.T) {
	path := writeSurvey(t)

	_, err := runCommand(t, "query", path, "tab sex if")
	var syntaxErr *command.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)

	_, err = runCommand(t, "query", path, "tab sex", "--privacy-mode", "noise")
	assert.ErrorContains(t, err, "invalid --privacy-mode")

	_, err = runCommand(t, "query", path, "tab sex", "--threshold", "0")
	assert.ErrorContains(t, err, "--threshold")

	_, err = runCommand(t, "query", path, "tab sex", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")

	_, err = runCommand(t, "query", filepath.Join(t.TempDir(), "missing.csv"), "tab sex")
	assert.ErrorContains(t, err, "failed to open CSV file")
}

func TestSchema(t *testing.T) {
	path := writeSurvey(t)

	output, err := runCommand(t, "schema", path)
	require.NoError(t, err)
	assert.Equal(t, `VARIABLE  KIND         UNIQUE VALUES
sex       CATEGORICAL  2
region    CATEGORICAL  2
age       NUMERIC      9
`, output)

	output, err = runCommand(t, "schema", path, "--format", "json")
	require.NoError(t, err)

	var schema cli.SchemaOutput
	require.NoError(t, json.Unmarshal([]byte(output), &schema))
	assert.Equal(t, 10, schema.RowCount)
	assert.Len(t, schema.Columns, 3)
}
