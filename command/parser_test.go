package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/safetab/command"
)

var testColumns = command.Names{"sex", "region", "age", "age_group", "income", "é_zone"}

func TestParseOneWay(t *testing.T) {
	query, err := command.Parse("tab sex", testColumns)
	require.NoError(t, err)

	assert.Equal(t, []string{"sex"}, query.GroupVars)
	assert.Nil(t, query.Filter)
	assert.Equal(t, "tab sex", query.RawCommand)
	assert.False(t, query.IsCrossTabulation())
}

func TestParseTwoWayWithFilter(t *testing.T) {
	query, err := command.Parse(`tab sex region if age >= 18 & region != "North"`, testColumns)
	require.NoError(t, err)

	assert.Equal(t, []string{"sex", "region"}, query.GroupVars)
	assert.True(t, query.IsCrossTabulation())
	assert.Equal(t, command.And{
		Left: command.Comparison{
			Column:   "age",
			Operator: command.OperatorGreaterOrEqual,
			Literal:  command.NumberLiteral(18),
		},
		Right: command.Comparison{
			Column:   "region",
			Operator: command.OperatorNotEqual,
			Literal:  command.StringLiteral("North"),
		},
	}, query.Filter)
	assert.Equal(t, []string{"sex", "region", "age"}, query.Columns())
}

func TestAndBindsTighterThanOr(t *testing.T) {
	query, err := command.Parse(
		"tab sex if age < 30 | income > 1000 & region == 'South'", testColumns,
	)
	require.NoError(t, err)

	assert.Equal(
		t,
		`(age < 30 | (income > 1000 & region == "South"))`,
		query.Filter.String(),
	)
}

func TestOperatorsAreLeftAssociative(t *testing.T) {
	query, err := command.Parse(
		"tab sex if age == 1 | age == 2 | age == 3 & sex == 'F' & region == 'N'", testColumns,
	)
	require.NoError(t, err)

	assert.Equal(
		t,
		`((age == 1 | age == 2) | ((age == 3 & sex == "F") & region == "N"))`,
		query.Filter.String(),
	)
}

func TestParseLiterals(t *testing.T) {
	testCases := []struct {
		command  string
		expected command.Literal
	}{
		{"tab sex if age == -4.5", command.Literal{Kind: command.LiteralKindNumber, Text: "-4.5", Number: -4.5}},
		{"tab sex if age == 007", command.Literal{Kind: command.LiteralKindNumber, Text: "007", Number: 7}},
		{`tab sex if sex == ""`, command.StringLiteral("")},
		{`tab sex if sex == 'it"s'`, command.StringLiteral(`it"s`)},
		{`tab sex if sex == "18-25"`, command.StringLiteral("18-25")},
		{"tab sex if é_zone == 'øst'", command.StringLiteral("øst")},
	}

	for _, testCase := range testCases {
		t.Run(testCase.command, func(t *testing.T) {
			query, err := command.Parse(testCase.command, testColumns)
			require.NoError(t, err)

			comparison, ok := query.Filter.(command.Comparison)
			require.True(t, ok)
			assert.Equal(t, testCase.expected, comparison.Literal)
		})
	}
}

func TestParseWhitespaceIsInsignificant(t *testing.T) {
	query, err := command.Parse("  tab\tsex   if age<=5&sex=='M'  ", testColumns)
	require.NoError(t, err)
	assert.Equal(t, `(age <= 5 & sex == "M")`, query.Filter.String())
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name     string
		command  string
		token    string
		position int
	}{
		{"empty", "", "", 1},
		{"blank", "   ", "", 4},
		{"wrong command", "summarize sex", "summarize", 1},
		{"keyword is case-sensitive", "TAB sex", "TAB", 1},
		{"missing variable", "tab", "", 4},
		{"if without variable", "tab if age == 1", "if", 5},
		{"unknown variable", "tab gender", "gender", 5},
		{"unknown second variable", "tab sex gender", "gender", 9},
		{"unknown filter column", "tab sex if gender == 'F'", "gender", 12},
		{"duplicate variable", "tab sex sex", "sex", 9},
		{"three variables", "tab sex region age", "age", 16},
		{"missing operator", "tab sex if age 5", "5", 16},
		{"single equals", "tab sex if age = 5", "=", 16},
		{"lone bang", "tab sex if age ! 5", "!", 16},
		{"missing literal", "tab sex if age ==", "", 18},
		{"unquoted string", "tab sex if sex == F", "F", 19},
		{"unterminated string", "tab sex if sex == 'F", "'F", 19},
		{"malformed number", "tab sex if age == 12abc", "12abc", 19},
		{"trailing dot", "tab sex if age == 1.", "1.", 19},
		{"dangling and", "tab sex if age == 1 &", "", 22},
		{"double and", "tab sex if age == 1 && sex == 'F'", "&", 22},
		{"parentheses", "tab sex if (age == 1)", "(", 12},
		{"unexpected character", "tab sex # comment", "#", 9},
		{"filter without if", "tab sex age == 1", "==", 13},
		{"unquoted range", "tab sex if age_group == 18-25", "-25", 27},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := command.Parse(testCase.command, testColumns)
			require.Error(t, err)

			var syntaxErr *command.SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			assert.Equal(t, testCase.token, syntaxErr.Token)
			assert.Equal(t, testCase.position, syntaxErr.Position)
			assert.NotEmpty(t, syntaxErr.Message)
		})
	}
}

func TestUnknownVariableMessage(t *testing.T) {
	_, err := command.Parse("tab gender", testColumns)
	assert.EqualError(t, err, "syntax error at position 5 near 'gender': unknown variable 'gender'")
}
