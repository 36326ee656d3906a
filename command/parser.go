package command

const (
	keywordTab = "tab"
	keywordIf  = "if"
)

// ColumnSet is the set of column names a command may reference.
type ColumnSet interface {
	HasColumn(name string) bool
}

// Parse parses a command of the form
//
//	tab <var1> [<var2>] [if <filter>]
//
// where <filter> is a chain of comparisons (column operator literal) joined by & (and) and |
// (or). & binds tighter than |, and both are left-associative, so
// "a == 1 | b == 2 & c == 3" parses as "a == 1 | (b == 2 & c == 3)". Keywords are
// case-sensitive, and every referenced column must be in the given set.
func Parse(command string, columns ColumnSet) (Query, error) {
	tokens, err := tokenize(command)
	if err != nil {
		return Query{}, err
	}

	parser := parser{tokens: tokens, columns: columns}
	query, err := parser.parseCommand()
	if err != nil {
		return Query{}, err
	}

	query.RawCommand = command
	return query, nil
}

type parser struct {
	tokens  []token
	current int
	columns ColumnSet
}

func (parser *parser) parseCommand() (Query, error) {
	first := parser.advance()
	switch {
	case first.kind == tokenEOF:
		return Query{}, newSyntaxError(first, "empty command")
	case first.kind != tokenIdentifier || first.value != keywordTab:
		return Query{}, newSyntaxError(first, "unsupported command (expected '%s')", keywordTab)
	}

	var query Query

	firstVar := parser.advance()
	if firstVar.kind != tokenIdentifier || firstVar.value == keywordIf {
		return Query{}, newSyntaxError(firstVar, "expected variable name after '%s'", keywordTab)
	}
	if err := parser.checkColumn(firstVar); err != nil {
		return Query{}, err
	}
	query.GroupVars = append(query.GroupVars, firstVar.value)

	if next := parser.peek(); next.kind == tokenIdentifier && next.value != keywordIf {
		secondVar := parser.advance()
		if err := parser.checkColumn(secondVar); err != nil {
			return Query{}, err
		}
		if secondVar.value == firstVar.value {
			return Query{}, newSyntaxError(secondVar, "variable given twice")
		}
		query.GroupVars = append(query.GroupVars, secondVar.value)
	}

	if next := parser.peek(); next.kind == tokenIdentifier && next.value == keywordIf {
		parser.advance()
		filter, err := parser.parseOr()
		if err != nil {
			return Query{}, err
		}
		query.Filter = filter
	}

	if end := parser.advance(); end.kind != tokenEOF {
		return Query{}, newSyntaxError(end, "unexpected token")
	}

	return query, nil
}

func (parser *parser) parseOr() (FilterExpr, error) {
	left, err := parser.parseAnd()
	if err != nil {
		return nil, err
	}

	for parser.peek().kind == tokenOr {
		parser.advance()
		right, err := parser.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or{Left: left, Right: right}
	}

	return left, nil
}

func (parser *parser) parseAnd() (FilterExpr, error) {
	left, err := parser.parseComparison()
	if err != nil {
		return nil, err
	}

	for parser.peek().kind == tokenAnd {
		parser.advance()
		right, err := parser.parseComparison()
		if err != nil {
			return nil, err
		}
		left = And{Left: left, Right: right}
	}

	return left, nil
}

func (parser *parser) parseComparison() (FilterExpr, error) {
	column := parser.advance()
	if column.kind != tokenIdentifier {
		return nil, newSyntaxError(column, "expected comparison (variable operator value)")
	}
	if err := parser.checkColumn(column); err != nil {
		return nil, err
	}

	operatorToken := parser.advance()
	if operatorToken.kind != tokenOperator {
		return nil, newSyntaxError(operatorToken, "expected comparison operator after '%s'", column.value)
	}
	operator, ok := operatorFromSymbol(operatorToken.value)
	if !ok {
		return nil, newSyntaxError(operatorToken, "unsupported operator")
	}

	value := parser.advance()
	var literal Literal
	switch value.kind {
	case tokenString:
		literal = Literal{Kind: LiteralKindString, Text: value.value}
	case tokenNumber:
		literal = Literal{Kind: LiteralKindNumber, Text: value.value, Number: value.number}
	default:
		return nil, newSyntaxError(
			value, "expected quoted string or number after '%s'", operatorToken.value,
		)
	}

	return Comparison{Column: column.value, Operator: operator, Literal: literal}, nil
}

func (parser *parser) checkColumn(column token) error {
	if !parser.columns.HasColumn(column.value) {
		return newSyntaxError(column, "unknown variable '%s'", column.value)
	}
	return nil
}

// Returns the EOF token when all tokens are consumed.
func (parser *parser) advance() token {
	current := parser.peek()
	if current.kind != tokenEOF {
		parser.current++
	}
	return current
}

func (parser *parser) peek() token {
	return parser.tokens[parser.current]
}

// Names is a ColumnSet over a fixed list of column names.
type Names []string

func (names Names) HasColumn(name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}
