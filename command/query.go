package command

import (
	"fmt"
	"strconv"
)

// Query is a parsed and validated tab command.
type Query struct {
	// One or two column names; the first splits rows, the optional second splits columns.
	GroupVars []string
	// Nil when the command has no if clause.
	Filter     FilterExpr
	RawCommand string
}

// FilterExpr is a node in a filter expression tree: a Comparison, And or Or.
type FilterExpr interface {
	fmt.Stringer
	isFilterExpr()
}

type Comparison struct {
	Column   string
	Operator Operator
	Literal  Literal
}

type And struct {
	Left  FilterExpr
	Right FilterExpr
}

type Or struct {
	Left  FilterExpr
	Right FilterExpr
}

func (Comparison) isFilterExpr() {}
func (And) isFilterExpr()        {}
func (Or) isFilterExpr()         {}

func (comparison Comparison) String() string {
	return fmt.Sprintf("%s %v %v", comparison.Column, comparison.Operator, comparison.Literal)
}

func (and And) String() string {
	return fmt.Sprintf("(%v & %v)", and.Left, and.Right)
}

func (or Or) String() string {
	return fmt.Sprintf("(%v | %v)", or.Left, or.Right)
}

type Literal struct {
	Kind LiteralKind
	// Unquoted value for strings, source text for numbers.
	Text   string
	Number float64
}

func StringLiteral(value string) Literal {
	return Literal{Kind: LiteralKindString, Text: value}
}

func NumberLiteral(value float64) Literal {
	return Literal{
		Kind:   LiteralKindNumber,
		Text:   strconv.FormatFloat(value, 'f', -1, 64),
		Number: value,
	}
}

func (literal Literal) String() string {
	if literal.Kind == LiteralKindString {
		return strconv.Quote(literal.Text)
	}
	return literal.Text
}

// Columns returns every column the query references, group variables first, without
// duplicates.
func (query Query) Columns() []string {
	columns := make([]string, 0, len(query.GroupVars))
	seen := make(map[string]struct{})

	add := func(column string) {
		if _, ok := seen[column]; !ok {
			seen[column] = struct{}{}
			columns = append(columns, column)
		}
	}

	for _, groupVar := range query.GroupVars {
		add(groupVar)
	}

	var walk func(expr FilterExpr)
	walk = func(expr FilterExpr) {
		switch expr := expr.(type) {
		case Comparison:
			add(expr.Column)
		case And:
			walk(expr.Left)
			walk(expr.Right)
		case Or:
			walk(expr.Left)
			walk(expr.Right)
		}
	}
	if query.Filter != nil {
		walk(query.Filter)
	}

	return columns
}

func (query Query) IsCrossTabulation() bool {
	return len(query.GroupVars) == 2
}
