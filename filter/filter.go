// Package filter evaluates parsed filter expressions against a dataset, producing a row mask.
package filter

import (
	"fmt"

	"hermannm.dev/safetab/command"
	"hermannm.dev/safetab/dataset"
)

// TypeError reports a comparison whose literal or operator does not fit the column's kind:
// numeric columns compare only with numbers, and categorical columns only with strings using
// == or !=.
type TypeError struct {
	Column   string             `json:"column"`
	Kind     dataset.ColumnKind `json:"kind"`
	Operator command.Operator   `json:"operator"`
	Literal  string             `json:"literal"`
}

func (err *TypeError) Error() string {
	return fmt.Sprintf(
		"type error: cannot compare %v column '%s' using '%v' with %s",
		err.Kind, err.Column, err.Operator, err.Literal,
	)
}

// Mask marks which rows of a dataset pass a filter.
type Mask []bool

// Count returns the number of rows that pass.
func (mask Mask) Count() int {
	count := 0
	for _, pass := range mask {
		if pass {
			count++
		}
	}
	return count
}

// All returns a mask passing every one of the given number of rows.
func All(rows int) Mask {
	mask := make(Mask, rows)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

// Evaluate returns the rows of the dataset for which the expression holds. A nil expression
// passes every row. Null values never satisfy a comparison, including !=.
//
// Every comparison is type-checked before any row is evaluated, so a TypeError is returned
// even when an earlier branch would make the comparison irrelevant.
func Evaluate(expr command.FilterExpr, data *dataset.Dataset) (Mask, error) {
	if expr == nil {
		return All(data.NumRows()), nil
	}

	compiled, err := compile(expr, data)
	if err != nil {
		return nil, err
	}

	mask := make(Mask, data.NumRows())
	for row := range mask {
		mask[row] = compiled(row)
	}
	return mask, nil
}

type predicate func(row int) bool

func compile(expr command.FilterExpr, data *dataset.Dataset) (predicate, error) {
	switch expr := expr.(type) {
	case command.Comparison:
		return compileComparison(expr, data)
	case command.And:
		left, right, err := compileBoth(expr.Left, expr.Right, data)
		if err != nil {
			return nil, err
		}
		return func(row int) bool { return left(row) && right(row) }, nil
	case command.Or:
		left, right, err := compileBoth(expr.Left, expr.Right, data)
		if err != nil {
			return nil, err
		}
		return func(row int) bool { return left(row) || right(row) }, nil
	default:
		return nil, fmt.Errorf("unrecognized filter expression type %T", expr)
	}
}

func compileBoth(
	leftExpr command.FilterExpr,
	rightExpr command.FilterExpr,
	data *dataset.Dataset,
) (left predicate, right predicate, err error) {
	left, err = compile(leftExpr, data)
	if err != nil {
		return nil, nil, err
	}
	right, err = compile(rightExpr, data)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func compileComparison(comparison command.Comparison, data *dataset.Dataset) (predicate, error) {
	column, ok := data.Column(comparison.Column)
	if !ok {
		return nil, fmt.Errorf("dataset has no column '%s'", comparison.Column)
	}

	typeErr := &TypeError{
		Column:   comparison.Column,
		Kind:     column.Kind(),
		Operator: comparison.Operator,
		Literal:  comparison.Literal.String(),
	}

	switch column.Kind() {
	case dataset.ColumnKindNumeric:
		if comparison.Literal.Kind != command.LiteralKindNumber {
			return nil, typeErr
		}
		return comparePredicate(
			column, column.Number, comparison.Operator, comparison.Literal.Number,
		)
	case dataset.ColumnKindCategorical:
		if comparison.Literal.Kind != command.LiteralKindString ||
			comparison.Operator.IsOrdering() {
			return nil, typeErr
		}
		return comparePredicate(column, column.Text, comparison.Operator, comparison.Literal.Text)
	default:
		return nil, fmt.Errorf("column '%s' has invalid kind", comparison.Column)
	}
}

func comparePredicate[T float64 | string](
	column *dataset.Column,
	valueAt func(row int) T,
	operator command.Operator,
	literal T,
) (predicate, error) {
	var compare func(value T) bool
	switch operator {
	case command.OperatorEqual:
		compare = func(value T) bool { return value == literal }
	case command.OperatorNotEqual:
		compare = func(value T) bool { return value != literal }
	case command.OperatorLess:
		compare = func(value T) bool { return value < literal }
	case command.OperatorGreater:
		compare = func(value T) bool { return value > literal }
	case command.OperatorLessOrEqual:
		compare = func(value T) bool { return value <= literal }
	case command.OperatorGreaterOrEqual:
		compare = func(value T) bool { return value >= literal }
	default:
		return nil, fmt.Errorf("unrecognized operator %v", operator)
	}

	return func(row int) bool {
		if column.IsMissing(row) {
			return false
		}
		return compare(valueAt(row))
	}, nil
}
