package command

import (
	"hermannm.dev/enumnames"
)

type Operator uint8

const (
	OperatorEqual Operator = iota + 1
	OperatorNotEqual
	OperatorLess
	OperatorGreater
	OperatorLessOrEqual
	OperatorGreaterOrEqual
)

var operatorSymbols = enumnames.NewMap(map[Operator]string{
	OperatorEqual:          "==",
	OperatorNotEqual:       "!=",
	OperatorLess:           "<",
	OperatorGreater:        ">",
	OperatorLessOrEqual:    "<=",
	OperatorGreaterOrEqual: ">=",
})

func (operator Operator) IsValid() bool {
	return operatorSymbols.ContainsEnumValue(operator)
}

func (operator Operator) String() string {
	return operatorSymbols.GetNameOrFallback(operator, "INVALID_OPERATOR")
}

func (operator Operator) MarshalJSON() ([]byte, error) {
	return operatorSymbols.MarshalToNameJSON(operator)
}

func (operator *Operator) UnmarshalJSON(bytes []byte) error {
	return operatorSymbols.UnmarshalFromNameJSON(bytes, operator)
}

// IsOrdering reports whether the operator compares by order rather than by equality.
func (operator Operator) IsOrdering() bool {
	switch operator {
	case OperatorLess, OperatorGreater, OperatorLessOrEqual, OperatorGreaterOrEqual:
		return true
	default:
		return false
	}
}

func operatorFromSymbol(symbol string) (Operator, bool) {
	switch symbol {
	case "==":
		return OperatorEqual, true
	case "!=":
		return OperatorNotEqual, true
	case "<":
		return OperatorLess, true
	case ">":
		return OperatorGreater, true
	case "<=":
		return OperatorLessOrEqual, true
	case ">=":
		return OperatorGreaterOrEqual, true
	default:
		return 0, false
	}
}

type LiteralKind uint8

const (
	LiteralKindString LiteralKind = iota + 1
	LiteralKindNumber
)

var literalKindNames = enumnames.NewMap(map[LiteralKind]string{
	LiteralKindString: "STRING",
	LiteralKindNumber: "NUMBER",
})

func (kind LiteralKind) String() string {
	return literalKindNames.GetNameOrFallback(kind, "INVALID_LITERAL_KIND")
}

func (kind LiteralKind) MarshalJSON() ([]byte, error) {
	return literalKindNames.MarshalToNameJSON(kind)
}

func (kind *LiteralKind) UnmarshalJSON(bytes []byte) error {
	return literalKindNames.UnmarshalFromNameJSON(bytes, kind)
}
