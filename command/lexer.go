package command

import (
	"strconv"
	"unicode"
)

type tokenKind uint8

const (
	tokenEOF tokenKind = iota
	tokenIdentifier
	tokenString
	tokenNumber
	tokenOperator
	tokenAnd
	tokenOr
)

type token struct {
	kind tokenKind
	// Exactly as written, including quotes.
	source string
	// Unquoted text for strings.
	value    string
	number   float64
	position int
}

type lexer struct {
	input  []rune
	index  int
	tokens []token
}

func tokenize(command string) ([]token, error) {
	lexer := lexer{input: []rune(command)}

	for {
		lexer.skipWhitespace()
		if lexer.done() {
			lexer.tokens = append(
				lexer.tokens, token{kind: tokenEOF, position: lexer.index + 1},
			)
			return lexer.tokens, nil
		}

		if err := lexer.next(); err != nil {
			return nil, err
		}
	}
}

func (lexer *lexer) next() error {
	start := lexer.index
	char := lexer.input[start]

	switch {
	case isIdentifierStart(char):
		lexer.index++
		for !lexer.done() && isIdentifierPart(lexer.peek()) {
			lexer.index++
		}
		lexer.emit(tokenIdentifier, start)
		return nil
	case unicode.IsDigit(char) || (char == '-' && unicode.IsDigit(lexer.peekAt(1))):
		return lexer.number()
	case char == '"' || char == '\'':
		return lexer.string(char)
	case char == '&':
		lexer.index++
		lexer.emit(tokenAnd, start)
		return nil
	case char == '|':
		lexer.index++
		lexer.emit(tokenOr, start)
		return nil
	case char == '<' || char == '>':
		lexer.index++
		if lexer.peek() == '=' {
			lexer.index++
		}
		lexer.emit(tokenOperator, start)
		return nil
	case char == '=' || char == '!':
		lexer.index++
		if lexer.peek() != '=' {
			return lexer.errorFrom(start, "unsupported operator (use '==' or '!=')")
		}
		lexer.index++
		lexer.emit(tokenOperator, start)
		return nil
	default:
		lexer.index++
		return lexer.errorFrom(start, "unexpected character")
	}
}

// Numbers are an optional minus sign, digits, and an optional fraction.
func (lexer *lexer) number() error {
	start := lexer.index
	if lexer.peek() == '-' {
		lexer.index++
	}
	lexer.skipDigits()

	if lexer.peek() == '.' {
		lexer.index++
		if !unicode.IsDigit(lexer.peek()) {
			lexer.skipIdentifierParts()
			return lexer.errorFrom(start, "malformed numeric literal")
		}
		lexer.skipDigits()
	}

	if !lexer.done() && (isIdentifierPart(lexer.peek()) || lexer.peek() == '.') {
		lexer.skipIdentifierParts()
		return lexer.errorFrom(start, "malformed numeric literal")
	}

	source := string(lexer.input[start:lexer.index])
	number, err := strconv.ParseFloat(source, 64)
	if err != nil {
		return lexer.errorFrom(start, "malformed numeric literal")
	}

	lexer.tokens = append(lexer.tokens, token{
		kind:     tokenNumber,
		source:   source,
		value:    source,
		number:   number,
		position: start + 1,
	})
	return nil
}

// Strings are quoted with single or double quotes, and have no escape sequences.
func (lexer *lexer) string(quote rune) error {
	start := lexer.index
	lexer.index++

	for !lexer.done() && lexer.peek() != quote {
		lexer.index++
	}
	if lexer.done() {
		return lexer.errorFrom(start, "unterminated string literal")
	}
	lexer.index++

	lexer.tokens = append(lexer.tokens, token{
		kind:     tokenString,
		source:   string(lexer.input[start:lexer.index]),
		value:    string(lexer.input[start+1 : lexer.index-1]),
		position: start + 1,
	})
	return nil
}

func (lexer *lexer) emit(kind tokenKind, start int) {
	source := string(lexer.input[start:lexer.index])
	lexer.tokens = append(
		lexer.tokens, token{kind: kind, source: source, value: source, position: start + 1},
	)
}

func (lexer *lexer) errorFrom(start int, message string) *SyntaxError {
	return &SyntaxError{
		Token:    string(lexer.input[start:lexer.index]),
		Position: start + 1,
		Message:  message,
	}
}

func (lexer *lexer) skipWhitespace() {
	for !lexer.done() && unicode.IsSpace(lexer.peek()) {
		lexer.index++
	}
}

func (lexer *lexer) skipDigits() {
	for !lexer.done() && unicode.IsDigit(lexer.peek()) {
		lexer.index++
	}
}

func (lexer *lexer) skipIdentifierParts() {
	for !lexer.done() && (isIdentifierPart(lexer.peek()) || lexer.peek() == '.') {
		lexer.index++
	}
}

func (lexer *lexer) done() bool {
	return lexer.index >= len(lexer.input)
}

// Returns 0 at end of input.
func (lexer *lexer) peek() rune {
	return lexer.peekAt(0)
}

func (lexer *lexer) peekAt(offset int) rune {
	if lexer.index+offset >= len(lexer.input) {
		return 0
	}
	return lexer.input[lexer.index+offset]
}

func isIdentifierStart(char rune) bool {
	return char == '_' || unicode.IsLetter(char)
}

func isIdentifierPart(char rune) bool {
	return isIdentifierStart(char) || unicode.IsDigit(char)
}
