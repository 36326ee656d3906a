package command

import "fmt"

// SyntaxError reports a command that could not be parsed, or that references a column the
// dataset does not have.
type SyntaxError struct {
	// The offending token as written in the command; empty at end of input.
	Token string `json:"token"`
	// 1-based character position of the token in the command.
	Position int    `json:"position"`
	Message  string `json:"message"`
}

func (err *SyntaxError) Error() string {
	if err.Token == "" {
		return fmt.Sprintf("syntax error at position %d: %s", err.Position, err.Message)
	}
	return fmt.Sprintf(
		"syntax error at position %d near '%s': %s", err.Position, err.Token, err.Message,
	)
}

func newSyntaxError(token token, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		Token:    token.source,
		Position: token.position,
		Message:  fmt.Sprintf(format, args...),
	}
}
