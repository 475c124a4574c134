package policy

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes for condition expressions.
const (
	whitespaceCode = iota
	operatorCode
	inKeywordCode
	openParenCode
	closeParenCode
	commaCode
	literalCode
)

// Token definitions.
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	operatorToken   = parsly.NewToken(operatorCode, "Operator", newOperatorMatcher())
	inKeywordToken  = parsly.NewToken(inKeywordCode, "In", newInKeywordMatcher())
	openParenToken  = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	commaToken      = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	literalToken    = parsly.NewToken(literalCode, "Literal", newLiteralMatcher())
)

func newOperatorMatcher() parsly.Matcher {
	return &operatorMatcher{}
}

func newInKeywordMatcher() parsly.Matcher {
	return &inKeywordMatcher{}
}

func newLiteralMatcher() parsly.Matcher {
	return &literalMatcher{}
}

// operatorMatcher matches comparison operators, longest first.
type operatorMatcher struct{}

func (m *operatorMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if pos+1 < size {
		switch string(input[pos : pos+2]) {
		case "==", "!=", ">=", "<=":
			return 2
		}
	}
	switch input[pos] {
	case '>', '<':
		return 1
	}
	return 0
}

// inKeywordMatcher matches the "in" keyword when followed by whitespace or
// an opening parenthesis, so a bare literal starting with "in" is not
// swallowed.
type inKeywordMatcher struct{}

func (m *inKeywordMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos+1 >= size {
		return 0
	}
	if (input[pos] != 'i' && input[pos] != 'I') || (input[pos+1] != 'n' && input[pos+1] != 'N') {
		return 0
	}
	if pos+2 >= size {
		return 0
	}
	switch input[pos+2] {
	case ' ', '\t', '(':
		return 2
	}
	return 0
}

// literalMatcher matches a quoted string (quotes included) or a bare run of
// characters up to whitespace, comma or parenthesis.
type literalMatcher struct{}

func (m *literalMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize
	if pos >= size {
		return 0
	}
	if quote := input[pos]; quote == '"' || quote == '\'' {
		for i := pos + 1; i < size; i++ {
			if input[i] == quote {
				return i - pos + 1
			}
		}
		return 0 // unterminated quote
	}
	matched := 0
	for i := pos; i < size; i++ {
		switch input[i] {
		case ' ', '\t', '\n', '\r', ',', '(', ')':
			return matched
		}
		matched++
	}
	return matched
}
