package policy

import (
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/toolbox"
)

// Condition is a parsed policy condition expression. The textual form is an
// optional comparison operator followed by a literal, or a membership test:
//
//	prod            (shorthand for == prod)
//	!= staging
//	>= 10
//	in (eu-west-1, eu-central-1)
//
// Literals may be quoted to preserve spaces or reserved characters.
type Condition struct {
	Op     string
	Values []string
}

// ParseCondition parses a condition expression.
func ParseCondition(input []byte) (*Condition, error) {
	cursor := parsly.NewCursor("", input, 0)
	condition := &Condition{Op: "=="}

	matched := cursor.MatchAfterOptional(whitespaceToken, inKeywordToken, operatorToken, literalToken)
	switch matched.Code {
	case inKeywordToken.Code:
		condition.Op = "in"
		return condition, parseMembership(cursor, condition)
	case operatorToken.Code:
		condition.Op = matched.Text(cursor)
	case literalToken.Code:
		condition.Values = []string{unquote(matched.Text(cursor))}
		return condition, nil
	default:
		return nil, cursor.NewError(operatorToken, literalToken)
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, literalToken)
	if matched.Code != literalToken.Code {
		return nil, cursor.NewError(literalToken)
	}
	condition.Values = []string{unquote(matched.Text(cursor))}
	return condition, nil
}

func parseMembership(cursor *parsly.Cursor, condition *Condition) error {
	matched := cursor.MatchAfterOptional(whitespaceToken, openParenToken)
	if matched.Code != openParenToken.Code {
		return cursor.NewError(openParenToken)
	}
	for {
		matched = cursor.MatchAfterOptional(whitespaceToken, literalToken, closeParenToken)
		switch matched.Code {
		case closeParenToken.Code:
			return nil
		case literalToken.Code:
			condition.Values = append(condition.Values, unquote(matched.Text(cursor)))
		default:
			return cursor.NewError(literalToken, closeParenToken)
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, commaToken, closeParenToken)
		switch matched.Code {
		case commaToken.Code:
		case closeParenToken.Code:
			return nil
		default:
			return cursor.NewError(commaToken, closeParenToken)
		}
	}
}

func unquote(text string) string {
	if len(text) >= 2 {
		if quote := text[0]; (quote == '"' || quote == '\'') && text[len(text)-1] == quote {
			return text[1 : len(text)-1]
		}
	}
	return text
}

// Matches evaluates the condition against an actual input value.
func (c *Condition) Matches(actual interface{}) bool {
	if c == nil || len(c.Values) == 0 {
		return false
	}
	actualText := strings.TrimSpace(toolbox.AsString(actual))
	switch c.Op {
	case "==":
		return strings.EqualFold(actualText, c.Values[0])
	case "!=":
		return !strings.EqualFold(actualText, c.Values[0])
	case "in":
		for _, candidate := range c.Values {
			if strings.EqualFold(actualText, candidate) {
				return true
			}
		}
		return false
	case ">", ">=", "<", "<=":
		actualNumber := toolbox.AsFloat(actual)
		expectedNumber := toolbox.AsFloat(c.Values[0])
		switch c.Op {
		case ">":
			return actualNumber > expectedNumber
		case ">=":
			return actualNumber >= expectedNumber
		case "<":
			return actualNumber < expectedNumber
		case "<=":
			return actualNumber <= expectedNumber
		}
	}
	return false
}
