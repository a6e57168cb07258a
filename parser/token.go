package parser

import (
	"fmt"
)

type TokenKind int

const (
	TokenKindUnknown TokenKind = iota

	TokenKindWord   // Unquoted text: keys, type letters, numbers and wildcard values
	TokenKindString // Quoted text, the lexeme is the unescaped content

	TokenKindOpeningBracket
	TokenKindClosingBracket
	TokenKindComma
	TokenKindNegation

	TokenKindOperator
)

func (k TokenKind) String() string {
	switch k {
	case TokenKindUnknown:
		return "TokenKindUnknown"
	case TokenKindWord:
		return "TokenKindWord"
	case TokenKindString:
		return "TokenKindString"
	case TokenKindOpeningBracket:
		return "TokenKindOpeningBracket"
	case TokenKindClosingBracket:
		return "TokenKindClosingBracket"
	case TokenKindComma:
		return "TokenKindComma"
	case TokenKindNegation:
		return "TokenKindNegation"
	case TokenKindOperator:
		return "TokenKindOperator"
	}
	return fmt.Sprintf("!! INVALID TOKEN KIND %d !!", k)
}

func (k TokenKind) Lexeme() string {
	switch k {
	case TokenKindUnknown:
		return "UNKNOWN"
	case TokenKindWord:
		return "word"
	case TokenKindString:
		return "string"
	case TokenKindOpeningBracket:
		return "["
	case TokenKindClosingBracket:
		return "]"
	case TokenKindComma:
		return ","
	case TokenKindNegation:
		return "!"
	case TokenKindOperator:
		return "operator"
	}
	return fmt.Sprintf("!! INVALID TOKEN KIND %d !!", k)
}

type Token struct {
	kind          TokenKind
	lexeme        string
	startPosition int // Rune offset in the selector
	length        int // Number of runes in the selector, which differs from the lexeme for strings
}

func (t *Token) endPosition() int {
	return t.startPosition + t.length
}
