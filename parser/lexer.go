package parser

import (
	"fmt"
	"github.com/hauke96/sigolo/v2"
	"strings"
	"unicode"
)

type Lexer struct {
	input []rune
	index int // Position in input.
}

// specialChars end a word. Everything else, except whitespace, may be part of a word.
const specialChars = "[]!=<>~,'\""

// char returns the rune at the current location or the rune '-1' if there is no next char.
func (l *Lexer) char() rune {
	if l.index >= len(l.input) {
		return -1
	}
	return l.input[l.index]
}

// nextChar returns the next rune, so the one after the rune char() returns, or the rune '-1' if there is no next char.
func (l *Lexer) nextChar() rune {
	if l.index+1 >= len(l.input) {
		return -1
	}
	return l.input[l.index+1]
}

func (l *Lexer) read() ([]*Token, error) {
	var tokens []*Token
	for {
		token, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		if token == nil {
			break
		}
		if sigolo.ShouldLogTrace() {
			l.tracef("Found token kind=%s, pos=%d, lexeme=\"%s\"", token.kind.String(), token.startPosition, token.lexeme)
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// nextToken returns the token starting at or after the current index. It returns nil when the input has been read
// completely.
func (l *Lexer) nextToken() (*Token, error) {
	for ; l.index < len(l.input); l.index++ {
		char := l.char()

		// Ignore whitespace outside of string literals
		if unicode.IsSpace(char) {
			continue
		}

		switch char {
		case '[':
			return l.currentMultiCharToken(TokenKindOpeningBracket, 1), nil
		case ']':
			return l.currentMultiCharToken(TokenKindClosingBracket, 1), nil
		case ',':
			return l.currentMultiCharToken(TokenKindComma, 1), nil
		case '\'', '"':
			return l.currentString()
		case '!':
			if l.nextChar() == '=' || l.nextChar() == '~' {
				return l.currentMultiCharToken(TokenKindOperator, 2), nil
			}
			return l.currentMultiCharToken(TokenKindNegation, 1), nil
		case '<', '>', '=':
			if l.nextChar() == '=' {
				return l.currentMultiCharToken(TokenKindOperator, 2), nil
			}
			return l.currentMultiCharToken(TokenKindOperator, 1), nil
		case '~':
			return l.currentMultiCharToken(TokenKindOperator, 1), nil
		}

		return l.currentWord(), nil
	}

	return nil, nil
}

func (l *Lexer) currentMultiCharToken(tokenKind TokenKind, chars int) *Token {
	token := &Token{
		kind:          tokenKind,
		lexeme:        string(l.input[l.index : l.index+chars]),
		startPosition: l.index,
		length:        chars,
	}
	l.index += chars
	return token
}

// currentWord returns the word starting at the current index.
func (l *Lexer) currentWord() *Token {
	startIndex := l.index

	for ; l.index < len(l.input); l.index++ {
		char := l.char()
		if unicode.IsSpace(char) || strings.ContainsRune(specialChars, char) {
			break
		}
	}

	return &Token{
		kind:          TokenKindWord,
		lexeme:        string(l.input[startIndex:l.index]),
		startPosition: startIndex,
		length:        l.index - startIndex,
	}
}

// currentString reads a single or double-quoted string. A backslash escapes the next character, "\n" and "\t" are
// turned into newline and tab.
func (l *Lexer) currentString() (*Token, error) {
	startIndex := l.index
	quote := l.char()
	l.index++

	var sb strings.Builder
	for ; l.index < len(l.input); l.index++ {
		char := l.char()

		if char == quote {
			l.index++
			return &Token{
				kind:          TokenKindString,
				lexeme:        sb.String(),
				startPosition: startIndex,
				length:        l.index - startIndex,
			}, nil
		}

		if char == '\\' && l.index+1 < len(l.input) {
			l.index++
			switch l.char() {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			default:
				sb.WriteRune(l.char())
			}
			continue
		}

		sb.WriteRune(char)
	}

	return nil, newQuerySyntaxError(l.input, startIndex, "Missing closing quote %c", quote)
}

func (l *Lexer) tracef(format string, args ...any) {
	formattedMessage := format
	if len(args) > 0 {
		formattedMessage = fmt.Sprintf(format, args...)
	}
	sigolo.Traceb(1, "[%d, %q] %s", l.index, l.char(), formattedMessage)
}
