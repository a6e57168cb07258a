package parser

import (
	"errors"
	"fsq/util"
	"testing"
)

func TestLexer_read(t *testing.T) {
	// Arrange
	lexer := Lexer{input: []rune("na[amenity = restaurant ][!name],w[maxspeed>=50]")}

	// Act
	token, err := lexer.read()

	// Assert
	util.AssertNil(t, err)
	expected := []*Token{
		{kind: TokenKindWord, lexeme: "na", startPosition: 0, length: 2},
		{kind: TokenKindOpeningBracket, lexeme: "[", startPosition: 2, length: 1},
		{kind: TokenKindWord, lexeme: "amenity", startPosition: 3, length: 7},
		{kind: TokenKindOperator, lexeme: "=", startPosition: 11, length: 1},
		{kind: TokenKindWord, lexeme: "restaurant", startPosition: 13, length: 10},
		{kind: TokenKindClosingBracket, lexeme: "]", startPosition: 24, length: 1},
		{kind: TokenKindOpeningBracket, lexeme: "[", startPosition: 25, length: 1},
		{kind: TokenKindNegation, lexeme: "!", startPosition: 26, length: 1},
		{kind: TokenKindWord, lexeme: "name", startPosition: 27, length: 4},
		{kind: TokenKindClosingBracket, lexeme: "]", startPosition: 31, length: 1},
		{kind: TokenKindComma, lexeme: ",", startPosition: 32, length: 1},
		{kind: TokenKindWord, lexeme: "w", startPosition: 33, length: 1},
		{kind: TokenKindOpeningBracket, lexeme: "[", startPosition: 34, length: 1},
		{kind: TokenKindWord, lexeme: "maxspeed", startPosition: 35, length: 8},
		{kind: TokenKindOperator, lexeme: ">=", startPosition: 43, length: 2},
		{kind: TokenKindWord, lexeme: "50", startPosition: 45, length: 2},
		{kind: TokenKindClosingBracket, lexeme: "]", startPosition: 47, length: 1},
	}
	util.AssertEqual(t, expected, token)
}

func TestLexer_readOperators(t *testing.T) {
	// Arrange
	lexer := Lexer{input: []rune("= == != < <= > >= ~ !~ !")}

	// Act
	token, err := lexer.read()

	// Assert
	util.AssertNil(t, err)
	var lexemes []string
	var kinds []TokenKind
	for _, tok := range token {
		lexemes = append(lexemes, tok.lexeme)
		kinds = append(kinds, tok.kind)
	}
	util.AssertEqual(t, []string{"=", "==", "!=", "<", "<=", ">", ">=", "~", "!~", "!"}, lexemes)
	util.AssertEqual(t, TokenKindOperator, kinds[8])
	util.AssertEqual(t, TokenKindNegation, kinds[9])
}

func TestLexer_readString(t *testing.T) {
	// Arrange
	lexer := Lexer{input: []rune(`"Caf\"é" 'a\nb\\'`)}

	// Act
	token, err := lexer.read()

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(token))
	util.AssertEqual(t, TokenKindString, token[0].kind)
	util.AssertEqual(t, `Caf"é`, token[0].lexeme)
	util.AssertEqual(t, 0, token[0].startPosition)
	util.AssertEqual(t, 8, token[0].endPosition())
	util.AssertEqual(t, "a\nb\\", token[1].lexeme)
	util.AssertEqual(t, 9, token[1].startPosition)
}

func TestLexer_readWildcardWord(t *testing.T) {
	// Arrange
	lexer := Lexer{input: []rune("*ary")}

	// Act
	token, err := lexer.read()

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, []*Token{{kind: TokenKindWord, lexeme: "*ary", startPosition: 0, length: 4}}, token)
}

func TestLexer_unterminatedString(t *testing.T) {
	// Arrange
	lexer := Lexer{input: []rune("n[name='foo]")}

	// Act
	token, err := lexer.read()

	// Assert
	util.AssertNil(t, token)
	var syntaxError *QuerySyntaxError
	util.AssertTrue(t, errors.As(err, &syntaxError))
	util.AssertEqual(t, 7, syntaxError.Offset)
	util.AssertError(t, "Syntax error at offset 7: Missing closing quote '", err)
}

func TestLexer_emptyInput(t *testing.T) {
	// Arrange
	lexer := Lexer{input: []rune("   ")}

	// Act
	token, err := lexer.read()

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(token))
}
