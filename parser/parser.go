package parser

import (
	"fsq/feature"
	"fsq/util"
	"github.com/hauke96/sigolo/v2"
	"regexp"
	"strings"
)

type Parser struct {
	input []rune
	token []*Token
	index int
}

// Parse turns a selector like "na[amenity=restaurant][cuisine!=pizza],n[shop]" into its syntax tree. Malformed
// selectors result in a *QuerySyntaxError.
func Parse(selector string) (*Selector, error) {
	runes := []rune(selector)
	lexer := Lexer{
		input: runes,
		index: 0,
	}

	token, err := lexer.read()
	if err != nil {
		return nil, err
	}

	if sigolo.ShouldLogTrace() {
		sigolo.Tracef("Found %d token", len(token))
		for _, t := range token {
			sigolo.Tracef("  kind=%s, pos=%d : %s", t.kind.String(), t.startPosition, t.lexeme)
		}
	}

	parser := Parser{
		input: runes,
		token: token,
		index: 0,
	}
	result, err := parser.parse()
	if err != nil {
		return nil, err
	}
	result.Source = selector

	sigolo.Debugf("Parsed selector %q into %q", selector, result.String())
	return result, nil
}

func (p *Parser) moveToNextToken() *Token {
	p.index++
	if token := p.currentToken(); token != nil {
		sigolo.Debugb(1, "Moved to token index %d / %d with lexeme '%s'", p.index, len(p.token)-1, token.lexeme)
	}
	return p.currentToken()
}

func (p *Parser) currentToken() *Token {
	if p.index >= len(p.token) {
		return nil
	}
	return p.token[p.index]
}

// currentPosition is the start of the current token or the end of the last token when all token have been consumed.
func (p *Parser) currentPosition() int {
	if token := p.currentToken(); token != nil {
		return token.startPosition
	}
	if len(p.token) > 0 {
		return p.token[len(p.token)-1].endPosition()
	}
	return 0
}

func (p *Parser) errorf(position int, format string, args ...any) *QuerySyntaxError {
	return newQuerySyntaxError(p.input, position, format, args...)
}

// expect checks that the current token is of the given kind and moves behind it.
func (p *Parser) expect(kind TokenKind) (*Token, error) {
	token := p.currentToken()
	if token == nil {
		return nil, p.errorf(p.currentPosition(), "Expected '%s' but selector ended", kind.Lexeme())
	}
	if token.kind != kind {
		return nil, p.errorf(token.startPosition, "Expected '%s' but found '%s'", kind.Lexeme(), token.lexeme)
	}
	p.moveToNextToken()
	return token, nil
}

func (p *Parser) accept(kind TokenKind) bool {
	token := p.currentToken()
	if token != nil && token.kind == kind {
		p.moveToNextToken()
		return true
	}
	return false
}

func (p *Parser) parse() (*Selector, error) {
	selector := &Selector{}

	for {
		group, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		selector.Groups = append(selector.Groups, group)

		if !p.accept(TokenKindComma) {
			break
		}
	}

	if token := p.currentToken(); token != nil {
		return nil, p.errorf(token.startPosition, "Expected '[' or ',' but found '%s'", token.lexeme)
	}

	return selector, nil
}

func (p *Parser) parseGroup() (*Group, error) {
	group := &Group{
		Types:  feature.AllTypes,
		Offset: p.currentPosition(),
	}

	token := p.currentToken()
	if token != nil && token.kind == TokenKindWord {
		types, err := p.parseTypes(token)
		if err != nil {
			return nil, err
		}
		group.Types = types
		p.moveToNextToken()
	} else if token == nil || token.kind != TokenKindOpeningBracket {
		return nil, p.errorf(p.currentPosition(), "Expected selector")
	}

	for p.accept(TokenKindOpeningBracket) {
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		group.Clauses = append(group.Clauses, clause)
	}

	p.normalizeGroup(group)
	return group, nil
}

// parseTypes reads type letters like "nw" or "*" of the given word token.
func (p *Parser) parseTypes(token *Token) (feature.TypeSet, error) {
	if token.lexeme == "*" {
		return feature.AllTypes, nil
	}

	types := feature.NoTypes
	for i, letter := range []rune(token.lexeme) {
		t, ok := feature.TypeSetOfLetter(letter)
		if !ok || letter == '*' {
			return feature.NoTypes, p.errorf(token.startPosition+i, "Unknown feature type '%c', expected n, w, a or r", letter)
		}
		if types&t != 0 {
			return feature.NoTypes, p.errorf(token.startPosition+i, "Type '%c' specified more than once", letter)
		}
		types |= t
	}
	return types, nil
}

// parseClause parses everything behind the opening bracket including the closing bracket.
func (p *Parser) parseClause() (*Clause, error) {
	clause := &Clause{
		Operator: OperatorExists,
		Offset:   p.currentPosition(),
	}

	negatedKey := p.accept(TokenKindNegation)

	key, err := p.parseKey()
	if err != nil {
		return nil, err
	}
	clause.Key = key

	if negatedKey {
		clause.Operator = OperatorNotExists
		_, err = p.expect(TokenKindClosingBracket)
		return clause, err
	}

	token := p.currentToken()
	if token == nil {
		return nil, p.errorf(p.currentPosition(), "Missing closing ']' of clause starting at %d", clause.Offset-1)
	}
	if token.kind == TokenKindClosingBracket {
		p.moveToNextToken()
		return clause, nil
	}
	if token.kind != TokenKindOperator {
		return nil, p.errorf(token.startPosition, "Expected operator or ']' but found '%s'", token.lexeme)
	}

	switch token.lexeme {
	case "=", "==":
		clause.Operator = OperatorEqual
	case "!=":
		clause.Operator = OperatorNotEqual
	case "<":
		clause.Operator = OperatorLess
	case "<=":
		clause.Operator = OperatorLessEqual
	case ">":
		clause.Operator = OperatorGreater
	case ">=":
		clause.Operator = OperatorGreaterEqual
	case "~":
		clause.Operator = OperatorMatch
	case "!~":
		clause.Operator = OperatorNotMatch
	default:
		return nil, p.errorf(token.startPosition, "Unknown operator '%s'", token.lexeme)
	}
	p.moveToNextToken()

	for {
		operand, err := p.parseOperand(clause.Operator)
		if err != nil {
			return nil, err
		}
		clause.Operands = append(clause.Operands, operand)

		if clause.Operator.IsNumeric() || !p.accept(TokenKindComma) {
			break
		}
	}

	if p.currentToken() == nil {
		return nil, p.errorf(p.currentPosition(), "Missing closing ']' of clause starting at %d", clause.Offset-1)
	}
	_, err = p.expect(TokenKindClosingBracket)
	if err != nil {
		return nil, err
	}

	return p.simplifyWildcardClause(clause), nil
}

func (p *Parser) parseKey() (string, error) {
	token := p.currentToken()
	if token == nil {
		return "", p.errorf(p.currentPosition(), "Expected key but selector ended")
	}

	switch token.kind {
	case TokenKindWord:
		if strings.ContainsRune(token.lexeme, '*') {
			return "", p.errorf(token.startPosition, "Wildcards are not allowed in keys")
		}
	case TokenKindString:
		if token.lexeme == "" {
			return "", p.errorf(token.startPosition, "Key must not be empty")
		}
	default:
		return "", p.errorf(token.startPosition, "Expected key but found '%s'", token.lexeme)
	}

	p.moveToNextToken()
	return token.lexeme, nil
}

func (p *Parser) parseOperand(operator Operator) (*Operand, error) {
	token := p.currentToken()
	if token == nil {
		return nil, p.errorf(p.currentPosition(), "Expected value but selector ended")
	}
	if token.kind != TokenKindWord && token.kind != TokenKindString {
		return nil, p.errorf(token.startPosition, "Expected value but found '%s'", token.lexeme)
	}
	p.moveToNextToken()

	operand := &Operand{
		Text:   token.lexeme,
		Offset: token.startPosition,
	}

	switch {
	case operator == OperatorMatch || operator == OperatorNotMatch:
		if token.kind != TokenKindString {
			return nil, p.errorf(token.startPosition, "Regular expressions must be quoted")
		}
		regex, err := regexp.Compile("^(?:" + token.lexeme + ")$")
		if err != nil {
			return nil, p.errorf(token.startPosition, "Invalid regular expression: %s", err.Error())
		}
		operand.Kind = OperandRegex
		operand.Regex = regex
	case operator.IsNumeric():
		if token.kind != TokenKindWord || !util.IsNumber(token.lexeme) {
			return nil, p.errorf(token.startPosition, "Expected number but found '%s'", token.lexeme)
		}
		operand.Kind = OperandNumber
		operand.Number, _ = util.ParseNumber(token.lexeme)
	case token.kind == TokenKindWord && util.IsNumber(token.lexeme):
		operand.Kind = OperandNumber
		operand.Number, _ = util.ParseNumber(token.lexeme)
	default:
		setWildcardKind(operand)
	}

	return operand, nil
}

// setWildcardKind determines the kind of text operands based on the position of "*" characters.
func setWildcardKind(operand *Operand) {
	text := operand.Text
	leading := strings.HasPrefix(text, "*")
	trailing := len(text) > 1 && strings.HasSuffix(text, "*")
	inner := strings.TrimPrefix(text, "*")
	if trailing {
		inner = strings.TrimSuffix(inner, "*")
	}

	if strings.Contains(inner, "*") {
		parts := strings.Split(text, "*")
		for i, part := range parts {
			parts[i] = regexp.QuoteMeta(part)
		}
		operand.Kind = OperandPattern
		operand.Regex = regexp.MustCompile("^(?s:" + strings.Join(parts, ".*") + ")$")
		return
	}

	switch {
	case leading && trailing:
		operand.Kind = OperandContains
	case leading:
		operand.Kind = OperandSuffix
	case trailing:
		operand.Kind = OperandPrefix
	default:
		operand.Kind = OperandExact
	}
	operand.Text = inner
}

// simplifyWildcardClause turns [k=*] into [k] and [k!=*] into [!k], because "*" matches every value.
func (p *Parser) simplifyWildcardClause(clause *Clause) *Clause {
	if clause.Operator != OperatorEqual && clause.Operator != OperatorNotEqual {
		return clause
	}

	for _, operand := range clause.Operands {
		if operand.Kind == OperandContains && operand.Text == "" || operand.Kind == OperandSuffix && operand.Text == "" {
			sigolo.Tracef("Clause on key %s matches every value", clause.Key)
			if clause.Operator == OperatorEqual {
				clause.Operator = OperatorExists
			} else {
				clause.Operator = OperatorNotExists
			}
			clause.Operands = nil
			return clause
		}
	}
	return clause
}

// normalizeGroup intersects the values of equality clauses on the same key and marks groups whose clauses can never
// be satisfied together.
func (p *Parser) normalizeGroup(group *Group) {
	var clauses []*Clause
	exactEquality := map[string]*Clause{}
	required := map[string]bool{}
	forbidden := map[string]bool{}

	for _, clause := range group.Clauses {
		if clause.Operator == OperatorNotExists {
			forbidden[clause.Key] = true
		} else if !clause.Operator.IsNegative() {
			required[clause.Key] = true
		}

		if clause.Operator != OperatorEqual || !allExact(clause.Operands) {
			clauses = append(clauses, clause)
			continue
		}

		previous, ok := exactEquality[clause.Key]
		if !ok {
			exactEquality[clause.Key] = clause
			clauses = append(clauses, clause)
			continue
		}

		// Both clauses must hold, so only values in both of them remain.
		var remaining []*Operand
		for _, operand := range previous.Operands {
			if containsExact(clause.Operands, operand.Text) {
				remaining = append(remaining, operand)
			}
		}
		previous.Operands = remaining
		if len(remaining) == 0 {
			sigolo.Debugf("Group at offset %d can never match: no common value for key %s", group.Offset, clause.Key)
			group.Never = true
		}
	}
	group.Clauses = clauses

	for key := range forbidden {
		if required[key] {
			sigolo.Debugf("Group at offset %d can never match: key %s is required and forbidden", group.Offset, key)
			group.Never = true
		}
	}
}

func allExact(operands []*Operand) bool {
	for _, operand := range operands {
		if operand.Kind != OperandExact {
			return false
		}
	}
	return true
}

func containsExact(operands []*Operand, text string) bool {
	for _, operand := range operands {
		if operand.Text == text {
			return true
		}
	}
	return false
}
