package parser

import (
	"fsq/feature"
	"regexp"
	"strconv"
	"strings"
)

type Operator int

const (
	OperatorExists Operator = iota
	OperatorNotExists
	OperatorEqual
	OperatorNotEqual
	OperatorLess
	OperatorLessEqual
	OperatorGreater
	OperatorGreaterEqual
	OperatorMatch
	OperatorNotMatch
)

func (o Operator) String() string {
	switch o {
	case OperatorExists:
		return ""
	case OperatorNotExists:
		return "!"
	case OperatorEqual:
		return "="
	case OperatorNotEqual:
		return "!="
	case OperatorLess:
		return "<"
	case OperatorLessEqual:
		return "<="
	case OperatorGreater:
		return ">"
	case OperatorGreaterEqual:
		return ">="
	case OperatorMatch:
		return "~"
	case OperatorNotMatch:
		return "!~"
	}
	return "?"
}

// IsNegative returns true for operators that are satisfied by features without the key.
func (o Operator) IsNegative() bool {
	return o == OperatorNotExists || o == OperatorNotEqual || o == OperatorNotMatch
}

// IsNumeric returns true for the comparison operators that only accept numbers.
func (o Operator) IsNumeric() bool {
	return o == OperatorLess || o == OperatorLessEqual || o == OperatorGreater || o == OperatorGreaterEqual
}

type OperandKind int

const (
	OperandExact    OperandKind = iota // Whole value equals the text
	OperandPrefix                      // abc*
	OperandSuffix                      // *abc
	OperandContains                    // *abc*
	OperandPattern                     // a*c, evaluated with the regex
	OperandNumber                      // Unquoted number
	OperandRegex                       // Quoted regular expression of ~ and !~
)

type Operand struct {
	Kind   OperandKind
	Text   string // For patterns and regexes this is the original text
	Number float64
	Regex  *regexp.Regexp
	Offset int
}

func (o *Operand) String() string {
	switch o.Kind {
	case OperandNumber:
		return strconv.FormatFloat(o.Number, 'f', -1, 64)
	case OperandPrefix:
		return quote(o.Text + "*")
	case OperandSuffix:
		return quote("*" + o.Text)
	case OperandContains:
		return quote("*" + o.Text + "*")
	}
	return quote(o.Text)
}

type Clause struct {
	Key      string
	Operator Operator
	Operands []*Operand
	Offset   int
}

func (c *Clause) String() string {
	if c.Operator == OperatorNotExists {
		return "[!" + formatKey(c.Key) + "]"
	}

	operands := make([]string, len(c.Operands))
	for i, operand := range c.Operands {
		operands[i] = operand.String()
	}
	return "[" + formatKey(c.Key) + c.Operator.String() + strings.Join(operands, ",") + "]"
}

// Group is one of the comma-separated alternatives of a selector. Its clauses must all be satisfied.
type Group struct {
	Types   feature.TypeSet
	Clauses []*Clause
	Never   bool // True when the clauses contradict each other
	Offset  int
}

func (g *Group) String() string {
	var sb strings.Builder
	sb.WriteString(typeLetters(g.Types, len(g.Clauses) == 0))
	for _, clause := range g.Clauses {
		sb.WriteString(clause.String())
	}
	return sb.String()
}

// Keys returns the keys of all clauses in order of their first appearance.
func (g *Group) Keys() []string {
	var keys []string
	seen := map[string]bool{}
	for _, clause := range g.Clauses {
		if !seen[clause.Key] {
			seen[clause.Key] = true
			keys = append(keys, clause.Key)
		}
	}
	return keys
}

// ClausesOfKey returns all clauses testing the given key.
func (g *Group) ClausesOfKey(key string) []*Clause {
	var result []*Clause
	for _, clause := range g.Clauses {
		if clause.Key == key {
			result = append(result, clause)
		}
	}
	return result
}

type Selector struct {
	Groups []*Group
	Source string
}

// Types returns the union of the types of all groups that can match anything.
func (s *Selector) Types() feature.TypeSet {
	types := feature.NoTypes
	for _, group := range s.Groups {
		if !group.Never {
			types |= group.Types
		}
	}
	return types
}

// String returns the canonical form of the selector. Parsing it again results in an equivalent selector.
func (s *Selector) String() string {
	groups := make([]string, len(s.Groups))
	for i, group := range s.Groups {
		groups[i] = group.String()
	}
	return strings.Join(groups, ",")
}

func typeLetters(types feature.TypeSet, forceOutput bool) string {
	if types == feature.AllTypes {
		if forceOutput {
			return "*"
		}
		return ""
	}

	var sb strings.Builder
	if types&feature.Nodes != 0 {
		sb.WriteRune('n')
	}
	if types&feature.NonAreaWays != 0 {
		sb.WriteRune('w')
	}
	if types&feature.Areas != 0 {
		sb.WriteRune('a')
	}
	if types&feature.NonAreaRelations != 0 {
		sb.WriteRune('r')
	}
	return sb.String()
}

func formatKey(key string) string {
	if key == "" || strings.ContainsAny(key, specialChars+"* \t\n\\") {
		return quote(key)
	}
	return key
}

func quote(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "'" + s + "'"
}
