package match

import (
	"fsq/feature"
	"fsq/parser"
	"fsq/util"
	"github.com/hauke96/sigolo/v2"
	"time"
)

type label int

// assembler collects instructions whose jump targets are labels. The labels are replaced by instruction positions
// once the whole program has been emitted.
type assembler struct {
	instructions []Instruction
	targets      []label // Jump label of each instruction, -1 for instructions without a target
	labels       []int   // Position of each label, -1 until marked
}

func (a *assembler) newLabel() label {
	a.labels = append(a.labels, -1)
	return label(len(a.labels) - 1)
}

// mark places the label at the position of the next emitted instruction.
func (a *assembler) mark(l label) {
	a.labels[l] = len(a.instructions)
}

func (a *assembler) emit(instruction Instruction) {
	a.instructions = append(a.instructions, instruction)
	a.targets = append(a.targets, -1)
}

func (a *assembler) emitJump(instruction Instruction, target label) {
	a.instructions = append(a.instructions, instruction)
	a.targets = append(a.targets, target)
}

func (a *assembler) emitGoto(target label) {
	a.emitJump(Instruction{Op: OpGoto}, target)
}

func (a *assembler) resolve() []Instruction {
	for i, target := range a.targets {
		if target < 0 {
			continue
		}
		position := a.labels[target]
		if position < 0 {
			util.LogFatalBug("Label %d of instruction %d has never been marked", target, i)
		}
		a.instructions[i].Target = position
	}
	return a.instructions
}

type compiler struct {
	assembler
	strings   feature.StringResolver
	trueExit  label
	falseExit label
}

// noStrings is used when a program is compiled without string table. All keys and values are then literals.
type noStrings struct{}

func (noStrings) Code(string) int   { return 0 }
func (noStrings) String(int) string { return "" }

// Compile parses the selector and compiles it against the given string table.
func Compile(selector string, strings feature.StringResolver) (*Program, error) {
	parsedSelector, err := parser.Parse(selector)
	if err != nil {
		return nil, err
	}
	return CompileSelector(parsedSelector, strings), nil
}

// CompileSelector turns the selector into a program. Groups are tried in order, the first group matching a feature
// returns true. Keys and values unknown to the string table are compiled into literal comparisons.
func CompileSelector(selector *parser.Selector, strings feature.StringResolver) *Program {
	startTime := time.Now()
	if strings == nil {
		strings = noStrings{}
	}

	c := &compiler{strings: strings}
	c.trueExit = c.newLabel()
	c.falseExit = c.newLabel()

	var groups []*parser.Group
	for _, group := range selector.Groups {
		if group.Never {
			sigolo.Debugf("Skip group %q since it can never match", group.String())
			continue
		}
		groups = append(groups, group)
	}

	for i, group := range groups {
		fail := c.falseExit
		if i < len(groups)-1 {
			fail = c.newLabel()
		}
		c.compileGroup(group, fail)
		if fail != c.falseExit {
			c.mark(fail)
		}
	}

	c.mark(c.falseExit)
	c.emit(Instruction{Op: OpReturn, Result: false})
	c.mark(c.trueExit)
	c.emit(Instruction{Op: OpReturn, Result: true})

	program := &Program{
		instructions: c.resolve(),
		selector:     selector,
		strings:      strings,
	}

	sigolo.Debugf("Compiled selector %q into %d instructions in %s", util.LogTruncated(selector.String(), 100), program.Len(), time.Since(startTime))
	if sigolo.ShouldLogTrace() {
		sigolo.Tracef("Program:\n%s", program.String())
	}
	return program
}

func (c *compiler) compileGroup(group *parser.Group, fail label) {
	if group.Types != feature.AllTypes {
		c.emitJump(Instruction{Op: OpFeatureType, Negate: true, Types: group.Types}, fail)
	}

	for _, key := range group.Keys() {
		c.compileKey(key, group.ClausesOfKey(key), fail)
	}

	c.emitGoto(c.trueExit)
}

// compileKey emits one lookup of the key followed by the tests of all clauses on this key. The value loaded by the
// lookup is shared by these tests.
func (c *compiler) compileKey(key string, clauses []*parser.Clause, fail label) {
	forbidden := false
	required := false
	for _, clause := range clauses {
		if clause.Operator == parser.OperatorNotExists {
			forbidden = true
		} else if !clause.Operator.IsNegative() {
			required = true
		}
	}

	lookup := Instruction{Op: OpLocalKey, Text: key}
	if code := c.strings.Code(key); code > 0 {
		lookup = Instruction{Op: OpGlobalKey, Code: code, Text: key}
	}

	if forbidden {
		// All other clauses on this key are either contradictions, which the parser already turned into a never
		// matching group, or negative clauses that are satisfied anyway when the key is missing.
		c.emitJump(lookup, fail)
		return
	}

	if required {
		lookup.Negate = true
		c.emitJump(lookup, fail)
		for _, clause := range clauses {
			c.compileClause(clause, fail)
		}
		return
	}

	// Only negative clauses: a feature without the key satisfies them all.
	blockEnd := c.newLabel()
	lookup.Negate = true
	c.emitJump(lookup, blockEnd)
	for _, clause := range clauses {
		c.compileClause(clause, fail)
	}
	c.mark(blockEnd)
}

// compileClause emits the value tests of one clause. Each clause has its own literal path, so a value without code is
// always compared as text and its outcome only depends on this clause.
func (c *compiler) compileClause(clause *parser.Clause, fail label) {
	if clause.Operator == parser.OperatorExists {
		return
	}

	next := c.newLabel()
	hit, miss := next, fail
	if clause.Operator.IsNegative() {
		hit, miss = fail, next
	}

	var exactTexts []string
	var codes []int
	var stringTests []Instruction
	var numberTests []Instruction

	for _, operand := range clause.Operands {
		switch operand.Kind {
		case parser.OperandExact:
			exactTexts = append(exactTexts, operand.Text)
			if code := c.strings.Code(operand.Text); code > 0 {
				codes = append(codes, code)
			}
		case parser.OperandPrefix:
			stringTests = append(stringTests, Instruction{Op: OpStartsWith, Text: operand.Text})
		case parser.OperandSuffix:
			stringTests = append(stringTests, Instruction{Op: OpEndsWith, Text: operand.Text})
		case parser.OperandContains:
			stringTests = append(stringTests, Instruction{Op: OpContains, Text: operand.Text})
		case parser.OperandPattern, parser.OperandRegex:
			stringTests = append(stringTests, Instruction{Op: OpRegex, Regex: operand.Regex})
		case parser.OperandNumber:
			numberTests = append(numberTests, Instruction{Op: numberOpcode(clause.Operator), Number: operand.Number})
		default:
			util.LogFatalBug("Unknown operand kind %d in clause %s", operand.Kind, clause.String())
		}
	}

	needsText := len(stringTests) > 0 || len(numberTests) > 0
	textTests := c.newLabel()

	if len(exactTexts) > 0 {
		literal := c.newLabel()

		// Global value: compare codes, an operand without code can never equal a global value.
		c.emitJump(Instruction{Op: OpLoadCode, Negate: true}, literal)
		for _, code := range codes {
			c.emitJump(Instruction{Op: OpEqCode, Code: code, Text: c.strings.String(code)}, hit)
		}
		if needsText {
			c.emit(Instruction{Op: OpCodeToString})
			c.emitGoto(textTests)
		} else {
			c.emitGoto(miss)
		}

		// Literal value: compare the text with every exact operand.
		c.mark(literal)
		c.emit(Instruction{Op: OpLoadString})
		for _, text := range exactTexts {
			c.emitJump(Instruction{Op: OpEqString, Text: text}, hit)
		}
	} else {
		c.emit(Instruction{Op: OpLoadString})
	}

	c.mark(textTests)
	for _, test := range stringTests {
		c.emitJump(test, hit)
	}
	if len(numberTests) > 0 {
		c.emitJump(Instruction{Op: OpStringToNumber, Negate: true}, miss)
		for _, test := range numberTests {
			c.emitJump(test, hit)
		}
	}

	if miss != next {
		c.emitGoto(miss)
	}
	c.mark(next)
}

func numberOpcode(operator parser.Operator) Opcode {
	switch operator {
	case parser.OperatorLess:
		return OpLessThan
	case parser.OperatorLessEqual:
		return OpLessEqual
	case parser.OperatorGreater:
		return OpGreaterThan
	case parser.OperatorGreaterEqual:
		return OpGreaterEqual
	}
	return OpEqNumber
}
