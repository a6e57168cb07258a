package match

import (
	"fmt"
	"fsq/feature"
	"fsq/parser"
	"fsq/util"
	"github.com/hauke96/sigolo/v2"
	"regexp"
	"strconv"
	"strings"
)

type Opcode int

const (
	OpFeatureType    Opcode = iota // Is the type of the feature in the type set?
	OpGlobalKey                    // Is there a tag with the global key code? Loads its value.
	OpLocalKey                     // Is there a tag with the literal key? Loads its value.
	OpLoadCode                     // Is the loaded value a global string?
	OpLoadString                   // Loads the literal text of the value. Always true.
	OpCodeToString                 // Resolves the text of the global value via the string table. Always true.
	OpStringToNumber               // Does the text start with a number? Loads the number.
	OpEqCode
	OpEqString
	OpStartsWith
	OpEndsWith
	OpContains
	OpRegex
	OpEqNumber
	OpLessThan
	OpLessEqual
	OpGreaterThan
	OpGreaterEqual
	OpGoto
	OpReturn
)

func (o Opcode) String() string {
	switch o {
	case OpFeatureType:
		return "FEATURE_TYPE"
	case OpGlobalKey:
		return "GLOBAL_KEY"
	case OpLocalKey:
		return "LOCAL_KEY"
	case OpLoadCode:
		return "LOAD_CODE"
	case OpLoadString:
		return "LOAD_STRING"
	case OpCodeToString:
		return "CODE_TO_STRING"
	case OpStringToNumber:
		return "STRING_TO_NUMBER"
	case OpEqCode:
		return "EQ_CODE"
	case OpEqString:
		return "EQ_STRING"
	case OpStartsWith:
		return "STARTS_WITH"
	case OpEndsWith:
		return "ENDS_WITH"
	case OpContains:
		return "CONTAINS"
	case OpRegex:
		return "REGEX"
	case OpEqNumber:
		return "EQ_NUMBER"
	case OpLessThan:
		return "LT"
	case OpLessEqual:
		return "LE"
	case OpGreaterThan:
		return "GT"
	case OpGreaterEqual:
		return "GE"
	case OpGoto:
		return "GOTO"
	case OpReturn:
		return "RETURN"
	}
	return fmt.Sprintf("!! INVALID OPCODE %d !!", o)
}

// isConditional is true for all instructions that evaluate a condition and jump depending on it.
func (o Opcode) isConditional() bool {
	return o != OpGoto && o != OpReturn && o != OpLoadString && o != OpCodeToString
}

// Instruction is one step of a program. Conditional instructions jump to Target when their condition differs from
// Negate and fall through otherwise.
type Instruction struct {
	Op     Opcode
	Negate bool
	Target int

	Types  feature.TypeSet // FEATURE_TYPE
	Code   int             // GLOBAL_KEY, EQ_CODE
	Text   string          // LOCAL_KEY, EQ_STRING, STARTS_WITH, ENDS_WITH, CONTAINS and the key name of GLOBAL_KEY
	Number float64         // EQ_NUMBER, LT, LE, GT, GE
	Regex  *regexp.Regexp  // REGEX
	Result bool            // RETURN
}

func (i *Instruction) String() string {
	name := i.Op.String()
	if i.Negate {
		name += "!"
	}
	fields := []string{name}

	switch i.Op {
	case OpFeatureType:
		fields = append(fields, i.Types.String())
	case OpGlobalKey, OpEqCode:
		fields = append(fields, strconv.Itoa(i.Code), strconv.Quote(i.Text))
	case OpLocalKey, OpEqString, OpStartsWith, OpEndsWith, OpContains:
		fields = append(fields, strconv.Quote(i.Text))
	case OpRegex:
		fields = append(fields, strconv.Quote(i.Regex.String()))
	case OpEqNumber, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		fields = append(fields, strconv.FormatFloat(i.Number, 'f', -1, 64))
	case OpReturn:
		fields = append(fields, strconv.FormatBool(i.Result))
	}

	if i.Op.isConditional() || i.Op == OpGoto {
		fields = append(fields, fmt.Sprintf("-> %d", i.Target))
	}
	return strings.Join(fields, " ")
}

// Program is the compiled form of one selector. It's immutable and can be used by any number of goroutines at the
// same time.
type Program struct {
	instructions []Instruction
	selector     *parser.Selector
	strings      feature.StringResolver
}

func (p *Program) Selector() *parser.Selector {
	return p.selector
}

// Types returns all feature types the program can possibly accept.
func (p *Program) Types() feature.TypeSet {
	return p.selector.Types()
}

func (p *Program) Len() int {
	return len(p.instructions)
}

// String returns the disassembly with one instruction per line.
func (p *Program) String() string {
	var sb strings.Builder
	for i := range p.instructions {
		sb.WriteString(fmt.Sprintf("%3d: %s\n", i, p.instructions[i].String()))
	}
	return sb.String()
}

// Match runs the program on the given feature. All state lives on the stack of this call.
func (p *Program) Match(f *feature.Feature) bool {
	var value feature.TagValue
	var text string
	var number float64

	trace := sigolo.ShouldLogTrace()
	pc := 0

	for {
		instruction := &p.instructions[pc]
		if trace {
			sigolo.Tracef("%s | %3d: %s", f.TypedID().String(), pc, instruction.String())
		}

		var condition bool
		switch instruction.Op {
		case OpReturn:
			return instruction.Result
		case OpGoto:
			pc = instruction.Target
			continue
		case OpLoadString:
			text = value.Text
			pc++
			continue
		case OpCodeToString:
			text = p.strings.String(value.Code)
			pc++
			continue
		case OpFeatureType:
			condition = instruction.Types.Accepts(f)
		case OpGlobalKey:
			value, condition = f.Tags.Global(instruction.Code)
		case OpLocalKey:
			value, condition = f.Tags.Local(instruction.Text)
		case OpLoadCode:
			condition = value.IsGlobal()
		case OpStringToNumber:
			number, condition = util.ParseNumber(text)
		case OpEqCode:
			condition = value.Code == instruction.Code
		case OpEqString:
			condition = text == instruction.Text
		case OpStartsWith:
			condition = strings.HasPrefix(text, instruction.Text)
		case OpEndsWith:
			condition = strings.HasSuffix(text, instruction.Text)
		case OpContains:
			condition = strings.Contains(text, instruction.Text)
		case OpRegex:
			condition = instruction.Regex.MatchString(text)
		case OpEqNumber:
			condition = number == instruction.Number
		case OpLessThan:
			condition = number < instruction.Number
		case OpLessEqual:
			condition = number <= instruction.Number
		case OpGreaterThan:
			condition = number > instruction.Number
		case OpGreaterEqual:
			condition = number >= instruction.Number
		default:
			util.LogFatalBug("Unknown opcode %d at position %d", instruction.Op, pc)
		}

		if condition != instruction.Negate {
			pc = instruction.Target
		} else {
			pc++
		}
	}
}
