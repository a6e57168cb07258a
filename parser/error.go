package parser

import (
	"fmt"
	"runtime"
	"strings"
)

type stack *[]uintptr

// getCurrentStack creates a new stack without the last three frames, because they are from the internal calls (e.g. to
// this function) and therefore irrelevant to the function creating the error.
func getCurrentStack() stack {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	var st = pcs[0:n]
	return &st
}

func getPrintableStackTrace(stack stack) string {
	var sb strings.Builder

	for _, pc := range *stack {
		f := runtime.FuncForPC(pc)
		file, line := f.FileLine(pc)
		sb.WriteString(fmt.Sprintf("%s\n\t%s:%d\n", f.Name(), file, line))
	}

	return sb.String()
}

// QuerySyntaxError is returned for malformed selectors. The offset is the position of the offending character, counted
// in runes.
type QuerySyntaxError struct {
	Message  string `json:"message"`
	Offset   int    `json:"offset"`
	Selector string `json:"selector"`
	stack    stack
}

func newQuerySyntaxError(input []rune, offset int, format string, args ...any) *QuerySyntaxError {
	return &QuerySyntaxError{
		Message:  fmt.Sprintf(format, args...),
		Offset:   offset,
		Selector: string(input),
		stack:    getCurrentStack(),
	}
}

func (e *QuerySyntaxError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		fmt.Fprintf(s, "%s\n%s", e.Error(), getPrintableStackTrace(e.stack))
	case 's':
		fmt.Fprintf(s, "%s", e.Error())
	}
}

func (e *QuerySyntaxError) Error() string {
	return fmt.Sprintf("Syntax error at offset %d: %s", e.Offset, e.Message)
}

// Pointer returns the selector and, in a second line, a marker below the offending character.
func (e *QuerySyntaxError) Pointer() string {
	return e.Selector + "\n" + strings.Repeat(" ", e.Offset) + "^"
}
