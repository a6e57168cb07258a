package index

import (
	"bufio"
	"bytes"
	"github.com/hauke96/sigolo/v2"
	"github.com/pkg/errors"
	"io"
	"os"
	"path"
	"sort"
	"strings"
)

const StringTableFilename = "strings"

// StringTable is the global code table of a store. Codes start at 1, code 0 means "no global string". The table is
// built once when the store is created and never changes afterward, therefore it can be read concurrently.
type StringTable struct {
	strings []string       // Code i is at position i-1
	codes   map[string]int // Helper map: string -> code
}

func NewStringTable(strings []string) *StringTable {
	table := &StringTable{
		codes: map[string]int{},
	}
	for _, s := range strings {
		if _, ok := table.codes[s]; ok {
			continue
		}
		table.strings = append(table.strings, s)
		table.codes[s] = len(table.strings)
	}
	return table
}

// Code returns the code of the given string or 0 if it's not a global string.
func (t *StringTable) Code(s string) int {
	return t.codes[s]
}

// String returns the string of the given code or "" for unknown codes.
func (t *StringTable) String(code int) string {
	if code <= 0 || code > len(t.strings) {
		return ""
	}
	return t.strings[code-1]
}

func (t *StringTable) Len() int {
	return len(t.strings)
}

func LoadStringTable(baseFolder string) (*StringTable, error) {
	filepath := path.Join(baseFolder, StringTableFilename)
	file, err := os.Open(filepath)
	if err != nil {
		return nil, errors.Wrapf(err, "Unable to open string table %s", filepath)
	}
	defer file.Close()

	var entries []string

	reader := bufio.NewReader(file)
	nextLinePartBytes, isPrefix, err := reader.ReadLine()
	for err == nil {
		lineBytes := make([]byte, len(nextLinePartBytes))
		copy(lineBytes, nextLinePartBytes)

		// Long lines are returned in several parts.
		for isPrefix && err == nil {
			nextLinePartBytes, isPrefix, err = reader.ReadLine()
			lineBytes = append(lineBytes, nextLinePartBytes...)
		}

		entries = append(entries, unescapeLine(string(lineBytes)))
		nextLinePartBytes, isPrefix, err = reader.ReadLine()
	}
	if err != io.EOF {
		return nil, errors.Wrapf(err, "Error while reading string table %s", filepath)
	}

	sigolo.Debugf("Loaded string table with %d entries", len(entries))
	table := NewStringTable(entries)
	table.Print()

	return table, nil
}

func (t *StringTable) SaveToFile(baseFolder string) error {
	err := os.MkdirAll(baseFolder, os.ModePerm)
	if err != nil {
		return errors.Wrapf(err, "Unable to create folder %s", baseFolder)
	}

	filepath := path.Join(baseFolder, StringTableFilename)
	f, err := os.Create(filepath)
	if err != nil {
		return errors.Wrapf(err, "Unable to create string table file %s", filepath)
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	err = t.WriteAsString(writer)
	if err != nil {
		return err
	}
	return errors.Wrapf(writer.Flush(), "Unable to flush string table %s", filepath)
}

// WriteAsString writes one string per line in code order.
func (t *StringTable) WriteAsString(w io.Writer) error {
	for _, s := range t.strings {
		_, err := w.Write([]byte(escapeLine(s) + "\n"))
		if err != nil {
			return errors.Wrap(err, "Unable to write string table")
		}
	}
	return nil
}

func (t *StringTable) Print() {
	if !sigolo.ShouldLogTrace() {
		return
	}
	buffer := bytes.NewBuffer([]byte{})
	err := t.WriteAsString(buffer)
	if err == nil {
		sigolo.Tracef("String table:\n%s", buffer.String())
	} else {
		sigolo.Tracef("Error writing string table to string: %+v", err)
	}
}

func escapeLine(s string) string {
	s = strings.ReplaceAll(s, "\n", "$$NEWLINE$$")
	return strings.ReplaceAll(s, "\r", "$$RETURN$$")
}

func unescapeLine(s string) string {
	s = strings.ReplaceAll(s, "$$NEWLINE$$", "\n")
	return strings.ReplaceAll(s, "$$RETURN$$", "\r")
}

// StringStatistics counts how often keys and values are used. The most common strings become the global strings of
// the string table.
type StringStatistics struct {
	counts map[string]int
}

func NewStringStatistics() *StringStatistics {
	return &StringStatistics{counts: map[string]int{}}
}

func (s *StringStatistics) Add(str string) {
	s.counts[str]++
}

// Build creates a string table of at most maxStrings entries that were used at least minUsage times. More common
// strings get lower codes, ties are ordered alphabetically.
func (s *StringStatistics) Build(minUsage int, maxStrings int) *StringTable {
	var candidates []string
	for str, count := range s.counts {
		if count >= minUsage {
			candidates = append(candidates, str)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		ci := s.counts[candidates[i]]
		cj := s.counts[candidates[j]]
		if ci != cj {
			return ci > cj
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > maxStrings {
		candidates = candidates[:maxStrings]
	}

	sigolo.Debugf("Built string table with %d of %d distinct strings", len(candidates), len(s.counts))
	return NewStringTable(candidates)
}
