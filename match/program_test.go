package match

import (
	"errors"
	"fsq/feature"
	"fsq/geom"
	"fsq/index"
	"fsq/parser"
	"fsq/util"
	"github.com/hauke96/sigolo/v2"
	"math/rand"
	"strings"
	"testing"
)

var testStrings = index.NewStringTable([]string{
	"amenity", "highway", "primary", "secondary", "residential", "yes", "maxspeed", "name", "50", "building",
})

func node(id uint64, tags map[string]string) *feature.Feature {
	return feature.NewNode(id, geom.Coordinate{X: int32(id), Y: 0}, feature.TagsFromMap(tags, testStrings))
}

func way(id uint64, area bool, tags map[string]string) *feature.Feature {
	nodes := []feature.WayNode{
		{Coordinate: geom.Coordinate{X: 0, Y: 0}},
		{Coordinate: geom.Coordinate{X: 10, Y: 0}},
		{Coordinate: geom.Coordinate{X: 10, Y: 10}},
		{Coordinate: geom.Coordinate{X: 0, Y: 0}},
	}
	return feature.NewWay(id, nodes, feature.TagsFromMap(tags, testStrings), area)
}

func relation(id uint64, tags map[string]string) *feature.Feature {
	return feature.NewRelation(id, nil, feature.TagsFromMap(tags, testStrings), false, nil)
}

func TestCompile_disassembly(t *testing.T) {
	sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)

	// Act
	program, err := Compile("n[amenity]", testStrings)

	// Assert
	util.AssertNil(t, err)
	expected := `  0: FEATURE_TYPE! nodes -> 3
  1: GLOBAL_KEY! 1 "amenity" -> 3
  2: GOTO -> 4
  3: RETURN false
  4: RETURN true
`
	util.AssertEqual(t, expected, program.String())
	util.AssertEqual(t, feature.Nodes, program.Types())
}

func TestCompile_literalNotEqualDisassembly(t *testing.T) {
	// Act
	program, err := Compile("[foo!=x]", testStrings)

	// Assert
	util.AssertNil(t, err)
	expected := `  0: LOCAL_KEY! "foo" -> 5
  1: LOAD_CODE! -> 3
  2: GOTO -> 5
  3: LOAD_STRING
  4: EQ_STRING "x" -> 6
  5: GOTO -> 7
  6: RETURN false
  7: RETURN true
`
	util.AssertEqual(t, expected, program.String())

	util.AssertTrue(t, program.Match(node(1, map[string]string{})))
	util.AssertTrue(t, program.Match(node(2, map[string]string{"foo": "y"})))
	util.AssertFalse(t, program.Match(node(3, map[string]string{"foo": "x"})))
}

func TestCompile_terminalsAtTheEnd(t *testing.T) {
	for _, selector := range []string{"n", "[a=b]", "[a=b][a=c]", "w[highway=*ary,residential],n[amenity][name~'A.*']"} {
		// Act
		program, err := Compile(selector, testStrings)

		// Assert
		util.AssertNil(t, err)
		length := program.Len()
		util.AssertEqual(t, Instruction{Op: OpReturn, Result: false}, program.instructions[length-2])
		util.AssertEqual(t, Instruction{Op: OpReturn, Result: true}, program.instructions[length-1])
		for _, instruction := range program.instructions {
			util.AssertTrue(t, instruction.Target >= 0 && instruction.Target < length)
		}
	}
}

func TestCompile_syntaxError(t *testing.T) {
	// Act
	program, err := Compile("n[amenity", testStrings)

	// Assert
	util.AssertNil(t, program)
	var syntaxError *parser.QuerySyntaxError
	util.AssertTrue(t, errors.As(err, &syntaxError))
}

func TestCompile_neverMatchingGroup(t *testing.T) {
	// Act
	program, err := Compile("[highway=primary][highway=secondary]", testStrings)

	// Assert
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, program.Len())
	util.AssertFalse(t, program.Match(way(1, false, map[string]string{"highway": "primary"})))
	util.AssertEqual(t, feature.NoTypes, program.Types())
}

func TestMatch_types(t *testing.T) {
	// Arrange
	features := []*feature.Feature{
		node(1, nil),
		way(2, false, nil),
		way(3, true, nil),
		relation(4, nil),
	}

	for selector, expected := range map[string][]bool{
		"n":    {true, false, false, false},
		"w":    {false, true, false, false},
		"a":    {false, false, true, false},
		"r":    {false, false, false, true},
		"wa":   {false, true, true, false},
		"*":    {true, true, true, true},
		"na,r": {true, false, true, true},
	} {
		program, err := Compile(selector, testStrings)
		util.AssertNil(t, err)

		for i, f := range features {
			// Act & Assert
			if program.Match(f) != expected[i] {
				sigolo.Errorf("Selector %s on feature %s should result in %v", selector, f.String(), expected[i])
				t.Fail()
			}
		}
	}
}

func TestMatch_literalFallbackWithPresenceClause(t *testing.T) {
	// Arrange
	program, err := Compile("w[highway][highway!=primary]", testStrings)
	util.AssertNil(t, err)

	// "unclassified" has no code and is therefore stored as literal value
	literal := way(1, false, map[string]string{"highway": "unclassified"})
	util.AssertFalse(t, literal.Tags.All()[0].Value.IsGlobal())

	// Act & Assert
	util.AssertTrue(t, program.Match(literal))
	util.AssertTrue(t, program.Match(way(2, false, map[string]string{"highway": "residential"})))
	util.AssertFalse(t, program.Match(way(3, false, map[string]string{"highway": "primary"})))
	util.AssertFalse(t, program.Match(way(4, false, map[string]string{"name": "primary"})))
}

func TestMatch_literalFallbackWithoutPresenceClause(t *testing.T) {
	// Arrange
	program, err := Compile("[highway!=primary,footway]", testStrings)
	util.AssertNil(t, err)

	// Act & Assert
	util.AssertTrue(t, program.Match(node(1, map[string]string{})))
	util.AssertTrue(t, program.Match(node(2, map[string]string{"highway": "unclassified"})))
	util.AssertFalse(t, program.Match(node(3, map[string]string{"highway": "footway"})))
	util.AssertFalse(t, program.Match(node(4, map[string]string{"highway": "primary"})))
}

func TestMatch_numbers(t *testing.T) {
	// Arrange
	program, err := Compile("[maxspeed>=50][maxspeed<100]", testStrings)
	util.AssertNil(t, err)

	// Act & Assert
	util.AssertTrue(t, program.Match(node(1, map[string]string{"maxspeed": "50"})))
	util.AssertTrue(t, program.Match(node(2, map[string]string{"maxspeed": "70 mph"})))
	util.AssertFalse(t, program.Match(node(3, map[string]string{"maxspeed": "100"})))
	util.AssertFalse(t, program.Match(node(4, map[string]string{"maxspeed": "none"})))
	util.AssertFalse(t, program.Match(node(5, map[string]string{"maxspeed": ""})))
	util.AssertFalse(t, program.Match(node(6, map[string]string{})))
}

func TestMatch_numericEquality(t *testing.T) {
	// Arrange
	program, err := Compile("[maxspeed=50]", testStrings)
	util.AssertNil(t, err)
	negated, err := Compile("[maxspeed!=50]", testStrings)
	util.AssertNil(t, err)

	features := []*feature.Feature{
		node(1, map[string]string{"maxspeed": "50"}),
		node(2, map[string]string{"maxspeed": "50.0"}),
		node(3, map[string]string{"maxspeed": "30"}),
		node(4, map[string]string{"maxspeed": "signals"}),
	}

	// Act & Assert
	util.AssertTrue(t, program.Match(features[0]))
	util.AssertTrue(t, program.Match(features[1]))
	util.AssertFalse(t, program.Match(features[2]))
	util.AssertFalse(t, program.Match(features[3]))

	util.AssertFalse(t, negated.Match(features[0]))
	util.AssertFalse(t, negated.Match(features[1]))
	util.AssertTrue(t, negated.Match(features[2]))
	util.AssertTrue(t, negated.Match(features[3]))
}

func TestMatch_regexAndWildcards(t *testing.T) {
	// Arrange
	program, err := Compile("[name~'Ca.*',\"(?i)pizza.*\"],[highway=*ary,residential,foot*,*link*]", testStrings)
	util.AssertNil(t, err)

	// Act & Assert
	util.AssertTrue(t, program.Match(node(1, map[string]string{"name": "Café Central"})))
	util.AssertTrue(t, program.Match(node(2, map[string]string{"name": "PIZZA place"})))
	util.AssertFalse(t, program.Match(node(3, map[string]string{"name": "the Café"})))
	util.AssertTrue(t, program.Match(way(4, false, map[string]string{"highway": "secondary"})))
	util.AssertTrue(t, program.Match(way(5, false, map[string]string{"highway": "residential"})))
	util.AssertTrue(t, program.Match(way(6, false, map[string]string{"highway": "footway"})))
	util.AssertTrue(t, program.Match(way(7, false, map[string]string{"highway": "primary_link"})))
	util.AssertFalse(t, program.Match(way(8, false, map[string]string{"highway": "service"})))
}

func TestMatch_compiledWithoutStrings(t *testing.T) {
	// Arrange
	program, err := Compile("[highway=primary][name]", nil)
	util.AssertNil(t, err)
	f := feature.NewNode(1, geom.Coordinate{}, feature.TagsFromMap(map[string]string{"highway": "primary", "name": "A"}, nil))

	// Act & Assert
	util.AssertTrue(t, program.Match(f))
}

func TestMatch_wildcardSuffixEquivalence(t *testing.T) {
	// Arrange
	features := randomFeatures(500)
	enumerated, err := Compile("w[highway=primary,secondary,tertiary,residential]", testStrings)
	util.AssertNil(t, err)
	wildcard, err := Compile("w[highway=*ary,residential]", testStrings)
	util.AssertNil(t, err)

	// Act
	enumeratedCount := countMatches(enumerated, features)
	wildcardCount := countMatches(wildcard, features)

	// Assert
	util.AssertTrue(t, enumeratedCount > 0)
	util.AssertEqual(t, enumeratedCount, wildcardCount)
}

func TestMatch_deMorganOnKeys(t *testing.T) {
	// Arrange
	features := randomFeatures(500)

	for _, testCase := range []struct{ all, with, without string }{
		{"*", "[highway]", "[!highway]"},
		{"w", "w[foo]", "w[!foo]"},
		{"na[name]", "na[name][maxspeed]", "na[name][!maxspeed]"},
	} {
		all, err := Compile(testCase.all, testStrings)
		util.AssertNil(t, err)
		with, err := Compile(testCase.with, testStrings)
		util.AssertNil(t, err)
		without, err := Compile(testCase.without, testStrings)
		util.AssertNil(t, err)

		// Act & Assert
		util.AssertEqual(t, countMatches(all, features), countMatches(with, features)+countMatches(without, features))
	}
}

// TestMatch_sameAsReferenceEvaluation compares the programs with a direct evaluation of the syntax tree.
func TestMatch_sameAsReferenceEvaluation(t *testing.T) {
	// Arrange
	features := randomFeatures(400)
	selectors := []string{
		"*",
		"n",
		"wa",
		"[highway]",
		"[!highway]",
		"[highway=primary]",
		"[highway=tertiary]",
		"[highway=primary,tertiary,unknown]",
		"[highway!=primary]",
		"[highway!=tertiary,service]",
		"[highway][highway!=primary]",
		"[highway][highway!=tertiary]",
		"[highway=*ary]",
		"[highway=prim*,*link]",
		"[highway=*ar*]",
		"[highway=p*y]",
		"[highway!=*ary]",
		"[highway=residential,*ary][highway!=secondary]",
		"[maxspeed>30]",
		"[maxspeed<=50]",
		"[maxspeed=50]",
		"[maxspeed!=50]",
		"[maxspeed=50,abc]",
		"[maxspeed=50,*mph]",
		"[maxspeed>=30][maxspeed<60]",
		"[name~'C.*']",
		"[name!~'.*e.*']",
		"[name~'(?i)café']",
		"[foo]",
		"[foo=yes]",
		"[foo!=yes,no]",
		"[!foo][highway]",
		"[!foo][foo!=yes]",
		"n[highway=primary],w[highway!=secondary][name],a[foo]",
		"r[maxspeed>10],[name=Café]",
		"[highway=primary][highway=primary,secondary]",
		"[highway=primary][highway=secondary]",
		"[foo][!foo]",
	}

	for _, selector := range selectors {
		parsed, err := parser.Parse(selector)
		util.AssertNil(t, err)
		program := CompileSelector(parsed, testStrings)

		for _, f := range features {
			// Act
			actual := program.Match(f)
			expected := referenceMatch(parsed, f)

			// Assert
			if actual != expected {
				sigolo.Errorf("Selector %s on feature %s with tags %v: expected %v but was %v", selector, f.String(), f.Tags.ToMap(), expected, actual)
				sigolo.Errorf("Program:\n%s", program.String())
				t.FailNow()
			}
		}
	}
}

func countMatches(program *Program, features []*feature.Feature) int {
	count := 0
	for _, f := range features {
		if program.Match(f) {
			count++
		}
	}
	return count
}

// randomFeatures creates features of all types with random tags. The generator is seeded, so the features are the
// same on each run.
func randomFeatures(count int) []*feature.Feature {
	random := rand.New(rand.NewSource(42))
	keys := []string{"highway", "maxspeed", "name", "foo", "building"}
	values := map[string][]string{
		"highway":  {"primary", "secondary", "tertiary", "residential", "service", "primary_link", "footway"},
		"maxspeed": {"50", "30", "50.0", "70 mph", "none", "", "-5", "abc"},
		"name":     {"Café", "Central", "foo", "yes", "CAFÉ"},
		"foo":      {"yes", "no", "maybe"},
		"building": {"yes"},
	}

	var features []*feature.Feature
	for i := 0; i < count; i++ {
		tags := map[string]string{}
		for _, key := range keys {
			if random.Intn(2) == 0 {
				keyValues := values[key]
				tags[key] = keyValues[random.Intn(len(keyValues))]
			}
		}

		id := uint64(i + 1)
		switch random.Intn(4) {
		case 0:
			features = append(features, node(id, tags))
		case 1:
			features = append(features, way(id, false, tags))
		case 2:
			features = append(features, way(id, true, tags))
		default:
			features = append(features, relation(id, tags))
		}
	}
	return features
}

func referenceMatch(selector *parser.Selector, f *feature.Feature) bool {
	for _, group := range selector.Groups {
		if group.Never || !group.Types.Accepts(f) {
			continue
		}

		allMatch := true
		for _, clause := range group.Clauses {
			if !referenceClause(clause, f) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}

func referenceClause(clause *parser.Clause, f *feature.Feature) bool {
	value, ok := f.Tags.Get(clause.Key)

	anyOperand := func() bool {
		for _, operand := range clause.Operands {
			if referenceOperand(clause.Operator, operand, value) {
				return true
			}
		}
		return false
	}

	switch clause.Operator {
	case parser.OperatorExists:
		return ok
	case parser.OperatorNotExists:
		return !ok
	case parser.OperatorNotEqual, parser.OperatorNotMatch:
		return !ok || !anyOperand()
	}
	return ok && anyOperand()
}

func referenceOperand(operator parser.Operator, operand *parser.Operand, value string) bool {
	switch operand.Kind {
	case parser.OperandExact:
		return value == operand.Text
	case parser.OperandPrefix:
		return strings.HasPrefix(value, operand.Text)
	case parser.OperandSuffix:
		return strings.HasSuffix(value, operand.Text)
	case parser.OperandContains:
		return strings.Contains(value, operand.Text)
	case parser.OperandPattern, parser.OperandRegex:
		return operand.Regex.MatchString(value)
	}

	number, ok := util.ParseNumber(value)
	if !ok {
		return false
	}
	switch operator {
	case parser.OperatorLess:
		return number < operand.Number
	case parser.OperatorLessEqual:
		return number <= operand.Number
	case parser.OperatorGreater:
		return number > operand.Number
	case parser.OperatorGreaterEqual:
		return number >= operand.Number
	}
	return number == operand.Number
}
