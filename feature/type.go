package feature

import (
	"fmt"
	"strings"
)

type Type int

const (
	TypeNode Type = iota
	TypeWay
	TypeRelation
)

func (t Type) String() string {
	switch t {
	case TypeNode:
		return "node"
	case TypeWay:
		return "way"
	case TypeRelation:
		return "relation"
	}
	return fmt.Sprintf("[!UNKNOWN Type %d]", int(t))
}

// Letter returns the abbreviation used in typed IDs like "w123".
func (t Type) Letter() string {
	switch t {
	case TypeNode:
		return "n"
	case TypeWay:
		return "w"
	case TypeRelation:
		return "r"
	}
	return "?"
}

// TypedID identifies a feature across all types. The type lives in the lowest two bits.
type TypedID uint64

func NewTypedID(t Type, id uint64) TypedID {
	return TypedID(id<<2 | uint64(t))
}

func (i TypedID) Type() Type {
	return Type(i & 3)
}

func (i TypedID) ID() uint64 {
	return uint64(i >> 2)
}

func (i TypedID) String() string {
	return fmt.Sprintf("%s%d", i.Type().Letter(), i.ID())
}

// TypeSet is a bitmask over the five structural kinds of features. Areas are split by their underlying type so that
// "a" (all areas) and "w" (ways that are not areas) can be expressed.
type TypeSet uint8

const (
	Nodes TypeSet = 1 << iota
	NonAreaWays
	AreaWays
	NonAreaRelations
	AreaRelations

	Ways      = NonAreaWays | AreaWays
	Relations = NonAreaRelations | AreaRelations
	Areas     = AreaWays | AreaRelations
	AllTypes  = Nodes | Ways | Relations
	NoTypes   = TypeSet(0)
)

// TypeSetOfLetter maps the selector type letters to their type sets: n=nodes, w=ways that are no areas, a=areas
// (ways and relations), r=relations that are no areas. The boolean is false for unknown letters.
func TypeSetOfLetter(letter rune) (TypeSet, bool) {
	switch letter {
	case 'n':
		return Nodes, true
	case 'w':
		return NonAreaWays, true
	case 'a':
		return Areas, true
	case 'r':
		return NonAreaRelations, true
	case '*':
		return AllTypes, true
	}
	return NoTypes, false
}

// TypeSetOf returns the single flag describing the given feature.
func TypeSetOf(f *Feature) TypeSet {
	switch f.Type {
	case TypeNode:
		return Nodes
	case TypeWay:
		if f.Area {
			return AreaWays
		}
		return NonAreaWays
	case TypeRelation:
		if f.Area {
			return AreaRelations
		}
		return NonAreaRelations
	}
	return NoTypes
}

func (s TypeSet) Accepts(f *Feature) bool {
	return s&TypeSetOf(f) != 0
}

func (s TypeSet) Contains(other TypeSet) bool {
	return s&other == other
}

func (s TypeSet) Intersects(other TypeSet) bool {
	return s&other != 0
}

func (s TypeSet) IsEmpty() bool {
	return s == NoTypes
}

func (s TypeSet) String() string {
	if s == AllTypes {
		return "all"
	}
	if s == NoTypes {
		return "none"
	}

	var names []string
	for _, entry := range []struct {
		flag TypeSet
		name string
	}{
		{Nodes, "nodes"},
		{NonAreaWays, "ways"},
		{AreaWays, "area-ways"},
		{NonAreaRelations, "relations"},
		{AreaRelations, "area-relations"},
	} {
		if s&entry.flag != 0 {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, "|")
}
