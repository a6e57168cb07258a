package feature

import (
	"fmt"
	"fsq/geom"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// WayNode is a vertex of a way. Vertices without tags and without relation membership are anonymous and have ID 0.
type WayNode struct {
	ID         uint64
	Coordinate geom.Coordinate
}

type Member struct {
	Ref  TypedID
	Role string
}

// Feature is a node, way or relation. Which of the type specific fields are used depends on the Type field:
// Coordinate for nodes, Nodes for ways and Members for relations. The Geometry is in projected units and the Bounds
// always cover it.
type Feature struct {
	Type Type
	ID   uint64
	Area bool
	Tags Tags

	Coordinate geom.Coordinate
	Nodes      []WayNode
	Members    []Member

	// Relations this feature is a member of.
	Parents []TypedID

	Geometry orb.Geometry
	Bounds   geom.Box
}

func NewNode(id uint64, coordinate geom.Coordinate, tags Tags) *Feature {
	return &Feature{
		Type:       TypeNode,
		ID:         id,
		Tags:       tags,
		Coordinate: coordinate,
		Geometry:   coordinate.Point(),
		Bounds:     geom.BoxOf(coordinate),
	}
}

// AnonymousNode creates the feature of an untagged way vertex.
func AnonymousNode(coordinate geom.Coordinate) *Feature {
	return NewNode(0, coordinate, Tags{})
}

// NewWay creates a way whose geometry is a line string or, when it's an area, a polygon. Areas must be closed.
func NewWay(id uint64, nodes []WayNode, tags Tags, area bool) *Feature {
	coordinates := make([]geom.Coordinate, len(nodes))
	bounds := geom.EmptyBox()
	for i, node := range nodes {
		coordinates[i] = node.Coordinate
		bounds = bounds.ExpandToInclude(node.Coordinate)
	}

	var geometry orb.Geometry
	if area {
		geometry = geom.BuildMultiPolygon([]orb.Ring{geom.RingOf(coordinates)}, nil)[0]
	} else {
		geometry = geom.LineStringOf(coordinates)
	}

	return &Feature{
		Type:     TypeWay,
		ID:       id,
		Area:     area,
		Tags:     tags,
		Nodes:    nodes,
		Geometry: geometry,
		Bounds:   bounds,
	}
}

// NewRelation creates a relation with the given, already assembled, geometry.
func NewRelation(id uint64, members []Member, tags Tags, area bool, geometry orb.Geometry) *Feature {
	bounds := geom.EmptyBox()
	if geometry != nil {
		bounds = geom.BoxFromBound(geometry.Bound())
	}

	return &Feature{
		Type:     TypeRelation,
		ID:       id,
		Area:     area,
		Tags:     tags,
		Members:  members,
		Geometry: geometry,
		Bounds:   bounds,
	}
}

func (f *Feature) IsNode() bool {
	return f.Type == TypeNode
}

func (f *Feature) IsWay() bool {
	return f.Type == TypeWay
}

func (f *Feature) IsRelation() bool {
	return f.Type == TypeRelation
}

func (f *Feature) IsArea() bool {
	return f.Area
}

func (f *Feature) IsAnonymous() bool {
	return f.Type == TypeNode && f.ID == 0
}

func (f *Feature) TypedID() TypedID {
	return NewTypedID(f.Type, f.ID)
}

// Length is the length of linear features in projected units. Areas return the length of their boundary, nodes 0.
func (f *Feature) Length() float64 {
	if f.Geometry == nil || f.IsNode() {
		return 0
	}
	return planar.Length(f.Geometry)
}

// AreaSize returns the area in square projected units, which is 0 for everything that isn't an area.
func (f *Feature) AreaSize() float64 {
	if !f.Area || f.Geometry == nil {
		return 0
	}
	area := planar.Area(f.Geometry)
	if area < 0 {
		return -area
	}
	return area
}

// IsClosed returns true for ways whose first and last node are the same.
func (f *Feature) IsClosed() bool {
	if !f.IsWay() || len(f.Nodes) < 2 {
		return false
	}
	first := f.Nodes[0]
	last := f.Nodes[len(f.Nodes)-1]
	return first.Coordinate == last.Coordinate && first.ID == last.ID
}

func (f *Feature) String() string {
	if f.IsAnonymous() {
		return fmt.Sprintf("anonymous node at %s", f.Coordinate.String())
	}
	return f.TypedID().String()
}

func (f *Feature) Print() {
	if !sigolo.ShouldLogTrace() {
		return
	}

	sigolo.Tracef("Feature %s: area=%t, bounds=%s", f.String(), f.Area, f.Bounds.String())
	for _, tag := range f.Tags.All() {
		sigolo.Tracef("  %s=%s (key code %d, value code %d)", tag.Key, tag.Value.Text, tag.KeyCode, tag.Value.Code)
	}
	for _, parent := range f.Parents {
		sigolo.Tracef("  member of %s", parent.String())
	}
}
