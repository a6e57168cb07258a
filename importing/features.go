package importing

import (
	"fsq/config"
	"fsq/feature"
	"fsq/geom"
	"fsq/index"
	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"slices"
)

// featureHandler is the second pass of the import. It turns the OSM objects into features. Relations are collected
// and assembled when all objects have been read, since relations may refer to relations appearing later in the file.
type featureHandler struct {
	settings    *config.Settings
	strings     *index.StringTable
	memberNodes *roaring64.Bitmap

	coordinates map[osm.NodeID]geom.Coordinate
	nodes       map[osm.NodeID]*feature.Feature
	ways        map[osm.WayID]*feature.Feature
	relations   map[osm.RelationID]*feature.Feature
	osmRelation []*osm.Relation

	features []*feature.Feature
}

func newFeatureHandler(settings *config.Settings, strings *index.StringTable, memberNodes *roaring64.Bitmap) *featureHandler {
	return &featureHandler{
		settings:    settings,
		strings:     strings,
		memberNodes: memberNodes,
	}
}

func (h *featureHandler) Name() string {
	return "FeatureHandler"
}

func (h *featureHandler) Init() error {
	h.coordinates = map[osm.NodeID]geom.Coordinate{}
	h.nodes = map[osm.NodeID]*feature.Feature{}
	h.ways = map[osm.WayID]*feature.Feature{}
	h.relations = map[osm.RelationID]*feature.Feature{}
	h.osmRelation = nil
	h.features = nil
	return nil
}

// HandleNode creates features for tagged nodes and relation members. All other nodes are anonymous way vertices of
// which only the coordinate is kept.
func (h *featureHandler) HandleNode(node *osm.Node) error {
	coordinate := geom.FromLonLat(node.Lon, node.Lat)
	h.coordinates[node.ID] = coordinate

	if len(node.Tags) == 0 && !h.memberNodes.Contains(uint64(node.ID)) {
		return nil
	}

	f := feature.NewNode(uint64(node.ID), coordinate, feature.TagsFromMap(node.Tags.Map(), h.strings))
	h.nodes[node.ID] = f
	h.features = append(h.features, f)
	return nil
}

func (h *featureHandler) HandleWay(way *osm.Way) error {
	var nodes []feature.WayNode
	for _, wayNode := range way.Nodes {
		coordinate, ok := h.coordinates[wayNode.ID]
		if !ok {
			sigolo.Tracef("Node %d of way %d not found, skip it", wayNode.ID, way.ID)
			continue
		}

		var id uint64
		if _, isFeature := h.nodes[wayNode.ID]; isFeature {
			id = uint64(wayNode.ID)
		}
		nodes = append(nodes, feature.WayNode{ID: id, Coordinate: coordinate})
	}

	if len(nodes) < 2 {
		sigolo.Warnf("Way %d has only %d known nodes, skip it", way.ID, len(nodes))
		return nil
	}

	f := feature.NewWay(uint64(way.ID), nodes, feature.TagsFromMap(way.Tags.Map(), h.strings), h.isArea(way, nodes))
	h.ways[way.ID] = f
	h.features = append(h.features, f)
	return nil
}

// isArea determines whether a way is an area: it must be closed and either be tagged with area=yes or carry an area
// key. A way tagged with area=no is never an area.
func (h *featureHandler) isArea(way *osm.Way, nodes []feature.WayNode) bool {
	if len(nodes) < 4 || nodes[0].Coordinate != nodes[len(nodes)-1].Coordinate {
		return false
	}

	area := way.Tags.Find("area")
	if area == "yes" {
		return true
	}
	if area == "no" {
		return false
	}

	for _, tag := range way.Tags {
		if h.settings.IsAreaKey(tag.Key) && tag.Value != "no" {
			return true
		}
	}
	return false
}

func (h *featureHandler) HandleRelation(relation *osm.Relation) error {
	h.osmRelation = append(h.osmRelation, relation)
	return nil
}

func (h *featureHandler) Done() error {
	geometries := h.relationGeometries()

	for _, relation := range h.osmRelation {
		var members []feature.Member
		for _, member := range relation.Members {
			memberType, ok := featureType(member.Type)
			if !ok {
				continue
			}
			members = append(members, feature.Member{
				Ref:  feature.NewTypedID(memberType, uint64(member.Ref)),
				Role: member.Role,
			})
		}

		result := geometries[relation.ID]
		f := feature.NewRelation(uint64(relation.ID), members, feature.TagsFromMap(relation.Tags.Map(), h.strings), result.area, result.geometry)
		h.relations[relation.ID] = f
		h.features = append(h.features, f)
	}

	h.setParents()

	sigolo.Debugf("Created %d features from %d nodes, %d ways and %d relations", len(h.features), len(h.nodes), len(h.ways), len(h.relations))
	return nil
}

// setParents adds every relation to the parent list of each of its members.
func (h *featureHandler) setParents() {
	for _, relation := range h.relations {
		for _, member := range relation.Members {
			memberFeature := h.feature(member.Ref)
			if memberFeature == nil || slices.Contains(memberFeature.Parents, relation.TypedID()) {
				continue
			}
			memberFeature.Parents = append(memberFeature.Parents, relation.TypedID())
		}
	}

	for _, f := range h.features {
		slices.Sort(f.Parents)
	}
}

func (h *featureHandler) feature(id feature.TypedID) *feature.Feature {
	switch id.Type() {
	case feature.TypeNode:
		return h.nodes[osm.NodeID(id.ID())]
	case feature.TypeWay:
		return h.ways[osm.WayID(id.ID())]
	case feature.TypeRelation:
		return h.relations[osm.RelationID(id.ID())]
	}
	return nil
}

func featureType(t osm.Type) (feature.Type, bool) {
	switch t {
	case osm.TypeNode:
		return feature.TypeNode, true
	case osm.TypeWay:
		return feature.TypeWay, true
	case osm.TypeRelation:
		return feature.TypeRelation, true
	}
	return feature.TypeNode, false
}

type relationGeometry struct {
	geometry orb.Geometry
	area     bool
}

// relationGeometries creates the geometries of all relations. Multipolygons and boundaries become areas when their
// rings can be assembled, all other relations get the collection of their member geometries.
func (h *featureHandler) relationGeometries() map[osm.RelationID]relationGeometry {
	byID := map[osm.RelationID]*osm.Relation{}
	for _, relation := range h.osmRelation {
		byID[relation.ID] = relation
	}

	result := map[osm.RelationID]relationGeometry{}
	for _, relation := range h.osmRelation {
		if isAreaRelation(relation) {
			multiPolygon, err := h.assembleMultiPolygon(relation)
			if err == nil && len(multiPolygon) > 0 {
				result[relation.ID] = relationGeometry{geometry: multiPolygon, area: true}
				continue
			}
			sigolo.Warnf("Unable to assemble area of relation %d, use its member geometries instead: %v", relation.ID, err)
		}

		collection := h.collectMemberGeometries(relation, byID, roaring64.New(), nil)
		if len(collection) > 0 {
			result[relation.ID] = relationGeometry{geometry: collection}
		}
	}
	return result
}

func isAreaRelation(relation *osm.Relation) bool {
	relationType := relation.Tags.Find("type")
	return relationType == "multipolygon" || relationType == "boundary"
}

func (h *featureHandler) assembleMultiPolygon(relation *osm.Relation) (orb.MultiPolygon, error) {
	var outerLines [][]geom.Coordinate
	var innerLines [][]geom.Coordinate

	for _, member := range relation.Members {
		if member.Type != osm.TypeWay {
			continue
		}
		way, ok := h.ways[osm.WayID(member.Ref)]
		if !ok {
			sigolo.Tracef("Member way %d of relation %d not found", member.Ref, relation.ID)
			continue
		}

		coordinates := make([]geom.Coordinate, len(way.Nodes))
		for i, node := range way.Nodes {
			coordinates[i] = node.Coordinate
		}

		if member.Role == "inner" {
			innerLines = append(innerLines, coordinates)
		} else {
			outerLines = append(outerLines, coordinates)
		}
	}

	outerRings, err := geom.AssembleRings(outerLines)
	if err != nil {
		return nil, err
	}
	innerRings, err := geom.AssembleRings(innerLines)
	if err != nil {
		return nil, err
	}

	outer := make([]orb.Ring, len(outerRings))
	for i, ring := range outerRings {
		outer[i] = geom.RingOf(ring)
	}
	inner := make([]orb.Ring, len(innerRings))
	for i, ring := range innerRings {
		inner[i] = geom.RingOf(ring)
	}

	return geom.BuildMultiPolygon(outer, inner), nil
}

// collectMemberGeometries flattens the geometries of all members into one collection. Member relations are resolved
// recursively, the visited set stops cycles.
func (h *featureHandler) collectMemberGeometries(relation *osm.Relation, byID map[osm.RelationID]*osm.Relation, visited *roaring64.Bitmap, collection orb.Collection) orb.Collection {
	visited.Add(uint64(relation.ID))

	for _, member := range relation.Members {
		switch member.Type {
		case osm.TypeNode:
			if coordinate, ok := h.coordinates[osm.NodeID(member.Ref)]; ok {
				collection = append(collection, coordinate.Point())
			}
		case osm.TypeWay:
			if way, ok := h.ways[osm.WayID(member.Ref)]; ok {
				collection = append(collection, way.Geometry)
			}
		case osm.TypeRelation:
			child, ok := byID[osm.RelationID(member.Ref)]
			if !ok || visited.Contains(uint64(member.Ref)) {
				continue
			}
			collection = h.collectMemberGeometries(child, byID, visited, collection)
		}
	}

	return collection
}
