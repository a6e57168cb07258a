package query

import (
	"fmt"
	"fsq/feature"
	"fsq/filter"
	"fsq/geom"
	"fsq/index"
	"fsq/match"
	"github.com/hauke96/sigolo/v2"
	"strings"
)

type Settings struct {
	Workers          int // Number of tiles processed in parallel by Count
	ProgramCacheSize int
}

var DefaultSettings = Settings{
	Workers:          4,
	ProgramCacheSize: 256,
}

type combination int

const (
	combinationNone combination = iota
	combinationAnd
	combinationOr
	combinationMinus
)

func (c combination) String() string {
	switch c {
	case combinationAnd:
		return "AND"
	case combinationOr:
		return "OR"
	case combinationMinus:
		return "MINUS"
	}
	return "NONE"
}

// viewContext is shared by all views derived from the same NewView call.
type viewContext struct {
	store    index.FeatureStore
	programs *match.Cache
	settings Settings
}

// View describes a set of features of a store without fetching them. All methods deriving a new view leave the
// original view untouched, so views can be shared by goroutines. Iterating a view fetches the tiles on demand.
type View struct {
	context *viewContext

	// Filter chain of plain views
	types    feature.TypeSet
	programs []*match.Program
	filters  []filter.Filter
	box      geom.Box
	tiles    []geom.Tile // nil means all tiles of the store

	// Combined views
	combination combination
	left        *View
	right       *View
}

// NewView returns the view of all features of the store.
func NewView(store index.FeatureStore, settings Settings) *View {
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	return &View{
		context: &viewContext{
			store:    store,
			programs: match.NewCache(store.Strings(), settings.ProgramCacheSize),
			settings: settings,
		},
		types: feature.AllTypes,
		box:   geom.WorldBox(),
	}
}

func (v *View) Store() index.FeatureStore {
	return v.context.store
}

func (v *View) isPlain() bool {
	return v.combination == combinationNone
}

func (v *View) copyPlain() *View {
	return &View{
		context:  v.context,
		types:    v.types,
		programs: append([]*match.Program{}, v.programs...),
		filters:  append([]filter.Filter{}, v.filters...),
		box:      v.box,
		tiles:    v.tiles,
	}
}

func (v *View) all() *View {
	return &View{
		context: v.context,
		types:   feature.AllTypes,
		box:     geom.WorldBox(),
	}
}

// extend returns a plain view whose filter chain can be modified. For combined views this is a new plain view that
// gets ANDed with the combination.
func (v *View) extend(modify func(plain *View)) *View {
	if v.isPlain() {
		result := v.copyPlain()
		modify(result)
		return result
	}

	plain := v.all()
	modify(plain)
	return v.And(plain)
}

// Filter restricts the view to features matching the selector.
func (v *View) Filter(selector string) (*View, error) {
	program, err := v.context.programs.Get(selector)
	if err != nil {
		return nil, err
	}
	return v.Matching(program), nil
}

// Matching restricts the view to features the program accepts.
func (v *View) Matching(program *match.Program) *View {
	return v.extend(func(plain *View) {
		plain.programs = append(plain.programs, program)
	})
}

// Types restricts the view to the given feature types.
func (v *View) Types(types feature.TypeSet) *View {
	return v.extend(func(plain *View) {
		plain.types &= types
	})
}

// In restricts the view to features whose bounding box intersects the given box.
func (v *View) In(box geom.Box) *View {
	return v.extend(func(plain *View) {
		plain.box = plain.box.Intersection(box)
	})
}

// Tiles restricts the view to features owned by the given tiles.
func (v *View) Tiles(tiles ...geom.Tile) *View {
	return v.extend(func(plain *View) {
		plain.tiles = intersectTiles(plain.tiles, tiles)
	})
}

// Where restricts the view to features accepted by the spatial filter. A TypeMismatchError is returned when the
// filter can't accept any of the types of this view.
func (v *View) Where(f filter.Filter) (*View, error) {
	if err := filter.Check(f, v.EffectiveTypes()); err != nil {
		return nil, err
	}
	return v.extend(func(plain *View) {
		plain.filters = append(plain.filters, f)
	}), nil
}

func (v *View) whereOrError(f filter.Filter, err error) (*View, error) {
	if err != nil {
		return nil, err
	}
	return v.Where(f)
}

func (v *View) Intersects(ref *feature.Feature) (*View, error) {
	return v.whereOrError(filter.Intersects(ref))
}

func (v *View) Within(ref *feature.Feature) (*View, error) {
	return v.whereOrError(filter.Within(ref))
}

func (v *View) Contains(ref *feature.Feature) (*View, error) {
	return v.whereOrError(filter.Contains(ref))
}

func (v *View) Containing(coordinate geom.Coordinate) (*View, error) {
	return v.Where(filter.Containing(coordinate))
}

func (v *View) Crosses(ref *feature.Feature) (*View, error) {
	return v.whereOrError(filter.Crosses(ref))
}

func (v *View) ConnectedTo(refs ...*feature.Feature) (*View, error) {
	return v.whereOrError(filter.ConnectedTo(v.context.store, refs...))
}

func (v *View) Around(ref *feature.Feature, meters float64) (*View, error) {
	return v.whereOrError(filter.Around(ref, meters))
}

// And returns the view of all features in both views. Two plain views are merged into one filter chain.
func (v *View) And(other *View) *View {
	if v.isPlain() && other.isPlain() {
		result := v.copyPlain()
		result.types &= other.types
		result.programs = append(result.programs, other.programs...)
		result.filters = append(result.filters, other.filters...)
		result.box = result.box.Intersection(other.box)
		result.tiles = intersectTiles(result.tiles, other.tiles)
		return result
	}
	return v.combine(combinationAnd, other)
}

// Or returns the view of all features in at least one of the views. Features of this view come first.
func (v *View) Or(other *View) *View {
	return v.combine(combinationOr, other)
}

// Minus returns the view of all features in this view but not in the other one.
func (v *View) Minus(other *View) *View {
	return v.combine(combinationMinus, other)
}

func (v *View) combine(c combination, other *View) *View {
	return &View{
		context:     v.context,
		types:       feature.AllTypes,
		box:         geom.WorldBox(),
		combination: c,
		left:        v,
		right:       other,
	}
}

// EffectiveTypes returns the types a feature of this view can possibly have.
func (v *View) EffectiveTypes() feature.TypeSet {
	switch v.combination {
	case combinationAnd:
		return v.left.EffectiveTypes() & v.right.EffectiveTypes()
	case combinationOr:
		return v.left.EffectiveTypes() | v.right.EffectiveTypes()
	case combinationMinus:
		return v.left.EffectiveTypes()
	}

	types := v.types
	for _, program := range v.programs {
		types &= program.Types()
	}
	for _, f := range v.filters {
		types &= f.AcceptedTypes()
	}
	return types
}

// bounds returns the box all features of this view intersect.
func (v *View) bounds() geom.Box {
	switch v.combination {
	case combinationAnd:
		return v.left.bounds().Intersection(v.right.bounds())
	case combinationOr:
		return v.left.bounds().Union(v.right.bounds())
	case combinationMinus:
		return v.left.bounds()
	}

	box := v.box
	for _, f := range v.filters {
		box = box.Intersection(f.Bounds())
	}
	return box
}

// Has checks whether the feature is in this view without iterating the view.
func (v *View) Has(f *feature.Feature) bool {
	if f == nil {
		return false
	}

	switch v.combination {
	case combinationAnd:
		return v.left.Has(f) && v.right.Has(f)
	case combinationOr:
		return v.left.Has(f) || v.right.Has(f)
	case combinationMinus:
		return v.left.Has(f) && !v.right.Has(f)
	}

	if v.tiles != nil {
		owner := geom.OwnerTile(f.Bounds, v.context.store.ZoomLevels())
		if !containsTile(v.tiles, owner) {
			return false
		}
	}
	return v.accepts(f)
}

// accepts applies the filter chain of a plain view: the cheap type and box checks first, then the programs and
// finally the spatial filters.
func (v *View) accepts(f *feature.Feature) bool {
	if !v.types.Accepts(f) {
		return false
	}
	if v.box != geom.WorldBox() && !f.Bounds.Intersects(v.box) {
		return false
	}
	for _, program := range v.programs {
		if !program.Match(f) {
			return false
		}
	}
	for _, spatialFilter := range v.filters {
		if !spatialFilter.Accept(f) {
			return false
		}
	}
	return true
}

// candidateTiles returns the tiles of the store that may contain features of this plain view.
func (v *View) candidateTiles() []geom.Tile {
	if v.EffectiveTypes().IsEmpty() {
		return nil
	}

	box := v.bounds()
	if box.IsEmpty() {
		return nil
	}

	tiles := v.context.store.TilesCovering(box)
	if v.tiles == nil {
		return tiles
	}

	var result []geom.Tile
	for _, tile := range tiles {
		if containsTile(v.tiles, tile) {
			result = append(result, tile)
		}
	}
	return result
}

func (v *View) String() string {
	switch v.combination {
	case combinationAnd, combinationOr, combinationMinus:
		return fmt.Sprintf("(%s %s %s)", v.left.String(), v.combination.String(), v.right.String())
	}

	parts := []string{"types=" + v.types.String()}
	for _, program := range v.programs {
		parts = append(parts, fmt.Sprintf("selector=%q", program.Selector().String()))
	}
	for _, f := range v.filters {
		parts = append(parts, f.Name())
	}
	if v.box != geom.WorldBox() {
		parts = append(parts, "box="+v.box.String())
	}
	if v.tiles != nil {
		parts = append(parts, fmt.Sprintf("tiles=%d", len(v.tiles)))
	}
	return "view(" + strings.Join(parts, ", ") + ")"
}

// Print logs the structure of the view on debug level.
func (v *View) Print(indent int) {
	switch v.combination {
	case combinationAnd, combinationOr, combinationMinus:
		sigolo.Debugf("%s%s", spacing(indent), v.combination.String())
		v.left.Print(indent + 2)
		v.right.Print(indent + 2)
		return
	}

	sigolo.Debugf("%sView", spacing(indent))
	sigolo.Debugf("%stypes: %s", spacing(indent+2), v.types.String())
	for _, program := range v.programs {
		sigolo.Debugf("%sselector: %s", spacing(indent+2), program.Selector().String())
	}
	for _, f := range v.filters {
		sigolo.Debugf("%sfilter: %s (%s)", spacing(indent+2), f.Name(), f.Bounds().String())
	}
	sigolo.Debugf("%sbox: %s", spacing(indent+2), v.box.String())
}

func spacing(indent int) string {
	return strings.Repeat(" ", indent)
}

func containsTile(tiles []geom.Tile, tile geom.Tile) bool {
	for _, t := range tiles {
		if t == tile {
			return true
		}
	}
	return false
}

// intersectTiles returns the tiles in both lists, nil stands for all tiles.
func intersectTiles(a []geom.Tile, b []geom.Tile) []geom.Tile {
	if b == nil {
		return a
	}
	if a == nil {
		return append([]geom.Tile{}, b...)
	}
	result := []geom.Tile{}
	for _, tile := range a {
		if containsTile(b, tile) {
			result = append(result, tile)
		}
	}
	return result
}
