package query

import (
	"fsq/feature"
	"github.com/hauke96/sigolo/v2"
	"golang.org/x/sync/errgroup"
	"sync/atomic"
	"time"
)

// Each calls the function for every feature of the view and stops at the first error.
func (v *View) Each(fn func(f *feature.Feature) error) error {
	it := v.Iterator()
	for it.Next() {
		if err := fn(it.Feature()); err != nil {
			return err
		}
	}
	return it.Err()
}

// Count returns the number of features in this view. The tiles of plain views are processed in parallel.
func (v *View) Count() (int, error) {
	startTime := time.Now()

	var count int
	var err error
	if v.isPlain() && v.context.settings.Workers > 1 {
		count, err = v.countParallel()
	} else {
		err = v.Each(func(f *feature.Feature) error {
			count++
			return nil
		})
	}
	if err != nil {
		return 0, err
	}

	sigolo.Debugf("Counted %d features in %s", count, time.Since(startTime))
	return count, nil
}

func (v *View) countParallel() (int, error) {
	tiles := v.candidateTiles()
	sigolo.Debugf("Count features of %d tiles with %d workers", len(tiles), v.context.settings.Workers)

	var total atomic.Int64
	group := errgroup.Group{}
	group.SetLimit(v.context.settings.Workers)

	for _, tile := range tiles {
		tile := tile
		group.Go(func() error {
			data, err := v.context.store.FetchTile(tile)
			if err != nil {
				return err
			}

			count := 0
			for _, f := range data.Features {
				if v.accepts(f) {
					count++
				}
			}
			total.Add(int64(count))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return 0, err
	}
	return int(total.Load()), nil
}

// First returns the first feature of the view or nil if the view is empty.
func (v *View) First() (*feature.Feature, error) {
	it := v.Iterator()
	if it.Next() {
		return it.Feature(), nil
	}
	return nil, it.Err()
}

// Get returns the n-th feature (starting at 0) in iteration order.
func (v *View) Get(n int) (*feature.Feature, error) {
	if n < 0 {
		return nil, &IndexOutOfRangeError{Index: n, Count: -1}
	}

	it := v.Iterator()
	i := 0
	for it.Next() {
		if i == n {
			return it.Feature(), nil
		}
		i++
	}
	if it.Err() != nil {
		return nil, it.Err()
	}
	return nil, &IndexOutOfRangeError{Index: n, Count: i}
}

// Slice returns the features from start (inclusive) to end (exclusive) in iteration order. An end beyond the last
// feature is cut to the size of the view. Iteration stops at end, later tiles aren't fetched.
func (v *View) Slice(start int, end int) ([]*feature.Feature, error) {
	if start < 0 || end < start {
		return nil, &IndexOutOfRangeError{Index: start, Count: -1}
	}

	var result []*feature.Feature
	it := v.Iterator()
	i := 0
	for i < end && it.Next() {
		if i >= start {
			result = append(result, it.Feature())
		}
		i++
	}
	return result, it.Err()
}

// ToSlice materializes the whole view.
func (v *View) ToSlice() ([]*feature.Feature, error) {
	var result []*feature.Feature
	err := v.Each(func(f *feature.Feature) error {
		result = append(result, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IDs materializes the typed IDs of all features of the view.
func (v *View) IDs() (*FeatureSet, error) {
	set := NewFeatureSet()
	err := v.Each(func(f *feature.Feature) error {
		set.Add(f.TypedID())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}
