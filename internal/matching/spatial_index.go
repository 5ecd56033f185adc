package matching

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"
)

// Index answers k-nearest-neighbour queries over a static set of points.
type Index[T any] interface {
	// Nearest returns up to k values ordered closest first. Equal distances
	// are ordered by ascending insertion position.
	Nearest(lat, lon float64, k int) []T
	Len() int
}

// IndexEntry is one point handed to BuildIndex.
type IndexEntry[T any] struct {
	Lat   float64
	Lon   float64
	Value T
}

type indexItem[T any] struct {
	seq   int
	value T
}

// RTreeIndex is a read-only Index backed by an R-tree.
type RTreeIndex[T any] struct {
	tree rtree.RTreeG[indexItem[T]]
	size int
}

// BuildIndex bulk-loads entries into a new index. The index is never
// modified afterwards; build a new one to change its contents.
func BuildIndex[T any](entries []IndexEntry[T]) *RTreeIndex[T] {
	idx := &RTreeIndex[T]{size: len(entries)}

	// For points, min and max are the same [lon, lat]
	for i, e := range entries {
		point := [2]float64{e.Lon, e.Lat}
		idx.tree.Insert(point, point, indexItem[T]{seq: i, value: e.Value})
	}

	return idx
}

func (idx *RTreeIndex[T]) Len() int {
	return idx.size
}

type indexHit[T any] struct {
	dist float64
	item indexItem[T]
}

func (idx *RTreeIndex[T]) Nearest(lat, lon float64, k int) []T {
	if idx == nil || k <= 0 || idx.size == 0 {
		return nil
	}

	// Equirectangular metric: longitude degrees shrink with the cosine of
	// the probe latitude. Only used for ordering, never for confidence.
	lonScale := math.Cos(lat * math.Pi / 180)

	var hits []indexHit[T]
	idx.tree.Nearby(
		func(min, max [2]float64, _ indexItem[T], _ bool) float64 {
			return boxDistance(lon, lat, min, max, lonScale)
		},
		func(_, _ [2]float64, item indexItem[T], dist float64) bool {
			// Keep collecting past k while distances tie with the k-th hit so
			// the insertion order tie-break below sees every contender.
			if len(hits) >= k && dist > hits[len(hits)-1].dist {
				return false
			}
			hits = append(hits, indexHit[T]{dist: dist, item: item})
			return true
		},
	)

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].item.seq < hits[j].item.seq
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	values := make([]T, len(hits))
	for i, h := range hits {
		values[i] = h.item.value
	}
	return values
}

// boxDistance is the squared scaled distance from a point to a rectangle.
func boxDistance(lon, lat float64, min, max [2]float64, lonScale float64) float64 {
	dx := 0.0
	if lon < min[0] {
		dx = min[0] - lon
	} else if lon > max[0] {
		dx = lon - max[0]
	}
	dy := 0.0
	if lat < min[1] {
		dy = min[1] - lat
	} else if lat > max[1] {
		dy = lat - max[1]
	}
	dx *= lonScale
	return dx*dx + dy*dy
}
