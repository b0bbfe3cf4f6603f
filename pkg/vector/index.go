package vector

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// FlatIndex is an append-only exact nearest-neighbor index using Euclidean
// distance. Vectors are stored row-major in a single slice.
//
// A FlatIndex value is treated as immutable once published: Append returns a
// new index that may share the backing array, but rows beyond an index's own
// length are never read through it.
type FlatIndex struct {
	dim  int
	data []float32
}

// Neighbor is a search hit by row position.
type Neighbor struct {
	Position int
	Distance float32
}

// NewFlatIndex creates an empty index for vectors of dimension dim.
func NewFlatIndex(dim int) *FlatIndex {
	return &FlatIndex{dim: dim}
}

// Dimension returns the vector dimension of the index.
func (f *FlatIndex) Dimension() int {
	if f == nil {
		return 0
	}
	return f.dim
}

// Len returns the number of vectors in the index.
func (f *FlatIndex) Len() int {
	if f == nil || f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Row returns the vector stored at position i. The returned slice must not be
// modified.
func (f *FlatIndex) Row(i int) []float32 {
	start := i * f.dim
	end := start + f.dim
	return f.data[start:end:end]
}

// Append returns a new index holding the receiver's vectors followed by vecs.
// The receiver is left unchanged.
func (f *FlatIndex) Append(vecs [][]float32) (*FlatIndex, error) {
	for i, v := range vecs {
		if len(v) != f.dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, index has %d",
				ErrDimensionMismatch, i, len(v), f.dim)
		}
		if j := nonFinite(v); j >= 0 {
			return nil, fmt.Errorf("%w: vector %d component %d is %v", ErrInvalidEmbedding, i, j, v[j])
		}
	}

	data := f.data
	for _, v := range vecs {
		data = append(data, v...)
	}

	return &FlatIndex{dim: f.dim, data: data}, nil
}

// Search returns up to k nearest rows to query ordered by ascending distance.
// Rows at equal distance keep insertion order.
func (f *FlatIndex) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(query), f.dim)
	}
	if j := nonFinite(query); j >= 0 {
		return nil, fmt.Errorf("%w: query component %d is %v", ErrInvalidEmbedding, j, query[j])
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	n := f.Len()
	type scored struct {
		pos  int
		dist float64
	}
	all := make([]scored, n)
	for i := range n {
		all[i] = scored{pos: i, dist: squaredL2(query, f.Row(i))}
	}

	slices.SortStableFunc(all, func(a, b scored) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})

	k = min(k, n)
	out := make([]Neighbor, k)
	for i := range k {
		out[i] = Neighbor{
			Position: all[i].pos,
			Distance: float32(math.Sqrt(all[i].dist)),
		}
	}

	return out, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// nonFinite returns the position of the first NaN or infinite component, or -1.
func nonFinite(v []float32) int {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return i
		}
	}
	return -1
}
