package grid

import (
	"math"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats"
)

// Unique returns the sorted distinct values, NaN excluded.
func Unique[T constraints.Integer | constraints.Float](values []T) []T {
	set := mapset.NewThreadUnsafeSet[T]()
	for _, v := range values {
		if v != v {
			continue
		}
		set.Add(v)
	}
	out := set.ToSlice()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Summary describes the valid (non NaN) cells of a grid.
type Summary struct {
	Count         int
	Min, Max, Sum float64
}

func (s Summary) Mean() float64 {
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Sum / float64(s.Count)
}

func Summarize(values []float64) Summary {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return Summary{}
	}
	return Summary{
		Count: len(valid),
		Min:   floats.Min(valid),
		Max:   floats.Max(valid),
		Sum:   floats.Sum(valid),
	}
}
