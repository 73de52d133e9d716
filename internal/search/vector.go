package search

import (
	"math"
)

// Vector is a sparse vector in the vocabulary space of one index. Indices are
// strictly increasing column numbers.
type Vector struct {
	buildID string
	dim     int
	indices []int
	values  []float64
}

// BuildID identifies the index whose vocabulary produced the vector.
func (v Vector) BuildID() string {
	return v.buildID
}

// Dim equals the vocabulary size of the producing index.
func (v Vector) Dim() int {
	return v.dim
}

// IsZero reports whether the vector has no non-zero component.
func (v Vector) IsZero() bool {
	for _, x := range v.values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dense expands the vector to a freshly allocated slice of length Dim.
func (v Vector) Dense() []float64 {
	out := make([]float64, v.dim)
	for i, col := range v.indices {
		out[col] = v.values[i]
	}
	return out
}

// normalizeL2 returns a unit-length copy of v; the zero vector stays zero.
func normalizeL2(v Vector) Vector {
	n := v.Norm()
	out := Vector{
		buildID: v.buildID,
		dim:     v.dim,
		indices: v.indices,
		values:  make([]float64, len(v.values)),
	}
	if n == 0 {
		return out
	}
	for i, x := range v.values {
		out.values[i] = x / n
	}
	return out
}

// dot merges the sorted index lists of two vectors.
func dot(a, b Vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.indices) && j < len(b.indices) {
		switch {
		case a.indices[i] == b.indices[j]:
			sum += a.values[i] * b.values[j]
			i++
			j++
		case a.indices[i] < b.indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

func clampUnit(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
