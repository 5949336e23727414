package encoding

import "gonum.org/v1/gonum/mat"

// DenseRowAccessor adapts a gonum mat.Matrix into a RowAccessor by reading
// one row at a time with mat.Row, letting Provider.IngestDense consume a
// mat.Dense (or any mat.Matrix) directly.
type DenseRowAccessor struct {
	m mat.Matrix
}

// NewDenseRowAccessor wraps m for row-at-a-time access.
func NewDenseRowAccessor(m mat.Matrix) *DenseRowAccessor {
	return &DenseRowAccessor{m: m}
}

// Row returns row rowIndex densely, in feature-id order.
func (a *DenseRowAccessor) Row(rowIndex int) []float64 {
	return mat.Row(nil, rowIndex, a.m)
}
