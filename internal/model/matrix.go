package model

import "gonum.org/v1/gonum/mat"

// FeatureMatrix is the pipeline's only persistent artifact: one feature row
// per input point, plus a validity mask. Mask[i] is false iff row i is the
// all-zero placeholder (no scene, no overlap, or chip too small). Rows are
// index-aligned with the input point collection.
type FeatureMatrix struct {
	X    *mat.Dense
	Mask []bool
}

// NewFeatureMatrix allocates a zeroed n×dim matrix with an all-false mask.
// An empty point set yields a matrix with no backing Dense, since gonum
// rejects zero-length dimensions.
func NewFeatureMatrix(n, dim int) *FeatureMatrix {
	var x *mat.Dense
	if n > 0 && dim > 0 {
		x = mat.NewDense(n, dim, nil)
	}
	return &FeatureMatrix{
		X:    x,
		Mask: make([]bool, n),
	}
}

// SetRow writes a feature vector into row i and marks it valid.
func (m *FeatureMatrix) SetRow(i int, vec []float64) {
	m.X.SetRow(i, vec)
	m.Mask[i] = true
}

// Rows returns the number of rows.
func (m *FeatureMatrix) Rows() int {
	return len(m.Mask)
}

// Dim returns the feature dimensionality.
func (m *FeatureMatrix) Dim() int {
	if m.X == nil {
		return 0
	}
	_, c := m.X.Dims()
	return c
}

// ValidCount returns the number of valid rows.
func (m *FeatureMatrix) ValidCount() int {
	n := 0
	for _, ok := range m.Mask {
		if ok {
			n++
		}
	}
	return n
}

// FilterValid returns the valid rows of X and the corresponding entries of
// labels, preserving order. It is the assembler's consumer-facing helper for
// feeding a fitted model; the full matrix keeps its zero rows untouched.
func (m *FeatureMatrix) FilterValid(labels []float64) (*mat.Dense, []float64) {
	nValid := m.ValidCount()
	if nValid == 0 {
		return nil, nil
	}
	out := mat.NewDense(nValid, m.Dim(), nil)
	kept := make([]float64, 0, nValid)
	row := 0
	for i, ok := range m.Mask {
		if !ok {
			continue
		}
		out.SetRow(row, mat.Row(nil, i, m.X))
		if labels != nil {
			kept = append(kept, labels[i])
		}
		row++
	}
	return out, kept
}
