// Package orientation builds the affine transform that places spectroscopy
// voxels in scanner space.
package orientation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// minCrossNorm is the smallest cross-product magnitude accepted before the
// row and column direction cosines are considered parallel. Direction
// cosines are unit vectors, so a healthy acquisition sits near 1.
const minCrossNorm = 1e-6

// GeometryError reports voxel geometry that cannot produce a valid
// orientation matrix.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "invalid acquisition geometry: " + e.Reason
}

// Matrix is the 4x4 voxel-to-scanner affine. The bottom row is always
// [0 0 0 1] and the upper-left 3x3 block is non-degenerate.
type Matrix struct {
	m *mat.Dense
}

// Compute assembles the affine from the row and column direction cosines,
// the voxel position and the voxel size, one size component per direction.
// The direction cosines become the first two columns, their cross product
// the third, each column scaled by its size component, with the position as
// translation. The first two rows are then negated to move from the
// patient-based convention to the scanner coordinates downstream tools
// expect.
func Compute(rowCos, colCos, position, voxelSize [3]float64) (*Matrix, error) {
	for i, s := range voxelSize {
		if s <= 0 {
			return nil, &GeometryError{Reason: fmt.Sprintf("voxel size component %d is %g, must be positive", i, s)}
		}
	}

	normal := cross(rowCos, colCos)
	if norm(normal) < minCrossNorm {
		return nil, &GeometryError{Reason: "row and column direction cosines are parallel"}
	}

	m := mat.NewDense(4, 4, nil)
	cols := [3][3]float64{rowCos, colCos, normal}
	for j, dir := range cols {
		for i := 0; i < 3; i++ {
			m.Set(i, j, dir[i]*voxelSize[j])
		}
	}
	for i := 0; i < 3; i++ {
		m.Set(i, 3, position[i])
	}
	m.Set(3, 3, 1)

	// Patient-to-scanner sign convention: negate the first two rows.
	for j := 0; j < 4; j++ {
		m.Set(0, j, -m.At(0, j))
		m.Set(1, j, -m.At(1, j))
	}

	o := &Matrix{m: m}
	if det := o.det3(); det == 0 || math.IsNaN(det) {
		return nil, &GeometryError{Reason: "orientation matrix is degenerate"}
	}
	return o, nil
}

// At returns the element at row i, column j.
func (o *Matrix) At(i, j int) float64 { return o.m.At(i, j) }

// Row returns a copy of row i.
func (o *Matrix) Row(i int) [4]float64 {
	var r [4]float64
	for j := range r {
		r[j] = o.m.At(i, j)
	}
	return r
}

// Equal reports exact element-wise equality. Acquisitions are only merged
// when their placement matches bit for bit, so no tolerance is applied.
func (o *Matrix) Equal(p *Matrix) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if o.m.At(i, j) != p.m.At(i, j) {
				return false
			}
		}
	}
	return true
}

// VoxelSize returns the physical extent of one voxel step along each spatial
// axis, recovered from the column norms of the 3x3 block.
func (o *Matrix) VoxelSize() [3]float64 {
	var size [3]float64
	for j := 0; j < 3; j++ {
		var sum float64
		for i := 0; i < 3; i++ {
			v := o.m.At(i, j)
			sum += v * v
		}
		size[j] = math.Sqrt(sum)
	}
	return size
}

// det3 is the determinant of the upper-left 3x3 block.
func (o *Matrix) det3() float64 {
	sub := o.m.Slice(0, 3, 0, 3)
	return mat.Det(sub)
}

func (o *Matrix) String() string {
	return fmt.Sprintf("%.4v", mat.Formatted(o.m))
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
