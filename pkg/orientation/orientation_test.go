package orientation

import (
	"errors"
	"math"
	"testing"
)

func mustCompute(t *testing.T, rowCos, colCos, position, voxelSize [3]float64) *Matrix {
	t.Helper()
	m, err := Compute(rowCos, colCos, position, voxelSize)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	return m
}

func TestComputeAxisAligned(t *testing.T) {
	m := mustCompute(t,
		[3]float64{1, 0, 0},
		[3]float64{0, 1, 0},
		[3]float64{10, 20, 30},
		[3]float64{2, 3, 4},
	)

	// Columns carry the scaled direction cosines, first two rows negated.
	want := [4][4]float64{
		{-2, 0, 0, -10},
		{0, -3, 0, -20},
		{0, 0, 4, 30},
		{0, 0, 0, 1},
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if got := m.At(i, j); got != want[i][j] {
				t.Errorf("At(%d,%d) = %g, want %g", i, j, got, want[i][j])
			}
		}
	}
}

func TestComputeBottomRow(t *testing.T) {
	m := mustCompute(t,
		[3]float64{0.8, 0.6, 0},
		[3]float64{-0.6, 0.8, 0},
		[3]float64{-5, 12.5, 3},
		[3]float64{1.5, 1.5, 8},
	)
	row := m.Row(3)
	want := [4]float64{0, 0, 0, 1}
	if row != want {
		t.Errorf("bottom row = %v, want %v", row, want)
	}
	if det := m.det3(); det == 0 {
		t.Error("3x3 block is singular")
	}
}

func TestComputeCrossColumn(t *testing.T) {
	// Row X and column Y cross to Z; the third column must carry it scaled
	// by the through-plane size, sign-flipped on the first two rows.
	m := mustCompute(t,
		[3]float64{1, 0, 0},
		[3]float64{0, 1, 0},
		[3]float64{0, 0, 0},
		[3]float64{1, 1, 15},
	)
	got := [3]float64{m.At(0, 2), m.At(1, 2), m.At(2, 2)}
	want := [3]float64{0, 0, 15}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("cross column[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestComputeGeometryErrors(t *testing.T) {
	tests := []struct {
		name      string
		rowCos    [3]float64
		colCos    [3]float64
		voxelSize [3]float64
	}{
		{
			name:      "zero voxel size",
			rowCos:    [3]float64{1, 0, 0},
			colCos:    [3]float64{0, 1, 0},
			voxelSize: [3]float64{0, 1, 1},
		},
		{
			name:      "negative voxel size",
			rowCos:    [3]float64{1, 0, 0},
			colCos:    [3]float64{0, 1, 0},
			voxelSize: [3]float64{1, -2, 1},
		},
		{
			name:      "parallel cosines",
			rowCos:    [3]float64{1, 0, 0},
			colCos:    [3]float64{1, 0, 0},
			voxelSize: [3]float64{1, 1, 1},
		},
		{
			name:      "antiparallel cosines",
			rowCos:    [3]float64{0, 1, 0},
			colCos:    [3]float64{0, -1, 0},
			voxelSize: [3]float64{1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.rowCos, tt.colCos, [3]float64{0, 0, 0}, tt.voxelSize)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ge *GeometryError
			if !errors.As(err, &ge) {
				t.Errorf("error type = %T, want *GeometryError", err)
			}
		})
	}
}

func TestMatrixEqual(t *testing.T) {
	a := mustCompute(t,
		[3]float64{1, 0, 0},
		[3]float64{0, 1, 0},
		[3]float64{1, 2, 3},
		[3]float64{10, 10, 10},
	)
	b := mustCompute(t,
		[3]float64{1, 0, 0},
		[3]float64{0, 1, 0},
		[3]float64{1, 2, 3},
		[3]float64{10, 10, 10},
	)
	if !a.Equal(b) {
		t.Error("identical inputs must compare equal")
	}

	c := mustCompute(t,
		[3]float64{1, 0, 0},
		[3]float64{0, 1, 0},
		[3]float64{1, 2, 3.0000001},
		[3]float64{10, 10, 10},
	)
	if a.Equal(c) {
		t.Error("shifted position must not compare equal")
	}
}

func TestVoxelSizeRecovery(t *testing.T) {
	size := [3]float64{0.9, 1.1, 12}
	m := mustCompute(t,
		[3]float64{0.6, 0.8, 0},
		[3]float64{-0.8, 0.6, 0},
		[3]float64{0, 0, 0},
		size,
	)
	got := m.VoxelSize()
	for i := range size {
		if math.Abs(got[i]-size[i]) > 1e-9 {
			t.Errorf("VoxelSize[%d] = %g, want %g", i, got[i], size[i])
		}
	}
}
