// Package spectrum provides the complex-valued spectroscopy signal container
// and the routines that decode raw scanner sample buffers into it.
//
// A Spectrum is an N-dimensional array in canonical axis order: three spatial
// axes aligned with the orientation matrix convention, then the spectral axis
// holding the time-domain samples of each voxel. Axes beyond the spectral one
// are free dimensions introduced by stacking repeated acquisitions.
package spectrum

import "fmt"

// Canonical axis indices. Using the named constants instead of bare positions
// keeps reshape and permutation code honest about which axis it touches.
const (
	AxisX        = 0 // column
	AxisY        = 1 // row
	AxisZ        = 2 // slice
	AxisSpectral = 3 // time-domain samples
)

// minDims is the smallest number of axes a Spectrum carries: the three
// spatial axes plus the spectral axis.
const minDims = 4

// Spectrum is an N-dimensional complex sample array stored in row-major
// order, so the last axis varies fastest in memory.
type Spectrum struct {
	data  []complex128
	shape []int
}

// New wraps data in a Spectrum of the given shape. The shape must have at
// least four axes and its volume must match the data length.
func New(data []complex128, shape []int) (*Spectrum, error) {
	if len(shape) < minDims {
		return nil, fmt.Errorf("spectrum needs at least %d axes, got %d", minDims, len(shape))
	}
	size := 1
	for _, n := range shape {
		if n < 1 {
			return nil, fmt.Errorf("invalid axis length %d in shape %v", n, shape)
		}
		size *= n
	}
	if size != len(data) {
		return nil, fmt.Errorf("shape %v needs %d samples, got %d", shape, size, len(data))
	}
	s := &Spectrum{
		data:  data,
		shape: make([]int, len(shape)),
	}
	copy(s.shape, shape)
	return s, nil
}

// Shape returns a copy of the axis lengths.
func (s *Spectrum) Shape() []int {
	out := make([]int, len(s.shape))
	copy(out, s.shape)
	return out
}

// NumDims returns the number of axes.
func (s *Spectrum) NumDims() int { return len(s.shape) }

// Len returns the total number of complex samples.
func (s *Spectrum) Len() int { return len(s.data) }

// SpectralPoints returns the length of the spectral axis.
func (s *Spectrum) SpectralPoints() int { return s.shape[AxisSpectral] }

// Data returns the backing sample slice. The spectrum keeps ownership;
// callers must not resize it.
func (s *Spectrum) Data() []complex128 { return s.data }

// At returns the sample at the given multi-index. It panics when the number
// of indices or any index is out of range.
func (s *Spectrum) At(idx ...int) complex128 {
	if len(idx) != len(s.shape) {
		panic(fmt.Sprintf("spectrum: %d indices for %d axes", len(idx), len(s.shape)))
	}
	flat := 0
	for i, ix := range idx {
		if ix < 0 || ix >= s.shape[i] {
			panic(fmt.Sprintf("spectrum: index %d out of range [0,%d) on axis %d", ix, s.shape[i], i))
		}
		flat = flat*s.shape[i] + ix
	}
	return s.data[flat]
}

// FID returns a copy of the time-domain signal of the voxel at (x, y, z),
// taking the first entry along any free axes beyond the spectral one.
func (s *Spectrum) FID(x, y, z int) []complex128 {
	points := s.shape[AxisSpectral]
	// Stride of one spectral step is the product of all trailing axis lengths.
	stride := 1
	for i := AxisSpectral + 1; i < len(s.shape); i++ {
		stride *= s.shape[i]
	}
	base := ((x*s.shape[AxisY]+y)*s.shape[AxisZ] + z) * points * stride
	out := make([]complex128, points)
	for p := 0; p < points; p++ {
		out[p] = s.data[base+p*stride]
	}
	return out
}

// ShapeEqual reports whether both spectra have identical axis lengths.
func (s *Spectrum) ShapeEqual(o *Spectrum) bool {
	if len(s.shape) != len(o.shape) {
		return false
	}
	for i, n := range s.shape {
		if o.shape[i] != n {
			return false
		}
	}
	return true
}

// Stack concatenates spectra of identical shape along a new trailing axis,
// preserving input order, so the result has one extra axis of length
// len(list).
func Stack(list []*Spectrum) (*Spectrum, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("nothing to stack")
	}
	first := list[0]
	for i, s := range list[1:] {
		if !first.ShapeEqual(s) {
			return nil, fmt.Errorf("shape mismatch at position %d: %v vs %v", i+1, s.shape, first.shape)
		}
	}
	n := len(list)
	data := make([]complex128, first.Len()*n)
	// The new axis is last, so in row-major order member k contributes every
	// n-th sample starting at offset k.
	for k, s := range list {
		for i, v := range s.data {
			data[i*n+k] = v
		}
	}
	shape := append(first.Shape(), n)
	return New(data, shape)
}
