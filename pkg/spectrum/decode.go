package spectrum

import "fmt"

// DataLengthError reports a raw sample buffer whose length cannot produce
// the expected complex sample layout.
type DataLengthError struct {
	// Got is the number of float32 values in the buffer.
	Got int
	// Want is the required number of float32 values; zero when the buffer
	// merely failed the even-length requirement.
	Want int
}

func (e *DataLengthError) Error() string {
	if e.Want == 0 {
		return fmt.Sprintf("interleaved sample buffer has odd length %d", e.Got)
	}
	return fmt.Sprintf("sample buffer holds %d values, expected %d", e.Got, e.Want)
}

// DecodeInterleaved converts a raw (real, imaginary, ...) float32 buffer to
// complex samples. The scanner stores conjugated quadrature data, so sample
// k is raw[2k] - i*raw[2k+1].
func DecodeInterleaved(raw []float32) ([]complex128, error) {
	if len(raw)%2 != 0 {
		return nil, &DataLengthError{Got: len(raw)}
	}
	out := make([]complex128, len(raw)/2)
	for k := range out {
		out[k] = complex(float64(raw[2*k]), -float64(raw[2*k+1]))
	}
	return out, nil
}

// SingleVoxel decodes a single-voxel acquisition buffer into a spectrum of
// shape (1, 1, 1, N) where N is the number of complex samples.
func SingleVoxel(raw []float32) (*Spectrum, error) {
	samples, err := DecodeInterleaved(raw)
	if err != nil {
		return nil, err
	}
	return New(samples, []int{1, 1, 1, len(samples)})
}

// MultiVoxel decodes a gridded acquisition buffer. The scanner stores the
// grid as (slices, rows, cols, points) with points varying fastest; the
// returned spectrum reverses the spatial axes into the canonical
// (cols, rows, slices, points) order so voxel indices line up with the
// orientation matrix.
func MultiVoxel(raw []float32, slices, rows, cols, points int) (*Spectrum, error) {
	if slices < 1 || rows < 1 || cols < 1 || points < 1 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%dx%dx%d", slices, rows, cols, points)
	}
	want := 2 * slices * rows * cols * points
	if len(raw) != want {
		return nil, &DataLengthError{Got: len(raw), Want: want}
	}
	samples, err := DecodeInterleaved(raw)
	if err != nil {
		return nil, err
	}

	// Permute storage order (slices, rows, cols, points) into canonical
	// (cols, rows, slices, points). Each voxel's spectral run is contiguous
	// in both layouts, so whole runs are copied at a time.
	data := make([]complex128, len(samples))
	for s := 0; s < slices; s++ {
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				src := (((s*rows)+r)*cols + c) * points
				dst := (((c*rows)+r)*slices + s) * points
				copy(data[dst:dst+points], samples[src:src+points])
			}
		}
	}
	return New(data, []int{cols, rows, slices, points})
}
