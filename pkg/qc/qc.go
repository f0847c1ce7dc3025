// Package qc computes quick-look statistics for converted spectra. The
// numbers are for operator inspection only and never influence conversion
// output.
package qc

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Summary characterizes one voxel's FID.
type Summary struct {
	// Points is the number of complex samples.
	Points int

	// MeanMagnitude and StdMagnitude summarize the time-domain envelope.
	MeanMagnitude float64
	StdMagnitude  float64

	// MaxMagnitude is the largest time-domain sample magnitude.
	MaxMagnitude float64

	// PeakBin is the dominant bin of the magnitude spectrum.
	PeakBin int

	// PeakHz is that bin's frequency offset. Bins past the midpoint fold
	// to negative offsets.
	PeakHz float64
}

// Preview summarizes a single FID sampled at the given dwell time.
func Preview(fid []complex128, dwellTime float64) (*Summary, error) {
	if len(fid) == 0 {
		return nil, fmt.Errorf("empty FID")
	}
	if dwellTime <= 0 {
		return nil, fmt.Errorf("dwell time must be positive, got %g", dwellTime)
	}

	mags := make([]float64, len(fid))
	maxMag := 0.0
	for i, v := range fid {
		mags[i] = cmplx.Abs(v)
		if mags[i] > maxMag {
			maxMag = mags[i]
		}
	}

	fft := fourier.NewCmplxFFT(len(fid))
	coeffs := fft.Coefficients(nil, fid)

	peak := 0
	peakMag := 0.0
	for i, c := range coeffs {
		if m := cmplx.Abs(c); m > peakMag {
			peakMag = m
			peak = i
		}
	}

	return &Summary{
		Points:        len(fid),
		MeanMagnitude: stat.Mean(mags, nil),
		StdMagnitude:  stat.StdDev(mags, nil),
		MaxMagnitude:  maxMag,
		PeakBin:       peak,
		PeakHz:        binFrequency(peak, len(fid), dwellTime),
	}, nil
}

// binFrequency maps an unshifted spectrum bin to its frequency offset in
// hertz.
func binFrequency(bin, n int, dwellTime float64) float64 {
	if bin > n/2 {
		bin -= n
	}
	return float64(bin) / (float64(n) * dwellTime)
}
