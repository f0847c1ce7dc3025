package convert

import (
	"errors"
	"fmt"
	"time"

	"github.com/clemoune/spec2nii/pkg/dicom"
	"github.com/clemoune/spec2nii/pkg/header"
	"github.com/clemoune/spec2nii/pkg/orientation"
	"github.com/clemoune/spec2nii/pkg/spectrum"
)

// Result is the per-file conversion product: everything the combiner
// needs, in acquisition order.
type Result struct {
	// Spectrum is the decoded complex data in canonical axis order.
	Spectrum *spectrum.Spectrum

	// Orientation places the voxel grid in scanner space.
	Orientation *orientation.Matrix

	// DwellTime is the spectral sampling interval in seconds.
	DwellTime float64

	// Meta is the header extension extracted from this file.
	Meta *header.Extension

	// Source identifies the input file.
	Source string
}

// ConvertFile runs the extraction pipeline on one decoded acquisition.
// A nil clock stamps the metadata with the wall clock.
func ConvertFile(acq *dicom.Acquisition, now header.Clock) (*Result, error) {
	if now == nil {
		now = time.Now
	}

	kind, err := Classify(acq)
	if err != nil {
		return nil, err
	}

	var (
		spec   *spectrum.Spectrum
		orient *orientation.Matrix
	)
	switch kind {
	case SingleVoxel:
		spec, orient, err = extractSingleVoxel(acq)
	case MultiVoxel:
		spec, orient, err = extractMultiVoxel(acq)
	}
	if err != nil {
		return nil, err
	}

	dwell, err := dwellTime(acq)
	if err != nil {
		return nil, err
	}
	meta, err := header.Extract(acq, now)
	if err != nil {
		return nil, err
	}

	return &Result{
		Spectrum:    spec,
		Orientation: orient,
		DwellTime:   dwell,
		Meta:        meta,
		Source:      acq.Path,
	}, nil
}

// extractSingleVoxel decodes an SVS acquisition. The voxel box is placed
// from the VOI tags: its centre position and the phase, readout and
// through-plane extents.
func extractSingleVoxel(acq *dicom.Acquisition) (*spectrum.Spectrum, *orientation.Matrix, error) {
	spec, err := spectrum.SingleVoxel(acq.Data)
	if err != nil {
		return nil, nil, err
	}

	rowCos, colCos, err := directionCosines(acq)
	if err != nil {
		return nil, nil, err
	}
	pos, err := geometryFloats(acq, "VoiPosition", 3)
	if err != nil {
		return nil, nil, err
	}
	var size [3]float64
	for i, tag := range []string{"VoiPhaseFoV", "VoiReadoutFoV", "VoiThickness"} {
		v, err := geometryFloats(acq, tag, 1)
		if err != nil {
			return nil, nil, err
		}
		size[i] = v[0]
	}

	orient, err := orientation.Compute(rowCos, colCos, vec3(pos), size)
	if err != nil {
		return nil, nil, err
	}
	return spec, orient, nil
}

// extractMultiVoxel decodes a CSI acquisition. The grid is placed from the
// slice position and the in-plane pixel spacing plus slice thickness.
func extractMultiVoxel(acq *dicom.Acquisition) (*spectrum.Spectrum, *orientation.Matrix, error) {
	rows, err := geometryInt(acq, "Rows")
	if err != nil {
		return nil, nil, err
	}
	cols, err := geometryInt(acq, "Columns")
	if err != nil {
		return nil, nil, err
	}
	slices, err := geometryInt(acq, "NumberOfFrames")
	if err != nil {
		return nil, nil, err
	}
	points, err := geometryInt(acq, "DataPointColumns")
	if err != nil {
		return nil, nil, err
	}

	spec, err := spectrum.MultiVoxel(acq.Data, slices, rows, cols, points)
	if err != nil {
		return nil, nil, err
	}

	rowCos, colCos, err := directionCosines(acq)
	if err != nil {
		return nil, nil, err
	}
	pos, err := geometryFloats(acq, "ImagePositionPatient", 3)
	if err != nil {
		return nil, nil, err
	}
	spacing, err := geometryFloats(acq, "PixelSpacing", 2)
	if err != nil {
		return nil, nil, err
	}
	thickness, err := geometryFloats(acq, "SliceThickness", 1)
	if err != nil {
		return nil, nil, err
	}
	size := [3]float64{spacing[0], spacing[1], thickness[0]}

	orient, err := orientation.Compute(rowCos, colCos, vec3(pos), size)
	if err != nil {
		return nil, nil, err
	}
	return spec, orient, nil
}

// directionCosines splits the six-item orientation tag into the row and
// column unit vectors.
func directionCosines(acq *dicom.Acquisition) ([3]float64, [3]float64, error) {
	iop, err := geometryFloats(acq, "ImageOrientationPatient", 6)
	if err != nil {
		return [3]float64{}, [3]float64{}, err
	}
	return vec3(iop[:3]), vec3(iop[3:]), nil
}

// DwellTimeError reports a sampling-interval tag whose value cannot be a
// physical dwell time.
type DwellTimeError struct {
	// Nanoseconds is the raw tag value.
	Nanoseconds float64
}

func (e *DwellTimeError) Error() string {
	return fmt.Sprintf("dwell time must be positive, got %g ns", e.Nanoseconds)
}

// dwellTime reads the sampling interval, stored by the scanner in
// nanoseconds, and rescales it to seconds.
func dwellTime(acq *dicom.Acquisition) (float64, error) {
	v, err := acq.Float("RealDwellTime")
	if err != nil {
		var mt *dicom.MissingTagError
		if errors.As(err, &mt) {
			return 0, &header.MissingMetadataError{Tag: mt.Tag}
		}
		return 0, err
	}
	dwell := v * 1e-9
	if dwell <= 0 {
		return 0, &DwellTimeError{Nanoseconds: v}
	}
	return dwell, nil
}

func vec3(v []float64) [3]float64 {
	return [3]float64{v[0], v[1], v[2]}
}
