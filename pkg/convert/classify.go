// Package convert turns decoded spectroscopy acquisitions into output
// units ready for serialization: it classifies each acquisition, runs the
// per-file extraction pipeline, and decides whether a batch collapses into
// one combined output or stays separate.
package convert

import (
	"errors"
	"fmt"

	"github.com/clemoune/spec2nii/pkg/dicom"
)

// Kind distinguishes the two acquisition layouts.
type Kind int

const (
	// SingleVoxel is one spectroscopy volume with no spatial grid.
	SingleVoxel Kind = iota
	// MultiVoxel is a spatial grid of spectroscopy voxels from one scan.
	MultiVoxel
)

// String returns the usual scanner-side shorthand for the layout.
func (k Kind) String() string {
	if k == MultiVoxel {
		return "CSI"
	}
	return "SVS"
}

// AcquisitionTypeError reports geometry tags that are missing or invalid,
// leaving the acquisition layout undecidable.
type AcquisitionTypeError struct {
	// Tag is the geometry tag at fault.
	Tag string
	// Reason says what is wrong with it.
	Reason string
}

func (e *AcquisitionTypeError) Error() string {
	return fmt.Sprintf("geometry tag %s: %s", e.Tag, e.Reason)
}

// Classify decides the acquisition layout from the stored grid extent.
// Anything with more than one voxel across rows, columns and frames is a
// multi-voxel grid.
func Classify(acq *dicom.Acquisition) (Kind, error) {
	rows, err := geometryInt(acq, "Rows")
	if err != nil {
		return 0, err
	}
	cols, err := geometryInt(acq, "Columns")
	if err != nil {
		return 0, err
	}
	frames, err := geometryInt(acq, "NumberOfFrames")
	if err != nil {
		return 0, err
	}

	if rows*cols*frames > 1 {
		return MultiVoxel, nil
	}
	return SingleVoxel, nil
}

// geometryInt reads a required non-negative geometry tag.
func geometryInt(acq *dicom.Acquisition, name string) (int, error) {
	v, err := acq.Int(name)
	if err != nil {
		return 0, &AcquisitionTypeError{Tag: name, Reason: reasonOf(err)}
	}
	if v < 0 {
		return 0, &AcquisitionTypeError{Tag: name, Reason: fmt.Sprintf("negative value %d", v)}
	}
	return v, nil
}

// geometryFloats reads a required geometry tag holding n numeric items.
func geometryFloats(acq *dicom.Acquisition, name string, n int) ([]float64, error) {
	vs, err := acq.Floats(name, n)
	if err != nil {
		return nil, &AcquisitionTypeError{Tag: name, Reason: reasonOf(err)}
	}
	return vs, nil
}

func reasonOf(err error) string {
	var mt *dicom.MissingTagError
	if errors.As(err, &mt) {
		return "missing"
	}
	return err.Error()
}
