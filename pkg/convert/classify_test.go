package convert

import (
	"errors"
	"strconv"
	"testing"

	"github.com/clemoune/spec2nii/pkg/dicom"
)

func gridAcq(rows, cols, frames int) *dicom.Acquisition {
	return &dicom.Acquisition{
		Tags: map[string][]string{
			"Rows":           {strconv.Itoa(rows)},
			"Columns":        {strconv.Itoa(cols)},
			"NumberOfFrames": {strconv.Itoa(frames)},
		},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name               string
		rows, cols, frames int
		want               Kind
	}{
		{"single voxel", 1, 1, 1, SingleVoxel},
		{"grid rows", 2, 1, 1, MultiVoxel},
		{"grid cols", 1, 8, 1, MultiVoxel},
		{"grid frames", 1, 1, 3, MultiVoxel},
		{"full grid", 16, 16, 4, MultiVoxel},
		{"zero extent", 0, 1, 1, SingleVoxel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(gridAcq(tt.rows, tt.cols, tt.frames))
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyBadTags(t *testing.T) {
	tests := []struct {
		name string
		acq  *dicom.Acquisition
		tag  string
	}{
		{
			name: "missing rows",
			acq: &dicom.Acquisition{Tags: map[string][]string{
				"Columns":        {"1"},
				"NumberOfFrames": {"1"},
			}},
			tag: "Rows",
		},
		{
			name: "non-numeric columns",
			acq: &dicom.Acquisition{Tags: map[string][]string{
				"Rows":           {"1"},
				"Columns":        {"wide"},
				"NumberOfFrames": {"1"},
			}},
			tag: "Columns",
		},
		{
			name: "negative frames",
			acq:  gridAcq(1, 1, -2),
			tag:  "NumberOfFrames",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.acq)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var ae *AcquisitionTypeError
			if !errors.As(err, &ae) {
				t.Fatalf("error type = %T, want *AcquisitionTypeError", err)
			}
			if ae.Tag != tt.tag {
				t.Errorf("error names tag %q, want %q", ae.Tag, tt.tag)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	if SingleVoxel.String() != "SVS" || MultiVoxel.String() != "CSI" {
		t.Errorf("Kind strings = %q/%q, want SVS/CSI", SingleVoxel, MultiVoxel)
	}
}
