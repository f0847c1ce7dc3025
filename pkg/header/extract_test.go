package header

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/clemoune/spec2nii/pkg/dicom"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 14, 9, 30, 15, 123_000_000, time.UTC)
}

func testAcq() *dicom.Acquisition {
	return &dicom.Acquisition{
		Path: "/scans/meas.dcm",
		Tags: map[string][]string{
			"ImagingFrequency": {"123.25"},
			"ImagedNucleus":    {"1H"},
			"ReceivingCoil":    {"HeadMatrix"},
			"ImaCoilString":    {"HE1-4"},
			"SequenceName":     {"*svs_se"},
			"EchoTime":         {"30.0"},
			"InversionTime":    {},
			"FlipAngle":        {"90.0"},
			"RepetitionTime":   {"2000.0"},
		},
		Fields: map[string]string{
			"Manufacturer":          "SIEMENS",
			"ManufacturerModelName": "Prisma",
			"DeviceSerialNumber":    "45123",
			"SoftwareVersions":      "syngo MR E11",
			"InstitutionName":       "Example Hospital",
			"InstitutionAddress":    "1 Example Way",
			"ProtocolName":          "svs_se_30",
			"PatientPosition":       "HFS",
			"PatientName":           "Doe^Jane",
			"PatientWeight":         "72.5",
			"PatientBirthDate":      "19800101",
			"PatientSex":            "F",
		},
	}
}

func mustExtract(t *testing.T, acq *dicom.Acquisition) *Extension {
	t.Helper()
	ext, err := Extract(acq, fixedClock)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	return ext
}

func getFloat(t *testing.T, ext *Extension, key string) float64 {
	t.Helper()
	v, ok := ext.Get(key)
	if !ok {
		t.Fatalf("field %s not set", key)
	}
	f, ok := v.(float64)
	if !ok {
		t.Fatalf("field %s is %T, want float64", key, v)
	}
	return f
}

func TestExtract(t *testing.T) {
	ext := mustExtract(t, testAcq())

	if ext.Frequency() != 123.25 {
		t.Errorf("Frequency = %g, want 123.25", ext.Frequency())
	}
	if ext.Nucleus() != "1H" {
		t.Errorf("Nucleus = %q, want 1H", ext.Nucleus())
	}

	strings := map[string]string{
		"Manufacturer":           "SIEMENS",
		"ManufacturersModelName": "Prisma",
		"SequenceName":           "*svs_se",
		"ProtocolName":           "svs_se_30",
		"PatientPosition":        "HFS",
		"PatientName":            "Doe",
		"PatientDoB":             "19800101",
		"PatientSex":             "F",
		"ConversionMethod":       "spec2nii",
		"ConversionTime":         "2024-05-14T09:30:15.123",
	}
	for key, want := range strings {
		v, ok := ext.Get(key)
		if !ok {
			t.Errorf("field %s not set", key)
			continue
		}
		if v != want {
			t.Errorf("field %s = %v, want %q", key, v, want)
		}
	}

	if w := getFloat(t, ext, "PatientWeight"); w != 72.5 {
		t.Errorf("PatientWeight = %g, want 72.5", w)
	}
	if f := getFloat(t, ext, "ExcitationFlipAngle"); f != 90 {
		t.Errorf("ExcitationFlipAngle = %g, want 90", f)
	}
}

func TestTimingUnitsAreSeconds(t *testing.T) {
	ext := mustExtract(t, testAcq())

	if te := getFloat(t, ext, "EchoTime"); math.Abs(te-0.030) > 1e-12 {
		t.Errorf("EchoTime = %g s, want 0.030", te)
	}
	if tr := getFloat(t, ext, "RepetitionTime"); math.Abs(tr-2.0) > 1e-12 {
		t.Errorf("RepetitionTime = %g s, want 2.0", tr)
	}
}

func TestReceiveCoilFallback(t *testing.T) {
	acq := testAcq()
	ext := mustExtract(t, acq)
	if v, _ := ext.Get("ReceiveCoilName"); v != "HeadMatrix" {
		t.Errorf("ReceiveCoilName = %v, want primary tag value", v)
	}

	acq.Tags["ReceivingCoil"] = []string{}
	ext = mustExtract(t, acq)
	if v, _ := ext.Get("ReceiveCoilName"); v != "HE1-4" {
		t.Errorf("ReceiveCoilName = %v, want fallback tag value", v)
	}

	delete(acq.Tags, "ReceivingCoil")
	delete(acq.Tags, "ImaCoilString")
	if _, err := Extract(acq, fixedClock); err == nil {
		t.Error("expected error when both coil tags are gone")
	}
}

func TestInversionTimeOmitted(t *testing.T) {
	ext := mustExtract(t, testAcq())
	if _, ok := ext.Get("InversionTime"); ok {
		t.Error("InversionTime set despite empty source tag")
	}

	acq := testAcq()
	acq.Tags["InversionTime"] = []string{"300.0"}
	ext = mustExtract(t, acq)
	// Kept as reported, no unit conversion on this one.
	if ti := getFloat(t, ext, "InversionTime"); ti != 300.0 {
		t.Errorf("InversionTime = %g, want 300.0", ti)
	}
}

func TestExtractMissingTag(t *testing.T) {
	tests := []struct {
		name string
		drop func(*dicom.Acquisition)
		tag  string
	}{
		{"csa tag", func(a *dicom.Acquisition) { delete(a.Tags, "EchoTime") }, "EchoTime"},
		{"flat field", func(a *dicom.Acquisition) { delete(a.Fields, "PatientSex") }, "PatientSex"},
		{"frequency", func(a *dicom.Acquisition) { delete(a.Tags, "ImagingFrequency") }, "ImagingFrequency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acq := testAcq()
			tt.drop(acq)
			_, err := Extract(acq, fixedClock)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var mm *MissingMetadataError
			if !errors.As(err, &mm) {
				t.Fatalf("error type = %T, want *MissingMetadataError", err)
			}
			if mm.Tag != tt.tag {
				t.Errorf("error names tag %q, want %q", mm.Tag, tt.tag)
			}
		})
	}
}
