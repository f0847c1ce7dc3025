package header

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clemoune/spec2nii/pkg/dicom"
)

// ConversionMethod identifies this tool in converted headers.
const ConversionMethod = "spec2nii"

// timestampFormat stamps conversions with millisecond precision.
const timestampFormat = "2006-01-02T15:04:05.000"

// Clock supplies the wall time for the conversion timestamp. Tests inject
// a fixed clock for deterministic output.
type Clock func() time.Time

// Extract builds the header extension for one acquisition. Scanner tags
// are read through the typed accessors; a missing required tag surfaces as
// a MissingMetadataError naming it.
func Extract(acq *dicom.Acquisition, now Clock) (*Extension, error) {
	freq, err := acq.Float("ImagingFrequency")
	if err != nil {
		return nil, asMetadataError(err)
	}
	nucleus, err := acq.Text("ImagedNucleus")
	if err != nil {
		return nil, asMetadataError(err)
	}
	ext, err := New(freq, nucleus)
	if err != nil {
		return nil, err
	}

	// Scanner identity.
	for _, key := range []string{
		"Manufacturer",
		"ManufacturersModelName",
		"DeviceSerialNumber",
		"SoftwareVersions",
		"InstitutionName",
		"InstitutionAddress",
	} {
		v, err := acq.Field(fieldSource(key))
		if err != nil {
			return nil, asMetadataError(err)
		}
		if err := ext.SetStandard(key, v); err != nil {
			return nil, err
		}
	}

	coil, err := receiveCoil(acq)
	if err != nil {
		return nil, err
	}
	ext.SetUserDef("ReceiveCoilName", coil, "Rx coil name.")

	// Sequence identity.
	seqName, err := acq.Text("SequenceName")
	if err != nil {
		return nil, asMetadataError(err)
	}
	if err := ext.SetStandard("SequenceName", seqName); err != nil {
		return nil, err
	}
	protocol, err := acq.Field("ProtocolName")
	if err != nil {
		return nil, asMetadataError(err)
	}
	if err := ext.SetStandard("ProtocolName", protocol); err != nil {
		return nil, err
	}
	ext.SetUserDef("PulseSequenceFile", seqName, "Sequence binary path.")

	// Subject.
	if err := setPatient(ext, acq); err != nil {
		return nil, err
	}

	// Timing, with the scanner's millisecond tags rescaled to seconds.
	te, err := acq.Float("EchoTime")
	if err != nil {
		return nil, asMetadataError(err)
	}
	if err := ext.SetStandard("EchoTime", te*1e-3); err != nil {
		return nil, err
	}
	if items, ok := acq.Items("InversionTime"); ok && len(items) > 0 {
		ti, err := acq.Float("InversionTime")
		if err != nil {
			return nil, asMetadataError(err)
		}
		if err := ext.SetStandard("InversionTime", ti); err != nil {
			return nil, err
		}
	}
	flip, err := acq.Float("FlipAngle")
	if err != nil {
		return nil, asMetadataError(err)
	}
	if err := ext.SetStandard("ExcitationFlipAngle", flip); err != nil {
		return nil, err
	}
	tr, err := acq.Float("RepetitionTime")
	if err != nil {
		return nil, asMetadataError(err)
	}
	if err := ext.SetStandard("RepetitionTime", tr/1e3); err != nil {
		return nil, err
	}

	// Provenance.
	if err := ext.SetStandard("ConversionMethod", ConversionMethod); err != nil {
		return nil, err
	}
	if err := ext.SetStandard("ConversionTime", now().Format(timestampFormat)); err != nil {
		return nil, err
	}
	return ext, nil
}

// receiveCoil resolves the receive-coil name, preferring the dedicated tag
// and falling back to the coil-string tag when that one carries no items.
func receiveCoil(acq *dicom.Acquisition) (string, error) {
	if items, ok := acq.Items("ReceivingCoil"); ok && len(items) > 0 {
		return items[0], nil
	}
	coil, err := acq.Text("ImaCoilString")
	if err != nil {
		return "", asMetadataError(err)
	}
	return coil, nil
}

func setPatient(ext *Extension, acq *dicom.Acquisition) error {
	pos, err := acq.Field("PatientPosition")
	if err != nil {
		return asMetadataError(err)
	}
	if err := ext.SetStandard("PatientPosition", pos); err != nil {
		return err
	}

	name, err := acq.Field("PatientName")
	if err != nil {
		return asMetadataError(err)
	}
	if err := ext.SetStandard("PatientName", familyName(name)); err != nil {
		return err
	}

	weight, err := acq.Field("PatientWeight")
	if err != nil {
		return asMetadataError(err)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(weight), 64)
	if err != nil {
		return fmt.Errorf("PatientWeight %q is not a number", weight)
	}
	if err := ext.SetStandard("PatientWeight", w); err != nil {
		return err
	}

	dob, err := acq.Field("PatientBirthDate")
	if err != nil {
		return asMetadataError(err)
	}
	if err := ext.SetStandard("PatientDoB", dob); err != nil {
		return err
	}

	sex, err := acq.Field("PatientSex")
	if err != nil {
		return asMetadataError(err)
	}
	return ext.SetStandard("PatientSex", sex)
}

// fieldSource maps an extension key to the flat DICOM keyword it is read
// from. Most match; the model-name key differs by one possessive.
func fieldSource(key string) string {
	if key == "ManufacturersModelName" {
		return "ManufacturerModelName"
	}
	return key
}

// familyName cuts a person-name value down to its family component, the
// part before the first caret separator.
func familyName(pn string) string {
	if i := strings.IndexByte(pn, '^'); i >= 0 {
		return pn[:i]
	}
	return pn
}

// asMetadataError converts a missing-tag failure from the accessor layer
// into the converter's metadata error; anything else passes through.
func asMetadataError(err error) error {
	var mt *dicom.MissingTagError
	if errors.As(err, &mt) {
		return &MissingMetadataError{Tag: mt.Tag}
	}
	return err
}
