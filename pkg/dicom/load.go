// Package dicom reads Siemens spectroscopy DICOM files. It decodes the
// generic DICOM layer, parses the vendor private header into a tag
// dictionary and extracts the raw spectroscopy sample buffer, handing the
// rest of the pipeline a plain Acquisition value.
package dicom

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	godicom "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/clemoune/spec2nii/internal/csa"
)

const (
	// Siemens private group holding the CSA headers, reserved by the
	// creator string below. The image header sits in slot 0x10 of the
	// reserved block.
	csaGroup     = 0x0029
	csaCreator   = "SIEMENS CSA HEADER"
	csaImageSlot = 0x10
	creatorLow   = 0x0010
	creatorHigh  = 0x00FF

	// Spectroscopy sample buffer element.
	dataGroup   = 0x7FE1
	dataElement = 0x1010
)

// flatFields maps the top-level DICOM fields the converter consumes to
// their standard tags.
var flatFields = map[string]tag.Tag{
	"Manufacturer":          {Group: 0x0008, Element: 0x0070},
	"ManufacturerModelName": {Group: 0x0008, Element: 0x1090},
	"DeviceSerialNumber":    {Group: 0x0018, Element: 0x1000},
	"SoftwareVersions":      {Group: 0x0018, Element: 0x1020},
	"InstitutionName":       {Group: 0x0008, Element: 0x0080},
	"InstitutionAddress":    {Group: 0x0008, Element: 0x0081},
	"ProtocolName":          {Group: 0x0018, Element: 0x1030},
	"SeriesDescription":     {Group: 0x0008, Element: 0x103E},
	"PatientPosition":       {Group: 0x0018, Element: 0x5100},
	"PatientName":           {Group: 0x0010, Element: 0x0010},
	"PatientWeight":         {Group: 0x0010, Element: 0x1030},
	"PatientBirthDate":      {Group: 0x0010, Element: 0x0030},
	"PatientSex":            {Group: 0x0010, Element: 0x0040},
}

// Load reads one spectroscopy file from disk.
func Load(path string) (*Acquisition, error) {
	ds, err := godicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DICOM file: %w", err)
	}

	tags, err := imageHeader(&ds)
	if err != nil {
		return nil, err
	}
	data, err := sampleBuffer(&ds)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(flatFields))
	for name, t := range flatFields {
		if v, ok := elementString(&ds, t); ok {
			fields[name] = v
		}
	}

	return &Acquisition{
		Path:   path,
		Tags:   tags,
		Fields: fields,
		Data:   data,
	}, nil
}

// imageHeader locates the CSA image header behind its private creator and
// parses it. The creator element's position within the group decides which
// block of elements the vendor reserved.
func imageHeader(ds *godicom.Dataset) (map[string][]string, error) {
	var base uint16
	found := false
	for _, el := range ds.Elements {
		if el.Tag.Group != csaGroup {
			continue
		}
		if el.Tag.Element < creatorLow || el.Tag.Element > creatorHigh {
			continue
		}
		if creator, ok := valueString(el.Value.GetValue()); ok && creator == csaCreator {
			base = el.Tag.Element << 8
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("no %s private creator, not a Siemens acquisition", csaCreator)
	}

	el, err := ds.FindElementByTag(tag.Tag{Group: csaGroup, Element: base | csaImageSlot})
	if err != nil {
		return nil, fmt.Errorf("CSA image header element absent: %w", err)
	}
	blob, ok := el.Value.GetValue().([]byte)
	if !ok {
		return nil, fmt.Errorf("CSA image header is not a byte stream")
	}
	hdr, err := csa.Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSA image header: %w", err)
	}
	return hdr, nil
}

// sampleBuffer extracts the interleaved float32 samples from the
// spectroscopy data element.
func sampleBuffer(ds *godicom.Dataset) ([]float32, error) {
	el, err := ds.FindElementByTag(tag.Tag{Group: dataGroup, Element: dataElement})
	if err != nil {
		return nil, fmt.Errorf("spectroscopy data element absent: %w", err)
	}
	raw, ok := el.Value.GetValue().([]byte)
	if !ok {
		return nil, fmt.Errorf("spectroscopy data element is not a byte stream")
	}
	return decodeSamples(raw)
}

// decodeSamples reinterprets the element payload as little-endian float32
// values.
func decodeSamples(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("spectroscopy data length %d is not a whole number of samples", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[4*i:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// elementString reads a top-level element as a single trimmed string.
func elementString(ds *godicom.Dataset, t tag.Tag) (string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return "", false
	}
	return valueString(el.Value.GetValue())
}

// valueString renders the first entry of a decoded element value, whatever
// the decoder produced for its VR.
func valueString(v interface{}) (string, bool) {
	switch vv := v.(type) {
	case []string:
		if len(vv) == 0 {
			return "", false
		}
		return strings.TrimSpace(vv[0]), true
	case []int:
		if len(vv) == 0 {
			return "", false
		}
		return strconv.Itoa(vv[0]), true
	case []float64:
		if len(vv) == 0 {
			return "", false
		}
		return strconv.FormatFloat(vv[0], 'g', -1, 64), true
	case []byte:
		return strings.TrimRight(string(vv), "\x00 "), true
	}
	return "", false
}
