// Package header builds the MRS header extension carried inside converted
// containers: the spectrometer frequency and nucleus, the standard field
// set and free-form user fields, serialized as a single ordered JSON
// object.
package header

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MissingMetadataError reports a required scanner tag absent from the
// acquisition.
type MissingMetadataError struct {
	// Tag is the name of the absent source tag.
	Tag string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("required metadata tag %s is missing", e.Tag)
}

// standardFields is the fixed set of standard-defined keys. SetStandard
// rejects anything outside it; free-form entries go through SetUserDef.
var standardFields = map[string]bool{
	"EchoTime":               true,
	"RepetitionTime":         true,
	"InversionTime":          true,
	"MixingTime":             true,
	"ExcitationFlipAngle":    true,
	"TxOffset":               true,
	"VOI":                    true,
	"WaterSuppressed":        true,
	"WaterSuppressionType":   true,
	"SequenceTriggered":      true,
	"Manufacturer":           true,
	"ManufacturersModelName": true,
	"DeviceSerialNumber":     true,
	"SoftwareVersions":       true,
	"InstitutionName":        true,
	"InstitutionAddress":     true,
	"TxCoil":                 true,
	"RxCoil":                 true,
	"SequenceName":           true,
	"ProtocolName":           true,
	"PatientPosition":        true,
	"PatientName":            true,
	"PatientID":              true,
	"PatientWeight":          true,
	"PatientDoB":             true,
	"PatientSex":             true,
	"ConversionMethod":       true,
	"ConversionTime":         true,
	"OriginalFile":           true,
	"kSpace":                 true,
}

// dimTags is the set of legal dimension-tag labels for the 5th to 7th
// data dimensions.
var dimTags = map[string]bool{
	"DIM_COIL":        true,
	"DIM_DYN":         true,
	"DIM_INDIRECT_0":  true,
	"DIM_INDIRECT_1":  true,
	"DIM_INDIRECT_2":  true,
	"DIM_PHASE_CYCLE": true,
	"DIM_EDIT":        true,
	"DIM_MEAS":        true,
	"DIM_USER_0":      true,
	"DIM_USER_1":      true,
	"DIM_USER_2":      true,
	"DIM_ISIS":        true,
}

// entry is one header field in insertion order. User entries carry a
// documentation string and serialize as a value/description pair.
type entry struct {
	key   string
	value interface{}
	doc   string
	user  bool
}

// userValue is the serialized form of a user-defined entry.
type userValue struct {
	Value       interface{} `json:"Value"`
	Description string      `json:"Description"`
}

// Extension is the MRS header extension for one output. The two
// construction constants are mandatory; every other field is added
// through the setters and serialized in insertion order.
type Extension struct {
	frequency float64
	nucleus   string
	entries   []entry
	index     map[string]int
}

// New creates an extension from the two mandatory acquisition constants,
// the spectrometer frequency in MHz and the resonant nucleus.
func New(frequencyMHz float64, nucleus string) (*Extension, error) {
	if frequencyMHz <= 0 {
		return nil, fmt.Errorf("spectrometer frequency must be positive, got %g", frequencyMHz)
	}
	if nucleus == "" {
		return nil, fmt.Errorf("resonant nucleus must not be empty")
	}
	return &Extension{
		frequency: frequencyMHz,
		nucleus:   nucleus,
		index:     make(map[string]int),
	}, nil
}

// Frequency returns the spectrometer frequency in MHz.
func (e *Extension) Frequency() float64 { return e.frequency }

// Nucleus returns the resonant nucleus identifier.
func (e *Extension) Nucleus() string { return e.nucleus }

// SetStandard sets a standard-defined field. Setting a key twice replaces
// the value but keeps the original position.
func (e *Extension) SetStandard(key string, value interface{}) error {
	if !standardFields[key] {
		return fmt.Errorf("%s is not a standard-defined field", key)
	}
	e.set(entry{key: key, value: value})
	return nil
}

// SetUserDef sets a free-form field with a documentation string.
func (e *Extension) SetUserDef(key string, value interface{}, doc string) {
	e.set(entry{key: key, value: value, doc: doc, user: true})
}

// SetDimTag annotates data dimension dim (0 for the 5th container axis,
// up to 2 for the 7th) with a dimension-tag label.
func (e *Extension) SetDimTag(dim int, tag string) error {
	if dim < 0 || dim > 2 {
		return fmt.Errorf("dimension index %d out of range", dim)
	}
	if !dimTags[tag] {
		return fmt.Errorf("%q is not a dimension tag", tag)
	}
	e.set(entry{key: fmt.Sprintf("dim_%d", dim+5), value: tag})
	return nil
}

func (e *Extension) set(en entry) {
	if i, ok := e.index[en.key]; ok {
		e.entries[i] = en
		return
	}
	e.index[en.key] = len(e.entries)
	e.entries = append(e.entries, en)
}

// Get returns a previously set field value.
func (e *Extension) Get(key string) (interface{}, bool) {
	i, ok := e.index[key]
	if !ok {
		return nil, false
	}
	return e.entries[i].value, true
}

// MarshalJSON writes the extension as one JSON object: the two mandatory
// constants first, each as a single-element array, then every field in
// insertion order.
func (e *Extension) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(key string, value interface{}) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return err
		}
		vb, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return nil
	}

	if err := write("SpectrometerFrequency", []float64{e.frequency}); err != nil {
		return nil, err
	}
	if err := write("ResonantNucleus", []string{e.nucleus}); err != nil {
		return nil, err
	}
	for _, en := range e.entries {
		v := en.value
		if en.user {
			v = userValue{Value: en.value, Description: en.doc}
		}
		if err := write(en.key, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
