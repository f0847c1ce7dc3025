package dicom

import (
	"fmt"
	"strconv"
	"strings"
)

// MissingTagError reports a required tag or field absent from a file.
type MissingTagError struct {
	// Tag is the name of the absent tag.
	Tag string
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("required tag %s is missing", e.Tag)
}

// Acquisition is the decoded content of one spectroscopy DICOM file. It is
// the only view of the file the conversion pipeline sees; nothing past the
// loader touches on-disk bytes.
type Acquisition struct {
	// Path is the file the acquisition was read from.
	Path string

	// Tags is the vendor private-header dictionary. Each named tag
	// resolves to an ordered list of zero or more scalar items, kept as
	// strings. A present tag with no items maps to an empty slice.
	Tags map[string][]string

	// Fields holds the flat top-level DICOM fields by keyword.
	Fields map[string]string

	// Data is the interleaved (real, imaginary) float32 sample buffer.
	Data []float32
}

// Items returns the raw items of a private-header tag and whether the tag
// is present at all.
func (a *Acquisition) Items(name string) ([]string, bool) {
	items, ok := a.Tags[name]
	return items, ok
}

// Int returns the first item of a required tag as an integer.
func (a *Acquisition) Int(name string) (int, error) {
	s, err := a.Text(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("tag %s: item %q is not an integer", name, s)
	}
	return v, nil
}

// Float returns the first item of a required tag as a float.
func (a *Acquisition) Float(name string) (float64, error) {
	vs, err := a.Floats(name, 1)
	if err != nil {
		return 0, err
	}
	return vs[0], nil
}

// Floats returns the first n items of a required tag as floats. The tag
// must carry at least n items.
func (a *Acquisition) Floats(name string, n int) ([]float64, error) {
	items, ok := a.Tags[name]
	if !ok || len(items) == 0 {
		return nil, &MissingTagError{Tag: name}
	}
	if len(items) < n {
		return nil, fmt.Errorf("tag %s: has %d items, need %d", name, len(items), n)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(items[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("tag %s: item %q is not a number", name, items[i])
		}
		out[i] = v
	}
	return out, nil
}

// Text returns the first item of a required tag verbatim.
func (a *Acquisition) Text(name string) (string, error) {
	items, ok := a.Tags[name]
	if !ok || len(items) == 0 {
		return "", &MissingTagError{Tag: name}
	}
	return items[0], nil
}

// Field returns a required flat top-level field.
func (a *Acquisition) Field(name string) (string, error) {
	v, ok := a.Fields[name]
	if !ok {
		return "", &MissingTagError{Tag: name}
	}
	return v, nil
}
