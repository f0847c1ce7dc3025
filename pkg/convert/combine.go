package convert

import (
	"fmt"

	"github.com/clemoune/spec2nii/pkg/header"
	"github.com/clemoune/spec2nii/pkg/orientation"
	"github.com/clemoune/spec2nii/pkg/spectrum"
)

// Output is one terminal output unit handed to the serializer. It is
// never mutated after creation.
type Output struct {
	// Spectrum is the complex data to serialize.
	Spectrum *spectrum.Spectrum

	// Orientation places the data in scanner space.
	Orientation *orientation.Matrix

	// DwellTime is the spectral sampling interval in seconds.
	DwellTime float64

	// Meta is the header extension, provenance included.
	Meta *header.Extension

	// Name is the output base name, extension left to the serializer.
	Name string
}

// Combinable reports whether every result shares an identical spectrum
// shape, an element-wise equal orientation and an equal dwell time. The
// comparison is exact; acquisitions differing by any amount stay separate.
func Combinable(results []*Result) bool {
	if len(results) < 2 {
		return true
	}
	for _, r := range results[1:] {
		if !r.Spectrum.ShapeEqual(results[0].Spectrum) {
			return false
		}
		if !r.Orientation.Equal(results[0].Orientation) {
			return false
		}
		if r.DwellTime != results[0].DwellTime {
			return false
		}
	}
	return true
}

// Combine applies the batch-level decision to the per-file results, in
// input order. Matching results collapse into one output whose data gains
// a trailing axis of length N; otherwise each result becomes its own
// numbered output. A pure transformation, no I/O.
func Combine(results []*Result, dimTag, nameOverride string) ([]*Output, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no conversion results to combine")
	}
	stem, err := outputStem(results[0], nameOverride)
	if err != nil {
		return nil, err
	}

	if !Combinable(results) {
		outputs := make([]*Output, len(results))
		for i, r := range results {
			if err := r.Meta.SetStandard("OriginalFile", []string{r.Source}); err != nil {
				return nil, err
			}
			outputs[i] = &Output{
				Spectrum:    r.Spectrum,
				Orientation: r.Orientation,
				DwellTime:   r.DwellTime,
				Meta:        r.Meta,
				Name:        fmt.Sprintf("%s_%03d", stem, i),
			}
		}
		return outputs, nil
	}

	spectra := make([]*spectrum.Spectrum, len(results))
	sources := make([]string, len(results))
	for i, r := range results {
		spectra[i] = r.Spectrum
		sources[i] = r.Source
	}
	stacked, err := spectrum.Stack(spectra)
	if err != nil {
		return nil, err
	}

	meta := results[0].Meta
	if err := meta.SetStandard("OriginalFile", sources); err != nil {
		return nil, err
	}
	if dimTag != "" {
		if err := meta.SetDimTag(0, dimTag); err != nil {
			return nil, err
		}
	}

	return []*Output{{
		Spectrum:    stacked,
		Orientation: results[0].Orientation,
		DwellTime:   results[0].DwellTime,
		Meta:        meta,
		Name:        stem,
	}}, nil
}

// outputStem resolves the base output name: the caller's override when
// given, else the first file's protocol name.
func outputStem(first *Result, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	v, ok := first.Meta.Get("ProtocolName")
	if !ok {
		return "", fmt.Errorf("first result carries no protocol name to derive an output name from")
	}
	name, ok := v.(string)
	if !ok || name == "" {
		return "", fmt.Errorf("protocol name %v is unusable as an output name", v)
	}
	return name, nil
}
