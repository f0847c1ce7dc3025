package dicom

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeSamples(t *testing.T) {
	want := []float32{1.5, -2.25, 0, 3e7}
	raw := make([]byte, 4*len(want))
	for i, v := range want {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(v))
	}

	got, err := decodeSamples(raw)
	if err != nil {
		t.Fatalf("decodeSamples failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestDecodeSamplesRaggedLength(t *testing.T) {
	if _, err := decodeSamples(make([]byte, 10)); err == nil {
		t.Error("expected error for length not divisible by sample size")
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
		ok    bool
	}{
		{"string slice", []string{" SIEMENS "}, "SIEMENS", true},
		{"empty string slice", []string{}, "", false},
		{"int slice", []int{42}, "42", true},
		{"float slice", []float64{63.68}, "63.68", true},
		{"byte payload", []byte("svs_se\x00\x00"), "svs_se", true},
		{"unsupported", 3.14, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := valueString(tt.value)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("value = %q, want %q", got, tt.want)
			}
		})
	}
}
