package csa

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"strconv"
	"testing"
)

type testTag struct {
	name  string
	items []string
}

// buildBlob assembles a CSA2 blob the way the scanner lays it out:
// NUL-terminated items for non-empty values, zero-length entries for
// empty ones.
func buildBlob(t *testing.T, tags []testTag) []byte {
	t.Helper()
	var buf bytes.Buffer
	le := binary.LittleEndian

	buf.WriteString("SV10")
	buf.Write([]byte{4, 3, 2, 1})
	binary.Write(&buf, le, uint32(len(tags)))
	binary.Write(&buf, le, uint32(77))

	for _, tg := range tags {
		name := make([]byte, tagNameLen)
		copy(name, tg.name)
		buf.Write(name)
		binary.Write(&buf, le, int32(len(tg.items))) // vm
		buf.Write([]byte{'F', 'D', 0, 0})            // vr
		binary.Write(&buf, le, int32(6))             // syngodt
		binary.Write(&buf, le, int32(len(tg.items))) // n_items
		binary.Write(&buf, le, int32(77))            // check

		for _, it := range tg.items {
			var payload []byte
			if it != "" {
				payload = append([]byte(it), 0)
			}
			binary.Write(&buf, le, int32(len(payload)))
			binary.Write(&buf, le, int32(len(payload)))
			binary.Write(&buf, le, int32(77))
			binary.Write(&buf, le, int32(len(payload)))
			buf.Write(payload)
			if pad := len(payload) % 4; pad != 0 {
				buf.Write(make([]byte, 4-pad))
			}
		}
	}
	return buf.Bytes()
}

func TestParse(t *testing.T) {
	blob := buildBlob(t, []testTag{
		{name: "RealDwellTime", items: []string{"2500"}},
		{name: "ImagedNucleus", items: []string{"1H"}},
		{name: "VoiPosition", items: []string{"-2.1", "15.0", "38.5"}},
		{name: "InversionTime", items: nil},
	})

	hdr, err := Parse(blob)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(hdr) != 4 {
		t.Fatalf("parsed %d tags, want 4", len(hdr))
	}

	want := map[string][]string{
		"RealDwellTime": {"2500"},
		"ImagedNucleus": {"1H"},
		"VoiPosition":   {"-2.1", "15.0", "38.5"},
		"InversionTime": {},
	}
	for name, items := range want {
		got, ok := hdr[name]
		if !ok {
			t.Errorf("tag %q missing", name)
			continue
		}
		if len(got) == 0 && len(items) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, items) {
			t.Errorf("tag %q = %v, want %v", name, got, items)
		}
	}
}

func TestParseDropsTrailingEmptyItems(t *testing.T) {
	blob := buildBlob(t, []testTag{
		{name: "EchoTime", items: []string{"30.0", "", "", ""}},
	})
	hdr, err := Parse(blob)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := hdr["EchoTime"]; !reflect.DeepEqual(got, []string{"30.0"}) {
		t.Errorf("EchoTime items = %v, want [30.0]", got)
	}
}

func TestParseBadMagic(t *testing.T) {
	blob := buildBlob(t, []testTag{{name: "EchoTime", items: []string{"30"}}})
	copy(blob, "XXXX")
	if _, err := Parse(blob); !errors.Is(err, ErrFormat) {
		t.Errorf("error = %v, want ErrFormat", err)
	}
}

func TestParseTruncated(t *testing.T) {
	blob := buildBlob(t, []testTag{
		{name: "RealDwellTime", items: []string{"2500"}},
	})
	for _, cut := range []int{4, 12, 20, len(blob) - 3} {
		if _, err := Parse(blob[:cut]); err == nil {
			t.Errorf("Parse of %d-byte prefix succeeded, want error", cut)
		}
	}
}

func TestParseImplausibleTagCount(t *testing.T) {
	blob := buildBlob(t, []testTag{{name: "EchoTime", items: []string{"30"}}})
	binary.LittleEndian.PutUint32(blob[8:], 5000)
	if _, err := Parse(blob); err == nil {
		t.Error("expected error for implausible tag count")
	}
}

// Item runs are bounded separately from the tag directory: a coil-array
// tag can carry far more items than a header carries tags.
func TestParseLongItemRun(t *testing.T) {
	items := make([]string, 200)
	for i := range items {
		items[i] = strconv.Itoa(i)
	}
	blob := buildBlob(t, []testTag{{name: "UsedChannelString", items: items}})

	hdr, err := Parse(blob)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := hdr["UsedChannelString"]
	if len(got) != 200 {
		t.Fatalf("parsed %d items, want 200", len(got))
	}
	if got[0] != "0" || got[199] != "199" {
		t.Errorf("items run [%s ... %s], want [0 ... 199]", got[0], got[199])
	}
}

func TestParseImplausibleItemCount(t *testing.T) {
	blob := buildBlob(t, []testTag{{name: "EchoTime", items: []string{"30"}}})
	// n_items word of the first tag record.
	binary.LittleEndian.PutUint32(blob[92:], 1<<20)
	if _, err := Parse(blob); err == nil {
		t.Error("expected error for implausible item count")
	}
}
