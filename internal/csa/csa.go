// Package csa parses the Siemens CSA2 private header format.
//
// A CSA2 blob is a little-endian tag directory: an "SV10" preamble, a tag
// count, then per-tag records of a fixed-width name, value multiplicity,
// VR code and a run of length-prefixed items padded to four-byte
// boundaries. Items are kept as strings; callers parse numerics at access
// time.
package csa

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Header is one parsed CSA2 block, tag name to ordered items. A tag with
// no items maps to an empty slice, which tells an empty tag apart from an
// absent one.
type Header map[string][]string

// ErrFormat reports a blob that does not start with the CSA2 preamble.
var ErrFormat = errors.New("csa: not a CSA2 header")

const (
	headerMagic = "SV10"

	// preambleLen covers the magic and the four unused bytes after it.
	preambleLen = 8

	// maxTags bounds the tag count field. Scanner headers carry on the
	// order of a hundred tags; anything larger is corruption.
	maxTags = 128

	// maxItems bounds a single tag's item run. Multiplicities reach the
	// low hundreds on large coil arrays; anything larger is corruption.
	maxItems = 1024

	tagNameLen = 64
)

// Parse decodes a CSA2 blob into its tag directory.
func Parse(blob []byte) (Header, error) {
	r := &reader{buf: blob}

	pre, err := r.bytes(preambleLen)
	if err != nil {
		return nil, ErrFormat
	}
	if string(pre[:len(headerMagic)]) != headerMagic {
		return nil, ErrFormat
	}

	nTags, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if nTags == 0 || nTags > maxTags {
		return nil, fmt.Errorf("csa: implausible tag count %d", nTags)
	}
	if _, err := r.uint32(); err != nil { // unused check field
		return nil, err
	}

	hdr := make(Header, nTags)
	for t := uint32(0); t < nTags; t++ {
		name, nItems, err := r.tagRecord()
		if err != nil {
			return nil, fmt.Errorf("csa: tag %d: %v", t, err)
		}
		items := make([]string, 0, nItems)
		for i := 0; i < nItems; i++ {
			item, err := r.item()
			if err != nil {
				return nil, fmt.Errorf("csa: tag %q item %d: %v", name, i, err)
			}
			items = append(items, item)
		}
		// Numeric tags pad their item run with empty entries.
		for len(items) > 0 && items[len(items)-1] == "" {
			items = items[:len(items)-1]
		}
		hdr[name] = items
	}
	return hdr, nil
}

// reader is a bounds-checked cursor over the blob.
type reader struct {
	buf []byte
	off int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf)-r.off {
		return nil, fmt.Errorf("truncated at byte %d", r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) int32() (int32, error) {
	v, err := r.uint32()
	return int32(v), err
}

// tagRecord reads one tag header and returns the tag name and its item
// count. The multiplicity, VR, syngo type and check fields are not
// needed, items carry their own lengths.
func (r *reader) tagRecord() (string, int, error) {
	rawName, err := r.bytes(tagNameLen)
	if err != nil {
		return "", 0, err
	}
	if _, err := r.bytes(4 + 4 + 4); err != nil { // vm, vr, syngodt
		return "", 0, err
	}
	nItems, err := r.int32()
	if err != nil {
		return "", 0, err
	}
	if nItems < 0 || nItems > maxItems {
		return "", 0, fmt.Errorf("implausible item count %d", nItems)
	}
	if _, err := r.int32(); err != nil { // check
		return "", 0, err
	}
	return cString(rawName), int(nItems), nil
}

// item reads one length-prefixed item and skips its alignment padding.
// The length lives in the second of four prefix words.
func (r *reader) item() (string, error) {
	if _, err := r.int32(); err != nil {
		return "", err
	}
	length, err := r.int32()
	if err != nil {
		return "", err
	}
	if _, err := r.bytes(4 + 4); err != nil {
		return "", err
	}
	if length < 0 {
		return "", fmt.Errorf("negative item length %d", length)
	}
	data, err := r.bytes(int(length))
	if err != nil {
		return "", err
	}
	if pad := int(length) % 4; pad != 0 {
		if _, err := r.bytes(4 - pad); err != nil {
			return "", err
		}
	}
	return cString(data), nil
}

// cString cuts b at the first NUL.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
