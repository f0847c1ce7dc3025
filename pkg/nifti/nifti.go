// Package nifti serializes conversion outputs as NIfTI-2 containers with
// the MRS header extension. Data is stored as little-endian complex64 in
// Fortran axis order; the extension rides between header and data as one
// JSON block.
package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/clemoune/spec2nii/pkg/convert"
)

const (
	headerSize = 540

	// COMPLEX64: two float32 per sample.
	datatypeComplex64 = 32
	bitpixComplex64   = 64

	// Scanner-anatomy aligned sform; the qform is left unset.
	sformAligned = 2

	// Millimetre spatial units with second temporal units.
	unitsMMSec = 10

	// Registered extension code for the MRS JSON block.
	ecodeMRS = 44

	// Container format version carried in intent_name.
	intentMRS = "mrs_v0_2"

	maxDims = 7
)

var magic = [8]byte{'n', '+', '2', 0, '\r', '\n', 0x1a, '\n'}

// header2 is the 540-byte NIfTI-2 header, fields in file order.
type header2 struct {
	SizeOfHdr     int32
	Magic         [8]byte
	Datatype      int16
	Bitpix        int16
	Dim           [8]int64
	IntentP1      float64
	IntentP2      float64
	IntentP3      float64
	Pixdim        [8]float64
	VoxOffset     int64
	SclSlope      float64
	SclInter      float64
	CalMax        float64
	CalMin        float64
	SliceDuration float64
	Toffset       float64
	SliceStart    int64
	SliceEnd      int64
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int32
	SformCode     int32
	QuaternB      float64
	QuaternC      float64
	QuaternD      float64
	QoffsetX      float64
	QoffsetY      float64
	QoffsetZ      float64
	SrowX         [4]float64
	SrowY         [4]float64
	SrowZ         [4]float64
	SliceCode     int32
	XyztUnits     int32
	IntentCode    int32
	IntentName    [16]byte
	DimInfo       byte
	UnusedStr     [15]byte
}

// WriteOptions control where and how WriteFile lands the container.
type WriteOptions struct {
	// Dir is the output directory. Empty means the working directory.
	Dir string

	// Compress gzips the container and names it .nii.gz.
	Compress bool

	// Sidecar additionally dumps the header extension as a .json file
	// next to the container.
	Sidecar bool
}

// WriteFile serializes one output unit to disk and returns the paths it
// wrote.
func WriteFile(out *convert.Output, opts WriteOptions) ([]string, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	var buf bytes.Buffer
	ext := ".nii"
	if opts.Compress {
		ext = ".nii.gz"
		gz := gzip.NewWriter(&buf)
		if err := Write(gz, out); err != nil {
			return nil, err
		}
		if err := gz.Close(); err != nil {
			return nil, fmt.Errorf("failed to compress %s: %w", out.Name, err)
		}
	} else {
		if err := Write(&buf, out); err != nil {
			return nil, err
		}
	}

	container := filepath.Join(dir, out.Name+ext)
	if err := os.WriteFile(container, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", container, err)
	}
	paths := []string{container}

	if opts.Sidecar {
		sidecar := filepath.Join(dir, out.Name+".json")
		js, err := json.MarshalIndent(out.Meta, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode sidecar for %s: %w", out.Name, err)
		}
		if err := os.WriteFile(sidecar, js, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", sidecar, err)
		}
		paths = append(paths, sidecar)
	}
	return paths, nil
}

// Write serializes one output unit as an uncompressed container stream.
func Write(w io.Writer, out *convert.Output) error {
	shape := trimmedShape(out)
	if len(shape) > maxDims {
		return fmt.Errorf("%d data dimensions exceed the container's %d", len(shape), maxDims)
	}

	extension, err := extensionBlock(out)
	if err != nil {
		return err
	}

	hdr := buildHeader(out, shape, int64(headerSize+len(extension)))
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(extension); err != nil {
		return fmt.Errorf("failed to write header extension: %w", err)
	}
	if _, err := w.Write(dataBlock(out, shape)); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

// trimmedShape drops trailing singleton axes beyond the fourth. The four
// spatial and spectral axes always stay, singleton or not.
func trimmedShape(out *convert.Output) []int {
	shape := out.Spectrum.Shape()
	for len(shape) > 4 && shape[len(shape)-1] == 1 {
		shape = shape[:len(shape)-1]
	}
	return shape
}

func buildHeader(out *convert.Output, shape []int, voxOffset int64) header2 {
	hdr := header2{
		SizeOfHdr: headerSize,
		Magic:     magic,
		Datatype:  datatypeComplex64,
		Bitpix:    bitpixComplex64,
		VoxOffset: voxOffset,
		SformCode: sformAligned,
		XyztUnits: unitsMMSec,
	}

	hdr.Dim[0] = int64(len(shape))
	for i := range hdr.Dim[1:] {
		hdr.Dim[1+i] = 1
	}
	for i, s := range shape {
		hdr.Dim[1+i] = int64(s)
	}

	size := out.Orientation.VoxelSize()
	hdr.Pixdim[0] = 1
	hdr.Pixdim[1] = size[0]
	hdr.Pixdim[2] = size[1]
	hdr.Pixdim[3] = size[2]
	hdr.Pixdim[4] = out.DwellTime
	for i := 5; i <= len(shape); i++ {
		hdr.Pixdim[i] = 1
	}

	hdr.SrowX = out.Orientation.Row(0)
	hdr.SrowY = out.Orientation.Row(1)
	hdr.SrowZ = out.Orientation.Row(2)

	copy(hdr.IntentName[:], intentMRS)
	return hdr
}

// extensionBlock renders the header extension: the presence flag, then
// one JSON extension sized to a 16-byte boundary.
func extensionBlock(out *convert.Output) ([]byte, error) {
	payload, err := json.Marshal(out.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode header extension: %w", err)
	}

	esize := 8 + len(payload)
	if rem := esize % 16; rem != 0 {
		esize += 16 - rem
	}

	block := make([]byte, 4+esize)
	block[0] = 1 // one extension follows
	binary.LittleEndian.PutUint32(block[4:], uint32(esize))
	binary.LittleEndian.PutUint32(block[8:], ecodeMRS)
	copy(block[12:], payload)
	return block, nil
}

// dataBlock lays the complex samples out in Fortran order, first axis
// fastest, as little-endian complex64.
func dataBlock(out *convert.Output, shape []int) []byte {
	data := out.Spectrum.Data()

	// Row-major strides of the source array.
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}

	buf := make([]byte, 8*len(data))
	coords := make([]int, len(shape))
	for k := 0; k < len(data); k++ {
		src := 0
		for d, c := range coords {
			src += c * strides[d]
		}
		v := data[src]
		binary.LittleEndian.PutUint32(buf[8*k:], math.Float32bits(float32(real(v))))
		binary.LittleEndian.PutUint32(buf[8*k+4:], math.Float32bits(float32(imag(v))))

		for d := 0; d < len(coords); d++ {
			coords[d]++
			if coords[d] < shape[d] {
				break
			}
			coords[d] = 0
		}
	}
	return buf
}
