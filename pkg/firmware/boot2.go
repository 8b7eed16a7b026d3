// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package firmware

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Flash offsets of the two boot2 copies
const (
	Boot2Main     = 0x20000
	Boot2Recovery = 0x720000
)

const (
	boot2HeaderSize = 16
	// boot2DataOffset is where the LZMA stream starts, relative to the stage
	boot2DataOffset = 0x100
	boot2Tag0       = 0x82000080
	boot2Tag1       = 0x1a4
	boot2Pad        = 0xda
	boot2PadLen     = 0x100
	// lzmaDictCap matches the dictionary the boot ROM expects
	lzmaDictCap = 1 << 20
)

// Boot2Header is the little-endian header at the start of a boot2 stage.
// Both sizes include the 0x100 byte header area.
type Boot2Header struct {
	Tag0             uint32
	Tag1             uint32
	CompressedSize   uint32
	UncompressedSize uint32
}

// ParseBoot2Header reads the stage header at offset.
func ParseBoot2Header(image []byte, offset int) (Boot2Header, error) {
	var h Boot2Header
	if offset < 0 || offset+boot2HeaderSize > len(image) {
		return h, fmt.Errorf("boot2 header at %#x lies outside the %d byte image", offset, len(image))
	}
	err := binary.Read(bytes.NewReader(image[offset:]), binary.LittleEndian, &h)
	return h, err
}

func (h Boot2Header) bytes() []byte {
	buf := make([]byte, boot2HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], h.Tag0)
	binary.LittleEndian.PutUint32(buf[4:], h.Tag1)
	binary.LittleEndian.PutUint32(buf[8:], h.CompressedSize)
	binary.LittleEndian.PutUint32(buf[12:], h.UncompressedSize)
	return buf
}

// ExtractBoot2 decompresses the boot2 stage at offset.
func ExtractBoot2(image []byte, offset int) ([]byte, error) {
	start := offset + boot2DataOffset
	if offset < 0 || start >= len(image) {
		return nil, fmt.Errorf("boot2 stage at %#x lies outside the %d byte image", offset, len(image))
	}

	r, err := lzma.NewReader(bytes.NewReader(image[start:]))
	if err != nil {
		return nil, fmt.Errorf("boot2 at %#x: %w", offset, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("boot2 at %#x: %w", offset, err)
	}
	return data, nil
}

// CompressLZMA compresses data as a classic .lzma stream carrying both the
// uncompressed size in its header and an end-of-stream marker.
func CompressLZMA(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	cfg := lzma.WriterConfig{
		DictCap:      lzmaDictCap,
		SizeInHeader: true,
		Size:         int64(len(data)),
		EOSMarker:    true,
	}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Injection describes one InjectBoot2 call.
type Injection struct {
	Offset       int
	Uncompressed int
	Compressed   int
}

// InjectBoot2 writes program as a boot2 stage at offset: header, LZMA stream
// at offset+0x100, then 0x100 bytes of 0xda. The image grows if needed.
func InjectBoot2(image []byte, offset int, program []byte) ([]byte, Injection, error) {
	compressed, err := CompressLZMA(program)
	if err != nil {
		return nil, Injection{}, fmt.Errorf("failed to compress boot2: %w", err)
	}

	h := Boot2Header{
		Tag0:             boot2Tag0,
		Tag1:             boot2Tag1,
		CompressedSize:   uint32(len(compressed) + boot2DataOffset),
		UncompressedSize: uint32(len(program) + boot2DataOffset),
	}

	image = writeAt(image, offset, h.bytes())
	image = writeAt(image, offset+boot2DataOffset, compressed)
	image = writeAt(image, offset+boot2DataOffset+len(compressed), bytes.Repeat([]byte{boot2Pad}, boot2PadLen))

	return image, Injection{Offset: offset, Uncompressed: len(program), Compressed: len(compressed)}, nil
}

// writeAt copies data into buf at off, zero-extending buf as needed.
func writeAt(buf []byte, off int, data []byte) []byte {
	if end := off + len(data); end > len(buf) {
		buf = append(buf, make([]byte, end-len(buf))...)
	}
	copy(buf[off:], data)
	return buf
}
