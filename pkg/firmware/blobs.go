// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package firmware holds offline tools for the target's flash and program
// images: peripheral blob extraction, boot2 stage packing, eCos patching and
// hexdump decoding.
package firmware

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// AppBase is the load address of the application image.
const AppBase = 0x80000180

var ErrUnknownImage = errors.New("firmware: unknown image")

// Blob is a peripheral firmware embedded in an application image.
type Blob struct {
	Name string
	Addr uint32 // load address
	Size int
}

// Offset returns the blob's offset within an image loaded at AppBase.
func (b Blob) Offset() int {
	return int(b.Addr - AppBase)
}

// Catalogue maps an image's SHA-256 (hex) to the blobs it contains.
type Catalogue map[string][]Blob

// KnownBlobs lists the blobs of the known application image.
var KnownBlobs = Catalogue{
	"f424ac2d2d4633f24f06c972500a9e5872831f511f70d597268c5f097ee9ddd9": {
		{"vpu.bin", 0x80d29620, 450400},
		{"msb124x-100.bin", 0x8112fe88, 3072},
		{"msb124x-108.bin", 0x81138a88, 29696},
		{"msb124x-110.bin", 0x81130a88, 32768},
		{"msb124x-118.bin", 0x8113fe88, 32768},
		{"msb124x-120.bin", 0x81147e88, 32768},
		{"msb124x-128.bin", 0x81157e88, 4096},
		{"msb124x-130.bin", 0x8114fe88, 32768},
		{"msb124x-80000.bin", 0x81127ec4, 32708},
		{"audsp-base.bin", 0x810ab828, 222576},
		{"audsp-algo3.bin", 0x80fcf3ac, 37073},
		{"audsp-algo4.bin", 0x8102d724, 497153},
		{"audsp-algo5.bin", 0x80fd8480, 195901},
		{"audsp-algo7.bin", 0x80f35300, 13714},
		{"audsp-algo8.bin", 0x80f29234, 49356},
		{"audsp-algo9.bin", 0x80f38894, 29033},
		{"audsp-algo10.bin", 0x80f49bb8, 367160},
		{"audsp-algo12.bin", 0x80f3fa00, 41400},
		{"audsp-algo13.bin", 0x80fb1bf0, 120762},
		{"audsp-algo14.bin", 0x810081c0, 152932},
		{"audsp-algo16.bin", 0x80fa35f0, 58878},
		{"pm51-1.bin", 0x81161544, 16488},
		{"pm51-2.bin", 0x8115d120, 17442},
	},
}

// ExtractedBlob is a blob and its bytes.
type ExtractedBlob struct {
	Blob
	Data []byte
}

// SHA256 returns the hex SHA-256 of data.
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ExtractBlobs identifies image by its hash and slices out its blobs.
func ExtractBlobs(image []byte, catalogue Catalogue) ([]ExtractedBlob, error) {
	hash := SHA256(image)
	blobs, ok := catalogue[hash]
	if !ok {
		return nil, fmt.Errorf("%w (SHA256 hash %s)", ErrUnknownImage, hash)
	}

	out := make([]ExtractedBlob, 0, len(blobs))
	for _, b := range blobs {
		off := b.Offset()
		if b.Addr < AppBase || off+b.Size > len(image) {
			return nil, fmt.Errorf("blob %s at %08x+%d lies outside the %d byte image", b.Name, b.Addr, b.Size, len(image))
		}
		out = append(out, ExtractedBlob{Blob: b, Data: image[off : off+b.Size]})
	}
	return out, nil
}
