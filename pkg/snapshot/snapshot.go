// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package snapshot stores memory captured from a target as a flat buffer
// keyed by its absolute start address.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Extension marks CBOR snapshot files. Any other file is raw bytes.
const Extension = ".lsnap"

// FormatVersion is written into every snapshot file.
const FormatVersion = 1

var (
	ErrOutOfRange = errors.New("snapshot: range outside image")
	ErrVersion    = errors.New("snapshot: unsupported format version")
)

// Image is a contiguous block of target memory.
type Image struct {
	Base     uint32    `cbor:"0,keyasint"`
	Data     []byte    `cbor:"1,keyasint"`
	Captured time.Time `cbor:"2,keyasint"`
	Source   string    `cbor:"3,keyasint,omitempty"`
}

// file is the on-disk envelope: [version, image] as an integer-keyed map
type file struct {
	Version int   `cbor:"0,keyasint"`
	Image   Image `cbor:"1,keyasint"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
}

// New returns an image of data captured now from base.
func New(base uint32, data []byte, source string) *Image {
	return &Image{
		Base:     base,
		Data:     data,
		Captured: time.Now().UTC(),
		Source:   source,
	}
}

// End returns the first address past the image.
func (i *Image) End() uint64 {
	return uint64(i.Base) + uint64(len(i.Data))
}

// Contains reports whether [addr, addr+size) lies inside the image.
func (i *Image) Contains(addr uint32, size int) bool {
	return size >= 0 && addr >= i.Base && uint64(addr)+uint64(size) <= i.End()
}

// Slice returns size bytes starting at absolute address addr.
func (i *Image) Slice(addr uint32, size int) ([]byte, error) {
	if !i.Contains(addr, size) {
		return nil, fmt.Errorf("%w: %08x+%#x not in %08x..%08x", ErrOutOfRange, addr, size, i.Base, i.End())
	}
	off := int(addr - i.Base)
	return i.Data[off : off+size], nil
}

// Encode serializes the image as CBOR.
func (i *Image) Encode() ([]byte, error) {
	data, err := encMode.Marshal(file{Version: FormatVersion, Image: *i})
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a CBOR snapshot.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty snapshot")
	}

	var f file
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, f.Version)
	}
	return &f.Image, nil
}

// Save writes the image to path as a CBOR snapshot.
func (i *Image) Save(path string) error {
	data, err := i.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a CBOR snapshot from path.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// IsSnapshot reports whether path names a CBOR snapshot file.
func IsSnapshot(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// LoadFile loads a snapshot, or a raw binary placed at rawBase.
func LoadFile(path string, rawBase uint32) (*Image, error) {
	if IsSnapshot(path) {
		return Load(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Image{Base: rawBase, Data: data, Source: path}, nil
}

// SaveFile writes the image as a snapshot or, for other extensions, as raw
// bytes.
func (i *Image) SaveFile(path string) error {
	if IsSnapshot(path) {
		return i.Save(path)
	}
	return os.WriteFile(path, i.Data, 0o644)
}
