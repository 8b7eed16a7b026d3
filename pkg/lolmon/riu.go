// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"context"
	"fmt"
)

// The RIU register window maps each 16-bit register onto a 32-bit slot:
// offset 2n lands at 4n and offset 2n+1 at 4n+1.
const (
	RIUBase      = 0xbf000000
	RIUEnd       = 0xc0000000
	RIUMaxOffset = 0x200000
)

// RIUAddr translates an RIU offset into a physical address.
func RIUAddr(offset uint32) (uint32, error) {
	if offset >= RIUMaxOffset {
		return 0, fmt.Errorf("%w: %#x", ErrRIUOffset, offset)
	}
	return RIUBase + (offset/2)*4 + (offset & 1), nil
}

// RIUOffset returns the RIU offset of a block base address, and false if
// addr lies outside the RIU window.
func RIUOffset(addr uint32) (uint32, bool) {
	if addr < RIUBase || addr >= RIUEnd {
		return 0, false
	}
	return (addr - RIUBase) / 2, true
}

// RIU accesses registers by RIU offset.
type RIU struct {
	t Target
}

// NewRIU returns an RIU accessor on top of t.
func NewRIU(t Target) *RIU {
	return &RIU{t: t}
}

// Read reads one register. A 32-bit read is two 16-bit reads, low half at
// offset and high half at offset+2.
func (r *RIU) Read(ctx context.Context, w Width, offset uint32) (uint32, error) {
	if w == Width32 {
		lo, err := r.Read(ctx, Width16, offset)
		if err != nil {
			return 0, err
		}
		hi, err := r.Read(ctx, Width16, offset+2)
		if err != nil {
			return 0, err
		}
		return lo | hi<<16, nil
	}

	addr, err := RIUAddr(offset)
	if err != nil {
		return 0, err
	}
	values, err := r.t.Read(ctx, w, addr, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// Write writes one register. A 32-bit write is split like Read.
func (r *RIU) Write(ctx context.Context, w Width, offset uint32, value uint32) error {
	if w == Width32 {
		if err := r.Write(ctx, Width16, offset, value&0xffff); err != nil {
			return err
		}
		return r.Write(ctx, Width16, offset+2, value>>16)
	}

	addr, err := RIUAddr(offset)
	if err != nil {
		return err
	}
	return r.t.Write(ctx, w, addr, Scalar(value))
}

func (r *RIU) Read8(ctx context.Context, offset uint32) (uint32, error) {
	return r.Read(ctx, Width8, offset)
}

func (r *RIU) Read16(ctx context.Context, offset uint32) (uint32, error) {
	return r.Read(ctx, Width16, offset)
}

func (r *RIU) Read32(ctx context.Context, offset uint32) (uint32, error) {
	return r.Read(ctx, Width32, offset)
}

func (r *RIU) Write8(ctx context.Context, offset, value uint32) error {
	return r.Write(ctx, Width8, offset, value)
}

func (r *RIU) Write16(ctx context.Context, offset, value uint32) error {
	return r.Write(ctx, Width16, offset, value)
}

func (r *RIU) Write32(ctx context.Context, offset, value uint32) error {
	return r.Write(ctx, Width32, offset, value)
}
