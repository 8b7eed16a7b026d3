// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"context"
	"fmt"
)

// blockDumpWords is how many 32-bit registers Block.Dump lists.
const blockDumpWords = 0x40

// Block is a register block at a fixed base address. Offsets are added to
// the base; RIU accessors add to the base's RIU offset instead.
type Block struct {
	Name string
	Base uint32

	t   Target
	riu *RIU
}

// NewBlock binds a named block to t.
func NewBlock(t Target, name string, base uint32) *Block {
	return &Block{Name: name, Base: base, t: t, riu: NewRIU(t)}
}

func (b *Block) String() string {
	return fmt.Sprintf("%s@%08x", b.Name, b.Base)
}

// Read reads one register at Base+offset.
func (b *Block) Read(ctx context.Context, w Width, offset uint32) (uint32, error) {
	values, err := b.t.Read(ctx, w, b.Base+offset, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// Write writes v at Base+offset.
func (b *Block) Write(ctx context.Context, w Width, offset uint32, v Value) error {
	return b.t.Write(ctx, w, b.Base+offset, v)
}

// SetClr sets or clears one bit at Base+offset. Not atomic.
func (b *Block) SetClr(ctx context.Context, w Width, offset uint32, bit uint, set bool) error {
	return b.t.SetClr(ctx, w, b.Base+offset, bit, set)
}

// Dump lists the block's first 0x40 words.
func (b *Block) Dump(ctx context.Context) (string, error) {
	return b.t.Dump(ctx, Width32, b.Base, blockDumpWords)
}

// DumpN lists count elements of width w from the block base.
func (b *Block) DumpN(ctx context.Context, w Width, count int) (string, error) {
	return b.t.Dump(ctx, w, b.Base, count)
}

func (b *Block) riuBase() (uint32, error) {
	base, ok := RIUOffset(b.Base)
	if !ok {
		return 0, fmt.Errorf("%w: block %s at %08x is outside the RIU window", ErrRIUOffset, b.Name, b.Base)
	}
	return base, nil
}

// RIURead reads a register by RIU offset relative to the block.
func (b *Block) RIURead(ctx context.Context, w Width, offset uint32) (uint32, error) {
	base, err := b.riuBase()
	if err != nil {
		return 0, err
	}
	return b.riu.Read(ctx, w, base+offset)
}

// RIUWrite writes a register by RIU offset relative to the block.
func (b *Block) RIUWrite(ctx context.Context, w Width, offset, value uint32) error {
	base, err := b.riuBase()
	if err != nil {
		return err
	}
	return b.riu.Write(ctx, w, base+offset, value)
}
