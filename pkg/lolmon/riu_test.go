// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"context"
	"errors"
	"testing"
)

// ============================================================
// RIU Translation Tests
// ============================================================

func TestRIUAddr_KnownValues(t *testing.T) {
	tests := []struct {
		offset   uint32
		expected uint32
	}{
		{0x0, 0xbf000000},
		{0x1, 0xbf000001},
		{0x2, 0xbf000004},
		{0x3, 0xbf000005},
		{0x100, 0xbf000200},
		{0x121f60, 0xbf243ec0},
		{0x1fffff, 0xbf3ffffd},
	}

	for _, tt := range tests {
		addr, err := RIUAddr(tt.offset)
		if err != nil {
			t.Errorf("RIUAddr(0x%x): unexpected error %v", tt.offset, err)
			continue
		}
		if addr != tt.expected {
			t.Errorf("RIUAddr(0x%x) = 0x%08x, expected 0x%08x", tt.offset, addr, tt.expected)
		}
	}
}

func TestRIUAddr_OutOfRange(t *testing.T) {
	for _, offset := range []uint32{RIUMaxOffset, RIUMaxOffset + 1, 0xffffffff} {
		if _, err := RIUAddr(offset); !errors.Is(err, ErrRIUOffset) {
			t.Errorf("RIUAddr(0x%x): expected ErrRIUOffset, got %v", offset, err)
		}
	}
}

func TestRIUAddr_Monotonic(t *testing.T) {
	prev, _ := RIUAddr(0)
	for o := uint32(1); o < RIUMaxOffset; o += 37 {
		addr, err := RIUAddr(o)
		if err != nil {
			t.Fatalf("RIUAddr(0x%x): %v", o, err)
		}
		if addr <= prev {
			t.Fatalf("RIUAddr not increasing at 0x%x: 0x%08x <= 0x%08x", o, addr, prev)
		}
		if addr&2 != 0 {
			t.Fatalf("RIUAddr(0x%x) = 0x%08x lands in the unmapped upper half", o, addr)
		}
		prev = addr
	}
}

func TestRIUOffset(t *testing.T) {
	tests := []struct {
		addr     uint32
		expected uint32
		ok       bool
	}{
		{0xbf000000, 0, true},
		{0xbf243600, 0x121b00, true},
		{0xbf006200, 0x3100, true},
		{0xbfffffff, 0x7fffff, true},
		{0xc0000000, 0, false},
		{0x80000000, 0, false},
	}

	for _, tt := range tests {
		offset, ok := RIUOffset(tt.addr)
		if ok != tt.ok || offset != tt.expected {
			t.Errorf("RIUOffset(0x%08x) = 0x%x, %v; expected 0x%x, %v", tt.addr, offset, ok, tt.expected, tt.ok)
		}
	}
}

// ============================================================
// RIU Access Tests
// ============================================================

func TestRIU_Read32(t *testing.T) {
	s, m := newTestSession(t)
	m.setMem(0xbf000008, 2, 0x5678)
	m.setMem(0xbf00000c, 2, 0x1234)

	v, err := NewRIU(s).Read32(context.Background(), 4)
	if err != nil {
		t.Fatalf("Read32 failed: %v", err)
	}
	if v != 0x12345678 {
		t.Errorf("Expected 0x12345678, got 0x%08x", v)
	}

	expected := []string{"rh bf000008 1", "rh bf00000c 1"}
	if got := m.executed(); !equalStrings(got, expected) {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestRIU_Write32(t *testing.T) {
	s, m := newTestSession(t)

	if err := NewRIU(s).Write32(context.Background(), 4, 0xcafef00d); err != nil {
		t.Fatalf("Write32 failed: %v", err)
	}

	expected := []string{"wh bf000008 0xf00d", "wh bf00000c 0xcafe"}
	if got := m.executed(); !equalStrings(got, expected) {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestRIU_Byte(t *testing.T) {
	s, m := newTestSession(t)
	r := NewRIU(s)
	ctx := context.Background()

	if err := r.Write8(ctx, 0x3, 0x42); err != nil {
		t.Fatalf("Write8 failed: %v", err)
	}
	if m.getMem(0xbf000005, 1) != 0x42 {
		t.Error("Odd RIU offset should land on the high byte of its slot")
	}

	v, err := r.Read8(ctx, 0x3)
	if err != nil || v != 0x42 {
		t.Errorf("Read8: got 0x%x, %v", v, err)
	}
}

func TestRIU_OutOfRangeSendsNothing(t *testing.T) {
	s, m := newTestSession(t)

	err := NewRIU(s).Write16(context.Background(), RIUMaxOffset, 1)
	if !errors.Is(err, ErrRIUOffset) {
		t.Fatalf("Expected ErrRIUOffset, got %v", err)
	}
	if len(m.writes) != 0 {
		t.Error("No command should be sent for an invalid offset")
	}
}

// ============================================================
// Block Tests
// ============================================================

func TestBlock_Access(t *testing.T) {
	s, m := newTestSession(t)
	b := NewBlock(s, "uart0", 0xbf201300)
	ctx := context.Background()

	if err := b.Write(ctx, Width32, 0x10, Scalar(0xa5)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if m.getMem(0xbf201310, 4) != 0xa5 {
		t.Error("Block write should land at base+offset")
	}

	v, err := b.Read(ctx, Width32, 0x10)
	if err != nil || v != 0xa5 {
		t.Errorf("Read: got 0x%x, %v", v, err)
	}

	if err := b.SetClr(ctx, Width32, 0x10, 1, true); err != nil {
		t.Fatalf("SetClr failed: %v", err)
	}
	if m.getMem(0xbf201310, 4) != 0xa7 {
		t.Errorf("Expected 0xa7, got 0x%x", m.getMem(0xbf201310, 4))
	}

	if b.String() != "uart0@bf201300" {
		t.Errorf("Unexpected name %q", b.String())
	}
}

func TestBlock_Dump(t *testing.T) {
	s, m := newTestSession(t)
	b := NewBlock(s, "emac", 0xbf243600)

	if _, err := b.Dump(context.Background()); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	expected := []string{"rw bf243600 64"}
	if got := m.executed(); !equalStrings(got, expected) {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestBlock_RIU(t *testing.T) {
	s, m := newTestSession(t)
	b := NewBlock(s, "emac", 0xbf243600)
	ctx := context.Background()

	// RIU base of the block is 0x121b00, register 0x04 sits at 0x121b04
	if err := b.RIUWrite(ctx, Width16, 0x04, 0x803); err != nil {
		t.Fatalf("RIUWrite failed: %v", err)
	}
	addr, _ := RIUAddr(0x121b04)
	if m.getMem(addr, 2) != 0x803 {
		t.Errorf("Expected 0x803 at 0x%08x", addr)
	}

	v, err := b.RIURead(ctx, Width16, 0x04)
	if err != nil || v != 0x803 {
		t.Errorf("RIURead: got 0x%x, %v", v, err)
	}
}

func TestBlock_RIUOutsideWindow(t *testing.T) {
	s, _ := newTestSession(t)
	b := NewBlock(s, "dram", 0x80000000)

	if _, err := b.RIURead(context.Background(), Width16, 0); !errors.Is(err, ErrRIUOffset) {
		t.Errorf("Expected ErrRIUOffset, got %v", err)
	}
}
