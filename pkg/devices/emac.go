// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"context"
	"fmt"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
)

// EMAC registers, as RIU offsets from the block base
const (
	EMACCTL  = 0x00
	EMACCFG  = 0x04
	EMACSR   = 0x08
	EMACTAR  = 0x0c
	EMACTCR  = 0x10
	EMACTSR  = 0x14
	EMACRBQP = 0x18
	EMACTBQP = 0x1c
	EMACRSR  = 0x20
	EMACISR  = 0x24
	EMACIER  = 0x28
	EMACIDR  = 0x2c
	EMACIMR  = 0x30

	emacMACAddr = 0x98
)

// CTL bits
var (
	CTLLB  = lolmon.BIT(0)
	CTLLBL = lolmon.BIT(1)
	CTLRE  = lolmon.BIT(2)
	CTLTE  = lolmon.BIT(3)
	CTLMPE = lolmon.BIT(4)
	CTLCSR = lolmon.BIT(5)
	CTLISR = lolmon.BIT(6)
	CTLWES = lolmon.BIT(7)
	CTLBP  = lolmon.BIT(8)
)

// riuPoke is one byte write of the link-up sequence. With rmw set the
// current value is read and and/or applied; otherwise or is written as is.
type riuPoke struct {
	offset uint32
	and    uint32
	or     uint32
	rmw    bool
}

// linkUpSequence is the vendor firmware's byte-write sequence that brings
// the Ethernet link up. Offsets are absolute RIU offsets.
var linkUpSequence = []riuPoke{
	{offset: 0x121f60, and: 0xfc, or: 2, rmw: true},
	{offset: 0x103364, or: 0x10},
	{offset: 0x121f23, or: 8},
	{offset: 0x121f24, or: 8},
	{offset: 0x121f25, or: 0},
	{offset: 0xe60, and: 0xfe, rmw: true},
	{offset: 0x324f, or: 2},
	{offset: 0x3251, or: 1},
	{offset: 0x3277, or: 0x18},
	{offset: 0x3172, or: 0x80},
	{offset: 0x32fc, or: 0},
	{offset: 0x32fd, or: 0},
	{offset: 0x32b7, or: 7},
	{offset: 0x32cb, or: 0x11},
	{offset: 0x32cc, or: 0x80},
	{offset: 0x32cd, or: 0xd1},
	{offset: 0x32d4, or: 0},
	{offset: 0x32b9, or: 0x40},
	{offset: 0x32bb, or: 5},
	{offset: 0x32ea, or: 0x46},
	{offset: 0x33a1, or: 0},
	{offset: 0x333a, or: 3},
	{offset: 0x333b, or: 0},
	{offset: 0x33c5, or: 0},
	{offset: 0x3330, or: 0x43},
	{offset: 0x3339, or: 0x41},
	{offset: 0x33e8, or: 6},
	{offset: 0x312b, or: 0},
	{offset: 0x33e8, or: 0},
	{offset: 0x312b, or: 0},
	{offset: 0x33e8, or: 6},
	{offset: 0x31aa, or: 0x1c},
	{offset: 0x31ac, or: 0x1c},
	{offset: 0x31ad, or: 0x1c},
	{offset: 0x31ae, or: 0x1c},
	{offset: 0x31af, or: 0x1c},
	{offset: 0x33e8, or: 0},
	{offset: 0x33e8, or: 0},
	{offset: 0x31ab, or: 0x28},
}

// EMAC is the Ethernet MAC.
type EMAC struct {
	*lolmon.Block
	riu *lolmon.RIU
}

// NewEMAC wraps a block as an EMAC. t is used for the chip-wide RIU pokes
// of the link-up sequence.
func NewEMAC(t lolmon.Target, b *lolmon.Block) *EMAC {
	return &EMAC{Block: b, riu: lolmon.NewRIU(t)}
}

// InitReport is what Init learns along the way.
type InitReport struct {
	IntMask uint32
	MACAddr string
	Link    bool
}

func (e *EMAC) read32(ctx context.Context, reg uint32) (uint32, error) {
	return e.RIURead(ctx, lolmon.Width32, reg)
}

func (e *EMAC) write32(ctx context.Context, reg, value uint32) error {
	return e.RIUWrite(ctx, lolmon.Width32, reg, value)
}

// LinkUp runs the vendor link-up sequence.
func (e *EMAC) LinkUp(ctx context.Context) error {
	for _, p := range linkUpSequence {
		value := p.or
		if p.rmw {
			x, err := e.riu.Read8(ctx, p.offset)
			if err != nil {
				return err
			}
			value = x&p.and | p.or
		}
		if err := e.riu.Write8(ctx, p.offset, value); err != nil {
			return fmt.Errorf("link-up poke at %#x: %w", p.offset, err)
		}
	}
	return nil
}

// Init brings the MAC up with receive and transmit buffer queues at 1 MiB
// and 2 MiB, enables it and checks the PHY link.
func (e *EMAC) Init(ctx context.Context, phy *EPHY) (InitReport, error) {
	var report InitReport

	if err := e.LinkUp(ctx); err != nil {
		return report, err
	}

	if err := e.write32(ctx, 0x100, 0xf051); err != nil {
		return report, err
	}
	if _, err := e.read32(ctx, EMACCTL); err != nil {
		return report, err
	}

	steps := []struct{ reg, value uint32 }{
		{EMACCTL, 0},
		{EMACRBQP, 1 * lolmon.MiB},
		{EMACTBQP, 2 * lolmon.MiB},
		{0x108, 0},
		{0x104, 0x04020081},
		{EMACIER, 0x437},
		{0x104, 1},
	}
	for _, s := range steps {
		if err := e.write32(ctx, s.reg, s.value); err != nil {
			return report, err
		}
	}

	var err error
	if report.IntMask, err = e.read32(ctx, EMACIMR); err != nil {
		return report, err
	}
	if report.MACAddr, err = e.MACAddr(ctx, emacMACAddr); err != nil {
		return report, err
	}

	if err := e.write32(ctx, EMACCFG, 0x803); err != nil {
		return report, err
	}
	// MDIO on
	if err := e.write32(ctx, EMACCTL, 0x1c); err != nil {
		return report, err
	}

	if err := e.Enable(ctx); err != nil {
		return report, err
	}

	if phy != nil {
		if report.Link, err = phy.Check(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// Enable turns on transmit and management port and sets the low CFG bits.
func (e *EMAC) Enable(ctx context.Context) error {
	ctl, err := e.read32(ctx, EMACCTL)
	if err != nil {
		return err
	}
	if err := e.write32(ctx, EMACCTL, ctl|CTLTE|CTLMPE); err != nil {
		return err
	}

	cfg, err := e.read32(ctx, EMACCFG)
	if err != nil {
		return err
	}
	return e.write32(ctx, EMACCFG, cfg|3)
}

// TxFrame transmits size bytes from physical address addr.
func (e *EMAC) TxFrame(ctx context.Context, addr, size uint32) error {
	if err := e.write32(ctx, EMACTAR, addr&0x03ffffff); err != nil {
		return err
	}
	return e.write32(ctx, EMACTCR, size)
}

// MACAddr reads a MAC address register pair as the two words in hex.
func (e *EMAC) MACAddr(ctx context.Context, reg uint32) (string, error) {
	lo, err := e.read32(ctx, reg)
	if err != nil {
		return "", err
	}
	hi, err := e.read32(ctx, reg+4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x%x", lo, hi), nil
}

// DefaultMACAddr reads the primary MAC address.
func (e *EMAC) DefaultMACAddr(ctx context.Context) (string, error) {
	return e.MACAddr(ctx, emacMACAddr)
}
