// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package devices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
)

// MII registers and bits used by Check and Link
const (
	MIIBMCR = 0x00
	MIIBMSR = 0x01
	MIIANAR = 0x04

	BMSRLinkStatus = 1 << 2

	// mdioCtl is the block register whose bit 2 enables MDIO reads
	mdioCtl = 4

	// DefaultLinkSettle is how long autonegotiation gets before Check reads
	// the link state.
	DefaultLinkSettle = 2 * time.Second
)

// EPHY is the Ethernet PHY. MII register n is mapped at block offset 4n.
type EPHY struct {
	*lolmon.Block

	// LinkSettle is the wait between restarting autonegotiation and
	// reading the link state.
	LinkSettle time.Duration
}

// NewEPHY wraps a block as a PHY.
func NewEPHY(b *lolmon.Block) *EPHY {
	return &EPHY{Block: b, LinkSettle: DefaultLinkSettle}
}

// Read reads MII register reg.
func (e *EPHY) Read(ctx context.Context, reg uint32) (uint32, error) {
	ctl, err := e.Block.Read(ctx, lolmon.Width16, mdioCtl)
	if err != nil {
		return 0, err
	}
	if err := e.Block.Write(ctx, lolmon.Width16, mdioCtl, lolmon.Scalar(ctl|4)); err != nil {
		return 0, err
	}
	return e.Block.Read(ctx, lolmon.Width16, 4*reg)
}

// Write writes MII register reg.
func (e *EPHY) Write(ctx context.Context, reg, value uint32) error {
	return e.Block.Write(ctx, lolmon.Width16, 4*reg, lolmon.Scalar(value))
}

// Dump lists all 32 MII registers, eight per line.
func (e *EPHY) Dump(ctx context.Context) (string, error) {
	var sb strings.Builder

	for j := uint32(0); j < 32; j += 8 {
		cols := make([]string, 8)
		for i := uint32(0); i < 8; i++ {
			v, err := e.Read(ctx, j+i)
			if err != nil {
				return "", err
			}
			cols[i] = fmt.Sprintf("%6s", fmt.Sprintf("%#x", v))
		}
		sb.WriteString(strings.Join(cols, "  "))
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}

// Check resets the PHY to 100M full duplex, restarts autonegotiation and
// reports the link state once it has settled.
func (e *EPHY) Check(ctx context.Context) (bool, error) {
	steps := []struct{ reg, value uint32 }{
		{MIIBMCR, 0x2100},
		{MIIANAR, 0x1e1},
		{MIIBMCR, 0x1200},
	}
	for _, s := range steps {
		if err := e.Write(ctx, s.reg, s.value); err != nil {
			return false, err
		}
	}

	if err := sleep(ctx, e.LinkSettle); err != nil {
		return false, err
	}
	return e.Link(ctx)
}

// Link reports whether the PHY has link.
func (e *EPHY) Link(ctx context.Context) (bool, error) {
	bmsr, err := e.Read(ctx, MIIBMSR)
	if err != nil {
		return false, err
	}
	return bmsr&BMSRLinkStatus != 0, nil
}
