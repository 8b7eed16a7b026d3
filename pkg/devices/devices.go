// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package devices drives on-chip peripherals of the target through a
// lolmon session.
package devices

import (
	"context"
	"time"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
)

// BlockSpec names a register block and its base address.
type BlockSpec struct {
	Name string `toml:"name"`
	Base uint32 `toml:"base"`
}

// Default register block map
var DefaultBlocks = []BlockSpec{
	{Name: "pinmux", Base: 0xbf203c00},
	{Name: "uart0", Base: 0xbf201300},
	{Name: "emac", Base: 0xbf243600},
	{Name: "ephy", Base: 0xbf006200},
}

// Blocks binds specs to t, keyed by name. Later specs replace earlier ones
// with the same name.
func Blocks(t lolmon.Target, specs ...[]BlockSpec) map[string]*lolmon.Block {
	blocks := make(map[string]*lolmon.Block)
	for _, list := range specs {
		for _, s := range list {
			blocks[s.Name] = lolmon.NewBlock(t, s.Name, s.Base)
		}
	}
	return blocks
}

// pinmuxDumpHalves is the number of 16-bit registers Pinmux.Dump lists.
const pinmuxDumpHalves = 0x100

// Pinmux is the pin multiplexer block.
//
// Known hazards, by RIU offset:
//   - 0x02: setting 0x3000 breaks the UART
//   - 0x06: setting 0x8000 breaks the UART
//   - 0xa6: low nibble must stay 0x4 or the UART breaks
type Pinmux struct {
	*lolmon.Block
}

// Dump lists the block as 16-bit registers.
func (p *Pinmux) Dump(ctx context.Context) (string, error) {
	return p.DumpN(ctx, lolmon.Width16, pinmuxDumpHalves)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
