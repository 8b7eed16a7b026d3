// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"

	"github.com/Thermoquad/lolmon/pkg/devices"
	"github.com/spf13/cobra"
)

var emacCmd = &cobra.Command{
	Use:   "emac",
	Short: "Ethernet MAC bring-up",
}

var emacInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Run the link-up sequence, configure the MAC and check the PHY",
	Long: `Bring the Ethernet MAC up the way the vendor firmware does: the RIU link-up
sequence, buffer queues at 1 MiB (receive) and 2 MiB (transmit), MAC and
MDIO enable, then a PHY reset to 100M full duplex with autonegotiation.`,
	Args: cobra.NoArgs,
	RunE: runEMACInit,
}

var emacLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Run only the RIU link-up sequence",
	Args:  cobra.NoArgs,
	RunE:  runEMACLink,
}

var emacMACCmd = &cobra.Command{
	Use:   "mac",
	Short: "Print the MAC address registers",
	Args:  cobra.NoArgs,
	RunE:  runEMACMAC,
}

var ephyCmd = &cobra.Command{
	Use:   "ephy",
	Short: "Ethernet PHY access",
}

var ephyDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump all 32 MII registers",
	Args:  cobra.NoArgs,
	RunE:  runEPHYDump,
}

var ephyLinkCmd = &cobra.Command{
	Use:   "link",
	Short: "Report the PHY link state",
	Args:  cobra.NoArgs,
	RunE:  runEPHYLink,
}

func init() {
	emacCmd.AddCommand(emacInitCmd)
	emacCmd.AddCommand(emacLinkCmd)
	emacCmd.AddCommand(emacMACCmd)
	rootCmd.AddCommand(emacCmd)

	ephyCmd.AddCommand(ephyDumpCmd)
	ephyCmd.AddCommand(ephyLinkCmd)
	rootCmd.AddCommand(ephyCmd)
}

func openEMAC(m *monitor) (*devices.EMAC, error) {
	b, err := lookupBlock(m, "emac")
	if err != nil {
		return nil, err
	}
	return devices.NewEMAC(m, b), nil
}

func openEPHY(m *monitor) (*devices.EPHY, error) {
	b, err := lookupBlock(m, "ephy")
	if err != nil {
		return nil, err
	}
	return devices.NewEPHY(b), nil
}

func linkState(up bool) string {
	if up {
		return "up"
	}
	return "down"
}

func runEMACInit(cmd *cobra.Command, args []string) error {
	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		emac, err := openEMAC(m)
		if err != nil {
			return err
		}
		phy, err := openEPHY(m)
		if err != nil {
			return err
		}

		report, err := emac.Init(ctx, phy)
		if err != nil {
			return err
		}

		fmt.Printf("Interrupt mask: 0x%08x\n", report.IntMask)
		fmt.Printf("MAC address:    %s\n", report.MACAddr)
		fmt.Printf("Link:           %s\n", linkState(report.Link))
		return nil
	})
}

func runEMACLink(cmd *cobra.Command, args []string) error {
	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		emac, err := openEMAC(m)
		if err != nil {
			return err
		}
		return emac.LinkUp(ctx)
	})
}

func runEMACMAC(cmd *cobra.Command, args []string) error {
	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		emac, err := openEMAC(m)
		if err != nil {
			return err
		}
		mac, err := emac.DefaultMACAddr(ctx)
		if err != nil {
			return err
		}
		fmt.Println(mac)
		return nil
	})
}

func runEPHYDump(cmd *cobra.Command, args []string) error {
	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		phy, err := openEPHY(m)
		if err != nil {
			return err
		}
		out, err := phy.Dump(ctx)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	})
}

func runEPHYLink(cmd *cobra.Command, args []string) error {
	return withMonitor(cmd, func(ctx context.Context, m *monitor) error {
		phy, err := openEPHY(m)
		if err != nil {
			return err
		}
		up, err := phy.Link(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Link %s\n", linkState(up))
		return nil
	})
}
