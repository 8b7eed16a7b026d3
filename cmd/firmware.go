// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Thermoquad/lolmon/pkg/firmware"
	"github.com/spf13/cobra"
)

var (
	blobsOutput   string
	hexdumpOutput string
)

var firmwareCmd = &cobra.Command{
	Use:   "firmware",
	Short: "Offline tools for flash and program images",
	Long: `Offline tools for flash and program images. None of these commands open a
connection to the target.`,
}

var extractBlobsCmd = &cobra.Command{
	Use:   "extract-blobs <image>",
	Short: "Extract peripheral firmware blobs from the application image",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtractBlobs,
}

var extractBoot2Cmd = &cobra.Command{
	Use:   "extract-boot2 <image> <main> [recovery]",
	Short: "Decompress the boot2 stages of a flash image",
	Long: `Decompress boot2 from a flash image. The main copy (at 0x20000) is written
to <main>; the recovery copy (at 0x720000) to [recovery] if given.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runExtractBoot2,
}

var injectBoot2Cmd = &cobra.Command{
	Use:   "inject-boot2 <image> <main> [recovery]",
	Short: "Compress programs into the boot2 slots of a flash image",
	Long: `Compress <main> into the main boot2 slot (0x20000) of a flash image and,
if given, [recovery] into the recovery slot (0x720000). The image is
modified in place.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runInjectBoot2,
}

var patchECOSCmd = &cobra.Command{
	Use:   "patch-ecos <ecos> <program>",
	Short: "Patch the eCos boot2 image to run a program instead of the application",
	Long: `Place <program> at 0x822ba000 inside the eCos image and hook a jump to it in
place of the jump into the application. The image is modified in place.`,
	Args: cobra.ExactArgs(2),
	RunE: runPatchECOS,
}

var decodeHexdumpCmd = &cobra.Command{
	Use:   "decode-hexdump <log>",
	Short: "Rebuild a program from a captured console hexdump",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecodeHexdump,
}

func init() {
	extractBlobsCmd.Flags().StringVarP(&blobsOutput, "output", "o", "", "Output directory")
	_ = extractBlobsCmd.MarkFlagRequired("output")
	decodeHexdumpCmd.Flags().StringVarP(&hexdumpOutput, "output", "o", "", "Output file (default stdout)")

	firmwareCmd.AddCommand(extractBlobsCmd)
	firmwareCmd.AddCommand(extractBoot2Cmd)
	firmwareCmd.AddCommand(injectBoot2Cmd)
	firmwareCmd.AddCommand(patchECOSCmd)
	firmwareCmd.AddCommand(decodeHexdumpCmd)
	rootCmd.AddCommand(firmwareCmd)
}

func runExtractBlobs(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	blobs, err := firmware.ExtractBlobs(image, firmware.KnownBlobs)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d blobs.\n", len(blobs))

	if err := os.MkdirAll(blobsOutput, 0o755); err != nil {
		return err
	}
	for _, b := range blobs {
		fmt.Printf("Extracting %08x:%08x %s.\n", b.Offset(), b.Size, b.Name)
		if err := os.WriteFile(filepath.Join(blobsOutput, b.Name), b.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func runExtractBoot2(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	mainStage, err := firmware.ExtractBoot2(image, firmware.Boot2Main)
	if err != nil {
		return fmt.Errorf("main: %w", err)
	}
	recovery, recoveryErr := firmware.ExtractBoot2(image, firmware.Boot2Recovery)

	if len(args) == 2 && (recoveryErr != nil || !bytes.Equal(mainStage, recovery)) {
		fmt.Printf("Warning: main and recovery copies of boot2 are different! Extracting main only.\n")
	}

	if err := os.WriteFile(args[1], mainStage, 0o644); err != nil {
		return err
	}
	fmt.Printf("main: %s -> %s\n", firmware.HumanSize(len(mainStage)), args[1])

	if len(args) == 3 {
		if recoveryErr != nil {
			return fmt.Errorf("recovery: %w", recoveryErr)
		}
		if err := os.WriteFile(args[2], recovery, 0o644); err != nil {
			return err
		}
		fmt.Printf("recovery: %s -> %s\n", firmware.HumanSize(len(recovery)), args[2])
	}
	return nil
}

type boot2Slot struct {
	offset  int
	program string
}

func runInjectBoot2(cmd *cobra.Command, args []string) error {
	image, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	slots := []boot2Slot{{firmware.Boot2Main, args[1]}}
	if len(args) == 3 {
		slots = append(slots, boot2Slot{firmware.Boot2Recovery, args[2]})
	}

	for _, slot := range slots {
		program, err := os.ReadFile(slot.program)
		if err != nil {
			return err
		}

		var inj firmware.Injection
		image, inj, err = firmware.InjectBoot2(image, slot.offset, program)
		if err != nil {
			return err
		}
		fmt.Printf("Injecting %s into %s @ %#x: %s -> %s\n",
			slot.program, args[0], inj.Offset,
			firmware.HumanSize(inj.Uncompressed), firmware.HumanSize(inj.Compressed))
	}

	return os.WriteFile(args[0], image, 0o644)
}

func runPatchECOS(cmd *cobra.Command, args []string) error {
	ecos, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	program, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	patched, known, err := firmware.PatchECOS(ecos, program)
	if err != nil {
		return err
	}
	if !known {
		fmt.Printf("WARNING! eCos doesn't have the expected hash! You might run into problems.\n")
	}

	fmt.Printf("Program (%s) at %08x, hook at %08x\n", firmware.HumanSize(len(program)), firmware.ECOSHideout, firmware.ECOSHook)
	return os.WriteFile(args[0], patched, 0o644)
}

func runDecodeHexdump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	program, err := firmware.DecodeHexdump(f)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if hexdumpOutput != "" {
		o, err := os.Create(hexdumpOutput)
		if err != nil {
			return err
		}
		defer o.Close()
		out = o
	}

	_, err = out.Write(program)
	return err
}
