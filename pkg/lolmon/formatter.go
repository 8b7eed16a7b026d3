// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"fmt"
	"strings"
)

// FormatHexdump renders data as 16-byte rows: address, hex bytes, and ASCII.
// Addresses start at base.
func FormatHexdump(data []byte, base uint32) string {
	var sb strings.Builder

	for offset := 0; offset < len(data); offset += 16 {
		end := min(offset+16, len(data))
		row := data[offset:end]

		hex := make([]string, len(row))
		for i, b := range row {
			hex[i] = fmt.Sprintf("%02x", b)
		}

		fmt.Fprintf(&sb, "%08x:  %-49s", base+uint32(offset), strings.Join(hex, " "))
		for _, b := range row {
			if b >= 0x20 && b <= 0x7f {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// FormatValues renders values as hex, eight per line, each line prefixed
// with the address of its first element.
func FormatValues(values []uint32, w Width, base uint32) string {
	var sb strings.Builder
	digits := w.Bytes() * 2

	for i := 0; i < len(values); i += 8 {
		end := min(i+8, len(values))
		fmt.Fprintf(&sb, "%08x:", base+uint32(i*w.Bytes()))
		for _, v := range values[i:end] {
			fmt.Fprintf(&sb, " %0*x", digits, v)
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}
