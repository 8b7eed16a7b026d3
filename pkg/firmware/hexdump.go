// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package firmware

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrNoLength = errors.New("firmware: no unOrgLen line before the dump")

// DecodeHexdump rebuilds a program from a console log. The log must report
// the program length on an "unOrgLen:" line and then dump the program with
// an "rw" command; the 32-bit little-endian words are placed relative to
// AppBase.
func DecodeHexdump(r io.Reader) ([]byte, error) {
	var program []byte
	length := -1
	seenCommand := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case seenCommand:
			addrText, data, ok := strings.Cut(line, ":")
			if !ok || strings.Contains(data, ":") {
				continue
			}
			addr, err := strconv.ParseUint(addrText, 16, 32)
			if err != nil || addr < AppBase {
				continue
			}

			for i, tok := range strings.Fields(data) {
				word, err := strconv.ParseUint(tok, 16, 32)
				if err != nil {
					return nil, fmt.Errorf("bad word %q at %08x", tok, addr)
				}
				off := int(addr-AppBase) + 4*i
				buf := make([]byte, 4)
				binary.LittleEndian.PutUint32(buf, uint32(word))
				program = writeAt(program, off, buf)
			}

		case strings.Contains(line, "unOrgLen:"):
			n, err := parseOrgLen(line)
			if err != nil {
				return nil, err
			}
			length = n
			program = make([]byte, n)

		case strings.HasPrefix(line, "> rw"):
			seenCommand = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if length < 0 {
		return nil, ErrNoLength
	}
	if len(program) > length {
		program = program[:length]
	}
	return program, nil
}

// parseOrgLen reads the length from a line like "a:b:unOrgLen:1234<...".
func parseOrgLen(line string) (int, error) {
	fields := strings.Split(line, ":")
	if len(fields) < 4 {
		return 0, fmt.Errorf("malformed length line %q", line)
	}
	num, _, _ := strings.Cut(fields[3], "<")
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("malformed length line %q", line)
	}
	return n, nil
}

// HumanSize formats a byte count with a binary unit.
func HumanSize(size int) string {
	units := []string{"B", "KiB", "MiB", "GiB"}
	if size <= 1200 {
		return fmt.Sprintf("%d B", size)
	}

	f := float64(size)
	scale := 0
	for f > 1200 && scale < len(units)-1 {
		f /= 1024
		scale++
	}
	return fmt.Sprintf("%.1f %s", f, units[scale])
}
