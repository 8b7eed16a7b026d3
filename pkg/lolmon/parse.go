// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// dumpLine matches one line of read output: "xxxxxxxx: vv vv ...".
var dumpLine = regexp.MustCompile(`^[0-9a-f]{8}: [0-9a-f]+`)

// ParseHexTokens returns every hex token from the dump lines in resp, in
// order. Lines without an address header are ignored. A malformed token
// invalidates the whole response.
func ParseHexTokens(resp []byte) ([]string, error) {
	var tokens []string

	scanner := bufio.NewScanner(bytes.NewReader(resp))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !dumpLine.MatchString(line) {
			continue
		}
		for _, tok := range strings.Fields(line[10:]) {
			if _, err := strconv.ParseUint(tok, 16, 32); err != nil {
				return nil, ErrParse
			}
			tokens = append(tokens, tok)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, ErrParse
	}
	return tokens, nil
}

// ParseReadOutput converts the response of a read command into count values
// of width w.
//
// Tokens normally carry one element each. When every token is a single byte
// and w is wider, consecutive tokens are combined big-endian, so
// "00001000: de ad be ef" read as one 32-bit value is 0xdeadbeef. Fewer values
// than count is ErrParse; extra values are dropped.
func ParseReadOutput(resp []byte, w Width, count int) ([]uint32, error) {
	tokens, err := ParseHexTokens(resp)
	if err != nil {
		return nil, err
	}
	if count < 1 || len(tokens) == 0 {
		return nil, ErrParse
	}

	raw := make([]uint32, len(tokens))
	bytewise := true
	for i, tok := range tokens {
		v, _ := strconv.ParseUint(tok, 16, 32)
		raw[i] = uint32(v)
		if len(tok) > 2 {
			bytewise = false
		}
	}

	values := raw
	if bytewise && w.Bytes() > 1 {
		values = make([]uint32, 0, len(raw)/w.Bytes())
		for i := 0; i+w.Bytes() <= len(raw); i += w.Bytes() {
			var v uint32
			for _, b := range raw[i : i+w.Bytes()] {
				v = v<<8 | b
			}
			values = append(values, v)
		}
	}

	if len(values) < count {
		return nil, ErrParse
	}
	values = values[:count]
	for _, v := range values {
		if v&^w.Mask() != 0 {
			return nil, ErrParse
		}
	}
	return values, nil
}
