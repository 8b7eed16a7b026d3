// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Width is the element size of a memory access.
type Width int

const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
)

// ParseWidth accepts a bit count (8, 16, 32) or a monitor suffix (b, h, w).
func ParseWidth(s string) (Width, error) {
	switch strings.ToLower(s) {
	case "8", "b", "byte":
		return Width8, nil
	case "16", "h", "half":
		return Width16, nil
	case "32", "w", "word":
		return Width32, nil
	}
	return 0, fmt.Errorf("invalid width %q (expected 8, 16, 32 or b, h, w)", s)
}

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	return w == Width8 || w == Width16 || w == Width32
}

// Bytes returns the element size in bytes.
func (w Width) Bytes() int {
	return int(w)
}

// Mask returns the value mask for the width.
func (w Width) Mask() uint32 {
	if w == Width32 {
		return 0xffffffff
	}
	return MASK(uint(w) * 8)
}

func (w Width) String() string {
	return strconv.Itoa(int(w) * 8)
}

func (w Width) suffix() string {
	switch w {
	case Width8:
		return "b"
	case Width16:
		return "h"
	default:
		return "w"
	}
}

func (w Width) readOp() string  { return "r" + w.suffix() }
func (w Width) writeOp() string { return "w" + w.suffix() }
func (w Width) copyOp() string  { return "c" + w.suffix() }

func (w Width) check() error {
	if !w.Valid() {
		return fmt.Errorf("invalid width %d", int(w))
	}
	return nil
}

// Value is what a write stores: either one scalar or an ordered sequence of
// elements.
type Value struct {
	scalar uint32
	seq    []uint32
	isSeq  bool
}

// Scalar returns a single-element value.
func Scalar(v uint32) Value {
	return Value{scalar: v}
}

// Sequence returns a multi-element value. A sequence of one element is still
// written in sequence form.
func Sequence(values ...uint32) Value {
	return Value{seq: values, isSeq: true}
}

// Bytes returns a byte sequence.
func Bytes(data []byte) Value {
	values := make([]uint32, len(data))
	for i, b := range data {
		values[i] = uint32(b)
	}
	return Sequence(values...)
}

// IsSequence reports whether v is a sequence.
func (v Value) IsSequence() bool {
	return v.isSeq
}

// Values returns the elements of v.
func (v Value) Values() []uint32 {
	if v.isSeq {
		return v.seq
	}
	return []uint32{v.scalar}
}

// Target is anything that provides width-typed memory access. Session is the
// live implementation.
type Target interface {
	Read(ctx context.Context, w Width, addr uint32, count int) ([]uint32, error)
	Write(ctx context.Context, w Width, addr uint32, v Value) error
	SetClr(ctx context.Context, w Width, addr uint32, bit uint, set bool) error
	Dump(ctx context.Context, w Width, addr uint32, count int) (string, error)
}

var _ Target = (*Session)(nil)

// ============================================================================
// Command formatting
// ============================================================================

// writeLine is one batched write command.
type writeLine struct {
	Addr    uint32
	Count   int
	Command string
}

// batchWrites splits a sequence write into commands of at most
// MaxWriteElements elements and MaxLineLength characters.
func batchWrites(w Width, addr uint32, values []uint32) []writeLine {
	var lines []writeLine

	for len(values) > 0 {
		line := fmt.Sprintf("%s %x", w.writeOp(), addr)
		i := 0
		for i < MaxWriteElements && i < len(values) {
			tok := " " + strconv.FormatUint(uint64(values[i]&w.Mask()), 10)
			if len(line)+len(tok) > MaxLineLength {
				break
			}
			line += tok
			i++
		}

		lines = append(lines, writeLine{Addr: addr, Count: i, Command: line})
		values = values[i:]
		addr += uint32(i * w.Bytes())
	}

	return lines
}

// memsetRun is one fill step of a memset.
type memsetRun struct {
	Width Width
	Addr  uint32
	Count int
}

// planMemset covers [addr, addr+size) with byte runs up to the next 4-byte
// boundary, then whole words, then the trailing bytes.
func planMemset(addr uint32, size int) []memsetRun {
	var runs []memsetRun

	for size > 0 {
		if addr&3 != 0 || size < 4 {
			n := size
			if addr&3 != 0 {
				n = min(4-int(addr&3), size)
			}
			runs = append(runs, memsetRun{Width: Width8, Addr: addr, Count: n})
			addr += uint32(n)
			size -= n
			continue
		}

		n := size / 4
		runs = append(runs, memsetRun{Width: Width32, Addr: addr, Count: n})
		addr += uint32(n * 4)
		size -= n * 4
	}

	return runs
}

// ============================================================================
// Memory access
// ============================================================================

// Write stores v at addr. A scalar becomes one command; a sequence is split
// into as many commands as the monitor's line limits require.
func (s *Session) Write(ctx context.Context, w Width, addr uint32, v Value) error {
	if err := w.check(); err != nil {
		return err
	}

	if !v.IsSequence() {
		_, err := s.Send(ctx, fmt.Sprintf("%s %08x %#x", w.writeOp(), addr, v.scalar&w.Mask()))
		return err
	}

	for _, line := range batchWrites(w, addr, v.seq) {
		if _, err := s.Send(ctx, line.Command); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Write8(ctx context.Context, addr uint32, v uint32) error {
	return s.Write(ctx, Width8, addr, Scalar(v))
}

func (s *Session) Write16(ctx context.Context, addr uint32, v uint32) error {
	return s.Write(ctx, Width16, addr, Scalar(v))
}

func (s *Session) Write32(ctx context.Context, addr uint32, v uint32) error {
	return s.Write(ctx, Width32, addr, Scalar(v))
}

// WriteBytes stores data at addr with byte writes.
func (s *Session) WriteBytes(ctx context.Context, addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return s.Write(ctx, Width8, addr, Bytes(data))
}

// Read fetches count elements of width w starting at addr.
func (s *Session) Read(ctx context.Context, w Width, addr uint32, count int) ([]uint32, error) {
	if err := w.check(); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("invalid read count %d", count)
	}

	command := fmt.Sprintf("%s %08x %d", w.readOp(), addr, count)
	resp, err := s.Send(ctx, command)
	if err != nil {
		return nil, err
	}

	values, err := ParseReadOutput(resp, w, count)
	if err != nil {
		s.noteParseError()
		s.log.Warn().Str("command", command).Str("response", strconv.Quote(string(resp))).Msg("unparseable read")
		return nil, &CommandError{Command: command, Partial: resp, Err: err}
	}
	return values, nil
}

func (s *Session) readScalar(ctx context.Context, w Width, addr uint32) (uint32, error) {
	values, err := s.Read(ctx, w, addr, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

func (s *Session) Read8(ctx context.Context, addr uint32) (uint32, error) {
	return s.readScalar(ctx, Width8, addr)
}

func (s *Session) Read16(ctx context.Context, addr uint32) (uint32, error) {
	return s.readScalar(ctx, Width16, addr)
}

func (s *Session) Read32(ctx context.Context, addr uint32) (uint32, error) {
	return s.readScalar(ctx, Width32, addr)
}

// ReadBytes fetches n bytes starting at addr.
func (s *Session) ReadBytes(ctx context.Context, addr uint32, n int) ([]byte, error) {
	values, err := s.Read(ctx, Width8, addr, n)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(values))
	for i, v := range values {
		data[i] = byte(v)
	}
	return data, nil
}

// SetClr sets or clears one bit at addr with a read followed by a write.
// The two commands are not atomic; if the write fails the bit's state on the
// target is unknown.
func (s *Session) SetClr(ctx context.Context, w Width, addr uint32, bit uint, set bool) error {
	if bit >= uint(w.Bytes()*8) {
		return fmt.Errorf("bit %d out of range for %s-bit access", bit, w)
	}

	x, err := s.readScalar(ctx, w, addr)
	if err != nil {
		return err
	}
	if set {
		x |= BIT(bit)
	} else {
		x &^= BIT(bit)
	}
	return s.Write(ctx, w, addr, Scalar(x))
}

// Copy copies count elements from src to dest on the target.
func (s *Session) Copy(ctx context.Context, w Width, dest, src uint32, count int) error {
	if err := w.check(); err != nil {
		return err
	}
	_, err := s.Send(ctx, fmt.Sprintf("%s %08x %08x %d", w.copyOp(), src, dest, count))
	return err
}

// Memset fills size bytes at addr with value, using word writes wherever the
// range is 4-byte aligned.
func (s *Session) Memset(ctx context.Context, addr uint32, value byte, size int) error {
	word := uint32(value) * 0x01010101

	for _, run := range planMemset(addr, size) {
		fill := uint32(value)
		if run.Width == Width32 {
			fill = word
		}

		values := make([]uint32, run.Count)
		for i := range values {
			values[i] = fill
		}
		if err := s.Write(ctx, run.Width, run.Addr, Sequence(values...)); err != nil {
			return err
		}
	}
	return nil
}

// Flash programs size bytes from memory at mem into flash at flash.
func (s *Session) Flash(ctx context.Context, mem, flash, size uint32) error {
	_, err := s.Send(ctx, fmt.Sprintf("fl %08x %08x %#x", mem, flash, size))
	return err
}

// Call jumps to addr with up to four arguments. No response is collected.
func (s *Session) Call(ctx context.Context, addr uint32, args ...uint32) error {
	if len(args) > 4 {
		return fmt.Errorf("call takes at most 4 arguments, got %d", len(args))
	}

	var a [4]uint32
	copy(a[:], args)
	return s.SendNoReturn(ctx, fmt.Sprintf("call %x %d %d %d %d", addr, a[0], a[1], a[2], a[3]))
}

// Dump returns the monitor's own listing of count elements at addr.
func (s *Session) Dump(ctx context.Context, w Width, addr uint32, count int) (string, error) {
	if err := w.check(); err != nil {
		return "", err
	}
	resp, err := s.Send(ctx, fmt.Sprintf("%s %08x %d", w.readOp(), addr, count))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(resp)), nil
}
