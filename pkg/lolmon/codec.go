// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lolmon

// Bswap16 swaps the two bytes of each 16-bit half of x.
func Bswap16(x uint32) uint32 {
	return (x&0xff00ff00)>>8 | (x&0x00ff00ff)<<8
}

// Bswap32 reverses the byte order of x.
func Bswap32(x uint32) uint32 {
	x = (x&0xffff0000)>>16 | (x&0x0000ffff)<<16
	return Bswap16(x)
}

// GetBE16 reads a big-endian 16-bit field at offset.
func GetBE16(data []byte, offset int) uint16 {
	return uint16(data[offset])<<8 | uint16(data[offset+1])
}

// GetBE32 reads a big-endian 32-bit field at offset.
func GetBE32(data []byte, offset int) uint32 {
	return uint32(GetBE16(data, offset))<<16 | uint32(GetBE16(data, offset+2))
}

// ToBE24 encodes the low 24 bits of n as three big-endian bytes.
func ToBE24(n uint32) []byte {
	return []byte{byte(n >> 16), byte(n >> 8), byte(n)}
}

// ToBE32 encodes n as four big-endian bytes.
func ToBE32(n uint32) []byte {
	return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}
}

// FromBE32 decodes up to four big-endian bytes. Missing trailing bytes are
// treated as zero.
func FromBE32(data []byte) uint32 {
	var word uint32
	for i, b := range data {
		if i == 4 {
			break
		}
		word |= uint32(b) << ((3 - i) * 8)
	}
	return word
}

// ToLE32 encodes n as four little-endian bytes.
func ToLE32(n uint32) []byte {
	return []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
}

// FromLE32 decodes up to four little-endian bytes.
func FromLE32(data []byte) uint32 {
	var word uint32
	for i, b := range data {
		if i == 4 {
			break
		}
		word |= uint32(b) << (i * 8)
	}
	return word
}
