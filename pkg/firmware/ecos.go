// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package firmware

import (
	"encoding/binary"
	"fmt"
)

// eCos boot2 layout
const (
	ECOSBase    = 0x82000180
	ECOSHideout = 0x822ba000
	ECOSHook    = 0x82007280
	ECOSSHA256  = "d8320d6b8d4f209b20bd217f19c5c0efde5a0488c243adb6dee531ed37764d99"
)

// MIPSJump encodes "j target". Only the low 28 bits of target are encoded.
func MIPSJump(target uint32) uint32 {
	return 0b000010<<26 | (target&0x0ffffffc)>>2
}

// PatchECOS places program at ECOSHideout inside the eCos image and replaces
// the instruction at ECOSHook with a jump to it. known reports whether the
// input image had the expected hash; patching goes ahead either way.
func PatchECOS(ecos, program []byte) (patched []byte, known bool, err error) {
	if len(program) == 0 {
		return nil, false, fmt.Errorf("empty program")
	}

	known = SHA256(ecos) == ECOSSHA256

	patched = append([]byte(nil), ecos...)
	patched = writeAt(patched, ECOSHideout-ECOSBase, program)

	jump := make([]byte, 4)
	binary.LittleEndian.PutUint32(jump, MIPSJump(ECOSHideout))
	patched = writeAt(patched, ECOSHook-ECOSBase, jump)

	return patched, known, nil
}
