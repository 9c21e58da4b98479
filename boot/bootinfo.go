// Package boot carries the information a loader hands to a shim before
// the first sally ever happens: the injected confidential-computing
// secret and basic host memory geometry.
package boot

import (
	"encoding/binary"
	"fmt"
)

// SyscallTriggerPort is the I/O port a shim writes to in order to trigger
// a VM exit and hand control to the host dispatcher.
const SyscallTriggerPort uint16 = 0xFF

// SevSecretMaxSize bounds the injected SEV secret blob: 16 KiB.
const SevSecretMaxSize = 16 * 1024

// SevSecret is the raw, CBOR byte-string-encoded secret a loader injects
// for an SEV guest. Its length is not known up front; DecodeSevSecret
// peeks the CBOR major-type-2 header to recover it.
type SevSecret struct {
	Data [SevSecretMaxSize]byte
}

// DecodeSevSecret returns the CBOR byte string held in s.Data, validating
// that its encoded length does not exceed the fixed buffer.
func DecodeSevSecret(s *SevSecret) ([]byte, error) {
	n, err := cborByteStringLen(s.Data[:])
	if err != nil {
		return nil, err
	}
	if n > SevSecretMaxSize {
		return nil, fmt.Errorf("boot: sev secret length %d exceeds buffer", n)
	}
	return s.Data[:n], nil
}

// cborByteStringLen reads a CBOR major-type-2 (byte string) header from
// the front of data and returns the total length of header+payload. Only
// definite-length encodings (additional info 0..27) are accepted; 28..31,
// including indefinite-length byte strings (31), are rejected, matching the original
// loader's contract that a SEV secret is always definite-length.
func cborByteStringLen(data []byte) (int, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("boot: empty cbor prefix")
	}
	prefix := data[0]
	if prefix>>5 != 2 {
		return 0, fmt.Errorf("boot: not a cbor byte string (major type %d)", prefix>>5)
	}
	switch minor := prefix & 0x1f; {
	case minor <= 23:
		return 1 + int(minor), nil
	case minor == 24:
		if len(data) < 2 {
			return 0, fmt.Errorf("boot: truncated cbor length (1-byte)")
		}
		return 1 + 1 + int(data[1]), nil
	case minor == 25:
		if len(data) < 3 {
			return 0, fmt.Errorf("boot: truncated cbor length (2-byte)")
		}
		return 1 + 2 + int(binary.BigEndian.Uint16(data[1:3])), nil
	case minor == 26:
		if len(data) < 5 {
			return 0, fmt.Errorf("boot: truncated cbor length (4-byte)")
		}
		return 1 + 4 + int(binary.BigEndian.Uint32(data[1:5])), nil
	case minor == 27:
		if len(data) < 9 {
			return 0, fmt.Errorf("boot: truncated cbor length (8-byte)")
		}
		return 1 + 8 + int(binary.BigEndian.Uint64(data[1:9])), nil
	default:
		return 0, fmt.Errorf("boot: unsupported cbor length encoding %d", minor)
	}
}

// Info is the fixed-layout record a loader writes at the start of the
// first block before the shim's entry point ever runs.
type Info struct {
	Secret  SevSecret
	MemSize uint64
}

// MemInfo describes the host-side view of the shim's initial memory
// region, including how many additional slots are available for
// ballooning.
type MemInfo struct {
	VirtStart uintptr
	MemSlots  int
}

func (m MemInfo) String() string {
	return fmt.Sprintf("MemInfo{virt_start: %#x, mem_slots: %d}", m.VirtStart, m.MemSlots)
}
