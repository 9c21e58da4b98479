//go:build linux && amd64

package syscall

import "golang.org/x/sys/cpu"

// rdrandAsm executes the RDRAND instruction once, returning the hardware
// random word and whether the CPU actually produced one: RDRAND can fail
// under entropy pool exhaustion, in which case callers must retry.
func rdrandAsm() (val uint64, ok bool)

// rdrand64 is rdrandAsm gated on the CPU actually advertising RDRAND: on a
// CPU without it, executing the raw opcode would fault instead of just
// failing, so callers on such hardware see every attempt report !ok.
func rdrand64() (val uint64, ok bool) {
	if !cpu.X86.HasRDRAND {
		return 0, false
	}
	return rdrandAsm()
}
