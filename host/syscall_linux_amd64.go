//go:build linux && amd64

// This file provides the single raw syscall entry point the rest of the
// package builds on: every syscall routes through one generic 6-argument
// invocation rather than a per-call wrapper. Word is fixed at uint64 and
// this package only targets linux/amd64, so unix.Syscall6 is reached for
// directly instead of through a cross-platform shim.
package host

import "golang.org/x/sys/unix"

// rawSyscall invokes syscall num with up to six word arguments and
// returns its raw result plus any errno, without interpreting either.
func rawSyscall(num uintptr, a1, a2, a3, a4, a5, a6 uintptr) (r1, r2 uintptr, errno unix.Errno) {
	return unix.Syscall6(num, a1, a2, a3, a4, a5, a6)
}
