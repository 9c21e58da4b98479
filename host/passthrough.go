package host

import (
	"github.com/enarx/sallyport-go/block"

	"golang.org/x/sys/unix"
)

// asErr converts a raw errno into an error, or nil for success — mirrors
// unix.Errno's own contract (Errno(0) is not an error), spelled out for
// readability at every call site below.
func asErr(errno unix.Errno) error {
	if errno == 0 {
		return nil
	}
	return errno
}

func (d *Dispatcher) sysRead(data []byte, argv [6]block.Word) (int64, int64, error) {
	dst, err := deref(data, argv[1], argv[2], 1)
	if err != nil {
		return 0, 0, err
	}
	n, _, errno := rawSyscall(unix.SYS_READ, uintptr(argv[0]), uintptr(uintptrOf(dst)), uintptr(argv[2]), 0, 0, 0)
	return int64(n), 0, asErr(errno)
}

func (d *Dispatcher) sysWrite(data []byte, argv [6]block.Word) (int64, int64, error) {
	src, err := deref(data, argv[1], argv[2], 1)
	if err != nil {
		return 0, 0, err
	}
	n, _, errno := rawSyscall(unix.SYS_WRITE, uintptr(argv[0]), uintptr(uintptrOf(src)), uintptr(argv[2]), 0, 0, 0)
	return int64(n), 0, asErr(errno)
}

func sysClose(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_CLOSE, uintptr(argv[0]), 0, 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func sysDup(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_DUP, uintptr(argv[0]), 0, 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func sysDup2(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_DUP2, uintptr(argv[0]), uintptr(argv[1]), 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func sysDup3(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_DUP3, uintptr(argv[0]), uintptr(argv[1]), uintptr(argv[2]), 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func sysEventfd2(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_EVENTFD2, uintptr(argv[0]), uintptr(argv[1]), 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

// sysExit and sysExitGroup forward exit(2)/exit_group(2) to the kernel for
// the host itself: on success the call does not return, so no reply is
// written back for it. They're still routed (rather than rejected as
// ENOSYS) because a guest MAY stage one in a batch alongside other calls.
func sysExit(argv [6]block.Word) (int64, int64, error) {
	_, _, errno := rawSyscall(unix.SYS_EXIT, uintptr(argv[0]), 0, 0, 0, 0, 0)
	return 0, 0, asErr(errno)
}

func sysExitGroup(argv [6]block.Word) (int64, int64, error) {
	_, _, errno := rawSyscall(unix.SYS_EXIT_GROUP, uintptr(argv[0]), 0, 0, 0, 0, 0)
	return 0, 0, asErr(errno)
}

// sysSync forwards the global, zero-argument sync(2): distinct from
// fsync(2), which takes an fd and isn't part of this catalogue.
func sysSync(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_SYNC, 0, 0, 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}
