// Package host implements the trusted-by-construction dispatcher that runs
// against an untrusted block: it walks the items a guest staged,
// validates every offset, length and alignment against the item's own
// data zone before touching memory, and performs the real syscalls on the
// guest's behalf. The pure guest stubs never reach this package at all.
package host

import (
	"errors"
	"fmt"

	"github.com/enarx/sallyport-go/block"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Dispatcher executes the syscall items of one block against the real
// kernel. It is not safe for concurrent use against the same block: the
// sallyport protocol is strictly request/reply, one sally at a time.
type Dispatcher struct {
	log     *logrus.Logger
	metrics *Metrics
}

// New returns a Dispatcher that logs with log (or logrus.StandardLogger if
// nil) and records outcomes to metrics (or a private, ungathered Metrics if
// nil).
func New(log *logrus.Logger, metrics *Metrics) *Dispatcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Dispatcher{log: log, metrics: metrics}
}

// Execute walks buf's items in wire order and, for each Syscall item,
// performs the requested call and writes its Linux-convention result back
// into that item's Ret words in place. A
// malformed block (bad Header.Size, unknown Kind, missing End) is
// rejected wholesale with EINVAL rather than partially executed.
func (d *Dispatcher) Execute(buf []byte) error {
	// One short id per sally, so a single batch's log lines can be
	// correlated without threading a request context through every call.
	sallyID := xid.New()

	items, err := block.Items(buf)
	if err != nil {
		d.log.WithFields(logrus.Fields{"sally": sallyID}).WithError(err).Warn("sallyport: rejecting malformed block")
		return err
	}
	for i := range items {
		item := items[i]
		switch item.Kind {
		case block.KindEnd:
			continue
		case block.KindSyscall:
			d.dispatch(sallyID, item.Syscall, item.Data)
		case block.KindGdbcall:
			// Reserved kind: acknowledged by the codec,
			// never executed.
			item.Gdbcall.Ret = uint64(errnoRet(unix.ENOSYS))
		}
	}
	return nil
}

// deref validates that [off, off+n) lies within data — the payload zone
// owned by the item whose argv this offset came from, never the whole
// block — and that the resolved address satisfies align (the natural
// alignment of the referent type; pass 1 for a plain byte buffer). Every
// pointer-shaped argv word the dispatcher reads is run through this before
// use: the block is guest-controlled, and without both checks a malicious
// or buggy guest could stage an offset into another item's payload, the
// header/argv words, the End marker, or an address the referent type
// can't actually be read at.
func deref(data []byte, off, n block.Word, align uintptr) ([]byte, error) {
	if off > block.Word(len(data)) || n > block.Word(len(data))-off {
		return nil, unix.EFAULT
	}
	b := data[off : off+n]
	if align > 1 && len(b) > 0 && uintptrOf(b)%align != 0 {
		return nil, unix.EFAULT
	}
	return b, nil
}

// errnoRet converts a Go error into the Linux ret[0] convention: negative
// errno on failure, the call's non-negative result on success.
func errnoRet(err error) int64 {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return -int64(errno)
	}
	return -int64(unix.EIO)
}

func (d *Dispatcher) dispatch(sallyID xid.ID, sc *block.SyscallPayload, data []byte) {
	num := int64(sc.Num)
	ret0, ret1, err := d.call(num, sc.Argv, data)
	if err != nil {
		d.log.WithFields(logrus.Fields{"sally": sallyID, "num": num, "err": err}).Debug("sallyport: syscall failed")
		d.metrics.observe(num, err)
		sc.Ret[0] = uint64(errnoRet(err))
		sc.Ret[1] = 0
		return
	}
	d.metrics.observe(num, nil)
	sc.Ret[0] = uint64(ret0)
	sc.Ret[1] = uint64(ret1)
}

// call dispatches one syscall number to its real kernel equivalent. Argv
// pointer slots hold offsets relative to data (this item's own payload
// tail), not addresses; each case resolves them via deref before use.
//
// The pure guest stubs (fstat, getrandom, readlink, uname, the identity
// calls, set_tid_address, rt_sigprocmask, sigaltstack) are deliberately
// absent from this switch: they never reach the host at all, resolving
// entirely inside the guest instead. A guest that stages one of their
// syscall numbers anyway — which a conforming guest never does — gets the
// same ENOSYS any other unrouted number gets.
func (d *Dispatcher) call(num int64, argv [6]block.Word, data []byte) (r0, r1 int64, err error) {
	switch num {
	case unix.SYS_READ:
		return d.sysRead(data, argv)
	case unix.SYS_WRITE:
		return d.sysWrite(data, argv)
	case unix.SYS_CLOSE:
		return sysClose(argv)
	case unix.SYS_DUP:
		return sysDup(argv)
	case unix.SYS_DUP2:
		return sysDup2(argv)
	case unix.SYS_DUP3:
		return sysDup3(argv)
	case unix.SYS_EVENTFD2:
		return sysEventfd2(argv)
	case unix.SYS_EXIT:
		return sysExit(argv)
	case unix.SYS_EXIT_GROUP:
		return sysExitGroup(argv)
	case unix.SYS_SYNC:
		return sysSync(argv)

	case unix.SYS_RECVFROM:
		return d.sysRecvfrom(data, argv)
	case unix.SYS_CLOCK_GETTIME:
		return d.sysClockGettime(data, argv)
	case unix.SYS_SOCKET:
		return sysSocket(argv)
	case unix.SYS_LISTEN:
		return sysListen(argv)
	case unix.SYS_BIND:
		return d.sysBind(data, argv)
	case unix.SYS_CONNECT:
		return d.sysConnect(data, argv)
	case unix.SYS_SETSOCKOPT:
		return d.sysSetsockopt(data, argv)
	case unix.SYS_EPOLL_CREATE1:
		return sysEpollCreate1(argv)
	case unix.SYS_EPOLL_CTL:
		return d.sysEpollCtl(data, argv)
	case unix.SYS_EPOLL_WAIT:
		return d.sysEpollWait(data, argv)
	case unix.SYS_EPOLL_PWAIT:
		return d.sysEpollPwait(data, argv)
	case unix.SYS_FCNTL:
		return sysFcntl(argv)

	default:
		return 0, 0, fmt.Errorf("sallyport: unsupported syscall %d: %w", num, unix.ENOSYS)
	}
}
