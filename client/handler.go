// Package client is the guest-side caller-facing handler: a set of typed
// methods, one per catalogue entry, plus a raw numeric entry point for
// callers that already have a bare syscall number and argv vector (e.g. a
// libc shim trapping an unmodified syscall instruction). Most methods here
// do exactly one sally; the pure stubs (Fstat, Getrandom, Readlink, Uname,
// the identity calls, ...) never sally at all and resolve locally.
package client

import (
	"github.com/enarx/sallyport-go/alloc"
	"github.com/enarx/sallyport-go/block"
	"github.com/enarx/sallyport-go/guest"
	scall "github.com/enarx/sallyport-go/guest/syscall"

	"golang.org/x/sys/unix"
)

// Handler wraps a Platform and the shared block it sallies over.
type Handler struct {
	Platform guest.Platform
	Block    []byte
}

// New returns a Handler driving sallies over block through p.
func New(p guest.Platform, block []byte) *Handler {
	return &Handler{Platform: p, Block: block}
}

// Read performs one read(2) sally.
func (h *Handler) Read(fd, n int) (scall.ReadResult, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Read{FD: fd, Len: n})
}

// Write performs one write(2) sally.
func (h *Handler) Write(fd int, data []byte) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Write{FD: fd, Data: data})
}

// Close performs one close(2) sally.
func (h *Handler) Close(fd int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Close{FD: fd})
}

// Dup performs one dup(2) sally.
func (h *Handler) Dup(fd int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Dup{FD: fd})
}

// Dup2 performs one dup2(2) sally.
func (h *Handler) Dup2(oldFD, newFD int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Dup2{OldFD: oldFD, NewFD: newFD})
}

// Dup3 performs one dup3(2) sally.
func (h *Handler) Dup3(oldFD, newFD, flags int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Dup3{OldFD: oldFD, NewFD: newFD, Flags: flags})
}

// Eventfd2 performs one eventfd2(2) sally.
func (h *Handler) Eventfd2(initVal uint, flags int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Eventfd2{InitVal: initVal, Flags: flags})
}

// Sync performs one sync(2) sally: global, no fd argument.
func (h *Handler) Sync() (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Sync{})
}

// Socket performs one socket(2) sally.
func (h *Handler) Socket(domain, typ, protocol int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Socket{Domain: domain, Type: typ, Protocol: protocol})
}

// Listen performs one listen(2) sally.
func (h *Handler) Listen(fd, backlog int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Listen{FD: fd, Backlog: backlog})
}

// Bind performs one bind(2) sally.
func (h *Handler) Bind(fd int, sockaddr []byte) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Bind{FD: fd, Sockaddr: sockaddr})
}

// Connect performs one connect(2) sally.
func (h *Handler) Connect(fd int, sockaddr []byte) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Connect{FD: fd, Sockaddr: sockaddr})
}

// Setsockopt performs one setsockopt(2) sally.
func (h *Handler) Setsockopt(fd, level, name int, value []byte) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Setsockopt{FD: fd, Level: level, Name: name, Value: value})
}

// RecvFrom performs one recvfrom(2) sally.
func (h *Handler) RecvFrom(fd, n, flags int) (scall.RecvFromResult, error) {
	return guest.Execute1(h.Platform, h.Block, scall.RecvFrom{FD: fd, Len: n, Flags: flags})
}

// ClockGettime performs one clock_gettime(2) sally.
func (h *Handler) ClockGettime(clockID int) (scall.ClockGettimeResult, error) {
	return guest.Execute1(h.Platform, h.Block, scall.ClockGettime{ClockID: clockID})
}

// EpollCreate1 performs one epoll_create1(2) sally.
func (h *Handler) EpollCreate1(flags int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.EpollCreate1{Flags: flags})
}

// EpollCtl performs one epoll_ctl(2) sally.
func (h *Handler) EpollCtl(epFD, op, fd int, ev unix.EpollEvent) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.EpollCtl{EpFD: epFD, Op: op, FD: fd, Event: ev})
}

// EpollWait performs one epoll_wait(2) sally.
func (h *Handler) EpollWait(epFD, maxEvents, timeoutMS int) (scall.EpollWaitResult, error) {
	return guest.Execute1(h.Platform, h.Block, scall.EpollWait{EpFD: epFD, MaxEvents: maxEvents, TimeoutMS: timeoutMS})
}

// EpollPwait performs one epoll_pwait(2) sally.
func (h *Handler) EpollPwait(epFD, maxEvents, timeoutMS int) (scall.EpollWaitResult, error) {
	return guest.Execute1(h.Platform, h.Block, scall.EpollPwait{EpFD: epFD, MaxEvents: maxEvents, TimeoutMS: timeoutMS})
}

// Fcntl performs one fcntl(2) sally (integer-argument commands only).
func (h *Handler) Fcntl(fd, cmd, arg int) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, scall.Fcntl{FD: fd, Cmd: cmd, Arg: arg})
}

// Fstat resolves an fstat(2) call without ever sallying: the result is
// synthesised entirely in the guest.
func (h *Handler) Fstat(fd int) (scall.FstatResult, error) {
	return scall.Fstat(fd), nil
}

// Getrandom resolves a getrandom(2) call without ever sallying, using the
// guest's own hardware RNG.
func (h *Handler) Getrandom(n, flags int) (scall.GetrandomResult, error) {
	return scall.Getrandom(n, flags), nil
}

// Readlink resolves a readlink(2) call without ever sallying.
func (h *Handler) Readlink(path string, bufLen int) (scall.ReadlinkResult, error) {
	return scall.Readlink(path, bufLen), nil
}

// Uname resolves a uname(2) call without ever sallying.
func (h *Handler) Uname() (scall.UnameResult, error) {
	return scall.Uname(), nil
}

// Getpid resolves a getpid(2) call without ever sallying.
func (h *Handler) Getpid() (guest.Result, error) {
	return scall.Getpid(), nil
}

// Getuid resolves a getuid(2) call without ever sallying.
func (h *Handler) Getuid() (guest.Result, error) {
	return scall.Getuid(), nil
}

// Geteuid resolves a geteuid(2) call without ever sallying.
func (h *Handler) Geteuid() (guest.Result, error) {
	return scall.Geteuid(), nil
}

// Getgid resolves a getgid(2) call without ever sallying.
func (h *Handler) Getgid() (guest.Result, error) {
	return scall.Getgid(), nil
}

// Getegid resolves a getegid(2) call without ever sallying.
func (h *Handler) Getegid() (guest.Result, error) {
	return scall.Getegid(), nil
}

// SetTidAddress resolves a set_tid_address(2) call without ever sallying.
func (h *Handler) SetTidAddress(addr uint64) (guest.Result, error) {
	return scall.SetTidAddress(addr), nil
}

// RtSigprocmask resolves an rt_sigprocmask(2) call without ever sallying.
func (h *Handler) RtSigprocmask(how int, set []byte, size int) (scall.RtSigprocmaskResult, error) {
	return scall.RtSigprocmask(how, set, size), nil
}

// Sigaltstack resolves a sigaltstack(2) call without ever sallying.
func (h *Handler) Sigaltstack(newStack []byte, size int) (scall.SigaltstackResult, error) {
	return scall.Sigaltstack(newStack, size), nil
}

// Syscall is the raw numeric entry point: callers that
// already have a bare syscall number and six-word argv get a single sally
// without going through a typed catalogue entry, at the cost of getting
// back only the Linux-convention ret words.
func (h *Handler) Syscall(num int64, argv [6]block.Word) (guest.Result, error) {
	return guest.Execute1(h.Platform, h.Block, rawCall{num: num, argv: argv})
}

type rawCall struct {
	num  int64
	argv [6]block.Word
}

func (c rawCall) Num() int64 { return c.num }

func (c rawCall) Stage(a *alloc.Arena) (argv [6]block.Word, state any, err error) {
	return c.argv, nil, nil
}

func (rawCall) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }
