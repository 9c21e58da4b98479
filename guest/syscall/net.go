package syscall

import (
	"github.com/enarx/sallyport-go/alloc"
	"github.com/enarx/sallyport-go/guest"

	"golang.org/x/sys/unix"
)

// Socket stages a socket(2) call.
type Socket struct{ Domain, Type, Protocol int }

func (Socket) Num() int64 { return unix.SYS_SOCKET }
func (c Socket) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0], argv[1], argv[2] = uint64(c.Domain), uint64(c.Type), uint64(c.Protocol)
	return argv, nil, nil
}
func (Socket) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Listen stages a listen(2) call.
type Listen struct{ FD, Backlog int }

func (Listen) Num() int64 { return unix.SYS_LISTEN }
func (c Listen) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0], argv[1] = uint64(c.FD), uint64(c.Backlog)
	return argv, nil, nil
}
func (Listen) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Bind stages a bind(2) call, copying the caller's raw sockaddr bytes into
// the block.
type Bind struct {
	FD      int
	Sockaddr []byte
}

func (Bind) Num() int64 { return unix.SYS_BIND }
func (c Bind) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	ref, err := alloc.AllocateInputBytes(a, uintptr(len(c.Sockaddr)))
	if err != nil {
		return argv, nil, err
	}
	alloc.WriteBytes(a.Buf(), ref, c.Sockaddr)
	argv[0], argv[1], argv[2] = uint64(c.FD), uint64(ref.Offset()), uint64(len(c.Sockaddr))
	return argv, sockaddrState{ref: ref, data: c.Sockaddr}, nil
}

type sockaddrState struct {
	ref  alloc.BytesRef
	data []byte
}

func (Bind) Collect(_ []byte, ret guest.Result, _ any) guest.Result {
	return ret
}

// Connect stages a connect(2) call with the same shape as Bind.
type Connect struct {
	FD      int
	Sockaddr []byte
}

func (Connect) Num() int64 { return unix.SYS_CONNECT }
func (c Connect) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	ref, err := alloc.AllocateInputBytes(a, uintptr(len(c.Sockaddr)))
	if err != nil {
		return argv, nil, err
	}
	alloc.WriteBytes(a.Buf(), ref, c.Sockaddr)
	argv[0], argv[1], argv[2] = uint64(c.FD), uint64(ref.Offset()), uint64(len(c.Sockaddr))
	return argv, sockaddrState{ref: ref, data: c.Sockaddr}, nil
}
func (Connect) Collect(_ []byte, ret guest.Result, _ any) guest.Result {
	return ret
}

// Setsockopt stages a setsockopt(2) call.
type Setsockopt struct {
	FD, Level, Name int
	Value           []byte
}

func (Setsockopt) Num() int64 { return unix.SYS_SETSOCKOPT }
func (c Setsockopt) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	ref, err := alloc.AllocateInputBytes(a, uintptr(len(c.Value)))
	if err != nil {
		return argv, nil, err
	}
	argv[0] = uint64(c.FD)
	argv[1] = uint64(c.Level)
	argv[2] = uint64(c.Name)
	argv[3] = uint64(ref.Offset())
	argv[4] = uint64(len(c.Value))
	alloc.WriteBytes(a.Buf(), ref, c.Value)
	return argv, sockaddrState{ref: ref, data: c.Value}, nil
}
func (Setsockopt) Collect(_ []byte, ret guest.Result, _ any) guest.Result {
	return ret
}

// RecvFrom stages a recvfrom(2) call. It always requests the peer address
// too: callers who don't need it can discard RecvFromResult.From.
type RecvFrom struct {
	FD      int
	Len     int
	Flags   int
	AddrLen int
}

func (RecvFrom) Num() int64 { return unix.SYS_RECVFROM }
func (c RecvFrom) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	data, err := alloc.AllocateOutputBytes(a, uintptr(c.Len))
	if err != nil {
		return argv, nil, err
	}
	addrLen := c.AddrLen
	if addrLen == 0 {
		addrLen = unix.SizeofSockaddrAny
	}
	addr, err := alloc.AllocateOutputBytes(a, uintptr(addrLen))
	if err != nil {
		return argv, nil, err
	}
	alenRef, err := alloc.AllocateInOut[uint64](a)
	if err != nil {
		return argv, nil, err
	}
	alloc.WriteInOut(a.Buf(), alenRef, uint64(addrLen))

	argv[0] = uint64(c.FD)
	argv[1] = uint64(data.Offset())
	argv[2] = uint64(c.Len)
	argv[3] = uint64(c.Flags)
	argv[4] = uint64(addr.Offset())
	argv[5] = uint64(alenRef.Offset())
	return argv, recvFromState{data: data, addr: addr, alen: alenRef}, nil
}

type recvFromState struct {
	data alloc.BytesRef
	addr alloc.BytesRef
	alen alloc.InOutRef[uint64]
}

// RecvFromResult is RecvFrom's collected outcome.
type RecvFromResult struct {
	N    int
	Data []byte
	From []byte
	Err  error
}

func (RecvFrom) Collect(data []byte, ret guest.Result, state any) RecvFromResult {
	s := state.(recvFromState)
	if !ret.Ok() {
		return RecvFromResult{Err: ret.Err}
	}
	n := int(ret.Value)
	alen := alloc.ReadInOut(data, s.alen)
	return RecvFromResult{
		N:    n,
		Data: alloc.ReadBytes(data, s.data, uintptr(n)),
		From: alloc.ReadBytes(data, s.addr, uintptr(alen)),
	}
}

// ClockGettime stages a clock_gettime(2) call.
type ClockGettime struct{ ClockID int }

func (ClockGettime) Num() int64 { return unix.SYS_CLOCK_GETTIME }
func (c ClockGettime) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	ref, err := alloc.AllocateOutput[unix.Timespec](a)
	if err != nil {
		return argv, nil, err
	}
	argv[0] = uint64(c.ClockID)
	argv[1] = uint64(ref.Offset())
	return argv, ref, nil
}

// ClockGettimeResult is ClockGettime's collected outcome.
type ClockGettimeResult struct {
	Sec, Nsec int64
	Err       error
}

func (ClockGettime) Collect(data []byte, ret guest.Result, state any) ClockGettimeResult {
	if !ret.Ok() {
		return ClockGettimeResult{Err: ret.Err}
	}
	ref := state.(alloc.OutRef[unix.Timespec])
	ts := alloc.ReadOut(data, ref)
	return ClockGettimeResult{Sec: ts.Sec, Nsec: ts.Nsec}
}

// EpollCreate1 stages an epoll_create1(2) call.
type EpollCreate1 struct{ Flags int }

func (EpollCreate1) Num() int64 { return unix.SYS_EPOLL_CREATE1 }
func (c EpollCreate1) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0] = uint64(c.Flags)
	return argv, nil, nil
}
func (EpollCreate1) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// EpollCtl stages an epoll_ctl(2) call.
type EpollCtl struct {
	EpFD, Op, FD int
	Event        unix.EpollEvent
}

func (EpollCtl) Num() int64 { return unix.SYS_EPOLL_CTL }
func (c EpollCtl) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	ref, err := alloc.AllocateInput[unix.EpollEvent](a)
	if err != nil {
		return argv, nil, err
	}
	argv[0], argv[1], argv[2] = uint64(c.EpFD), uint64(c.Op), uint64(c.FD)
	argv[3] = uint64(ref.Offset())
	alloc.WriteIn(a.Buf(), ref, c.Event)
	return argv, epollCtlState{ref: ref, ev: c.Event}, nil
}

type epollCtlState struct {
	ref alloc.InRef[unix.EpollEvent]
	ev  unix.EpollEvent
}

func (EpollCtl) Collect(_ []byte, ret guest.Result, _ any) guest.Result {
	return ret
}

// EpollWait stages an epoll_wait(2) call.
type EpollWait struct {
	EpFD, MaxEvents, TimeoutMS int
}

func (EpollWait) Num() int64 { return unix.SYS_EPOLL_WAIT }
func (c EpollWait) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	ref, err := alloc.AllocateOutputBytes(a, uintptr(c.MaxEvents)*unsafeSizeofEpollEvent)
	if err != nil {
		return argv, nil, err
	}
	argv[0] = uint64(c.EpFD)
	argv[1] = uint64(ref.Offset())
	argv[2] = uint64(c.MaxEvents)
	argv[3] = uint64(uint32(c.TimeoutMS))
	return argv, ref, nil
}

// EpollWaitResult is EpollWait's collected outcome.
type EpollWaitResult struct {
	Events []unix.EpollEvent
	Err    error
}

func (EpollWait) Collect(data []byte, ret guest.Result, state any) EpollWaitResult {
	if !ret.Ok() {
		return EpollWaitResult{Err: ret.Err}
	}
	ref := state.(alloc.BytesRef)
	n := int(ret.Value)
	raw := alloc.ReadBytes(data, ref, uintptr(n)*unsafeSizeofEpollEvent)
	events := make([]unix.EpollEvent, n)
	for i := range events {
		events[i] = decodeEpollEvent(raw[i*int(unsafeSizeofEpollEvent):])
	}
	return EpollWaitResult{Events: events}
}

// EpollPwait stages an epoll_pwait(2) call. The signal-mask argument is
// not supported: this always behaves as EpollWait.
type EpollPwait struct {
	EpFD, MaxEvents, TimeoutMS int
}

func (EpollPwait) Num() int64 { return unix.SYS_EPOLL_PWAIT }
func (c EpollPwait) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	ref, err := alloc.AllocateOutputBytes(a, uintptr(c.MaxEvents)*unsafeSizeofEpollEvent)
	if err != nil {
		return argv, nil, err
	}
	argv[0] = uint64(c.EpFD)
	argv[1] = uint64(ref.Offset())
	argv[2] = uint64(c.MaxEvents)
	argv[3] = uint64(uint32(c.TimeoutMS))
	return argv, ref, nil
}
func (EpollPwait) Collect(data []byte, ret guest.Result, state any) EpollWaitResult {
	if !ret.Ok() {
		return EpollWaitResult{Err: ret.Err}
	}
	ref := state.(alloc.BytesRef)
	n := int(ret.Value)
	raw := alloc.ReadBytes(data, ref, uintptr(n)*unsafeSizeofEpollEvent)
	events := make([]unix.EpollEvent, n)
	for i := range events {
		events[i] = decodeEpollEvent(raw[i*int(unsafeSizeofEpollEvent):])
	}
	return EpollWaitResult{Events: events}
}

// Fcntl stages an fcntl(2) call. Only the integer-argument command family
// is supported.
type Fcntl struct{ FD, Cmd, Arg int }

func (Fcntl) Num() int64 { return unix.SYS_FCNTL }
func (c Fcntl) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0], argv[1], argv[2] = uint64(c.FD), uint64(c.Cmd), uint64(c.Arg)
	return argv, nil, nil
}
func (Fcntl) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }
