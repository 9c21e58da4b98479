// Package syscall is the guest-side catalogue of calls a caller can stage
// into a sally: one type per syscall that sallies, each implementing
// guest.Syscall[R]. Passthrough calls (Close, Dup, Sync, ...) carry no
// marshalling beyond their fixed argv words; staged calls (Read, Write,
// RecvFrom, ClockGettime, ...) reserve a data-tail buffer at Stage time,
// fill any guest-to-host bytes there, and decode host output at Collect
// time. stubs.go holds a third, disjoint family: calls that
// never sally at all, see that file's doc comment.
package syscall

import (
	"github.com/enarx/sallyport-go/alloc"
	"github.com/enarx/sallyport-go/guest"

	"golang.org/x/sys/unix"
)

// --- Read and Write stage a data-tail buffer; the passthrough family after
// them carries argv words only and returns ret[0]/ret[1] verbatim.

// Read stages a read(2) call whose destination buffer is reserved in the
// block itself, so the host can write directly into shared memory.
type Read struct {
	FD  int
	Len int
}

func (Read) Num() int64 { return unix.SYS_READ }

func (c Read) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	buf, err := alloc.AllocateOutputBytes(a, uintptr(c.Len))
	if err != nil {
		return argv, nil, err
	}
	argv[0] = uint64(c.FD)
	argv[1] = uint64(buf.Offset())
	argv[2] = uint64(c.Len)
	return argv, buf, nil
}

// ReadResult is Read's collected outcome: the bytes actually read.
type ReadResult struct {
	N    int
	Data []byte
	Err  error
}

func (Read) Collect(data []byte, ret guest.Result, state any) ReadResult {
	bytesRef := state.(alloc.BytesRef)
	if !ret.Ok() {
		return ReadResult{Err: ret.Err}
	}
	n := int(ret.Value)
	return ReadResult{N: n, Data: alloc.ReadBytes(data, bytesRef, uintptr(n))}
}

// Write stages a write(2) call whose source bytes are copied into the
// block at stage time, before the sally.
type Write struct {
	FD   int
	Data []byte
}

func (Write) Num() int64 { return unix.SYS_WRITE }

func (c Write) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	buf, err := alloc.AllocateInputBytes(a, uintptr(len(c.Data)))
	if err != nil {
		return argv, nil, err
	}
	argv[0] = uint64(c.FD)
	argv[1] = uint64(buf.Offset())
	argv[2] = uint64(len(c.Data))
	alloc.WriteBytes(a.Buf(), buf, c.Data)
	return argv, writeState{buf: buf, data: c.Data}, nil
}

type writeState struct {
	buf  alloc.BytesRef
	data []byte
}

func (Write) Collect(_ []byte, ret guest.Result, _ any) guest.Result {
	return ret
}

// Close stages a close(2) call.
type Close struct{ FD int }

func (Close) Num() int64 { return unix.SYS_CLOSE }
func (c Close) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0] = uint64(c.FD)
	return argv, nil, nil
}
func (Close) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Dup stages a dup(2) call.
type Dup struct{ FD int }

func (Dup) Num() int64 { return unix.SYS_DUP }
func (c Dup) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0] = uint64(c.FD)
	return argv, nil, nil
}
func (Dup) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Dup2 stages a dup2(2) call.
type Dup2 struct{ OldFD, NewFD int }

func (Dup2) Num() int64 { return unix.SYS_DUP2 }
func (c Dup2) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0], argv[1] = uint64(c.OldFD), uint64(c.NewFD)
	return argv, nil, nil
}
func (Dup2) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Dup3 stages a dup3(2) call.
type Dup3 struct {
	OldFD, NewFD, Flags int
}

func (Dup3) Num() int64 { return unix.SYS_DUP3 }
func (c Dup3) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0], argv[1], argv[2] = uint64(c.OldFD), uint64(c.NewFD), uint64(c.Flags)
	return argv, nil, nil
}
func (Dup3) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Eventfd2 stages an eventfd2(2) call.
type Eventfd2 struct {
	InitVal uint
	Flags   int
}

func (Eventfd2) Num() int64 { return unix.SYS_EVENTFD2 }
func (c Eventfd2) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0], argv[1] = uint64(c.InitVal), uint64(c.Flags)
	return argv, nil, nil
}
func (Eventfd2) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Sync stages a sync(2) call: global, and zero-argument.
type Sync struct{}

func (Sync) Num() int64 { return unix.SYS_SYNC }
func (Sync) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	return argv, nil, nil
}
func (Sync) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

// Exit and ExitGroup are staged but, by construction, never collected: the
// guest tears down before a reply would matter.
type Exit struct{ Code int }

func (Exit) Num() int64 { return unix.SYS_EXIT }
func (c Exit) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0] = uint64(c.Code)
	return argv, nil, nil
}
func (Exit) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }

type ExitGroup struct{ Code int }

func (ExitGroup) Num() int64 { return unix.SYS_EXIT_GROUP }
func (c ExitGroup) Stage(a *alloc.Arena) (argv [6]uint64, state any, err error) {
	argv[0] = uint64(c.Code)
	return argv, nil, nil
}
func (ExitGroup) Collect(_ []byte, ret guest.Result, _ any) guest.Result { return ret }
