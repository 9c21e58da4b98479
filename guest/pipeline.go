// Package guest implements the guest side of a sally: the stage/commit/
// collect pipeline that caller code builds on.
//
// Ordering is stage -> commit -> collect. Go has no associated types to
// key a trait chain on, so this package uses distinct phase-specific
// handle types instead: Staged[R] can only become a Committed[R] via
// Commit, and only a Committed[R] can Collect.
package guest

import (
	"unsafe"

	"github.com/enarx/sallyport-go/alloc"
	"github.com/enarx/sallyport-go/block"

	"golang.org/x/sys/unix"
)

// Result is a syscall's collected return value in the Linux convention:
// ret[0] is either a non-negative result or a negated errno.
type Result struct {
	Value int64
	Err   error
}

// Ok reports whether the call succeeded.
func (r Result) Ok() bool { return r.Err == nil }

func resultFromRaw(raw [2]block.Word) Result {
	v := int64(raw[0])
	if v < 0 {
		return Result{Err: unix.Errno(-v)}
	}
	return Result{Value: v}
}

// sentinelRet is the sentinel return value a Staged syscall's ret words
// carry from commit until the host overwrites them: [-ENOSYS, 0]. A host
// that never routes this item's number leaves this value untouched, which
// is exactly the ENOSYS collect result  requires.
func sentinelRet() [2]block.Word {
	enosys := -int64(unix.ENOSYS)
	return [2]block.Word{block.Word(enosys), 0}
}

// Syscall is implemented by every request the guest can stage into a
// block. Argv/State are produced by Stage from a sub-allocator so that
// their dynamic data lands contiguously after the item's fixed frame
//; State is opaque to the pipeline and passed back
// to Collect unchanged.
type Syscall[R any] interface {
	// Num is the syscall number staged into the item's frame.
	Num() int64
	// Stage reserves this call's variable-length payload (if any) from
	// the given sub-allocator and returns the six argv words plus
	// whatever state Collect will need.
	Stage(a *alloc.Arena) (argv [6]block.Word, state any, err error)
	// Collect reconstructs this call's high-level result from the item's
	// data tail (buf, the region Stage allocated from), the host's returned
	// words and the opaque staging state.
	Collect(buf []byte, ret Result, state any) R
}

// Staged holds a syscall's reserved-but-not-yet-written references. It
// cannot be collected; only Commit can produce something collectable.
type Staged[R any] struct {
	header  alloc.InRef[block.Header]
	num     alloc.InRef[block.Word]
	argvRef alloc.InRef[[6]block.Word]
	retRef  alloc.InOutRef[[2]block.Word]

	argv    [6]block.Word
	state   any
	size    block.Word
	callNum int64
	collect func([]byte, Result, any) R
}

// StageCall reserves call's item frame (header, num, argv, ret) plus
// whatever variable payload call.Stage requests, padding the tail back to
// word alignment.
func StageCall[R any](a *alloc.Arena, call Syscall[R]) (Staged[R], error) {
	header, err := alloc.AllocateInput[block.Header](a)
	if err != nil {
		return Staged[R]{}, err
	}
	num, err := alloc.AllocateInput[block.Word](a)
	if err != nil {
		return Staged[R]{}, err
	}
	argvRef, err := alloc.AllocateInput[[6]block.Word](a)
	if err != nil {
		return Staged[R]{}, err
	}
	retRef, err := alloc.AllocateInOut[[2]block.Word](a)
	if err != nil {
		return Staged[R]{}, err
	}

	type staged struct {
		argv  [6]block.Word
		state any
	}
	// The variable payload is staged through a sub-arena over the item's
	// data tail, so every offset call.Stage records in argv is relative to
	// the start of that tail, which is how the host resolves it.
	dataStart := a.Used()
	s, n, err := alloc.Section(alloc.NewArena(a.Buf()[dataStart:]), func(sub *alloc.Arena) (staged, error) {
		argv, state, err := call.Stage(sub)
		return staged{argv: argv, state: state}, err
	})
	if err != nil {
		return Staged[R]{}, err
	}
	if err := alloc.Pad(a, n); err != nil {
		return Staged[R]{}, err
	}
	size := block.Word(n)
	if rem := size % block.Word(alignUintptr); rem != 0 {
		if err := alloc.Pad(a, uintptr(block.Word(alignUintptr)-rem)); err != nil {
			return Staged[R]{}, err
		}
		size += block.Word(alignUintptr) - rem
	}

	return Staged[R]{
		header:  header,
		num:     num,
		argvRef: argvRef,
		retRef:  retRef,
		argv:    s.argv,
		state:   s.state,
		size:    block.Word(block.SyscallPayloadSize) + size,
		callNum: call.Num(),
		collect: func(buf []byte, ret Result, state any) R {
			return call.Collect(buf[dataStart:], ret, state)
		},
	}, nil
}

const alignUintptr = 8 // sizeof(block.Word)

// Committed holds a staged syscall's return reference plus its opaque
// staging state. Only Collect, called after a sally, can consume it.
type Committed[R any] struct {
	retRef  alloc.InOutRef[[2]block.Word]
	state   any
	collect func([]byte, Result, any) R
}

// Commit writes this item's header, syscall number, argv and sentinel
// return words into the arena's buffer. Commit is
// infallible by construction: every byte it writes was already reserved
// at stage time.
func (s Staged[R]) Commit(buf []byte) Committed[R] {
	alloc.WriteIn(buf, s.header, block.Header{Size: s.size, Kind: block.KindSyscall})
	alloc.WriteIn(buf, s.num, block.Word(uint64(s.callNum)))
	alloc.WriteIn(buf, s.argvRef, s.argv)
	alloc.WriteInOut(buf, s.retRef, sentinelRet())
	return Committed[R]{retRef: s.retRef, state: s.state, collect: s.collect}
}

// Collect reads the item's return words (after a sally) and reconstructs
// the call's high-level result.
func (c Committed[R]) Collect(buf []byte) R {
	raw := alloc.ReadInOut(buf, c.retRef)
	return c.collect(buf, resultFromRaw(raw), c.state)
}

// writeEnd finalises a batch of staged items by writing a KindEnd header
// over the arena's remaining capacity: after the last item is staged, an
// additional End header is written whose size equals the remaining
// payload bytes.
func writeEnd(a *alloc.Arena) error {
	rem := a.Remaining()
	if rem < uintptr(block.HeaderSize) {
		return unix.ENOMEM
	}
	ref, err := alloc.AllocateLayout(a, rem, 1)
	if err != nil {
		return err
	}
	hdr := block.Header{Size: block.Word(ref.Length) - block.Word(block.HeaderSize), Kind: block.KindEnd}
	*(*block.Header)(unsafe.Pointer(&a.Buf()[ref.Offset])) = hdr
	return nil
}

// Platform performs one sally: hand a staged block to the host side and
// return once the host has written its replies back. A real guest
// triggers the host out-of-band (a port I/O write, a vmcall);
// LoopbackPlatform below calls the host dispatcher in-process, which is
// all a single Go module can demonstrate
// without a real hypervisor underneath it.
type Platform interface {
	Sally(block []byte) error
}

// Execute1 stages a single call, performs one sally over buf, and collects
// its result. This is the common case: most call sites need exactly one
// syscall per round trip.
func Execute1[R any](p Platform, buf []byte, call Syscall[R]) (R, error) {
	a := alloc.NewArena(buf)
	staged, err := StageCall(a, call)
	if err != nil {
		var zero R
		return zero, err
	}
	committed := staged.Commit(buf)
	if err := writeEnd(a); err != nil {
		var zero R
		return zero, err
	}
	if err := p.Sally(buf); err != nil {
		var zero R
		return zero, err
	}
	return committed.Collect(buf), nil
}

// Execute2 batches two independent calls into a single sally: a block may
// carry more than one item, and the host executes each of them in wire
// order before returning.
func Execute2[A, B any](p Platform, buf []byte, ca Syscall[A], cb Syscall[B]) (A, B, error) {
	var za A
	var zb B
	a := alloc.NewArena(buf)
	sa, err := StageCall(a, ca)
	if err != nil {
		return za, zb, err
	}
	sb, err := StageCall(a, cb)
	if err != nil {
		return za, zb, err
	}
	cma := sa.Commit(buf)
	cmb := sb.Commit(buf)
	if err := writeEnd(a); err != nil {
		return za, zb, err
	}
	if err := p.Sally(buf); err != nil {
		return za, zb, err
	}
	return cma.Collect(buf), cmb.Collect(buf), nil
}

// Execute3 batches three independent calls into a single sally.
func Execute3[A, B, C any](p Platform, buf []byte, ca Syscall[A], cb Syscall[B], cc Syscall[C]) (A, B, C, error) {
	var za A
	var zb B
	var zc C
	a := alloc.NewArena(buf)
	sa, err := StageCall(a, ca)
	if err != nil {
		return za, zb, zc, err
	}
	sb, err := StageCall(a, cb)
	if err != nil {
		return za, zb, zc, err
	}
	sc, err := StageCall(a, cc)
	if err != nil {
		return za, zb, zc, err
	}
	cma := sa.Commit(buf)
	cmb := sb.Commit(buf)
	cmc := sc.Commit(buf)
	if err := writeEnd(a); err != nil {
		return za, zb, zc, err
	}
	if err := p.Sally(buf); err != nil {
		return za, zb, zc, err
	}
	return cma.Collect(buf), cmb.Collect(buf), cmc.Collect(buf), nil
}
