// Package alloc implements the guest-side bump allocator that packs one or
// more sallyport items into a single shared block. It bumps a single
// monotonic cursor against a fixed capacity ceiling rather than moving two
// independent cursors toward each other, producing the same wire layout
// while keeping "never let the zones meet" a single bounds check.
package alloc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Arena is a bump allocator over one block's backing buffer. It never
// rolls back a partial allocation: a failed Allocate* call invalidates the
// arena for the rest of the sally, matching  "no rollback"
// failure mode — callers must abandon staging and not attempt to commit.
type Arena struct {
	buf  []byte
	head uintptr
	cap  uintptr
}

// NewArena wraps buf as a fresh arena with its full length as capacity.
func NewArena(buf []byte) *Arena {
	return &Arena{buf: buf, head: 0, cap: uintptr(len(buf))}
}

// Buf returns the arena's backing buffer, for reading/writing committed
// values by offset.
func (a *Arena) Buf() []byte {
	return a.buf
}

// Used returns the number of bytes bumped so far.
func (a *Arena) Used() uintptr {
	return a.head
}

// Remaining returns the number of bytes left before the arena is exhausted.
func (a *Arena) Remaining() uintptr {
	return a.cap - a.head
}

// Cap returns the arena's total capacity.
func (a *Arena) Cap() uintptr {
	return a.cap
}

func alignUp(x, align uintptr) uintptr {
	if align == 0 {
		return x
	}
	return (x + align - 1) &^ (align - 1)
}

// allocate reserves size bytes aligned to align, returning the byte offset
// from the start of the arena's buffer. ENOMEM if doing so would cross the
// capacity ceiling.
func (a *Arena) allocate(size, align uintptr) (uintptr, error) {
	off := alignUp(a.head, align)
	if off < a.head || off > a.cap || size > a.cap-off {
		return 0, unix.ENOMEM
	}
	a.head = off + size
	return off, nil
}

// Ref is an untyped byte-range reference into the arena's buffer.
type Ref struct {
	Offset uintptr
	Length uintptr
}

// AllocateLayout reserves an untyped, opaque region — used to restore word
// alignment after a variable-length payload whose length isn't a multiple
// of the word size.
func AllocateLayout(a *Arena, size, align uintptr) (Ref, error) {
	off, err := a.allocate(size, align)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Offset: off, Length: size}, nil
}

// Pad consumes n otherwise-unaccounted bytes at byte alignment, for
// restoring word alignment after a variable-length section.
func Pad(a *Arena, n uintptr) error {
	if n == 0 {
		return nil
	}
	_, err := AllocateLayout(a, n, 1)
	return err
}

// Direction tags whether a reference is guest-written, host-written or
// both, purely for documentation/assertions — the arena does not enforce
// write ownership itself; that's the job of the stage/commit/collect
// phase discipline in package guest.
type Direction int

const (
	// In is written by the guest at commit time, read by the host.
	In Direction = iota
	// Out is written by the host, read by the guest at collect time.
	Out
	// InOut is written by the guest at commit time and overwritten by the
	// host, then read by the guest at collect time.
	InOut
)

// InRef is a typed guest-to-host reference: written once at commit.
type InRef[T any] struct{ off uintptr }

// OutRef is a typed host-to-guest reference: undefined until collect.
type OutRef[T any] struct{ off uintptr }

// InOutRef is a typed reference written by the guest at commit and read
// back (as overwritten by the host) at collect.
type InOutRef[T any] struct{ off uintptr }

// Offset returns the byte offset of the reference within the arena buffer.
func (r InRef[T]) Offset() uintptr    { return r.off }
func (r OutRef[T]) Offset() uintptr   { return r.off }
func (r InOutRef[T]) Offset() uintptr { return r.off }

// AsOut reinterprets a committed InOutRef as an OutRef for the collect
// phase, once the guest's initial write has already happened at commit.
func (r InOutRef[T]) AsOut() OutRef[T] { return OutRef[T]{off: r.off} }

// AllocateInput reserves sizeof(T) aligned to alignof(T), as an In
// reference.
func AllocateInput[T any](a *Arena) (InRef[T], error) {
	var zero T
	off, err := a.allocate(unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if err != nil {
		return InRef[T]{}, err
	}
	return InRef[T]{off: off}, nil
}

// AllocateOutput reserves sizeof(T) aligned to alignof(T), as an Out
// reference.
func AllocateOutput[T any](a *Arena) (OutRef[T], error) {
	var zero T
	off, err := a.allocate(unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if err != nil {
		return OutRef[T]{}, err
	}
	return OutRef[T]{off: off}, nil
}

// AllocateInOut reserves sizeof(T) aligned to alignof(T), as an InOut
// reference.
func AllocateInOut[T any](a *Arena) (InOutRef[T], error) {
	var zero T
	off, err := a.allocate(unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if err != nil {
		return InOutRef[T]{}, err
	}
	return InOutRef[T]{off: off}, nil
}

// WriteIn writes v into an In reference's storage.
func WriteIn[T any](buf []byte, r InRef[T], v T) {
	*(*T)(unsafe.Pointer(&buf[r.off])) = v
}

// ReadOut reads an Out reference's storage after collect.
func ReadOut[T any](buf []byte, r OutRef[T]) T {
	return *(*T)(unsafe.Pointer(&buf[r.off]))
}

// WriteInOut writes v into an InOut reference's storage at commit time.
func WriteInOut[T any](buf []byte, r InOutRef[T], v T) {
	*(*T)(unsafe.Pointer(&buf[r.off])) = v
}

// ReadInOut reads an InOut reference's storage at collect time.
func ReadInOut[T any](buf []byte, r InOutRef[T]) T {
	return *(*T)(unsafe.Pointer(&buf[r.off]))
}

// BytesRef is a variable-length byte-range reference, used for buffers
// whose size is only known at stage time (read/write/recvfrom payloads).
type BytesRef struct {
	off uintptr
	n   uintptr
}

// Offset returns the byte-range's start offset within the arena buffer.
func (r BytesRef) Offset() uintptr { return r.off }

// Len returns the byte-range's length.
func (r BytesRef) Len() uintptr { return r.n }

// AllocateInputBytes reserves n untyped bytes as an In reference.
func AllocateInputBytes(a *Arena, n uintptr) (BytesRef, error) {
	off, err := a.allocate(n, 1)
	if err != nil {
		return BytesRef{}, err
	}
	return BytesRef{off: off, n: n}, nil
}

// AllocateOutputBytes reserves n untyped bytes as an Out reference.
func AllocateOutputBytes(a *Arena, n uintptr) (BytesRef, error) {
	return AllocateInputBytes(a, n)
}

// AllocateInOutBytes reserves n untyped bytes as an InOut reference.
func AllocateInOutBytes(a *Arena, n uintptr) (BytesRef, error) {
	return AllocateInputBytes(a, n)
}

// WriteBytes copies src into r's region. len(src) must equal r.Len().
func WriteBytes(buf []byte, r BytesRef, src []byte) {
	copy(buf[r.off:r.off+r.n], src)
}

// ReadBytes returns the n bytes at r's offset, clamped to at most r.Len().
func ReadBytes(buf []byte, r BytesRef, n uintptr) []byte {
	if n > r.n {
		n = r.n
	}
	return buf[r.off : r.off+n]
}

// Section runs f against the same arena (so its allocations are
// contiguous with whatever precedes it) and reports how many bytes f
// consumed, so the caller can record that count in an item Header.Size.
func Section[T any](a *Arena, f func(*Arena) (T, error)) (T, uintptr, error) {
	start := a.head
	v, err := f(a)
	if err != nil {
		var zero T
		return zero, 0, err
	}
	return v, a.head - start, nil
}
