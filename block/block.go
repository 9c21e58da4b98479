// Package block implements the sallyport wire format: a contiguous shared
// memory region carved into a sequence of self-describing items — a
// Header followed by exactly Header.Size bytes of payload, repeated until
// a Kind=End item is reached. All integers are native-endian machine
// words; this package targets linux/amd64, so Word is a fixed uint64
// rather than the platform uintptr.
package block

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Word is the sallyport wire integer type: one x86-64 machine word.
type Word = uint64

// Kind tags an item's payload shape. Unknown kinds are fatal on the host.
type Kind Word

const (
	// KindEnd terminates a block. Its Header.Size carries the block's
	// remaining free byte count.
	KindEnd Kind = 0x00
	// KindSyscall tags a Syscall item.
	KindSyscall Kind = 0x01
	// KindGdbcall tags a Gdbcall item.
	KindGdbcall Kind = 0x02
)

func (k Kind) String() string {
	switch k {
	case KindEnd:
		return "End"
	case KindSyscall:
		return "Syscall"
	case KindGdbcall:
		return "Gdbcall"
	default:
		return fmt.Sprintf("Kind(%#x)", Word(k))
	}
}

// Header precedes every item in a block.
type Header struct {
	Size Word
	Kind Kind
}

// HeaderSize is the on-wire byte size of Header.
const HeaderSize = unsafe.Sizeof(Header{})

// SyscallPayload is the fixed-size portion of a Syscall item: the syscall
// number, its six-word argument vector (pointer arguments hold offsets, not
// addresses) and its two return words.
type SyscallPayload struct {
	Num  Word
	Argv [6]Word
	Ret  [2]Word
}

// SyscallPayloadSize is the on-wire byte size of SyscallPayload.
const SyscallPayloadSize = unsafe.Sizeof(SyscallPayload{})

// GdbcallPayload mirrors SyscallPayload's shape for the (out of scope here)
// GDB stub call family; recognised by the codec so an unknown-kind block
// never looks malformed just because it contains one.
type GdbcallPayload struct {
	Num  Word
	Argv [4]Word
	Ret  Word
}

// GdbcallPayloadSize is the on-wire byte size of GdbcallPayload.
const GdbcallPayloadSize = unsafe.Sizeof(GdbcallPayload{})

// LargestPayloadSize is the larger of the two non-End payload shapes.
const LargestPayloadSize = max(SyscallPayloadSize, GdbcallPayloadSize)

// LargestItemSize is the minimum block size capable of holding a single
// item of the largest kind plus a following End item header.
const LargestItemSize = HeaderSize + LargestPayloadSize + HeaderSize

// Item is a typed view of one record produced by iteration. Exactly one of
// Syscall or Gdbcall is non-nil, unless Kind == KindEnd.
type Item struct {
	Kind    Kind
	Syscall *SyscallPayload
	Gdbcall *GdbcallPayload
	// Data is this item's data tail: the bytes of its Size-byte payload
	// that follow the fixed Syscall/Gdbcall struct. Argv offsets are
	// relative to the start of Data.
	Data []byte
	// Free holds the remaining byte count carried by a KindEnd item.
	Free Word
}

// Iterator scans a block's items in wire order, enforcing that the block
// contains at most one End item and that it terminates the sequence.
type Iterator struct {
	rest   []byte
	done   bool
	sawEnd bool
}

// NewIterator returns an Iterator over buf, which must be the full block
// (or the remaining suffix of one, for resumption after a partial parse).
func NewIterator(buf []byte) *Iterator {
	return &Iterator{rest: buf}
}

// Next returns the next item. ok is false once the End item has been
// yielded; callers must stop iterating at that point. A non-nil error means
// the block is malformed: EINVAL for oversized Size, unknown Kind, or
// running out of bytes before an End item is seen.
func (it *Iterator) Next() (item Item, ok bool, err error) {
	if it.done {
		return Item{}, false, nil
	}
	if Word(len(it.rest)) < Word(HeaderSize) {
		return Item{}, false, unix.EINVAL
	}
	hdr := (*Header)(unsafe.Pointer(&it.rest[0]))
	body := it.rest[HeaderSize:]
	if hdr.Kind == KindEnd {
		it.done = true
		it.sawEnd = true
		return Item{Kind: KindEnd, Free: hdr.Size}, true, nil
	}
	if hdr.Size > Word(len(body)) {
		return Item{}, false, unix.EINVAL
	}
	payload := body[:hdr.Size]
	it.rest = body[hdr.Size:]

	switch hdr.Kind {
	case KindSyscall:
		if hdr.Size < Word(SyscallPayloadSize) {
			return Item{}, false, unix.EINVAL
		}
		sc := (*SyscallPayload)(unsafe.Pointer(&payload[0]))
		return Item{Kind: KindSyscall, Syscall: sc, Data: payload[SyscallPayloadSize:]}, true, nil
	case KindGdbcall:
		if hdr.Size < Word(GdbcallPayloadSize) {
			return Item{}, false, unix.EINVAL
		}
		gc := (*GdbcallPayload)(unsafe.Pointer(&payload[0]))
		return Item{Kind: KindGdbcall, Gdbcall: gc, Data: payload[GdbcallPayloadSize:]}, true, nil
	default:
		return Item{}, false, unix.EINVAL
	}
}

// Done reports whether the End item has been consumed.
func (it *Iterator) Done() bool {
	return it.sawEnd
}

// Items fully drains buf into a slice, enforcing that iteration ends in
// exactly one End item: at most one End item may appear, and it
// terminates the sequence.
func Items(buf []byte) ([]Item, error) {
	it := NewIterator(buf)
	var items []Item
	for {
		item, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			// Ran out of bytes without ever seeing an End item.
			return nil, unix.EINVAL
		}
		items = append(items, item)
		if item.Kind == KindEnd {
			return items, nil
		}
	}
}
