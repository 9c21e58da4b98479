package host

import (
	"testing"
	"unsafe"

	"github.com/enarx/sallyport-go/block"

	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
)

func putSyscallItem(buf []byte, off int, sc block.SyscallPayload, dataLen int) int {
	size := block.Word(block.SyscallPayloadSize) + block.Word(dataLen)
	hdr := block.Header{Size: size, Kind: block.KindSyscall}
	*(*block.Header)(unsafe.Pointer(&buf[off])) = hdr
	*(*block.SyscallPayload)(unsafe.Pointer(&buf[off+int(block.HeaderSize)])) = sc
	return off + int(block.HeaderSize) + int(size)
}

func putEnd(buf []byte, off int) {
	hdr := block.Header{Size: block.Word(len(buf) - off - int(block.HeaderSize)), Kind: block.KindEnd}
	*(*block.Header)(unsafe.Pointer(&buf[off])) = hdr
}

func TestExecuteRejectsMalformedBlock(t *testing.T) {
	buf := make([]byte, 64)
	// Oversized Header.Size with no matching payload: malformed.
	*(*block.Header)(unsafe.Pointer(&buf[0])) = block.Header{Size: 1000, Kind: block.KindSyscall}

	d := New(nil, nil)
	err := d.Execute(buf)
	assert.Error(t, err, unix.EINVAL.Error())
}

func TestExecuteDispatchesSync(t *testing.T) {
	buf := make([]byte, 256)
	next := putSyscallItem(buf, 0, block.SyscallPayload{Num: uint64(unix.SYS_SYNC)}, 0)
	putEnd(buf, next)

	d := New(nil, nil)
	assert.NilError(t, d.Execute(buf))

	sc := (*block.SyscallPayload)(unsafe.Pointer(&buf[block.HeaderSize]))
	assert.Equal(t, int64(sc.Ret[0]), int64(0))
}

// TestExecuteRejectsStubSyscallNumber confirms that a pure guest stub's
// syscall number, if it somehow reached the dispatcher, is rejected as
// unsupported rather than answered: stubs are resolved in the guest and
// this package has no fabricated answer for them at all.
func TestExecuteRejectsStubSyscallNumber(t *testing.T) {
	buf := make([]byte, 256)
	next := putSyscallItem(buf, 0, block.SyscallPayload{Num: uint64(unix.SYS_GETPID)}, 0)
	putEnd(buf, next)

	d := New(nil, nil)
	assert.NilError(t, d.Execute(buf))

	sc := (*block.SyscallPayload)(unsafe.Pointer(&buf[block.HeaderSize]))
	assert.Equal(t, int64(sc.Ret[0]), -int64(unix.ENOSYS))
}

func TestExecuteUnknownSyscallReturnsENOSYS(t *testing.T) {
	buf := make([]byte, 256)
	next := putSyscallItem(buf, 0, block.SyscallPayload{Num: 0xffffff}, 0)
	putEnd(buf, next)

	d := New(nil, nil)
	assert.NilError(t, d.Execute(buf))

	sc := (*block.SyscallPayload)(unsafe.Pointer(&buf[block.HeaderSize]))
	assert.Equal(t, int64(sc.Ret[0]), -int64(unix.ENOSYS))
}

func TestDerefRejectsOutOfBounds(t *testing.T) {
	buf := make([]byte, 16)
	_, err := deref(buf, 10, 100, 1)
	assert.Error(t, err, unix.EFAULT.Error())
}

func TestDerefAcceptsInBoundsRange(t *testing.T) {
	buf := make([]byte, 16)
	got, err := deref(buf, 4, 8, 1)
	assert.NilError(t, err)
	assert.Equal(t, len(got), 8)
}

// TestDerefRejectsMisalignedOffset confirms that advancing an otherwise
// in-bounds offset by one byte, making it violate its referent's natural
// alignment, is rejected with EFAULT exactly like an out-of-bounds one.
func TestDerefRejectsMisalignedOffset(t *testing.T) {
	buf := make([]byte, 32)
	base := uintptrOf(buf)
	align := uintptr(8)
	// off is chosen so that base+off is 8-byte aligned.
	off := (align - base%align) % align

	_, err := deref(buf, block.Word(off), 8, align)
	assert.NilError(t, err)

	_, err = deref(buf, block.Word(off)+1, 8, align)
	assert.Error(t, err, unix.EFAULT.Error())
}

// TestCallRejectsOffsetOutsideItemData confirms that an argv offset past
// the end of the issuing item's own data zone is rejected, even though it
// may still lie within the whole block buffer — exactly the situation a
// batched sally creates when one item's payload follows another's.
func TestCallRejectsOffsetOutsideItemData(t *testing.T) {
	buf := make([]byte, 256)
	sc := block.SyscallPayload{
		Num:  uint64(unix.SYS_READ),
		Argv: [6]block.Word{0, 64, 8}, // offset 64 is nowhere in an 8-byte data zone
	}
	next := putSyscallItem(buf, 0, sc, 8)
	putEnd(buf, next)

	d := New(nil, nil)
	assert.NilError(t, d.Execute(buf))

	got := (*block.SyscallPayload)(unsafe.Pointer(&buf[block.HeaderSize]))
	assert.Equal(t, int64(got.Ret[0]), -int64(unix.EFAULT))
}
