package block

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

func putHeader(buf []byte, off int, h Header) {
	*(*Header)(unsafe.Pointer(&buf[off])) = h
}

func TestIteratorSingleEnd(t *testing.T) {
	buf := make([]byte, 64)
	putHeader(buf, 0, Header{Size: Word(len(buf)) - Word(HeaderSize), Kind: KindEnd})

	it := NewIterator(buf)
	item, ok, err := it.Next()
	if err != nil || !ok {
		t.Fatalf("Next() = %+v, %v, %v", item, ok, err)
	}
	if item.Kind != KindEnd {
		t.Fatalf("expected KindEnd, got %v", item.Kind)
	}
	if item.Free != Word(len(buf))-Word(HeaderSize) {
		t.Fatalf("Free = %d, want %d", item.Free, len(buf)-int(HeaderSize))
	}
	if !it.Done() {
		t.Fatal("expected Done() after End item")
	}
}

func TestIteratorSyscallThenEnd(t *testing.T) {
	buf := make([]byte, 256)
	scSize := Word(SyscallPayloadSize) + 8 // one word of data tail
	putHeader(buf, 0, Header{Size: scSize, Kind: KindSyscall})
	sc := (*SyscallPayload)(unsafe.Pointer(&buf[HeaderSize]))
	sc.Num = 42
	sc.Argv[0] = 7

	endOff := int(HeaderSize) + int(scSize)
	endSize := Word(len(buf)-endOff) - Word(HeaderSize)
	putHeader(buf, endOff, Header{Size: endSize, Kind: KindEnd})

	items, err := Items(buf)
	if err != nil {
		t.Fatalf("Items() error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].Kind != KindSyscall || items[0].Syscall.Num != 42 || items[0].Syscall.Argv[0] != 7 {
		t.Fatalf("unexpected syscall item: %+v", items[0])
	}
	if len(items[0].Data) != 8 {
		t.Fatalf("data tail len = %d, want 8", len(items[0].Data))
	}
	if items[1].Kind != KindEnd {
		t.Fatalf("expected trailing End, got %v", items[1].Kind)
	}
}

func TestIteratorRejectsOversizedHeader(t *testing.T) {
	buf := make([]byte, 32)
	putHeader(buf, 0, Header{Size: 1000, Kind: KindSyscall})

	_, _, err := NewIterator(buf).Next()
	if err != unix.EINVAL {
		t.Fatalf("err = %v, want EINVAL", err)
	}
}

func TestIteratorRejectsUnknownKind(t *testing.T) {
	buf := make([]byte, 32)
	putHeader(buf, 0, Header{Size: 0, Kind: Kind(0x03)})

	_, _, err := NewIterator(buf).Next()
	if err != unix.EINVAL {
		t.Fatalf("err = %v, want EINVAL", err)
	}
}

func TestItemsRejectsMissingEnd(t *testing.T) {
	buf := make([]byte, int(HeaderSize)+int(SyscallPayloadSize))
	putHeader(buf, 0, Header{Size: Word(SyscallPayloadSize), Kind: KindSyscall})

	_, err := Items(buf)
	if err != unix.EINVAL {
		t.Fatalf("err = %v, want EINVAL", err)
	}
}

func TestLargestItemSize(t *testing.T) {
	if LargestItemSize < HeaderSize+SyscallPayloadSize {
		t.Fatalf("LargestItemSize too small: %d", LargestItemSize)
	}
	if LargestPayloadSize != SyscallPayloadSize {
		t.Fatalf("expected Syscall to be the larger payload, got %d vs %d", SyscallPayloadSize, GdbcallPayloadSize)
	}
}
