package alloc

import (
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

func unsafePointerAt(buf []byte, off uintptr) unsafe.Pointer {
	return unsafe.Pointer(&buf[off])
}

func TestAllocateInputAlignment(t *testing.T) {
	buf := make([]byte, 64)
	a := NewArena(buf)

	// Force head to an odd offset, then allocate a word: must realign up.
	if _, err := AllocateLayout(a, 3, 1); err != nil {
		t.Fatalf("AllocateLayout: %v", err)
	}
	ref, err := AllocateInput[uint64](a)
	if err != nil {
		t.Fatalf("AllocateInput: %v", err)
	}
	if ref.Offset()%8 != 0 {
		t.Fatalf("offset %d not 8-byte aligned", ref.Offset())
	}
}

func TestAllocateExhaustsArena(t *testing.T) {
	buf := make([]byte, 8)
	a := NewArena(buf)

	if _, err := AllocateInputBytes(a, 8); err != nil {
		t.Fatalf("first allocation should fit: %v", err)
	}
	if _, err := AllocateInputBytes(a, 1); err != unix.ENOMEM {
		t.Fatalf("err = %v, want ENOMEM", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	a := NewArena(buf)

	in, err := AllocateInput[uint64](a)
	if err != nil {
		t.Fatalf("AllocateInput: %v", err)
	}
	WriteIn(buf, in, 0xdeadbeef)

	out, err := AllocateOutput[uint64](a)
	if err != nil {
		t.Fatalf("AllocateOutput: %v", err)
	}
	// Simulate the host writing a result into the Out region.
	*(*uint64)(unsafePointerAt(buf, out.Offset())) = 42
	if got := ReadOut(buf, out); got != 42 {
		t.Fatalf("ReadOut = %d, want 42", got)
	}

	io, err := AllocateInOut[uint64](a)
	if err != nil {
		t.Fatalf("AllocateInOut: %v", err)
	}
	WriteInOut(buf, io, 7)
	if got := ReadInOut(buf, io); got != 7 {
		t.Fatalf("ReadInOut = %d, want 7", got)
	}
}

func TestSectionReportsBytesConsumed(t *testing.T) {
	buf := make([]byte, 64)
	a := NewArena(buf)

	_, consumed, err := Section(a, func(sub *Arena) (BytesRef, error) {
		return AllocateInputBytes(sub, 17)
	})
	if err != nil {
		t.Fatalf("Section: %v", err)
	}
	if consumed != 17 {
		t.Fatalf("consumed = %d, want 17", consumed)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	a := NewArena(buf)

	ref, err := AllocateInputBytes(a, 5)
	if err != nil {
		t.Fatalf("AllocateInputBytes: %v", err)
	}
	WriteBytes(buf, ref, []byte("hello"))
	if got := string(ReadBytes(buf, ref, 5)); got != "hello" {
		t.Fatalf("ReadBytes = %q, want %q", got, "hello")
	}
	if got := string(ReadBytes(buf, ref, 100)); got != "hello" {
		t.Fatalf("ReadBytes clamp = %q, want %q", got, "hello")
	}
}
