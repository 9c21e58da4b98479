package syscall

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

const unsafeSizeofEpollEvent = unix.SizeofEpollEvent

func decodeEpollEvent(b []byte) unix.EpollEvent {
	return *(*unix.EpollEvent)(unsafe.Pointer(&b[0]))
}
