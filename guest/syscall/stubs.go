package syscall

import (
	"encoding/binary"

	"github.com/enarx/sallyport-go/guest"

	"golang.org/x/sys/unix"
)

// The calls in this file never sally: a shielded guest must not learn real
// facts about the host it runs under, and the host in turn must never
// learn that one of these calls happened at all. Each function below
// synthesises its result entirely in the guest and is indistinguishable to
// a caller from a host-satisfied result.

// Fake identity and host-shape constants returned by the calls below.
const (
	FakeUID = 1000
	FakeGID = 1000
	FakePID = 1000
	FakeTID = 1
)

const (
	fakeSysname  = "Linux"
	fakeRelease  = "5.6.0"
	fakeVersion  = "#1"
	fakeMachine  = "x86_64"
	fakeNodename = "localhost.localdomain"
	fakeStatTime = int64(1_579_507_218)
)

// FstatResult is Fstat's outcome.
type FstatResult struct {
	Stat unix.Stat_t
	Err  error
}

// Fstat answers an fstat(2) call without ever touching the real file: only
// the three standard descriptors are recognised, each reported as the same
// fixed fifo-shaped stat buffer; every other fd is rejected with EBADFD
// rather than answered at all.
func Fstat(fd int) FstatResult {
	switch fd {
	case unix.Stdin, unix.Stdout, unix.Stderr:
		minor := uint64(0xc)
		if fd == unix.Stdin {
			minor = 0x19
		}
		var st unix.Stat_t
		st.Dev = makedev(0, minor)
		st.Ino = 3
		st.Mode = unix.S_IFIFO | 0o600
		st.Nlink = 1
		st.Uid = FakeUID
		st.Gid = 5
		st.Blksize = 4096
		st.Blocks = 0
		st.Rdev = makedev(0x88, 0)
		st.Size = 0
		st.Atim = unix.Timespec{Sec: fakeStatTime}
		st.Mtim = unix.Timespec{Sec: fakeStatTime}
		st.Ctim = unix.Timespec{Sec: fakeStatTime}
		return FstatResult{Stat: st}
	default:
		return FstatResult{Err: unix.EBADFD}
	}
}

// makedev packs a major/minor device pair into the 64-bit dev_t layout,
// the same bit-packing as glibc's makedev(3): this matches the layout the
// fixed stat values above were computed against.
func makedev(major, minor uint64) uint64 {
	return ((major & 0xffff_f000) << 32) |
		((major & 0x0000_0fff) << 8) |
		((minor & 0xffff_ff00) << 12) |
		(minor & 0x0000_00ff)
}

// GetrandomResult is Getrandom's outcome.
type GetrandomResult struct {
	Data []byte
	Err  error
}

// Getrandom answers a getrandom(2) call using the CPU's RDRAND instruction
// as its entropy source, one 8-byte word at a time, rather than any host
// or kernel random source: no sally happens for this call at all.
func Getrandom(n, flags int) GetrandomResult {
	if uint(flags)&^(unix.GRND_NONBLOCK|unix.GRND_RANDOM) != 0 {
		return GetrandomResult{Err: unix.EINVAL}
	}
	out := make([]byte, n)
	filled := 0
	for filled < len(out) {
		end := filled + 8
		if end > len(out) {
			end = len(out)
		}
		val, ok := rdrand64()
		if !ok {
			switch {
			case flags&unix.GRND_NONBLOCK != 0:
				return GetrandomResult{Err: unix.EAGAIN}
			case flags&unix.GRND_RANDOM != 0:
				return GetrandomResult{Data: out[:filled]}
			default:
				// Keep retrying: a blocking caller waits for the
				// hardware RNG rather than ever falling back to a sally.
				continue
			}
		}
		var word [8]byte
		binary.LittleEndian.PutUint64(word[:], val)
		copy(out[filled:end], word[:end-filled])
		filled = end
	}
	return GetrandomResult{Data: out}
}

// ReadlinkResult is Readlink's outcome.
type ReadlinkResult struct {
	Target string
	Err    error
}

// Readlink only ever resolves the guest's own "/proc/self/exe" lookup of
// its init binary; every other path is rejected as if it didn't exist.
func Readlink(path string, bufLen int) ReadlinkResult {
	if path != "/proc/self/exe" {
		return ReadlinkResult{Err: unix.ENOENT}
	}
	const dest = "/init\x00"
	if bufLen < len(dest) {
		return ReadlinkResult{Err: unix.EINVAL}
	}
	return ReadlinkResult{Target: dest}
}

// UnameResult is Uname's outcome.
type UnameResult struct {
	Utsname unix.Utsname
	Err     error
}

// Uname fabricates a struct utsname with fixed field values rather than
// exposing the real host kernel's identity.
func Uname() UnameResult {
	var ut unix.Utsname
	fillCString(ut.Sysname[:], fakeSysname)
	fillCString(ut.Nodename[:], fakeNodename)
	fillCString(ut.Release[:], fakeRelease)
	fillCString(ut.Version[:], fakeVersion)
	fillCString(ut.Machine[:], fakeMachine)
	return UnameResult{Utsname: ut}
}

func fillCString(dst []byte, s string) {
	n := copy(dst, s)
	if n < len(dst) {
		dst[n] = 0
	}
}

// Getpid answers a getpid(2) call with the fixed fake pid.
func Getpid() guest.Result { return guest.Result{Value: FakePID} }

// Getuid answers a getuid(2) call with the fixed fake uid.
func Getuid() guest.Result { return guest.Result{Value: FakeUID} }

// Geteuid answers a geteuid(2) call with the fixed fake uid.
func Geteuid() guest.Result { return guest.Result{Value: FakeUID} }

// Getgid answers a getgid(2) call with the fixed fake gid.
func Getgid() guest.Result { return guest.Result{Value: FakeGID} }

// Getegid answers a getegid(2) call with the fixed fake gid.
func Getegid() guest.Result { return guest.Result{Value: FakeGID} }

// SetTidAddress answers a set_tid_address(2) call. The address argument is
// accepted but unused: it always answers with the fixed fake tid.
func SetTidAddress(addr uint64) guest.Result { return guest.Result{Value: FakeTID} }

// RtSigprocmaskResult is RtSigprocmask's outcome.
type RtSigprocmaskResult struct {
	OldSet []byte
	Err    error
}

// RtSigprocmask acknowledges an rt_sigprocmask(2) call without altering any
// real signal mask: there is none, since a sallyport guest never runs host
// signal handlers.
func RtSigprocmask(how int, set []byte, size int) RtSigprocmaskResult {
	return RtSigprocmaskResult{OldSet: make([]byte, size)}
}

// SigaltstackResult is Sigaltstack's outcome.
type SigaltstackResult struct {
	Old []byte
	Err error
}

// Sigaltstack acknowledges a sigaltstack(2) call the same way RtSigprocmask
// does.
func Sigaltstack(newStack []byte, size int) SigaltstackResult {
	return SigaltstackResult{Old: make([]byte, size)}
}
