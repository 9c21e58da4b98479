package guest

import (
	"testing"

	"github.com/enarx/sallyport-go/alloc"
	"github.com/enarx/sallyport-go/block"

	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
)

// echoCall is a minimal Syscall[R] used to exercise the stage/commit/
// collect pipeline without depending on the real syscall catalogue
// (avoids an import cycle: guest/syscall already imports this package).
type echoCall struct {
	num  int64
	argv [6]block.Word
}

func (c echoCall) Num() int64 { return c.num }
func (c echoCall) Stage(a *alloc.Arena) (argv [6]block.Word, state any, err error) {
	return c.argv, nil, nil
}
func (echoCall) Collect(_ []byte, ret Result, _ any) Result { return ret }

// fakePlatform answers every sally by writing a fixed ret[0] into every
// staged Syscall item's return words, without touching the kernel.
type fakePlatform struct{ ret0 int64 }

func (p fakePlatform) Sally(buf []byte) error {
	items, err := block.Items(buf)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.Kind == block.KindSyscall {
			item.Syscall.Ret[0] = uint64(p.ret0)
		}
	}
	return nil
}

func TestExecute1RoundTrip(t *testing.T) {
	buf := make([]byte, 128)
	p := fakePlatform{ret0: 42}

	res, err := Execute1[Result](p, buf, echoCall{num: 1})
	assert.NilError(t, err)
	assert.Equal(t, res.Value, int64(42))
	assert.Equal(t, res.Ok(), true)
}

func TestExecute1ErrorPropagation(t *testing.T) {
	buf := make([]byte, 128)
	p := fakePlatform{ret0: -2} // -ENOENT

	res, err := Execute1[Result](p, buf, echoCall{num: 1})
	assert.NilError(t, err)
	assert.Equal(t, res.Ok(), false)
}

func TestExecute2BatchesTwoItems(t *testing.T) {
	buf := make([]byte, 256)
	p := fakePlatform{ret0: 7}

	a, b, err := Execute2[Result, Result](p, buf, echoCall{num: 1}, echoCall{num: 2})
	assert.NilError(t, err)
	assert.Equal(t, a.Value, int64(7))
	assert.Equal(t, b.Value, int64(7))
}

func TestCommitWithoutSallyLeavesENOSYSSentinel(t *testing.T) {
	buf := make([]byte, 128)
	a := alloc.NewArena(buf)
	staged, err := StageCall(a, echoCall{num: 99})
	assert.NilError(t, err)
	committed := staged.Commit(buf)
	assert.NilError(t, writeEnd(a))

	// No Sally performed: ret words should still carry the ENOSYS sentinel.
	res := committed.Collect(buf)
	assert.Equal(t, res.Ok(), false)
	assert.Equal(t, res.Err, error(unix.ENOSYS))
}
