package client

import (
	"os"
	"testing"

	"github.com/enarx/sallyport-go/guest"
	"github.com/enarx/sallyport-go/host"

	"gotest.tools/v3/assert"
)

func pipeFDs(t *testing.T) (*os.File, *os.File, error) {
	t.Helper()
	return os.Pipe()
}

func TestHandlerGetpidEndToEnd(t *testing.T) {
	buf := make([]byte, 4096)
	d := host.New(nil, nil)
	h := New(guest.NewLoopbackPlatform(d), buf)

	ret, err := h.Getpid()
	assert.NilError(t, err)
	assert.Equal(t, ret.Ok(), true)
	assert.Equal(t, ret.Value, int64(1000)) // fixed fake pid
}

func TestHandlerWriteEndToEnd(t *testing.T) {
	buf := make([]byte, 4096)
	d := host.New(nil, nil)
	h := New(guest.NewLoopbackPlatform(d), buf)

	r, w, err := pipeFDs(t)
	assert.NilError(t, err)
	defer r.Close()
	defer w.Close()

	ret, err := h.Write(int(w.Fd()), []byte("ok"))
	assert.NilError(t, err)
	assert.Equal(t, ret.Value, int64(2))
}
