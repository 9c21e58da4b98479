package host

import (
	"net"
	"os"
)

// Trigger stands in for the real confidential-computing VM exit a shim
// causes by writing to boot.SyscallTriggerPort: this module has no
// hypervisor underneath it, so host and guest instead rendezvous over a
// Unix domain socket at a caller-chosen path (the cmd harnesses derive it
// from the shared-memory segment name).
// Each doorbell connection corresponds to exactly one sally: the guest
// writes one byte, blocks for the host's one-byte acknowledgement (sent
// once Execute has run against the shared block), then closes.
type Trigger struct {
	ln   net.Listener
	path string
}

// ListenTrigger starts accepting trigger notifications at path, removing
// any stale socket left behind by a prior run first. Each accepted
// connection is delivered on the returned channel; the receiver must call
// Ack on it once it has finished executing against the shared block.
func ListenTrigger(path string) (*Trigger, <-chan net.Conn, error) {
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan net.Conn)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				close(ch)
				return
			}
			buf := make([]byte, 1)
			if _, err := conn.Read(buf); err != nil {
				conn.Close()
				continue
			}
			ch <- conn
		}
	}()
	return &Trigger{ln: ln, path: path}, ch, nil
}

// Ack acknowledges a trigger connection delivered by ListenTrigger's
// channel, signalling to the guest that the sally has completed.
func Ack(conn net.Conn) {
	defer conn.Close()
	_, _ = conn.Write([]byte{1})
}

// Close stops accepting new connections and removes the socket file.
func (t *Trigger) Close() error {
	err := t.ln.Close()
	if rmErr := os.Remove(t.path); rmErr != nil && err == nil {
		err = rmErr
	}
	return err
}

// Pull performs one synchronous sally trigger against a listening Trigger
// at path: it dials, writes a single doorbell byte, then blocks until the
// host's acknowledgement byte arrives.
func Pull(path string) error {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.Write([]byte{1}); err != nil {
		return err
	}
	ack := make([]byte, 1)
	_, err = conn.Read(ack)
	return err
}
