package main

import (
	"os"

	"github.com/enarx/sallyport-go/client"
	"github.com/enarx/sallyport-go/config"
	"github.com/enarx/sallyport-go/guest"

	"github.com/edsrzf/mmap-go"
	"github.com/sirupsen/logrus"
)

// sallyguest is a demonstration caller: getpid and uname resolve inside
// the guest, and write is proxied through a running sallyhost over the
// shared block both processes mmap, to exercise the full
// stage/commit/sally/collect pipeline end to end.
func main() {
	logrus.Info("sallyguest starting...")

	cfgPath := "sallyport.toml"
	if p := os.Getenv("SALLYPORT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg := config.Default()
	if _, err := os.Stat(cfgPath); err == nil {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logrus.Fatalf("failed to load config %s: %v", cfgPath, err)
		}
	}

	f, err := os.OpenFile(shmPath(cfg.Guest.ShmName), os.O_RDWR, 0600)
	if err != nil {
		logrus.Fatalf("shm: open: %v (is sallyhost running?)", err)
	}
	defer f.Close()

	block, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		logrus.Fatalf("shm: mmap: %v", err)
	}
	defer block.Unmap()

	platform := guest.NewRemotePlatform(triggerSocketPath(cfg.Guest.ShmName))
	h := client.New(platform, block)

	pid, err := h.Getpid()
	if err != nil {
		logrus.Fatalf("getpid: %v", err)
	}
	logrus.Infof("getpid -> %d", pid.Value)

	uname, err := h.Uname()
	if err != nil {
		logrus.Fatalf("uname: %v", err)
	}
	logrus.Infof("uname -> sysname=%s release=%s", cstr(uname.Utsname.Sysname[:]), cstr(uname.Utsname.Release[:]))

	ret, err := h.Write(1, []byte("hello from sallyguest\n"))
	if err != nil {
		logrus.Fatalf("write: %v", err)
	}
	logrus.Infof("write -> %d bytes", ret.Value)

	logrus.Info("sallyguest finished.")
}

func shmPath(name string) string {
	return "/dev/shm" + name
}

func triggerSocketPath(shmName string) string {
	return "/tmp" + shmName + ".trigger"
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
