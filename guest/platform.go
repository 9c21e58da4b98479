package guest

import "github.com/enarx/sallyport-go/host"

// LoopbackPlatform implements Platform by dispatching directly against an
// in-process host.Dispatcher. Nothing outside this demonstration module
// owns a real hypervisor to trigger, so this is how guest and host are
// wired together for in-process testing, as distinct from the
// sallyguest/sallyhost command pair which talks over a shared mmap.
type LoopbackPlatform struct {
	Dispatcher *host.Dispatcher
}

// NewLoopbackPlatform returns a Platform that performs each sally by
// invoking d.Execute directly against buf.
func NewLoopbackPlatform(d *host.Dispatcher) *LoopbackPlatform {
	return &LoopbackPlatform{Dispatcher: d}
}

// Sally implements Platform.
func (p *LoopbackPlatform) Sally(buf []byte) error {
	return p.Dispatcher.Execute(buf)
}

// RemotePlatform implements Platform by triggering a sally against a host
// process listening on a Unix domain socket (host.ListenTrigger), standing
// in for the real VM-exit-on-port-write mechanism. buf itself must
// already be the same mapping the host dispatcher executes against (e.g.
// both processes mmap the same shm file).
type RemotePlatform struct {
	TriggerPath string
}

// NewRemotePlatform returns a Platform that triggers sallies over a Unix
// socket at triggerPath.
func NewRemotePlatform(triggerPath string) *RemotePlatform {
	return &RemotePlatform{TriggerPath: triggerPath}
}

// Sally implements Platform.
func (p *RemotePlatform) Sally(buf []byte) error {
	return host.Pull(p.TriggerPath)
}
