package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the host harness's on-disk configuration.
type Config struct {
	Host  HostConfig  `toml:"host"`
	Guest GuestConfig `toml:"guest"`
}

// HostConfig configures the dispatcher-side harness (cmd/sallyhost).
type HostConfig struct {
	// BlockSize is the byte size of each shared memory block the host
	// allocates for a guest.
	BlockSize int `toml:"block_size"`
	// ShmName names the shared memory segment the host creates and the
	// guest opens.
	ShmName string `toml:"shm_name"`
	// TriggerPort is the I/O port number of a guest's sally trigger,
	// mirroring boot.SyscallTriggerPort. cmd/sallyhost only reports it:
	// triggers reach the harness over a Unix domain socket, not a port.
	TriggerPort uint16 `toml:"trigger_port"`
	// MetricsAddr is the listen address for the Prometheus metrics
	// endpoint. Empty disables it.
	MetricsAddr string `toml:"metrics_addr"`
}

// GuestConfig configures the demonstration guest harness (cmd/sallyguest).
type GuestConfig struct {
	// ShmName must match the host's HostConfig.ShmName.
	ShmName string `toml:"shm_name"`
	// BlockSize must match the host's HostConfig.BlockSize.
	BlockSize int `toml:"block_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Host: HostConfig{
			BlockSize:   64 * 1024,
			ShmName:     "/sallyport",
			TriggerPort: 0xFF,
			MetricsAddr: "127.0.0.1:9121",
		},
		Guest: GuestConfig{
			ShmName:   "/sallyport",
			BlockSize: 64 * 1024,
		},
	}
}

// Load reads and parses a TOML configuration file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := Default()
	if err := toml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}
