package gpu

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	coil "github.com/quyse/coil-core-sub001"
)

// Default configuration values.
const (
	// DefaultChunkSize is the size of device memory chunks suballocated by a Pool (16 MiB).
	DefaultChunkSize = 16 << 20

	// DefaultTransientBufferSize is the size of each per-frame transient buffer (4 MiB).
	DefaultTransientBufferSize = 4 << 20

	// DefaultFrameCount is the number of frames a presenter keeps in flight.
	DefaultFrameCount = 2
)

// Config holds device and presentation settings.
// The zero value of every field selects its default.
type Config struct {
	// Backend names the backend driver. Empty selects the best available one.
	Backend string `toml:"backend" yaml:"backend"`

	// AppName is reported to the driver.
	AppName string `toml:"app_name" yaml:"app_name"`

	// Validation enables driver validation layers.
	Validation bool `toml:"validation" yaml:"validation"`

	// ChunkSize is the device memory chunk size of pools.
	ChunkSize uint64 `toml:"chunk_size" yaml:"chunk_size"`

	// TransientBufferSize is the size of per-frame transient buffers and the
	// largest transient allocation a context accepts.
	TransientBufferSize uint64 `toml:"transient_buffer_size" yaml:"transient_buffer_size"`

	// FrameCount is the number of frames in flight, at least 2.
	FrameCount int `toml:"frame_count" yaml:"frame_count"`

	// Vsync selects FIFO presentation.
	Vsync bool `toml:"vsync" yaml:"vsync"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AppName:             "coil",
		ChunkSize:           DefaultChunkSize,
		TransientBufferSize: DefaultTransientBufferSize,
		FrameCount:          DefaultFrameCount,
		Vsync:               true,
	}
}

// withDefaults fills zero fields with their defaults.
func (c Config) withDefaults() Config {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.TransientBufferSize == 0 {
		c.TransientBufferSize = DefaultTransientBufferSize
	}
	if c.FrameCount < 2 {
		c.FrameCount = DefaultFrameCount
	}
	return c
}

// LoadConfig reads a configuration file. The format is chosen by extension:
// .toml, or .yaml/.yml. Fields missing from the file keep DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return ParseConfig(data, filepath.Ext(path))
}

// ParseConfig decodes configuration data of the given format ("toml",
// "yaml" or "yml", with or without a leading dot).
func ParseConfig(data []byte, format string) (Config, error) {
	cfg := DefaultConfig()
	var err error
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "toml":
		err = toml.Unmarshal(data, &cfg)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, coil.Errorf(coil.Validation, "parse config", "unknown config format %q", format)
	}
	if err != nil {
		return Config{}, coil.Wrap(coil.Validation, "parse config", err)
	}
	return cfg, nil
}
