// Package config loads the runtime configuration a thriftrt host
// needs: protocol wire limits, transport framing limits, IDL search
// roots, and logging, following the teacher's YAML-plus-env-expansion
// loader shape.
package config

import (
	"fmt"

	"github.com/ritksm/thriftpy/internal/logging"
	"github.com/ritksm/thriftpy/protocol"
)

// Config is the complete host configuration, per spec.md §6's
// Configuration table plus the schema/logging concerns a long-running
// server needs that the core protocol spec leaves to the host.
type Config struct {
	Protocol  ProtocolConfig  `yaml:"protocol"`
	Transport TransportConfig `yaml:"transport"`
	Schema    SchemaConfig    `yaml:"schema"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProtocolConfig mirrors spec.md §6's Configuration table.
type ProtocolConfig struct {
	StringLengthLimit    int  `yaml:"string_length_limit"`
	ContainerLengthLimit int  `yaml:"container_length_limit"`
	RecursionDepthLimit  int  `yaml:"recursion_depth_limit"`
	StrictRead           bool `yaml:"strict_read"`
	StrictWrite          bool `yaml:"strict_write"`
}

// TransportConfig holds transport-layer framing limits.
type TransportConfig struct {
	FrameSizeLimit int `yaml:"frame_size_limit"`
}

// SchemaConfig names the IDL roots a host loads at startup and the
// search path used to resolve their includes.
type SchemaConfig struct {
	Roots       []string `yaml:"roots"`
	IncludeDirs []string `yaml:"include_dirs"`
	// Watch enables schemawatch-based hot reload of Roots.
	Watch bool `yaml:"watch"`
	// CacheSize bounds the schemacache.Cache entry count. 0 uses the
	// cache package's own default.
	CacheSize int `yaml:"cache_size"`
}

// LoggingConfig matches internal/logging.Config's shape with YAML
// tags, so it can be embedded directly in a host's config document.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Output     string `yaml:"output"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local_time"`
}

// Default returns a Config seeded with spec.md §6's documented
// defaults.
func Default() *Config {
	return &Config{
		Protocol: ProtocolConfig{
			StringLengthLimit:    64 * 1024 * 1024,
			ContainerLengthLimit: 1 << 24,
			RecursionDepthLimit:  64,
			StrictRead:           true,
			StrictWrite:          true,
		},
		Transport: TransportConfig{
			FrameSizeLimit: 16 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
	}
}

// ToProtocolConfig converts to a protocol.Config for constructing a
// Binary/Compact/Json protocol.
func (c *Config) ToProtocolConfig() protocol.Config {
	return protocol.Config{
		StringLengthLimit:    c.Protocol.StringLengthLimit,
		ContainerLengthLimit: c.Protocol.ContainerLengthLimit,
		RecursionDepthLimit:  c.Protocol.RecursionDepthLimit,
		StrictRead:           c.Protocol.StrictRead,
		StrictWrite:          c.Protocol.StrictWrite,
	}
}

// ToLoggingConfig converts to an internal/logging.Config.
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Logging.Level,
		Output:     c.Logging.Output,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Compress:   c.Logging.Compress,
		LocalTime:  c.Logging.LocalTime,
	}
}

// Validate checks a parsed Config for internally inconsistent values,
// per the Loader's "validates the parsed config before returning it"
// contract.
func (c *Config) Validate() error {
	if c.Protocol.StringLengthLimit <= 0 {
		return fmt.Errorf("config: protocol.string_length_limit must be positive")
	}
	if c.Protocol.ContainerLengthLimit <= 0 {
		return fmt.Errorf("config: protocol.container_length_limit must be positive")
	}
	if c.Protocol.RecursionDepthLimit <= 0 {
		return fmt.Errorf("config: protocol.recursion_depth_limit must be positive")
	}
	if c.Transport.FrameSizeLimit <= 0 {
		return fmt.Errorf("config: transport.frame_size_limit must be positive")
	}
	if len(c.Schema.Roots) == 0 {
		return fmt.Errorf("config: schema.roots must name at least one IDL file")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug/info/warn/error", c.Logging.Level)
	}
	return nil
}
