package conf

import (
	"github.com/skiffdb/skiff/errors"
	"github.com/skiffdb/skiff/log"
)

const (
	// DefaultMaxMemoryRows is the per-result row budget above which results
	// spill to the temp store.
	DefaultMaxMemoryRows = 100000

	DefaultMetricsHTTPListenAddr = "localhost:2112"
)

type Config struct {
	// DataDir is where the pebble temp store keeps its files. Required when
	// Persistent is true.
	DataDir string `json:"data_dir,omitempty"`
	// Persistent selects the disk backed temp store. Non persistent engines
	// hold all result rows in memory and never spill.
	Persistent bool `json:"persistent,omitempty"`
	// ReadOnly engines cannot write temp store files, so their results are
	// also never spilled.
	ReadOnly               bool       `json:"read_only,omitempty"`
	MaxMemoryRows          int        `json:"max_memory_rows,omitempty"`
	Log                    log.Config `json:"log,omitempty"`
	EnableMetrics          bool       `json:"enable_metrics,omitempty"`
	MetricsHTTPListenAddr  string     `json:"metrics_http_listen_addr,omitempty"`
	FailureInjectorEnabled bool       `json:"failure_injector_enabled,omitempty"`
}

func (c *Config) Validate() error {
	if c.MaxMemoryRows < 1 {
		return errors.NewInvalidConfigurationError("MaxMemoryRows must be >= 1")
	}
	if c.Persistent && c.DataDir == "" {
		return errors.NewInvalidConfigurationError("DataDir must be specified when Persistent is true")
	}
	if c.ReadOnly && !c.Persistent {
		return errors.NewInvalidConfigurationError("ReadOnly requires Persistent")
	}
	if c.EnableMetrics && c.MetricsHTTPListenAddr == "" {
		return errors.NewInvalidConfigurationError("MetricsHTTPListenAddr must be specified when EnableMetrics is true")
	}
	return nil
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxMemoryRows:         DefaultMaxMemoryRows,
		MetricsHTTPListenAddr: DefaultMetricsHTTPListenAddr,
	}
}

// NewTestConfig gives a persistent engine rooted at dataDir, typically a
// t.TempDir(), with metrics disabled.
func NewTestConfig(dataDir string) *Config {
	return &Config{
		DataDir:       dataDir,
		Persistent:    true,
		MaxMemoryRows: DefaultMaxMemoryRows,
	}
}
