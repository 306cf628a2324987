package log

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/skiffdb/skiff/errors"
)

// Config contains the configuration for the global logger.
type Config struct {
	Format string `json:"format,omitempty"` // "text" or "json"
	Level  string `json:"level,omitempty"`  // trace, debug, info, warn, error
	File   string `json:"file,omitempty"`   // blank or "-" means stdout
}

// Configure the global logger.
func (cfg *Config) Configure() error {
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.Create(cfg.File)
		if err != nil {
			return errors.WithStack(err)
		}
		log.SetOutput(f)
	}
	if cfg.Level != "" {
		level, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return errors.WithStack(err)
		}
		log.SetLevel(level)
	}
	switch cfg.Format {
	case "", "text":
		// default, do nothing
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.NewInvalidConfigurationError("log format must be either text or json")
	}
	return nil
}
