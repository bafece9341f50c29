// Package logger builds the hclog loggers used across ecoscan.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/openkraft/ecoscan/internal/domain"
)

// EnvLevel overrides the configured log level.
const EnvLevel = "ECOSCAN_LOG_LEVEL"

// New returns a logger writing to stderr. The level comes from EnvLevel
// first, then cfg.Level, then INFO.
func New(cfg domain.LogConf, name string) hclog.Logger {
	return NewWithOutput(cfg, name, os.Stderr)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(cfg domain.LogConf, name string, out io.Writer) hclog.Logger {
	raw := os.Getenv(EnvLevel)
	if raw == "" {
		raw = cfg.Level
	}
	level, known := ParseLevel(raw)

	l := hclog.New(&hclog.LoggerOptions{
		Name:        name,
		Level:       level,
		Output:      out,
		DisableTime: true,
		JSONFormat:  cfg.JSON,
	})
	if !known {
		l.Warn("unknown log level, using INFO", "level", raw)
	}
	return l
}

// ParseLevel maps a level name to an hclog level. Empty input is INFO;
// unknown input is INFO with known == false.
func ParseLevel(s string) (level hclog.Level, known bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace, true
	case "DEBUG":
		return hclog.Debug, true
	case "", "INFO":
		return hclog.Info, true
	case "WARN", "WARNING":
		return hclog.Warn, true
	case "ERROR":
		return hclog.Error, true
	case "OFF":
		return hclog.Off, true
	default:
		return hclog.Info, false
	}
}
