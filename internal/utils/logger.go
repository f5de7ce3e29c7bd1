package utils

import (
	"fmt"
	"strings"

	logging "github.com/ipfs/go-log/v2"
)

// LogOptions selects level, output format and an optional log file.
type LogOptions struct {
	Level  string
	Format string
	File   string
}

// SetupLogging configures every named logger. Format is "color", "nocolor" or "json".
func SetupLogging(opts LogOptions) error {
	level := LevelInfo
	if opts.Level != "" {
		lvl, err := logging.LevelFromString(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = lvl
	}

	var format logging.LogFormat
	switch strings.ToLower(opts.Format) {
	case "", "color":
		format = logging.ColorizedOutput
	case "nocolor", "plain", "text":
		format = logging.PlaintextOutput
	case "json":
		format = logging.JSONOutput
	default:
		return fmt.Errorf("invalid log format %q", opts.Format)
	}

	logging.SetupLogging(logging.Config{
		Format: format,
		Level:  level,
		Stderr: true,
		File:   opts.File,
	})
	return nil
}

// LevelInfo is the default level.
var LevelInfo = logging.LevelInfo
