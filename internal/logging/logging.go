// Package logging builds the zerolog logger edmap reports through. The
// diagnostics stream goes to stderr so stdout and the output artifact stay
// clean; a JSONL log file and a GELF feed to Graylog can be layered on via
// configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("edmap.%s.log", sessionStart.Format("20060102_150405")),
	)
}

// Setup initializes the root logger from viper config (logLevel, logsDir,
// graylog.*). The returned closer flushes and releases any file or network
// writers; failures to attach optional writers degrade to console-only.
func Setup() (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
	}
	var closers []io.Closer

	if logsDir := viper.GetString("logsDir"); logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("error creating logs dir: %w", err)
		}
		file, err := os.Create(LogFilePath(logsDir, time.Now()))
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("error creating log file: %w", err)
		}
		writers = append(writers, file)
		closers = append(closers, file)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()

	if viper.GetBool("graylog.enabled") {
		gelfWriter, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Graylog, console/file only")
		} else {
			writers = append(writers, gelfWriter)
			logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
				Level(level).
				With().Timestamp().Logger()
		}
	}

	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	return logger, cleanup, nil
}
