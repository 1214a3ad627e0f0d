// Package logging sets up the process logger. Console output goes through
// zerolog's console writer; when file logging is enabled each day gets its
// own log file and older files are gzip-compressed on startup.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Debug       bool
	FileLogging bool
	Dir         string // log directory, used only when FileLogging is set
}

// Setup builds the root logger. When file logging is requested but the log
// file cannot be opened, logging falls back to console-only and the problem
// is reported on the returned logger rather than failing the command.
func Setup(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	var out io.Writer = console

	var fileErr error
	if cfg.FileLogging && cfg.Dir != "" {
		f, err := openDailyFile(cfg.Dir)
		if err != nil {
			fileErr = err
		} else {
			out = zerolog.MultiLevelWriter(console, f)
			compressOldLogs(cfg.Dir)
		}
	}

	log := zerolog.New(out).Level(level).With().Timestamp().Logger()
	if fileErr != nil {
		log.Warn().Err(fileErr).Msg("file logging disabled")
	}
	return log
}

// openDailyFile opens (appending) today's log file, creating the directory
// if needed.
func openDailyFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: mkdir %s: %w", dir, err)
	}
	name := fmt.Sprintf("frameio_%s.log", time.Now().Format("20060102"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", name, err)
	}
	return f, nil
}

// compressOldLogs gzips log files from previous days. Today's file is left
// alone since it is still being appended to. Failures are ignored: log
// housekeeping must never break the command.
func compressOldLogs(dir string) {
	today := fmt.Sprintf("frameio_%s.log", time.Now().Format("20060102"))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == today {
			continue
		}
		if !strings.HasPrefix(name, "frameio_") || !strings.HasSuffix(name, ".log") {
			continue
		}
		compressFile(filepath.Join(dir, name))
	}
}

func compressFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}
	defer src.Close()

	dst, err := os.Create(path + ".gz")
	if err != nil {
		return
	}

	gz := gzip.NewWriter(dst)
	_, copyErr := io.Copy(gz, src)
	closeErr := gz.Close()
	if err := dst.Close(); copyErr != nil || closeErr != nil || err != nil {
		os.Remove(path + ".gz")
		return
	}
	os.Remove(path)
}

// Component returns a child logger tagged with a component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
