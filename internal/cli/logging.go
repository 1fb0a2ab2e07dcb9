package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmcdonald/savebak/internal/config"
)

// openLogger returns a logger writing to cfg.LogFile, mirrored to c.Err
// when --verbose is set. An empty LogFile disables the file.
func (c *CLI) openLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	var writers []io.Writer
	closeFn := func() {}

	if cfg.LogFile != "" {
		path, err := config.ExpandPath(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = func() { f.Close() }
	}
	if c.verbose {
		writers = append(writers, c.Err)
	}

	var w io.Writer = io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}
