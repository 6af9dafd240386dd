package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths are the resolved directories the application reads and writes
type Paths struct {
	DataDir   string
	OutputDir string
	LogsDir   string
	Database  string
}

// ResolvePaths turns the configured directories into absolute paths.
// Relative paths are taken from the working directory.
func (c *Config) ResolvePaths() (*Paths, error) {
	abs := func(p string) (string, error) {
		if p == "" || filepath.IsAbs(p) {
			return p, nil
		}
		return filepath.Abs(p)
	}

	p := &Paths{}
	var err error
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&p.DataDir, c.Paths.DataDir},
		{&p.OutputDir, c.OutputDir()},
		{&p.LogsDir, c.Paths.LogsDir},
		{&p.Database, c.Storage.SQLitePath},
	} {
		if *f.dst, err = abs(f.src); err != nil {
			return nil, fmt.Errorf("failed to resolve path %q: %w", f.src, err)
		}
	}
	return p, nil
}

// EnsureDirectories creates the output and log directories
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.OutputDir, p.LogsDir}
	if p.Database != "" {
		dirs = append(dirs, filepath.Dir(p.Database))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogPathResolution logs the resolved paths
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("paths_resolved",
		slog.String("data_dir", p.DataDir),
		slog.String("output_dir", p.OutputDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("database", p.Database))
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
