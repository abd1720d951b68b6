package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type WriteOptions struct {
	Format string // json|yaml
}

var outputLocks = struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}{locks: make(map[string]*sync.Mutex)}

func lockForPath(path string) func() {
	outputLocks.mu.Lock()
	m, ok := outputLocks.locks[path]
	if !ok {
		m = &sync.Mutex{}
		outputLocks.locks[path] = m
	}
	outputLocks.mu.Unlock()
	m.Lock()
	return func() { m.Unlock() }
}

// Marshal encodes v in the requested format.
func Marshal(v any, format string) ([]byte, error) {
	switch format {
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return b, nil
	case "json", "":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (json|yaml)", format)
	}
}

// Write encodes v and writes it to path, replacing any existing file.
// A path of "-" writes to stdout.
func Write(path string, v any, opts WriteOptions) error {
	return WriteTo(os.Stdout, path, v, opts)
}

// WriteTo is Write with an explicit stream for the "-" path.
func WriteTo(stdout io.Writer, path string, v any, opts WriteOptions) error {
	content, err := Marshal(v, opts.Format)
	if err != nil {
		return err
	}
	if path == "-" {
		_, err := stdout.Write(content)
		return err
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	unlock := lockForPath(path)
	defer unlock()
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		log.Warn().Str("path", path).Msg("overwriting existing manifest")
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Debug().Str("path", path).Str("format", opts.Format).Int("bytes", len(content)).Msg("manifest written")
	return nil
}
