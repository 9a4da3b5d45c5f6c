package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

const (
	fileName      = "storage.json"
	corruptSuffix = ".corrupt"
)

// FileKV persists all keys as one JSON object on local disk, the way a
// browser keeps localStorage per origin.
type FileKV struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// DefaultDir is ~/.securesim.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".securesim"), nil
}

func NewFileKV(dir string, logger *slog.Logger) (*FileKV, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileKV{path: filepath.Join(dir, fileName), log: logger}, nil
}

func (f *FileKV) Path() string {
	return f.path
}

func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

func (f *FileKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.readForWrite()
	if err != nil {
		return err
	}
	data[key] = value
	return f.write(data)
}

func (f *FileKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.readForWrite()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(data, k)
	}
	return f.write(data)
}

var errCorrupt = errors.New("corrupt storage file")

func (f *FileKV) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	out := map[string]string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", f.path, errCorrupt, err)
	}
	return out, nil
}

// readForWrite starts over from an empty object when the file cannot be
// decoded. The unreadable file is kept next to it as storage.json.corrupt.
func (f *FileKV) readForWrite() (map[string]string, error) {
	data, err := f.read()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, errCorrupt) {
		return nil, err
	}
	aside := f.path + corruptSuffix
	if rerr := os.Rename(f.path, aside); rerr != nil {
		return nil, fmt.Errorf("move corrupt file aside: %w", rerr)
	}
	f.log.Warn("storage file unreadable, starting a new one", "path", f.path, "moved_to", aside, "err", err)
	return map[string]string{}, nil
}

// write replaces the file atomically so a crash never leaves half a save.
func (f *FileKV) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), fileName+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
