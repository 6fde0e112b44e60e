package configstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	fileMode        = 0o600
	dirMode         = 0o700
	tempFilePattern = ".config-*.toml.tmp"
)

var (
	lockRegistryMu sync.Mutex
	pathLocks      = map[string]*sync.RWMutex{}
)

// File keeps values in a TOML file, one table per section.
type File struct {
	path string
	mu   *sync.RWMutex
}

var _ Store = (*File)(nil)

func NewFile(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	abs = filepath.Clean(abs)
	return &File{path: abs, mu: lockForPath(abs)}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) GetString(ctx context.Context, section, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validate(section, key); err != nil {
		return "", err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	doc, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := doc[section][key]
	if !ok {
		return "", notFound(section, key)
	}
	return fmt.Sprint(v), nil
}

func (f *File) SetString(ctx context.Context, section, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(section, key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return err
	}
	if doc[section] == nil {
		doc[section] = map[string]any{}
	}
	doc[section][key] = value
	return f.write(doc)
}

func (f *File) read() (map[string]map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]map[string]any{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	doc := map[string]map[string]any{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", f.path, err)
	}
	return doc, nil
}

// write replaces the file atomically through a temp file in the same dir.
func (f *File) write(doc map[string]map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(f.path), dirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	cleanup = false
	return nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLocks[path]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	pathLocks[path] = mu
	return mu
}
