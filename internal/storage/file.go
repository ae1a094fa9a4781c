package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const fileExt = ".json"

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// File stores each key as <dir>/<key>.json. Writes go through a temp file and a rename so
// readers in other processes never see a torn value.
type File struct {
	dir string
	log zerolog.Logger

	mu      sync.Mutex
	written map[string][]byte // last value this process wrote per key, nil after a delete
}

func NewFile(dir string, log zerolog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &File{
		dir:     dir,
		log:     log,
		written: make(map[string][]byte),
	}, nil
}

func (f *File) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.dir, key+fileExt), nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	f.remember(key, value)
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.remember(key, nil)
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (f *File) Close() error { return nil }

func (f *File) remember(key string, value []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value == nil {
		f.written[key] = nil
		return
	}
	v := make([]byte, len(value))
	copy(v, value)
	f.written[key] = v
}

// ownWrite reports whether the current on-disk state of key is the one this process left.
func (f *File) ownWrite(key string) bool {
	f.mu.Lock()
	last, known := f.written[key]
	f.mu.Unlock()
	if !known {
		return false
	}

	p, err := f.path(key)
	if err != nil {
		return false
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return last == nil
	}
	if err != nil {
		return false
	}
	return last != nil && bytes.Equal(data, last)
}

// Watch reports keys changed by other processes until ctx is done.
func (f *File) Watch(ctx context.Context, fn func(key string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(f.dir); err != nil {
		return fmt.Errorf("watch %s: %w", f.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			key := strings.TrimSuffix(name, fileExt)
			if f.ownWrite(key) {
				continue
			}
			fn(key)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.log.Warn().Err(err).Str("dir", f.dir).Msg("storage watcher error")
		}
	}
}
