package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps progress in a JSON file, {"total_points":N,"games_played":M}.
// Share one FileStore per path: the lock that serializes Add lives here.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by path. The file is created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Load reads the file. A missing file yields the zero State.
func (f *FileStore) Load(ctx context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Save replaces the file contents.
func (f *FileStore) Save(ctx context.Context, s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.save(s)
}

// Add reads, folds and rewrites the file under the store's lock.
func (f *FileStore) Add(ctx context.Context, sessionPoints int) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, err := f.load()
	if err != nil {
		return State{}, err
	}
	next := Fold(prev, sessionPoints)
	if err := f.save(next); err != nil {
		return State{}, err
	}
	return next, nil
}

func (f *FileStore) load() (State, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrStorageRead, err)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("%w: decode %s: %v", ErrStorageRead, f.path, err)
	}
	return s, nil
}

// save writes to a temp file in the same directory and renames it over the
// target so readers never see a partial record.
func (f *FileStore) save(s State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStorageWrite, err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrStorageWrite, dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}
