// Package scratch keeps extracted clips in a private temporary directory for
// the length of one render.
package scratch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-audio/audio"
	"golang.org/x/sync/errgroup"

	"github.com/minicodemonkey/dxrender/internal/paths"
	"github.com/minicodemonkey/dxrender/internal/wavio"
)

// writeFile is overridden in tests to simulate failed writes.
var writeFile = os.WriteFile

// Store owns one file per clip. Release removes them all.
type Store struct {
	dir    string
	logger *log.Logger

	mu    sync.Mutex
	files map[int]string
}

// New creates a store in a fresh directory under parent. An empty parent
// uses os.TempDir(). A nil logger uses log.Default().
func New(parent string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	dir, err := os.MkdirTemp(parent, "dxrender-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Store{dir: dir, logger: logger, files: make(map[int]string)}, nil
}

// Dir returns the directory holding the clips.
func (s *Store) Dir() string {
	return s.dir
}

// Len returns the number of stored clips. Indices run from 1 to Len.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Put writes the clip with the given 1-based index. The path is tracked
// before writing, so a partial file left by a failed write is still deleted
// by Release.
func (s *Store) Put(index int, data []byte) (string, error) {
	path := paths.ClipFile(s.dir, index)
	s.mu.Lock()
	s.files[index] = path
	s.mu.Unlock()

	if err := writeFile(path, data, 0o600); err != nil {
		if rmErr := os.Remove(path); rmErr == nil || os.IsNotExist(rmErr) {
			s.mu.Lock()
			delete(s.files, index)
			s.mu.Unlock()
		}
		return "", fmt.Errorf("failed to write clip %d: %w", index, err)
	}
	return path, nil
}

// PutAll writes clips 1..len(payloads) using up to workers goroutines.
func (s *Store) PutAll(ctx context.Context, payloads [][]byte, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, data := range payloads {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := s.Put(i+1, data)
			return err
		})
	}
	return g.Wait()
}

// Path returns the file holding clip index.
func (s *Store) Path(index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.files[index]
	return p, ok
}

// Decode reads and decodes clip index.
func (s *Store) Decode(index int) (*audio.FloatBuffer, error) {
	path, ok := s.Path(index)
	if !ok {
		return nil, fmt.Errorf("clip %d was never stored", index)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return wavio.Decode(data)
}

// Release deletes every clip and the store directory. Failures are logged and
// returned joined, but never stop the remaining deletions.
func (s *Store) Release() error {
	s.mu.Lock()
	files := s.files
	s.files = make(map[int]string)
	s.mu.Unlock()

	var errs []error
	for index, path := range files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Printf("Warning: couldn't delete temp clip %d (%s): %v", index, filepath.Base(path), err)
			errs = append(errs, err)
		}
	}
	if err := os.Remove(s.dir); err != nil && !os.IsNotExist(err) {
		s.logger.Printf("Warning: couldn't delete scratch directory %s: %v", s.dir, err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
