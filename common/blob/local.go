package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lyzr/imagehost/common/logger"
)

const tempPrefix = ".upload-"

// LocalStore keeps blobs as files in a single directory.
// Bytes are staged in a hidden temp file and renamed into place.
type LocalStore struct {
	dir string
	log *logger.Logger
}

// NewLocalStore creates the directory if needed and removes temp files left by a crash
func NewLocalStore(dir string, log *logger.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}

	s := &LocalStore{dir: dir, log: log}
	if err := s.sweepTemp(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the storage directory
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) path(identity, ext string) string {
	return filepath.Join(s.dir, Name(identity, ext))
}

// Put writes data to a temp file, fsyncs it, then renames it to its final name
func (s *LocalStore) Put(ctx context.Context, identity, ext string, data []byte) (bool, error) {
	if err := ValidateName(identity, ext); err != nil {
		return false, err
	}

	final := s.path(identity, ext)
	if _, err := os.Stat(final); err == nil {
		s.log.Debug("blob already present", "name", Name(identity, ext))
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat blob: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return false, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return false, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("close temp file: %w", err)
	}

	// Last chance to abandon the write without a visible artifact.
	if err := ctx.Err(); err != nil {
		os.Remove(tmpName)
		return false, err
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return false, fmt.Errorf("rename blob into place: %w", err)
	}

	s.log.Debug("blob written", "name", Name(identity, ext), "bytes", len(data))
	return true, nil
}

// Get reads a whole blob
func (s *LocalStore) Get(ctx context.Context, identity, ext string) ([]byte, error) {
	if err := ValidateName(identity, ext); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(identity, ext))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Delete removes a blob
func (s *LocalStore) Delete(ctx context.Context, identity, ext string) error {
	if err := ValidateName(identity, ext); err != nil {
		return err
	}

	err := os.Remove(s.path(identity, ext))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove blob: %w", err)
	}

	s.log.Debug("blob removed", "name", Name(identity, ext))
	return nil
}

func (s *LocalStore) sweepTemp() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read blob dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("failed to remove stale temp file", "name", e.Name(), "error", err)
			continue
		}
		s.log.Info("removed stale temp file", "name", e.Name())
	}
	return nil
}
