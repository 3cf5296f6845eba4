package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage keeps rendered artifacts on the local filesystem. References
// carry a random suffix, so concurrent jobs can never collide on a name and
// download links are not guessable.
type LocalStorage struct {
	BaseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", baseDir, err)
	}
	return &LocalStorage{BaseDir: baseDir}, nil
}

// NewRef returns a fresh, unique artifact reference for a job.
func (s *LocalStorage) NewRef(jobID string) string {
	return fmt.Sprintf("%s_%s.mp4", jobID, uuid.NewString()[:8])
}

// Path resolves an artifact reference to its location on disk. The reference
// is reduced to its base name so it can never escape the artifact dir.
func (s *LocalStorage) Path(ref string) string {
	return filepath.Join(s.BaseDir, filepath.Base(ref))
}

// Exists reports whether the artifact file is present.
func (s *LocalStorage) Exists(ref string) bool {
	_, err := os.Stat(s.Path(ref))
	return err == nil
}

// Save moves a rendered file from its work directory into the artifact dir
// under ref. Falls back to a copy when rename crosses filesystems.
func (s *LocalStorage) Save(srcPath, ref string) error {
	dst := s.Path(ref)
	if err := os.Rename(srcPath, dst); err == nil {
		return nil
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open rendered file: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create artifact %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
