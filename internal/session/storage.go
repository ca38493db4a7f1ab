package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Storage is the durable client storage holding the single serialized
// {user, token} value: write-on-change, read-once-at-startup,
// delete-on-logout.
type Storage interface {
	Save(data []byte) error
	Load() ([]byte, bool, error)
	Clear() error
}

// FileStorage keeps the value in one file on disk.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultStoragePath places the session file under the user config
// directory, falling back to the working directory.
func DefaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".account-portal-session.json"
	}
	return filepath.Join(dir, "account-portal", "session.json")
}

func (f *FileStorage) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}

func (f *FileStorage) Load() ([]byte, bool, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (f *FileStorage) Clear() error {
	err := os.Remove(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
