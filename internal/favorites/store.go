package favorites

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileName is the name of the favorites file inside the data dir.
const FileName = "favorites.json"

// FileStore persists a Set as a JSON file.
type FileStore struct {
	path string
	log  zerolog.Logger
}

// NewFileStore stores favorites in dataDir.
func NewFileStore(dataDir string, log zerolog.Logger) *FileStore {
	return &FileStore{path: filepath.Join(dataDir, FileName), log: log}
}

// Path is the favorites file.
func (fs *FileStore) Path() string {
	return fs.path
}

// Load reads the stored set. A missing or corrupt file loads as an empty set.
func (fs *FileStore) Load() *Set {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fs.log.Warn().Err(err).Str("path", fs.path).Msg("Failed to read favorites, starting empty")
		}
		return NewSet()
	}
	return Unmarshal(data)
}

// Save writes s, replacing the stored set.
func (fs *FileStore) Save(s *Set) error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write favorites: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to replace favorites: %w", err)
	}
	fs.log.Debug().Int("count", s.Len()).Str("path", fs.path).Msg("Saved favorites")
	return nil
}
