package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage keeps uploaded media under a single directory.
type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

// SaveStream writes r to name via a temporary .part file and renames it into
// place once fully synced. At most limit bytes are accepted when limit >= 0.
func (s *LocalStorage) SaveStream(name string, r io.Reader, limit int64) (path string, size int64, checksum string, err error) {
	final := filepath.Join(s.dir, filepath.Base(name))
	tmp := final + ".part"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", 0, "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	h := sha256.New()
	src := r
	if limit >= 0 {
		// One byte over the limit is enough to detect overflow.
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(io.MultiWriter(f, h), src)
	if err != nil {
		return "", 0, "", fmt.Errorf("write media: %w", err)
	}
	if limit >= 0 && n > limit {
		err = ErrQuotaExceeded
		return "", 0, "", err
	}
	if err = f.Sync(); err != nil {
		return "", 0, "", fmt.Errorf("sync media: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", 0, "", fmt.Errorf("close media: %w", err)
	}
	if err = os.Rename(tmp, final); err != nil {
		return "", 0, "", fmt.Errorf("finalize media: %w", err)
	}
	return final, n, hex.EncodeToString(h.Sum(nil)), nil
}

func (s *LocalStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
