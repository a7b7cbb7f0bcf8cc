// Package assets stores uploaded portrait images on disk and hands back the
// URL they are served under.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// MaxSize is the largest accepted upload.
const MaxSize = 10 << 20

// AllowedExtensions lists the accepted image extensions.
var AllowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// URLPrefix is prepended to stored file names.
const URLPrefix = "/portraits/"

// FileStore implements types.AssetStore on a local directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

var _ types.AssetStore = (*FileStore)(nil)

// NewFileStore returns a store writing into <dataDir>/portraits.
func NewFileStore(dataDir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: filepath.Join(dataDir, "portraits"), logger: logger}
}

// Dir returns the directory files are written to.
func (s *FileStore) Dir() string { return s.dir }

// Put writes data under a fresh name that keeps the upload's extension and
// returns its URL.
func (s *FileStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !AllowedExtensions[ext] {
		return "", fmt.Errorf("%w: extension %q not allowed", types.ErrInvalidAsset, ext)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload", types.ErrInvalidAsset)
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", types.ErrInvalidAsset, len(data), MaxSize)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &types.TransportError{Op: "put asset", Err: err}
	}

	file := uuid.NewString() + ext
	if err := writeAtomic(filepath.Join(s.dir, file), data); err != nil {
		return "", &types.TransportError{Op: "put asset", Err: err}
	}
	url := path.Join(URLPrefix, file)
	s.logger.Debug("asset stored", "name", name, "url", url, "bytes", len(data))
	return url, nil
}

// Delete removes the file behind a URL returned by Put. URLs outside
// URLPrefix or naming anything but a plain file in the store directory are
// rejected. A file that is already gone is not an error.
func (s *FileStore) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, ok := strings.CutPrefix(url, URLPrefix)
	if !ok || file == "" || file != path.Base(file) || file == "." || file == ".." {
		return fmt.Errorf("%w: url %q is not a stored asset", types.ErrInvalidAsset, url)
	}
	err := os.Remove(filepath.Join(s.dir, file))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &types.TransportError{Op: "delete asset", Err: err}
	}
	s.logger.Debug("asset deleted", "url", url)
	return nil
}

// writeAtomic writes through a temp file in the same directory and renames
// it into place.
func writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("writing asset: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("syncing asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("closing asset: %w", err)
	}
	if err := os.Rename(name, dst); err != nil {
		os.Remove(name)
		return fmt.Errorf("renaming asset: %w", err)
	}
	return nil
}
