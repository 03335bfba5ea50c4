package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/xhad/ragflow/internal/types"
)

var ErrInvalidName = errors.New("invalid filename")

// Store is the flat upload directory. Files are keyed by their original name;
// saving an existing name overwrites it.
type Store struct {
	fs afero.Fs
}

// NewOnDisk roots a Store at dir, creating the directory if needed.
func NewOnDisk(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), abs)), nil
}

// New wraps an already-rooted filesystem.
func New(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// Fs exposes the rooted filesystem for readers such as the text extractor.
func (s *Store) Fs() afero.Fs { return s.fs }

func (s *Store) Save(filename string, r io.Reader) error {
	name, err := clean(filename)
	if err != nil {
		return err
	}
	f, err := s.fs.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return f.Close()
}

// Stat reports whether filename exists as a regular file.
func (s *Store) Stat(filename string) (types.FileInfo, bool, error) {
	name, err := clean(filename)
	if err != nil {
		return types.FileInfo{}, false, nil
	}
	fi, err := s.fs.Stat(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.FileInfo{}, false, nil
		}
		return types.FileInfo{}, false, err
	}
	if fi.IsDir() {
		return types.FileInfo{}, false, nil
	}
	return toInfo(fi), true, nil
}

// ListPDFs returns every *.pdf (any case) in the directory, newest first.
func (s *Store) ListPDFs() ([]types.FileInfo, error) {
	entries, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		return nil, err
	}

	var out []types.FileInfo
	for _, fi := range entries {
		if fi.IsDir() || !strings.HasSuffix(strings.ToLower(fi.Name()), ".pdf") {
			continue
		}
		out = append(out, toInfo(fi))
	}

	// ReadDir sorts by name, so ties keep a stable order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

func clean(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return filename, nil
}

func toInfo(fi os.FileInfo) types.FileInfo {
	return types.FileInfo{Name: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime()}
}
