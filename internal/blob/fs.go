package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const metaSuffix = ".meta"

// FS stores blobs as files under a root directory, with the content type in
// a JSON sidecar next to each file.
type FS struct {
	root      string
	publicURL string
}

type fsMeta struct {
	ContentType string `json:"contentType,omitempty"`
}

// NewFS returns a filesystem store rooted at root, creating it if needed.
func NewFS(root, publicURL string) (*FS, error) {
	if root == "" {
		return nil, errors.New("blob root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &FS{root: root, publicURL: publicURL}, nil
}

func (s *FS) Driver() Driver { return DriverFS }

func (s *FS) pathFor(key string) (string, error) {
	if !ValidKey(key) || strings.HasSuffix(key, metaSuffix) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FS) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Info{}, fmt.Errorf("creating blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return Info{}, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return Info{}, fmt.Errorf("writing blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Info{}, fmt.Errorf("writing blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return Info{}, fmt.Errorf("moving blob %s into place: %w", key, err)
	}

	meta, err := json.Marshal(fsMeta{ContentType: opts.ContentType})
	if err != nil {
		return Info{}, err
	}
	if err := os.WriteFile(p+metaSuffix, meta, 0o644); err != nil {
		return Info{}, fmt.Errorf("writing blob metadata: %w", err)
	}

	return Info{Key: key, Size: size, ContentType: opts.ContentType, LastModified: time.Now().UTC()}, nil
}

func (s *FS) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("opening blob %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return Info{}, nil, fmt.Errorf("stat blob %s: %w", key, err)
	}
	return s.info(key, p, st), f, nil
}

func (s *FS) info(key, p string, st fs.FileInfo) Info {
	info := Info{Key: key, Size: st.Size(), LastModified: st.ModTime().UTC()}
	if raw, err := os.ReadFile(p + metaSuffix); err == nil {
		var meta fsMeta
		if json.Unmarshal(raw, &meta) == nil {
			info.ContentType = meta.ContentType
		}
	}
	return info
}

func (s *FS) Delete(_ context.Context, key string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob %s: %w", key, err)
	}
	if err := os.Remove(p + metaSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob metadata %s: %w", key, err)
	}
	return nil
}

func (s *FS) List(_ context.Context, prefix string) ([]Info, error) {
	out := []Info{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, metaSuffix) || strings.HasPrefix(name, ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		st, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, s.info(key, p, st))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *FS) URL(key string) string { return urlFor(s.publicURL, key) }
