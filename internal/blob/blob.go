// Package blob persists archived rule documents and serves them back over
// HTTP at stable URLs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/sells-group/rulebook-cli/internal/model"
)

// Store writes binaries and resolves their durable retrieval URL.
type Store interface {
	Put(ctx context.Context, p string, data []byte, contentType string) error
	URL(p string) (string, error)
}

// ArchivePath namespaces an archived document by season, year, archival
// time and the owning record.
func ArchivePath(key model.Key, recordID string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%d-%s.pdf", key.Season, key.Year, now.UnixMilli(), safeName(recordID))
}

// safeName keeps a path segment to letters, digits, dash and underscore.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

const metaSuffix = ".meta"

var (
	// ErrNotFound is returned by Get for a missing blob.
	ErrNotFound = eris.New("blob: not found")
	// ErrExists is returned by Put when p is already taken.
	ErrExists = eris.New("blob: already exists")
)

// FSStore keeps blobs on an afero filesystem.
type FSStore struct {
	fs      afero.Fs
	baseURL string
}

// NewFSStore returns a store rooted at fs. Durable URLs are built as
// baseURL + "/blobs/" + path.
func NewFSStore(fs afero.Fs, baseURL string) *FSStore {
	return &FSStore{fs: fs, baseURL: strings.TrimRight(baseURL, "/")}
}

// NewDiskStore returns an FSStore rooted at dir on the local disk.
func NewDiskStore(dir, baseURL string) (*FSStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "blob: create root %s", dir)
	}
	return NewFSStore(afero.NewBasePathFs(osFs, dir), baseURL), nil
}

func cleanPath(p string) (string, error) {
	if p == "" || strings.Contains(p, "..") {
		return "", eris.Errorf("blob: invalid path %q", p)
	}
	return path.Clean("/" + p), nil
}

// Put writes data at p along with a sidecar file holding its content type.
// Blobs are immutable: an existing p is never overwritten.
func (s *FSStore) Put(ctx context.Context, p string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "blob: put")
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(clean), 0o755); err != nil {
		return eris.Wrapf(err, "blob: mkdir for %s", p)
	}
	f, err := s.fs.OpenFile(clean, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return eris.Wrapf(ErrExists, "path %s", p)
		}
		return eris.Wrapf(err, "blob: create %s", p)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "blob: write %s", p)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "blob: close %s", p)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := afero.WriteFile(s.fs, clean+metaSuffix, []byte(contentType), 0o644); err != nil {
		return eris.Wrapf(err, "blob: write meta %s", p)
	}
	zap.L().Debug("blob: stored", zap.String("path", p), zap.Int("bytes", len(data)))
	return nil
}

// URL returns the durable URL for an existing blob.
func (s *FSStore) URL(p string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	ok, err := afero.Exists(s.fs, clean)
	if err != nil {
		return "", eris.Wrapf(err, "blob: stat %s", p)
	}
	if !ok {
		return "", eris.Errorf("blob: %s does not exist", p)
	}
	return s.baseURL + "/blobs" + (&url.URL{Path: clean}).EscapedPath(), nil
}

// PathFromURL maps a durable URL issued by this store back to its blob path.
// It reports false for URLs under another base.
func (s *FSStore) PathFromURL(u string) (string, bool) {
	prefix := s.baseURL + "/blobs/"
	if !strings.HasPrefix(u, prefix) {
		return "", false
	}
	p, err := url.PathUnescape(strings.TrimPrefix(u, prefix))
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

// Get returns the blob bytes and stored content type.
func (s *FSStore) Get(p string) ([]byte, string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return nil, "", err
	}
	data, err := afero.ReadFile(s.fs, clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", eris.Wrapf(ErrNotFound, "path %s", p)
		}
		return nil, "", eris.Wrapf(err, "blob: read %s", p)
	}
	contentType := "application/octet-stream"
	if meta, err := afero.ReadFile(s.fs, clean+metaSuffix); err == nil && len(meta) > 0 {
		contentType = string(meta)
	}
	return data, contentType, nil
}

// Handler serves blobs below the /blobs/ prefix.
func (s *FSStore) Handler() http.Handler {
	return http.StripPrefix("/blobs", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, metaSuffix) {
			http.NotFound(w, r)
			return
		}
		data, contentType, err := s.Get(r.URL.Path)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, `{"error":"invalid blob path"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		_, _ = w.Write(data)
	}))
}
