// Package fs stores blobs as files under a root directory. Every object has a
// JSON sidecar (<name>.meta) holding its content type, user metadata, sha256
// etag and timestamps.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"pdmtracker/internal/blob/core"
)

// DefaultRoot is used when no root directory is configured.
const DefaultRoot = "data/blobs"

const (
	metaSuffix  = ".meta"
	tempPattern = ".partial-*"
)

// Store implements core.Store on the local filesystem. Writers of distinct
// keys may run concurrently; concurrent writers of one key race on the final
// rename and the last one wins.
type Store struct {
	root string
	now  func() time.Time
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		root = DefaultRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fs blob root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("fs blob root %s: %w", root, err)
	}
	return &Store{root: abs, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// object is the pair of files backing one key.
type object struct {
	data string
	meta string
}

// cleanKey accepts slash-separated relative keys. Keys cannot climb out of the
// root or end in the sidecar suffix.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("fs blob: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("fs blob: invalid key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("fs blob: key %q escapes the root", key)
		}
	}
	clean := path.Clean(key)
	if clean == "." || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("fs blob: invalid key %q", key)
	}
	return clean, nil
}

func (s *Store) locate(key string) (object, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return object{}, err
	}
	data := filepath.Join(s.root, filepath.FromSlash(clean))
	return object{data: data, meta: data + metaSuffix}, nil
}

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (sc sidecar) info(key string) core.Info {
	return core.Info{
		Key:          key,
		Size:         sc.Size,
		ContentType:  sc.ContentType,
		ETag:         sc.ETag,
		Metadata:     cloneMetadata(sc.Metadata),
		LastModified: sc.UpdatedAt,
	}
}

func readSidecar(p string) (sidecar, error) {
	raw, err := os.ReadFile(p) // #nosec G304 -- path built by locate
	if err != nil {
		return sidecar{}, err
	}
	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return sidecar{}, fmt.Errorf("sidecar %s: %w", p, err)
	}
	return sc, nil
}

func (sc sidecar) write(p string) error {
	raw, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, raw, 0o600)
}

// Put writes r through a temp file in the target directory and renames it into
// place. An existing key fails with core.ErrExists unless opts.Overwrite is
// set; an overwrite keeps the original creation time.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	obj, err := s.locate(key)
	if err != nil {
		return core.Info{}, err
	}
	created := s.now()
	if _, err := os.Stat(obj.data); err == nil {
		if !opts.Overwrite {
			return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrExists)
		}
		if prev, err := readSidecar(obj.meta); err == nil {
			created = prev.CreatedAt
		}
	}
	etag, size, err := writeAtomic(obj.data, r)
	if err != nil {
		return core.Info{}, fmt.Errorf("blob %s: %w", key, err)
	}
	sc := sidecar{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		ETag:        etag,
		Size:        size,
		CreatedAt:   created,
		UpdatedAt:   s.now(),
	}
	if err := sc.write(obj.meta); err != nil {
		return core.Info{}, fmt.Errorf("blob %s: %w", key, err)
	}
	return sc.info(key), nil
}

// writeAtomic stores r at dst and returns its sha256 and size. Nothing is left
// at dst when the copy fails.
func writeAtomic(dst string, r io.Reader) (string, int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPattern)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Get opens the blob for reading. The caller closes the reader.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	obj, err := s.locate(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(obj.data) // #nosec G304 -- path built by locate
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	sc, err := readSidecar(obj.meta)
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, err
	}
	return sc.info(key), file, nil
}

// Head reads the sidecar of key.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	obj, err := s.locate(key)
	if err != nil {
		return core.Info{}, err
	}
	sc, err := readSidecar(obj.meta)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return core.Info{}, err
	}
	return sc.info(key), nil
}

// Delete removes the blob and its sidecar, reporting whether it existed.
// Directories left empty are removed up to the root, so a submission's folder
// disappears with its last workbook.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	obj, err := s.locate(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(obj.data); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(obj.meta); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return true, err
	}
	s.prune(filepath.Dir(obj.data))
	return true, nil
}

func (s *Store) prune(dir string) {
	for dir != s.root && strings.HasPrefix(dir, s.root+string(filepath.Separator)) {
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// List returns the blobs whose key starts with prefix, sorted by key. Only the
// directory the prefix points into is walked.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	start := s.root
	if dir := path.Dir(prefix); prefix != "" && dir != "." && !strings.Contains(dir, "..") {
		start = filepath.Join(s.root, filepath.FromSlash(dir))
	}
	infos := []core.Info{}
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == start && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, metaSuffix) || strings.HasPrefix(d.Name(), ".partial-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(p, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		sc, err := readSidecar(p)
		if err != nil {
			return err
		}
		infos = append(infos, sc.info(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// DownloadURL returns a file:// link to the stored object. Local files do not
// expire, so opts only matter to remote drivers.
func (s *Store) DownloadURL(_ context.Context, key string, _ core.LinkOptions) (string, error) {
	obj, err := s.locate(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(obj.data); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
		}
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(obj.data)}).String(), nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
