package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPerm  = 0o750
	defaultFilePerm = 0o640
)

// DigestFunc returns the manifest digest the registry currently reports.
type DigestFunc func(ctx context.Context) (string, error)

// Entry locates the cached files for one reference.
type Entry struct {
	// Key is the file name derived from the reference.
	Key string

	// ContentPath holds the concatenated artifact layers.
	ContentPath string

	// DigestPath holds the manifest digest ContentPath was pulled at.
	DigestPath string
}

// Option configures a Store.
type Option func(*Store)

// WithDirPerm sets the permissions used when creating the cache directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithFilePerm sets the permissions of written cache files.
func WithFilePerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.filePerm = mode
	}
}

// WithLogger sets the logger for cache hit and miss reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Store is a disk-backed artifact cache rooted at one directory.
//
// The directory is created on first write. Writes for the same key are
// serialized and each file is replaced atomically, so a reader never sees a
// content file paired with a digest from a different pull.
type Store struct {
	dir      string
	dirPerm  os.FileMode
	filePerm os.FileMode
	logger   *slog.Logger
	locks    keyedMutex
}

// New creates a store rooted at dir. The directory is not created until
// something is written.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	s := &Store{
		dir:      abs,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Dir returns the cache root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Entry returns the cache paths for a normalized reference.
func (s *Store) Entry(ref string) Entry {
	key := Key(ref)
	content := filepath.Join(s.dir, key)
	return Entry{
		Key:         key,
		ContentPath: content,
		DigestPath:  content + DigestSuffix,
	}
}

// Lookup reports whether the cached copy of ref is current.
//
// When no content file exists the lookup is a miss and remote is not called.
// Otherwise remote supplies the registry's current manifest digest, and the
// lookup hits only if it equals the stored digest and both are non-empty.
// A missing or unreadable digest file is a miss, never an error.
func (s *Store) Lookup(ctx context.Context, ref string, remote DigestFunc) (Entry, bool, error) {
	entry := s.Entry(ref)

	if _, err := os.Stat(entry.ContentPath); err != nil {
		s.log().Debug("artifact cache miss", "ref", ref, "reason", "no cached content")
		return entry, false, nil
	}

	remoteDigest, err := remote(ctx)
	if err != nil {
		return entry, false, fmt.Errorf("%w: %w", ErrRemoteDigest, err)
	}

	localDigest := s.LocalDigest(ref)
	if remoteDigest == "" || localDigest == "" || remoteDigest != localDigest {
		s.log().Debug("artifact cache miss",
			"ref", ref,
			"reason", "digest changed",
			"local", localDigest,
			"remote", remoteDigest,
		)
		return entry, false, nil
	}

	s.log().Debug("artifact cache hit", "ref", ref, "digest", remoteDigest)
	return entry, true, nil
}

// LocalDigest returns the stored digest for ref, or "" if there is none.
func (s *Store) LocalDigest(ref string) string {
	entry := s.Entry(ref)
	unlock := s.locks.lock(entry.Key)
	defer unlock()

	data, err := os.ReadFile(entry.DigestPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Exists reports whether content is cached for ref, fresh or not.
func (s *Store) Exists(ref string) bool {
	_, err := os.Stat(s.Entry(ref).ContentPath)
	return err == nil
}

// ReadContent returns the cached bytes for ref.
func (s *Store) ReadContent(ref string) ([]byte, error) {
	entry := s.Entry(ref)
	unlock := s.locks.lock(entry.Key)
	defer unlock()

	data, err := os.ReadFile(entry.ContentPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, entry.ContentPath, err)
	}
	return data, nil
}

// Put writes content and its manifest digest for ref.
//
// The old digest file is removed before the content is replaced and the new
// digest is written last, so an interrupted write leaves a cache miss rather
// than a stale pairing. An empty digest leaves no digest file behind.
func (s *Store) Put(ref string, content []byte, digest string) (Entry, error) {
	entry := s.Entry(ref)
	unlock := s.locks.lock(entry.Key)
	defer unlock()

	if err := os.MkdirAll(s.dir, s.dirPerm); err != nil {
		return entry, fmt.Errorf("%w: create cache dir: %w", ErrIO, err)
	}
	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return entry, fmt.Errorf("%w: open cache root: %w", ErrIO, err)
	}
	defer root.Close()

	digestName := entry.Key + DigestSuffix
	if err := root.Remove(digestName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return entry, fmt.Errorf("%w: remove stale digest: %w", ErrIO, err)
	}
	if err := s.writeFile(root, entry.Key, content); err != nil {
		return entry, fmt.Errorf("%w: write content: %w", ErrIO, err)
	}
	if digest != "" {
		if err := s.writeFile(root, digestName, []byte(digest)); err != nil {
			return entry, fmt.Errorf("%w: write digest: %w", ErrIO, err)
		}
	}

	s.log().Debug("artifact cached", "ref", ref, "path", entry.ContentPath, "size", len(content), "digest", digest)
	return entry, nil
}

// writeFile replaces name with data via a temp file and rename.
func (s *Store) writeFile(root *os.Root, name string, data []byte) error {
	tmp, tmpName, err := createTemp(root, name+".tmp-*", s.filePerm)
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = root.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = root.Remove(tmpName)
		return err
	}
	if err := root.Rename(tmpName, name); err != nil {
		_ = root.Remove(tmpName)
		return err
	}
	return nil
}

// createTemp creates a uniquely named file in root matching pattern.
func createTemp(root *os.Root, pattern string, perm os.FileMode) (*os.File, string, error) {
	for tries := 0; tries < 10000; tries++ {
		var randBytes [8]byte
		if _, err := rand.Read(randBytes[:]); err != nil {
			return nil, "", err
		}
		name := strings.Replace(pattern, "*", hex.EncodeToString(randBytes[:]), 1)
		f, err := root.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, name, nil
	}
	return nil, "", errors.New("failed to create temp file")
}
