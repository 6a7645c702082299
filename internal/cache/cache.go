// Package cache stores transformed archives keyed by their inputs.
package cache

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when Entry or the transform output changes shape.
const schemaVersion uint16 = 1

// EnvCacheBust overrides the cache-bust token when no flag is given.
const EnvCacheBust = "SUPPRESSIBLE_CACHE_BUST"

// Digest is a SHA-256 value.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// FileDigest hashes the content of path.
func FileDigest(path string) (Digest, error) {
	var d Digest
	f, err := os.Open(path)
	if err != nil {
		return d, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return d, err
	}
	copy(d[:], h.Sum(nil))
	return d, nil
}

// Key combines everything that determines a transform's output plus the
// cache-bust token. The token only changes the key, never the output.
func Key(input Digest, variant, bust string) Digest {
	h := sha256.New()
	_, _ = h.Write(input[:])
	for _, part := range []string{variant, bust, "schema", strconv.Itoa(int(schemaVersion))} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// ResolveBust picks the cache-bust token. An explicit flag value wins over the
// environment. "true" yields a fresh random token so every run misses.
func ResolveBust(flag string) string {
	v := flag
	if v == "" {
		v = os.Getenv(EnvCacheBust)
	}
	if strings.EqualFold(v, "true") {
		var b [16]byte
		_, _ = rand.Read(b[:])
		return hex.EncodeToString(b[:])
	}
	if strings.EqualFold(v, "false") {
		return ""
	}
	return v
}

// Entry is the metadata stored next to a cached archive.
type Entry struct {
	Schema  uint16
	Input   string
	Variant string
	Patched []string
	Created int64 // unix seconds, informational only
}

// Cache is a directory of transformed archives. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns the cache for app under $XDG_CACHE_HOME (or ~/.cache).
func Open(app string) (*Cache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir returns a cache rooted at dir.
func OpenDir(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// ArchivePath is where the archive for key lives once stored.
func (c *Cache) ArchivePath(key Digest, name string) string {
	return filepath.Join(c.dir, "jars", key.String(), name)
}

func (c *Cache) metaPath(key Digest) string {
	return filepath.Join(c.dir, "jars", key.String(), "entry.mp")
}

// Put records metadata for an archive already written to ArchivePath.
func (c *Cache) Put(key Digest, e *Entry) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.metaPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	e.Schema = schemaVersion
	if e.Created == 0 {
		e.Created = time.Now().Unix()
	}
	if err := msgpack.NewEncoder(f).Encode(e); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads the metadata for key. A schema mismatch or a missing archive is
// a miss.
func (c *Cache) Get(key Digest, name string) (*Entry, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.metaPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, err
	}
	if e.Schema != schemaVersion {
		return nil, false, nil
	}
	if _, err := os.Stat(c.ArchivePath(key, name)); err != nil {
		return nil, false, nil
	}
	return &e, true, nil
}

// DropAll removes every cached archive.
func (c *Cache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
