// Package cache stores detector output on disk, keyed by document content
// and detector settings.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"fencefmt/internal/fence"
)

// schemaVersion must be bumped whenever Entry changes shape.
const schemaVersion uint16 = 1

// Digest identifies one (content, detector settings) pair.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Key derives the cache key for src scanned with opts.
func Key(src []byte, opts fence.Options) Digest {
	h := sha256.New()
	fmt.Fprintf(h, "fencefmt/%d\x00%s\x00%s\x00%t\x00", schemaVersion, opts.Lang, opts.Strategy, opts.KeepEmpty)
	h.Write(src)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Entry is the on-disk form of one document's ranges.
type Entry struct {
	Schema uint16
	Starts []uint32
	Ends   []uint32
	Stored int64 // unix seconds
}

// Cache is a directory of msgpack-encoded entries. A nil *Cache is a valid
// disabled cache. Safe for concurrent use.
type Cache struct {
	mu  sync.RWMutex
	dir string
}

// Dir returns the default cache location for app.
func Dir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// Open returns a cache rooted at dir, creating it if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Path returns the cache root.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *Cache) pathFor(key Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "spans", hexKey[:2], hexKey+".mp")
}

// Put stores ranges under key. The file is replaced atomically.
func (c *Cache) Put(key Digest, ranges []fence.Range) (err error) {
	if c == nil {
		return nil
	}
	entry, err := toEntry(ranges)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	if err = msgpack.NewEncoder(f).Encode(entry); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get loads ranges stored under key. Entries from another schema version are
// reported as misses.
func (c *Cache) Get(key Digest) ([]fence.Range, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var entry Entry
	if err := msgpack.NewDecoder(f).Decode(&entry); err != nil {
		return nil, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	if entry.Schema != schemaVersion || len(entry.Starts) != len(entry.Ends) {
		return nil, false, nil
	}
	ranges := make([]fence.Range, len(entry.Starts))
	for i := range entry.Starts {
		ranges[i] = fence.Range{Start: int(entry.Starts[i]), End: int(entry.Ends[i])}
	}
	return ranges, true, nil
}

// DropAll removes every entry.
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

func toEntry(ranges []fence.Range) (*Entry, error) {
	entry := &Entry{
		Schema: schemaVersion,
		Starts: make([]uint32, len(ranges)),
		Ends:   make([]uint32, len(ranges)),
		Stored: time.Now().Unix(),
	}
	for i, r := range ranges {
		start, err := safecast.Conv[uint32](r.Start)
		if err != nil {
			return nil, fmt.Errorf("cache: range start %d: %w", r.Start, err)
		}
		// bodies start at line 1 or later, so End >= 0 even for empty blocks
		end, err := safecast.Conv[uint32](r.End)
		if err != nil {
			return nil, fmt.Errorf("cache: range end %d: %w", r.End, err)
		}
		entry.Starts[i] = start
		entry.Ends[i] = end
	}
	return entry, nil
}
