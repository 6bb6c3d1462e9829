package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hammamikhairi/rosario/internal/logger"
)

// memEntries bounds the memory tier. One rosary in one voice needs well
// under a hundred distinct chunks; the rest stays on disk.
const memEntries = 256

// CacheStats counts lookups since the cache was created.
type CacheStats struct {
	MemHits  int64
	DiskHits int64
	Misses   int64
}

// Hits is the sum of both tiers.
func (s CacheStats) Hits() int64 { return s.MemHits + s.DiskHits }

// AudioCache keeps synthesized clips in a bounded LRU in memory and, when
// cacheDir is set, as one WAV file per utterance under a directory per
// voice. Disk entries are always read; they are only written when
// diskWrite is on. Fixed prayers repeat in every rosary, so a warm disk
// means most steps play without a network round trip.
type AudioCache struct {
	mem       *lru.Cache[string, []byte]
	log       *logger.Logger
	cacheDir  string
	diskWrite bool

	memHits, diskHits, misses atomic.Int64
}

// NewAudioCache creates an audio cache. An empty cacheDir disables the
// disk layer entirely.
func NewAudioCache(cacheDir string, diskWrite bool, log *logger.Logger) *AudioCache {
	mem, err := lru.New[string, []byte](memEntries)
	if err != nil {
		// Only a non-positive size fails.
		panic(err)
	}
	c := &AudioCache{mem: mem, log: log, cacheDir: cacheDir, diskWrite: diskWrite}
	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: creating %s: %v", cacheDir, err)
		}
	}
	return c
}

// Get returns cached audio for u, checking memory before disk. A disk
// hit is promoted to memory. A disk file that is not a playable WAV is
// removed and counted as a miss.
func (c *AudioCache) Get(u Utterance) ([]byte, bool) {
	key := hashKey(u)
	if data, ok := c.mem.Get(key); ok {
		c.memHits.Add(1)
		c.log.Debug("cache hit (mem): %s", truncate(u.Text, 40))
		return data, true
	}

	if data, ok := c.readDisk(u, key); ok {
		c.mem.Add(key, data)
		c.diskHits.Add(1)
		c.log.Debug("cache hit (disk): %s (%d bytes)", truncate(u.Text, 40), len(data))
		return data, true
	}

	c.misses.Add(1)
	return nil, false
}

// Put stores audio for u in memory, and on disk when diskWrite is on.
func (c *AudioCache) Put(u Utterance, audio []byte) {
	key := hashKey(u)
	if c.mem.Add(key, audio) {
		c.log.Debug("cache: evicted oldest clip (%d in memory)", c.mem.Len())
	}
	if c.cacheDir != "" && c.diskWrite {
		c.writeDisk(u, key, audio)
	}
}

// Has reports whether audio for u is cached in either tier. It does not
// count as a lookup.
func (c *AudioCache) Has(u Utterance) bool {
	key := hashKey(u)
	if c.mem.Contains(key) {
		return true
	}
	if c.cacheDir == "" {
		return false
	}
	_, err := os.Stat(c.diskPath(u, key))
	return err == nil
}

// Len returns the number of clips held in memory.
func (c *AudioCache) Len() int { return c.mem.Len() }

// Stats returns the lookup counters.
func (c *AudioCache) Stats() CacheStats {
	return CacheStats{
		MemHits:  c.memHits.Load(),
		DiskHits: c.diskHits.Load(),
		Misses:   c.misses.Load(),
	}
}

func hashKey(u Utterance) string {
	h := sha256.Sum256([]byte(u.key()))
	return hex.EncodeToString(h[:])
}

// voiceDir keeps each voice's clips together so one voice can be pruned
// by deleting its directory.
func voiceDir(voice string) string {
	if voice == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, voice)
}

func (c *AudioCache) diskPath(u Utterance, key string) string {
	return filepath.Join(c.cacheDir, voiceDir(u.Voice), key+".wav")
}

func (c *AudioCache) readDisk(u Utterance, key string) ([]byte, bool) {
	if c.cacheDir == "" {
		return nil, false
	}
	path := c.diskPath(u, key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if _, err := decodeWAV(data); err != nil {
		c.log.Warn("cache: dropping unreadable %s: %v", path, err)
		_ = os.Remove(path)
		return nil, false
	}
	return data, true
}

// writeDisk writes through a temp file so an interrupted run never
// leaves a truncated clip under the final name.
func (c *AudioCache) writeDisk(u Utterance, key string, audio []byte) {
	path := c.diskPath(u, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.log.Error("cache: %v", err)
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), key[:12]+"-*.tmp")
	if err != nil {
		c.log.Error("cache: %v", err)
		return
	}
	_, werr := tmp.Write(audio)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmp.Name())
		c.log.Error("cache: writing %s: %v", path, firstErr(werr, cerr))
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		c.log.Error("cache: %v", err)
		return
	}
	c.log.Debug("cache store (disk): %s (%d bytes)", key[:12], len(audio))
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
