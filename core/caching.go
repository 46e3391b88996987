package core

import (
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/huangsam/testhub/internal/javaparse"
)

// DefaultParseCacheSize is the number of parsed files kept between scans.
const DefaultParseCacheSize = 8192

type cachedFile struct {
	size    int64
	modTime time.Time
	file    *javaparse.File
}

// ParseCache keeps parsed files keyed by absolute path across scans.
// An entry is only reused while the file's size and modification time are unchanged.
type ParseCache struct {
	entries *lru.Cache[string, cachedFile]
}

// NewParseCache creates a cache holding up to size parsed files.
func NewParseCache(size int) (*ParseCache, error) {
	if size <= 0 {
		size = DefaultParseCacheSize
	}
	entries, err := lru.New[string, cachedFile](size)
	if err != nil {
		return nil, err
	}
	return &ParseCache{entries: entries}, nil
}

// Get returns the cached parse of path if info still describes the same content.
func (c *ParseCache) Get(path string, info fs.FileInfo) (*javaparse.File, bool) {
	if c == nil {
		return nil, false
	}
	e, ok := c.entries.Get(path)
	if !ok {
		return nil, false
	}
	if e.size != info.Size() || !e.modTime.Equal(info.ModTime()) {
		c.entries.Remove(path)
		return nil, false
	}
	return e.file, true
}

// Put stores a parse result.
func (c *ParseCache) Put(path string, info fs.FileInfo, file *javaparse.File) {
	if c == nil {
		return
	}
	c.entries.Add(path, cachedFile{size: info.Size(), modTime: info.ModTime(), file: file})
}

// Len returns the number of cached files.
func (c *ParseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
