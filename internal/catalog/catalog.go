// Package catalog keeps the named posting lists a process has loaded, either
// from a directory of text files or from segment files.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/posting"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/errors"
)

// Entry describes one list for listings.
type Entry struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

type Catalog struct {
	mu     sync.RWMutex
	lists  map[string]posting.List
	logger *slog.Logger
}

func New() *Catalog {
	return &Catalog{
		lists:  make(map[string]posting.List),
		logger: slog.Default().With("component", "catalog"),
	}
}

// Put stores list under name, replacing any previous list.
func (c *Catalog) Put(name string, list posting.List) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[name] = list
}

func (c *Catalog) Get(name string) (posting.List, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.lists[name]
	if !ok {
		return posting.List{}, fmt.Errorf("%w: %q", apperrors.ErrListNotFound, name)
	}
	return list, nil
}

// Names returns all list names in ascending order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.lists))
	for name := range c.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns name and size of every list, ordered by name.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]Entry, 0, len(c.lists))
	for name, list := range c.lists {
		entries = append(entries, Entry{Name: name, Size: list.Len()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lists)
}

// ListName derives the catalog name of a posting file: the base name without
// .txt or .txt.gz.
func ListName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, ".txt")
}

// LoadDir reads every *.txt and *.txt.gz file in dir. It returns the number of
// lists loaded and stops at the first file that fails to parse.
func (c *Catalog) LoadDir(dir string, numRepeats, offset int) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading list directory %s: %w", dir, err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".txt.gz") {
			continue
		}
		list, err := loader.ReadFile(filepath.Join(dir, name), numRepeats, offset)
		if err != nil {
			return loaded, err
		}
		if !list.IsSorted() {
			c.logger.Warn("posting list ids are not strictly ascending", "file", name)
		}
		c.Put(ListName(name), list)
		loaded++
	}
	c.logger.Info("posting lists loaded", "dir", dir, "count", loaded, "repeats", numRepeats, "offset", offset)
	return loaded, nil
}

// LoadSegment reads every list in the segment at path into the catalog.
func (c *Catalog) LoadSegment(path string) (int, error) {
	r, err := segment.OpenReader(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	names := r.Names()
	for _, name := range names {
		list, ok, err := r.Load(name)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, fmt.Errorf("%w: dictionary lists %q but block is missing", apperrors.ErrCorruptSegment, name)
		}
		c.Put(name, list)
	}
	c.logger.Info("segment loaded", "path", path, "count", len(names))
	return len(names), nil
}
