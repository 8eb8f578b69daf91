// Package benchpager is a page cache for cmd/dbbench's disk B-tree
// comparison backend (dbms/altindex/btree; dbms/altindex/lsm relies on
// Pebble's own storage and does not use it): unlike
// dbms/pager, it never refuses to grow, since a benchmark dataset of a
// million rows needs far more than the primary store's 100-page cap,
// and it evicts cold pages from an LRU cache instead of pinning every
// page for the file's lifetime. It also counts hits, misses, and
// evictions per Pager, so dbms/bench can report how much of a run's
// latency came from cache pressure rather than the storage algorithm
// itself.
package benchpager

import (
	"container/list"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

const (
	// PageSize matches dbms/pager.PageSize; the two packages don't share
	// the constant because nothing outside this benchmark tool needs
	// them coupled.
	PageSize = 4096

	// InvalidPage marks the absence of a page reference (e.g. an empty
	// child pointer).
	InvalidPage = ^uint64(0)
)

// Page is a raw page image.
type Page [PageSize]byte

// Stats is a snapshot of a Pager's cache behavior since it was opened,
// sampled by dbms/bench alongside latency and memory so cmd/dbbench can
// report how much of each backend's workload actually hit the page
// cache rather than disk.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns Hits / (Hits + Misses), or 0 if Read has never been
// called.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Pager manages a file of fixed-size pages behind an LRU cache. Page 0
// is reserved for a page-count header, so the first page available to
// callers is page 1.
type Pager struct {
	file      *os.File
	cache     *lruCache
	pageCount uint64
	hits      int64
	misses    int64
}

// Open opens (or creates) a pager backed by path, caching at most
// cacheSize page images in memory.
func Open(path string, cacheSize int) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "benchpager: open")
	}

	p := &Pager{file: f, cache: newLRUCache(cacheSize)}

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "benchpager: stat")
	}
	if info.Size() == 0 {
		p.pageCount = 1
		if err := p.writePageCount(); err != nil {
			return nil, err
		}
	} else {
		pg, err := p.readPageFromDisk(0)
		if err != nil {
			return nil, errors.Wrap(err, "benchpager: read header")
		}
		p.pageCount = binary.LittleEndian.Uint64(pg[:8])
	}

	return p, nil
}

// Allocate reserves a new page on disk and returns its page ID.
func (p *Pager) Allocate() (uint64, error) {
	id := p.pageCount
	p.pageCount++

	var blank Page
	if err := p.writePageToDisk(id, &blank); err != nil {
		return 0, err
	}
	if err := p.writePageCount(); err != nil {
		return 0, err
	}
	return id, nil
}

// Read returns the page with the given ID, from cache or disk.
func (p *Pager) Read(id uint64) (*Page, error) {
	if pg := p.cache.get(id); pg != nil {
		p.hits++
		return pg, nil
	}
	p.misses++
	pg, err := p.readPageFromDisk(id)
	if err != nil {
		return nil, err
	}
	p.cache.put(id, pg)
	return pg, nil
}

// Stats reports the cache's hit/miss/eviction counts to date.
func (p *Pager) Stats() Stats {
	return Stats{Hits: p.hits, Misses: p.misses, Evictions: p.cache.evictions}
}

// Write writes a page back to disk and updates the cache.
func (p *Pager) Write(id uint64, pg *Page) error {
	p.cache.put(id, pg)
	return p.writePageToDisk(id, pg)
}

// Close closes the underlying file.
func (p *Pager) Close() error {
	return p.file.Close()
}

// PageCount returns the total number of allocated pages, including the
// header page.
func (p *Pager) PageCount() uint64 {
	return p.pageCount
}

func (p *Pager) offset(id uint64) int64 {
	return int64(id) * PageSize
}

func (p *Pager) readPageFromDisk(id uint64) (*Page, error) {
	pg := new(Page)
	if _, err := p.file.ReadAt(pg[:], p.offset(id)); err != nil {
		return nil, errors.Wrapf(err, "benchpager: read page %d", id)
	}
	return pg, nil
}

func (p *Pager) writePageToDisk(id uint64, pg *Page) error {
	if _, err := p.file.WriteAt(pg[:], p.offset(id)); err != nil {
		return errors.Wrapf(err, "benchpager: write page %d", id)
	}
	return nil
}

func (p *Pager) writePageCount() error {
	var hdr Page
	if p.pageCount > 1 {
		if existing, err := p.readPageFromDisk(0); err == nil {
			hdr = *existing
		}
	}
	binary.LittleEndian.PutUint64(hdr[:8], p.pageCount)
	return p.writePageToDisk(0, &hdr)
}

// lruEntry is the payload behind each container/list element; the list
// itself owns ordering, so this only needs to carry what get/put look
// up by ID.
type lruEntry struct {
	id   uint64
	page *Page
}

// lruCache is an LRU keyed by page ID, built on the standard library's
// container/list rather than a hand-rolled doubly linked list: order
// is a list of *lruEntry values with the front as most-recently-used,
// and items indexes straight into it by page ID.
type lruCache struct {
	cap       int
	items     map[uint64]*list.Element
	order     *list.List
	evictions int64
}

func newLRUCache(cap int) *lruCache {
	return &lruCache{cap: cap, items: make(map[uint64]*list.Element, cap), order: list.New()}
}

func (c *lruCache) get(id uint64) *Page {
	e, ok := c.items[id]
	if !ok {
		return nil
	}
	c.order.MoveToFront(e)
	return e.Value.(*lruEntry).page
}

func (c *lruCache) put(id uint64, pg *Page) {
	if e, ok := c.items[id]; ok {
		e.Value.(*lruEntry).page = pg
		c.order.MoveToFront(e)
		return
	}
	e := c.order.PushFront(&lruEntry{id: id, page: pg})
	c.items[id] = e
	if c.order.Len() > c.cap {
		c.evict()
	}
}

func (c *lruCache) evict() {
	tail := c.order.Back()
	if tail == nil {
		return
	}
	c.evictions++
	c.order.Remove(tail)
	delete(c.items, tail.Value.(*lruEntry).id)
}
