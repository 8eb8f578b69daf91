// Package pager owns the on-disk file backing a storedb database and the
// cache of page images read from or written to it. Unlike a general
// buffer pool, the cache never evicts: storedb holds at most MaxPages
// page slots for the lifetime of a connection, and running past that
// ceiling is a fatal, by-design resource limit rather than a condition
// to page around.
package pager

import (
	"os"

	"github.com/pkg/errors"
)

const (
	// PageSize is the fixed size of every page, in bytes.
	PageSize = 4096

	// MaxPages is the number of page slots the cache holds before the
	// pager refuses to grow further.
	MaxPages = 100
)

// ErrTableFull is returned once a caller asks for a page at or beyond
// MaxPages. It is fatal: the caller should abort the current command and
// exit the process.
var ErrTableFull = errors.New("need to implement searching/inserting into new pages (table full)")

// Page is a single raw page image.
type Page [PageSize]byte

// Pager mediates between fixed-size disk pages and their cached, mutable
// in-memory images. There is exactly one Pager per open database file.
type Pager struct {
	file     *os.File
	numPages int

	slots [MaxPages]*Page
	dirty [MaxPages]bool
}

// Open opens (or creates) the database file at path. The file's length
// must be a nonzero multiple of PageSize, or exactly zero for a brand new
// database.
func Open(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "pager: open")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "pager: stat")
	}

	size := info.Size()
	if size%PageSize != 0 {
		f.Close()
		return nil, errors.Errorf("pager: db file is %d bytes, not a whole number of %d-byte pages", size, PageSize)
	}

	return &Pager{
		file:     f,
		numPages: int(size / PageSize),
	}, nil
}

// NumPages reports the number of pages currently allocated, including
// pages that were requested but never explicitly mutated.
func (p *Pager) NumPages() int {
	return p.numPages
}

// GetPage returns the cached image for page i, loading it from disk on
// first access. Requesting page i == NumPages() allocates a fresh,
// zero-filled page and grows the table. The returned pointer is valid
// until the next pager call that could touch another page; callers
// must not hold it across such a call, since the pager is single-
// threaded by contract.
func (p *Pager) GetPage(i int) (*Page, error) {
	if i < 0 || i >= MaxPages {
		return nil, ErrTableFull
	}

	if i == p.numPages {
		p.slots[i] = &Page{}
		p.dirty[i] = true
		p.numPages++
		return p.slots[i], nil
	}
	if i > p.numPages {
		return nil, errors.Errorf("pager: page %d requested but only %d pages exist", i, p.numPages)
	}

	if p.slots[i] == nil {
		pg := &Page{}
		if _, err := p.file.ReadAt(pg[:], int64(i)*PageSize); err != nil {
			return nil, errors.Wrapf(err, "pager: read page %d", i)
		}
		p.slots[i] = pg
	}
	return p.slots[i], nil
}

// Allocate appends a fresh, zero-filled page and returns its number.
func (p *Pager) Allocate() (int, *Page, error) {
	pg, err := p.GetPage(p.numPages)
	if err != nil {
		return 0, nil, err
	}
	return p.numPages - 1, pg, nil
}

// MarkDirty records that the caller mutated the cached image for page i
// in place, so it gets written back on the next Flush or Close.
func (p *Pager) MarkDirty(i int) {
	if i >= 0 && i < MaxPages {
		p.dirty[i] = true
	}
}

// Flush writes the cached image of page i back to disk if it is dirty.
func (p *Pager) Flush(i int) error {
	if i < 0 || i >= MaxPages || p.slots[i] == nil || !p.dirty[i] {
		return nil
	}
	if _, err := p.file.WriteAt(p.slots[i][:], int64(i)*PageSize); err != nil {
		return errors.Wrapf(err, "pager: flush page %d", i)
	}
	p.dirty[i] = false
	return nil
}

// Close flushes every dirty, populated cache slot and closes the file.
func (p *Pager) Close() error {
	for i := 0; i < p.numPages && i < MaxPages; i++ {
		if err := p.Flush(i); err != nil {
			p.file.Close()
			return err
		}
	}
	return errors.Wrap(p.file.Close(), "pager: close")
}
