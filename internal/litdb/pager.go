package litdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrCorruptFile     = errors.New("corrupt database file")
	ErrMaxPagesReached = errors.New("maximum pages reached")
)

type DBFile interface {
	io.ReadSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type pagerImpl struct {
	maxPages   uint32
	totalPages uint32 // total number of pages

	// pages is indexed by page index, nil entries have not been loaded yet
	pages []*Page

	file     DBFile
	fileSize int64
}

// OpenPager opens or creates the database file at path.
func OpenPager(path string, maxPages uint32) (*pagerImpl, error) {
	dbFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("open database file: %w", err)
	}

	aPager, err := NewPager(dbFile, maxPages)
	if err != nil {
		return nil, errors.Join(err, dbFile.Close())
	}

	return aPager, nil
}

// NewPager checks the database file size and prepares an empty page cache.
func NewPager(file DBFile, maxPages uint32) (*pagerImpl, error) {
	if maxPages == 0 {
		maxPages = MaxPages
	}
	aPager := &pagerImpl{
		maxPages: maxPages,
		file:     file,
		pages:    make([]*Page, 0, maxPages),
	}

	fileSize, err := aPager.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek end of database file: %w", err)
	}
	aPager.fileSize = fileSize

	// Basic check to verify file size is a multiple of page size (4096B)
	if fileSize%PageSize != 0 {
		return nil, fmt.Errorf("%w: file size %d is not divisible by page size", ErrCorruptFile, fileSize)
	}

	totalPages := fileSize / PageSize
	if totalPages > int64(maxPages) {
		return nil, fmt.Errorf("%w: file has %d pages, max is %d", ErrMaxPagesReached, totalPages, maxPages)
	}
	aPager.totalPages = uint32(totalPages)

	return aPager, nil
}

func (p *pagerImpl) TotalPages() uint32 {
	return p.totalPages
}

func (p *pagerImpl) MaxPages() uint32 {
	return p.maxPages
}

// GetPage returns a cached page or loads it from the file. Pages past the end
// of the file are returned unused, the caller is expected to initialize them.
func (p *pagerImpl) GetPage(ctx context.Context, pageIdx PageIndex) (*Page, error) {
	if uint32(pageIdx) >= p.maxPages {
		return nil, fmt.Errorf("%w: page index %d, max pages %d", ErrMaxPagesReached, pageIdx, p.maxPages)
	}

	if int(pageIdx) < len(p.pages) && p.pages[pageIdx] != nil {
		return p.pages[pageIdx], nil
	}

	// Cache miss, extend the slice so that slice index = page index
	for len(p.pages) < int(pageIdx)+1 {
		p.pages = append(p.pages, nil)
	}

	var aPage *Page
	if int64(pageIdx) < p.fileSize/PageSize {
		buf := make([]byte, PageSize)
		offset := int64(pageIdx) * PageSize
		if _, err := p.file.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read page %d: %w", pageIdx, err)
		}

		loaded, err := unmarshalPage(pageIdx, buf)
		if err != nil {
			return nil, err
		}
		aPage = loaded
	} else {
		aPage = &Page{Index: pageIdx}
	}

	p.pages[pageIdx] = aPage
	if uint32(pageIdx) >= p.totalPages {
		p.totalPages = uint32(pageIdx) + 1
	}

	return aPage, nil
}

// GetFreePage returns a new page appended after the last page. Pages are never
// recycled so page indexes grow monotonically.
func (p *pagerImpl) GetFreePage(ctx context.Context) (*Page, error) {
	return p.GetPage(ctx, PageIndex(p.totalPages))
}

// Flush writes the page at its offset in the file. Pages that were never
// loaded are left untouched.
func (p *pagerImpl) Flush(ctx context.Context, pageIdx PageIndex) error {
	if int(pageIdx) >= len(p.pages) || p.pages[pageIdx] == nil {
		return nil
	}

	buf := make([]byte, PageSize)
	if _, err := marshalPage(p.pages[pageIdx], buf); err != nil {
		return fmt.Errorf("error flushing page %d: %w", pageIdx, err)
	}

	offset := int64(pageIdx) * PageSize
	if _, err := p.file.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("write page %d: %w", pageIdx, err)
	}
	if end := offset + PageSize; end > p.fileSize {
		p.fileSize = end
	}

	return nil
}

// Close flushes every page and closes the database file.
func (p *pagerImpl) Close(ctx context.Context) error {
	var errs []error
	for pageIdx := range p.totalPages {
		if int(pageIdx) < len(p.pages) && p.pages[pageIdx] == nil && int64(pageIdx) >= p.fileSize/PageSize {
			// Skipped page index that was never referenced, keep the file contiguous
			p.pages[pageIdx] = &Page{Index: PageIndex(pageIdx)}
		}
		if err := p.Flush(ctx, PageIndex(pageIdx)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database file: %w", err))
	}
	return errors.Join(errs...)
}
