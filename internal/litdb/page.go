package litdb

import (
	"errors"
	"fmt"
)

const (
	PageSize = 4096 // 4 kilobytes
	MaxPages = 100  // default limit of pages per database file
)

var (
	ErrCorruptPage = errors.New("corrupt page")
)

type PageIndex uint32

// Page is a single 4096 byte page. A page that has never been initialised
// has neither a leaf nor an internal node set.
type Page struct {
	Index        PageIndex
	InternalNode *InternalNode
	LeafNode     *LeafNode
}

func (p *Page) IsUnused() bool {
	return p.LeafNode == nil && p.InternalNode == nil
}

func (p *Page) IsRoot() bool {
	if p.LeafNode != nil {
		return p.LeafNode.Header.IsRoot
	}
	if p.InternalNode != nil {
		return p.InternalNode.Header.IsRoot
	}
	return false
}

func (p *Page) Parent() PageIndex {
	if p.LeafNode != nil {
		return p.LeafNode.Header.Parent
	}
	if p.InternalNode != nil {
		return p.InternalNode.Header.Parent
	}
	return 0
}

// InitializeLeaf turns the page into an empty non-root leaf node.
func (p *Page) InitializeLeaf() *LeafNode {
	p.InternalNode = nil
	p.LeafNode = NewLeafNode()
	return p.LeafNode
}

// InitializeInternal turns the page into an empty non-root internal node.
func (p *Page) InitializeInternal() *InternalNode {
	p.LeafNode = nil
	p.InternalNode = NewInternalNode()
	return p.InternalNode
}

func (p *Page) setParent(parentIdx PageIndex) {
	if p.LeafNode != nil {
		p.LeafNode.Header.Parent = parentIdx
	} else if p.InternalNode != nil {
		p.InternalNode.Header.Parent = parentIdx
	}
}

func (p *Page) setRoot(isRoot bool) {
	if p.LeafNode != nil {
		p.LeafNode.Header.IsRoot = isRoot
	} else if p.InternalNode != nil {
		p.InternalNode.Header.IsRoot = isRoot
	}
}

// marshalPage writes the page into buf, an unused page is written as zeroes.
func marshalPage(aPage *Page, buf []byte) ([]byte, error) {
	if len(buf) < PageSize {
		return nil, fmt.Errorf("buffer of %d bytes is smaller than page size", len(buf))
	}
	buf = buf[:PageSize]
	clear(buf)

	if aPage.LeafNode != nil {
		if _, err := aPage.LeafNode.Marshal(buf); err != nil {
			return nil, fmt.Errorf("error marshaling leaf node: %w", err)
		}
		return buf, nil
	} else if aPage.InternalNode != nil {
		if _, err := aPage.InternalNode.Marshal(buf); err != nil {
			return nil, fmt.Errorf("error marshaling internal node: %w", err)
		}
		return buf, nil
	}

	return buf, nil
}

func unmarshalPage(pageIdx PageIndex, buf []byte) (*Page, error) {
	aPage := &Page{Index: pageIdx}

	if len(buf) < PageSize {
		return nil, fmt.Errorf("%w: page %d is %d bytes long", ErrCorruptPage, pageIdx, len(buf))
	}
	if isZeroed(buf) {
		return aPage, nil
	}

	switch buf[0] {
	case nodeKindLeaf:
		aPage.LeafNode = NewLeafNode()
		if _, err := aPage.LeafNode.Unmarshal(buf); err != nil {
			return nil, fmt.Errorf("page %d: %w", pageIdx, err)
		}
	case nodeKindInternal:
		aPage.InternalNode = NewInternalNode()
		if _, err := aPage.InternalNode.Unmarshal(buf); err != nil {
			return nil, fmt.Errorf("page %d: %w", pageIdx, err)
		}
	default:
		return nil, fmt.Errorf("%w: page %d has unknown node kind %d", ErrCorruptPage, pageIdx, buf[0])
	}

	return aPage, nil
}

func isZeroed(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
