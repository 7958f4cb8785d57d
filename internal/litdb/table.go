package litdb

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

var (
	ErrTableFull    = errors.New("table full")
	ErrDuplicateKey = errors.New("duplicate key")
)

// minInternalCells is the smallest internal node capacity which still leaves
// both halves of a split with at least one key.
const minInternalCells = 2

type Table struct {
	RootPageIdx PageIndex
	pager       Pager
	maxICells   uint32
	logger      *zap.Logger
}

type TableOption func(*Table)

// WithTableMaxInternalCells limits the number of keys an internal node holds
// before it is split.
func WithTableMaxInternalCells(maxCells uint32) TableOption {
	return func(t *Table) {
		t.maxICells = min(max(maxCells, minInternalCells), InternalNodeMaxCells)
	}
}

func NewTable(logger *zap.Logger, pager Pager, rootPageIdx PageIndex, opts ...TableOption) *Table {
	aTable := &Table{
		RootPageIdx: rootPageIdx,
		pager:       pager,
		maxICells:   InternalNodeMaxCells,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(aTable)
	}
	return aTable
}

func (t *Table) MaxInternalCells() uint32 {
	return t.maxICells
}

// SeekFirst returns a cursor pointing at the smallest key in the table.
func (t *Table) SeekFirst(ctx context.Context) (*Cursor, error) {
	aCursor, err := t.Seek(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("seek first: %w", err)
	}

	aPage, err := t.pager.GetPage(ctx, aCursor.PageIdx)
	if err != nil {
		return nil, fmt.Errorf("seek first: %w", err)
	}
	aCursor.EndOfTable = aPage.LeafNode.Header.Cells == 0

	return aCursor, nil
}

// Seek the cursor for a key, if it does not exist then return the cursor
// for the page and cell where it should be inserted
func (t *Table) Seek(ctx context.Context, key uint32) (*Cursor, error) {
	aRootPage, err := t.pager.GetPage(ctx, t.RootPageIdx)
	if err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}
	if aRootPage.LeafNode != nil {
		return t.leafNodeSeek(t.RootPageIdx, aRootPage, key)
	} else if aRootPage.InternalNode != nil {
		return t.internalNodeSeek(ctx, aRootPage, key)
	}
	return nil, fmt.Errorf("seek: %w: root page %d is unused", ErrCorruptPage, t.RootPageIdx)
}

func (t *Table) leafNodeSeek(pageIdx PageIndex, aPage *Page, key uint32) (*Cursor, error) {
	var (
		minIdx uint32
		maxIdx = aPage.LeafNode.Header.Cells

		aCursor = Cursor{
			Table:   t,
			PageIdx: pageIdx,
		}
	)

	// Binary search
	for maxIdx != minIdx {
		index := (minIdx + maxIdx) / 2
		keyIdx := aPage.LeafNode.Cells[index].Key
		if key == keyIdx {
			aCursor.CellIdx = index
			return &aCursor, nil
		}
		if key < keyIdx {
			maxIdx = index
		} else {
			minIdx = index + 1
		}
	}

	aCursor.CellIdx = minIdx

	return &aCursor, nil
}

func (t *Table) internalNodeSeek(ctx context.Context, aPage *Page, key uint32) (*Cursor, error) {
	childIdx := aPage.InternalNode.IndexOfChild(key)
	childPageIdx, err := aPage.InternalNode.Child(childIdx)
	if err != nil {
		return nil, err
	}

	aChildPage, err := t.pager.GetPage(ctx, childPageIdx)
	if err != nil {
		return nil, fmt.Errorf("internal node seek: %w", err)
	}

	if aChildPage.InternalNode != nil {
		return t.internalNodeSeek(ctx, aChildPage, key)
	} else if aChildPage.LeafNode != nil {
		return t.leafNodeSeek(childPageIdx, aChildPage, key)
	}
	return nil, fmt.Errorf("internal node seek: %w: child page %d is unused", ErrCorruptPage, childPageIdx)
}

// Handle splitting the root.
// Old root copied to new page, becomes left child.
// Address of right child passed in.
// Re-initialize root page to contain the new root node.
// New root node points to two children.
func (t *Table) CreateNewRoot(ctx context.Context, rightChildPageIdx PageIndex) (*Page, error) {
	oldRootPage, err := t.pager.GetPage(ctx, t.RootPageIdx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	rightChildPage, err := t.pager.GetPage(ctx, rightChildPageIdx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	leftChildPage, err := t.pager.GetFreePage(ctx)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	t.logger.Sugar().With(
		"left_child_index", int(leftChildPage.Index),
		"right_child_index", int(rightChildPageIdx),
	).Debug("create new root")

	// Copy all node contents to left child
	if oldRootPage.LeafNode != nil {
		*leftChildPage.InitializeLeaf() = *oldRootPage.LeafNode
		leftChildPage.LeafNode.Header.IsRoot = false
	} else if oldRootPage.InternalNode != nil {
		*leftChildPage.InitializeInternal() = *oldRootPage.InternalNode
		leftChildPage.InternalNode.Header.IsRoot = false
		// Update parent for all child pages, including the right child
		for _, childPageIdx := range leftChildPage.InternalNode.Children() {
			aChildPage, err := t.pager.GetPage(ctx, childPageIdx)
			if err != nil {
				return nil, fmt.Errorf("create new root: %w", err)
			}
			aChildPage.setParent(leftChildPage.Index)
		}
	}

	leftChildMaxKey, err := t.GetMaxKey(ctx, leftChildPage)
	if err != nil {
		return nil, fmt.Errorf("create new root: %w", err)
	}

	// Change root node to a new internal node
	newRootNode := oldRootPage.InitializeInternal()
	newRootNode.Header.IsRoot = true
	newRootNode.Header.KeysNum = 1
	newRootNode.ICells[0] = ICell{
		Child: leftChildPage.Index,
		Key:   leftChildMaxKey,
	}
	newRootNode.Header.RightChild = rightChildPageIdx

	// Set parent for both left and right child
	leftChildPage.setParent(t.RootPageIdx)
	rightChildPage.setParent(t.RootPageIdx)

	return leftChildPage, nil
}

// InternalNodeInsert adds a new child/key pair to parent that corresponds to child.
func (t *Table) InternalNodeInsert(ctx context.Context, parentPageIdx, childPageIdx PageIndex) error {
	aParentPage, err := t.pager.GetPage(ctx, parentPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	if aParentPage.InternalNode == nil {
		return fmt.Errorf("internal node insert: page %d is not an internal node", parentPageIdx)
	}

	if aParentPage.InternalNode.Header.KeysNum >= t.maxICells {
		return t.InternalNodeSplitInsert(ctx, parentPageIdx, childPageIdx)
	}

	aChildPage, err := t.pager.GetPage(ctx, childPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	aChildPage.setParent(parentPageIdx)

	childMaxKey, err := t.GetMaxKey(ctx, aChildPage)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	var (
		aParent          = aParentPage.InternalNode
		index            = aParent.IndexOfChild(childMaxKey)
		originalKeyCount = aParent.Header.KeysNum
	)

	rightChildPageIdx := aParent.Header.RightChild
	rightChildPage, err := t.pager.GetPage(ctx, rightChildPageIdx)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}
	rightChildMaxKey, err := t.GetMaxKey(ctx, rightChildPage)
	if err != nil {
		return fmt.Errorf("internal node insert: %w", err)
	}

	aParent.Header.KeysNum += 1

	if childMaxKey > rightChildMaxKey {
		// Replace right child
		aParent.ICells[originalKeyCount] = ICell{
			Child: rightChildPageIdx,
			Key:   rightChildMaxKey,
		}
		aParent.Header.RightChild = childPageIdx
		return nil
	}

	// Make room for the new cell
	for i := originalKeyCount; i > index; i-- {
		aParent.ICells[i] = aParent.ICells[i-1]
	}
	aParent.ICells[index] = ICell{
		Child: childPageIdx,
		Key:   childMaxKey,
	}

	return nil
}

// InternalNodeSplitInsert splits a full internal node. All children of the node
// plus the new child are divided between the original node (left half) and a new
// sibling (right half). The parent is updated to reflect the original node's new
// max key and the sibling is inserted into the parent, which could cause the
// parent to be split as well. If the original node is root, create new root.
func (t *Table) InternalNodeSplitInsert(ctx context.Context, pageIdx, childPageIdx PageIndex) error {
	aSplitPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	aSplitNode := aSplitPage.InternalNode

	childPage, err := t.pager.GetPage(ctx, childPageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	childMaxKey, err := t.GetMaxKey(ctx, childPage)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	rightChildPage, err := t.pager.GetPage(ctx, aSplitNode.Header.RightChild)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	rightChildMaxKey, err := t.GetMaxKey(ctx, rightChildPage)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	// Collect all children in key order, the right child is keyed by its max key
	cells := make([]ICell, 0, aSplitNode.Header.KeysNum+2)
	cells = append(cells, aSplitNode.ICells[:aSplitNode.Header.KeysNum]...)
	cells = append(cells, ICell{Child: aSplitNode.Header.RightChild, Key: rightChildMaxKey})
	insertIdx, _ := slices.BinarySearchFunc(cells, childMaxKey, func(c ICell, key uint32) int {
		return cmp.Compare(c.Key, key)
	})
	cells = slices.Insert(cells, insertIdx, ICell{Child: childPageIdx, Key: childMaxKey})

	aNewPage, err := t.pager.GetFreePage(ctx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}
	aNewNode := aNewPage.InitializeInternal()
	aNewNode.Header.Parent = aSplitNode.Header.Parent

	var (
		rightSplitCount = len(cells) / 2
		leftSplitCount  = len(cells) - rightSplitCount
		splittingRoot   = aSplitNode.Header.IsRoot
	)

	t.logger.Sugar().With(
		"page_index", int(pageIdx),
		"new_page_index", int(aNewPage.Index),
		"child_page_index", int(childPageIdx),
		"left_split_count", leftSplitCount,
		"right_split_count", rightSplitCount,
	).Debug("internal node split insert")

	aSplitNode.reset(cells[:leftSplitCount])
	aNewNode.reset(cells[leftSplitCount:])

	for _, aCell := range cells[:leftSplitCount] {
		if err := t.setParent(ctx, aCell.Child, pageIdx); err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}
	}
	for _, aCell := range cells[leftSplitCount:] {
		if err := t.setParent(ctx, aCell.Child, aNewPage.Index); err != nil {
			return fmt.Errorf("internal node split insert: %w", err)
		}
	}

	if splittingRoot {
		_, err := t.CreateNewRoot(ctx, aNewPage.Index)
		return err
	}

	parentPageIdx := aSplitNode.Header.Parent
	aParentPage, err := t.pager.GetPage(ctx, parentPageIdx)
	if err != nil {
		return fmt.Errorf("internal node split insert: %w", err)
	}

	// Update parent to reflect the new max key of the original node,
	// the right child of the parent carries no key
	oldChildIdx, ok := aParentPage.InternalNode.IndexOfPage(pageIdx)
	if !ok {
		return fmt.Errorf("internal node split insert: page %d is not a child of page %d", pageIdx, parentPageIdx)
	}
	if oldChildIdx < aParentPage.InternalNode.Header.KeysNum {
		aParentPage.InternalNode.ICells[oldChildIdx].Key = cells[leftSplitCount-1].Key
	}

	return t.InternalNodeInsert(ctx, parentPageIdx, aNewPage.Index)
}

// GetMaxKey returns the largest key stored under the page, descending
// through right children of internal nodes.
func (t *Table) GetMaxKey(ctx context.Context, aPage *Page) (uint32, error) {
	if aPage.LeafNode != nil {
		maxKey, ok := aPage.LeafNode.MaxKey()
		if !ok {
			return 0, fmt.Errorf("get max key: leaf node %d has no cells", aPage.Index)
		}
		return maxKey, nil
	}
	if aPage.InternalNode == nil {
		return 0, fmt.Errorf("get max key: %w: page %d is unused", ErrCorruptPage, aPage.Index)
	}
	rightChild, err := t.pager.GetPage(ctx, aPage.InternalNode.Header.RightChild)
	if err != nil {
		return 0, fmt.Errorf("get max key: %w", err)
	}
	return t.GetMaxKey(ctx, rightChild)
}

func (t *Table) setParent(ctx context.Context, pageIdx, parentIdx PageIndex) error {
	aPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return err
	}
	aPage.setParent(parentIdx)
	return nil
}

// pagesNeededForSplit returns how many new pages inserting into the full leaf
// would allocate: the new leaf, a sibling for every full ancestor and a copy
// of the old root if the split cascade reaches it.
func (t *Table) pagesNeededForSplit(ctx context.Context, aLeafPage *Page) (uint32, error) {
	var (
		needed = uint32(1)
		aPage  = aLeafPage
	)
	for {
		if aPage.IsRoot() {
			return needed + 1, nil
		}
		aParentPage, err := t.pager.GetPage(ctx, aPage.Parent())
		if err != nil {
			return 0, err
		}
		if aParentPage.InternalNode == nil {
			return 0, fmt.Errorf("%w: parent page %d of page %d is not an internal node", ErrCorruptPage, aPage.Parent(), aPage.Index)
		}
		if aParentPage.InternalNode.Header.KeysNum < t.maxICells {
			return needed, nil
		}
		needed += 1
		aPage = aParentPage
	}
}
