package litdb

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEndOfTable = errors.New("end of table")
)

// Cursor points at a cell of a leaf node.
type Cursor struct {
	Table      *Table
	PageIdx    PageIndex
	CellIdx    uint32
	EndOfTable bool
}

func (c *Cursor) LeafNodeInsert(ctx context.Context, key uint32, aRow Row) error {
	aPage, err := c.Table.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("get page: %w", err)
	}
	if aPage.LeafNode == nil {
		return fmt.Errorf("error inserting row to a non leaf node, key %d", key)
	}

	if aPage.LeafNode.Header.Cells >= LeafNodeMaxCells {
		// Split leaf node
		if err := c.LeafNodeSplitInsert(ctx, key, aRow); err != nil {
			return fmt.Errorf("leaf node split insert: %w", err)
		}
		return nil
	}

	if c.CellIdx < aPage.LeafNode.Header.Cells {
		// Need make room for new cell
		for i := aPage.LeafNode.Header.Cells; i > c.CellIdx; i-- {
			aPage.LeafNode.Cells[i] = aPage.LeafNode.Cells[i-1]
		}
	}

	if err := c.saveToCell(&aPage.LeafNode.Cells[c.CellIdx], key, aRow); err != nil {
		return err
	}
	aPage.LeafNode.Header.Cells += 1

	return nil
}

// Create a new node and move half the cells over.
// Insert the new value in one of the two nodes.
// Update parent or create a new parent.
func (c *Cursor) LeafNodeSplitInsert(ctx context.Context, key uint32, aRow Row) error {
	aPager := c.Table.pager

	aSplitPage, err := aPager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("get page: %w", err)
	}

	originalMaxKey, err := c.Table.GetMaxKey(ctx, aSplitPage)
	if err != nil {
		return fmt.Errorf("get original max key: %w", err)
	}

	aNewPage, err := aPager.GetFreePage(ctx)
	if err != nil {
		return fmt.Errorf("get new page: %w", err)
	}

	c.Table.logger.Sugar().With(
		"key", int(key),
		"old_max_key", int(originalMaxKey),
		"page_index", int(c.PageIdx),
		"new_page_index", int(aNewPage.Index),
	).Debug("leaf node split insert")

	aNewLeaf := aNewPage.InitializeLeaf()
	aNewLeaf.Header.Parent = aSplitPage.LeafNode.Header.Parent

	aNewLeaf.Header.NextLeaf = aSplitPage.LeafNode.Header.NextLeaf
	aSplitPage.LeafNode.Header.NextLeaf = aNewPage.Index

	// All existing keys plus new key should be divided
	// evenly between old (left) and new (right) nodes.
	// Starting from the right, move each key to correct position.
	for i := int64(LeafNodeMaxCells); i >= 0; i-- {
		var (
			idx      = uint32(i)
			destPage = aSplitPage // left
			cellIdx  = idx
		)
		if idx >= LeafNodeLeftSplitCount {
			destPage = aNewPage // right
			cellIdx = idx - LeafNodeLeftSplitCount
		}
		destCell := &destPage.LeafNode.Cells[cellIdx]

		if idx == c.CellIdx {
			if err := c.saveToCell(destCell, key, aRow); err != nil {
				return err
			}
		} else if idx > c.CellIdx {
			*destCell = aSplitPage.LeafNode.Cells[idx-1]
		} else {
			*destCell = aSplitPage.LeafNode.Cells[idx]
		}
	}

	// Update cell count on both leaf nodes, cells past the count are cleared
	// so they do not linger in the left node
	aSplitPage.LeafNode.Header.Cells = LeafNodeLeftSplitCount
	aNewLeaf.Header.Cells = LeafNodeRightSplitCount
	clear(aSplitPage.LeafNode.Cells[LeafNodeLeftSplitCount:])

	if aSplitPage.LeafNode.Header.IsRoot {
		_, err := c.Table.CreateNewRoot(ctx, aNewPage.Index)
		return err
	}

	parentPageIdx := aSplitPage.LeafNode.Header.Parent
	aParentPage, err := aPager.GetPage(ctx, parentPageIdx)
	if err != nil {
		return fmt.Errorf("get parent page %w", err)
	}

	// Update parent to reflect new max key of the old leaf,
	// the right child of the parent carries no key
	oldChildIdx := aParentPage.InternalNode.IndexOfChild(originalMaxKey)
	if oldChildIdx < aParentPage.InternalNode.Header.KeysNum {
		oldPageNewMaxKey, err := c.Table.GetMaxKey(ctx, aSplitPage)
		if err != nil {
			return fmt.Errorf("get old page max key %w", err)
		}
		aParentPage.InternalNode.ICells[oldChildIdx].Key = oldPageNewMaxKey
	}

	return c.Table.InternalNodeInsert(ctx, parentPageIdx, aNewPage.Index)
}

// Value returns the row the cursor points at.
func (c *Cursor) Value(ctx context.Context) (Row, error) {
	if c.EndOfTable {
		return Row{}, ErrEndOfTable
	}

	aPage, err := c.Table.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return Row{}, fmt.Errorf("value: %w", err)
	}
	if aPage.LeafNode == nil {
		return Row{}, fmt.Errorf("value: page %d is not a leaf node", c.PageIdx)
	}

	aCell, err := aPage.LeafNode.Cell(c.CellIdx)
	if err != nil {
		return Row{}, fmt.Errorf("value: %w", err)
	}

	var aRow Row
	if err := UnmarshalRow(aCell.Value[:], &aRow); err != nil {
		return Row{}, fmt.Errorf("value: %w", err)
	}

	return aRow, nil
}

// Advance moves the cursor to the next cell, following the next leaf link
// when the current leaf is exhausted.
func (c *Cursor) Advance(ctx context.Context) error {
	if c.EndOfTable {
		return nil
	}

	aPage, err := c.Table.pager.GetPage(ctx, c.PageIdx)
	if err != nil {
		return fmt.Errorf("advance: %w", err)
	}

	c.CellIdx += 1
	if c.CellIdx < aPage.LeafNode.Header.Cells {
		return nil
	}

	// If there is no leaf page to the right, set end of table flag and return
	if aPage.LeafNode.Header.NextLeaf == 0 {
		c.EndOfTable = true
		return nil
	}

	// Otherwise, we move the cursor to the next leaf page
	c.PageIdx = aPage.LeafNode.Header.NextLeaf
	c.CellIdx = 0

	return nil
}

func (c *Cursor) fetchRow(ctx context.Context) (Row, error) {
	aRow, err := c.Value(ctx)
	if err != nil {
		return Row{}, fmt.Errorf("fetch row: %w", err)
	}
	if err := c.Advance(ctx); err != nil {
		return Row{}, fmt.Errorf("fetch row: %w", err)
	}
	return aRow, nil
}

func (c *Cursor) saveToCell(cell *Cell, key uint32, aRow Row) error {
	if err := aRow.MarshalTo(cell.Value[:]); err != nil {
		return fmt.Errorf("save to cell: %w", err)
	}
	cell.Key = key
	return nil
}
