package litdb

import (
	"context"
	"fmt"
)

// Insert stores the row under the key. A duplicate key or a full table is
// reported before anything is modified.
func (t *Table) Insert(ctx context.Context, key uint32, aRow Row) error {
	if err := aRow.Validate(); err != nil {
		return err
	}

	aCursor, err := t.Seek(ctx, key)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	aPage, err := t.pager.GetPage(ctx, aCursor.PageIdx)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	// Must be leaf node
	if aPage.LeafNode == nil {
		return fmt.Errorf("insert: trying to insert into non leaf node %d", aCursor.PageIdx)
	}

	if aCursor.CellIdx < aPage.LeafNode.Header.Cells {
		if aPage.LeafNode.Cells[aCursor.CellIdx].Key == key {
			return fmt.Errorf("%w: %d", ErrDuplicateKey, key)
		}
	}

	if aPage.LeafNode.Header.Cells >= LeafNodeMaxCells {
		needed, err := t.pagesNeededForSplit(ctx, aPage)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		if t.pager.TotalPages()+needed > t.pager.MaxPages() {
			return fmt.Errorf("%w: inserting key %d needs %d new pages, %d of %d pages used",
				ErrTableFull, key, needed, t.pager.TotalPages(), t.pager.MaxPages())
		}
	}

	t.logger.Sugar().With(
		"page_index", int(aCursor.PageIdx),
		"cell_index", int(aCursor.CellIdx),
		"key", int(key),
	).Debug("inserting row")

	return aCursor.LeafNodeInsert(ctx, key, aRow)
}
