package litdb

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// PrintConstants writes the layout constants of the database file.
func PrintConstants(w io.Writer) error {
	constants := []struct {
		name  string
		value int
	}{
		{"ROW_SIZE", RowSize},
		{"COMMON_NODE_HEADER_SIZE", CommonNodeHeaderSize},
		{"LEAF_NODE_HEADER_SIZE", LeafNodeHeaderSize},
		{"LEAF_NODE_CELL_SIZE", LeafNodeCellSize},
		{"LEAF_NODE_SPACE_FOR_CELLS", LeafNodeSpaceForCells},
		{"LEAF_NODE_MAX_CELLS", LeafNodeMaxCells},
		{"INTERNAL_NODE_HEADER_SIZE", InternalNodeHeaderSize},
		{"INTERNAL_NODE_CELL_SIZE", InternalNodeCellSize},
		{"INTERNAL_NODE_MAX_CELLS", InternalNodeMaxCells},
	}
	for _, c := range constants {
		if _, err := fmt.Fprintf(w, "%s: %d\n", c.name, c.value); err != nil {
			return err
		}
	}
	return nil
}

// PrintTree writes an indented dump of the B-tree. Every node is written as
// "- internal (size N)" or "- leaf (size N)" with its children indented two
// spaces deeper. Internal nodes write "- key K" after each child except the
// right child.
func (t *Table) PrintTree(ctx context.Context, w io.Writer) error {
	return t.printTree(ctx, w, t.RootPageIdx, 0)
}

func (t *Table) printTree(ctx context.Context, w io.Writer, pageIdx PageIndex, level int) error {
	aPage, err := t.pager.GetPage(ctx, pageIdx)
	if err != nil {
		return fmt.Errorf("print tree: %w", err)
	}

	indent := strings.Repeat("  ", level)

	if aPage.LeafNode != nil {
		if _, err := fmt.Fprintf(w, "%s- leaf (size %d)\n", indent, aPage.LeafNode.Header.Cells); err != nil {
			return err
		}
		for _, key := range aPage.LeafNode.Keys() {
			if _, err := fmt.Fprintf(w, "%s  - %d\n", indent, key); err != nil {
				return err
			}
		}
		return nil
	}

	if aPage.InternalNode == nil {
		return fmt.Errorf("print tree: %w: page %d is unused", ErrCorruptPage, pageIdx)
	}

	aNode := aPage.InternalNode
	if _, err := fmt.Fprintf(w, "%s- internal (size %d)\n", indent, aNode.Header.KeysNum); err != nil {
		return err
	}
	for idx := range aNode.Header.KeysNum {
		if err := t.printTree(ctx, w, aNode.ICells[idx].Child, level+1); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s  - key %d\n", indent, aNode.ICells[idx].Key); err != nil {
			return err
		}
	}
	return t.printTree(ctx, w, aNode.Header.RightChild, level+1)
}
