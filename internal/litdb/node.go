package litdb

import (
	"fmt"
)

// IndexOfChild returns the index of the child which should contain the given key.
// For example, if node has 2 keys, this could return 0 for the leftmost child,
// 1 for the middle child or 2 for the rightmost child.
// The returned value is not a page index!
func (n *InternalNode) IndexOfChild(key uint32) uint32 {
	// Binary search
	var (
		minIdx = uint32(0)
		maxIdx = n.Header.KeysNum
	)
	for minIdx != maxIdx {
		idx := (minIdx + maxIdx) / 2
		rightKey := n.ICells[idx].Key
		if rightKey >= key {
			maxIdx = idx
		} else {
			minIdx = idx + 1
		}
	}

	return minIdx
}

// Child returns a page index of nth child of the node marked by its index
// (0 for the leftmost child, index equal to number of keys means the rightmost child).
func (n *InternalNode) Child(childIdx uint32) (PageIndex, error) {
	keysNum := n.Header.KeysNum
	if childIdx > keysNum {
		return 0, fmt.Errorf("childIdx %d out of keysNum %d", childIdx, keysNum)
	}

	if childIdx == keysNum {
		return n.Header.RightChild, nil
	}

	return n.ICells[childIdx].Child, nil
}

func (n *InternalNode) SetChild(childIdx uint32, pageIdx PageIndex) error {
	keysNum := n.Header.KeysNum
	if childIdx > keysNum {
		return fmt.Errorf("childIdx %d out of keysNum %d", childIdx, keysNum)
	}

	if childIdx == keysNum {
		n.Header.RightChild = pageIdx
		return nil
	}

	n.ICells[childIdx].Child = pageIdx
	return nil
}

// LastKey returns the separator key of the last cell, false when the node has no keys.
func (n *InternalNode) LastKey() (uint32, bool) {
	if n.Header.KeysNum == 0 {
		return 0, false
	}
	return n.ICells[n.Header.KeysNum-1].Key, true
}

func (n *InternalNode) Keys() []uint32 {
	keys := make([]uint32, 0, n.Header.KeysNum)
	for idx := range n.Header.KeysNum {
		keys = append(keys, n.ICells[idx].Key)
	}
	return keys
}

// Children returns page indexes of all children including the right child.
func (n *InternalNode) Children() []PageIndex {
	children := make([]PageIndex, 0, n.Header.KeysNum+1)
	for idx := range n.Header.KeysNum {
		children = append(children, n.ICells[idx].Child)
	}
	children = append(children, n.Header.RightChild)
	return children
}

// reset replaces all cells of the node, the last child becomes the right child.
func (n *InternalNode) reset(cells []ICell) {
	n.ICells = [InternalNodeMaxCells]ICell{}
	n.Header.KeysNum = uint32(len(cells) - 1)
	copy(n.ICells[:], cells[:len(cells)-1])
	n.Header.RightChild = cells[len(cells)-1].Child
}

// IndexOfPage returns the child index pointing at the given page,
// false when the page is not a child of this node.
func (n *InternalNode) IndexOfPage(pageIdx PageIndex) (uint32, bool) {
	for idx := range n.Header.KeysNum {
		if n.ICells[idx].Child == pageIdx {
			return idx, true
		}
	}
	if n.Header.RightChild == pageIdx {
		return n.Header.KeysNum, true
	}
	return 0, false
}
