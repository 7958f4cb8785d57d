package litdb

import (
	"fmt"
)

const (
	LeafNodeHeaderSize      = CommonNodeHeaderSize + 4 + 4 // cells + next leaf
	LeafNodeKeySize         = 4
	LeafNodeCellSize        = LeafNodeKeySize + RowSize
	LeafNodeSpaceForCells   = PageSize - LeafNodeHeaderSize
	LeafNodeMaxCells        = LeafNodeSpaceForCells / LeafNodeCellSize
	LeafNodeRightSplitCount = (LeafNodeMaxCells + 1) / 2
	LeafNodeLeftSplitCount  = LeafNodeMaxCells + 1 - LeafNodeRightSplitCount
)

type LeafNodeHeader struct {
	Header
	Cells    uint32
	NextLeaf PageIndex // 0 means there is no next leaf
}

func (h *LeafNodeHeader) Size() uint64 {
	return h.Header.Size() + 8
}

func (h *LeafNodeHeader) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := h.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	marshalUint32(buf, h.Cells, i)
	i += 4
	marshalUint32(buf, uint32(h.NextLeaf), i)

	return buf[:size], nil
}

func (h *LeafNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < h.Size() {
		return 0, fmt.Errorf("%w: leaf header needs %d bytes", ErrCorruptPage, h.Size())
	}

	i := uint64(0)

	hi, err := h.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	h.Cells = unmarshalUint32(buf, i)
	i += 4
	h.NextLeaf = PageIndex(unmarshalUint32(buf, i))

	return h.Size(), nil
}

type Cell struct {
	Key   uint32
	Value [RowSize]byte
}

func (c *Cell) Size() uint64 {
	return LeafNodeCellSize
}

func (c *Cell) Marshal(buf []byte) ([]byte, error) {
	size := c.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint32(buf, c.Key, 0)
	copy(buf[LeafNodeKeySize:], c.Value[:])

	return buf[:size], nil
}

func (c *Cell) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < c.Size() {
		return 0, fmt.Errorf("%w: leaf cell needs %d bytes", ErrCorruptPage, c.Size())
	}

	c.Key = unmarshalUint32(buf, 0)
	copy(c.Value[:], buf[LeafNodeKeySize:LeafNodeCellSize])

	return c.Size(), nil
}

// LeafNode stores sorted key to row cells. Only the first Header.Cells
// cells are meaningful.
type LeafNode struct {
	Header LeafNodeHeader
	Cells  [LeafNodeMaxCells]Cell
}

func NewLeafNode() *LeafNode {
	return new(LeafNode)
}

func (n *LeafNode) Size() uint64 {
	return n.Header.Size() + uint64(len(n.Cells))*LeafNodeCellSize
}

func (n *LeafNode) Marshal(buf []byte) ([]byte, error) {
	if n.Header.Cells > LeafNodeMaxCells {
		return nil, fmt.Errorf("leaf node has %d cells, max is %d", n.Header.Cells, LeafNodeMaxCells)
	}

	size := n.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	i := uint64(0)

	hbuf, err := n.Header.Marshal(buf[i:])
	if err != nil {
		return nil, err
	}
	i += uint64(len(hbuf))

	for idx := 0; idx < int(n.Header.Cells); idx++ {
		cbuf, err := n.Cells[idx].Marshal(buf[i:])
		if err != nil {
			return nil, err
		}
		i += uint64(len(cbuf))
	}
	clear(buf[i:])

	return buf[:size], nil
}

func (n *LeafNode) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := n.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	if n.Header.IsInternal {
		return 0, fmt.Errorf("%w: expected leaf node", ErrCorruptPage)
	}
	if n.Header.Cells > LeafNodeMaxCells {
		return 0, fmt.Errorf("%w: leaf node has %d cells, max is %d", ErrCorruptPage, n.Header.Cells, LeafNodeMaxCells)
	}

	for idx := 0; idx < int(n.Header.Cells); idx++ {
		ci, err := n.Cells[idx].Unmarshal(buf[i:])
		if err != nil {
			return 0, err
		}
		i += ci
	}

	return i, nil
}

// Cell returns the cell at idx, idx must be lower than the cell count.
func (n *LeafNode) Cell(idx uint32) (*Cell, error) {
	if idx >= n.Header.Cells {
		return nil, fmt.Errorf("cell index %d out of %d cells", idx, n.Header.Cells)
	}
	return &n.Cells[idx], nil
}

// MaxKey returns the last key of the node, false if the node is empty.
func (n *LeafNode) MaxKey() (uint32, bool) {
	if n.Header.Cells == 0 {
		return 0, false
	}
	return n.Cells[n.Header.Cells-1].Key, true
}

func (n *LeafNode) Keys() []uint32 {
	keys := make([]uint32, 0, n.Header.Cells)
	for idx := range n.Header.Cells {
		keys = append(keys, n.Cells[idx].Key)
	}
	return keys
}
