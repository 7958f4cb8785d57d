package litdb

import (
	"fmt"
)

const (
	InternalNodeHeaderSize = CommonNodeHeaderSize + 4 + 4 // keys + right child
	InternalNodeCellSize   = 4 + 4                        // child + key
	InternalNodeMaxCells   = (PageSize - InternalNodeHeaderSize) / InternalNodeCellSize
)

type InternalNodeHeader struct {
	Header
	KeysNum    uint32
	RightChild PageIndex
}

func (h *InternalNodeHeader) Size() uint64 {
	return h.Header.Size() + 8
}

func (h *InternalNodeHeader) Marshal(buf []byte) ([]byte, error) {
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

	marshalUint32(buf, h.KeysNum, i)
	i += 4
	marshalUint32(buf, uint32(h.RightChild), i)

	return buf[:size], nil
}

func (h *InternalNodeHeader) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < h.Size() {
		return 0, fmt.Errorf("%w: internal header needs %d bytes", ErrCorruptPage, h.Size())
	}

	i := uint64(0)

	hi, err := h.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	h.KeysNum = unmarshalUint32(buf, i)
	i += 4
	h.RightChild = PageIndex(unmarshalUint32(buf, i))

	return h.Size(), nil
}

// ICell points to a child page, Key is the maximum key stored in the child's subtree.
type ICell struct {
	Child PageIndex
	Key   uint32
}

func (c *ICell) Size() uint64 {
	return InternalNodeCellSize
}

func (c *ICell) Marshal(buf []byte) ([]byte, error) {
	size := c.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	marshalUint32(buf, uint32(c.Child), 0)
	marshalUint32(buf, c.Key, 4)

	return buf[:size], nil
}

func (c *ICell) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < c.Size() {
		return 0, fmt.Errorf("%w: internal cell needs %d bytes", ErrCorruptPage, c.Size())
	}

	c.Child = PageIndex(unmarshalUint32(buf, 0))
	c.Key = unmarshalUint32(buf, 4)

	return c.Size(), nil
}

type InternalNode struct {
	Header InternalNodeHeader
	ICells [InternalNodeMaxCells]ICell
}

func NewInternalNode() *InternalNode {
	aNode := InternalNode{
		Header: InternalNodeHeader{
			Header: Header{
				IsInternal: true,
			},
		},
	}
	return &aNode
}

func (n *InternalNode) Size() uint64 {
	return n.Header.Size() + uint64(len(n.ICells))*InternalNodeCellSize
}

func (n *InternalNode) Marshal(buf []byte) ([]byte, error) {
	if n.Header.KeysNum > InternalNodeMaxCells {
		return nil, fmt.Errorf("internal node has %d keys, max is %d", n.Header.KeysNum, InternalNodeMaxCells)
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

	for idx := 0; idx < int(n.Header.KeysNum); idx++ {
		icbuf, err := n.ICells[idx].Marshal(buf[i:])
		if err != nil {
			return nil, err
		}
		i += uint64(len(icbuf))
	}
	clear(buf[i:])

	return buf[:size], nil
}

func (n *InternalNode) Unmarshal(buf []byte) (uint64, error) {
	i := uint64(0)

	hi, err := n.Header.Unmarshal(buf[i:])
	if err != nil {
		return 0, err
	}
	i += hi

	if !n.Header.IsInternal {
		return 0, fmt.Errorf("%w: expected internal node", ErrCorruptPage)
	}
	if n.Header.KeysNum > InternalNodeMaxCells {
		return 0, fmt.Errorf("%w: internal node has %d keys, max is %d", ErrCorruptPage, n.Header.KeysNum, InternalNodeMaxCells)
	}

	for idx := 0; idx < int(n.Header.KeysNum); idx++ {
		ci, err := n.ICells[idx].Unmarshal(buf[i:])
		if err != nil {
			return 0, err
		}
		i += ci
	}

	return i, nil
}
