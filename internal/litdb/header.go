package litdb

import (
	"fmt"
)

const (
	nodeKindInternal byte = 0
	nodeKindLeaf     byte = 1

	// node kind, is root flag and parent page index
	CommonNodeHeaderSize = 1 + 1 + 4
)

// Header is common to leaf and internal nodes.
type Header struct {
	IsInternal bool
	IsRoot     bool
	Parent     PageIndex
}

func (h *Header) Size() uint64 {
	return CommonNodeHeaderSize
}

func (h *Header) Marshal(buf []byte) ([]byte, error) {
	size := h.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	if h.IsInternal {
		buf[0] = nodeKindInternal
	} else {
		buf[0] = nodeKindLeaf
	}

	if h.IsRoot {
		buf[1] = 1
	} else {
		buf[1] = 0
	}

	marshalUint32(buf, uint32(h.Parent), 2)

	return buf[:size], nil
}

func (h *Header) Unmarshal(buf []byte) (uint64, error) {
	if uint64(len(buf)) < h.Size() {
		return 0, fmt.Errorf("%w: header needs %d bytes", ErrCorruptPage, h.Size())
	}

	switch buf[0] {
	case nodeKindInternal:
		h.IsInternal = true
	case nodeKindLeaf:
		h.IsInternal = false
	default:
		return 0, fmt.Errorf("%w: unknown node kind %d", ErrCorruptPage, buf[0])
	}
	h.IsRoot = buf[1] == 1
	h.Parent = PageIndex(unmarshalUint32(buf, 2))

	return h.Size(), nil
}

func marshalUint32(buf []byte, n uint32, i uint64) []byte {
	buf[i+0] = byte(n >> 0)
	buf[i+1] = byte(n >> 8)
	buf[i+2] = byte(n >> 16)
	buf[i+3] = byte(n >> 24)
	return buf
}

func unmarshalUint32(buf []byte, i uint64) uint32 {
	return 0 |
		(uint32(buf[i+0]) << 0) |
		(uint32(buf[i+1]) << 8) |
		(uint32(buf[i+2]) << 16) |
		(uint32(buf[i+3]) << 24)
}
