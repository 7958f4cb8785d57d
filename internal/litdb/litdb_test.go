package litdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardKnop/litdb/internal/pkg/logging"
)

//go:generate mockery --name=Pager --structname=MockPager --inpackage --case=snake --testonly

var (
	gen = newDataGen(uint64(time.Now().Unix()))

	testLogger *zap.Logger
)

func init() {
	logConf := logging.DefaultConfig()

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	l, err := logging.ParseLevel(level)
	if err != nil {
		panic(err)
	}
	logConf.Level = zap.NewAtomicLevelAt(l)

	testLogger, err = logConf.Build()
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	g := dataGen{
		Faker: gofakeit.New(seed),
	}

	return &g
}

func (g *dataGen) Row(id uint32) Row {
	return Row{
		ID:       id,
		Username: truncate(g.Username(), UsernameMaxLength),
		Email:    truncate(g.Email(), EmailMaxLength),
	}
}

// Rows returns rows with unique IDs in random order.
func (g *dataGen) Rows(number int) []Row {
	idMap := map[uint32]struct{}{}
	rows := make([]Row, 0, number)
	for range number {
		id := g.Uint32()
		_, ok := idMap[id]
		for ok {
			id = g.Uint32()
			_, ok = idMap[id]
		}
		rows = append(rows, g.Row(id))
		idMap[id] = struct{}{}
	}
	return rows
}

// SequentialRows returns rows with IDs from 1 to number, shuffled.
func (g *dataGen) SequentialRows(number int) []Row {
	rows := make([]Row, 0, number)
	for i := range number {
		rows = append(rows, g.Row(uint32(i+1)))
	}
	g.ShuffleAnySlice(rows)
	return rows
}

func truncate(s string, maxLength int) string {
	if len(s) > maxLength {
		return s[:maxLength]
	}
	return s
}

func rowKeys(rows []Row) []uint32 {
	keys := make([]uint32, 0, len(rows))
	for _, aRow := range rows {
		keys = append(keys, aRow.ID)
	}
	return keys
}

func testCell(key uint32) Cell {
	aCell := Cell{Key: key}
	if err := (Row{ID: key, Username: "user", Email: "user@example.com"}).MarshalTo(aCell.Value[:]); err != nil {
		panic(err)
	}
	return aCell
}

func newRootLeafPageWithCells(cells int) *Page {
	aRootLeaf := NewLeafNode()
	aRootLeaf.Header.IsRoot = true
	aRootLeaf.Header.Cells = uint32(cells)

	for i := 0; i < cells; i++ {
		aRootLeaf.Cells[i] = testCell(uint32(i))
	}

	return &Page{LeafNode: aRootLeaf}
}

/*
Below is a simple B tree for testing purposes

		           +-------------------+
		           |       *,5,*       |
		           +-------------------+
		          /                     \
		     +-------+                  +--------+
		     | *,2,* |                  | *,18,* |
		     +-------+                  +--------+
		    /         \                /          \
	 +---------+     +-----+     +-----------+    +------+
	 | 1,2     |     | 5   |     | 12,18     |    | 21   |
	 +---------+     +-----+     +-----------+    +------+
*/
func newTestBtree() (*Page, []*Page, []*Page) {
	var (
		// page 0
		aRootPage = &Page{
			Index: 0,
			InternalNode: &InternalNode{
				Header: InternalNodeHeader{
					Header: Header{
						IsInternal: true,
						IsRoot:     true,
					},
					KeysNum:    1,
					RightChild: 2, // page 2
				},
				ICells: [InternalNodeMaxCells]ICell{
					{
						Child: 1, // page 1
						Key:   5,
					},
				},
			},
		}
		// page 1
		internalPage1 = &Page{
			Index: 1,
			InternalNode: &InternalNode{
				Header: InternalNodeHeader{
					Header: Header{
						IsInternal: true,
						Parent:     0, // page 0
					},
					KeysNum:    1,
					RightChild: 4, // page 4
				},
				ICells: [InternalNodeMaxCells]ICell{
					{
						Child: 3, // page 3
						Key:   2,
					},
				},
			},
		}
		// page 2
		internalPage2 = &Page{
			Index: 2,
			InternalNode: &InternalNode{
				Header: InternalNodeHeader{
					Header: Header{
						IsInternal: true,
						Parent:     0,
					},
					KeysNum:    1,
					RightChild: 6, // page 6
				},
				ICells: [InternalNodeMaxCells]ICell{
					{
						Child: 5, // page 5
						Key:   18,
					},
				},
			},
		}
		// page 3
		leafPage1 = &Page{
			Index: 3,
			LeafNode: &LeafNode{
				Header: LeafNodeHeader{
					Header: Header{
						Parent: 1,
					},
					Cells:    2,
					NextLeaf: 4,
				},
				Cells: [LeafNodeMaxCells]Cell{testCell(1), testCell(2)},
			},
		}
		// page 4
		leafPage2 = &Page{
			Index: 4,
			LeafNode: &LeafNode{
				Header: LeafNodeHeader{
					Header: Header{
						Parent: 1,
					},
					Cells:    1,
					NextLeaf: 5,
				},
				Cells: [LeafNodeMaxCells]Cell{testCell(5)},
			},
		}
		// page 5
		leafPage3 = &Page{
			Index: 5,
			LeafNode: &LeafNode{
				Header: LeafNodeHeader{
					Header: Header{
						Parent: 2,
					},
					Cells:    2,
					NextLeaf: 6,
				},
				Cells: [LeafNodeMaxCells]Cell{testCell(12), testCell(18)},
			},
		}
		// page 6
		leafPage4 = &Page{
			Index: 6,
			LeafNode: &LeafNode{
				Header: LeafNodeHeader{
					Header: Header{
						Parent: 2,
					},
					Cells: 1,
				},
				Cells: [LeafNodeMaxCells]Cell{testCell(21)},
			},
		}
		internalPages = []*Page{internalPage1, internalPage2}
		leafPages     = []*Page{leafPage1, leafPage2, leafPage3, leafPage4}
	)

	return aRootPage, internalPages, leafPages
}

func newTestPager(t *testing.T, maxPages uint32) (*pagerImpl, string) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "testdb")
	require.NoError(t, err)
	t.Cleanup(func() { tempFile.Close() })

	aPager, err := NewPager(tempFile, maxPages)
	require.NoError(t, err)

	return aPager, tempFile.Name()
}

func newTestDatabase(t *testing.T, opts ...DatabaseOption) (*Database, string) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "testdb")
	require.NoError(t, err)
	require.NoError(t, tempFile.Close())

	aDatabase, err := Open(context.Background(), testLogger, tempFile.Name(), opts...)
	require.NoError(t, err)

	return aDatabase, tempFile.Name()
}

// requireValidTree walks the whole tree checking ordering, separators, parent
// pointers and the leaf chain. It returns all keys in tree order.
func requireValidTree(t *testing.T, aTable *Table) []uint32 {
	t.Helper()

	var (
		ctx    = context.Background()
		keys   []uint32
		leaves []PageIndex
	)

	var walk func(pageIdx, parentIdx PageIndex, isRoot bool) (uint32, uint32, bool)
	walk = func(pageIdx, parentIdx PageIndex, isRoot bool) (uint32, uint32, bool) {
		aPage, err := aTable.pager.GetPage(ctx, pageIdx)
		require.NoError(t, err)
		require.False(t, aPage.IsUnused(), "page %d is unused", pageIdx)
		require.Equal(t, isRoot, aPage.IsRoot(), "page %d root flag", pageIdx)
		if !isRoot {
			require.Equal(t, parentIdx, aPage.Parent(), "page %d parent", pageIdx)
		}

		if aPage.LeafNode != nil {
			leaves = append(leaves, pageIdx)
			leafKeys := aPage.LeafNode.Keys()
			if len(leafKeys) == 0 {
				require.True(t, isRoot, "non root leaf %d is empty", pageIdx)
				return 0, 0, false
			}
			for i := 1; i < len(leafKeys); i++ {
				require.Less(t, leafKeys[i-1], leafKeys[i], "leaf %d keys not increasing", pageIdx)
			}
			keys = append(keys, leafKeys...)
			return leafKeys[0], leafKeys[len(leafKeys)-1], true
		}

		aNode := aPage.InternalNode
		require.GreaterOrEqual(t, aNode.Header.KeysNum, uint32(1), "internal node %d has no keys", pageIdx)
		require.LessOrEqual(t, aNode.Header.KeysNum, aTable.maxICells, "internal node %d overflows", pageIdx)

		var (
			minKey  uint32
			prevKey uint32
		)
		for idx := range aNode.Header.KeysNum {
			subMin, subMax, ok := walk(aNode.ICells[idx].Child, pageIdx, false)
			require.True(t, ok)
			require.Equal(t, aNode.ICells[idx].Key, subMax, "separator %d of page %d", idx, pageIdx)
			if idx == 0 {
				minKey = subMin
			} else {
				require.Greater(t, subMin, prevKey, "child %d of page %d overlaps previous child", idx, pageIdx)
			}
			prevKey = aNode.ICells[idx].Key
		}
		subMin, subMax, ok := walk(aNode.Header.RightChild, pageIdx, false)
		require.True(t, ok)
		require.Greater(t, subMin, prevKey, "right child of page %d overlaps last child", pageIdx)

		return minKey, subMax, true
	}
	walk(aTable.RootPageIdx, 0, true)

	// Leaves must form a linked list in tree order
	for i, leafIdx := range leaves {
		aPage, err := aTable.pager.GetPage(ctx, leafIdx)
		require.NoError(t, err)
		if i == len(leaves)-1 {
			require.Equal(t, PageIndex(0), aPage.LeafNode.Header.NextLeaf, "last leaf %d", leafIdx)
		} else {
			require.Equal(t, leaves[i+1], aPage.LeafNode.Header.NextLeaf, "next leaf of %d", leafIdx)
		}
	}

	return keys
}
