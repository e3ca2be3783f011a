package ext4

import (
	"testing"

	"github.com/ext4go/ext4fs/device"
)

func newTestFSForExtents(t *testing.T) *FileSystem {
	t.Helper()
	dev := device.NewMemory(4096, 4096)
	fs, err := Create(dev, Params{BlockSize: 4096, InodesPerGroup: 64})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return fs
}

func TestExtentAppendContiguousMerges(t *testing.T) {
	fs := newTestFSForExtents(t)
	in := newInode(fileTypeRegular, 0)
	in.id = 999
	in.initExtentTree()

	for i := uint32(0); i < 5; i++ {
		if err := fs.extentAppend(in, i, uint64(1000+i)); err != nil {
			t.Fatalf("extentAppend(%d): %v", i, err)
		}
	}
	root, err := extentRootFromInode(in)
	if err != nil {
		t.Fatalf("extentRootFromInode: %v", err)
	}
	if len(root.leaves) != 1 {
		t.Fatalf("expected one merged leaf for 5 contiguous blocks, got %d", len(root.leaves))
	}
	if root.leaves[0].length != 5 {
		t.Fatalf("expected leaf length 5, got %d", root.leaves[0].length)
	}
}

func TestExtentAppendFragmentationCreatesNewEntry(t *testing.T) {
	fs := newTestFSForExtents(t)
	in := newInode(fileTypeRegular, 0)
	in.id = 999
	in.initExtentTree()

	if err := fs.extentAppend(in, 0, 2000); err != nil {
		t.Fatalf("extentAppend: %v", err)
	}
	// A non-contiguous physical block for the very next logical block
	// must start a second leaf entry rather than extending the first.
	if err := fs.extentAppend(in, 1, 5000); err != nil {
		t.Fatalf("extentAppend: %v", err)
	}
	root, err := extentRootFromInode(in)
	if err != nil {
		t.Fatalf("extentRootFromInode: %v", err)
	}
	if len(root.leaves) != 2 {
		t.Fatalf("expected two leaves after a fragmented append, got %d", len(root.leaves))
	}
}

func TestExtentQueryFindsMappedBlock(t *testing.T) {
	fs := newTestFSForExtents(t)
	in := newInode(fileTypeRegular, 0)
	in.id = 999
	in.initExtentTree()

	if err := fs.extentAppend(in, 0, 2000); err != nil {
		t.Fatalf("extentAppend: %v", err)
	}
	if err := fs.extentAppend(in, 1, 2001); err != nil {
		t.Fatalf("extentAppend: %v", err)
	}

	phys, found, err := fs.extentQuery(in, 1)
	if err != nil {
		t.Fatalf("extentQuery: %v", err)
	}
	if !found || phys != 2001 {
		t.Fatalf("extentQuery(1) = (%d, %v), want (2001, true)", phys, found)
	}

	_, found, err = fs.extentQuery(in, 5)
	if err != nil {
		t.Fatalf("extentQuery: %v", err)
	}
	if found {
		t.Fatalf("extentQuery(5) should report not found")
	}
}

func TestExtentTreeGrowsDepthOnRootOverflow(t *testing.T) {
	fs := newTestFSForExtents(t)
	in := newInode(fileTypeRegular, 0)
	in.id = 999
	in.initExtentTree()

	// Five deliberately non-contiguous physical targets: the root can
	// only ever hold 4 leaf entries inline, so the fifth forces a
	// depth-growth split.
	physicals := []uint64{1000, 2000, 3000, 4000, 5000}
	for i, p := range physicals {
		if err := fs.extentAppend(in, uint32(i*100), p); err != nil {
			t.Fatalf("extentAppend(%d): %v", i, err)
		}
	}

	root, err := extentRootFromInode(in)
	if err != nil {
		t.Fatalf("extentRootFromInode: %v", err)
	}
	if root.header.depth == 0 {
		t.Fatalf("expected root depth to grow past 0 after 5 fragmented extents")
	}

	for i, p := range physicals {
		phys, found, err := fs.extentQuery(in, uint32(i*100))
		if err != nil {
			t.Fatalf("extentQuery(%d): %v", i*100, err)
		}
		if !found || phys != p {
			t.Fatalf("extentQuery(%d) = (%d, %v), want (%d, true)", i*100, phys, found, p)
		}
	}
}

func TestExtentAllBlocksSeparatesDataFromTree(t *testing.T) {
	fs := newTestFSForExtents(t)
	in := newInode(fileTypeRegular, 0)
	in.id = 999
	in.initExtentTree()

	physicals := []uint64{1000, 2000, 3000, 4000, 5000}
	for i, p := range physicals {
		if err := fs.extentAppend(in, uint32(i*100), p); err != nil {
			t.Fatalf("extentAppend(%d): %v", i, err)
		}
	}

	data, tree, err := fs.extentAllBlocks(in)
	if err != nil {
		t.Fatalf("extentAllBlocks: %v", err)
	}
	if len(data) != len(physicals) {
		t.Fatalf("expected %d data blocks, got %d", len(physicals), len(data))
	}
	if len(tree) == 0 {
		t.Fatalf("expected at least one tree block once the root has grown")
	}
}

func TestExtentNonRootNodeCarriesValidTailChecksum(t *testing.T) {
	fs := newTestFSForExtents(t)
	in := newInode(fileTypeRegular, 0)
	in.id = 999
	in.generation = 999
	in.initExtentTree()

	physicals := []uint64{1000, 2000, 3000, 4000, 5000}
	for i, p := range physicals {
		if err := fs.extentAppend(in, uint32(i*100), p); err != nil {
			t.Fatalf("extentAppend(%d): %v", i, err)
		}
	}

	_, tree, err := fs.extentAllBlocks(in)
	if err != nil {
		t.Fatalf("extentAllBlocks: %v", err)
	}
	if len(tree) == 0 {
		t.Fatalf("expected at least one tree block once the root has grown")
	}

	for _, childBlock := range tree {
		data, err := fs.dev.ReadBlock(childBlock)
		if err != nil {
			t.Fatalf("ReadBlock(%d): %v", childBlock, err)
		}
		if _, err := extentNodeFromBytesWithTail(data, fs.sb.uuid[:], in.id, in.generation); err != nil {
			t.Fatalf("extentNodeFromBytesWithTail on written block %d: %v", childBlock, err)
		}

		corrupt := make([]byte, len(data))
		copy(corrupt, data)
		corrupt[len(corrupt)-extentTailLen-1] ^= 0xff // flip a payload byte, leaving the header intact
		if _, err := extentNodeFromBytesWithTail(corrupt, fs.sb.uuid[:], in.id, in.generation); err == nil {
			t.Fatalf("expected a corrupted non-root node to fail its tail checksum")
		} else if !IsCode(err, EFSCORRUPTED) {
			t.Fatalf("expected EFSCORRUPTED, got %v", err)
		}
	}
}

func TestExtentNodeMaxEntriesReservesTailSlot(t *testing.T) {
	blockSize := 4096
	naive := (blockSize - extentHeaderLen) / extentEntrySize
	if got := int(extentNodeMaxEntries(blockSize)); got != naive-1 {
		t.Fatalf("extentNodeMaxEntries(%d) = %d, want %d (one less than the naive %d)", blockSize, got, naive-1, naive)
	}
}
