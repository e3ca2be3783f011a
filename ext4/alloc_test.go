package ext4

import (
	"testing"

	"github.com/ext4go/ext4fs/device"
)

func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	dev := device.NewMemory(4096, 8192)
	fs, err := Create(dev, Params{BlockSize: 4096, InodesPerGroup: 1024})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return fs
}

func TestAllocBlockMarksBitmapAndDecrementsCounters(t *testing.T) {
	fs := newTestFS(t)
	freeBefore := fs.groups[0].freeBlocks()
	sbFreeBefore := fs.sb.freeBlocksLo

	b1, err := fs.allocBlock(nil)
	if err != nil {
		t.Fatalf("allocBlock: %v", err)
	}
	b2, err := fs.allocBlock(nil)
	if err != nil {
		t.Fatalf("allocBlock: %v", err)
	}
	if b2 != b1+1 {
		t.Fatalf("expected consecutive allocations, got %d then %d", b1, b2)
	}
	if fs.groups[0].freeBlocks() != freeBefore-2 {
		t.Fatalf("group free blocks = %d, want %d", fs.groups[0].freeBlocks(), freeBefore-2)
	}
	if fs.sb.freeBlocksLo != sbFreeBefore-2 {
		t.Fatalf("superblock free blocks = %d, want %d", fs.sb.freeBlocksLo, sbFreeBefore-2)
	}

	g := fs.blockGroupForBlock(b1)
	bm, err := fs.readBlockBitmap(g)
	if err != nil {
		t.Fatalf("readBlockBitmap: %v", err)
	}
	idx := int(b1 - fs.firstBlockOfGroup(g))
	if !bm.Test(idx) {
		t.Fatalf("expected bit for block %d to be set", b1)
	}
}

func TestDeallocBlockRestoresCounters(t *testing.T) {
	fs := newTestFS(t)
	b, err := fs.allocBlock(nil)
	if err != nil {
		t.Fatalf("allocBlock: %v", err)
	}
	freeAfterAlloc := fs.groups[0].freeBlocks()

	if err := fs.deallocBlock(b); err != nil {
		t.Fatalf("deallocBlock: %v", err)
	}
	if fs.groups[0].freeBlocks() != freeAfterAlloc+1 {
		t.Fatalf("expected free count to rise by one after dealloc")
	}

	if err := fs.deallocBlock(b); err == nil {
		t.Fatalf("expected double-free to be rejected")
	} else if !IsCode(err, EINVAL) {
		t.Fatalf("expected EINVAL for double-free, got %v", err)
	}
}

func TestAllocInodeSkipsReservedRange(t *testing.T) {
	fs := newTestFS(t)
	id, err := fs.allocInode(false)
	if err != nil {
		t.Fatalf("allocInode: %v", err)
	}
	if id < firstNonReservedInode {
		t.Fatalf("allocInode returned a reserved inode number %d", id)
	}
}

func TestAllocInodeExhaustion(t *testing.T) {
	dev := device.NewMemory(4096, 4096)
	fs, err := Create(dev, Params{BlockSize: 4096, InodesPerGroup: 12})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// 12 inodes per group, 10 reserved (including root's inode 2,
	// pre-marked at format time): exactly 2 remain, so two allocs
	// should succeed and a third must report ENOSPC.
	if _, err := fs.allocInode(false); err != nil {
		t.Fatalf("first allocInode: %v", err)
	}
	if _, err := fs.allocInode(false); err != nil {
		t.Fatalf("second allocInode: %v", err)
	}
	if _, err := fs.allocInode(false); err == nil {
		t.Fatalf("expected ENOSPC once the group's inodes are exhausted")
	} else if !IsCode(err, ENOSPC) {
		t.Fatalf("expected ENOSPC, got %v", err)
	}
}

func TestInodeAppendBlockDoesNotGrowSize(t *testing.T) {
	fs := newTestFS(t)
	in := newInode(fileTypeRegular, 0)
	id, err := fs.allocInode(false)
	if err != nil {
		t.Fatalf("allocInode: %v", err)
	}
	in.id = id
	in.initExtentTree()

	sizeBefore := in.size()
	if _, err := fs.inodeAppendBlock(in); err != nil {
		t.Fatalf("inodeAppendBlock: %v", err)
	}
	if in.size() != sizeBefore {
		t.Fatalf("inodeAppendBlock must not change size: before %d after %d", sizeBefore, in.size())
	}
	if in.blockCount != 1 {
		t.Fatalf("expected blockCount 1 after one append, got %d", in.blockCount)
	}
}
