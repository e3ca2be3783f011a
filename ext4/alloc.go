package ext4

// This file implements the allocator component described in spec.md
// §4.3, grounded directly on original_source/src/ext4/alloc.rs: the
// per-group bitmap scan, the checksum/free-count bookkeeping order, and
// the data-block-vs-tree-block distinction free_inode relies on.

// allocBlock finds and marks used the first free block in the group
// that owns in (or group 0 if in is nil, used for metadata that has no
// owning inode yet). Per spec.md §4.3's policy, block allocation never
// spills to another group: a full owner group is ENOSPC, full stop. It
// updates the group's bitmap, the group descriptor's free count and
// checksum, and the superblock's free count, in that order, matching
// alloc.rs's alloc_block.
func (fs *FileSystem) allocBlock(in *inode) (uint64, error) {
	g := uint32(0)
	if in != nil && in.id != 0 {
		if cand := fs.blockGroupForInode(in.id); cand < uint32(len(fs.groups)) {
			g = cand
		}
	}
	gd := fs.groups[g]
	if gd.freeBlocks() == 0 {
		return 0, newError(ENOSPC, "no free blocks in group %d", g)
	}
	bm, err := fs.readBlockBitmap(g)
	if err != nil {
		return 0, err
	}
	idx := bm.FindAndSetFirstClear(0)
	if idx < 0 {
		return 0, newError(ENOSPC, "no free blocks in group %d", g)
	}
	if err := fs.writeBlockBitmap(g, bm); err != nil {
		return 0, err
	}
	gd.setFreeBlocks(gd.freeBlocks() - 1)
	if err := fs.writeGroupDescriptor(g); err != nil {
		return 0, err
	}
	fs.sb.freeBlocksLo--
	if err := fs.writeSuperblock(); err != nil {
		return 0, err
	}
	return fs.firstBlockOfGroup(g) + uint64(idx), nil
}

// allocTreeBlockByID is allocBlock specialized for extent-tree metadata
// blocks: it doesn't touch inode.block_count (alloc.rs keeps tree
// blocks out of the logical-size accounting entirely; see inode.go's
// blockCount field and extentAllBlocks's data/tree split). It takes a
// bare inode id rather than *inode since the extent code only ever has
// the id/generation pair in hand while it's partway down the tree.
func (fs *FileSystem) allocTreeBlockByID(inodeID uint32) (uint64, error) {
	return fs.allocBlock(&inode{id: inodeID})
}

// deallocBlock clears pblock's bit in its owning group's bitmap and
// restores the free counters that allocBlock decremented. Freeing an
// already-free block is a caller bug and reported as EINVAL, mirroring
// alloc.rs's is_bit_clear guard.
func (fs *FileSystem) deallocBlock(pblock uint64) error {
	g := fs.blockGroupForBlock(pblock)
	idx := int(pblock - fs.firstBlockOfGroup(g))
	bm, err := fs.readBlockBitmap(g)
	if err != nil {
		return err
	}
	if !bm.Test(idx) {
		return newError(EINVAL, "dealloc block %d: already free", pblock)
	}
	bm.Clear(idx)
	if err := fs.writeBlockBitmap(g, bm); err != nil {
		return err
	}
	gd := fs.groups[g]
	gd.setFreeBlocks(gd.freeBlocks() + 1)
	if err := fs.writeGroupDescriptor(g); err != nil {
		return err
	}
	fs.sb.freeBlocksLo++
	return fs.writeSuperblock()
}

// allocInode finds and marks used the first free inode. Like alloc.rs,
// it simply scans groups in order for one with a free inode; isDir only
// decides whether the group's used-directories count is incremented.
func (fs *FileSystem) allocInode(isDir bool) (uint32, error) {
	groupCount := uint32(len(fs.groups))
	for g := uint32(0); g < groupCount; g++ {
		gd := fs.groups[g]
		if gd.freeInodes() == 0 {
			continue
		}
		bm, err := fs.readInodeBitmap(g)
		if err != nil {
			return 0, err
		}
		idx := bm.FindAndSetFirstClear(0)
		if idx < 0 {
			continue
		}
		if err := fs.writeInodeBitmap(g, bm); err != nil {
			return 0, err
		}
		gd.setFreeInodes(gd.freeInodes() - 1)
		if isDir {
			gd.usedDirsLo++
		}
		capacity := fs.sb.inodesPerGroup
		if uint32(idx) >= capacity-uint32(gd.itableUnused) {
			gd.itableUnused = uint16(capacity - uint32(idx) - 1)
		}
		if err := fs.writeGroupDescriptor(g); err != nil {
			return 0, err
		}
		fs.sb.freeInodes--
		if err := fs.writeSuperblock(); err != nil {
			return 0, err
		}
		id := g*fs.sb.inodesPerGroup + uint32(idx) + 1
		return id, nil
	}
	return 0, newError(ENOSPC, "no free inodes")
}

// deallocInode is the inverse of allocInode. It increments
// itable_unused by one, never past the group's inode capacity; it does
// not recompute the unused tail from the bitmap (see DESIGN.md's Open
// Question resolution).
func (fs *FileSystem) deallocInode(id uint32, isDir bool) error {
	g := fs.blockGroupForInode(id)
	idx := int((id - 1) % fs.sb.inodesPerGroup)
	bm, err := fs.readInodeBitmap(g)
	if err != nil {
		return err
	}
	if !bm.Test(idx) {
		return newError(EINVAL, "dealloc inode %d: already free", id)
	}
	bm.Clear(idx)
	if err := fs.writeInodeBitmap(g, bm); err != nil {
		return err
	}
	gd := fs.groups[g]
	gd.setFreeInodes(gd.freeInodes() + 1)
	if isDir && gd.usedDirsLo > 0 {
		gd.usedDirsLo--
	}
	if uint32(gd.itableUnused) < fs.sb.inodesPerGroup {
		gd.itableUnused++
	}
	if err := fs.writeGroupDescriptor(g); err != nil {
		return err
	}
	fs.sb.freeInodes++
	return fs.writeSuperblock()
}

// inodeAppendBlock allocates one new physical block, maps it onto the
// inode's next logical block (in.blockCount), and advances blockCount.
// Per alloc.rs's doc comments, appending a block does NOT grow the
// inode's reported size: size only grows when the caller actually
// writes file content, or adds a directory entry, into the new block.
func (fs *FileSystem) inodeAppendBlock(in *inode) (uint64, error) {
	pblock, err := fs.allocBlock(in)
	if err != nil {
		return 0, err
	}
	iblock := uint32(in.blockCount)
	if err := fs.extentAppend(in, iblock, pblock); err != nil {
		return 0, err
	}
	in.blockCount++
	return pblock, nil
}
