// Package ext4 implements the core of an ext4 filesystem driver:
// allocation bitmaps, the extent tree, directory management and
// metadata checksumming, operating against any device.BlockDevice.
//
// It deliberately stops short of a mountable filesystem: there is no
// path walker, no open file-descriptor table, and no journal. Callers
// drive it one inode at a time, the way original_source/src/ext4/alloc.rs
// and dir.rs do.
package ext4

import (
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ext4go/ext4fs/device"
)

// FileSystem is the facade described in spec.md §4.6: it owns the
// superblock and group descriptor table in memory, and lazily reads or
// writes bitmaps, inode tables and data/tree blocks through dev as
// operations need them.
type FileSystem struct {
	dev    device.BlockDevice
	sb     *superblock
	groups []*groupDescriptor

	gdtStartBlock uint64
	gdtBlocks     uint64

	log *logrus.Entry
}

// Params configures a newly formatted filesystem. Zero values pick the
// same defaults the teacher corpus's own Create path uses: a 4 KiB
// block and 8192 inodes per group. The block-group size is not a
// parameter: Create always uses 8 * block size blocks per group (the
// bitmap-block-sized default every real mkfs.ext4 uses too).
type Params struct {
	BlockSize      int
	InodesPerGroup uint32
	Logger         *logrus.Entry
}

func (p *Params) setDefaults() {
	if p.BlockSize == 0 {
		p.BlockSize = 4096
	}
	if p.InodesPerGroup == 0 {
		p.InodesPerGroup = 8192
	}
	if p.Logger == nil {
		p.Logger = logrus.NewEntry(discardLogger())
	}
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Create formats dev as a fresh ext4 filesystem and returns the
// FileSystem mounted on it, with the root directory inode already
// created. This mirrors alloc.rs's create_root_inode, called once at
// mkfs time.
func Create(dev device.BlockDevice, params Params) (*FileSystem, error) {
	params.setDefaults()
	blockSize := params.BlockSize
	if blockSize != requiredBlockSize {
		return nil, newError(EINVAL, "ext4: this core only supports a %d-byte block, got %d", requiredBlockSize, blockSize)
	}
	if blockSize != dev.BlockSize() {
		return nil, newError(EINVAL, "ext4: device block size %d does not match requested %d", dev.BlockSize(), blockSize)
	}
	blockCount := dev.BlockCount()
	blocksPerGroup := uint32(8 * blockSize)
	groupCount := uint32((blockCount + uint64(blocksPerGroup) - 1) / uint64(blocksPerGroup))
	if groupCount == 0 {
		groupCount = 1
	}

	descSize := groupDescriptorSize32
	sb := newSuperblock(blockSize, blockCount, blocksPerGroup, params.InodesPerGroup, groupCount)

	gdtBlocks := uint64((int(groupCount)*descSize + blockSize - 1) / blockSize)
	firstDataBlock := uint32(1 + gdtBlocks)
	sb.firstDataBlock = firstDataBlock

	inodeTableBlocksPerGroup := uint64((int(params.InodesPerGroup)*int(sb.inodeSize) + blockSize - 1) / blockSize)
	reservedPerGroup := int(3 + inodeTableBlocksPerGroup) // block bitmap + inode bitmap + inode table + one spare block after it

	fs := &FileSystem{
		dev:           dev,
		sb:            sb,
		gdtStartBlock: 1,
		gdtBlocks:     gdtBlocks,
		log:           params.Logger,
	}

	fs.groups = make([]*groupDescriptor, groupCount)
	for g := uint32(0); g < groupCount; g++ {
		base := fs.firstBlockOfGroup(g)
		blockBitmapBlock := base
		inodeBitmapBlock := base + 1
		inodeTableBlock := base + 2

		groupBlocks := uint64(blocksPerGroup)
		if g == groupCount-1 {
			groupBlocks = blockCount - uint64(base)
		}

		freeBlocks := uint32(groupBlocks) - uint32(reservedPerGroup)
		freeInodesInGroup := params.InodesPerGroup
		reservedInodesHere := 0
		if g == 0 {
			reservedInodesHere = firstNonReservedInode - 1 // inode IDs 1..10
			freeInodesInGroup -= uint32(reservedInodesHere)
		}
		gd := newGroupDescriptor(sb.has64Bit(), blockBitmapBlock, inodeBitmapBlock, inodeTableBlock,
			freeBlocks, freeInodesInGroup, uint16(params.InodesPerGroup)-uint16(reservedInodesHere))
		fs.groups[g] = gd

		bm := newBitmap(make([]byte, blockSize), int(groupBlocks))
		for i := 0; i < reservedPerGroup; i++ {
			bm.Set(i)
		}
		if err := fs.writeBlockBitmap(g, bm); err != nil {
			return nil, err
		}

		ibm := newBitmap(make([]byte, blockSize), int(params.InodesPerGroup))
		for i := 0; i < reservedInodesHere; i++ {
			ibm.Set(i)
		}
		if err := fs.writeInodeBitmap(g, ibm); err != nil {
			return nil, err
		}

		if err := fs.writeGroupDescriptor(g); err != nil {
			return nil, err
		}
	}

	if err := fs.writeSuperblock(); err != nil {
		return nil, err
	}

	if err := fs.createRootInode(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Open mounts an existing ext4fs-formatted device by reading its
// superblock and group descriptor table back into memory.
func Open(dev device.BlockDevice, logger *logrus.Entry) (*FileSystem, error) {
	if logger == nil {
		logger = logrus.NewEntry(discardLogger())
	}
	if dev.BlockSize() != requiredBlockSize {
		return nil, newError(EINVAL, "ext4: this core only supports a %d-byte block, got %d", requiredBlockSize, dev.BlockSize())
	}
	raw, err := dev.ReadBlock(0)
	if err != nil {
		return nil, wrapError(EIO, err, "ext4: read block 0")
	}
	if len(raw) < superblockBlockOffset+superblockSize {
		return nil, newError(EFSCORRUPTED, "ext4: block 0 too small to hold the superblock")
	}
	sb, err := superblockFromBytes(raw[superblockBlockOffset : superblockBlockOffset+superblockSize])
	if err != nil {
		return nil, err
	}
	groupCount := (sb.inodeCount + sb.inodesPerGroup - 1) / sb.inodesPerGroup
	descSize := groupDescriptorSize32
	if sb.has64Bit() {
		descSize = groupDescriptorSize64
	}
	gdtBlocks := uint64((int(groupCount)*descSize + sb.blockSize() - 1) / sb.blockSize())

	fs := &FileSystem{dev: dev, sb: sb, gdtStartBlock: 1, gdtBlocks: gdtBlocks, log: logger}
	fs.groups = make([]*groupDescriptor, groupCount)
	for g := uint32(0); g < groupCount; g++ {
		gd, err := fs.readGroupDescriptorFromDisk(g, descSize)
		if err != nil {
			return nil, err
		}
		fs.groups[g] = gd
	}
	return fs, nil
}

// Close flushes the device. FileSystem performs no internal buffering
// beyond what an individual operation needs, so Close never has
// metadata of its own left to write back.
func (fs *FileSystem) Close() error {
	return fs.dev.Flush()
}

func (fs *FileSystem) blockSize() int { return fs.sb.blockSize() }

func (fs *FileSystem) firstBlockOfGroup(g uint32) uint64 {
	return uint64(fs.sb.firstDataBlock) + uint64(g)*uint64(fs.sb.blocksPerGroup)
}

func (fs *FileSystem) blockGroupForInode(id uint32) uint32 {
	return (id - 1) / fs.sb.inodesPerGroup
}

func (fs *FileSystem) blockGroupForBlock(pblock uint64) uint32 {
	rel := pblock - uint64(fs.sb.firstDataBlock)
	return uint32(rel / uint64(fs.sb.blocksPerGroup))
}

func (fs *FileSystem) descSize() int {
	if fs.sb.has64Bit() {
		return groupDescriptorSize64
	}
	return groupDescriptorSize32
}

func (fs *FileSystem) readGroupDescriptorFromDisk(g uint32, descSize int) (*groupDescriptor, error) {
	entriesPerBlock := fs.blockSize() / descSize
	block := fs.gdtStartBlock + uint64(g)/uint64(entriesPerBlock)
	offset := (int(g) % entriesPerBlock) * descSize
	data, err := fs.dev.ReadBlock(block)
	if err != nil {
		return nil, wrapError(EIO, err, "ext4: read GDT block %d", block)
	}
	return groupDescriptorFromBytes(data[offset:offset+descSize], fs.sb.has64Bit())
}

func (fs *FileSystem) writeGroupDescriptor(g uint32) error {
	descSize := fs.descSize()
	entriesPerBlock := fs.blockSize() / descSize
	block := fs.gdtStartBlock + uint64(g)/uint64(entriesPerBlock)
	offset := (int(g) % entriesPerBlock) * descSize

	data, err := fs.dev.ReadBlock(block)
	if err != nil {
		data = make([]byte, fs.blockSize())
	}
	encoded := fs.groups[g].toBytes(fs.sb.uuid[:], g)
	copy(data[offset:offset+descSize], encoded)
	if err := fs.dev.WriteBlock(block, data); err != nil {
		return wrapError(EIO, err, "ext4: write GDT block %d", block)
	}
	return nil
}

// writeSuperblock re-reads the whole of block 0, overwrites the
// superblock record at its fixed offset (spec.md §6: "Offset 0:
// group-0 padding, 1024 bytes. Offset 1024: superblock, 1024 bytes"),
// and writes the full block back, since device.BlockDevice.WriteBlock
// always takes exactly one block-sized buffer.
func (fs *FileSystem) writeSuperblock() error {
	block := make([]byte, fs.blockSize())
	if existing, err := fs.dev.ReadBlock(0); err == nil && len(existing) == fs.blockSize() {
		copy(block, existing)
	}
	copy(block[superblockBlockOffset:superblockBlockOffset+superblockSize], fs.sb.toBytes())
	if err := fs.dev.WriteBlock(0, block); err != nil {
		return wrapError(EIO, err, "ext4: write superblock")
	}
	return nil
}

func (fs *FileSystem) readBlockBitmap(g uint32) (*bitmap, error) {
	gd := fs.groups[g]
	data, err := fs.dev.ReadBlock(gd.blockBitmapBlock())
	if err != nil {
		return nil, wrapError(EIO, err, "ext4: read block bitmap for group %d", g)
	}
	return newBitmap(data, int(fs.sb.blocksPerGroup)), nil
}

// writeBlockBitmap writes the bitmap and stamps its keyed CRC32C into
// the group descriptor's bg_block_bitmap_csum_lo/hi fields (spec.md
// §4.1, "Bitmap": csum = CRC32C(uuid || bitmap_bytes)). The caller is
// still responsible for persisting the descriptor itself afterward.
func (fs *FileSystem) writeBlockBitmap(g uint32, bm *bitmap) error {
	gd := fs.groups[g]
	data := bm.Bytes()
	if err := fs.dev.WriteBlock(gd.blockBitmapBlock(), data); err != nil {
		return wrapError(EIO, err, "ext4: write block bitmap for group %d", g)
	}
	gd.setBlockBitmapChecksum(crc32cSeeded(fs.sb.uuid[:], data))
	return nil
}

func (fs *FileSystem) readInodeBitmap(g uint32) (*bitmap, error) {
	gd := fs.groups[g]
	data, err := fs.dev.ReadBlock(gd.inodeBitmapBlock())
	if err != nil {
		return nil, wrapError(EIO, err, "ext4: read inode bitmap for group %d", g)
	}
	return newBitmap(data, int(fs.sb.inodesPerGroup)), nil
}

// writeInodeBitmap is writeBlockBitmap's inode-bitmap counterpart.
func (fs *FileSystem) writeInodeBitmap(g uint32, bm *bitmap) error {
	gd := fs.groups[g]
	data := bm.Bytes()
	if err := fs.dev.WriteBlock(gd.inodeBitmapBlock(), data); err != nil {
		return wrapError(EIO, err, "ext4: write inode bitmap for group %d", g)
	}
	gd.setInodeBitmapChecksum(crc32cSeeded(fs.sb.uuid[:], data))
	return nil
}

// inodeLocation resolves inode id to its containing block and byte
// offset within the owning group's inode table.
func (fs *FileSystem) inodeLocation(id uint32) (block uint64, offset int) {
	g := fs.blockGroupForInode(id)
	idxInGroup := int((id - 1) % fs.sb.inodesPerGroup)
	inodeSize := int(fs.sb.inodeSize)
	perBlock := fs.blockSize() / inodeSize
	gd := fs.groups[g]
	block = gd.inodeTableBlock() + uint64(idxInGroup/perBlock)
	offset = (idxInGroup % perBlock) * inodeSize
	return block, offset
}

func (fs *FileSystem) readInode(id uint32) (*inode, error) {
	block, offset := fs.inodeLocation(id)
	data, err := fs.dev.ReadBlock(block)
	if err != nil {
		return nil, wrapError(EIO, err, "ext4: read inode %d", id)
	}
	in, err := inodeFromBytes(data[offset:])
	if err != nil {
		return nil, err
	}
	in.id = id
	return in, nil
}

func (fs *FileSystem) writeInode(id uint32, in *inode) error {
	in.id = id
	block, offset := fs.inodeLocation(id)
	data, err := fs.dev.ReadBlock(block)
	if err != nil {
		data = make([]byte, fs.blockSize())
	}
	encoded := in.toBytes(int(fs.sb.inodeSize), fs.sb.uuid[:], id)
	copy(data[offset:offset+len(encoded)], encoded)
	if err := fs.dev.WriteBlock(block, data); err != nil {
		return wrapError(EIO, err, "ext4: write inode %d", id)
	}
	return nil
}

// InodeRef is an exclusively-owned, in-memory handle on one inode
// record, named for spec.md §3's "InodeRef" type: the pairing of an
// inode number with its decoded record that every mutating operation
// threads through.
type InodeRef struct {
	ID    uint32
	Inode *inode
}

// createInode allocates a fresh inode of the given mode, initializes
// an empty extent tree on it, and writes it back. Grounded on
// alloc.rs's create_inode.
func (fs *FileSystem) createInode(mode uint16, now uint32) (*InodeRef, error) {
	isDir := mode&fileTypeMask == fileTypeDir
	id, err := fs.allocInode(isDir)
	if err != nil {
		return nil, err
	}
	in := newInode(mode, now)
	in.id = id
	in.generation = id // cheap but adequate uniqueness for a from-scratch fs
	in.initExtentTree()
	if err := fs.writeInode(id, in); err != nil {
		return nil, err
	}
	return &InodeRef{ID: id, Inode: in}, nil
}

// createRootInode formats inode 2 as the filesystem root: a directory
// containing only "." and "..", both pointing at itself, link count 2.
// Grounded on alloc.rs's create_root_inode.
func (fs *FileSystem) createRootInode() error {
	in := newInode(fileTypeDir|0o755, 0)
	in.id = rootInodeID
	in.initExtentTree()
	in.linksCount = 2

	pblock, err := fs.inodeAppendBlock(in)
	if err != nil {
		return err
	}
	entries, ok := insertEntry(nil, fs.blockSize(), true, ".", rootInodeID, fileTypeDirType)
	if !ok {
		return newError(EFSCORRUPTED, "root inode: could not place \".\"")
	}
	entries, ok = insertEntry(entries, fs.blockSize(), true, "..", rootInodeID, fileTypeDirType)
	if !ok {
		return newError(EFSCORRUPTED, "root inode: could not place \"..\"")
	}
	block := encodeDirBlock(fs.blockSize(), entries, true, fs.sb.uuid[:], rootInodeID, in.generation)
	if err := fs.dev.WriteBlock(pblock, block); err != nil {
		return wrapError(EIO, err, "ext4: write root directory block")
	}
	in.setSize(uint64(fs.blockSize()))

	// inode 2 is not allocated through allocInode: Create pre-marks it
	// (with the rest of inodes 1-10) in group 0's inode bitmap, so only
	// the inode record itself is written here.
	return fs.writeInode(rootInodeID, in)
}

// freeInode releases every block an inode owns — its data blocks and
// its extent-tree metadata blocks, each returned to the free-block
// counters through deallocBlock — zeros the inode record and marks it
// free.
// Grounded on alloc.rs's free_inode.
func (fs *FileSystem) freeInode(ref *InodeRef) error {
	data, tree, err := fs.extentAllBlocks(ref.Inode)
	if err != nil {
		return err
	}
	for _, b := range data {
		if err := fs.deallocBlock(b); err != nil {
			return err
		}
	}
	for _, b := range tree {
		if err := fs.deallocBlock(b); err != nil {
			return err
		}
	}
	isDir := ref.Inode.isDir()
	zero := &inode{}
	if err := fs.writeInode(ref.ID, zero); err != nil {
		return err
	}
	return fs.deallocInode(ref.ID, isDir)
}

// readDirEntries returns every live directory entry under dir,
// expanding the full extent tree block by block.
func (fs *FileSystem) readDirEntries(dir *InodeRef) ([]dirEntry, error) {
	if !dir.Inode.isDir() {
		return nil, newError(EINVAL, "inode %d is not a directory", dir.ID)
	}
	blocks := dir.Inode.blockCount
	var all []dirEntry
	for i := uint64(0); i < blocks; i++ {
		pblock, found, err := fs.extentQuery(dir.Inode, uint32(i))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		data, err := fs.dev.ReadBlock(pblock)
		if err != nil {
			return nil, wrapError(EIO, err, "ext4: read directory block %d", pblock)
		}
		entries, _, err := parseDirBlock(data)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.inode != 0 {
				all = append(all, e)
			}
		}
	}
	return all, nil
}

// Lookup resolves one path component under dir.
func (fs *FileSystem) Lookup(dir *InodeRef, name string) (*InodeRef, error) {
	entries, err := fs.readDirEntries(dir)
	if err != nil {
		return nil, err
	}
	idx, ok := findEntry(entries, name)
	if !ok {
		return nil, newError(ENOENT, "no such entry %q", name)
	}
	in, err := fs.readInode(entries[idx].inode)
	if err != nil {
		return nil, err
	}
	return &InodeRef{ID: entries[idx].inode, Inode: in}, nil
}

// addDirEntry adds name -> childID to dir, extending dir with a new
// block if every existing block is full. Grounded on alloc.rs's
// dir_add_entry / dir.rs's directory-growth shape.
func (fs *FileSystem) addDirEntry(dir *InodeRef, name string, childID uint32, fileType uint8) error {
	blocks := dir.Inode.blockCount
	for i := uint64(0); i < blocks; i++ {
		pblock, found, err := fs.extentQuery(dir.Inode, uint32(i))
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		data, err := fs.dev.ReadBlock(pblock)
		if err != nil {
			return wrapError(EIO, err, "ext4: read directory block %d", pblock)
		}
		entries, _, err := parseDirBlock(data)
		if err != nil {
			return err
		}
		if _, exists := findEntry(entries, name); exists {
			return newError(EINVAL, "entry %q already exists", name)
		}
		newEntries, ok := insertEntry(entries, fs.blockSize(), true, name, childID, fileType)
		if !ok {
			continue
		}
		block := encodeDirBlock(fs.blockSize(), newEntries, true, fs.sb.uuid[:], dir.ID, dir.Inode.generation)
		if err := fs.dev.WriteBlock(pblock, block); err != nil {
			return wrapError(EIO, err, "ext4: write directory block %d", pblock)
		}
		return fs.writeInode(dir.ID, dir.Inode)
	}

	pblock, err := fs.inodeAppendBlock(dir.Inode)
	if err != nil {
		return err
	}
	entries, ok := insertEntry(nil, fs.blockSize(), true, name, childID, fileType)
	if !ok {
		return newError(EFSCORRUPTED, "directory: name %q too long for an empty block", name)
	}
	block := encodeDirBlock(fs.blockSize(), entries, true, fs.sb.uuid[:], dir.ID, dir.Inode.generation)
	if err := fs.dev.WriteBlock(pblock, block); err != nil {
		return wrapError(EIO, err, "ext4: write new directory block %d", pblock)
	}
	dir.Inode.setSize(dir.Inode.size() + uint64(fs.blockSize()))
	return fs.writeInode(dir.ID, dir.Inode)
}

// removeDirEntry tombstones name's record under dir.
func (fs *FileSystem) removeDirEntry(dir *InodeRef, name string) error {
	blocks := dir.Inode.blockCount
	for i := uint64(0); i < blocks; i++ {
		pblock, found, err := fs.extentQuery(dir.Inode, uint32(i))
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		data, err := fs.dev.ReadBlock(pblock)
		if err != nil {
			return wrapError(EIO, err, "ext4: read directory block %d", pblock)
		}
		entries, _, err := parseDirBlock(data)
		if err != nil {
			return err
		}
		newEntries, ok := removeEntry(entries, name)
		if !ok {
			continue
		}
		block := encodeDirBlock(fs.blockSize(), newEntries, true, fs.sb.uuid[:], dir.ID, dir.Inode.generation)
		if err := fs.dev.WriteBlock(pblock, block); err != nil {
			return wrapError(EIO, err, "ext4: write directory block %d", pblock)
		}
		return nil
	}
	return newError(ENOENT, "no such entry %q", name)
}

// Mkdir creates a new, empty subdirectory named name under dir.
func (fs *FileSystem) Mkdir(dir *InodeRef, name string, now uint32) (*InodeRef, error) {
	if !dir.Inode.isDir() {
		return nil, newError(EINVAL, "inode %d is not a directory", dir.ID)
	}
	child, err := fs.createInode(fileTypeDir|0o755, now)
	if err != nil {
		return nil, err
	}
	child.Inode.linksCount = 2

	pblock, err := fs.inodeAppendBlock(child.Inode)
	if err != nil {
		return nil, err
	}
	entries, ok := insertEntry(nil, fs.blockSize(), true, ".", child.ID, fileTypeDirType)
	if !ok {
		return nil, newError(EFSCORRUPTED, "mkdir: could not place \".\"")
	}
	entries, ok = insertEntry(entries, fs.blockSize(), true, "..", dir.ID, fileTypeDirType)
	if !ok {
		return nil, newError(EFSCORRUPTED, "mkdir: could not place \"..\"")
	}
	block := encodeDirBlock(fs.blockSize(), entries, true, fs.sb.uuid[:], child.ID, child.Inode.generation)
	if err := fs.dev.WriteBlock(pblock, block); err != nil {
		return nil, wrapError(EIO, err, "ext4: write new directory block")
	}
	child.Inode.setSize(uint64(fs.blockSize()))
	if err := fs.writeInode(child.ID, child.Inode); err != nil {
		return nil, err
	}

	if err := fs.addDirEntry(dir, name, child.ID, fileTypeDirType); err != nil {
		return nil, err
	}
	dir.Inode.linksCount++
	if err := fs.writeInode(dir.ID, dir.Inode); err != nil {
		return nil, err
	}
	fs.log.WithFields(logrus.Fields{"dir": dir.ID, "child": child.ID, "name": name}).Debug("ext4: mkdir")
	return child, nil
}

// Create creates a new, empty regular file named name under dir.
func (fs *FileSystem) Create(dir *InodeRef, name string, now uint32) (*InodeRef, error) {
	if !dir.Inode.isDir() {
		return nil, newError(EINVAL, "inode %d is not a directory", dir.ID)
	}
	child, err := fs.createInode(fileTypeRegular|0o644, now)
	if err != nil {
		return nil, err
	}
	child.Inode.linksCount = 1
	if err := fs.writeInode(child.ID, child.Inode); err != nil {
		return nil, err
	}
	if err := fs.addDirEntry(dir, name, child.ID, fileTypeFor(child.Inode.mode)); err != nil {
		return nil, err
	}
	return child, nil
}

// Remove deletes the directory entry named name under dir and, once
// its link count reaches zero, frees the inode it pointed to.
func (fs *FileSystem) Remove(dir *InodeRef, name string) error {
	target, err := fs.Lookup(dir, name)
	if err != nil {
		return err
	}
	if target.Inode.isDir() {
		entries, err := fs.readDirEntries(target)
		if err != nil {
			return err
		}
		live := 0
		for _, e := range entries {
			if e.name != "." && e.name != ".." {
				live++
			}
		}
		if live > 0 {
			return newError(EINVAL, "directory %q not empty", name)
		}
	}
	if err := fs.removeDirEntry(dir, name); err != nil {
		return err
	}
	if target.Inode.linksCount > 0 {
		target.Inode.linksCount--
	}
	if target.Inode.linksCount > 0 {
		return fs.writeInode(target.ID, target.Inode)
	}
	return fs.freeInode(target)
}

// RootInode returns an InodeRef for the filesystem root.
func (fs *FileSystem) RootInode() (*InodeRef, error) {
	in, err := fs.readInode(rootInodeID)
	if err != nil {
		return nil, err
	}
	return &InodeRef{ID: rootInodeID, Inode: in}, nil
}

// UUID returns the filesystem's identifying UUID.
func (fs *FileSystem) UUID() uuid.UUID { return fs.sb.uuid }
