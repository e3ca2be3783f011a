package ext4

import "encoding/binary"

const (
	groupDescriptorSize32 = 32
	groupDescriptorSize64 = 64
)

// groupDescriptor mirrors one 32- or 64-byte block group descriptor table
// entry (spec.md §3, "Block Group Descriptor"). Like the superblock, the
// raw bytes are retained so unrecognized fields survive a read/write
// round trip intact.
type groupDescriptor struct {
	raw []byte

	blockBitmapLo uint32
	inodeBitmapLo uint32
	inodeTableLo  uint32
	freeBlocksLo  uint16
	freeInodesLo  uint16
	usedDirsLo    uint16
	flags         uint16

	// blockBitmapCsumLo/inodeBitmapCsumLo hold the low 16 bits of
	// CRC32C(uuid || bitmap_bytes) for this group's two bitmaps
	// (spec.md §4.1, "Bitmap"). The high halves only exist in the
	// 64-byte descriptor.
	blockBitmapCsumLo uint16
	inodeBitmapCsumLo uint16
	blockBitmapCsumHi uint16
	inodeBitmapCsumHi uint16

	itableUnused uint16
	checksum     uint16
	size         int // 32 or 64
}

func groupDescriptorFromBytes(b []byte, is64Bit bool) (*groupDescriptor, error) {
	size := groupDescriptorSize32
	if is64Bit {
		size = groupDescriptorSize64
	}
	if len(b) < size {
		return nil, newError(EINVAL, "group descriptor: need %d bytes, got %d", size, len(b))
	}
	raw := make([]byte, size)
	copy(raw, b[:size])
	gd := &groupDescriptor{
		raw:               raw,
		blockBitmapLo:     binary.LittleEndian.Uint32(raw[0x0:]),
		inodeBitmapLo:     binary.LittleEndian.Uint32(raw[0x4:]),
		inodeTableLo:      binary.LittleEndian.Uint32(raw[0x8:]),
		freeBlocksLo:      binary.LittleEndian.Uint16(raw[0xc:]),
		freeInodesLo:      binary.LittleEndian.Uint16(raw[0xe:]),
		usedDirsLo:        binary.LittleEndian.Uint16(raw[0x10:]),
		flags:             binary.LittleEndian.Uint16(raw[0x12:]),
		blockBitmapCsumLo: binary.LittleEndian.Uint16(raw[0x18:]),
		inodeBitmapCsumLo: binary.LittleEndian.Uint16(raw[0x1a:]),
		itableUnused:      binary.LittleEndian.Uint16(raw[0x1c:]),
		checksum:          binary.LittleEndian.Uint16(raw[0x1e:]),
		size:              size,
	}
	if size == groupDescriptorSize64 {
		gd.blockBitmapCsumHi = binary.LittleEndian.Uint16(raw[0x36:])
		gd.inodeBitmapCsumHi = binary.LittleEndian.Uint16(raw[0x38:])
	}
	return gd, nil
}

func (gd *groupDescriptor) blockBitmapBlock() uint64 { return uint64(gd.blockBitmapLo) }
func (gd *groupDescriptor) inodeBitmapBlock() uint64 { return uint64(gd.inodeBitmapLo) }
func (gd *groupDescriptor) inodeTableBlock() uint64  { return uint64(gd.inodeTableLo) }
func (gd *groupDescriptor) freeBlocks() uint32 { return uint32(gd.freeBlocksLo) }
func (gd *groupDescriptor) freeInodes() uint32 { return uint32(gd.freeInodesLo) }

func (gd *groupDescriptor) setFreeBlocks(v uint32) { gd.freeBlocksLo = uint16(v) }
func (gd *groupDescriptor) setFreeInodes(v uint32) { gd.freeInodesLo = uint16(v) }

// setBlockBitmapChecksum/setInodeBitmapChecksum store a freshly
// computed CRC32C(uuid || bitmap_bytes) (spec.md §4.1, "Bitmap") into
// the descriptor, splitting the high half into the 64-bit descriptor's
// extra fields when this filesystem uses one.
func (gd *groupDescriptor) setBlockBitmapChecksum(csum uint32) {
	gd.blockBitmapCsumLo = uint16(csum)
	if gd.size == groupDescriptorSize64 {
		gd.blockBitmapCsumHi = uint16(csum >> 16)
	}
}

func (gd *groupDescriptor) setInodeBitmapChecksum(csum uint32) {
	gd.inodeBitmapCsumLo = uint16(csum)
	if gd.size == groupDescriptorSize64 {
		gd.inodeBitmapCsumHi = uint16(csum >> 16)
	}
}

// computeChecksum computes the group_desc_csum variant used when metadata_csum
// is enabled: CRC32C over the superblock UUID, the little-endian group
// index, and the descriptor bytes with its own checksum field zeroed,
// truncated to the low 16 bits. This matches the reference fork codec
// this package was grounded on for byte layout (see DESIGN.md).
func (gd *groupDescriptor) computeChecksum(sbUUID []byte, group uint32) uint16 {
	payload := make([]byte, gd.size)
	copy(payload, gd.raw)
	binary.LittleEndian.PutUint16(payload[0x1e:], 0)
	full := crc32cSeeded(sbUUID, le32(group), payload)
	return uint16(full & 0xffff)
}

func (gd *groupDescriptor) toBytes(sbUUID []byte, group uint32) []byte {
	raw := make([]byte, gd.size)
	copy(raw, gd.raw)
	binary.LittleEndian.PutUint32(raw[0x0:], gd.blockBitmapLo)
	binary.LittleEndian.PutUint32(raw[0x4:], gd.inodeBitmapLo)
	binary.LittleEndian.PutUint32(raw[0x8:], gd.inodeTableLo)
	binary.LittleEndian.PutUint16(raw[0xc:], gd.freeBlocksLo)
	binary.LittleEndian.PutUint16(raw[0xe:], gd.freeInodesLo)
	binary.LittleEndian.PutUint16(raw[0x10:], gd.usedDirsLo)
	binary.LittleEndian.PutUint16(raw[0x12:], gd.flags)
	binary.LittleEndian.PutUint16(raw[0x18:], gd.blockBitmapCsumLo)
	binary.LittleEndian.PutUint16(raw[0x1a:], gd.inodeBitmapCsumLo)
	binary.LittleEndian.PutUint16(raw[0x1c:], gd.itableUnused)
	if gd.size == groupDescriptorSize64 {
		binary.LittleEndian.PutUint16(raw[0x36:], gd.blockBitmapCsumHi)
		binary.LittleEndian.PutUint16(raw[0x38:], gd.inodeBitmapCsumHi)
	}
	gd.raw = raw

	gd.checksum = gd.computeChecksum(sbUUID, group)
	binary.LittleEndian.PutUint16(raw[0x1e:], gd.checksum)
	return raw
}

func newGroupDescriptor(is64Bit bool, blockBitmap, inodeBitmap, inodeTable uint64, freeBlocks, freeInodes uint32, itableUnused uint16) *groupDescriptor {
	size := groupDescriptorSize32
	if is64Bit {
		size = groupDescriptorSize64
	}
	return &groupDescriptor{
		raw:           make([]byte, size),
		blockBitmapLo: uint32(blockBitmap),
		inodeBitmapLo: uint32(inodeBitmap),
		inodeTableLo:  uint32(inodeTable),
		freeBlocksLo:  uint16(freeBlocks),
		freeInodesLo:  uint16(freeInodes),
		itableUnused:  itableUnused,
		size:          size,
	}
}
