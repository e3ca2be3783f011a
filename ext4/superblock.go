package ext4

import (
	"encoding/binary"

	"github.com/google/uuid"
)

const (
	superblockMagic      = 0xef53
	superblockSize       = 1024
	superblockChecksumOf = 0x3fc // offset 1020, per spec.md §6

	// requiredBlockSize is the only block size this core supports
	// (spec.md §6); scenario §8.1's 8192-inode/32768-blocks-per-group
	// layout assumes it.
	requiredBlockSize = 4096

	// superblockBlockOffset is where the superblock record starts
	// within block 0: spec.md §6 reserves the first 1024 bytes of
	// block 0 for group-0 padding, with the superblock immediately
	// after it.
	superblockBlockOffset = 1024

	featureIncompatFiletype = 0x0002
	featureIncompatExtents  = 0x0040
	featureIncompat64Bit    = 0x0080
	featureROCompatGDTCsum  = 0x0010
	featureROCompatMetaCsum = 0x0400
)

// superblock mirrors the on-disk ext4 superblock (spec.md §3, "Superblock").
// Only the fields this core actually consults or maintains are named; the
// remaining 1024 bytes round-trip through the raw buffer untouched so a
// filesystem produced elsewhere isn't silently truncated by our codec.
type superblock struct {
	raw []byte // the full 1024-byte block, kept for pass-through fields

	inodeCount      uint32
	blockCountLo    uint32
	reservedLo      uint32
	freeBlocksLo    uint32
	freeInodes      uint32
	firstDataBlock  uint32
	logBlockSize    uint32
	blocksPerGroup  uint32
	inodesPerGroup  uint32
	magic           uint16
	inodeSize       uint16
	featureCompat   uint32
	featureIncompat uint32
	featureROCompat uint32
	uuid            uuid.UUID
	checksumType    uint8
	checksum        uint32
}

func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < superblockSize {
		return nil, newError(EINVAL, "superblock: need %d bytes, got %d", superblockSize, len(b))
	}
	raw := make([]byte, superblockSize)
	copy(raw, b[:superblockSize])

	sb := &superblock{
		raw:             raw,
		inodeCount:      binary.LittleEndian.Uint32(raw[0x0:]),
		blockCountLo:    binary.LittleEndian.Uint32(raw[0x4:]),
		reservedLo:      binary.LittleEndian.Uint32(raw[0x8:]),
		freeBlocksLo:    binary.LittleEndian.Uint32(raw[0xc:]),
		freeInodes:      binary.LittleEndian.Uint32(raw[0x10:]),
		firstDataBlock:  binary.LittleEndian.Uint32(raw[0x14:]),
		logBlockSize:    binary.LittleEndian.Uint32(raw[0x18:]),
		blocksPerGroup:  binary.LittleEndian.Uint32(raw[0x20:]),
		inodesPerGroup:  binary.LittleEndian.Uint32(raw[0x28:]),
		magic:           binary.LittleEndian.Uint16(raw[0x38:]),
		inodeSize:       binary.LittleEndian.Uint16(raw[0x58:]),
		featureCompat:   binary.LittleEndian.Uint32(raw[0x5c:]),
		featureIncompat: binary.LittleEndian.Uint32(raw[0x60:]),
		featureROCompat: binary.LittleEndian.Uint32(raw[0x64:]),
		checksumType:    raw[0x175],
		checksum:        binary.LittleEndian.Uint32(raw[superblockChecksumOf:]),
	}
	u, err := uuid.FromBytes(raw[0x68:0x78])
	if err != nil {
		return nil, wrapError(EFSCORRUPTED, err, "superblock: bad uuid")
	}
	sb.uuid = u

	if sb.magic != superblockMagic {
		return nil, newError(EFSCORRUPTED, "superblock: bad magic %#x", sb.magic)
	}
	if sb.hasMetadataChecksums() {
		want := sb.computeChecksum()
		if want != sb.checksum {
			return nil, newError(EFSCORRUPTED, "superblock: checksum mismatch: have %#x want %#x", sb.checksum, want)
		}
	}
	return sb, nil
}

func (sb *superblock) hasMetadataChecksums() bool {
	return sb.featureROCompat&featureROCompatMetaCsum != 0
}

func (sb *superblock) has64Bit() bool {
	return sb.featureIncompat&featureIncompat64Bit != 0
}

func (sb *superblock) blockSize() int {
	return 1024 << sb.logBlockSize
}

// computeChecksum is a CRC32C over the whole 1024-byte block up to (but
// excluding) the checksum field itself, per spec.md §4.1 and confirmed
// against the reference group-fork superblock codec in the example pack.
func (sb *superblock) computeChecksum() uint32 {
	return crc32cSeeded(sb.raw[:superblockChecksumOf])
}

// toBytes re-serializes the tracked fields into raw and returns a copy,
// recomputing the checksum when metadata_csum is enabled.
func (sb *superblock) toBytes() []byte {
	raw := make([]byte, superblockSize)
	copy(raw, sb.raw)

	binary.LittleEndian.PutUint32(raw[0x0:], sb.inodeCount)
	binary.LittleEndian.PutUint32(raw[0x4:], sb.blockCountLo)
	binary.LittleEndian.PutUint32(raw[0x8:], sb.reservedLo)
	binary.LittleEndian.PutUint32(raw[0xc:], sb.freeBlocksLo)
	binary.LittleEndian.PutUint32(raw[0x10:], sb.freeInodes)
	binary.LittleEndian.PutUint32(raw[0x14:], sb.firstDataBlock)
	binary.LittleEndian.PutUint32(raw[0x18:], sb.logBlockSize)
	binary.LittleEndian.PutUint32(raw[0x20:], sb.blocksPerGroup)
	binary.LittleEndian.PutUint32(raw[0x28:], sb.inodesPerGroup)
	binary.LittleEndian.PutUint16(raw[0x38:], sb.magic)
	binary.LittleEndian.PutUint16(raw[0x58:], sb.inodeSize)
	binary.LittleEndian.PutUint32(raw[0x5c:], sb.featureCompat)
	binary.LittleEndian.PutUint32(raw[0x60:], sb.featureIncompat)
	binary.LittleEndian.PutUint32(raw[0x64:], sb.featureROCompat)
	copy(raw[0x68:0x78], sb.uuid[:])
	raw[0x175] = sb.checksumType

	sb.raw = raw
	if sb.hasMetadataChecksums() {
		sb.checksum = sb.computeChecksum()
		binary.LittleEndian.PutUint32(raw[superblockChecksumOf:], sb.checksum)
	}
	return raw
}

// newSuperblock builds the superblock for a freshly formatted filesystem
// of blockCount blocks, blockSize bytes each, with inodesPerGroup inodes
// and blocksPerGroup blocks in every group but possibly the last.
func newSuperblock(blockSize int, blockCount uint64, blocksPerGroup, inodesPerGroup uint32, groupCount uint32) *superblock {
	logBlockSize := uint32(0)
	for sz := 1024; sz < blockSize; sz <<= 1 {
		logBlockSize++
	}
	firstData := uint32(1)
	if blockSize > 1024 {
		firstData = 0
	}
	sb := &superblock{
		raw:             make([]byte, superblockSize),
		inodeCount:      inodesPerGroup * groupCount,
		blockCountLo:    uint32(blockCount),
		freeInodes:      inodesPerGroup*groupCount - (firstNonReservedInode - 1),
		firstDataBlock:  firstData,
		logBlockSize:    logBlockSize,
		blocksPerGroup:  blocksPerGroup,
		inodesPerGroup:  inodesPerGroup,
		magic:           superblockMagic,
		inodeSize:       256,
		featureIncompat: featureIncompatFiletype | featureIncompatExtents,
		featureROCompat: featureROCompatGDTCsum | featureROCompatMetaCsum,
		checksumType:    1, // crc32c
		uuid:            uuid.New(),
	}
	return sb
}
