package ext4

import "encoding/binary"

const (
	dirEntryHeaderLen = 8 // inode(4) + rec_len(2) + name_len(1) + file_type(1)
	// dirTailMagic is the file_type byte ext4 stamps on the checksum-only
	// tail pseudo-entry (rec_len 12, name_len 0) so it can't be mistaken
	// for a real directory entry.
	dirTailMagic = 0xde
	dirRoundTo   = 4

	fileTypeUnknown = 0
	fileTypeRegFile = 1
	fileTypeDirType = 2
)

// dirEntry mirrors one ext4_dir_entry_2 record (spec.md §3, "Directory
// Entry"): a variable-length, 4-byte-aligned record naming one child.
// An entry with inode == 0 is a tombstone: its rec_len still counts
// toward the block but it names nothing.
type dirEntry struct {
	inode    uint32
	recLen   uint16
	nameLen  uint8
	fileType uint8
	name     string
}

func dirEntrySize(nameLen int) uint16 {
	n := dirEntryHeaderLen + nameLen
	if rem := n % dirRoundTo; rem != 0 {
		n += dirRoundTo - rem
	}
	return uint16(n)
}

func dirEntryFromBytes(b []byte) (dirEntry, error) {
	if len(b) < dirEntryHeaderLen {
		return dirEntry{}, newError(EFSCORRUPTED, "dirent: truncated record")
	}
	e := dirEntry{
		inode:    binary.LittleEndian.Uint32(b[0x0:]),
		recLen:   binary.LittleEndian.Uint16(b[0x4:]),
		nameLen:  b[0x6],
		fileType: b[0x7],
	}
	if e.recLen < dirEntryHeaderLen || int(e.recLen) > len(b) {
		return dirEntry{}, newError(EFSCORRUPTED, "dirent: rec_len %d out of range", e.recLen)
	}
	if int(dirEntryHeaderLen)+int(e.nameLen) > int(e.recLen) {
		return dirEntry{}, newError(EFSCORRUPTED, "dirent: name_len %d exceeds rec_len %d", e.nameLen, e.recLen)
	}
	e.name = string(b[dirEntryHeaderLen : dirEntryHeaderLen+int(e.nameLen)])
	return e, nil
}

func (e dirEntry) toBytes() []byte {
	b := make([]byte, e.recLen)
	binary.LittleEndian.PutUint32(b[0x0:], e.inode)
	binary.LittleEndian.PutUint16(b[0x4:], e.recLen)
	b[0x6] = e.nameLen
	b[0x7] = e.fileType
	copy(b[dirEntryHeaderLen:], e.name)
	return b
}

// dirTail is the checksum-only pseudo-entry ext4 places at the end of
// every leaf directory block when metadata_csum is enabled: a
// zero-inode record with rec_len 12, name_len 0, file_type 0xde (the
// "tail" marker) and the block's CRC32C in the 4 bytes after the 8-byte
// header.
type dirTail struct {
	checksum uint32
}

const dirTailLen = 12

func dirTailFromBytes(b []byte) (dirTail, bool) {
	if len(b) < dirTailLen {
		return dirTail{}, false
	}
	inodeField := binary.LittleEndian.Uint32(b[0x0:])
	recLen := binary.LittleEndian.Uint16(b[0x4:])
	nameLen := b[0x6]
	fileType := b[0x7]
	if inodeField != 0 || recLen != dirTailLen || nameLen != 0 || fileType != dirTailMagic {
		return dirTail{}, false
	}
	return dirTail{checksum: binary.LittleEndian.Uint32(b[0x8:])}, true
}

func (t dirTail) toBytes() []byte {
	b := make([]byte, dirTailLen)
	binary.LittleEndian.PutUint16(b[0x4:], dirTailLen)
	b[0x7] = dirTailMagic
	binary.LittleEndian.PutUint32(b[0x8:], t.checksum)
	return b
}

// computeDirTailChecksum seeds the CRC32C with the filesystem UUID,
// then the owning directory's inode number and generation, then the
// block contents up to (not including) the tail itself. This is the
// dir-inode-id+generation-seeded variant used by the Linux kernel's
// ext4_dirent_csum, the resolution recorded for spec.md's directory
// checksum Open Question (see SPEC_FULL.md).
func computeDirTailChecksum(sbUUID []byte, dirInode, generation uint32, blockWithoutTail []byte) uint32 {
	return crc32cSeeded(sbUUID, le32(dirInode), le32(generation), blockWithoutTail)
}

// parseDirBlock decodes every record in a directory block in order,
// including a trailing tail if present. The last non-tail record's
// rec_len always extends to the start of the tail (or to the end of
// the block if there is no tail), per spec.md §8's rec_len invariant.
func parseDirBlock(b []byte) (entries []dirEntry, tail *dirTail, err error) {
	off := 0
	limit := len(b)
	if t, ok := dirTailFromBytes(b[limit-dirTailLen:]); ok {
		tail = &t
		limit -= dirTailLen
	}
	for off < limit {
		e, err := dirEntryFromBytes(b[off:])
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, e)
		off += int(e.recLen)
	}
	if off != limit {
		return nil, nil, newError(EFSCORRUPTED, "dirent: records sum to %d, want %d", off, limit)
	}
	return entries, tail, nil
}

// encodeDirBlock is the inverse of parseDirBlock: it lays entries out
// back to back and appends a freshly-checksummed tail when withTail is
// true.
func encodeDirBlock(blockSize int, entries []dirEntry, withTail bool, sbUUID []byte, dirInode, generation uint32) []byte {
	b := make([]byte, blockSize)
	off := 0
	for _, e := range entries {
		copy(b[off:off+int(e.recLen)], e.toBytes())
		off += int(e.recLen)
	}
	if withTail {
		sum := computeDirTailChecksum(sbUUID, dirInode, generation, b[:blockSize-dirTailLen])
		copy(b[blockSize-dirTailLen:], dirTail{checksum: sum}.toBytes())
	}
	return b
}

// findEntry scans block for a live (non-tombstone) entry named name.
func findEntry(entries []dirEntry, name string) (int, bool) {
	for i, e := range entries {
		if e.inode != 0 && e.name == name {
			return i, true
		}
	}
	return -1, false
}

// insertEntry tries to fit a new entry for (name, inode, fileType)
// into entries by either reusing a large-enough tombstone/trailing
// slack, or splitting the last entry's rec_len. It returns the updated
// entry list and whether the insert succeeded; false means the block is
// full and the caller must allocate a new directory block.
func insertEntry(entries []dirEntry, blockSize int, withTail bool, name string, inode uint32, fileType uint8) ([]dirEntry, bool) {
	need := dirEntrySize(len(name))

	for i, e := range entries {
		if e.inode != 0 {
			continue
		}
		if e.recLen >= need {
			entries[i] = dirEntry{inode: inode, recLen: e.recLen, nameLen: uint8(len(name)), fileType: fileType, name: name}
			return entries, true
		}
	}

	if len(entries) == 0 {
		limit := blockSize
		if withTail {
			limit -= dirTailLen
		}
		if uint16(limit) < need {
			return entries, false
		}
		entries = append(entries, dirEntry{inode: inode, recLen: uint16(limit), nameLen: uint8(len(name)), fileType: fileType, name: name})
		return entries, true
	}

	last := &entries[len(entries)-1]
	lastActualSize := dirEntrySize(len(last.name))
	slack := last.recLen - lastActualSize
	if last.inode != 0 && slack >= need {
		newLast := dirEntry{inode: last.inode, recLen: lastActualSize, nameLen: last.nameLen, fileType: last.fileType, name: last.name}
		newEntry := dirEntry{inode: inode, recLen: slack, nameLen: uint8(len(name)), fileType: fileType, name: name}
		entries[len(entries)-1] = newLast
		entries = append(entries, newEntry)
		return entries, true
	}
	return entries, false
}

// removeEntry tombstones the entry named name by zeroing its inode
// field; its rec_len is left untouched so neighboring records don't
// need to move, matching spec.md's "remove is a tombstone write" edge
// case.
func removeEntry(entries []dirEntry, name string) ([]dirEntry, bool) {
	idx, ok := findEntry(entries, name)
	if !ok {
		return entries, false
	}
	entries[idx].inode = 0
	entries[idx].fileType = fileTypeUnknown
	entries[idx].nameLen = 0
	entries[idx].name = ""
	return entries, true
}

func fileTypeFor(mode uint16) uint8 {
	switch mode & fileTypeMask {
	case fileTypeDir:
		return fileTypeDirType
	case fileTypeRegular:
		return fileTypeRegFile
	default:
		return fileTypeUnknown
	}
}
