package ext4

import (
	"encoding/binary"
	"hash/crc32"
)

// crc32cTable is the Castagnoli polynomial (0x1EDC6F41) table used for
// every keyed metadata checksum in this package. hash/crc32's Checksum and
// the running hash.Hash32 it returns both use an initial value of
// 0xFFFFFFFF with a matching final complement, exactly the "keyed CRC32C"
// construction spec.md §4.1 calls for. This is the same approach the
// teacher corpus itself reaches for (crc32.MakeTable(crc32.Castagnoli) +
// crc32.Checksum) rather than a dedicated third-party crc32c package —
// see DESIGN.md.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// crc32cSeeded runs a single CRC32C over the concatenation of parts, in
// order. Every keyed checksum in this package is computed this way: the
// filesystem UUID, then identifying fields (inode id, generation, group
// index, ...), then the payload bytes with their own checksum field(s)
// zeroed.
func crc32cSeeded(parts ...[]byte) uint32 {
	h := crc32.New(crc32cTable)
	for _, p := range parts {
		h.Write(p) //nolint:errcheck // hash.Hash.Write never fails
	}
	return h.Sum32()
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
