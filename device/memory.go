package device

import "fmt"

// Memory is a BlockDevice backed entirely by a byte slice. It is meant for
// tests and for small images that comfortably fit in memory; it never
// touches the filesystem itself.
type Memory struct {
	blockSize int
	blocks    [][]byte
}

// NewMemory creates a zeroed Memory device of blockCount blocks of
// blockSize bytes each.
func NewMemory(blockSize int, blockCount uint64) *Memory {
	blocks := make([][]byte, blockCount)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &Memory{blockSize: blockSize, blocks: blocks}
}

func (m *Memory) BlockSize() int     { return m.blockSize }
func (m *Memory) BlockCount() uint64 { return uint64(len(m.blocks)) }
func (m *Memory) Flush() error       { return nil }
func (m *Memory) Close() error       { return nil }

func (m *Memory) ReadBlock(id uint64) ([]byte, error) {
	if id >= uint64(len(m.blocks)) {
		return nil, fmt.Errorf("read block %d: %w", id, ErrOutOfRange)
	}
	out := make([]byte, m.blockSize)
	copy(out, m.blocks[id])
	return out, nil
}

func (m *Memory) WriteBlock(id uint64, data []byte) error {
	if id >= uint64(len(m.blocks)) {
		return fmt.Errorf("write block %d: %w", id, ErrOutOfRange)
	}
	if len(data) != m.blockSize {
		return fmt.Errorf("write block %d: got %d bytes, want %d", id, len(data), m.blockSize)
	}
	copy(m.blocks[id], data)
	return nil
}
