// Package device defines the block-device capability consumed by the ext4
// filesystem core, and provides the concrete backings (in-memory and
// file/block-special-device) used to satisfy it.
//
// The ext4 core never reads or writes anything except whole, fixed-size
// blocks at a block-aligned offset; it does not know or care whether the
// bytes underneath come from a regular file, a loopback device, or memory.
package device

import "errors"

var (
	// ErrIncorrectOpenMode is returned when a write is attempted against a
	// device opened read-only.
	ErrIncorrectOpenMode = errors.New("device not open for write")
	// ErrOutOfRange is returned when a read or write addresses a block
	// beyond the device's block count.
	ErrOutOfRange = errors.New("block index out of range")
)

// BlockDevice is the external collaborator described in the ext4 core
// specification: synchronous, fixed-size random-access block I/O. All
// blocks are BlockSize bytes; PBlockId 0 is a valid, addressable block
// (the caller, not the device, reserves block 0 for boot/padding use).
type BlockDevice interface {
	// BlockSize returns the fixed block size this device serves, in bytes.
	BlockSize() int
	// BlockCount returns the total number of addressable blocks.
	BlockCount() uint64
	// ReadBlock reads exactly BlockSize() bytes starting at block id.
	ReadBlock(id uint64) ([]byte, error)
	// WriteBlock writes exactly BlockSize() bytes starting at block id.
	// len(data) must equal BlockSize().
	WriteBlock(id uint64, data []byte) error
	// Flush forces any buffered writes to reach durable storage. A no-op
	// is a valid implementation for devices with no write-back cache.
	Flush() error
	// Close releases any resources held by the device.
	Close() error
}
