package device

import (
	"errors"
	"fmt"
	"os"
)

// File is a BlockDevice backed by a regular file or a real block special
// device, addressed at a fixed block size starting at byte offset 0.
type File struct {
	f          *os.File
	blockSize  int
	blockCount uint64
	readOnly   bool
}

// OpenFile opens an existing file or block device at pathName; its block
// count is its size divided by blockSize. The file must already exist;
// use CreateFile to make a new image.
func OpenFile(pathName string, blockSize int, readOnly bool) (*File, error) {
	if pathName == "" {
		return nil, errors.New("must pass a device or file path")
	}
	mode := os.O_RDONLY
	if !readOnly {
		mode = os.O_RDWR
	}
	f, err := os.OpenFile(pathName, mode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", pathName, err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat %s: %w", pathName, err)
	}
	size := info.Size()
	if size <= 0 {
		if sz, szErr := blockDeviceSize(f); szErr == nil && sz > 0 {
			size = sz
		}
	}
	return &File{
		f:          f,
		blockSize:  blockSize,
		blockCount: uint64(size) / uint64(blockSize),
		readOnly:   readOnly,
	}, nil
}

// CreateFile creates a new image file at pathName sized to hold blockCount
// blocks of blockSize bytes, failing if the file already exists.
func CreateFile(pathName string, blockSize int, blockCount uint64) (*File, error) {
	if pathName == "" {
		return nil, errors.New("must pass a device or file path")
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", pathName, err)
	}
	if err := f.Truncate(int64(blockCount) * int64(blockSize)); err != nil {
		return nil, fmt.Errorf("could not size %s to %d blocks: %w", pathName, blockCount, err)
	}
	return &File{f: f, blockSize: blockSize, blockCount: blockCount}, nil
}

func (d *File) BlockSize() int     { return d.blockSize }
func (d *File) BlockCount() uint64 { return d.blockCount }
func (d *File) Close() error       { return d.f.Close() }

func (d *File) ReadBlock(id uint64) ([]byte, error) {
	if id >= d.blockCount {
		return nil, fmt.Errorf("read block %d: %w", id, ErrOutOfRange)
	}
	buf := make([]byte, d.blockSize)
	if _, err := d.f.ReadAt(buf, int64(id)*int64(d.blockSize)); err != nil {
		return nil, fmt.Errorf("read block %d: %w", id, err)
	}
	return buf, nil
}

func (d *File) WriteBlock(id uint64, data []byte) error {
	if d.readOnly {
		return fmt.Errorf("write block %d: %w", id, ErrIncorrectOpenMode)
	}
	if id >= d.blockCount {
		return fmt.Errorf("write block %d: %w", id, ErrOutOfRange)
	}
	if len(data) != d.blockSize {
		return fmt.Errorf("write block %d: got %d bytes, want %d", id, len(data), d.blockSize)
	}
	if _, err := d.f.WriteAt(data, int64(id)*int64(d.blockSize)); err != nil {
		return fmt.Errorf("write block %d: %w", id, err)
	}
	return nil
}
