package blockdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Image is a Device backed by a disk image file.
type Image struct {
	f       *os.File
	sectors uint64
}

// CreateImage creates (or truncates) the image at path and sizes it to
// size bytes, which must be a multiple of SectorSize.
func CreateImage(path string, size int64) (*Image, error) {
	if size <= 0 || size%SectorSize != 0 {
		return nil, fmt.Errorf("image size %d is not a positive multiple of %d", size, SectorSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	log.Debugf("created image %s, %d sectors", path, size/SectorSize)
	return &Image{f: f, sectors: uint64(size / SectorSize)}, nil
}

// OpenImage opens an existing image. Trailing bytes short of a full sector
// are ignored.
func OpenImage(path string, writable bool) (*Image, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("size of %s: %w", path, err)
	}
	return &Image{f: f, sectors: uint64(size) / SectorSize}, nil
}

func (img *Image) Info() (Info, error) {
	return Info{Sectors: img.sectors, SectorSize: SectorSize}, nil
}

func (img *Image) ReadSector(lba uint64, buf []byte) error {
	_, err := img.f.ReadAt(buf[:SectorSize], int64(lba)*SectorSize)
	return err
}

func (img *Image) WriteSector(lba uint64, buf []byte) error {
	if lba >= img.sectors {
		return fmt.Errorf("sector %d beyond end of image (%d sectors)", lba, img.sectors)
	}
	n, err := img.f.WriteAt(buf[:SectorSize], int64(lba)*SectorSize)
	if err != nil {
		return err
	}
	if n != SectorSize {
		return io.ErrShortWrite
	}
	return nil
}

// Close flushes and closes the image.
func (img *Image) Close() error {
	if err := img.f.Sync(); err != nil {
		img.f.Close()
		return err
	}
	return img.f.Close()
}
