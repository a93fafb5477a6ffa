//go:build !linux && !darwin && !windows

package blockdev

import (
	"io"
	"os"
)

func openDevice(path string, caps Capabilities) (*os.File, func(), error) {
	flag := os.O_RDWR
	if caps.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	return f, func() {}, err
}

// deviceInfo assumes 512-byte sectors where no ioctl is known.
func deviceInfo(f *os.File) (Info, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return Info{}, err
	}
	return Info{Sectors: uint64(size) / SectorSize, SectorSize: SectorSize}, nil
}
