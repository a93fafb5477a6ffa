//go:build linux

package blockdev

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

func openDevice(path string, caps Capabilities) (*os.File, func(), error) {
	flag := os.O_RDWR
	if caps.ReadOnly {
		flag = os.O_RDONLY
	} else if caps.SyncWrites {
		flag |= unix.O_SYNC
	}
	f, err := os.OpenFile(path, flag, 0)
	return f, func() {}, err
}

func deviceInfo(f *os.File) (Info, error) {
	fd := int(f.Fd())
	ssz, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		// regular file standing in for a disk
		size, serr := f.Seek(0, io.SeekEnd)
		if serr != nil {
			return Info{}, err
		}
		return Info{Sectors: uint64(size) / SectorSize, SectorSize: SectorSize}, nil
	}
	size, err := unix.IoctlGetInt(fd, unix.BLKGETSIZE64)
	if err != nil {
		return Info{}, err
	}
	return Info{Sectors: uint64(size) / uint64(ssz), SectorSize: ssz}, nil
}
