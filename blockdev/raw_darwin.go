//go:build darwin

package blockdev

import (
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	dkiocGetBlockSize  = 0x40046418 // _IOR('d', 24, uint32)
	dkiocGetBlockCount = 0x40086419 // _IOR('d', 25, uint64)
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
	bsz, err := unix.IoctlGetUint32(fd, dkiocGetBlockSize)
	if err != nil {
		size, serr := f.Seek(0, io.SeekEnd)
		if serr != nil {
			return Info{}, err
		}
		return Info{Sectors: uint64(size) / SectorSize, SectorSize: SectorSize}, nil
	}
	var count uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), dkiocGetBlockCount, uintptr(unsafe.Pointer(&count))); errno != 0 {
		return Info{}, errno
	}
	return Info{Sectors: count, SectorSize: int(bsz)}, nil
}
