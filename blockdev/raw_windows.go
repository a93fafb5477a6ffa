//go:build windows

package blockdev

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

const (
	fsctlLockVolume        = 0x90018
	fsctlDismountVolume    = 0x90020
	fsctlUnlockVolume      = 0x9001c
	fileFlagWriteThrough   = 0x80000000
	ioctlDiskGetGeometry   = 0x70000
	ioctlDiskGetLengthInfo = 0x7405c
)

type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

func ioctl(h windows.Handle, code uint32, out unsafe.Pointer, size uint32) error {
	var returned uint32
	return windows.DeviceIoControl(h, code, nil, 0, (*byte)(out), size, &returned, nil)
}

// lockVolume locks and dismounts the volume behind a drive letter path such
// as \\.\E: so raw writes are not clobbered by the file system. The returned
// function unlocks it again. PhysicalDrive paths need no lock.
func lockVolume(path string) (func(), error) {
	noop := func() {}
	if len(path) < 6 || !strings.HasPrefix(path, `\\.\`) {
		return noop, nil
	}
	letter := strings.ToUpper(path[4:5])
	if letter < "A" || letter > "Z" || path[5] != ':' {
		return noop, nil
	}
	vol := `\\.\` + letter + `:`
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(vol),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return noop, fmt.Errorf("cannot open volume %s (may need admin privileges): %w", vol, err)
	}
	if err := ioctl(h, fsctlLockVolume, nil, 0); err != nil {
		windows.CloseHandle(h)
		if err == windows.ERROR_NOT_SUPPORTED {
			return noop, nil
		}
		return noop, fmt.Errorf("cannot lock volume %s (close all programs using it): %w", vol, err)
	}
	if err := ioctl(h, fsctlDismountVolume, nil, 0); err != nil {
		ioctl(h, fsctlUnlockVolume, nil, 0)
		windows.CloseHandle(h)
		if err != windows.ERROR_NOT_SUPPORTED && err != windows.ERROR_NOT_LOCKED {
			return noop, fmt.Errorf("cannot dismount volume %s: %w", vol, err)
		}
		return noop, nil
	}
	log.Debugf("locked and dismounted %s", vol)
	return func() {
		ioctl(h, fsctlUnlockVolume, nil, 0)
		windows.CloseHandle(h)
	}, nil
}

func openDevice(path string, caps Capabilities) (*os.File, func(), error) {
	if caps.ReadOnly {
		h, err := windows.CreateFile(
			windows.StringToUTF16Ptr(path),
			windows.GENERIC_READ,
			windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
			nil,
			windows.OPEN_EXISTING,
			0,
			0,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open device %s: %w", path, err)
		}
		return os.NewFile(uintptr(h), path), func() {}, nil
	}
	release, err := lockVolume(path)
	if err != nil {
		return nil, nil, err
	}
	var flags uint32
	if caps.SyncWrites {
		flags = fileFlagWriteThrough
	}
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		flags,
		0,
	)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("cannot open device %s: %w (run as administrator)", path, err)
	}
	return os.NewFile(uintptr(h), path), release, nil
}

func deviceInfo(f *os.File) (Info, error) {
	h := windows.Handle(f.Fd())
	var geo diskGeometry
	if err := ioctl(h, ioctlDiskGetGeometry, unsafe.Pointer(&geo), uint32(unsafe.Sizeof(geo))); err != nil {
		fi, serr := f.Stat()
		if serr != nil {
			return Info{}, err
		}
		return Info{Sectors: uint64(fi.Size()) / SectorSize, SectorSize: SectorSize}, nil
	}
	var length int64
	if err := ioctl(h, ioctlDiskGetLengthInfo, unsafe.Pointer(&length), uint32(unsafe.Sizeof(length))); err != nil {
		return Info{}, err
	}
	return Info{Sectors: uint64(length) / uint64(geo.BytesPerSector), SectorSize: int(geo.BytesPerSector)}, nil
}
