package blockdev

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Capabilities describes how the target accepts writes. It is probed once
// per run and handed to OpenRaw instead of being re-detected per write.
type Capabilities struct {
	// Device is set for block and character devices, as opposed to
	// regular files.
	Device bool
	// SyncWrites opens the target so that every write reaches the medium
	// before returning.
	SyncWrites bool
	// ReadOnly opens the target without write access or volume locks.
	ReadOnly bool
}

// Probe determines the capabilities of the target at path.
func Probe(path string, readOnly bool) (Capabilities, error) {
	if strings.HasPrefix(path, `\\.\`) {
		return Capabilities{Device: true, SyncWrites: !readOnly, ReadOnly: readOnly}, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return Capabilities{}, err
	}
	dev := fi.Mode()&os.ModeDevice != 0
	return Capabilities{Device: dev, SyncWrites: dev && !readOnly, ReadOnly: readOnly}, nil
}

// Raw is a Device backed by a hardware disk.
type Raw struct {
	f        *os.File
	info     Info
	release  func()
	readOnly bool
}

// OpenRaw opens the disk at path for reading and writing. The sector size
// is queried from the hardware; Capacity rejects anything but 512 bytes.
func OpenRaw(path string, caps Capabilities) (*Raw, error) {
	f, release, err := openDevice(path, caps)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}
	info, err := deviceInfo(f)
	if err != nil {
		f.Close()
		release()
		return nil, fmt.Errorf("query %s: %w", path, err)
	}
	log.Debugf("opened %s: %d sectors of %d bytes (sync=%v)", path, info.Sectors, info.SectorSize, caps.SyncWrites)
	return &Raw{f: f, info: info, release: release, readOnly: caps.ReadOnly}, nil
}

func (r *Raw) Info() (Info, error) {
	return r.info, nil
}

func (r *Raw) ReadSector(lba uint64, buf []byte) error {
	_, err := r.f.ReadAt(buf[:SectorSize], int64(lba)*SectorSize)
	return err
}

func (r *Raw) WriteSector(lba uint64, buf []byte) error {
	if r.readOnly {
		return fmt.Errorf("%w: device opened read-only", ErrInvariant)
	}
	n, err := r.f.WriteAt(buf[:SectorSize], int64(lba)*SectorSize)
	if err != nil {
		return err
	}
	if n != SectorSize {
		return io.ErrShortWrite
	}
	return nil
}

// Close flushes the device and releases any volume lock taken on open.
func (r *Raw) Close() error {
	defer r.release()
	if r.readOnly {
		return r.f.Close()
	}
	if err := r.f.Sync(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}
