package main

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"mkhd/blockdev"
	"mkhd/layout"
)

// target is the disk a command works on. Its capacity is known before
// anything is opened for writing, so the plan can be confirmed first.
type target struct {
	Name    string
	Sectors uint32

	open   func() (blockdev.Device, error)
	closer func() error
}

// Open returns the device to write to.
func (t *target) Open() (blockdev.Device, error) {
	return t.open()
}

func (t *target) Close() error {
	if t.closer == nil {
		return nil
	}
	err := t.closer()
	t.closer = nil
	return err
}

func clamp(name string, sectors uint64) uint32 {
	c, clamped := layout.ClampCapacity(sectors)
	if clamped {
		log.Warnf("%s has %d sectors; only the first %d are addressable and will be used", name, sectors, c)
	}
	return c
}

// capacityOf checks the sector size of d and returns its capacity.
func capacityOf(d blockdev.Device, name string) (uint32, error) {
	n, err := blockdev.Capacity(d)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return clamp(name, n), nil
}

// resolveTarget finds the capacity of the target described by s. With
// write set the returned target opens it for writing, or an in-memory copy
// for dry runs.
func resolveTarget(s *settings, write bool) (*target, error) {
	switch {
	case s.Device != "":
		if write && !s.DryRun && !s.Force {
			return nil, fmt.Errorf("--device requires --force")
		}
		caps, err := blockdev.Probe(s.Device, !write || s.DryRun)
		if err != nil {
			return nil, err
		}
		raw, err := blockdev.OpenRaw(s.Device, caps)
		if err != nil {
			return nil, err
		}
		sectors, err := capacityOf(raw, s.Device)
		if err != nil {
			raw.Close()
			return nil, err
		}
		t := &target{Name: s.Device, Sectors: sectors, closer: raw.Close}
		t.open = func() (blockdev.Device, error) { return raw, nil }
		if s.DryRun {
			t.open = memOpener(sectors)
		}
		return t, nil

	case s.Image != "" && s.ImageSize > 0:
		sectors := clamp(s.Image, uint64(s.ImageSize/blockdev.SectorSize))
		t := &target{Name: s.Image, Sectors: sectors}
		t.open = func() (blockdev.Device, error) {
			if s.DryRun {
				return blockdev.NewMem(uint64(sectors)), nil
			}
			img, err := blockdev.CreateImage(s.Image, s.ImageSize)
			if err != nil {
				return nil, err
			}
			t.closer = img.Close
			return img, nil
		}
		return t, nil

	case s.Image != "":
		img, err := blockdev.OpenImage(s.Image, write && !s.DryRun)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist; pass --image-size to create it", s.Image)
		}
		if err != nil {
			return nil, err
		}
		sectors, err := capacityOf(img, s.Image)
		if err != nil {
			img.Close()
			return nil, err
		}
		t := &target{Name: s.Image, Sectors: sectors, closer: img.Close}
		t.open = func() (blockdev.Device, error) { return img, nil }
		if s.DryRun {
			t.open = memOpener(sectors)
		}
		return t, nil

	case s.ImageSize > 0 && (!write || s.DryRun):
		sectors := clamp("image", uint64(s.ImageSize/blockdev.SectorSize))
		return &target{Name: "memory", Sectors: sectors, open: memOpener(sectors)}, nil
	}
	return nil, fmt.Errorf("choose --image or --device")
}

func memOpener(sectors uint32) func() (blockdev.Device, error) {
	return func() (blockdev.Device, error) {
		return blockdev.NewMem(uint64(sectors)), nil
	}
}
