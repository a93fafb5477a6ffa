//go:build windows

package main

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func driveTypeString(t uint32) string {
	switch t {
	case windows.DRIVE_REMOVABLE:
		return "removable"
	case windows.DRIVE_FIXED:
		return "fixed"
	case windows.DRIVE_REMOTE:
		return "network"
	case windows.DRIVE_CDROM:
		return "cdrom"
	case windows.DRIVE_RAMDISK:
		return "ramdisk"
	}
	return "unknown"
}

// listMounted reports every drive letter with a root directory.
func listMounted() []mountedVol {
	var out []mountedVol
	for l := 'A'; l <= 'Z'; l++ {
		root := fmt.Sprintf(`%c:\`, l)
		p, err := windows.UTF16PtrFromString(root)
		if err != nil {
			continue
		}
		t := windows.GetDriveType(p)
		if t == windows.DRIVE_UNKNOWN || t == windows.DRIVE_NO_ROOT_DIR {
			continue
		}
		var total uint64
		_ = windows.GetDiskFreeSpaceEx(p, nil, &total, nil)
		out = append(out, mountedVol{
			MountPoint: root,
			Device:     fmt.Sprintf("%c:", l),
			FSType:     driveTypeString(t),
			SizeBytes:  int64(total),
		})
	}
	return out
}
