//go:build linux

package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseMounts(t *testing.T) {
	text := `proc /proc proc rw,nosuid 0 0
/dev/sda2 / ext4 rw,relatime 0 0
tmpfs /run tmpfs rw 0 0
/dev/sdb1 /media/USB\040STICK vfat rw 0 0
`
	got := parseMounts(text, func(dir string) int64 { return int64(len(dir)) })
	want := []mountedVol{
		{MountPoint: "/", Device: "/dev/sda2", FSType: "ext4", SizeBytes: 1},
		{MountPoint: "/media/USB STICK", Device: "/dev/sdb1", FSType: "vfat", SizeBytes: 16},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseMounts: diff (-want +got):\n%s", diff)
	}
}
