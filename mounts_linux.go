//go:build linux

package main

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// listMounted reports the mounts backed by a device node.
func listMounted() []mountedVol {
	b, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return nil
	}
	return parseMounts(string(b), func(dir string) int64 {
		var st unix.Statfs_t
		if unix.Statfs(dir, &st) != nil {
			return 0
		}
		return int64(st.Blocks) * int64(st.Bsize)
	})
}

// parseMounts reads the /proc/self/mounts format: source, target, type
// and options separated by spaces, with spaces in paths escaped as \040.
func parseMounts(text string, size func(string) int64) []mountedVol {
	var out []mountedVol
	for _, ln := range strings.Split(text, "\n") {
		f := strings.Fields(ln)
		if len(f) < 3 || !strings.HasPrefix(f[0], "/dev/") {
			continue
		}
		dir := strings.ReplaceAll(f[1], `\040`, " ")
		out = append(out, mountedVol{
			MountPoint: dir,
			Device:     f[0],
			FSType:     f[2],
			SizeBytes:  size(dir),
		})
	}
	return out
}
