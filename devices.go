package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mkhd/blockdev"
	"mkhd/parttable"
)

// candidate is a disk found by discovery. Only whole disks may be
// passed to --device.
type candidate struct {
	Path   string
	Whole  bool
	Reason string
}

// mountedVol is a mounted file system reported by the OS.
type mountedVol struct {
	MountPoint string
	Device     string
	FSType     string
	SizeBytes  int64
}

var (
	linuxWhole = regexp.MustCompile(`^((sd|vd|hd|xvd)[a-z]+|nvme[0-9]+n[0-9]+|mmcblk[0-9]+)$`)
	linuxPart  = regexp.MustCompile(`^((sd|vd|hd|xvd)[a-z]+[0-9]+|nvme[0-9]+n[0-9]+p[0-9]+|mmcblk[0-9]+p[0-9]+)$`)
	darwinDisk = regexp.MustCompile(`^r?disk[0-9]+(s[0-9]+)?$`)
)

// classify sorts a device node name of the given OS into whole disks,
// partitions and other nodes worth mentioning. ok is false for names
// that are not disks at all.
func classify(goos, name string) (c candidate, ok bool) {
	switch goos {
	case "linux":
		c.Path = filepath.Join("/dev", name)
		switch {
		case linuxWhole.MatchString(name):
			c.Whole = true
		case linuxPart.MatchString(name):
			c.Reason = "partition"
		case strings.HasPrefix(name, "loop") && name != "loop-control":
			c.Reason = "loop device"
		default:
			return c, false
		}
		return c, true
	case "darwin":
		m := darwinDisk.FindStringSubmatch(name)
		if m == nil {
			return c, false
		}
		c.Path = filepath.Join("/dev", name)
		c.Whole = m[1] == ""
		if !c.Whole {
			c.Reason = "partition"
		}
		return c, true
	}
	return c, false
}

func discover() ([]candidate, error) {
	if runtime.GOOS == "windows" {
		var out []candidate
		for i := 0; i < 32; i++ {
			path := fmt.Sprintf(`\\.\PhysicalDrive%d`, i)
			f, err := os.Open(path)
			if err != nil {
				if i < 8 {
					out = append(out, candidate{Path: path, Reason: "not accessible"})
				}
				continue
			}
			f.Close()
			out = append(out, candidate{Path: path, Whole: true})
		}
		return out, nil
	}
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("device discovery is not supported on %s", runtime.GOOS)
	}
	entries, err := os.ReadDir("/dev")
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, e := range entries {
		if c, ok := classify(runtime.GOOS, e.Name()); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// details describes a whole disk: its kind, serial, size and the
// partition table already on it. Unreadable disks report "-" fields.
type details struct {
	Type   string
	Serial string
	Size   string
	Table  string
}

func describeDisk(path string) details {
	d := details{Type: "Disk", Serial: "-", Size: "-", Table: "-"}
	switch runtime.GOOS {
	case "linux":
		sys := filepath.Join("/sys/block", filepath.Base(path))
		if b, err := os.ReadFile(filepath.Join(sys, "removable")); err == nil {
			d.Type = "Fixed Disk"
			if strings.TrimSpace(string(b)) == "1" {
				d.Type = "Removable Disk"
			}
		}
		if b, err := os.ReadFile(filepath.Join(sys, "device", "serial")); err == nil {
			d.Serial = strings.TrimSpace(string(b))
		}
	case "windows":
		d.Type = "PhysicalDrive"
	}

	caps, err := blockdev.Probe(path, true)
	if err != nil {
		log.Debugf("%s: %v", path, err)
		return d
	}
	raw, err := blockdev.OpenRaw(path, caps)
	if err != nil {
		log.Debugf("%s: %v", path, err)
		return d
	}
	defer raw.Close()
	if n, err := blockdev.Capacity(raw); err == nil {
		d.Size = human(int64(n) * blockdev.SectorSize)
	} else {
		log.Debugf("%s: %v", path, err)
	}
	buf := make([]byte, blockdev.SectorSize)
	if err := raw.ReadSector(0, buf); err == nil {
		d.Table = "none"
		if k, err := parttable.Detect(buf); err == nil {
			d.Table = k.String()
		}
	}
	return d
}

func printMounts(w io.Writer, mvs []mountedVol) {
	if len(mvs) == 0 {
		return
	}
	fmt.Fprintln(w, "Mounted volumes:")
	fmt.Fprintf(w, "  %-24s  %-14s  %-18s  %-8s\n", "Mount", "FS", "Device", "Size")
	for _, m := range mvs {
		fmt.Fprintf(w, "  %-24s  %-14s  %-18s  %-8s\n", m.MountPoint, m.FSType, m.Device, human(m.SizeBytes))
	}
	fmt.Fprintln(w)
}

func runDeviceList(w io.Writer, found []candidate, all bool, describe func(string) details, mounts []mountedVol) {
	fmt.Fprintf(w, "OS: %s\n", runtime.GOOS)
	fmt.Fprintln(w, "This is a read-only listing. Nothing is written.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Whole disks (usable with --device):")
	fmt.Fprintf(w, "  %-20s  %-14s  %-20s  %-8s  %-6s\n", "Path", "Type", "Serial", "Size", "Table")
	none := true
	for _, c := range found {
		if !c.Whole {
			continue
		}
		d := describe(c.Path)
		fmt.Fprintf(w, "  %-20s  %-14s  %-20s  %-8s  %-6s\n", c.Path, d.Type, d.Serial, d.Size, d.Table)
		none = false
	}
	if none {
		fmt.Fprintln(w, "  <none detected>")
	}
	fmt.Fprintln(w)
	if all {
		fmt.Fprintln(w, "Not usable with --device:")
		for _, c := range found {
			if !c.Whole {
				fmt.Fprintf(w, "  %s  (%s)\n", c.Path, c.Reason)
			}
		}
		fmt.Fprintln(w)
	}
	printMounts(w, mounts)
}

func newDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Device utilities (read-only)",
	}
	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List disks that can be partitioned, and mounted volumes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			found, err := discover()
			if err != nil {
				return err
			}
			runDeviceList(cmd.OutOrStdout(), found, all, describeDisk, listMounted())
			return nil
		},
	}
	list.Flags().BoolVar(&all, "all", false, "also list partitions and other devices that cannot be used")
	cmd.AddCommand(list)
	return cmd
}
