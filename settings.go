package main

import (
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"mkhd/blockdev"
	"mkhd/layout"
)

// settings is the resolved configuration of one run, merged from flags,
// MKHD_* environment variables and the config file.
type settings struct {
	Kind     layout.Kind
	Mode     layout.Mode
	Count    int
	Sizes    []uint32 // MiB, layout.Remainder for the rest of a slot
	ByteSwap bool

	Image     string
	ImageSize int64
	Device    string

	Force       bool
	Yes         bool
	Interactive bool
	TUI         bool
	DryRun      bool

	Seed  int64
	Label string
	OEM   string
}

func addTargetFlags(fs *pflag.FlagSet) {
	fs.String("image", "", "disk image path")
	fs.String("device", "", "block device path (e.g. /dev/sdb, \\\\.\\PhysicalDrive2) [DANGEROUS]")
	fs.Bool("byteswap", false, "swap every byte pair of each sector, for byte-swapping controllers")
}

func addLayoutFlags(fs *pflag.FlagSet) {
	fs.String("image-size", "", "create the image with this size (e.g. 512m, 2g)")
	fs.String("table", "dos", "partition table: dos|atari")
	fs.String("mode", "", "compatibility: dos|tos100|tos104|tos404 (default dos, tos104 for atari)")
	fs.Int("partitions", 0, "number of partitions, 1-14 (default: number of --sizes)")
	fs.StringSlice("sizes", nil, "partition sizes in MiB; max takes all the slot allows")
	fs.Bool("interactive", false, "ask for the table, mode and sizes")
	fs.Int64("seed", 0, "random seed for disk signature and volume serials (0: time based)")
}

func parseSize(s string) (int64, error) {
	ss := strings.TrimSpace(strings.ToLower(s))
	if ss == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(ss, "k"):
		mult = 1024
		ss = strings.TrimSuffix(ss, "k")
	case strings.HasSuffix(ss, "m"):
		mult = 1024 * 1024
		ss = strings.TrimSuffix(ss, "m")
	case strings.HasSuffix(ss, "g"):
		mult = 1024 * 1024 * 1024
		ss = strings.TrimSuffix(ss, "g")
	case strings.HasSuffix(ss, "b"):
		ss = strings.TrimSuffix(ss, "b")
	}
	v, err := strconv.ParseFloat(ss, 64)
	if err != nil {
		return 0, fmt.Errorf("size %q: %w", s, err)
	}
	return int64(v * float64(mult)), nil
}

func parseMiB(s string) (uint32, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "max", "rest", "0":
		return layout.Remainder, nil
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("partition size %q: want MiB or max", s)
	}
	return uint32(v), nil
}

func human(b int64) string {
	switch {
	case b >= 1024*1024*1024:
		return fmt.Sprintf("%.1fG", float64(b)/(1024*1024*1024))
	case b >= 1024*1024:
		return fmt.Sprintf("%dM", b/(1024*1024))
	case b >= 1024:
		return fmt.Sprintf("%dK", b/1024)
	}
	return fmt.Sprintf("%dB", b)
}

func loadSettings(v *viper.Viper) (*settings, error) {
	s := &settings{
		ByteSwap:    v.GetBool("byteswap"),
		Image:       v.GetString("image"),
		Device:      v.GetString("device"),
		Force:       v.GetBool("force"),
		Yes:         v.GetBool("yes"),
		Interactive: v.GetBool("interactive"),
		TUI:         v.GetBool("tui"),
		DryRun:      v.GetBool("dry-run"),
		Seed:        v.GetInt64("seed"),
		Label:       v.GetString("label"),
		OEM:         v.GetString("oem"),
		Count:       v.GetInt("partitions"),
	}
	if s.Image != "" && s.Device != "" {
		return nil, fmt.Errorf("choose at most one of --image or --device")
	}

	var err error
	table := v.GetString("table")
	if table == "" {
		table = "dos"
	}
	if s.Kind, err = layout.ParseKind(table); err != nil {
		return nil, err
	}
	mode := v.GetString("mode")
	if mode == "" {
		mode = layout.ModeDOS.String()
		if s.Kind == layout.Atari {
			mode = layout.ModeTOS104.String()
		}
	}
	if s.Mode, err = layout.ParseMode(mode); err != nil {
		return nil, err
	}

	for _, str := range v.GetStringSlice("sizes") {
		for _, f := range strings.Split(str, ",") {
			if strings.TrimSpace(f) == "" {
				continue
			}
			mib, err := parseMiB(f)
			if err != nil {
				return nil, err
			}
			s.Sizes = append(s.Sizes, mib)
		}
	}
	if s.Count == 0 {
		s.Count = len(s.Sizes)
	}
	if len(s.Sizes) > 0 && len(s.Sizes) != s.Count {
		return nil, fmt.Errorf("--partitions %d does not match %d --sizes", s.Count, len(s.Sizes))
	}

	if str := v.GetString("image-size"); str != "" {
		if s.ImageSize, err = parseSize(str); err != nil {
			return nil, err
		}
		if s.ImageSize <= 0 || s.ImageSize%blockdev.SectorSize != 0 {
			return nil, fmt.Errorf("image size must be a positive multiple of %d bytes", blockdev.SectorSize)
		}
	}
	log.Debugf("settings: %+v", *s)
	return s, nil
}
