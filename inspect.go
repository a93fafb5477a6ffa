package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mkhd/blockdev"
	"mkhd/fat16"
	"mkhd/layout"
	"mkhd/parttable"
)

func newInspectCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Decode the partition tables and FAT16 boot sectors of an image or device (read-only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			var kind *layout.Kind
			if v.GetString("table") != "" {
				kind = &s.Kind
			}
			return runInspect(s, kind, cmd.OutOrStdout())
		},
	}
	addTargetFlags(cmd.Flags())
	cmd.Flags().String("table", "", "partition table: dos|atari (default: detect)")
	return cmd
}

func runInspect(s *settings, kind *layout.Kind, out io.Writer) error {
	s.ImageSize = 0
	t, err := resolveTarget(s, false)
	if err != nil {
		return err
	}
	defer t.Close()
	dev, err := t.Open()
	if err != nil {
		return err
	}
	tbl, err := parttable.Read(dev, kind, s.ByteSwap)
	if err != nil {
		return err
	}

	barHeavy := strings.Repeat("═", lineWidth)
	barLight := strings.Repeat("─", lineWidth)
	fmt.Fprintln(out, barHeavy)
	fmt.Fprintf(out, " %s  %d sectors  %s table", t.Name, t.Sectors, tbl.Kind)
	switch tbl.Kind {
	case layout.DOS:
		fmt.Fprintf(out, "  signature %08X\n", tbl.Signature)
	case layout.Atari:
		fmt.Fprintf(out, "  hd_siz %d\n", tbl.DiskSize)
	}
	fmt.Fprintln(out, barLight)
	for _, sec := range tbl.Sectors {
		check := "55AA"
		if tbl.Kind == layout.Atari {
			sum := parttable.Checksum(sec.Data[:])
			state := "not bootable"
			if sum == parttable.ChecksumBootable {
				state = "BOOTABLE"
			}
			check = fmt.Sprintf("sum %04X %s", sum, state)
		}
		fmt.Fprintf(out, " [%08d] %s\n", sec.LBA, check)
		for _, e := range sec.Entries {
			tag := e.ID
			if tbl.Kind == layout.DOS {
				tag = fmt.Sprintf("%02X", e.Type)
			}
			line := fmt.Sprintf("   %-3s start %-10d length %-10d abs %-10d", tag, e.Start, e.Length, e.Abs)
			if tbl.Kind == layout.DOS {
				line += fmt.Sprintf(" chs %d/%d/%d-%d/%d/%d",
					e.First.Cylinder(), e.First.Head(), e.First.Sector(),
					e.Last.Cylinder(), e.Last.Head(), e.Last.Sector())
			}
			fmt.Fprintln(out, line)
		}
	}
	fmt.Fprintln(out, barLight)

	buf := make([]byte, blockdev.SectorSize)
	for i, p := range tbl.Partitions {
		fmt.Fprintf(out, " P%-2d %v %s: ", i+1, p, human(int64(p.Length)*blockdev.SectorSize))
		if err := blockdev.Read(blockdev.NewSection(dev, p), 0, buf, s.ByteSwap); err != nil {
			if errors.Is(err, blockdev.ErrInvariant) {
				return err
			}
			fmt.Fprintf(out, "unreadable (%v)\n", err)
			continue
		}
		bs, err := fat16.ParseBootSector(buf)
		if err != nil {
			fmt.Fprintf(out, "%v\n", err)
			continue
		}
		fmt.Fprintf(out, "%s %q oem %q serial %08X, %d bytes/sector, %d sectors/cluster, %d sectors, %d sectors/FAT, %d root entries, hidden %d\n",
			bs.FSType, bs.Label, bs.OEM, bs.Serial, bs.BytesPerSector, bs.SectorsPerCluster,
			bs.TotalSectors(), bs.SectorsPerFAT, bs.RootEntries, bs.HiddenSectors)
	}
	fmt.Fprintln(out, barHeavy)
	return nil
}
