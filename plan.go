package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mkhd/fat16"
	"mkhd/layout"
	"mkhd/parttable"
	"mkhd/prompt"
)

var modeChoices = []layout.Mode{layout.ModeTOS100, layout.ModeTOS104, layout.ModeTOS404}

// askLayout asks for the table kind, the TOS mode, the partition count and
// every size in turn. Each size question is bounded by what the slot
// allows; answering the maximum takes the exact remainder of the slot.
func askLayout(ui prompt.UI, s *settings, capacity uint32) ([]layout.Partition, error) {
	kind, err := ui.AskChoice("Partition table", []string{"DOS (MBR)", "Atari (AHDI)"})
	if err != nil {
		return nil, err
	}
	s.Kind, s.Mode = layout.DOS, layout.ModeDOS
	if kind == 1 {
		s.Kind = layout.Atari
		var names []string
		for _, m := range modeChoices {
			names = append(names, fmt.Sprintf("%s (partitions up to %d MiB)", strings.ToUpper(m.String()), m.CeilingMiB()))
		}
		i, err := ui.AskChoice("TOS compatibility", names)
		if err != nil {
			return nil, err
		}
		s.Mode = modeChoices[i]
	}

	most := (capacity - 1) / (layout.MinPartitionMiB * layout.SectorsPerMiB)
	if most > layout.MaxPartitions {
		most = layout.MaxPartitions
	}
	if most < 1 {
		return nil, layout.ErrDiskTooSmall
	}
	n, err := ui.AskNumber(fmt.Sprintf("Number of partitions (disk has %d MiB)", capacity/layout.SectorsPerMiB), 1, most)
	if err != nil {
		return nil, err
	}
	p, err := layout.NewPlanner(capacity, int(n), s.Kind, s.Mode)
	if err != nil {
		return nil, err
	}
	for !p.Done() {
		lo, hi, err := p.Bounds()
		if err != nil {
			return nil, err
		}
		mib, err := ui.AskNumber(fmt.Sprintf("Size of partition %d in MiB", p.Index()+1), lo, hi)
		if err != nil {
			return nil, err
		}
		if mib == hi {
			mib = layout.Remainder
		}
		if _, err := p.Place(mib); err != nil {
			return nil, err
		}
	}
	return p.Partitions(), nil
}

// chooseLayout plans the partitions from the settings, or by asking when
// the run is interactive.
func chooseLayout(s *settings, capacity uint32, ui prompt.UI) ([]layout.Partition, error) {
	if s.Interactive {
		return askLayout(ui, s, capacity)
	}
	if len(s.Sizes) == 0 {
		return nil, fmt.Errorf("--sizes is required unless --interactive is set")
	}
	return layout.Plan(capacity, s.Kind, s.Mode, s.Sizes)
}

// describe builds the tables and file system geometry for parts without
// writing anything.
func describe(s *settings, parts []layout.Partition, capacity uint32) (*parttable.Table, []fat16.Geometry, error) {
	tbl, err := parttable.Build(parts, capacity, s.Kind, 0)
	if err != nil {
		return nil, nil, err
	}
	var geoms []fat16.Geometry
	for _, p := range tbl.Partitions {
		g, err := fat16.ComputeGeometry(p, s.Mode)
		if err != nil {
			return nil, nil, err
		}
		if err := g.Validate(); err != nil {
			return nil, nil, err
		}
		geoms = append(geoms, g)
	}
	return tbl, geoms, nil
}

const lineWidth = 79

func printPlan(w io.Writer, name string, s *settings, tbl *parttable.Table, geoms []fat16.Geometry) {
	barHeavy := strings.Repeat("═", lineWidth)
	barLight := strings.Repeat("─", lineWidth)

	fmt.Fprintln(w, barHeavy)
	fmt.Fprintf(w, " %s  %s (%d sectors)  table %s  mode %s\n",
		name, human(int64(tbl.DiskSize)*512), tbl.DiskSize, s.Kind, s.Mode)
	fmt.Fprintln(w, barLight)
	fmt.Fprintf(w, " %-3s %-11s %-11s %-7s %-8s %-8s %-9s %-5s\n",
		"#", "Start", "Sectors", "Size", "Cluster", "Sector", "Sect/FAT", "Root")
	for i, g := range geoms {
		p := g.Partition
		fmt.Fprintf(w, " %-3d %-11d %-11d %-7s %-8s %-8d %-9d %-5d\n",
			i+1, p.Start, p.Length, human(int64(p.Length)*512),
			human(int64(g.ClusterSectors)*512), g.BytesPerSector, g.SectorsPerFAT, g.RootStart())
	}
	fmt.Fprintln(w, barLight)
	fmt.Fprintln(w, " TABLE SECTORS")
	for i, sec := range tbl.Sectors {
		what := "master"
		if i > 0 {
			what = "extended"
		}
		var entries []string
		for _, e := range sec.Entries {
			tag := e.ID
			if tbl.Kind == layout.DOS {
				tag = fmt.Sprintf("%02X", e.Type)
			}
			entries = append(entries, fmt.Sprintf("%s@%d+%d", tag, e.Start, e.Length))
		}
		fmt.Fprintf(w, "  [%08d] %-8s %s\n", sec.LBA, what, strings.Join(entries, " "))
	}
	fmt.Fprintln(w, barHeavy)
}

func newPlanCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the partitions, tables and FAT16 geometry without writing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			return runPlan(s, nil, cmd.OutOrStdout())
		},
	}
	addTargetFlags(cmd.Flags())
	addLayoutFlags(cmd.Flags())
	return cmd
}

func runPlan(s *settings, ui prompt.UI, out io.Writer) error {
	t, err := resolveTarget(s, false)
	if err != nil {
		return err
	}
	defer t.Close()
	if ui == nil && s.Interactive {
		rl, err := prompt.NewReadline()
		if err != nil {
			return err
		}
		defer rl.Close()
		ui = rl
	}
	parts, err := chooseLayout(s, t.Sectors, ui)
	if err != nil {
		return err
	}
	tbl, geoms, err := describe(s, parts, t.Sectors)
	if err != nil {
		return err
	}
	printPlan(out, t.Name, s, tbl, geoms)
	return nil
}
