package main

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mkhd/blockdev"
	"mkhd/fat16"
	"mkhd/layout"
	"mkhd/parttable"
	"mkhd/prompt"
	"mkhd/retrodfrg"
)

// progress follows the phases of a write: "Table", then "P1".."Pn".
type progress interface {
	Begin(phase string)
	Done(phase string)
	Fail(err error)
}

// logProgress reports phases through the log.
type logProgress struct{}

func (logProgress) Begin(phase string) { log.Infof("writing %s", phase) }
func (logProgress) Done(phase string)  { log.Debugf("%s done", phase) }
func (logProgress) Fail(err error)     {}

func phaseNames(n int) []string {
	names := []string{"Table"}
	for i := 1; i <= n; i++ {
		names = append(names, fmt.Sprintf("P%d", i))
	}
	return names
}

// writeDisk writes the partition tables, then formats every partition.
// It stops at the first failure; nothing already written is undone.
func writeDisk(d blockdev.Device, parts []layout.Partition, capacity uint32, s *settings, rnd layout.Rand, p progress) ([]fat16.Geometry, error) {
	p.Begin("Table")
	usable, err := parttable.Write(d, parts, capacity, s.Kind, parttable.Options{
		ByteSwap:  s.ByteSwap,
		Signature: rnd.Uint32(),
	})
	if err != nil {
		p.Fail(err)
		return nil, err
	}
	p.Done("Table")

	var geoms []fat16.Geometry
	for i, part := range usable {
		name := fmt.Sprintf("P%d", i+1)
		p.Begin(name)
		g, err := fat16.Format(d, part, s.Mode, fat16.Options{
			ByteSwap: s.ByteSwap,
			OEM:      s.OEM,
			Label:    s.Label,
			Serial:   rnd.Uint32(),
		})
		if err != nil {
			err = fmt.Errorf("partition %d: %w", i+1, err)
			p.Fail(err)
			return geoms, err
		}
		geoms = append(geoms, g)
		p.Done(name)
	}
	return geoms, nil
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func newFormatCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Partition an image or block device and format every partition as FAT16",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			var ui prompt.UI
			if s.Interactive || !s.Yes {
				rl, err := prompt.NewReadline()
				if err != nil {
					return err
				}
				defer rl.Close()
				ui = rl
			}
			return runFormat(s, ui, cmd.OutOrStdout())
		},
	}
	fs := cmd.Flags()
	addTargetFlags(fs)
	addLayoutFlags(fs)
	fs.Bool("force", false, "required with --device")
	fs.BoolP("yes", "y", false, "do not ask for confirmation")
	fs.Bool("dry-run", false, "write into memory instead of the target")
	fs.Bool("tui", false, "full-screen progress display")
	fs.String("label", fat16.DefaultLabel, "volume label (<=11 ASCII)")
	fs.String("oem", fat16.DefaultOEM, "OEM string (<=8 ASCII)")
	return cmd
}

func runFormat(s *settings, ui prompt.UI, out io.Writer) error {
	t, err := resolveTarget(s, true)
	if err != nil {
		return err
	}
	defer t.Close()

	parts, err := chooseLayout(s, t.Sectors, ui)
	if err != nil {
		return err
	}
	tbl, geoms, err := describe(s, parts, t.Sectors)
	if err != nil {
		return err
	}
	printPlan(out, t.Name, s, tbl, geoms)

	if !s.Yes {
		q := fmt.Sprintf("Write %d partitions to %s (%s)? Everything on it will be lost",
			len(parts), t.Name, human(int64(t.Sectors)*blockdev.SectorSize))
		if s.DryRun {
			q = fmt.Sprintf("Run a dry run of %d partitions on %s?", len(parts), t.Name)
		}
		ok, err := ui.Confirm(q)
		if err != nil {
			return err
		}
		if !ok {
			return prompt.ErrCanceled
		}
	}

	// The progress screen reads the terminal itself.
	if c, ok := ui.(io.Closer); ok && s.TUI {
		c.Close()
	}

	dev, err := t.Open()
	if err != nil {
		return err
	}
	start := time.Now()
	rnd := newRand(s.Seed)
	if s.TUI {
		geoms, err = writeWithScreen(dev, parts, t, s, rnd)
	} else {
		geoms, err = writeDisk(dev, parts, t.Sectors, s, rnd, logProgress{})
	}
	if err != nil {
		return err
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", blockdev.ErrIO, t.Name, err)
	}
	fmt.Fprintf(out, "\n%d FAT16 partitions written to %s in %s", len(geoms), t.Name, time.Since(start).Round(time.Millisecond))
	if s.DryRun {
		fmt.Fprint(out, " (dry run, nothing written)")
	}
	fmt.Fprintln(out)
	return nil
}

// writeWithScreen runs writeDisk under the full-screen progress display.
// The log is muted while the screen is up.
func writeWithScreen(dev blockdev.Device, parts []layout.Partition, t *target, s *settings, rnd layout.Rand) ([]fat16.Geometry, error) {
	title := fmt.Sprintf("MKHD  %s  %s/%s", t.Name, s.Kind, s.Mode)
	screen, err := retrodfrg.NewUI(retrodfrg.NewBoard(title, uint64(t.Sectors), phaseNames(len(parts))))
	if err != nil {
		return nil, fmt.Errorf("ui init: %w", err)
	}
	logOut := log.StandardLogger().Out
	log.SetOutput(io.Discard)
	defer func() {
		screen.Close()
		log.SetOutput(logOut)
	}()

	geoms, err := writeDisk(screen.Watch(dev), parts, t.Sectors, s, rnd, screen)
	msg := "Done. Press any key to exit"
	if err != nil {
		msg = "Failed. Press any key to exit"
	}
	screen.WaitKey(msg, 0)
	return geoms, err
}
