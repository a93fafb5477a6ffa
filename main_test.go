package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"mkhd/blockdev"
	"mkhd/fat16"
	"mkhd/layout"
	"mkhd/parttable"
	"mkhd/prompt"
)

func TestExitCode(t *testing.T) {
	for _, tt := range []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("asking: %w", prompt.ErrCanceled), exitCanceled},
		{errors.New("bad flag"), exitFailure},
		{fmt.Errorf("partition 2: %w", fat16.ErrGeometry), exitInvariant},
		{fmt.Errorf("write: %w", blockdev.ErrIO), exitIO},
	} {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]int64{
		"512m": 512 << 20,
		"2G":   2 << 30,
		"1.5k": 1536,
		"100":  100,
		"64b":  64,
	} {
		got, err := parseSize(in)
		if err != nil {
			t.Errorf("parseSize(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseSize(%q) = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"", "lots", "m"} {
		if _, err := parseSize(in); err == nil {
			t.Errorf("parseSize(%q) succeeded", in)
		}
	}
}

func TestLoadSettings(t *testing.T) {
	v := viper.New()
	v.Set("table", "atari")
	v.Set("sizes", []string{"100,max", "20"})
	v.Set("image-size", "64m")

	s, err := loadSettings(v)
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != layout.Atari || s.Mode != layout.ModeTOS104 {
		t.Errorf("got %s/%s, want atari/tos104", s.Kind, s.Mode)
	}
	if diff := cmp.Diff([]uint32{100, layout.Remainder, 20}, s.Sizes); diff != "" {
		t.Errorf("sizes: diff (-want +got):\n%s", diff)
	}
	if s.Count != 3 {
		t.Errorf("count = %d, want 3", s.Count)
	}
	if s.ImageSize != 64<<20 {
		t.Errorf("image size = %d", s.ImageSize)
	}
}

func TestLoadSettingsErrors(t *testing.T) {
	for name, set := range map[string]map[string]interface{}{
		"image and device": {"image": "a.img", "device": "/dev/sdz"},
		"count mismatch":   {"partitions": 3, "sizes": []string{"10", "20"}},
		"odd image size":   {"image-size": "1000"},
		"bad table":        {"table": "amiga"},
		"bad mode":         {"mode": "tos206"},
		"bad size":         {"sizes": []string{"ten"}},
	} {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for k, val := range set {
				v.Set(k, val)
			}
			if _, err := loadSettings(v); err == nil {
				t.Error("loadSettings succeeded")
			}
		})
	}
}

func TestAskLayout(t *testing.T) {
	ui := &prompt.Scripted{Answers: []string{"2", "2", "3", "20", "30", "max"}}
	s := &settings{}
	const capacity = 100 * layout.SectorsPerMiB

	got, err := askLayout(ui, s, capacity)
	if err != nil {
		t.Fatal(err)
	}
	if s.Kind != layout.Atari || s.Mode != layout.ModeTOS104 {
		t.Errorf("got %s/%s, want atari/tos104", s.Kind, s.Mode)
	}
	want := []layout.Partition{
		{Start: 1, Length: 20 * layout.SectorsPerMiB},
		{Start: 1 + 20*layout.SectorsPerMiB, Length: 30 * layout.SectorsPerMiB},
		{Start: 1 + 50*layout.SectorsPerMiB, Length: capacity - 1 - 50*layout.SectorsPerMiB},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("partitions: diff (-want +got):\n%s", diff)
	}
	if len(ui.Asked) != 6 {
		t.Errorf("asked %d questions, want 6: %q", len(ui.Asked), ui.Asked)
	}
}

func TestAskLayoutOutOfRange(t *testing.T) {
	// 20 MiB leaves room for three 5 MiB partitions at most.
	ui := &prompt.Scripted{Answers: []string{"1", "4"}}
	if _, err := askLayout(ui, &settings{}, 20*layout.SectorsPerMiB); err == nil {
		t.Error("askLayout accepted 4 partitions on a 20 MiB disk")
	}
}

func TestAskLayoutCanceled(t *testing.T) {
	ui := &prompt.Scripted{Answers: []string{"1", "q"}}
	_, err := askLayout(ui, &settings{}, 100*layout.SectorsPerMiB)
	if !errors.Is(err, prompt.ErrCanceled) {
		t.Errorf("err = %v, want ErrCanceled", err)
	}
}

func formatSettings(image string) *settings {
	return &settings{
		Kind:      layout.DOS,
		Mode:      layout.ModeDOS,
		Sizes:     []uint32{10, layout.Remainder},
		Count:     2,
		Image:     image,
		ImageSize: 32 << 20,
		Yes:       true,
		Seed:      42,
		Label:     "test",
		OEM:       fat16.DefaultOEM,
	}
}

func TestRunFormatImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	var out bytes.Buffer
	if err := runFormat(formatSettings(path), nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "2 FAT16 partitions written to "+path) {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	img, err := blockdev.OpenImage(path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()
	tbl, err := parttable.Read(img, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	const capacity = 32 * layout.SectorsPerMiB
	want := []layout.Partition{
		{Start: 1, Length: 10 * layout.SectorsPerMiB},
		{Start: 1 + 10*layout.SectorsPerMiB, Length: capacity - 1 - 10*layout.SectorsPerMiB},
	}
	if diff := cmp.Diff(want, tbl.Partitions); diff != "" {
		t.Errorf("partitions: diff (-want +got):\n%s", diff)
	}
	if tbl.Kind != layout.DOS {
		t.Errorf("kind = %s", tbl.Kind)
	}

	buf := make([]byte, blockdev.SectorSize)
	for i, p := range tbl.Partitions {
		if err := blockdev.Read(blockdev.NewSection(img, p), 0, buf, false); err != nil {
			t.Fatal(err)
		}
		bs, err := fat16.ParseBootSector(buf)
		if err != nil {
			t.Fatalf("partition %d: %v", i+1, err)
		}
		if bs.Label != "TEST" || bs.OEM != fat16.DefaultOEM || bs.HiddenSectors != p.Start {
			t.Errorf("partition %d: label %q oem %q hidden %d", i+1, bs.Label, bs.OEM, bs.HiddenSectors)
		}
		if bs.TotalSectors() != p.Length {
			t.Errorf("partition %d: %d sectors, want %d", i+1, bs.TotalSectors(), p.Length)
		}
	}
}

func TestRunFormatAtariSwapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "atari.img")
	s := formatSettings(path)
	s.Kind, s.Mode = layout.Atari, layout.ModeTOS104
	s.Sizes = []uint32{10, 10, 10, 10, layout.Remainder}
	s.Count = 5
	s.ImageSize = 64 << 20
	s.ByteSwap = true
	if err := runFormat(s, nil, io.Discard); err != nil {
		t.Fatal(err)
	}

	const capacity = 64 * layout.SectorsPerMiB
	parts, err := layout.Plan(capacity, s.Kind, s.Mode, s.Sizes)
	if err != nil {
		t.Fatal(err)
	}
	want, err := parttable.Build(parts, capacity, layout.Atari, 0)
	if err != nil {
		t.Fatal(err)
	}

	img, err := blockdev.OpenImage(path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer img.Close()
	got, err := parttable.Read(img, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != layout.Atari {
		t.Errorf("kind = %s", got.Kind)
	}
	if diff := cmp.Diff(want.Partitions, got.Partitions); diff != "" {
		t.Errorf("partitions: diff (-want +got):\n%s", diff)
	}
}

func TestRunFormatDryRun(t *testing.T) {
	s := formatSettings("")
	s.DryRun = true
	var out bytes.Buffer
	if err := runFormat(s, nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "(dry run, nothing written)") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestRunFormatDeclined(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	s := formatSettings(path)
	s.Yes = false
	ui := &prompt.Scripted{Answers: []string{"n"}}
	err := runFormat(s, ui, io.Discard)
	if !errors.Is(err, prompt.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if !strings.Contains(ui.Asked[0], "32M") {
		t.Errorf("confirmation %q does not name the capacity", ui.Asked[0])
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("image was created after declining: %v", err)
	}
}

func TestDeviceRequiresForce(t *testing.T) {
	_, err := resolveTarget(&settings{Device: "/dev/sdz"}, true)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("err = %v, want --force error", err)
	}
}

func TestRunInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := runFormat(formatSettings(path), nil, io.Discard); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := runInspect(&settings{Image: path}, nil, &out); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"dos table", `FAT16 "TEST"`, "P2 "} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, out.String())
		}
	}
}

func TestPlanCommand(t *testing.T) {
	t.Setenv("MKHD_TABLE", "atari")
	cfg := filepath.Join(t.TempDir(), "mkhd.yaml")
	if err := os.WriteFile(cfg, []byte("mode: tos100\n"), 0644); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd(viper.New())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"plan", "--config", cfg, "--image-size", "64m", "--sizes", "10,max"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"table atari  mode tos100", "TABLE SECTORS", "[00000000] master"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output lacks %q:\n%s", want, out.String())
		}
	}
}

func TestClassify(t *testing.T) {
	for _, tt := range []struct {
		goos, name string
		ok, whole  bool
	}{
		{"linux", "sda", true, true},
		{"linux", "sda1", true, false},
		{"linux", "nvme0n1", true, true},
		{"linux", "nvme0n1p2", true, false},
		{"linux", "mmcblk0", true, true},
		{"linux", "mmcblk0p1", true, false},
		{"linux", "loop3", true, false},
		{"linux", "tty0", false, false},
		{"darwin", "disk2", true, true},
		{"darwin", "rdisk2", true, true},
		{"darwin", "disk2s1", true, false},
		{"darwin", "null", false, false},
	} {
		c, ok := classify(tt.goos, tt.name)
		if ok != tt.ok || c.Whole != tt.whole {
			t.Errorf("classify(%s, %s) = %+v, %v; want whole %v, ok %v", tt.goos, tt.name, c, ok, tt.whole, tt.ok)
		}
	}
}

func TestRunDeviceList(t *testing.T) {
	found := []candidate{
		{Path: "/dev/sdb", Whole: true},
		{Path: "/dev/sdb1", Reason: "partition"},
	}
	fake := func(string) details {
		return details{Type: "Removable Disk", Serial: "ABC", Size: "1.9G", Table: "atari"}
	}
	mounts := []mountedVol{{MountPoint: "/media/x", Device: "/dev/sdb1", FSType: "vfat", SizeBytes: 1 << 20}}

	var short, long bytes.Buffer
	runDeviceList(&short, found, false, fake, nil)
	runDeviceList(&long, found, true, fake, mounts)

	if !strings.Contains(short.String(), "/dev/sdb ") || strings.Contains(short.String(), "/dev/sdb1") {
		t.Errorf("short listing:\n%s", short.String())
	}
	for _, want := range []string{"/dev/sdb1  (partition)", "atari", "/media/x"} {
		if !strings.Contains(long.String(), want) {
			t.Errorf("listing lacks %q:\n%s", want, long.String())
		}
	}
}

// TestPlannedPartitionsFormat checks that every plan the planner accepts,
// after the extended chain takes its sectors, yields a valid FAT16
// geometry with the smallest cluster that fits.
func TestPlannedPartitionsFormat(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	modes := []layout.Mode{layout.ModeDOS, layout.ModeTOS100, layout.ModeTOS104, layout.ModeTOS404}
	const minimum = layout.MinPartitionMiB * layout.SectorsPerMiB
	for i := 0; i < 600; i++ {
		mode := modes[rnd.Intn(len(modes))]
		kind := layout.DOS
		if mode.Atari() && rnd.Intn(4) > 0 {
			kind = layout.Atari
		}
		n := rnd.Intn(layout.MaxPartitions) + 1
		ceiling := mode.CeilingMiB() * layout.SectorsPerMiB

		// Either any capacity with mixed requests, or one that leaves
		// the first partition just short of the ceiling with every
		// size taken as the rest of its slot.
		nearCeiling := rnd.Intn(2) == 0
		var capacity uint32
		if nearCeiling {
			capacity = 1 + ceiling - uint32(rnd.Intn(256)) + uint32(n-1)*minimum
		} else {
			capacity = uint32(rnd.Int63n(int64(n)*int64(ceiling))) + 1
		}

		p, err := layout.NewPlanner(capacity, n, kind, mode)
		if errors.Is(err, layout.ErrDiskTooSmall) {
			continue
		}
		if err != nil {
			t.Fatalf("NewPlanner(%d, %d, %s, %s): %v", capacity, n, kind, mode, err)
		}
		for !p.Done() {
			lo, hi, err := p.Bounds()
			if err != nil {
				t.Fatal(err)
			}
			req := uint32(layout.Remainder)
			if !nearCeiling && rnd.Intn(3) > 0 {
				req = lo + uint32(rnd.Int63n(int64(hi-lo)+1))
			}
			if _, err := p.Place(req); err != nil {
				t.Fatalf("Place(%d) within [%d, %d]: %v", req, lo, hi, err)
			}
		}

		s := &settings{Kind: kind, Mode: mode}
		_, geoms, err := describe(s, p.Partitions(), capacity)
		if err != nil {
			t.Fatalf("%d sectors, %d partitions, %s/%s: %v\nplan %v", capacity, n, kind, mode, err, p.Partitions())
		}
		for j, g := range geoms {
			if g.Clusters() > mode.MaxClusters() {
				t.Errorf("partition %d %v: %d clusters", j+1, g.Partition, g.Clusters())
			}
			if g.ClusterSectors > 2 && g.Partition.Length/(g.ClusterSectors/2) <= mode.MaxClusters() {
				t.Errorf("partition %d %v: %d sector clusters, half would fit", j+1, g.Partition, g.ClusterSectors)
			}
		}
	}
}
