// mkhd partitions a hard disk or disk image with a DOS or Atari (AHDI)
// partition table and writes an empty FAT16 file system into every
// partition.
//
// Build:
//
//	go build -o mkhd .
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mkhd/blockdev"
	"mkhd/prompt"
)

// Exit codes.
const (
	exitCanceled  = 1
	exitFailure   = 2
	exitInvariant = 3
	exitIO        = 4
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, prompt.ErrCanceled):
		return exitCanceled
	case errors.Is(err, blockdev.ErrInvariant):
		return exitInvariant
	case errors.Is(err, blockdev.ErrIO):
		return exitIO
	}
	return exitFailure
}

func must(err error) {
	if err == nil {
		return
	}
	code := exitCode(err)
	switch code {
	case exitCanceled:
		fmt.Fprintln(os.Stderr, "canceled, nothing was written")
	case exitInvariant:
		log.Errorf("internal error: %v", err)
	case exitIO:
		log.Errorf("%v", err)
		log.Warn("writing stopped part way; the disk may now be in an inconsistent state")
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(code)
}

func setupLogging(v *viper.Viper, out io.Writer) error {
	level, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(out)
	if v.GetBool("log-json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}
	return nil
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "mkhd",
		Short: "Hard disk partitioner and FAT16 formatter for DOS and Atari",
		Long: "Create a DOS (MBR) or Atari (AHDI) partition table with up to 14 partitions\n" +
			"on a disk image or block device and format every partition as FAT16.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			v.SetEnvPrefix("MKHD")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if cfg := v.GetString("config"); cfg != "" {
				v.SetConfigFile(cfg)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("config %s: %w", cfg, err)
				}
			}
			return setupLogging(v, cmd.ErrOrStderr())
		},
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, toml, json) holding flag values")
	pf.String("log-level", "info", "trace|debug|info|warn|error")
	pf.Bool("log-json", false, "log as JSON")

	root.AddCommand(newFormatCmd(v))
	root.AddCommand(newPlanCmd(v))
	root.AddCommand(newInspectCmd(v))
	root.AddCommand(newDeviceCmd())
	return root
}

func main() {
	must(newRootCmd(viper.New()).Execute())
}
