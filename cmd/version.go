package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/clarityhire/clarity/cmd.version=...".
var version = "unknown"

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version and build revision",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionLine(versionShort, revision()))
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
	rootCmd.AddCommand(versionCmd)
}

func versionLine(short bool, rev string) string {
	if short {
		return version
	}
	if rev == "" {
		return fmt.Sprintf("%s version: %s", app, version)
	}
	return fmt.Sprintf("%s version: %s (%s)", app, version, rev)
}

// revision is the VCS commit stamped by go build, shortened to 12 chars.
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}
