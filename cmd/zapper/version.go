package main

import (
	"fmt"
	"runtime/debug"

	"github.com/narvanalabs/zapper/internal/api"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "zapper: %s\n", api.Version)

		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		fmt.Fprintf(out, "go:     %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Fprintf(out, "commit: %s\n", s.Value)
			case "vcs.time":
				fmt.Fprintf(out, "date:   %s\n", s.Value)
			}
		}
	},
}
