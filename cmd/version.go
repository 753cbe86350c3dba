package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print stagecheck build information",
		Long: `Print the stagecheck module version, the VCS revision it was built from
when known, the Go toolchain that built it and the configuration file version
it reads.`,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, line := range versionLines(debug.ReadBuildInfo()) {
				cmd.Println(line)
			}
		},
	}
}

func versionLines(info *debug.BuildInfo, ok bool) []string {
	configLine := fmt.Sprintf("config version\t%d", currentConfigVersion)

	if !ok || info == nil || info.Main.Version == "" {
		return []string{"stagecheck\tunknown", configLine}
	}

	lines := []string{"stagecheck\t" + info.Main.Version}

	var revision, modified string

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			if setting.Value == "true" {
				modified = " (modified)"
			}
		}
	}

	if revision != "" {
		lines = append(lines, "revision\t"+revision+modified)
	}

	return append(lines, "go version\t"+info.GoVersion, configLine)
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
