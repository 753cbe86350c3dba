package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate a default stagecheck.yaml configuration file",
		Long: `Create stagecheck.yaml in the current working directory with the effective
settings, ready for editing. The file covers:

  build.command                    build invocation run in each working copy
  build.patterns.<kind>            regexes with a (?P<files>...) group that pick
                                   compiled kotlin/java files out of the output
  project.src_dir                  source root fixtures are seeded into
  project.template                 scaffold directory copied before seeding
  fixtures.source_extensions       extensions counted as sources
  fixtures.unsupported_directives  directives that make a project skip
  run.*                            parallelism, comparison mode, timeout, workdir
  log.*                            rotating log file settings

An existing file is never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			err := viper.SafeWriteConfigAs(targetPath)
			if err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			cmd.Printf("Wrote %s\n", targetPath)

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
}
