package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stagecheck.dev/pkg/stagecheck/internal/domain"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

var runParallelFlag int
var runShardFlag string
var runWeakFlag bool
var runBuildTimeoutFlag int64
var runBuildCommandFlag []string
var runWorkdirFlag string
var runKeepFlag bool
var runTemplateFlag string

// runCmd represents the run command.
var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run fixture projects",
		Long:  runLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := currentWorkflow()
			if err != nil {
				return err
			}

			shardIndex, totalShards := parseShardFlag(runShardFlag)
			threads := viper.GetInt(runParallelConfigKey)

			if threads < 1 {
				return fmt.Errorf("--%s must be at least 1, got %d", runParallelFlagName, threads)
			}

			command := viper.GetStringSlice(buildCommandKey)
			if len(command) == 0 {
				return fmt.Errorf("%s must not be empty", buildCommandKey)
			}

			return wf.Test(cmd.Context(), domain.TestArgs{
				Paths:           parsePaths(args),
				Exclude:         viper.GetStringSlice(excludeConfigKey),
				Reports:         m.Path(viper.GetString(outputFlagName)),
				Threads:         uint(threads),
				ShardIndex:      uint(shardIndex),
				TotalShardCount: uint(totalShards),
				Weak:            viper.GetBool(runWeakConfigKey),
				Build: m.BuildOptions{
					Command: command,
					Timeout: time.Duration(viper.GetInt64(buildTimeoutKey)) * time.Second,
				},
				SourceDir: viper.GetString(sourceDirKey),
				Template:  m.Path(viper.GetString(templateKey)),
				WorkDir:   m.Path(viper.GetString(workdirConfigKey)),
				Keep:      viper.GetBool(keepConfigKey),
			})
		},
	}

	configureRunFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func configureRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&runParallelFlag, runParallelFlagName, "p", defaultRunParallel, "number of fixture projects run in parallel")
	bindFlagToConfig(cmd.Flags().Lookup(runParallelFlagName), runParallelConfigKey)

	cmd.Flags().StringVarP(&runShardFlag, "shard", "s", "", "shard index and total shard count in the format INDEX/TOTAL (e.g., 0/3)")

	cmd.Flags().BoolVar(&runWeakFlag, runWeakFlagName, false, "accept builds that compile more files than expected")
	bindFlagToConfig(cmd.Flags().Lookup(runWeakFlagName), runWeakConfigKey)

	cmd.Flags().Int64Var(&runBuildTimeoutFlag, buildTimeoutFlagName, int64(defaultBuildTimeout.Seconds()), "timeout in seconds for a single build")
	bindFlagToConfig(cmd.Flags().Lookup(buildTimeoutFlagName), buildTimeoutKey)

	cmd.Flags().StringArrayVar(&runBuildCommandFlag, buildCommandFlagName, defaultBuildCommand, "build command and arguments, one per flag (can be repeated)")
	bindFlagToConfig(cmd.Flags().Lookup(buildCommandFlagName), buildCommandKey)

	cmd.Flags().StringVar(&runWorkdirFlag, workdirFlagName, "", "directory holding working copies (default: temporary directories)")
	bindFlagToConfig(cmd.Flags().Lookup(workdirFlagName), workdirConfigKey)

	cmd.Flags().BoolVar(&runKeepFlag, keepFlagName, false, "keep working copies after the run")
	bindFlagToConfig(cmd.Flags().Lookup(keepFlagName), keepConfigKey)

	cmd.Flags().StringVar(&runTemplateFlag, templateFlagName, "", "project scaffold copied into every working copy")
	bindFlagToConfig(cmd.Flags().Lookup(templateFlagName), templateKey)
}

func parseShardFlag(shard string) (int, int) {
	if shard == "" {
		return 0, 1
	}

	var index, total int

	_, err := fmt.Sscanf(shard, "%d/%d", &index, &total)
	if err != nil || total <= 0 || index < 0 || index >= total {
		return 0, 1
	}

	return index, total
}
