package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stagecheck.dev/pkg/stagecheck/internal/domain"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// mergeCmd represents the merge command.
var mergeCmd = newMergeCmd()

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge sharded reports into a single directory",
		Long:  "Merge reports from shard_* subdirectories into a single reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := currentWorkflow()
			if err != nil {
				return err
			}

			reportsPath := m.Path(viper.GetString(outputFlagName))

			return wf.Merge(cmd.Context(), domain.MergeArgs{Reports: reportsPath})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
