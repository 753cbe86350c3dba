package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"stagecheck.dev/pkg/stagecheck/internal/domain"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously saved run reports",
		Long:  "View previously saved run reports from a reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			wf, err := currentWorkflow()
			if err != nil {
				return err
			}

			reportsPath := m.Path(viper.GetString(outputFlagName))

			return wf.View(cmd.Context(), domain.ViewArgs{Reports: reportsPath})
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
