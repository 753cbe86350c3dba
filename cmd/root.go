// Package cmd provides the root command and CLI setup for stagecheck.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stagecheck.dev/pkg/stagecheck/internal/adapter"
	"stagecheck.dev/pkg/stagecheck/internal/controller"
	"stagecheck.dev/pkg/stagecheck/internal/domain"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

var fsAdapter adapter.SourceFSAdapter
var reportStore adapter.ReportStore
var buildRunner adapter.BuildRunnerAdapter
var workdirLocker *adapter.WorkdirLocker
var orchestrator domain.Orchestrator
var workflow domain.Workflow
var ui controller.UI

// setupErr holds a configuration error found while wiring dependencies.
// It is reported when a command that needs the workflow runs.
var setupErr error

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// excludePatterns is a root-level flag that filters fixture projects for applicable commands.
var excludePatterns []string

var logFileFlag string
var verboseFlag bool
var logConsoleFlag bool

func init() {
	configureRootFlags(rootCmd)

	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	fsAdapter = adapter.NewLocalSourceFSAdapter()
	reportStore = adapter.NewReportStore()
	workdirLocker = adapter.NewWorkdirLocker()

	policy, err := fixturePolicy()
	if err != nil {
		setupErr = err
		return
	}

	runner, err := adapter.NewLocalBuildRunnerAdapter(buildPatterns())
	if err != nil {
		setupErr = fmt.Errorf("build patterns: %w", err)
		return
	}

	buildRunner = runner
	validator := domain.NewValidator(policy)
	orchestrator = domain.NewOrchestrator(fsAdapter, buildRunner, validator, domain.NewApplier(fsAdapter))
	workflow = domain.NewWorkflow(
		fsAdapter,
		reportStore,
		ui,
		domain.NewFixtureLoader(fsAdapter),
		domain.NewSeeder(fsAdapter, policy),
		orchestrator,
		validator,
		workdirLocker,
	)
}

const pathPatternsHelp = `Supports Go-style path patterns:
  - ./...                 recursively search the current directory
  - ./testData/...        recursively search testData
  - ./cases/a ./cases/b   use the given directories only`

const rootLongDescription = `Stagecheck verifies incremental compilation against recorded fixture
projects. Each project holds sources, staged modification files
(name.N.new.ext, name.N.delete.ext, name.N.touch.ext) and a build.log
describing which files every rebuild is expected to compile.

` + pathPatternsHelp

const runLongDescription = `Run fixture projects for the given paths (default: ./...).

Every project is copied into a fresh working directory, built once, then
modified stage by stage. After each stage the build is rerun and its outcome
and compiled files are compared with the build log.

` + pathPatternsHelp

const listLongDescription = `List fixture projects with their support verdict and stage count.

` + pathPatternsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stagecheck",
		Short: "Incremental compilation fixture runner",
		Long:  rootLongDescription,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			configureLogger(logFileFlag, verboseFlag || viper.GetBool(logVerboseKey), logConsoleFlag || viper.GetBool(logConsoleKey))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
}

func newRootCmd() *cobra.Command {
	cmd := baseRootCmd()
	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			defaultReportsDir,
			"output directory for run reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringArrayVarP(&excludePatterns, excludeFlagName, "x", nil, "exclude fixture projects matching regex (can be repeated)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(excludeFlagName), excludeConfigKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFlagName, "", "log file path (default from "+logFilenameKey+")")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", false, "log at debug level")
	cmd.PersistentFlags().BoolVar(&logConsoleFlag, logConsoleFlagName, false, "mirror logs to stderr when it is a terminal")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// currentWorkflow returns the wired workflow or the setup error that
// prevented wiring it.
func currentWorkflow() (domain.Workflow, error) {
	if workflow == nil {
		if setupErr != nil {
			return nil, setupErr
		}

		return nil, fmt.Errorf("workflow is not configured")
	}

	return workflow, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
