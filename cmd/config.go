package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"stagecheck.dev/pkg/stagecheck/internal/controller"
	"stagecheck.dev/pkg/stagecheck/internal/domain"
	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "stagecheck"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName       = "output"
	excludeFlagName      = "exclude"
	runParallelFlagName  = "parallel"
	runWeakFlagName      = "weak"
	buildTimeoutFlagName = "build-timeout"
	buildCommandFlagName = "build-cmd"
	workdirFlagName      = "workdir"
	keepFlagName         = "keep"
	templateFlagName     = "template"
	logFlagName          = "log"
	verboseFlagName      = "verbose"
	logConsoleFlagName   = "log-console"

	runParallelConfigKey   = "run.parallel"
	runWeakConfigKey       = "run.weak"
	buildTimeoutKey        = "run.build_timeout"
	workdirConfigKey       = "run.workdir"
	keepConfigKey          = "run.keep"
	excludeConfigKey       = "paths.exclude"
	buildCommandKey        = "build.command"
	buildPatternsKeyPrefix = "build.patterns."
	sourceDirKey           = "project.src_dir"
	templateKey            = "project.template"
	sourceExtensionsKey    = "fixtures.source_extensions"
	unsupportedKey         = "fixtures.unsupported_directives"

	defaultBuildTimeout = time.Minute * 10

	defaultReportsDir  = ".stagecheck-reports"
	defaultRunParallel = 1
	defaultSourceDir   = "src"

	envPrefix = "STAGECHECK"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logConsoleKey    = "log.console"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".stagecheck.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var (
	defaultBuildCommand  = []string{"./gradlew", "build", "--debug"}
	defaultBuildPatterns = map[m.SourceKind]string{
		m.KindKotlin: `\[KOTLIN\] compile iteration: (?P<files>.*)`,
		m.KindJava:   `Compiler arguments: (?P<files>.*)`,
	}
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputFlagName, defaultReportsDir)
	viper.SetDefault(excludeConfigKey, []string{})
	viper.SetDefault(runParallelConfigKey, defaultRunParallel)
	viper.SetDefault(runWeakConfigKey, false)
	viper.SetDefault(buildTimeoutKey, int64(defaultBuildTimeout.Seconds()))
	viper.SetDefault(workdirConfigKey, "")
	viper.SetDefault(keepConfigKey, false)
	viper.SetDefault(buildCommandKey, defaultBuildCommand)

	for kind, pattern := range defaultBuildPatterns {
		viper.SetDefault(buildPatternsKeyPrefix+string(kind), pattern)
	}

	viper.SetDefault(sourceDirKey, defaultSourceDir)
	viper.SetDefault(templateKey, "")

	policy := domain.DefaultFixturePolicy()
	unsupported := make([]string, 0, len(policy.UnsupportedDirectives))

	for _, directive := range policy.UnsupportedDirectives {
		unsupported = append(unsupported, directive.String())
	}

	viper.SetDefault(sourceExtensionsKey, policy.SourceExtensions)
	viper.SetDefault(unsupportedKey, unsupported)

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logConsoleKey, false)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return
		}

		fmt.Fprintf(os.Stderr, "stagecheck: ignoring config file: %v\n", err)
	}
}

// buildPatterns returns the compiled-files patterns for every known kind.
func buildPatterns() map[m.SourceKind]string {
	patterns := make(map[m.SourceKind]string, len(m.SourceKinds))

	for _, kind := range m.SourceKinds {
		if pattern := viper.GetString(buildPatternsKeyPrefix + string(kind)); pattern != "" {
			patterns[kind] = pattern
		}
	}

	return patterns
}

// fixturePolicy reads the fixture policy from configuration.
func fixturePolicy() (domain.FixturePolicy, error) {
	policy := domain.FixturePolicy{
		SourceExtensions: viper.GetStringSlice(sourceExtensionsKey),
	}

	for _, name := range viper.GetStringSlice(unsupportedKey) {
		directive, ok := m.ParseDirective(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return domain.FixturePolicy{}, fmt.Errorf("%s: unknown directive %q", unsupportedKey, name)
		}

		policy.UnsupportedDirectives = append(policy.UnsupportedDirectives, directive)
	}

	return policy, nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug. With
// console set and stderr on a terminal, records are mirrored to stderr.
func configureLogger(logPath string, verbose, console bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	var handler slog.Handler = slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	if console && controller.IsTTY(os.Stderr) {
		handler = fanoutHandler{handler, tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.Kitchen,
		})}
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
