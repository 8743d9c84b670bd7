package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omriharel/mediactl/pkg/mediactl"
)

var (
	gitCommit  string
	versionTag string
	buildType  string

	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "mediactl",
	Short: "Per-application volume and media control",
	Long: `mediactl controls the master and per-application volume of the default output device,
drives the current media player and reports now-playing, volume and mute changes.

Running it without a subcommand starts the tray application.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTray()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tray application",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTray()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(versionString())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show verbose logs (useful for debugging)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml (default is the working directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	addSessionCommands(rootCmd)
	addMediaCommands(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTray() error {
	logger, named, err := newLogger()
	if err != nil {
		return err
	}

	m, err := mediactl.NewMediaCtl(logger, configDir, verbose)
	if err != nil {
		named.Fatalw("Failed to create mediactl object", "error", err)
	}

	if versionTag != "" || gitCommit != "" {
		m.SetVersion(versionString())
	}

	if err := m.Initialize(); err != nil {
		named.Fatalw("Failed to initialize mediactl", "error", err)
	}

	return nil
}

// prepare creates a mediactl instance with discovered sessions, for one-shot commands
func prepare() (*mediactl.MediaCtl, *zap.SugaredLogger, error) {
	logger, named, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	m, err := mediactl.NewMediaCtl(logger, configDir, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("create mediactl: %w", err)
	}

	if err := m.Prepare(); err != nil {
		return nil, nil, fmt.Errorf("prepare mediactl: %w", err)
	}

	return m, named, nil
}

func newLogger() (*zap.SugaredLogger, *zap.SugaredLogger, error) {
	logger, err := mediactl.NewLogger(buildType, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	named := logger.Named("main")
	named.Debug("Created logger")

	if versionTag != "" || gitCommit != "" {
		named.Infow("Version info",
			"gitCommit", gitCommit,
			"versionTag", versionTag,
			"buildType", buildType)
	}

	if verbose {
		named.Debug("Verbose flag provided, all log messages will be shown")
	}

	return logger, named, nil
}

func versionString() string {
	identifier := versionTag
	if identifier == "" {
		identifier = gitCommit
	}
	if identifier == "" {
		identifier = "unknown"
	}

	if buildType == "" {
		return fmt.Sprintf("Version %s", identifier)
	}

	return fmt.Sprintf("Version %s-%s", buildType, identifier)
}
