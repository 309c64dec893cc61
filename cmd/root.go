package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/helmetwatch/cmd/configure"
	"github.com/tphakala/helmetwatch/cmd/migrate"
	"github.com/tphakala/helmetwatch/cmd/sample"
	"github.com/tphakala/helmetwatch/cmd/serve"
	"github.com/tphakala/helmetwatch/cmd/version"
	"github.com/tphakala/helmetwatch/internal/buildinfo"
	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// RootCommand creates and returns the root command. Subcommands share
// settings, which are loaded once before any of them runs.
func RootCommand(build *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "helmetwatch",
		Short:         "HelmetWatch operational state service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search the standard config paths)")
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", false, "Enable debug output")

	versionCmd := version.Command(build)

	rootCmd.AddCommand(
		serve.Command(settings, build),
		migrate.Command(settings),
		sample.Command(settings),
		configure.Command(settings, &configFile),
		versionCmd,
	)

	var central *logger.CentralLogger

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// version does not need a config file
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		var err error
		central, err = initialize(cmd, configFile, settings)
		return err
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if central != nil {
			_ = central.Close()
		}
	}

	return rootCmd
}

// initialize loads settings into the shared struct and installs the central logger
func initialize(cmd *cobra.Command, configFile string, settings *conf.Settings) (*logger.CentralLogger, error) {
	debug := settings.Debug

	loaded, err := conf.Load(configFile)
	if err != nil {
		return nil, err
	}
	*settings = *loaded

	// command-line flag takes precedence over the config file
	if cmd.Flags().Changed("debug") {
		settings.Debug = debug
	}
	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	logger.Global().Module("main").Debug("configuration loaded",
		logger.String("config_file", viper.ConfigFileUsed()),
		logger.Bool("debug", settings.Debug))

	return central, nil
}
