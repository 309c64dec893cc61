// Package configure writes the effective configuration back to disk.
package configure

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/helmetwatch/internal/conf"
)

// Command creates the config command.
func Command(settings *conf.Settings, configFile *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration as YAML",
		Long: "Write the merged configuration (file, environment and defaults) as YAML. " +
			"Without --output the file that was loaded is replaced; comments are not preserved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := output
			if target == "" {
				target = *configFile
			}
			if target == "" {
				target = viper.ConfigFileUsed()
			}
			if target == "" {
				found, err := conf.FindConfigFile()
				if err != nil {
					return fmt.Errorf("no config file loaded, use --output: %w", err)
				}
				target = found
			}

			target, err := filepath.Abs(target)
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			if err := conf.SaveYAMLConfig(target, settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default: the loaded config file)")

	return cmd
}
