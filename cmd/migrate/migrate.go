// Package migrate creates or updates the database schema.
package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/datastore"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// Command creates the migrate command.
func Command(settings *conf.Settings) *cobra.Command {
	var seedSettings bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long:  "Migrate the configured database. With --seed-settings the default operator settings are added where missing; existing values are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Global().Module("main")

			db, err := datastore.Open(settings, logger.Global())
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info("schema is up to date", logger.String("path", db.Path()))

			if !seedSettings {
				return nil
			}

			inserted, err := datastore.SeedDefaultSettings(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("failed to seed default settings: %w", err)
			}
			log.Info("default settings seeded", logger.Int64("inserted", inserted))
			return nil
		},
	}

	cmd.Flags().BoolVar(&seedSettings, "seed-settings", false, "Insert default operator settings that are not yet present")

	return cmd
}
