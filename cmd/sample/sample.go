// Package sample loads demonstration violations into the database.
package sample

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/helmetwatch/internal/conf"
	"github.com/tphakala/helmetwatch/internal/coordinator"
	"github.com/tphakala/helmetwatch/internal/datastore"
	"github.com/tphakala/helmetwatch/internal/logger"
)

// Command creates the sample command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Insert the five sample violations",
		Long:  "Insert five sample violations timed 2 to 12 hours ago and point the status counters at them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := datastore.Open(settings, logger.Global())
			if err != nil {
				return err
			}
			defer db.Close()

			core := coordinator.New(datastore.Repositories(db))
			inserted, err := core.SeedSampleViolations(cmd.Context())
			if err != nil {
				return err
			}

			for i := range inserted {
				v := &inserted[i]
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s  %s\n", v.ID, v.ViolationTime.Format("2006-01-02 15:04"), v.ImagePath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d sample violations\n", len(inserted))
			return nil
		},
	}
}
