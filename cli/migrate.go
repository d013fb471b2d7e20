package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-ordering/database"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.load()
			if _, err := openDB(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables (%s)\n", len(database.AllModels()), cfg.DBDriver)
			return nil
		},
	}
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load restaurants, staff and menus from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := database.LoadSeedFile(file)
			if err != nil {
				return err
			}
			cfg := rootOpts.load()
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if err := seed.Apply(db); err != nil {
				return fmt.Errorf("apply seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d restaurant(s) from %s\n", len(seed.Restaurants), file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
