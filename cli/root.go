package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/restaurant-ordering/config"
	"github.com/yeremiapane/restaurant-ordering/database"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// RootOptions holds flags shared by every command. Empty values fall back
// to the environment.
type RootOptions struct {
	DBDriver  string
	DBDSN     string
	LogFormat string
}

// NewRootCommand creates the root command of the restaurant server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "restaurant",
		Short:        "Restaurant ordering backend",
		Long:         "Multi-tenant restaurant ordering server: staff and client API, guest QR ordering, kitchen websocket feed and ticket printing.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBDriver, "db-driver", "", "database driver (mysql|postgres|sqlite), overrides DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.DBDSN, "db-dsn", "", "database DSN, overrides DB_DSN")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (text|json), overrides LOG_FORMAT")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewQRCommand(opts))
	cmd.AddCommand(NewPrintTestCommand(opts))

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// load reads the configuration, applies flag overrides and sets up logging.
func (o *RootOptions) load() *config.Config {
	cfg := config.Load()
	if o.DBDriver != "" {
		cfg.DBDriver = o.DBDriver
	}
	if o.DBDSN != "" {
		cfg.DBDSN = o.DBDSN
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	utils.InitLogger(cfg.LogFormat)
	return cfg
}

// openDB connects and migrates.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := config.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
