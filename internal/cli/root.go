// Package cli implements bookmyseatctl, the admin command line: schema
// migration, catalogue seeding and role management.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/bookmyseat/internal/config"
	"github.com/iliyamo/bookmyseat/internal/database"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile    string
	Driver     string // overrides DB_DRIVER when set
	SQLitePath string // overrides SQLITE_PATH when set
}

// NewRootCommand creates the root command for bookmyseatctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bookmyseatctl",
		Short: "BookMySeat admin tool",
		Long:  "Administer a BookMySeat database: apply the schema, seed movies and theaters, promote admins.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.EnvFile == "" {
				return nil
			}
			// a missing default .env is fine
			if err := godotenv.Load(opts.EnvFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", opts.EnvFile, err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (mysql|sqlite3), defaults to DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.SQLitePath, "sqlite", "", "sqlite database file, defaults to SQLITE_PATH")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewPromoteCommand(opts))

	return cmd
}

// open connects to the configured database and applies the schema, so
// every command can run against a fresh file.
func (o *RootOptions) open(ctx context.Context) (*sql.DB, error) {
	cfg, err := o.databaseConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (o *RootOptions) databaseConfig() (config.Config, error) {
	if o.Driver == "sqlite3" || o.Driver == "sqlite" || o.SQLitePath != "" {
		path := o.SQLitePath
		if path == "" {
			path = "bookmyseat.db"
		}
		return config.Config{DBDriver: "sqlite3", SQLitePath: path}, nil
	}
	if o.Driver != "" && o.Driver != "mysql" {
		return config.Config{}, fmt.Errorf("unsupported driver %q", o.Driver)
	}
	return config.LoadDatabase()
}
