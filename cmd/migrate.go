package cmd

import (
	"context"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-signup/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect database schema migrations",
}

func newMigrateSubcommand(command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   command,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd.Context(), command)
		},
	}
}

func init() {
	migrateCmd.AddCommand(newMigrateSubcommand("up", "Apply all pending migrations"))
	migrateCmd.AddCommand(newMigrateSubcommand("down", "Roll back the most recent migration"))
	migrateCmd.AddCommand(newMigrateSubcommand("status", "Print the status of every migration"))
	rootCmd.AddCommand(migrateCmd)
}

func runMigration(ctx context.Context, command string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err = goose.SetDialect("mysql"); err != nil {
		return err
	}

	logrus.WithField("command", command).Info("Running migrations")
	return goose.RunContext(ctx, command, db, ".")
}
