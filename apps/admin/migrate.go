package main

import (
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	appfs "github.com/trezcool/edutrack/fs"
	"github.com/trezcool/edutrack/storage/database"
)

var gooseRunFunc = goose.RunContext // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.InitGoose(); err != nil {
				return err
			}
			return gooseRunFunc(cmd.Context(), args[0], cli.db, appfs.MigrationsDir, args[1:]...)
		},
	}
}
