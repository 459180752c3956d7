package main

import (
	"github.com/trezcool/coursecertificate/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return migrateFunc(cli.db.DB, cli.conf.Database.Engine, args[0], arguments...)
}
