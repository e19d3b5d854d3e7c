package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/user"
	appfs "github.com/trezcool/edutrack/fs"
	emailsvc "github.com/trezcool/edutrack/services/email"
	"github.com/trezcool/edutrack/services/identity"
	logsvc "github.com/trezcool/edutrack/services/logger"
	"github.com/trezcool/edutrack/storage/database"
	boiledrepos "github.com/trezcool/edutrack/storage/database/sqlboiler"
	"github.com/trezcool/edutrack/storage/localstore"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal("connecting to database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, logger)
	core.ParseEmailTemplates(conf, appfs.FS, logger)

	usrSvc := user.NewService(
		database.NewTransactor(db),
		boiledrepos.NewUserRepository(db),
		emailsvc.NewConsoleService(conf, logger),
		conf,
	)

	// start CLI
	cli := &commandLine{
		conf:     conf,
		logger:   logger,
		db:       db.DB,
		validate: validate,
		users:    usrSvc,
		backend:  identity.NewAuthority(usrSvc, identity.NewTokenIssuer(conf)),
		state:    localstore.New(conf.Client.StatePath),
		out:      os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		os.Exit(1)
	}
}
