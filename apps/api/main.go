package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/edutrack/apps/api/echo"
	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/core/school"
	"github.com/trezcool/edutrack/core/student"
	"github.com/trezcool/edutrack/core/user"
	appfs "github.com/trezcool/edutrack/fs"
	emailsvc "github.com/trezcool/edutrack/services/email"
	"github.com/trezcool/edutrack/services/identity"
	logsvc "github.com/trezcool/edutrack/services/logger"
	schedsvc "github.com/trezcool/edutrack/services/scheduler"
	"github.com/trezcool/edutrack/storage/database"
	boiledrepos "github.com/trezcool/edutrack/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/edutrack/storage/database/sqlx"
)

// TODO:
// - APM/Tracing
// - CSRF for the cookie based web client
func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	tx := database.NewTransactor(db)
	usrSvc := user.NewService(tx, boiledrepos.NewUserRepository(db), mailSvc, conf)
	schoolSvc := school.NewService(sqlxrepos.NewPlanStore(db), sqlxrepos.NewSchoolStore(db), mailSvc)
	classes := sqlxrepos.NewClassStore(db)
	studentSvc := student.NewService(sqlxrepos.NewStudentStore(db), sqlxrepos.NewApplicationStore(db), classes)
	academicSvc := academic.NewService(tx, sqlxrepos.NewSessionStore(db), classes, sqlxrepos.NewSectionStore(db), studentSvc)
	idp := identity.NewAuthority(usrSvc, identity.NewTokenIssuer(conf))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, appfs.FS, logger)

	user.LoadCommonPasswords(appfs.FS, logger)

	scheduler := schedsvc.NewScheduler(schoolSvc, logger)
	if err = scheduler.Start(conf); err != nil {
		logger.Fatal(fmt.Sprintf("starting scheduler: %v", err), err)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Validate:   validate,
			Translator: translator,
			Identity:   idp,
			Users:      usrSvc,
			Schools:    schoolSvc,
			Academics:  academicSvc,
			Students:   studentSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		scheduler.Stop(ctx)

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
