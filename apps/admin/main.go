package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
	logsvc "github.com/kyleramirez143/ACTION-LMS-sub001/services/logger"
	storagesvc "github.com/kyleramirez143/ACTION-LMS-sub001/services/storage"
	"github.com/kyleramirez143/ACTION-LMS-sub001/storage/database"
	sqlxrepos "github.com/kyleramirez143/ACTION-LMS-sub001/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	store, err := storagesvc.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening file storage: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		usrRepo:   sqlxrepos.NewUserRepository(db),
		courseSvc: course.NewService(sqlxrepos.NewCourseRepository(db), store, logger),
		validate:  validate,
		logger:    logger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
