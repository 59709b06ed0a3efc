package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/kyleramirez143/ACTION-LMS-sub001/apps/api/echo"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/assessment"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/batch"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/calendar"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/course"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/dashboard"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/onboarding"
	"github.com/kyleramirez143/ACTION-LMS-sub001/core/user"
	emailsvc "github.com/kyleramirez143/ACTION-LMS-sub001/services/email"
	logsvc "github.com/kyleramirez143/ACTION-LMS-sub001/services/logger"
	storagesvc "github.com/kyleramirez143/ACTION-LMS-sub001/services/storage"
	"github.com/kyleramirez143/ACTION-LMS-sub001/storage/database"
	boiledrepos "github.com/kyleramirez143/ACTION-LMS-sub001/storage/database/sqlboiler"
	sqlxrepos "github.com/kyleramirez143/ACTION-LMS-sub001/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) (*logsvc.RollbarLogger, core.Logger, error) {
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building zap logger")
	}
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger, logger, nil
}

func newDBLogger(conf *core.Config) (core.Logger, error) {
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger, nil
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newFileStorage(conf *core.Config) (core.FileStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	return storagesvc.New(ctx, conf)
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// DepsParam collects every dependency of the API server.
type DepsParam struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	UserSvc       user.Service
	CourseSvc     course.Service
	BatchSvc      batch.Service
	AssessmentSvc assessment.Service
	CalendarSvc   calendar.Service
	OnboardingSvc onboarding.Service
	DashboardSvc  dashboard.Service
}

func newServer(p DepsParam) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		BatchSvc:      p.BatchSvc,
		AssessmentSvc: p.AssessmentSvc,
		CalendarSvc:   p.CalendarSvc,
		OnboardingSvc: p.OnboardingSvc,
		DashboardSvc:  p.DashboardSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(database.NewTxRunner))
	must(c.Provide(newEmailService))
	must(c.Provide(newFileStorage))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCourseRepository))
	must(c.Provide(sqlxrepos.NewBatchRepository))
	must(c.Provide(sqlxrepos.NewAssessmentRepository))
	must(c.Provide(sqlxrepos.NewCalendarRepository))
	must(c.Provide(sqlxrepos.NewOnboardingRepository))
	must(c.Provide(boiledrepos.NewStatsRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(batch.NewService))
	must(c.Provide(assessment.NewService))
	must(c.Provide(calendar.NewService))
	must(c.Provide(onboarding.NewService))
	must(c.Provide(dashboard.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
