// Package testutil wires the domain services on the in-memory database for tests.
package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zaptest"

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
	dummydb "github.com/kyleramirez143/ACTION-LMS-sub001/storage/database/dummy"
)

// NewConfig returns a TEST configuration storing files under a temporary directory.
func NewConfig(t testing.TB) *core.Config {
	t.Helper()
	return &core.Config{
		AppName:                   "ACTION LMS",
		Build:                     "test",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 "test-x0qg$7n!r4m&p2k+e9w_c6b#l1t8h5-test",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "ACTION LMS", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		PassingGrade:              75,
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
			MaxUploadSize:             "1M",
			CORSAllowOrigins:          []string{"*"},
		},
		Database: core.DatabaseConfig{Engine: "postgres", Name: "lms_test", DisableTLS: true},
		Storage: core.StorageConfig{
			Bucket:        "lms",
			PresignExpiry: 15 * time.Minute,
			LocalDir:      t.TempDir(),
			LocalURL:      "/media",
		},
	}
}

// NewValidator returns a validator with the core and user validators registered, and its translator.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// App holds every service backed by a fresh in-memory database.
type App struct {
	Conf       *core.Config
	DB         *dummydb.DB
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Storage    core.FileStorage

	UserRepo      user.Repository
	UserSvc       user.Service
	CourseSvc     course.Service
	BatchSvc      batch.Service
	AssessmentSvc assessment.Service
	CalendarSvc   calendar.Service
	OnboardingSvc onboarding.Service
	DashboardSvc  dashboard.Service
}

func NewApp(t testing.TB) *App {
	t.Helper()

	conf := NewConfig(t)
	logger := logsvc.NewRollbarLogger(zaptest.NewLogger(t), conf)
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	store, err := storagesvc.NewDiskStorage(conf)
	if err != nil {
		t.Fatalf("storagesvc.NewDiskStorage() failed: %v", err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	emailsvc.ResetSentMessages()

	userRepo := dummydb.NewUserRepository(db)
	userSvc := user.NewService(userRepo, mailSvc, conf)
	courseSvc := course.NewService(dummydb.NewCourseRepository(db), store, logger)
	batchSvc := batch.NewService(dummydb.NewBatchRepository(db), db, userSvc, courseSvc)
	assessmentSvc := assessment.NewService(dummydb.NewAssessmentRepository(db), db, userSvc, courseSvc, batchSvc, mailSvc, conf)
	calendarSvc := calendar.NewService(dummydb.NewCalendarRepository(db), batchSvc, courseSvc, assessmentSvc)
	onboardingSvc := onboarding.NewService(dummydb.NewOnboardingRepository(db), userSvc)
	dashboardSvc := dashboard.NewService(dummydb.NewStatsRepository(db), batchSvc, courseSvc, assessmentSvc, onboardingSvc)
	validate, translator := NewValidator()

	return &App{
		Conf:          conf,
		DB:            db,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Storage:       store,
		UserRepo:      userRepo,
		UserSvc:       userSvc,
		CourseSvc:     courseSvc,
		BatchSvc:      batchSvc,
		AssessmentSvc: assessmentSvc,
		CalendarSvc:   calendarSvc,
		OnboardingSvc: onboardingSvc,
		DashboardSvc:  dashboardSvc,
	}
}

func CreateUser(
	t testing.TB,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *App) Admin(t testing.TB, uname string) user.User {
	return CreateUser(t, app.UserRepo, "Admin "+uname, uname, uname+"@lms.test", "", []string{user.RoleAdmin}, true)
}

func (app *App) Trainer(t testing.TB, uname string) user.User {
	return CreateUser(t, app.UserRepo, "Trainer "+uname, uname, uname+"@lms.test", "", []string{user.RoleTrainer}, true)
}

func (app *App) Trainee(t testing.TB, uname string) user.User {
	return CreateUser(t, app.UserRepo, "Trainee "+uname, uname, uname+"@lms.test", "", []string{user.RoleTrainee}, true)
}

func (app *App) Course(t testing.TB, author user.User, code string, published bool) course.Course {
	t.Helper()
	c, err := app.CourseSvc.Create(context.Background(), author, course.NewCourse{Code: code, Title: "Course " + code, IsPublished: published})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

func (app *App) Module(t testing.TB, courseID, title string) course.Module {
	t.Helper()
	m, err := app.CourseSvc.CreateModule(context.Background(), courseID, course.NewModule{Title: title})
	if err != nil {
		t.Fatalf("createModule() failed: %v", err)
	}
	return m
}

func (app *App) Batch(t testing.TB, code string, start, end core.Date) batch.Batch {
	t.Helper()
	b, err := app.BatchSvc.Create(context.Background(), batch.NewBatch{Code: code, Name: "Batch " + code, StartDate: start, EndDate: end})
	if err != nil {
		t.Fatalf("createBatch() failed: %v", err)
	}
	return b
}

func (app *App) AddMembers(t testing.TB, b batch.Batch, role string, users ...user.User) {
	t.Helper()
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	if _, err := app.BatchSvc.AddMembers(context.Background(), b, batch.NewMembers{UserIDs: ids, Role: role}); err != nil {
		t.Fatalf("addMembers() failed: %v", err)
	}
}
