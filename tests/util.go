package testutil

import (
	"context"
	"io"
	"log"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/academic"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/school"
	"github.com/trezcool/edutrack/core/student"
	"github.com/trezcool/edutrack/core/user"
	appfs "github.com/trezcool/edutrack/fs"
	"github.com/trezcool/edutrack/services/email"
	"github.com/trezcool/edutrack/services/logger"
	"github.com/trezcool/edutrack/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Sup3r-Secr3t!"

// Env wires the services over a fresh in-memory database.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	DB         *inmemdb.DB

	UserRepo  user.Repository
	Users     user.Service
	Schools   school.Service
	Academics academic.Service
	Students  student.Service
}

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   "EduTrack",
		TestMode:                  true,
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmail:          mail.Address{Name: "EduTrack", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			Host:                      "localhost",
			Port:                      8000,
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 7 * 24 * time.Hour,
			ProfileCacheSize:          64,
			ProfileCacheTTL:           time.Minute,
			LoginRateLimit:            100,
			LoginRateBurst:            100,
		},
		Database: core.DatabaseConfig{Engine: "postgres", Name: "edutrack_test"},
		Scheduler: core.SchedulerConfig{
			SubscriptionSweep: "0 1 * * *",
		},
		Client: core.ClientConfig{RefreshMargin: 5 * time.Minute},
	}
}

// NewLogger returns a silent logger.
func NewLogger(conf *core.Config) core.Logger {
	lg := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	lg.Enable(false)
	return lg
}

// NewValidator returns a validator with every application rule registered.
func NewValidator(logger core.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	academic.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, logger)
	return validate, translator
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := NewConfig()
	logger := NewLogger(conf)
	validate, translator := NewValidator(logger)
	core.ParseEmailTemplates(conf, appfs.FS, logger)
	emailsvc.ResetSentMessages()

	db := inmemdb.Open()
	tx := inmemdb.Transactor{}
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrRepo := inmemdb.NewUserRepository(db)
	students := student.NewService(db.Students, db.Applications, db.Classes)

	return &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		DB:         db,
		UserRepo:   usrRepo,
		Users:      user.NewService(tx, usrRepo, mailSvc, conf),
		Schools:    school.NewService(db.Plans, db.Schools, mailSvc),
		Academics:  academic.NewService(tx, db.Sessions, db.Classes, db.Sections, students),
		Students:   students,
	}
}

// CreateUser creates an active account with a profile; an empty role creates no profile.
func CreateUser(t *testing.T, env *Env, email string, role auth.Role, schoolID string) user.User {
	t.Helper()

	usr, err := env.Users.Create(context.Background(), user.NewUser{
		Email:           email,
		Password:        Password,
		PasswordConfirm: Password,
		Role:            string(role),
		SchoolID:        schoolID,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// Deactivate marks an account inactive.
func Deactivate(t *testing.T, env *Env, usr user.User) user.User {
	t.Helper()

	usr.IsActive = false
	usr, err := env.UserRepo.UpdateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("Deactivate(): %v", err)
	}
	return usr
}

func CreatePlan(t *testing.T, env *Env, name string, priceMonthly float64) school.Plan {
	t.Helper()

	plan, err := env.Schools.CreatePlan(context.Background(), core.Scope{All: true}, school.PlanInput{
		Name:         name,
		PriceMonthly: priceMonthly,
		PriceYearly:  priceMonthly * 10,
		StudentLimit: 500,
		Features:     []string{"Students", "Admissions"},
	})
	if err != nil {
		t.Fatalf("CreatePlan(): %v", err)
	}
	return plan
}

func CreateSchool(t *testing.T, env *Env, code string, plan school.Plan, cycle school.BillingCycle) school.School {
	t.Helper()

	sch, err := env.Schools.Create(context.Background(), core.Scope{All: true}, school.NewSchool{
		Name:         "School " + code,
		Code:         code,
		Email:        code + "@school.test",
		Phone:        "0123456789",
		Address:      "1 School Road",
		PlanID:       plan.ID,
		BillingCycle: string(cycle),
	})
	if err != nil {
		t.Fatalf("CreateSchool(): %v", err)
	}
	return sch
}

func CreateClass(t *testing.T, env *Env, schoolID, name string, maxStudents int) academic.Class {
	t.Helper()

	cls, err := env.Academics.CreateClass(context.Background(), core.Scope{SchoolID: schoolID}, academic.ClassInput{
		Name:        name,
		Sections:    []string{"A", "B"},
		MaxStudents: maxStudents,
	})
	if err != nil {
		t.Fatalf("CreateClass(): %v", err)
	}
	return cls
}

// StudentInput returns a valid admission of a student into the class.
func StudentInput(classID, firstName string) student.StudentInput {
	return student.StudentInput{
		FirstName:     firstName,
		LastName:      "Doe",
		DateOfBirth:   core.NewDate(2015, time.March, 14),
		Gender:        "female",
		Address:       "2 Home Street",
		FatherName:    "John Doe",
		FatherPhone:   "9876543210",
		MotherName:    "Jane Doe",
		MotherPhone:   "9876543211",
		ClassID:       classID,
		Section:       "A",
		AdmissionDate: core.NewDate(2024, time.April, 1),
		AcademicYear:  "2024-2025",
		FeeStructure:  string(student.FeeRegular),
		PaymentMode:   "monthly",
		Status:        student.StatusActive,
	}
}

func CreateStudent(t *testing.T, env *Env, schoolID, classID, firstName string) student.Student {
	t.Helper()

	std, err := env.Students.Create(context.Background(), core.Scope{SchoolID: schoolID}, StudentInput(classID, firstName))
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return std
}
