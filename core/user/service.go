package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/auth"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("this account is deactivated")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs []string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)

		// GetProfile returns auth.ErrProfileNotFound when the user has no profile row.
		GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (auth.Profile, error)
		SaveProfile(ctx context.Context, prof auth.Profile, exec ...core.DBExecutor) (auth.Profile, error)
	}

	Service interface {
		auth.ProfileStore

		CheckUniqueness(ctx context.Context, email string, excludedIDs ...string) error
		Create(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		// Authenticate checks the credentials and records the login.
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		SetPassword(ctx context.Context, usr User, pwd string) (User, error)
		SetProfile(ctx context.Context, prof auth.Profile) (auth.Profile, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
	}

	service struct {
		tx      core.Transactor
		repo    Repository
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	secretKey = []byte(conf.SecretKey)
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
	return &service{tx: tx, repo: repo, mailSvc: mailSvc}
}

func (svc *service) CheckUniqueness(ctx context.Context, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        core.NewID(),
		Email:     nu.Email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if usr, err = svc.repo.CreateUser(ctx, usr, exec); err != nil {
			return err
		}
		if nu.Role == "" {
			return nil
		}
		_, err = svc.repo.SaveProfile(ctx, auth.Profile{
			UserID:   usr.ID,
			Role:     auth.Role(nu.Role),
			SchoolID: nu.SchoolID,
		}, exec)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) GetProfile(ctx context.Context, userID string) (auth.Profile, error) {
	return svc.repo.GetProfile(ctx, userID)
}

func (svc *service) SetProfile(ctx context.Context, prof auth.Profile) (auth.Profile, error) {
	if prof.Role == auth.RoleSchoolAdmin && prof.SchoolID == "" {
		return auth.Profile{}, core.NewValidationError(
			errors.New("invalid profile"),
			core.FieldError{Field: "school_id", Error: schoolRequiredText},
		)
	}
	if prof.Role == auth.RoleSuperAdmin {
		prof.SchoolID = ""
	}
	return svc.repo.SaveProfile(ctx, prof)
}

// RequestPasswordReset emails a reset link to the account. Unknown and deactivated accounts are ignored.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if !usr.IsActive {
		return nil
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Email": usr.Email,
			"UID":   EncodeUID(usr),
			"Token": makeToken(usr),
		},
	})
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	invalidErr := core.NewValidationError(errors.New("invalid reset link"), core.FieldError{Field: "token", Error: "invalid or expired"})

	id, err := decodeUID(data.UID)
	if err != nil {
		return invalidErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalidErr
		}
		return err
	}
	if err = verifyToken(usr, data.Token); err != nil {
		return invalidErr
	}

	_, err = svc.SetPassword(ctx, usr, data.Password)
	return err
}
