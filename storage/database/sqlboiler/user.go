// Package boiledrepos implements the identity repositories with sqlboiler's query layer.
package boiledrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/friendsofgo/errors"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/trezcool/edutrack/core"
	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/user"
)

const (
	userColumns    = `"id", "email", "password_hash", "is_active", "created_at", "updated_at", "last_login"`
	profileColumns = `"user_id", "role", "school_id"`
)

type (
	boiledUser struct {
		ID           string    `boil:"id"`
		Email        string    `boil:"email"`
		PasswordHash []byte    `boil:"password_hash"`
		IsActive     bool      `boil:"is_active"`
		CreatedAt    null.Time `boil:"created_at"`
		UpdatedAt    null.Time `boil:"updated_at"`
		LastLogin    null.Time `boil:"last_login"`
	}

	boiledProfile struct {
		UserID   string      `boil:"user_id"`
		Role     null.String `boil:"role"`
		SchoolID null.String `boil:"school_id"`
	}

	userRepository struct {
		exec core.DBExecutor
	}
)

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{exec: exec}
}

func (repo userRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

func (repo userRepository) boil(usr user.User) boiledUser {
	return boiledUser{
		ID:           usr.ID,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		IsActive:     usr.IsActive,
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(usr boiledUser) user.User {
	return user.User{
		ID:           usr.ID,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.Time,
		UpdatedAt:    usr.UpdatedAt.Time,
		LastLogin:    usr.LastLogin.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to notFound and unique violations to *core.ConflictError
func (repo userRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return core.NewConflictError(pqErr.Constraint, errors.Wrap(err, msg))
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedIDs []string, exec ...core.DBExecutor) error {
	q := `SELECT COUNT(*) AS "count" FROM "users" WHERE "email" = $1`
	args := []interface{}{email}
	if len(excludedIDs) > 0 {
		q += fmt.Sprintf(` AND "id" NOT IN (%s)`, strmangle.Placeholders(true, len(excludedIDs), 2, 1))
		for _, id := range excludedIDs {
			args = append(args, id)
		}
	}

	var res struct {
		Count int `boil:"count"`
	}
	if err := queries.Raw(q, args...).Bind(ctx, repo.getExec(exec), &res); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if res.Count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = core.NewID()
	}
	u := repo.boil(usr)
	q := fmt.Sprintf(`INSERT INTO "users" (%s) VALUES (%s) RETURNING %s`,
		userColumns, strmangle.Placeholders(true, 7, 1, 1), userColumns)

	var created boiledUser
	err := queries.Raw(q, u.ID, u.Email, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt, u.LastLogin).
		Bind(ctx, repo.getExec(exec), &created)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, user.ErrNotFound, "inserting user")
	}
	return repo.unboil(created), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		q   string
		arg string
	)
	switch {
	case filter.ID != "":
		if !core.IsUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		q, arg = fmt.Sprintf(`SELECT %s FROM "users" WHERE "id" = $1`, userColumns), filter.ID
	case filter.Email != "":
		q, arg = fmt.Sprintf(`SELECT %s FROM "users" WHERE "email" = $1`, userColumns), filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr boiledUser
	if err := queries.Raw(q, arg).Bind(ctx, repo.getExec(exec), &usr); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(usr), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	u := repo.boil(usr)
	q := fmt.Sprintf(
		`UPDATE "users" SET "email" = $2, "password_hash" = $3, "is_active" = $4, "updated_at" = $5, "last_login" = $6 WHERE "id" = $1 RETURNING %s`,
		userColumns,
	)

	var updated boiledUser
	err := queries.Raw(q, u.ID, u.Email, u.PasswordHash, u.IsActive, u.UpdatedAt, u.LastLogin).
		Bind(ctx, repo.getExec(exec), &updated)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return repo.unboil(updated), nil
}

func (repo userRepository) GetProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (auth.Profile, error) {
	if !core.IsUUID(userID) {
		return auth.Profile{}, auth.ErrProfileNotFound
	}

	var prof boiledProfile
	q := fmt.Sprintf(`SELECT %s FROM "profiles" WHERE "user_id" = $1`, profileColumns)
	if err := queries.Raw(q, userID).Bind(ctx, repo.getExec(exec), &prof); err != nil {
		return auth.Profile{}, repo.trapNoRowsErr(err, auth.ErrProfileNotFound, "finding profile")
	}
	return auth.Profile{
		UserID:   prof.UserID,
		Role:     auth.ParseRole(prof.Role.String),
		SchoolID: prof.SchoolID.String,
	}, nil
}

func (repo userRepository) SaveProfile(ctx context.Context, prof auth.Profile, exec ...core.DBExecutor) (auth.Profile, error) {
	q := fmt.Sprintf(
		`INSERT INTO "profiles" (%s) VALUES ($1, $2, $3)
		ON CONFLICT ("user_id") DO UPDATE SET "role" = EXCLUDED."role", "school_id" = EXCLUDED."school_id"
		RETURNING %s`,
		profileColumns, profileColumns,
	)
	role := null.NewString(string(prof.Role), prof.Role != auth.RoleNone)
	schoolID := null.NewString(prof.SchoolID, prof.SchoolID != "")

	var saved boiledProfile
	if err := queries.Raw(q, prof.UserID, role, schoolID).Bind(ctx, repo.getExec(exec), &saved); err != nil {
		return auth.Profile{}, repo.trapNoRowsErr(err, user.ErrNotFound, "saving profile")
	}
	return auth.Profile{
		UserID:   saved.UserID,
		Role:     auth.ParseRole(saved.Role.String),
		SchoolID: saved.SchoolID.String,
	}, nil
}
