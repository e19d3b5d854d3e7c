package echoapi

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/services/identity"
)

const (
	contextSnapshotKey = "authSnapshot"
	contextTokenKey    = "authToken"
	bearerPrefix       = "Bearer "
)

// profileCache is a read-through cache of the profile store.
// Users without a profile are cached too, as a nil profile.
type profileCache struct {
	store auth.ProfileStore
	lru   *expirable.LRU[string, *auth.Profile]
}

func newProfileCache(store auth.ProfileStore, size int, ttl time.Duration) *profileCache {
	if size <= 0 {
		size = 1
	}
	return &profileCache{
		store: store,
		lru:   expirable.NewLRU[string, *auth.Profile](size, nil, ttl),
	}
}

func (c *profileCache) get(ctx context.Context, userID string) (*auth.Profile, error) {
	if prof, ok := c.lru.Get(userID); ok {
		return prof, nil
	}

	prof, err := c.store.GetProfile(ctx, userID)
	switch {
	case err == nil:
		c.lru.Add(userID, &prof)
		return &prof, nil
	case errors.Is(err, auth.ErrProfileNotFound):
		c.lru.Add(userID, nil)
		return nil, nil
	}
	return nil, errors.Wrap(err, "fetching profile")
}

func (c *profileCache) forget(userID string) {
	c.lru.Remove(userID)
}

func bearerToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// snapshotMiddleware resolves the auth snapshot of the request's bearer token.
func (s *server) snapshotMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token := bearerToken(ctx)
		ctx.Set(contextTokenKey, token)
		ctx.Set(contextSnapshotKey, s.resolveSnapshot(ctx.Request().Context(), token))
		return next(ctx)
	}
}

// resolveSnapshot never leaves the snapshot loading: a failed session lookup resolves to no user with an error,
// and a failed profile lookup to a user without a role.
func (s *server) resolveSnapshot(ctx context.Context, token string) auth.Snapshot {
	if token == "" {
		return auth.Reduce(auth.Snapshot{}, auth.Action{Kind: auth.ActionSignedOut})
	}

	sess, err := s.deps.Identity.Verify(ctx, token)
	if err != nil {
		if identity.Rejected(err) {
			return auth.Reduce(auth.Snapshot{}, auth.Action{Kind: auth.ActionSignedOut})
		}
		s.deps.Logger.Error("verifying session", errors.Wrap(err, "verifying session"))
		return auth.Reduce(auth.Snapshot{}, auth.Action{Kind: auth.ActionFailed, Err: err})
	}
	return auth.Reduce(auth.Snapshot{}, auth.Action{Kind: auth.ActionResolved, Session: &sess, Profile: s.profile(ctx, sess.User)})
}

// profile is the cached profile of usr. Lookup failures are logged and resolve to no profile.
func (s *server) profile(ctx context.Context, usr auth.User) *auth.Profile {
	prof, err := s.profiles.get(ctx, usr.ID)
	if err != nil {
		s.deps.Logger.Error("fetching profile", err, usr)
		return nil
	}
	return prof
}

func contextSnapshot(ctx echo.Context) auth.Snapshot {
	if snap, ok := ctx.Get(contextSnapshotKey).(auth.Snapshot); ok {
		return snap
	}
	return auth.Snapshot{}
}

func contextToken(ctx echo.Context) string {
	token, _ := ctx.Get(contextTokenKey).(string)
	return token
}
