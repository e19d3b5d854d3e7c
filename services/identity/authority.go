// Package identity is the identity provider: it owns credentials and sessions,
// and offers a client that streams auth-state events.
package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/auth"
	"github.com/trezcool/edutrack/core/user"
)

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrRefreshExpired     = errors.New("refresh has expired")
	ErrAccountDeactivated = user.ErrAccountDeactivated
)

// Backend is the server side of the identity provider.
type Backend interface {
	SignIn(ctx context.Context, creds auth.Credentials) (auth.Session, error)
	Verify(ctx context.Context, token string) (auth.Session, error)
	Refresh(ctx context.Context, token string) (auth.Session, error)
	SignOut(ctx context.Context, token string) error
	UpdatePassword(ctx context.Context, token, pwd string) (auth.Session, error)
}

// Authority is the in-process Backend, on top of the account service.
type Authority struct {
	users   user.Service
	tokens  *TokenIssuer
	// revoked holds the IDs of tokens signed out before they expired, until they would have.
	// It has no size limit: evicting an ID would bring its token back to life.
	revoked *expirable.LRU[string, struct{}]
}

var _ Backend = (*Authority)(nil)

func NewAuthority(users user.Service, tokens *TokenIssuer) *Authority {
	ttl := tokens.expiration
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Authority{
		users:   users,
		tokens:  tokens,
		revoked: expirable.NewLRU[string, struct{}](0, nil, ttl),
	}
}

func (a *Authority) SignIn(ctx context.Context, creds auth.Credentials) (auth.Session, error) {
	usr, err := a.users.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		return auth.Session{}, err
	}
	return a.tokens.Issue(usr.Identity(), time.Now())
}

// claims parses token and checks that it was not revoked and that its user is still active.
func (a *Authority) claims(ctx context.Context, token string) (*Claims, user.User, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, user.User{}, err
	}
	if a.revoked.Contains(claims.Id) {
		return nil, user.User{}, ErrInvalidToken
	}

	usr, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.User{}, ErrInvalidToken
		}
		return nil, user.User{}, errors.Wrap(err, "finding token user")
	}
	if !usr.IsActive {
		return nil, user.User{}, ErrAccountDeactivated
	}
	return claims, usr, nil
}

func (a *Authority) Verify(ctx context.Context, token string) (auth.Session, error) {
	claims, usr, err := a.claims(ctx, token)
	if err != nil {
		return auth.Session{}, err
	}
	return auth.Session{
		AccessToken: token,
		ExpiresAt:   time.Unix(claims.ExpiresAt, 0).UTC(),
		User:        usr.Identity(),
	}, nil
}

func (a *Authority) Refresh(ctx context.Context, token string) (auth.Session, error) {
	claims, usr, err := a.claims(ctx, token)
	if err != nil {
		return auth.Session{}, err
	}
	if time.Now().After(a.tokens.RefreshDeadline(claims)) {
		return auth.Session{}, ErrRefreshExpired
	}

	sess, err := a.tokens.Issue(usr.Identity(), time.Unix(claims.OrigIssuedAt, 0))
	if err != nil {
		return auth.Session{}, err
	}
	a.revoked.Add(claims.Id, struct{}{})
	return sess, nil
}

// SignOut revokes token. Invalid tokens are already signed out.
func (a *Authority) SignOut(_ context.Context, token string) error {
	if claims, err := a.tokens.Parse(token); err == nil {
		a.revoked.Add(claims.Id, struct{}{})
	}
	return nil
}

// UpdatePassword sets the password of the token's user; pwd must already satisfy the password policy.
func (a *Authority) UpdatePassword(ctx context.Context, token, pwd string) (auth.Session, error) {
	claims, usr, err := a.claims(ctx, token)
	if err != nil {
		return auth.Session{}, err
	}
	if usr, err = a.users.SetPassword(ctx, usr, pwd); err != nil {
		return auth.Session{}, errors.Wrap(err, "setting password")
	}
	return auth.Session{
		AccessToken: token,
		ExpiresAt:   time.Unix(claims.ExpiresAt, 0).UTC(),
		User:        usr.Identity(),
	}, nil
}
