package identity

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core/auth"
)

// SessionStore persists the client's copy of its session.
type SessionStore interface {
	LoadSession() (*auth.Session, error)
	SaveSession(sess *auth.Session) error
	ClearSession() error
}

// MemoryStore is a SessionStore living as long as the process.
type MemoryStore struct {
	mu   sync.Mutex
	sess *auth.Session
}

var _ SessionStore = (*MemoryStore)(nil)

func (m *MemoryStore) LoadSession() (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return nil, nil
	}
	sess := *m.sess
	return &sess, nil
}

func (m *MemoryStore) SaveSession(sess *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess == nil {
		m.sess = nil
		return nil
	}
	cp := *sess
	m.sess = &cp
	return nil
}

func (m *MemoryStore) ClearSession() error { return m.SaveSession(nil) }

// Client is the client side of the identity provider. It keeps the session in a SessionStore
// and announces every change of auth state to its subscribers.
type Client struct {
	mu            sync.Mutex // serializes session changes
	backend       Backend
	store         SessionStore
	hub           *hub
	refreshMargin time.Duration
	nowFunc       func() time.Time
}

var _ auth.IdentityProvider = (*Client)(nil)

func NewClient(backend Backend, store SessionStore, refreshMargin time.Duration) *Client {
	return &Client{
		backend:       backend,
		store:         store,
		hub:           newHub(),
		refreshMargin: refreshMargin,
		nowFunc:       time.Now,
	}
}

// Rejected reports whether err means the stored session can no longer be used.
func Rejected(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrRefreshExpired) || errors.Is(err, ErrAccountDeactivated)
}

// dropLocked clears a session the backend refused; must be called with c.mu held.
func (c *Client) dropLocked() error {
	if err := c.store.ClearSession(); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	c.hub.publish(auth.Event{Kind: auth.EventSignedOut})
	return nil
}

// GetSession returns the stored session after checking it with the backend.
// A session about to expire is refreshed; a refused one is dropped and reported as signed out.
func (c *Client) GetSession(ctx context.Context) (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.store.LoadSession()
	if err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	if stored == nil {
		return nil, nil
	}

	if stored.ExpiresWithin(c.refreshMargin, c.nowFunc()) {
		sess, err := c.backend.Refresh(ctx, stored.AccessToken)
		if err != nil {
			if Rejected(err) {
				return nil, c.dropLocked()
			}
			return nil, errors.Wrap(err, "refreshing session")
		}
		if err = c.store.SaveSession(&sess); err != nil {
			return nil, errors.Wrap(err, "saving session")
		}
		c.hub.publish(auth.Event{Kind: auth.EventTokenRefreshed, Session: &sess})
		return &sess, nil
	}

	sess, err := c.backend.Verify(ctx, stored.AccessToken)
	if err != nil {
		if Rejected(err) {
			return nil, c.dropLocked()
		}
		return nil, errors.Wrap(err, "verifying session")
	}
	return &sess, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, creds auth.Credentials) (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, err := c.backend.SignIn(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err = c.store.SaveSession(&sess); err != nil {
		return nil, errors.Wrap(err, "saving session")
	}
	c.hub.publish(auth.Event{Kind: auth.EventSignedIn, Session: &sess})
	return &sess, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.store.LoadSession()
	if err != nil {
		return errors.Wrap(err, "loading session")
	}
	if stored != nil {
		if err = c.backend.SignOut(ctx, stored.AccessToken); err != nil {
			return err
		}
	}
	if err = c.store.ClearSession(); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	c.hub.publish(auth.Event{Kind: auth.EventSignedOut})
	return nil
}

// UpdatePassword changes the password of the signed-in user.
func (c *Client) UpdatePassword(ctx context.Context, pwd string) (*auth.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.store.LoadSession()
	if err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	if stored == nil {
		return nil, ErrInvalidToken
	}
	sess, err := c.backend.UpdatePassword(ctx, stored.AccessToken, pwd)
	if err != nil {
		return nil, err
	}
	if err = c.store.SaveSession(&sess); err != nil {
		return nil, errors.Wrap(err, "saving session")
	}
	c.hub.publish(auth.Event{Kind: auth.EventUserUpdated, Session: &sess})
	return &sess, nil
}

func (c *Client) Subscribe() auth.Subscription {
	return c.hub.subscribe()
}
