package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/edutrack/core"
)

// Synchronizer keeps a Snapshot in step with an identity provider and the profile store.
//
// Every trigger (the initial probe, each received event, each sign-out) takes a generation
// when it is received; its write is dropped if a newer trigger has already written.
// After Stop no write is applied.
type Synchronizer struct {
	idp      IdentityProvider
	profiles ProfileStore
	cache    RoleCache
	logger   core.Logger

	mu      sync.Mutex
	snap    Snapshot
	gen     uint64
	started bool
	alive   bool
	sub     Subscription
	cancel  context.CancelFunc
	changed chan struct{}
}

func NewSynchronizer(idp IdentityProvider, profiles ProfileStore, cache RoleCache, logger core.Logger) *Synchronizer {
	return &Synchronizer{
		idp:      idp,
		profiles: profiles,
		cache:    cache,
		logger:   logger,
		changed:  make(chan struct{}),
	}
}

// Start subscribes to identity events and resolves the current session in the background.
// A Synchronizer can only be started once.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.alive = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.gen++
	gen := s.gen
	s.applyLocked(Action{Kind: ActionStart, Generation: gen})
	s.sub = s.idp.Subscribe()
	sub := s.sub
	s.mu.Unlock()

	go s.probe(ctx, gen)
	go s.listen(ctx, sub)
}

// Stop releases the subscription. In-flight work completes without effect.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	s.alive = false
	sub := s.sub
	s.sub = nil
	s.cancel()
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Wait blocks until the snapshot satisfies cond or ctx is done.
func (s *Synchronizer) Wait(ctx context.Context, cond func(Snapshot) bool) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap, changed := s.snap, s.changed
		s.mu.Unlock()

		if cond(snap) {
			return snap, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// SignIn forwards creds to the identity provider. The snapshot is updated by the resulting SIGNED_IN event.
func (s *Synchronizer) SignIn(ctx context.Context, creds Credentials) (*Session, error) {
	sess, err := s.idp.SignInWithPassword(ctx, creds)
	if err != nil {
		s.commit(Action{Kind: ActionError, Err: err})
		return nil, err
	}
	return sess, nil
}

// SignOut ends the session and clears the snapshot and the role cache without waiting for SIGNED_OUT.
func (s *Synchronizer) SignOut(ctx context.Context) error {
	gen := s.nextGen()
	if err := s.idp.SignOut(ctx); err != nil {
		s.commit(Action{Kind: ActionError, Err: err})
		return err
	}
	s.commit(Action{Kind: ActionSignedOut, Generation: gen})
	return nil
}

// UpdatePassword changes the password of the signed-in user. The snapshot is updated by the resulting USER_UPDATED event.
func (s *Synchronizer) UpdatePassword(ctx context.Context, pwd string) (*Session, error) {
	sess, err := s.idp.UpdatePassword(ctx, pwd)
	if err != nil {
		s.commit(Action{Kind: ActionError, Err: err})
		return nil, err
	}
	return sess, nil
}

// Reconnect resolves the session again once connectivity is back.
// Unlike the initial probe, a failure is only logged and leaves the snapshot as is.
func (s *Synchronizer) Reconnect(ctx context.Context) {
	gen := s.nextGen()
	sess, err := s.idp.GetSession(ctx)
	if err != nil {
		s.logger.Warn("reconnecting: getting session", err)
		return
	}
	a := Action{Kind: ActionResolved, Generation: gen, Session: sess}
	if sess != nil {
		a.Profile = s.fetchProfile(ctx, sess.User.ID)
	}
	s.commit(a)
}

func (s *Synchronizer) nextGen() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

func (s *Synchronizer) probe(ctx context.Context, gen uint64) {
	sess, err := s.idp.GetSession(ctx)
	if err != nil {
		s.logger.Error("getting session", errors.Wrap(err, "getting session"))
		s.commit(Action{Kind: ActionFailed, Generation: gen, Err: err})
		return
	}
	if sess == nil {
		s.commit(Action{Kind: ActionResolved, Generation: gen})
		return
	}
	s.commit(Action{
		Kind:       ActionResolved,
		Generation: gen,
		Session:    sess,
		Profile:    s.fetchProfile(ctx, sess.User.ID),
	})
}

func (s *Synchronizer) listen(ctx context.Context, sub Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			s.handle(ctx, s.nextGen(), ev)
		}
	}
}

func (s *Synchronizer) handle(ctx context.Context, gen uint64, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handling %s event: %v", ev.Kind, r)
			s.logger.Error("handling auth event", err)
			s.commit(Action{Kind: ActionFailed, Generation: gen, Err: err})
		}
	}()

	switch ev.Kind {
	case EventSignedOut:
		s.commit(Action{Kind: ActionSignedOut, Generation: gen})
	default: // SIGNED_IN, TOKEN_REFRESHED, USER_UPDATED & any other update
		a := Action{Kind: ActionResolved, Generation: gen, Session: ev.Session}
		if ev.Session != nil {
			a.Profile = s.fetchProfile(ctx, ev.Session.User.ID)
		}
		s.commit(a)
	}
}

// fetchProfile looks up the profile of userID; failures are logged and reported as no profile.
// It has no side effect: the role is cached by commit, once the write carrying the profile is accepted.
func (s *Synchronizer) fetchProfile(ctx context.Context, userID string) *Profile {
	prof, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Cause(err) == ErrProfileNotFound {
			s.logger.Warn(fmt.Sprintf("no profile for user %s", userID))
		} else {
			s.logger.Error("fetching profile", errors.Wrap(err, "fetching profile"))
		}
		return nil
	}
	return &prof
}

// commit applies a and reports whether it was accepted.
func (s *Synchronizer) commit(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || a.Stale(s.snap) {
		return false
	}
	s.applyLocked(a)

	switch {
	case a.Kind == ActionResolved && a.Profile != nil:
		s.storeRole(a.Profile)
	case a.Kind == ActionSignedOut:
		s.clearRole()
	}
	return true
}

func (s *Synchronizer) applyLocked(a Action) {
	s.snap = Reduce(s.snap, a)
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Synchronizer) storeRole(prof *Profile) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Store(CachedRole{Role: prof.Role, SchoolID: prof.SchoolID}); err != nil {
		s.logger.Warn("caching role", err)
	}
}

func (s *Synchronizer) clearRole() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(); err != nil {
		s.logger.Warn("clearing cached role", err)
	}
}
