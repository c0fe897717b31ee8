package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"dumptrack-api/internal/gateway"
	"dumptrack-api/internal/model"
	"dumptrack-api/internal/repository"
)

// SessionStore holds the signed-in identity and its profile.
type SessionStore struct {
	state
	gw   gateway.Gateway
	opts options

	mu       sync.RWMutex
	identity *model.Identity
	profile  *model.Profile
}

// NewSessionStore creates a session store over gw.
func NewSessionStore(gw gateway.Gateway, opts ...Option) *SessionStore {
	o := newOptions("session_store", opts)
	return &SessionStore{
		state: state{name: "session", metrics: o.metrics},
		gw:    gw,
		opts:  o,
	}
}

// SignUp registers an identity and creates its profile row. The profile
// role is elevated when the email matches the administrator policy. A
// failed profile insert leaves the identity registered.
func (s *SessionStore) SignUp(ctx context.Context, email, password string, fields model.ProfileFields) (_ *model.Identity, err error) {
	done := s.begin("sign_up")
	defer func() { done(err) }()

	identity, err := s.gw.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	profile := model.Profile{
		ID:        identity.ID,
		Email:     identity.Email,
		Firstname: fields.Firstname,
		Lastname:  fields.Lastname,
		Username:  fields.Username,
		Role:      ElevatedRole(identity.Email, fields.Role, s.opts.adminTrigger),
		CreatedAt: nowString(s.opts.now),
	}
	row, err := repository.EncodeRow(profile)
	if err != nil {
		return nil, err
	}
	if _, err := s.gw.Insert(ctx, repository.TableUsers, row); err != nil {
		s.opts.logger.Warn("profile insert failed after sign-up",
			zap.String("user_id", identity.ID), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.identity = identity
	s.profile = &profile
	s.mu.Unlock()

	s.opts.logger.Info("user signed up", zap.String("user_id", identity.ID), zap.String("role", profile.Role))
	return identity, nil
}

// Login authenticates and loads the matching profile. A failed profile
// fetch does not fail the login.
func (s *SessionStore) Login(ctx context.Context, email, password string) (_ *model.Identity, err error) {
	done := s.begin("login")
	defer func() { done(err) }()

	identity, err := s.gw.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.SetUser(identity)

	if err := s.loadProfile(ctx, identity.ID); err != nil {
		s.opts.logger.Warn("profile fetch after login failed", zap.String("user_id", identity.ID), zap.Error(err))
	}
	return identity, nil
}

// Logout ends the gateway session. The local identity and profile are
// cleared even when the gateway call fails.
func (s *SessionStore) Logout(ctx context.Context) (err error) {
	done := s.begin("logout")
	defer func() { done(err) }()

	err = s.gw.SignOut(ctx)

	s.mu.Lock()
	s.identity = nil
	s.profile = nil
	s.mu.Unlock()
	return err
}

// FetchUserProfile loads the profile of the current identity. Without an
// identity it does nothing.
func (s *SessionStore) FetchUserProfile(ctx context.Context) (err error) {
	identity := s.Identity()
	if identity == nil {
		return nil
	}

	done := s.begin("fetch_user_profile")
	defer func() { done(err) }()
	return s.loadProfile(ctx, identity.ID)
}

func (s *SessionStore) loadProfile(ctx context.Context, id string) error {
	rows, err := s.gw.Select(ctx, repository.TableUsers, repository.Query{
		Filters: []repository.Filter{repository.Eq("id", id)},
	})
	if err != nil {
		return err
	}

	var profiles []model.Profile
	if err := repository.DecodeRows(rows, &profiles); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(profiles) == 0 {
		s.profile = nil
		return nil
	}
	s.profile = &profiles[0]
	return nil
}

// Refresh reloads the identity from the gateway session and its profile.
// An expired session clears both.
func (s *SessionStore) Refresh(ctx context.Context) (err error) {
	done := s.begin("refresh")
	defer func() { done(err) }()

	identity, err := s.gw.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	if identity == nil {
		s.mu.Lock()
		s.identity = nil
		s.profile = nil
		s.mu.Unlock()
		return nil
	}

	s.SetUser(identity)
	return s.loadProfile(ctx, identity.ID)
}

// DeleteUser removes the profile row with id. The identity itself is left
// in place.
func (s *SessionStore) DeleteUser(ctx context.Context, id string) (err error) {
	done := s.begin("delete_user")
	defer func() { done(err) }()

	if err := s.gw.Delete(ctx, repository.TableUsers, repository.Eq("id", id)); err != nil {
		return err
	}

	s.mu.Lock()
	if s.profile != nil && s.profile.ID == id {
		s.profile = nil
	}
	s.mu.Unlock()
	return nil
}

// ListProfiles returns every profile, newest first.
func (s *SessionStore) ListProfiles(ctx context.Context) (_ []model.Profile, err error) {
	done := s.begin("list_profiles")
	defer func() { done(err) }()

	rows, err := s.gw.Select(ctx, repository.TableUsers, repository.Query{Order: repository.Desc("created_at")})
	if err != nil {
		return nil, err
	}
	var profiles []model.Profile
	if err := repository.DecodeRows(rows, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// SetUser replaces the current identity. A different identity drops the
// cached profile.
func (s *SessionStore) SetUser(identity *model.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if identity == nil || s.identity == nil || s.identity.ID != identity.ID {
		s.profile = nil
	}
	if identity == nil {
		s.identity = nil
		return
	}
	cp := *identity
	s.identity = &cp
}

// Identity returns a copy of the current identity, or nil.
func (s *SessionStore) Identity() *model.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	cp := *s.identity
	return &cp
}

// Profile returns a copy of the cached profile, or nil.
func (s *SessionStore) Profile() *model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	cp := *s.profile
	return &cp
}

// IsAuthenticated reports whether an identity is set.
func (s *SessionStore) IsAuthenticated() bool {
	return s.Identity() != nil
}

// IsAdministrator applies the elevation policy to the cached profile.
func (s *SessionStore) IsAdministrator() bool {
	return IsAdministrator(s.Profile(), s.opts.adminTrigger)
}
