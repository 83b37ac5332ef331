package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"storefront-admin/apperror"
	"storefront-admin/model"
	"storefront-admin/storage"
)

const (
	loginPath   = "/api/v1/login"
	profilePath = "/api/v1/profile"
)

// SessionState is a snapshot of the session.
type SessionState struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user"`
	Loading       bool        `json:"loading"`
	Error         string      `json:"error,omitempty"`
}

// Session owns the authentication token and the user profile. It is
// authenticated exactly when it holds a token. The token is persisted under
// storage.KeyToken and restored on construction; the profile is not.
type Session struct {
	api     API
	storage storage.Storage
	log     logrus.FieldLogger

	mu      sync.RWMutex
	token   string
	user    *model.User
	loading bool
	err     string
}

// NewSession restores a previously persisted token. A storage failure
// starts the session anonymous.
func NewSession(ctx context.Context, api API, st storage.Storage, log logrus.FieldLogger) *Session {
	s := &Session{api: api, storage: st, log: log.WithField("component", "session")}

	token, found, err := st.GetItem(ctx, storage.KeyToken)
	switch {
	case err != nil:
		s.log.WithError(err).Warn("could not restore session token")
	case found:
		s.token = token
	}
	return s
}

// Token implements apiclient.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := SessionState{
		Authenticated: s.token != "",
		Loading:       s.loading,
		Error:         s.err,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
	model.User
}

// Login authenticates against the backend. The response must carry a
// non-empty token; otherwise the session is left unchanged and
// apperror.ErrTokenNotFound is returned.
func (s *Session) Login(ctx context.Context, creds model.Credentials) (model.User, error) {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	user, token, err := s.login(ctx, creds)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		appErr := apperror.Normalize(err, "login failed")
		s.err = appErr.Message
		s.log.WithError(err).Warn("login failed")
		return model.User{}, appErr
	}
	s.token = token
	s.user = &user
	s.log.WithField("email", user.Email).Info("logged in")
	return user, nil
}

func (s *Session) login(ctx context.Context, creds model.Credentials) (model.User, string, error) {
	email, password := creds.Login()

	var env model.ItemEnvelope[loginData]
	if err := s.api.Post(ctx, loginPath, loginRequest{Email: email, Password: password}, &env); err != nil {
		return model.User{}, "", err
	}
	if env.Data.Token == "" {
		return model.User{}, "", apperror.ErrTokenNotFound
	}
	if err := s.storage.SetItem(ctx, storage.KeyToken, env.Data.Token); err != nil {
		return model.User{}, "", apperror.Wrap(apperror.KindTransport, "failed to persist session", err)
	}
	return env.Data.User, env.Data.Token, nil
}

// FetchProfile loads the current user. Any failure ends the session.
func (s *Session) FetchProfile(ctx context.Context) error {
	var env model.ItemEnvelope[model.User]
	if err := s.api.Post(ctx, profilePath, nil, &env); err != nil {
		s.log.WithError(err).Info("profile unavailable, logging out")
		if lerr := s.Logout(ctx); lerr != nil {
			s.log.WithError(lerr).Warn("logout after profile failure")
		}
		return apperror.Normalize(err, "failed to load profile")
	}

	s.mu.Lock()
	u := env.Data
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Logout clears the token and profile. The in-memory session is always
// cleared; the returned error only reports a failure to remove the
// persisted token.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.storage.RemoveItem(ctx, storage.KeyToken); err != nil {
		return apperror.Wrap(apperror.KindTransport, "failed to clear persisted session", err)
	}
	return nil
}
