package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/pulsestack/pulsestack/board/internal/store"
)

// ErrInvalidCredentials is returned when username or password don't verify.
// Callers must not distinguish which of the two was wrong.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// SessionCookie is the cookie name carrying the session token.
const SessionCookie = "pulse_session"

const minPasswordLen = 8

// session is one live login.
type session struct {
	username  string
	expiresAt time.Time
}

// Service verifies credentials against the store and tracks sessions.
//
// Service is safe for concurrent use.
type Service struct {
	store      *store.Store
	sessionTTL time.Duration
	now        func() time.Time // injectable for deterministic tests

	mu       sync.Mutex
	sessions map[string]session
}

// New creates a Service backed by st.
func New(st *store.Store, sessionTTL time.Duration) *Service {
	return &Service{
		store:      st,
		sessionTTL: sessionTTL,
		now:        time.Now,
		sessions:   make(map[string]session),
	}
}

// SeedAdmin creates the initial admin account if it does not exist, with
// the must-change flag set. An existing account is left untouched, so a
// rotated password survives restarts.
func (s *Service) SeedAdmin(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash seed password: %w", err)
	}
	return s.store.EnsureUser(username, string(hash), true)
}

// Login verifies the credential pair and returns a new session token.
// mustChange is true while the account still carries its seeded password.
func (s *Service) Login(username, password string) (token string, mustChange bool, err error) {
	u, err := s.store.GetUser(username)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, ErrInvalidCredentials
	}
	if err != nil {
		return "", false, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", false, ErrInvalidCredentials
	}

	token, err = newToken()
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	s.sessions[token] = session{
		username:  username,
		expiresAt: s.now().Add(s.sessionTTL),
	}
	s.mu.Unlock()

	if u.MustChangePassword {
		slog.Warn("login with default credentials — rotate the admin password",
			"user", username)
	}
	return token, u.MustChangePassword, nil
}

// Logout invalidates the session token. Unknown tokens are a no-op.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Verify returns the username bound to a valid, unexpired session token.
func (s *Service) Verify(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", false
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", false
	}
	return sess.username, true
}

// ChangePassword verifies the old password, stores a hash of the new one,
// and clears the must-change flag. Other live sessions for the user are
// revoked so a stolen default-credential session dies with the rotation.
func (s *Service) ChangePassword(username, oldPassword, newPassword, keepToken string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("auth: new password must be at least %d characters", minPasswordLen)
	}

	u, err := s.store.GetUser(username)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.store.UpdatePassword(username, string(hash)); err != nil {
		return err
	}

	s.mu.Lock()
	for tok, sess := range s.sessions {
		if sess.username == username && tok != keepToken {
			delete(s.sessions, tok)
		}
	}
	s.mu.Unlock()

	slog.Info("password changed", "user", username)
	return nil
}

// newToken returns 32 bytes of hex-encoded randomness.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
