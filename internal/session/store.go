package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/credstore"
	"github.com/respectcfw/webclient/internal/logging"
)

// ErrAccessDenied is returned by AdminLogin when the credentials are
// valid but the account is not an admin. This is a UX guard only; the
// backend enforces the real role checks.
var ErrAccessDenied = errors.New("access denied: admin only")

const adminRole = "admin"

// Store owns the identity/token lifecycle. Every auth-related network
// operation funnels through here; the bearer token it persists is what
// the HTTP adapter attaches to outbound calls.
type Store struct {
	api   *apiclient.Client
	state *credstore.Store

	mu            sync.Mutex
	user          *User
	accessToken   string
	authenticated bool
	loading       bool
	lastError     string
}

func NewStore(api *apiclient.Client, state *credstore.Store) *Store {
	return &Store{api: api, state: state}
}

// snapshot is the restorable subset persisted under the auth-storage
// key. Loading and error are transient and never persisted.
type snapshot struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"accessToken"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

type loginPayload struct {
	User        wireUser `json:"user"`
	AccessToken string   `json:"accessToken"`
}

// Restore rehydrates the session from the persisted snapshot. Called
// once at process start, before CheckAuth.
func (s *Store) Restore() {
	raw, ok := s.state.Get(credstore.KeyAuthSnapshot)
	if !ok {
		return
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = snap.User
	s.accessToken = snap.AccessToken
	s.authenticated = snap.IsAuthenticated && snap.User != nil && snap.AccessToken != ""
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("store", "session.login", "email", email)
	s.begin()

	env, err := s.api.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		l.Warn("login failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Login failed"))
		return err
	}

	var payload loginPayload
	if err := env.Decode(&payload); err != nil {
		l.Error("login response malformed", "error", err)
		s.fail("Login failed")
		return err
	}

	if err := s.adopt(payload.User.normalize(), payload.AccessToken); err != nil {
		l.Error("persist session failed", "error", err)
		s.fail("Login failed")
		return err
	}

	l.Info("login successful")
	return nil
}

// AdminLogin performs the same call as Login but discards the result
// unless the returned role is admin. Nothing is persisted on the
// denied path.
func (s *Store) AdminLogin(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("store", "session.admin_login", "email", email)
	s.begin()

	env, err := s.api.Post(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		l.Warn("admin login failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Admin login failed"))
		return err
	}

	var payload loginPayload
	if err := env.Decode(&payload); err != nil {
		l.Error("login response malformed", "error", err)
		s.fail("Admin login failed")
		return err
	}

	if payload.User.Role != adminRole {
		l.Warn("admin login denied", "role", payload.User.Role)
		s.fail("Access denied. Admin only.")
		return ErrAccessDenied
	}

	if err := s.adopt(payload.User.normalize(), payload.AccessToken); err != nil {
		l.Error("persist session failed", "error", err)
		s.fail("Admin login failed")
		return err
	}

	l.Info("admin login successful")
	return nil
}

// FileUpload is an in-memory file attached to a multipart form.
type FileUpload struct {
	Name    string
	Content []byte
}

// RegisterForm is the sign-up submission. Avatar is optional.
type RegisterForm struct {
	Name     string
	Email    string
	Password string
	Slug     string
	Bio      string
	Avatar   *FileUpload
}

func (s *Store) Register(ctx context.Context, form RegisterForm) error {
	l := logging.FromContext(ctx).With("store", "session.register", "email", form.Email)
	s.begin()

	env, err := s.api.PostForm(ctx, "/auth/register", func(w *multipart.Writer) error {
		fields := map[string]string{
			"name":     form.Name,
			"email":    form.Email,
			"password": form.Password,
			"slug":     form.Slug,
			"bio":      form.Bio,
		}
		for name, value := range fields {
			if value == "" {
				continue
			}
			if err := w.WriteField(name, value); err != nil {
				return err
			}
		}
		if form.Avatar != nil {
			fw, err := w.CreateFormFile("avatar", form.Avatar.Name)
			if err != nil {
				return err
			}
			if _, err := fw.Write(form.Avatar.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		l.Warn("registration failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Registration failed"))
		return err
	}

	var payload loginPayload
	if err := env.Decode(&payload); err != nil {
		l.Error("register response malformed", "error", err)
		s.fail("Registration failed")
		return err
	}

	if err := s.adopt(payload.User.normalize(), payload.AccessToken); err != nil {
		l.Error("persist session failed", "error", err)
		s.fail("Registration failed")
		return err
	}

	l.Info("registration successful")
	return nil
}

// Logout notifies the server best-effort and clears local state
// unconditionally. A dead backend must never leave the client stuck
// looking authenticated.
func (s *Store) Logout(ctx context.Context) {
	l := logging.FromContext(ctx).With("store", "session.logout")

	if _, err := s.api.Post(ctx, "/auth/logout", nil); err != nil {
		l.Warn("logout notification failed", "error", err)
	}

	s.state.Delete(credstore.KeyToken)
	s.state.Delete(credstore.KeyRefreshToken)

	s.mu.Lock()
	s.user = nil
	s.accessToken = ""
	s.authenticated = false
	s.mu.Unlock()

	s.persistSnapshot()
	l.Info("logout complete")
}

// ForgotPassword requests a reset flow keyed by both email and slug.
// The raw envelope is returned so the caller can distinguish a
// development-mode direct reset link from a production email-dispatch
// message.
func (s *Store) ForgotPassword(ctx context.Context, email, slug string) (*apiclient.Envelope, error) {
	l := logging.FromContext(ctx).With("store", "session.forgot_password", "email", email)
	s.begin()

	env, err := s.api.Post(ctx, "/auth/forgot-password", map[string]string{
		"email": email,
		"slug":  slug,
	})
	if err != nil {
		l.Warn("password reset request failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to request password reset"))
		return nil, err
	}

	s.settle()
	return env, nil
}

// ResetPassword consumes a one-shot reset token.
func (s *Store) ResetPassword(ctx context.Context, token, password string) error {
	l := logging.FromContext(ctx).With("store", "session.reset_password")
	s.begin()

	_, err := s.api.Post(ctx, "/auth/reset-password", map[string]string{
		"token":       token,
		"newPassword": password,
	})
	if err != nil {
		l.Warn("password reset failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to reset password"))
		return err
	}

	s.settle()
	return nil
}

// CheckAuth verifies a persisted token by fetching the profile. On
// failure it leaves state alone: the adapter's 401 path owns
// invalidation, and doing it here too would race it.
func (s *Store) CheckAuth(ctx context.Context) error {
	if s.state.Token() == "" {
		return nil
	}
	l := logging.FromContext(ctx).With("store", "session.check_auth")

	env, err := s.api.Get(ctx, "/auth/profile")
	if err != nil {
		l.Warn("auth check failed", "error", err)
		return err
	}

	var wire wireUser
	if err := env.Decode(&wire); err != nil {
		l.Error("profile response malformed", "error", err)
		return err
	}

	s.mu.Lock()
	s.user = wire.normalize()
	s.authenticated = true
	s.mu.Unlock()

	s.persistSnapshot()
	l.Info("session verified")
	return nil
}

// ProfileForm is the profile-edit submission. Zero-valued fields are
// omitted; Avatar replaces the stored image when present.
type ProfileForm struct {
	Name   string
	Bio    string
	Slug   string
	Social SocialLinks
	Avatar *FileUpload
}

// UpdateProfile pushes edits to the backend and adopts the returned
// record without a re-login.
func (s *Store) UpdateProfile(ctx context.Context, form ProfileForm) error {
	l := logging.FromContext(ctx).With("store", "session.update_profile")
	s.begin()

	env, err := s.api.PutForm(ctx, "/auth/profile", func(w *multipart.Writer) error {
		fields := map[string]string{
			"name": form.Name,
			"bio":  form.Bio,
			"slug": form.Slug,
		}
		for name, value := range fields {
			if value == "" {
				continue
			}
			if err := w.WriteField(name, value); err != nil {
				return err
			}
		}
		links, err := json.Marshal(form.Social)
		if err != nil {
			return err
		}
		if err := w.WriteField("socialLinks", string(links)); err != nil {
			return err
		}
		if form.Avatar != nil {
			fw, err := w.CreateFormFile("avatar", form.Avatar.Name)
			if err != nil {
				return err
			}
			if _, err := fw.Write(form.Avatar.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		l.Warn("profile update failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to update profile"))
		return err
	}

	var wire wireUser
	if err := env.Decode(&wire); err != nil {
		l.Error("profile response malformed", "error", err)
		s.fail("Failed to update profile")
		return err
	}

	s.SetUser(wire.normalize(), s.Token())
	s.settle()
	l.Info("profile updated")
	return nil
}

// SetUser pushes an identity into the store from an external flow. It
// persists the token side-channel and snapshot exactly like login.
func (s *Store) SetUser(user *User, token string) {
	s.state.Set(credstore.KeyToken, token)

	s.mu.Lock()
	s.user = user
	s.accessToken = token
	s.authenticated = user != nil && token != ""
	s.mu.Unlock()

	s.persistSnapshot()
}

// ClearError clears only the error slot. Idempotent.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

func (s *Store) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastError = ""
}

func (s *Store) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}

func (s *Store) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.lastError = message
}

// adopt stores a fresh identity: token to the side-channel the adapter
// reads, then in-memory state, then the persisted snapshot.
func (s *Store) adopt(user *User, token string) error {
	if err := s.state.Set(credstore.KeyToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	s.mu.Lock()
	s.user = user
	s.accessToken = token
	s.authenticated = true
	s.loading = false
	s.lastError = ""
	s.mu.Unlock()

	return s.persistSnapshot()
}

func (s *Store) persistSnapshot() error {
	s.mu.Lock()
	snap := snapshot{
		User:            s.user,
		AccessToken:     s.accessToken,
		IsAuthenticated: s.authenticated,
	}
	s.mu.Unlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}
	if err := s.state.Set(credstore.KeyAuthSnapshot, string(raw)); err != nil {
		return fmt.Errorf("persist session snapshot: %w", err)
	}
	return nil
}
