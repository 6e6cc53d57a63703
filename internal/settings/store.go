package settings

import (
	"context"
	"sync"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/logging"
)

// Settings is the singleton system configuration record.
type Settings struct {
	ID                string `json:"_id"`
	CurrentStreamLink string `json:"currentStreamLink"`
	SiteName          string `json:"siteName"`
	MaintenanceMode   bool   `json:"maintenanceMode"`
	WelcomeMessage    string `json:"welcomeMessage"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
}

// Patch carries the fields an update touches; nil pointers are left
// alone server-side.
type Patch struct {
	CurrentStreamLink *string `json:"currentStreamLink,omitempty"`
	SiteName          *string `json:"siteName,omitempty"`
	MaintenanceMode   *bool   `json:"maintenanceMode,omitempty"`
	WelcomeMessage    *string `json:"welcomeMessage,omitempty"`
}

// Store mirrors the system settings record; Update adopts the server's
// returned record rather than applying the patch locally.
type Store struct {
	api *apiclient.Client

	mu        sync.Mutex
	settings  *Settings
	loading   bool
	lastError string
}

func NewStore(api *apiclient.Client) *Store {
	return &Store{api: api}
}

func (s *Store) Fetch(ctx context.Context) error {
	l := logging.FromContext(ctx).With("store", "settings.fetch")
	s.begin()

	env, err := s.api.Get(ctx, "/settings")
	if err != nil {
		l.Warn("settings fetch failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to fetch settings"))
		return err
	}

	var current Settings
	if err := env.Decode(&current); err != nil {
		l.Error("settings response malformed", "error", err)
		s.fail("Failed to fetch settings")
		return err
	}

	s.mu.Lock()
	s.settings = &current
	s.loading = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Update(ctx context.Context, patch Patch) error {
	l := logging.FromContext(ctx).With("store", "settings.update")
	s.begin()

	env, err := s.api.Put(ctx, "/settings", patch)
	if err != nil {
		l.Warn("settings update failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to update settings"))
		return err
	}

	var updated Settings
	if err := env.Decode(&updated); err != nil {
		l.Error("settings response malformed", "error", err)
		s.fail("Failed to update settings")
		return err
	}

	s.mu.Lock()
	s.settings = &updated
	s.loading = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Settings() *Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return nil
	}
	out := *s.settings
	return &out
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

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = true
	s.lastError = ""
}

func (s *Store) fail(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	s.lastError = message
}
