package users

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/logging"
	"github.com/respectcfw/webclient/internal/session"
)

// Account is a platform member as the admin dashboard and streamer
// directory see it.
type Account struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Role        string              `json:"role"`
	Avatar      string              `json:"avatar"`
	Bio         string              `json:"bio"`
	Slug        string              `json:"slug"`
	IsActive    bool                `json:"isActive"`
	SocialLinks session.SocialLinks `json:"socialLinks"`
}

// Pagination mirrors the backend's list metadata.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// AccountInput is the admin create/update payload. Password only
// applies on create.
type AccountInput struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Slug     string `json:"slug,omitempty"`
	IsActive *bool  `json:"isActive,omitempty"`
}

// Store holds both the admin user table and the public streamer
// directory; updates and deletes patch both lists in place.
type Store struct {
	api *apiclient.Client

	mu         sync.Mutex
	users      []Account
	streamers  []Account
	pagination Pagination
	loading    bool
	lastError  string
}

func NewStore(api *apiclient.Client) *Store {
	return &Store{api: api, pagination: Pagination{Page: 1, Limit: 10}}
}

func (s *Store) FetchUsers(ctx context.Context, page, limit int, role string) error {
	l := logging.FromContext(ctx).With("store", "users.fetch")
	s.begin()

	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))
	params.Set("limit", strconv.Itoa(max(limit, 1)))
	if role != "" {
		params.Set("role", role)
	}

	env, err := s.api.Get(ctx, "/users?"+params.Encode())
	if err != nil {
		l.Warn("user fetch failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to fetch users"))
		return err
	}

	var payload struct {
		Users []Account `json:"users"`
	}
	if err := env.Decode(&payload); err != nil {
		l.Error("user response malformed", "error", err)
		s.fail("Failed to fetch users")
		return err
	}

	s.mu.Lock()
	s.users = payload.Users
	s.loading = false
	s.mu.Unlock()
	return nil
}

func (s *Store) FetchStreamers(ctx context.Context, page, limit int, search string) error {
	l := logging.FromContext(ctx).With("store", "users.fetch_streamers")
	s.begin()

	params := url.Values{}
	params.Set("page", strconv.Itoa(max(page, 1)))
	params.Set("limit", strconv.Itoa(max(limit, 1)))
	if search != "" {
		params.Set("search", search)
	}

	env, err := s.api.Get(ctx, "/users/streamers?"+params.Encode())
	if err != nil {
		l.Warn("streamer fetch failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to fetch streamers"))
		return err
	}

	var payload struct {
		Streamers  []Account  `json:"streamers"`
		Pagination Pagination `json:"pagination"`
	}
	if err := env.Decode(&payload); err != nil {
		l.Error("streamer response malformed", "error", err)
		s.fail("Failed to fetch streamers")
		return err
	}

	s.mu.Lock()
	s.streamers = payload.Streamers
	s.pagination = payload.Pagination
	s.loading = false
	s.mu.Unlock()
	return nil
}

// Create adds a user and prepends the returned record to the local
// table.
func (s *Store) Create(ctx context.Context, input AccountInput) error {
	l := logging.FromContext(ctx).With("store", "users.create")
	s.begin()

	env, err := s.api.Post(ctx, "/users", input)
	if err != nil {
		l.Warn("user create failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to create user"))
		return err
	}

	var created Account
	if err := env.Decode(&created); err != nil {
		l.Error("create response malformed", "error", err)
		s.fail("Failed to create user")
		return err
	}

	s.mu.Lock()
	s.users = append([]Account{created}, s.users...)
	s.loading = false
	s.mu.Unlock()
	return nil
}

// Update patches a user server-side and merges the change into both
// local lists.
func (s *Store) Update(ctx context.Context, id string, input AccountInput) error {
	l := logging.FromContext(ctx).With("store", "users.update", "user_id", id)
	s.begin()

	if _, err := s.api.Put(ctx, "/users/"+id, input); err != nil {
		l.Warn("user update failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to update user"))
		return err
	}

	s.mu.Lock()
	applyInput(s.users, id, input)
	applyInput(s.streamers, id, input)
	s.loading = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	l := logging.FromContext(ctx).With("store", "users.delete", "user_id", id)
	s.begin()

	if _, err := s.api.Delete(ctx, "/users/"+id); err != nil {
		l.Warn("user delete failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to delete user"))
		return err
	}

	s.mu.Lock()
	s.users = dropByID(s.users, id)
	s.streamers = dropByID(s.streamers, id)
	s.loading = false
	s.mu.Unlock()
	return nil
}

func applyInput(list []Account, id string, input AccountInput) {
	for i := range list {
		if list[i].ID != id {
			continue
		}
		if input.Name != "" {
			list[i].Name = input.Name
		}
		if input.Email != "" {
			list[i].Email = input.Email
		}
		if input.Role != "" {
			list[i].Role = input.Role
		}
		if input.Bio != "" {
			list[i].Bio = input.Bio
		}
		if input.Slug != "" {
			list[i].Slug = input.Slug
		}
		if input.IsActive != nil {
			list[i].IsActive = *input.IsActive
		}
	}
}

func dropByID(list []Account, id string) []Account {
	kept := list[:0]
	for _, a := range list {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	return kept
}

func (s *Store) Users() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, len(s.users))
	copy(out, s.users)
	return out
}

func (s *Store) Streamers() []Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, len(s.streamers))
	copy(out, s.streamers)
	return out
}

func (s *Store) StreamersPagination() Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
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
