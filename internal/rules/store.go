package rules

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/logging"
)

// Rule is one community rule row.
type Rule struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsActive    bool   `json:"isActive"`
}

// RuleInput is the create/update payload.
type RuleInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	IsActive    bool   `json:"isActive"`
}

// Store mirrors the rules list. Create and Update refetch the whole
// list; Delete only filters the local slice.
type Store struct {
	api *apiclient.Client

	mu        sync.Mutex
	rules     []Rule
	loading   bool
	lastError string
}

func NewStore(api *apiclient.Client) *Store {
	return &Store{api: api}
}

// Fetch loads the rules list, optionally filtered to active/inactive.
func (s *Store) Fetch(ctx context.Context, isActive *bool) error {
	l := logging.FromContext(ctx).With("store", "rules.fetch")
	s.begin()

	params := url.Values{}
	params.Set("limit", "100")
	if isActive != nil {
		params.Set("isActive", strconv.FormatBool(*isActive))
	}

	env, err := s.api.Get(ctx, "/rules?"+params.Encode())
	if err != nil {
		l.Warn("rules fetch failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to fetch rules"))
		return err
	}

	var payload struct {
		Rules []Rule `json:"rules"`
	}
	if err := env.Decode(&payload); err != nil {
		l.Error("rules response malformed", "error", err)
		s.fail("Failed to fetch rules")
		return err
	}

	s.mu.Lock()
	s.rules = payload.Rules
	s.loading = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Create(ctx context.Context, input RuleInput) error {
	l := logging.FromContext(ctx).With("store", "rules.create")
	s.begin()

	if _, err := s.api.Post(ctx, "/rules", input); err != nil {
		l.Warn("rule create failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to create rule"))
		return err
	}

	return s.Fetch(ctx, nil)
}

func (s *Store) Update(ctx context.Context, id string, input RuleInput) error {
	l := logging.FromContext(ctx).With("store", "rules.update", "rule_id", id)
	s.begin()

	if _, err := s.api.Put(ctx, "/rules/"+id, input); err != nil {
		l.Warn("rule update failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to update rule"))
		return err
	}

	return s.Fetch(ctx, nil)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	l := logging.FromContext(ctx).With("store", "rules.delete", "rule_id", id)
	s.begin()

	if _, err := s.api.Delete(ctx, "/rules/"+id); err != nil {
		l.Warn("rule delete failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to delete rule"))
		return err
	}

	s.mu.Lock()
	kept := s.rules[:0]
	for _, r := range s.rules {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.rules = kept
	s.loading = false
	s.mu.Unlock()
	return nil
}

func (s *Store) Rules() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
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
