package catalog

import (
	"context"
	"mime/multipart"
	"net/url"
	"strconv"
	"sync"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/logging"
	"github.com/respectcfw/webclient/internal/session"
)

// Seller is the embedded owner record on a marketplace item.
type Seller struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Slug   string `json:"slug,omitempty"`
}

// Item is one marketplace listing.
type Item struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Seller      Seller  `json:"seller"`
	ContactInfo string  `json:"contactInfo,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// ListFilter narrows the paginated catalog listing. Prices stay as
// strings: they pass through to query parameters unparsed, as the form
// inputs produce them.
type ListFilter struct {
	Search   string
	MinPrice string
	MaxPrice string
}

// ItemForm is the multipart create-listing submission.
type ItemForm struct {
	Title       string
	Description string
	Price       string
	ContactInfo string
	Image       *session.FileUpload
}

// Store mirrors the marketplace catalog plus a per-user listing view.
type Store struct {
	api *apiclient.Client

	mu          sync.Mutex
	items       []Item
	userItems   []Item
	totalPages  int
	currentPage int
	loading     bool
	lastError   string
}

func NewStore(api *apiclient.Client) *Store {
	return &Store{api: api, totalPages: 1, currentPage: 1}
}

func (s *Store) FetchItems(ctx context.Context, page, limit int, filter ListFilter) error {
	l := logging.FromContext(ctx).With("store", "catalog.fetch")
	s.begin()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	if filter.Search != "" {
		params.Set("search", filter.Search)
	}
	if filter.MinPrice != "" {
		params.Set("minPrice", filter.MinPrice)
	}
	if filter.MaxPrice != "" {
		params.Set("maxPrice", filter.MaxPrice)
	}

	env, err := s.api.Get(ctx, "/items?"+params.Encode())
	if err != nil {
		l.Warn("item fetch failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to fetch items"))
		return err
	}

	var payload struct {
		Items       []Item `json:"items"`
		TotalPages  int    `json:"totalPages"`
		CurrentPage int    `json:"currentPage"`
	}
	if err := env.Decode(&payload); err != nil {
		l.Error("item response malformed", "error", err)
		s.fail("Failed to fetch items")
		return err
	}

	s.mu.Lock()
	s.items = payload.Items
	s.totalPages = payload.TotalPages
	s.currentPage = payload.CurrentPage
	s.loading = false
	s.mu.Unlock()
	return nil
}

func (s *Store) FetchUserItems(ctx context.Context, userID string) error {
	l := logging.FromContext(ctx).With("store", "catalog.fetch_user_items", "user_id", userID)
	s.begin()

	env, err := s.api.Get(ctx, "/items/user/"+userID)
	if err != nil {
		l.Warn("user item fetch failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to fetch user items"))
		return err
	}

	var items []Item
	if err := env.Decode(&items); err != nil {
		l.Error("user item response malformed", "error", err)
		s.fail("Failed to fetch user items")
		return err
	}

	s.mu.Lock()
	s.userItems = items
	s.loading = false
	s.mu.Unlock()
	return nil
}

// CreateItem submits a listing (multipart, mandatory image on the
// backend side) and refetches the first catalog page.
func (s *Store) CreateItem(ctx context.Context, form ItemForm) error {
	l := logging.FromContext(ctx).With("store", "catalog.create")
	s.begin()

	_, err := s.api.PostForm(ctx, "/items", func(w *multipart.Writer) error {
		fields := map[string]string{
			"title":       form.Title,
			"description": form.Description,
			"price":       form.Price,
			"contactInfo": form.ContactInfo,
		}
		for name, value := range fields {
			if value == "" {
				continue
			}
			if err := w.WriteField(name, value); err != nil {
				return err
			}
		}
		if form.Image != nil {
			fw, err := w.CreateFormFile("image", form.Image.Name)
			if err != nil {
				return err
			}
			if _, err := fw.Write(form.Image.Content); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		l.Warn("item create failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to create item"))
		return err
	}

	return s.FetchItems(ctx, 1, 12, ListFilter{})
}

// DeleteItem removes a listing and filters it out of both local lists.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	l := logging.FromContext(ctx).With("store", "catalog.delete", "item_id", id)
	s.begin()

	if _, err := s.api.Delete(ctx, "/items/"+id); err != nil {
		l.Warn("item delete failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to delete item"))
		return err
	}

	s.mu.Lock()
	s.items = dropByID(s.items, id)
	s.userItems = dropByID(s.userItems, id)
	s.loading = false
	s.mu.Unlock()
	return nil
}

func dropByID(list []Item, id string) []Item {
	kept := list[:0]
	for _, it := range list {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	return kept
}

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) UserItems() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.userItems))
	copy(out, s.userItems)
	return out
}

func (s *Store) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPages
}

func (s *Store) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
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
