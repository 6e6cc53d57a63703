package orders

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/logging"
	"github.com/respectcfw/webclient/internal/signal"
)

type Party struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

type OrderItem struct {
	ID       string  `json:"_id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Item     struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
		Image string `json:"image"`
	} `json:"item"`
}

type Order struct {
	ID          string      `json:"_id"`
	OrderNumber string      `json:"orderNumber"`
	Buyer       Party       `json:"buyer"`
	Seller      Party       `json:"seller"`
	Items       []OrderItem `json:"items"`
	TotalPrice  float64     `json:"totalPrice"`
	Status      string      `json:"status"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt,omitempty"`
}

// ListFilter narrows the admin order listing.
type ListFilter struct {
	Search   string
	Status   string
	MinPrice string
	MaxPrice string
	Page     int
	Limit    int
}

// Store covers checkout plus the order-management surface of the
// dashboard. Checkout fires the order-created broadcaster so badge
// listeners refresh without polling.
type Store struct {
	api       *apiclient.Client
	created   *signal.Broadcaster
	mu        sync.Mutex
	orders    []Order
	total     int
	pages     int
	loading   bool
	lastError string
}

func NewStore(api *apiclient.Client, created *signal.Broadcaster) *Store {
	return &Store{api: api, created: created}
}

// Checkout turns the server-side cart into an order.
func (s *Store) Checkout(ctx context.Context) error {
	l := logging.FromContext(ctx).With("store", "orders.checkout")
	s.begin()

	if _, err := s.api.Post(ctx, "/orders/checkout", nil); err != nil {
		l.Warn("checkout failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to place order"))
		return err
	}

	s.settle()
	s.created.Notify()
	l.Info("order placed")
	return nil
}

// UnreadCount reads the badge counter for the current user.
func (s *Store) UnreadCount(ctx context.Context) (int, error) {
	env, err := s.api.Get(ctx, "/orders/unread-count")
	if err != nil {
		return 0, err
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := env.Decode(&payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

// MarkRead clears the unread badge.
func (s *Store) MarkRead(ctx context.Context) error {
	_, err := s.api.Put(ctx, "/orders/mark-read", nil)
	return err
}

// List loads the admin order table with the given filter.
func (s *Store) List(ctx context.Context, filter ListFilter) error {
	l := logging.FromContext(ctx).With("store", "orders.list")
	s.begin()

	params := url.Values{}
	if filter.Search != "" {
		params.Set("search", filter.Search)
	}
	if filter.Status != "" && filter.Status != "all" {
		params.Set("status", filter.Status)
	}
	if filter.MinPrice != "" {
		params.Set("minPrice", filter.MinPrice)
	}
	if filter.MaxPrice != "" {
		params.Set("maxPrice", filter.MaxPrice)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	env, err := s.api.Get(ctx, "/orders?"+params.Encode())
	if err != nil {
		l.Warn("order list failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to fetch orders"))
		return err
	}

	var payload struct {
		Orders      []Order `json:"orders"`
		TotalPages  int     `json:"totalPages"`
		TotalOrders int     `json:"totalOrders"`
	}
	if err := env.Decode(&payload); err != nil {
		l.Error("order list malformed", "error", err)
		s.fail("Failed to fetch orders")
		return err
	}

	s.mu.Lock()
	s.orders = payload.Orders
	s.pages = payload.TotalPages
	s.total = payload.TotalOrders
	s.loading = false
	s.mu.Unlock()
	return nil
}

// MyOrders loads the signed-in user's own purchase history.
func (s *Store) MyOrders(ctx context.Context) ([]Order, error) {
	env, err := s.api.Get(ctx, "/orders/my-orders")
	if err != nil {
		return nil, err
	}
	var out []Order
	if err := env.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	env, err := s.api.Get(ctx, "/orders/"+id)
	if err != nil {
		return nil, err
	}
	var out Order
	if err := env.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus moves an order through pending/completed/cancelled and
// patches the local row to match.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	l := logging.FromContext(ctx).With("store", "orders.update_status", "order_id", id)

	if _, err := s.api.Put(ctx, "/orders/"+id+"/status", map[string]string{"status": status}); err != nil {
		l.Warn("status update failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to update order"))
		return err
	}

	s.mu.Lock()
	for i := range s.orders {
		if s.orders[i].ID == id {
			s.orders[i].Status = status
		}
	}
	s.mu.Unlock()
	return nil
}

// Delete removes an order and drops the local row.
func (s *Store) Delete(ctx context.Context, id string) error {
	l := logging.FromContext(ctx).With("store", "orders.delete", "order_id", id)

	if _, err := s.api.Delete(ctx, "/orders/"+id); err != nil {
		l.Warn("order delete failed", "error", err)
		s.fail(apiclient.ErrorMessage(err, "Failed to delete order"))
		return err
	}

	s.mu.Lock()
	kept := s.orders[:0]
	for _, o := range s.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	s.orders = kept
	s.mu.Unlock()
	return nil
}

func (s *Store) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *Store) TotalPages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

func (s *Store) TotalOrders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
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
