package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/respectcfw/webclient/internal/apiclient"
	"github.com/respectcfw/webclient/internal/logging"
)

// LineItem is one denormalized cart row.
type LineItem struct {
	ID         string  `json:"_id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Image      string  `json:"image"`
	SellerName string  `json:"sellerName"`
	Quantity   int     `json:"quantity"`
}

// wireEntry is the nested shape /users/cart returns.
type wireEntry struct {
	Item struct {
		ID     string  `json:"_id"`
		Title  string  `json:"title"`
		Price  float64 `json:"price"`
		Image  string  `json:"image"`
		Seller struct {
			Name string `json:"name"`
		} `json:"seller"`
	} `json:"item"`
	Quantity int `json:"quantity"`
}

// Store mirrors the server-side cart. Every mutation goes to the
// server first and the local sequence is replaced by a refetch, so
// local state can only diverge during one in-flight request. Two
// overlapping mutations race and the last refetch to resolve wins;
// that is accepted for a low-stakes cart.
type Store struct {
	api *apiclient.Client

	mu    sync.Mutex
	items []LineItem
	open  bool
	busy  bool
}

func NewStore(api *apiclient.Client) *Store {
	return &Store{api: api}
}

// Fetch replaces the local line items with the server's current cart.
// Idempotent, safe to call every time the cart panel opens.
func (s *Store) Fetch(ctx context.Context) error {
	l := logging.FromContext(ctx).With("store", "cart.fetch")
	s.setBusy(true)
	defer s.setBusy(false)

	if err := s.refetch(ctx); err != nil {
		l.Warn("cart fetch failed", "error", err)
		return err
	}

	s.mu.Lock()
	n := len(s.items)
	s.mu.Unlock()
	l.Debug("cart refreshed", "items", n)
	return nil
}

// Add sends an add-or-increment for quantity 1, resynchronizes from
// the server, then opens the cart panel. No optimistic insertion: the
// UI never shows a line the server rejected.
func (s *Store) Add(ctx context.Context, itemID string) error {
	l := logging.FromContext(ctx).With("store", "cart.add", "item_id", itemID)
	s.setBusy(true)
	defer s.setBusy(false)

	if _, err := s.api.Post(ctx, "/users/cart", map[string]any{
		"itemId":   itemID,
		"quantity": 1,
	}); err != nil {
		l.Warn("cart add failed", "error", err)
		return err
	}

	if err := s.refetch(ctx); err != nil {
		return err
	}
	s.Open()
	l.Info("item added to cart")
	return nil
}

// Remove deletes one line server-side, then refetches.
func (s *Store) Remove(ctx context.Context, lineID string) error {
	l := logging.FromContext(ctx).With("store", "cart.remove", "line_id", lineID)
	s.setBusy(true)
	defer s.setBusy(false)

	if _, err := s.api.Delete(ctx, "/users/cart/"+lineID); err != nil {
		l.Warn("cart remove failed", "error", err)
		return err
	}

	if err := s.refetch(ctx); err != nil {
		return err
	}
	l.Info("item removed from cart")
	return nil
}

// Clear empties the server cart. On success local state goes straight
// to empty; emptiness is certain, so no refetch is needed.
func (s *Store) Clear(ctx context.Context) error {
	l := logging.FromContext(ctx).With("store", "cart.clear")
	s.setBusy(true)
	defer s.setBusy(false)

	if _, err := s.api.Delete(ctx, "/users/cart"); err != nil {
		l.Warn("cart clear failed", "error", err)
		return err
	}

	s.mu.Lock()
	s.items = []LineItem{}
	s.mu.Unlock()

	l.Info("cart cleared")
	return nil
}

// refetch is the post-mutation resync. It bypasses the busy toggle so
// the guard held by the caller stays up for the whole sequence.
func (s *Store) refetch(ctx context.Context) error {
	env, err := s.api.Get(ctx, "/users/cart")
	if err != nil {
		return fmt.Errorf("resync cart: %w", err)
	}

	var entries []wireEntry
	if err := env.Decode(&entries); err != nil {
		return fmt.Errorf("resync cart: %w", err)
	}

	items := make([]LineItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, LineItem{
			ID:         e.Item.ID,
			Title:      e.Item.Title,
			Price:      e.Item.Price,
			Image:      e.Item.Image,
			SellerName: e.Item.Seller.Name,
			Quantity:   e.Quantity,
		})
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Total is the derived sum of price times quantity. Never persisted,
// recomputed on every read.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, it := range s.items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
}

func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

func (s *Store) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
}

func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Store) setBusy(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = v
}
