// Package apitest runs an in-process Respect CFW backend so store
// tests exercise real HTTP round trips: bearer auth, the {data,
// message} envelope and the same status codes the production API uses.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Server struct {
	T      *testing.T
	DB     *gorm.DB
	Echo   *echo.Echo
	HTTP   *httptest.Server
	Secret []byte
}

// NewServer boots the fake backend over an in-memory database and
// registers a cleanup that tears it down with the test.
func NewServer(t *testing.T) *Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&User{}, &Item{}, &CartEntry{}, &Order{}, &OrderItem{}, &Rule{}, &Setting{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	s := &Server{
		T:      t,
		DB:     db,
		Echo:   echo.New(),
		Secret: []byte("apitest-secret"),
	}
	s.Echo.HideBanner = true
	s.routes()

	s.HTTP = httptest.NewServer(s.Echo)
	t.Cleanup(s.HTTP.Close)
	return s
}

// URL is the base address stores should be pointed at.
func (s *Server) URL() string {
	return s.HTTP.URL
}

func (s *Server) routes() {
	e := s.Echo

	e.POST("/auth/login", s.login)
	e.POST("/auth/register", s.register)
	e.POST("/auth/forgot-password", s.forgotPassword)
	e.POST("/auth/reset-password", s.resetPassword)

	auth := s.requireAuth
	admin := s.requireAdmin

	e.POST("/auth/logout", s.logout, auth)
	e.GET("/auth/profile", s.profile, auth)
	e.PUT("/auth/profile", s.updateProfile, auth)

	e.GET("/users/cart", s.getCart, auth)
	e.POST("/users/cart", s.addToCart, auth)
	e.DELETE("/users/cart", s.clearCart, auth)
	e.DELETE("/users/cart/:id", s.removeFromCart, auth)

	e.POST("/orders/checkout", s.checkout, auth)
	e.GET("/orders/unread-count", s.unreadCount, auth)
	e.PUT("/orders/mark-read", s.markRead, auth)
	e.GET("/orders/my-orders", s.myOrders, auth)
	e.GET("/orders", s.listOrders, auth, admin)
	e.GET("/orders/:id", s.getOrder, auth)
	e.PUT("/orders/:id/status", s.updateOrderStatus, auth, admin)
	e.DELETE("/orders/:id", s.deleteOrder, auth, admin)

	e.GET("/rules", s.listRules)
	e.POST("/rules", s.createRule, auth, admin)
	e.PUT("/rules/:id", s.updateRule, auth, admin)
	e.DELETE("/rules/:id", s.deleteRule, auth, admin)

	e.GET("/users", s.listUsers, auth, admin)
	e.GET("/users/streamers", s.listStreamers)
	e.POST("/users", s.createUser, auth, admin)
	e.PUT("/users/:id", s.updateUser, auth, admin)
	e.DELETE("/users/:id", s.deleteUser, auth, admin)

	e.GET("/items", s.listItems)
	e.GET("/items/user/:id", s.listUserItems)
	e.POST("/items", s.createItem, auth)
	e.DELETE("/items/:id", s.deleteItem, auth)

	e.GET("/settings", s.getSettings)
	e.PUT("/settings", s.updateSettings, auth, admin)
}

// envelope wraps a success payload the way the production API does.
func envelope(c echo.Context, status int, data any, message string) error {
	body := map[string]any{"data": data}
	if message != "" {
		body["message"] = message
	}
	return c.JSON(status, body)
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"message": message})
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return fail(c, http.StatusUnauthorized, "unauthorized")
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
			return s.Secret, nil
		})
		if err != nil || !token.Valid {
			return fail(c, http.StatusUnauthorized, "unauthorized")
		}

		sub, _ := claims["sub"].(string)
		var user User
		if err := s.DB.First(&user, "id = ?", sub).Error; err != nil {
			return fail(c, http.StatusUnauthorized, "unauthorized")
		}
		c.Set("user", &user)
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := currentUser(c)
		if user == nil || user.Role != "admin" {
			return fail(c, http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}

func currentUser(c echo.Context) *User {
	if v, ok := c.Get("user").(*User); ok {
		return v
	}
	return nil
}

// TokenFor issues a bearer token for a seeded user.
func (s *Server) TokenFor(user *User) string {
	s.T.Helper()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		s.T.Fatalf("sign token: %v", err)
	}
	return raw
}

// resetTokenFor issues a one-shot password reset token.
func (s *Server) resetTokenFor(user *User) (string, error) {
	claims := jwt.MapClaims{
		"sub":     user.ID,
		"purpose": "reset",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// SeedUser creates a user with a bcrypt-hashed password.
func (s *Server) SeedUser(name, email, password, role, slug string) *User {
	s.T.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		s.T.Fatalf("hash password: %v", err)
	}
	user := &User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Slug:         slug,
		IsActive:     true,
	}
	if err := s.DB.Create(user).Error; err != nil {
		s.T.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedItem creates a marketplace listing owned by seller.
func (s *Server) SeedItem(seller *User, id, title string, price float64) *Item {
	s.T.Helper()
	item := &Item{
		ID:        id,
		Title:     title,
		Price:     price,
		Image:     "items/" + id + ".png",
		SellerID:  seller.ID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.DB.Create(item).Error; err != nil {
		s.T.Fatalf("seed item: %v", err)
	}
	return item
}

// SeedRule creates a community rule row.
func (s *Server) SeedRule(title string, order int, active bool) *Rule {
	s.T.Helper()
	rule := &Rule{Title: title, Description: title + " description", Order: order, IsActive: active}
	if err := s.DB.Create(rule).Error; err != nil {
		s.T.Fatalf("seed rule: %v", err)
	}
	return rule
}

// SeedSettings creates the singleton settings record.
func (s *Server) SeedSettings(siteName string) *Setting {
	s.T.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	setting := &Setting{
		ID:        "settings",
		SiteName:  siteName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.DB.Create(setting).Error; err != nil {
		s.T.Fatalf("seed settings: %v", err)
	}
	return setting
}

func userJSON(u *User) map[string]any {
	return map[string]any{
		"_id":         u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"role":        u.Role,
		"avatar":      u.Avatar,
		"bio":         u.Bio,
		"slug":        u.Slug,
		"isActive":    u.IsActive,
		"socialLinks": map[string]string{},
	}
}
