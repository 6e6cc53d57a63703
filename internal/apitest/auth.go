package apitest

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	var user User
	if err := s.DB.First(&user, "email = ?", req.Email).Error; err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}

	return envelope(c, http.StatusOK, map[string]any{
		"user":        userJSON(&user),
		"accessToken": s.TokenFor(&user),
	}, "")
}

func (s *Server) register(c echo.Context) error {
	name := c.FormValue("name")
	email := c.FormValue("email")
	password := c.FormValue("password")
	if name == "" || email == "" || password == "" {
		return fail(c, http.StatusBadRequest, "name, email and password are required")
	}

	var count int64
	s.DB.Model(&User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	user := User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "user",
		Bio:          c.FormValue("bio"),
		Slug:         c.FormValue("slug"),
	}
	if file, err := c.FormFile("avatar"); err == nil {
		user.Avatar = "avatars/" + file.Filename
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	return envelope(c, http.StatusCreated, map[string]any{
		"user":        userJSON(&user),
		"accessToken": s.TokenFor(&user),
	}, "")
}

func (s *Server) logout(c echo.Context) error {
	return envelope(c, http.StatusOK, nil, "logged out")
}

func (s *Server) profile(c echo.Context) error {
	return envelope(c, http.StatusOK, userJSON(currentUser(c)), "")
}

func (s *Server) updateProfile(c echo.Context) error {
	user := currentUser(c)

	if v := c.FormValue("name"); v != "" {
		user.Name = v
	}
	if v := c.FormValue("bio"); v != "" {
		user.Bio = v
	}
	if v := c.FormValue("slug"); v != "" {
		user.Slug = v
	}
	if file, err := c.FormFile("avatar"); err == nil {
		user.Avatar = "avatars/" + file.Filename
	}
	if err := s.DB.Save(user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, userJSON(user), "profile updated")
}

// forgotPassword requires both email and slug to match, so an email
// alone cannot be used to probe for accounts. The response carries a
// direct reset link the way the development backend does.
func (s *Server) forgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		Slug  string `json:"slug"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	var user User
	if err := s.DB.First(&user, "email = ? AND slug = ?", req.Email, req.Slug).Error; err != nil {
		return fail(c, http.StatusNotFound, "No account matches that email and slug")
	}

	token, err := s.resetTokenFor(&user)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, map[string]string{
		"resetLink": "/reset-password?token=" + token,
	}, "Reset link generated")
}

func (s *Server) resetPassword(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "new password required")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(req.Token, claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	})
	if err != nil || !token.Valid || claims["purpose"] != "reset" {
		return fail(c, http.StatusBadRequest, "Invalid or expired reset token")
	}

	sub, _ := claims["sub"].(string)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	if err := s.DB.Model(&User{}).Where("id = ?", sub).Update("password_hash", string(hash)).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, nil, "Password updated")
}
