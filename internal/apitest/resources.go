package apitest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

func ruleJSON(r *Rule) map[string]any {
	return map[string]any{
		"_id":         r.ID,
		"title":       r.Title,
		"description": r.Description,
		"order":       r.Order,
		"isActive":    r.IsActive,
	}
}

func (s *Server) listRules(c echo.Context) error {
	q := s.DB.Model(&Rule{})
	if v := c.QueryParam("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return fail(c, http.StatusBadRequest, "invalid isActive")
		}
		q = q.Where("is_active = ?", active)
	}

	var rules []Rule
	if err := q.Order("\"order\"").Find(&rules).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	out := make([]map[string]any, 0, len(rules))
	for i := range rules {
		out = append(out, ruleJSON(&rules[i]))
	}
	return envelope(c, http.StatusOK, map[string]any{"rules": out}, "")
}

func (s *Server) createRule(c echo.Context) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Order       int    `json:"order"`
		IsActive    bool   `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Title == "" {
		return fail(c, http.StatusBadRequest, "title required")
	}

	rule := Rule{Title: req.Title, Description: req.Description, Order: req.Order, IsActive: req.IsActive}
	if err := s.DB.Create(&rule).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusCreated, ruleJSON(&rule), "Rule created")
}

func (s *Server) updateRule(c echo.Context) error {
	var rule Rule
	if err := s.DB.First(&rule, "id = ?", c.Param("id")).Error; err != nil {
		return fail(c, http.StatusNotFound, "Rule not found")
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Order       int    `json:"order"`
		IsActive    bool   `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	rule.Title = req.Title
	rule.Description = req.Description
	rule.Order = req.Order
	rule.IsActive = req.IsActive
	if err := s.DB.Save(&rule).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, ruleJSON(&rule), "Rule updated")
}

func (s *Server) deleteRule(c echo.Context) error {
	res := s.DB.Delete(&Rule{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "Rule not found")
	}
	return envelope(c, http.StatusOK, nil, "Rule deleted")
}

func (s *Server) listUsers(c echo.Context) error {
	q := s.DB.Model(&User{})
	if role := c.QueryParam("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 10
	}

	var users []User
	if err := q.Offset((page - 1) * limit).Limit(limit).Find(&users).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	out := make([]map[string]any, 0, len(users))
	for i := range users {
		out = append(out, userJSON(&users[i]))
	}
	return envelope(c, http.StatusOK, map[string]any{"users": out}, "")
}

func (s *Server) listStreamers(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 12
	}

	q := s.DB.Model(&User{}).Where("is_active = ?", true)
	if search := c.QueryParam("search"); search != "" {
		q = q.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	q.Count(&total)

	var streamers []User
	if err := q.Offset((page - 1) * limit).Limit(limit).Find(&streamers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	out := make([]map[string]any, 0, len(streamers))
	for i := range streamers {
		out = append(out, userJSON(&streamers[i]))
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	return envelope(c, http.StatusOK, map[string]any{
		"streamers": out,
		"pagination": map[string]any{
			"page":  page,
			"limit": limit,
			"total": total,
			"pages": pages,
		},
	}, "")
}

func (s *Server) createUser(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Slug     string `json:"slug"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password required")
	}

	role := req.Role
	if role == "" {
		role = "user"
	}
	created := s.SeedUser(req.Name, req.Email, req.Password, role, req.Slug)
	return envelope(c, http.StatusCreated, userJSON(created), "User created")
}

func (s *Server) updateUser(c echo.Context) error {
	var user User
	if err := s.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		return fail(c, http.StatusNotFound, "User not found")
	}

	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Bio      string `json:"bio"`
		Slug     string `json:"slug"`
		IsActive *bool  `json:"isActive"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Slug != "" {
		user.Slug = req.Slug
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := s.DB.Save(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, userJSON(&user), "User updated")
}

func (s *Server) deleteUser(c echo.Context) error {
	res := s.DB.Delete(&User{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "User not found")
	}
	return envelope(c, http.StatusOK, nil, "User deleted")
}

func (s *Server) itemJSON(item *Item) map[string]any {
	var seller User
	s.DB.First(&seller, "id = ?", item.SellerID)
	return map[string]any{
		"_id":         item.ID,
		"title":       item.Title,
		"description": item.Description,
		"price":       item.Price,
		"image":       item.Image,
		"contactInfo": item.ContactInfo,
		"createdAt":   item.CreatedAt,
		"seller": map[string]any{
			"_id":    seller.ID,
			"name":   seller.Name,
			"avatar": seller.Avatar,
			"slug":   seller.Slug,
		},
	}
}

func (s *Server) listItems(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 12
	}

	q := s.DB.Model(&Item{})
	if search := c.QueryParam("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if min := c.QueryParam("minPrice"); min != "" {
		if v, err := strconv.ParseFloat(min, 64); err == nil {
			q = q.Where("price >= ?", v)
		}
	}
	if max := c.QueryParam("maxPrice"); max != "" {
		if v, err := strconv.ParseFloat(max, 64); err == nil {
			q = q.Where("price <= ?", v)
		}
	}

	var total int64
	q.Count(&total)

	var items []Item
	if err := q.Order("created_at desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&items).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, s.itemJSON(&items[i]))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return envelope(c, http.StatusOK, map[string]any{
		"items":       out,
		"totalPages":  totalPages,
		"currentPage": page,
	}, "")
}

func (s *Server) listUserItems(c echo.Context) error {
	var items []Item
	if err := s.DB.Where("seller_id = ?", c.Param("id")).
		Order("created_at desc").Find(&items).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, s.itemJSON(&items[i]))
	}
	return envelope(c, http.StatusOK, out, "")
}

func (s *Server) createItem(c echo.Context) error {
	title := c.FormValue("title")
	priceRaw := c.FormValue("price")
	if title == "" || priceRaw == "" {
		return fail(c, http.StatusBadRequest, "title and price required")
	}
	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil || price < 0 {
		return fail(c, http.StatusBadRequest, "invalid price")
	}

	item := Item{
		Title:       title,
		Description: c.FormValue("description"),
		Price:       price,
		SellerID:    currentUser(c).ID,
		ContactInfo: c.FormValue("contactInfo"),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if file, err := c.FormFile("image"); err == nil {
		item.Image = "items/" + file.Filename
	}
	if err := s.DB.Create(&item).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusCreated, s.itemJSON(&item), "Item created")
}

func (s *Server) deleteItem(c echo.Context) error {
	var item Item
	if err := s.DB.First(&item, "id = ?", c.Param("id")).Error; err != nil {
		return fail(c, http.StatusNotFound, "Item not found")
	}

	user := currentUser(c)
	if item.SellerID != user.ID && user.Role != "admin" {
		return fail(c, http.StatusForbidden, "Not your item")
	}
	if err := s.DB.Delete(&item).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, nil, "Item deleted")
}

func settingJSON(st *Setting) map[string]any {
	return map[string]any{
		"_id":               st.ID,
		"currentStreamLink": st.CurrentStreamLink,
		"siteName":          st.SiteName,
		"maintenanceMode":   st.MaintenanceMode,
		"welcomeMessage":    st.WelcomeMessage,
		"createdAt":         st.CreatedAt,
		"updatedAt":         st.UpdatedAt,
	}
}

func (s *Server) getSettings(c echo.Context) error {
	var st Setting
	if err := s.DB.First(&st).Error; err != nil {
		return fail(c, http.StatusNotFound, "Settings not found")
	}
	return envelope(c, http.StatusOK, settingJSON(&st), "")
}

func (s *Server) updateSettings(c echo.Context) error {
	var st Setting
	if err := s.DB.First(&st).Error; err != nil {
		return fail(c, http.StatusNotFound, "Settings not found")
	}

	var req struct {
		CurrentStreamLink *string `json:"currentStreamLink"`
		SiteName          *string `json:"siteName"`
		MaintenanceMode   *bool   `json:"maintenanceMode"`
		WelcomeMessage    *string `json:"welcomeMessage"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	if req.CurrentStreamLink != nil {
		st.CurrentStreamLink = *req.CurrentStreamLink
	}
	if req.SiteName != nil {
		st.SiteName = *req.SiteName
	}
	if req.MaintenanceMode != nil {
		st.MaintenanceMode = *req.MaintenanceMode
	}
	if req.WelcomeMessage != nil {
		st.WelcomeMessage = *req.WelcomeMessage
	}
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := s.DB.Save(&st).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, settingJSON(&st), "Settings updated")
}
