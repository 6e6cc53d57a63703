package apitest

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

func (s *Server) cartJSON(userID string) ([]map[string]any, error) {
	var entries []CartEntry
	if err := s.DB.Where("user_id = ?", userID).Order("id").Find(&entries).Error; err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		var item Item
		if err := s.DB.First(&item, "id = ?", e.ItemID).Error; err != nil {
			continue
		}
		var seller User
		s.DB.First(&seller, "id = ?", item.SellerID)

		out = append(out, map[string]any{
			"item": map[string]any{
				"_id":    item.ID,
				"title":  item.Title,
				"price":  item.Price,
				"image":  item.Image,
				"seller": map[string]any{"name": seller.Name},
			},
			"quantity": e.Quantity,
		})
	}
	return out, nil
}

func (s *Server) getCart(c echo.Context) error {
	payload, err := s.cartJSON(currentUser(c).ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, payload, "")
}

func (s *Server) addToCart(c echo.Context) error {
	var req struct {
		ItemID   string `json:"itemId"`
		Quantity int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.ItemID == "" || req.Quantity <= 0 {
		return fail(c, http.StatusBadRequest, "itemId and quantity required")
	}

	var item Item
	if err := s.DB.First(&item, "id = ?", req.ItemID).Error; err != nil {
		return fail(c, http.StatusNotFound, "Item not found")
	}

	user := currentUser(c)
	if item.SellerID == user.ID {
		return fail(c, http.StatusBadRequest, "You cannot buy your own item")
	}

	var entry CartEntry
	err := s.DB.First(&entry, "user_id = ? AND item_id = ?", user.ID, req.ItemID).Error
	switch {
	case err == nil:
		entry.Quantity += req.Quantity
		if err := s.DB.Save(&entry).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "internal error")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = CartEntry{UserID: user.ID, ItemID: req.ItemID, Quantity: req.Quantity}
		if err := s.DB.Create(&entry).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "internal error")
		}
	default:
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	return envelope(c, http.StatusCreated, nil, "Added to cart")
}

func (s *Server) removeFromCart(c echo.Context) error {
	user := currentUser(c)
	itemID := c.Param("id")

	res := s.DB.Where("user_id = ? AND item_id = ?", user.ID, itemID).Delete(&CartEntry{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "Cart item not found")
	}
	return envelope(c, http.StatusOK, nil, "Removed from cart")
}

func (s *Server) clearCart(c echo.Context) error {
	if err := s.DB.Where("user_id = ?", currentUser(c).ID).Delete(&CartEntry{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, nil, "Cart cleared")
}
