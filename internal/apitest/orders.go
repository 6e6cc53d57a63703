package apitest

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

func (s *Server) partyJSON(userID string) map[string]any {
	var user User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return map[string]any{"_id": userID}
	}
	return map[string]any{
		"_id":    user.ID,
		"name":   user.Name,
		"email":  user.Email,
		"avatar": user.Avatar,
	}
}

func (s *Server) orderJSON(o *Order) map[string]any {
	var lines []OrderItem
	s.DB.Where("order_id = ?", o.ID).Find(&lines)

	items := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		var item Item
		s.DB.First(&item, "id = ?", line.ItemID)
		items = append(items, map[string]any{
			"_id":      line.ID,
			"title":    line.Title,
			"price":    line.Price,
			"quantity": line.Quantity,
			"item": map[string]any{
				"_id":   item.ID,
				"title": item.Title,
				"image": item.Image,
			},
		})
	}

	return map[string]any{
		"_id":         o.ID,
		"orderNumber": o.OrderNumber,
		"buyer":       s.partyJSON(o.BuyerID),
		"seller":      s.partyJSON(o.SellerID),
		"items":       items,
		"totalPrice":  o.TotalPrice,
		"status":      o.Status,
		"createdAt":   o.CreatedAt,
	}
}

// checkout converts the caller's cart into one order per seller and
// empties the cart.
func (s *Server) checkout(c echo.Context) error {
	user := currentUser(c)

	var entries []CartEntry
	if err := s.DB.Where("user_id = ?", user.ID).Find(&entries).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	if len(entries) == 0 {
		return fail(c, http.StatusBadRequest, "Cart is empty")
	}

	bySeller := map[string][]CartEntry{}
	for _, e := range entries {
		var item Item
		if err := s.DB.First(&item, "id = ?", e.ItemID).Error; err != nil {
			continue
		}
		bySeller[item.SellerID] = append(bySeller[item.SellerID], e)
	}

	var seq int64
	s.DB.Model(&Order{}).Count(&seq)

	created := make([]map[string]any, 0, len(bySeller))
	for sellerID, group := range bySeller {
		seq++
		order := Order{
			OrderNumber: fmt.Sprintf("ORD-%04d", seq),
			BuyerID:     user.ID,
			SellerID:    sellerID,
			Status:      "pending",
			CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.DB.Create(&order).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "internal error")
		}

		var total float64
		for _, e := range group {
			var item Item
			s.DB.First(&item, "id = ?", e.ItemID)
			line := OrderItem{
				OrderID:  order.ID,
				ItemID:   item.ID,
				Title:    item.Title,
				Price:    item.Price,
				Quantity: e.Quantity,
			}
			if err := s.DB.Create(&line).Error; err != nil {
				return fail(c, http.StatusInternalServerError, "internal error")
			}
			total += item.Price * float64(e.Quantity)
		}
		order.TotalPrice = total
		s.DB.Save(&order)
		created = append(created, s.orderJSON(&order))
	}

	s.DB.Where("user_id = ?", user.ID).Delete(&CartEntry{})
	return envelope(c, http.StatusCreated, created, "Order placed successfully")
}

func (s *Server) unreadCount(c echo.Context) error {
	var count int64
	s.DB.Model(&Order{}).
		Where("seller_id = ? AND is_read = ?", currentUser(c).ID, false).
		Count(&count)
	return envelope(c, http.StatusOK, map[string]int64{"count": count}, "")
}

func (s *Server) markRead(c echo.Context) error {
	if err := s.DB.Model(&Order{}).
		Where("seller_id = ?", currentUser(c).ID).
		Update("is_read", true).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	return envelope(c, http.StatusOK, nil, "Orders marked as read")
}

func (s *Server) myOrders(c echo.Context) error {
	user := currentUser(c)
	var orders []Order
	if err := s.DB.Where("buyer_id = ? OR seller_id = ?", user.ID, user.ID).
		Order("created_at desc").Find(&orders).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	out := make([]map[string]any, 0, len(orders))
	for i := range orders {
		out = append(out, s.orderJSON(&orders[i]))
	}
	return envelope(c, http.StatusOK, out, "")
}

func (s *Server) listOrders(c echo.Context) error {
	q := s.DB.Model(&Order{})
	if status := c.QueryParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if min := c.QueryParam("minPrice"); min != "" {
		if v, err := strconv.ParseFloat(min, 64); err == nil {
			q = q.Where("total_price >= ?", v)
		}
	}
	if max := c.QueryParam("maxPrice"); max != "" {
		if v, err := strconv.ParseFloat(max, 64); err == nil {
			q = q.Where("total_price <= ?", v)
		}
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 10
	}

	var total int64
	q.Count(&total)

	var orders []Order
	if err := q.Order("created_at desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}

	out := make([]map[string]any, 0, len(orders))
	for i := range orders {
		out = append(out, s.orderJSON(&orders[i]))
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return envelope(c, http.StatusOK, map[string]any{
		"orders":      out,
		"totalPages":  totalPages,
		"totalOrders": total,
	}, "")
}

func (s *Server) getOrder(c echo.Context) error {
	var order Order
	if err := s.DB.First(&order, "id = ?", c.Param("id")).Error; err != nil {
		return fail(c, http.StatusNotFound, "Order not found")
	}
	return envelope(c, http.StatusOK, s.orderJSON(&order), "")
}

func (s *Server) updateOrderStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	switch req.Status {
	case "pending", "completed", "cancelled":
	default:
		return fail(c, http.StatusBadRequest, "invalid status")
	}

	res := s.DB.Model(&Order{}).Where("id = ?", c.Param("id")).Update("status", req.Status)
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "Order not found")
	}
	return envelope(c, http.StatusOK, nil, "Order updated")
}

func (s *Server) deleteOrder(c echo.Context) error {
	res := s.DB.Delete(&Order{}, "id = ?", c.Param("id"))
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "internal error")
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "Order not found")
	}
	s.DB.Where("order_id = ?", c.Param("id")).Delete(&OrderItem{})
	return envelope(c, http.StatusOK, nil, "Order deleted")
}
