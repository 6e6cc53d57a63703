package apitest

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	Role         string `gorm:"default:user"`
	Avatar       string
	Bio          string
	Slug         string `gorm:"index"`
	IsActive     bool   `gorm:"default:true"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Item struct {
	ID          string `gorm:"primaryKey"`
	Title       string
	Description string
	Price       float64
	Image       string
	SellerID    string `gorm:"index"`
	ContactInfo string
	CreatedAt   string
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

type CartEntry struct {
	ID       string `gorm:"primaryKey"`
	UserID   string `gorm:"uniqueIndex:idx_user_item"`
	ItemID   string `gorm:"uniqueIndex:idx_user_item"`
	Quantity int    `gorm:"default:1"`
}

func (c *CartEntry) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Order struct {
	ID          string `gorm:"primaryKey"`
	OrderNumber string
	BuyerID     string `gorm:"index"`
	SellerID    string `gorm:"index"`
	TotalPrice  float64
	Status      string `gorm:"default:pending"`
	IsRead      bool   `gorm:"default:false"`
	CreatedAt   string
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type OrderItem struct {
	ID       string `gorm:"primaryKey"`
	OrderID  string `gorm:"index"`
	ItemID   string
	Title    string
	Price    float64
	Quantity int
}

func (o *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type Rule struct {
	ID          string `gorm:"primaryKey"`
	Title       string
	Description string
	Order       int
	IsActive    bool `gorm:"default:true"`
}

func (r *Rule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

type Setting struct {
	ID                string `gorm:"primaryKey"`
	CurrentStreamLink string
	SiteName          string
	MaintenanceMode   bool
	WelcomeMessage    string
	CreatedAt         string
	UpdatedAt         string
}
