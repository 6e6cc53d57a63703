package session

// SocialLinks mirrors the backend's per-user social link mapping.
type SocialLinks struct {
	Twitter   string `json:"twitter,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Discord   string `json:"discord,omitempty"`
	Kick      string `json:"kick,omitempty"`
	Twitch    string `json:"twitch,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
}

// User is the authenticated actor's normalized record. Slug is the
// stable secondary identifier used in the password-reset lookup.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	Avatar      string      `json:"avatar,omitempty"`
	Bio         string      `json:"bio,omitempty"`
	Slug        string      `json:"slug,omitempty"`
	SocialLinks SocialLinks `json:"socialLinks,omitempty"`
}

// wireUser accepts both identifier spellings the backend emits.
type wireUser struct {
	ID          string      `json:"id"`
	MongoID     string      `json:"_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Role        string      `json:"role"`
	Avatar      string      `json:"avatar"`
	Bio         string      `json:"bio"`
	Slug        string      `json:"slug"`
	SocialLinks SocialLinks `json:"socialLinks"`
}

func (w wireUser) normalize() *User {
	id := w.ID
	if id == "" {
		id = w.MongoID
	}
	return &User{
		ID:          id,
		Name:        w.Name,
		Email:       w.Email,
		Role:        w.Role,
		Avatar:      w.Avatar,
		Bio:         w.Bio,
		Slug:        w.Slug,
		SocialLinks: w.SocialLinks,
	}
}
