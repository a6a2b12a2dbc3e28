package marketplace

import (
	"net/url"
	"strconv"
	"time"
)

// Ad is a classifieds listing as shown on cards and search results.
type Ad struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Location    string    `json:"location"`
	PostedAt    time.Time `json:"postedAt"`
	CoverImage  string    `json:"coverImage"`
	Images      []string  `json:"images,omitempty"`
	Category    string    `json:"category,omitempty"`
	SellerID    string    `json:"sellerId,omitempty"`
	IsFeatured  bool      `json:"isFeatured"`
	IsUrgent    bool      `json:"isUrgent"`
}

// PageMeta is the pagination block of list responses.
type PageMeta struct {
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	Total     int `json:"total"`
	TotalPage int `json:"totalPage"`
}

// HasNext reports whether a page after the current one exists.
func (m PageMeta) HasNext() bool {
	return m.Page < m.TotalPage
}

// AdQuery filters the public ad listing.
type AdQuery struct {
	Search   string
	Category string
	Location string
	MinPrice float64
	MaxPrice float64
	Sort     string
	Page     int
	Limit    int
}

// Values renders the query as URL parameters, skipping unset fields.
func (q AdQuery) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("searchTerm", q.Search)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Location != "" {
		v.Set("location", q.Location)
	}
	if q.MinPrice > 0 {
		v.Set("minPrice", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		v.Set("maxPrice", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// AdPage is one page of ads.
type AdPage struct {
	Items []Ad
	Meta  PageMeta
}

// Report flags an ad for moderation.
type Report struct {
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

type Category struct {
	ID       string    `json:"_id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	Icon     string    `json:"icon"`
	IsActive bool      `json:"isActive"`
	Order    int       `json:"order"`
	Created  time.Time `json:"createdAt"`
	Updated  time.Time `json:"updatedAt"`
}

// FavoriteItem is an ad saved by the current user.
type FavoriteItem struct {
	ID         string    `json:"_id"`
	AdID       string    `json:"adId"`
	Title      string    `json:"title"`
	Price      float64   `json:"price"`
	Location   string    `json:"location"`
	PostedAt   time.Time `json:"postedAt"`
	ImageURL   string    `json:"imageUrl"`
	IsFeatured bool      `json:"isFeatured"`
	IsUrgent   bool      `json:"isUrgent"`
}

type FavoritePage struct {
	Items []FavoriteItem
	Meta  PageMeta
}
