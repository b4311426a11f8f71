package models

import "time"

// User is a registered account. The password field holds a bcrypt hash and is
// never serialized.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Category groups listings for browsing.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Listing is an item up for auction. IsActive flips to false exactly once,
// when the creator closes the auction.
type Listing struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartingBid float64   `json:"starting_bid"`
	ImageURL    string    `json:"image_url,omitempty"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	CreatedByID int64     `json:"created_by_id"`
	CreatedBy   string    `json:"created_by"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Bid is an offer on a listing. Bids are append-only.
type Bid struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	BidderID  int64     `json:"bidder_id"`
	Bidder    string    `json:"bidder"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a remark left on a listing. Comments are append-only.
type Comment struct {
	ID        int64     `json:"id"`
	ListingID int64     `json:"listing_id"`
	Commenter string    `json:"commenter"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
