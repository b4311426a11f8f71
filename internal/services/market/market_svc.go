package market

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/Chebah-Amine/bid-marketplace/internal/forms"
	"github.com/Chebah-Amine/bid-marketplace/internal/models"
)

// ListingDetail is everything the listing page needs: the listing itself, the
// derived price values, the pre-labelled bid form and the comment thread.
type ListingDetail struct {
	Listing      models.Listing   `json:"listing"`
	CurrentPrice float64          `json:"current_price"`
	BidCount     int              `json:"bid_count"`
	BidLabel     string           `json:"bid_label"`
	HighestBid   *models.Bid      `json:"highest_bid,omitempty"`
	Winner       string           `json:"winner,omitempty"`
	Comments     []models.Comment `json:"comments"`
}

var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNotOwner         = errors.New("not the listing owner")
	ErrAlreadyClosed    = errors.New("auction already closed")
	ErrListingClosed    = errors.New("auction closed")
)

type IMarketService interface {
	CreateListing(ctx context.Context, userID int64, in forms.ListingInput) (int64, forms.Errors, error)
	PlaceBid(ctx context.Context, listingID, userID int64, in forms.BidInput) (forms.Errors, error)
	PostComment(ctx context.Context, listingID, userID int64, in forms.CommentInput) (forms.Errors, error)
	CloseListing(ctx context.Context, listingID, userID int64) error
	ToggleWatchlist(ctx context.Context, listingID, userID int64) (added bool, err error)
	GetListing(ctx context.Context, listingID, viewerID int64) (*ListingDetail, error)
	ListActive(ctx context.Context) ([]models.Listing, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListByCategory(ctx context.Context, categoryID int64) (*models.Category, []models.Listing, error)
	WatchlistListings(ctx context.Context, userID int64) ([]models.Listing, error)
}

type marketService struct {
	db *sql.DB
}

func NewMarketService(db *sql.DB) IMarketService {
	return &marketService{db: db}
}

const listingColumns = `l.id, l.title, l.description, l.starting_bid, l.image_url,
       l.category_id, l.created_by, u.username, l.is_active, l.created_at`

// CreateListing validates the form and inserts the listing in one transaction.
// A non-empty Errors map means the caller should re-render the form.
func (svc *marketService) CreateListing(ctx context.Context, userID int64, in forms.ListingInput) (int64, forms.Errors, error) {
	data, errs := forms.ValidateListing(in)

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	if data.CategoryID != nil {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM categories WHERE id = $1`, *data.CategoryID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			errs.CategoryNotFound()
		} else if err != nil {
			return 0, nil, err
		}
	}
	if errs.Any() {
		return 0, errs, nil
	}

	var categoryID sql.NullInt64
	if data.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *data.CategoryID, Valid: true}
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
	  INSERT INTO listings (title, description, starting_bid, image_url, category_id, created_by)
	       VALUES ($1, $2, $3, $4, $5, $6)
	    RETURNING id`,
		data.Title, data.Description, data.StartingBid, data.ImageURL, categoryID, userID,
	).Scan(&id)
	if err != nil {
		return 0, nil, err
	}
	return id, nil, tx.Commit()
}

// PlaceBid checks the amount against the current price and records the bid.
// The listing row is locked for the duration of the transaction so two
// concurrent bids cannot both pass the price check.
func (svc *marketService) PlaceBid(ctx context.Context, listingID, userID int64, in forms.BidInput) (forms.Errors, error) {
	amount, errs := forms.ValidateBid(in)
	if errs.Any() {
		return errs, nil
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var startingBid float64
	err = tx.QueryRowContext(ctx,
		`SELECT starting_bid FROM listings WHERE id = $1 FOR UPDATE`, listingID,
	).Scan(&startingBid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	current, _, err := currentPrice(ctx, tx, listingID, startingBid)
	if err != nil {
		return nil, err
	}
	if amount <= current {
		errs.Add("bid", fmt.Sprintf("Bid must be greater than the current price: %s$.", formatAmount(current)))
		return errs, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bids (listing_id, bidder_id, amount) VALUES ($1, $2, $3)`,
		listingID, userID, amount)
	if err != nil {
		return nil, err
	}
	return nil, tx.Commit()
}

// PostComment validates and appends a comment to the listing.
func (svc *marketService) PostComment(ctx context.Context, listingID, userID int64, in forms.CommentInput) (forms.Errors, error) {
	content, errs := forms.ValidateComment(in)
	if errs.Any() {
		return errs, nil
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM listings WHERE id = $1`, listingID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comments (listing_id, commenter, content) VALUES ($1, $2, $3)`,
		listingID, userID, content)
	if err != nil {
		return nil, err
	}
	return nil, tx.Commit()
}

// CloseListing flips is_active to false, once. Only the creator may close;
// closing a closed listing returns ErrAlreadyClosed and changes nothing.
func (svc *marketService) CloseListing(ctx context.Context, listingID, userID int64) error {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var createdBy int64
	var isActive bool
	err = tx.QueryRowContext(ctx,
		`SELECT created_by, is_active FROM listings WHERE id = $1 FOR UPDATE`, listingID,
	).Scan(&createdBy, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrListingNotFound
	}
	if err != nil {
		return err
	}
	if createdBy != userID {
		return ErrNotOwner
	}
	if !isActive {
		return ErrAlreadyClosed
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE listings SET is_active = FALSE WHERE id = $1`, listingID); err != nil {
		return err
	}
	return tx.Commit()
}

// ToggleWatchlist flips the listing's membership in the user's watchlist,
// creating the watchlist on first use. Closed listings are refused.
func (svc *marketService) ToggleWatchlist(ctx context.Context, listingID, userID int64) (bool, error) {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var isActive bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_active FROM listings WHERE id = $1`, listingID).Scan(&isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrListingNotFound
	}
	if err != nil {
		return false, err
	}
	if !isActive {
		return false, ErrListingClosed
	}

	watchlistID, err := ensureWatchlist(ctx, tx, userID)
	if err != nil {
		return false, err
	}

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM watchlist_listings WHERE watchlist_id = $1 AND listing_id = $2`,
		watchlistID, listingID).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO watchlist_listings (watchlist_id, listing_id) VALUES ($1, $2)`,
			watchlistID, listingID); err != nil {
			return false, err
		}
		return true, tx.Commit()
	case err != nil:
		return false, err
	default:
		if _, err = tx.ExecContext(ctx,
			`DELETE FROM watchlist_listings WHERE watchlist_id = $1 AND listing_id = $2`,
			watchlistID, listingID); err != nil {
			return false, err
		}
		return false, tx.Commit()
	}
}

// GetListing assembles the listing detail view for the given viewer.
func (svc *marketService) GetListing(ctx context.Context, listingID, viewerID int64) (*ListingDetail, error) {
	listing, err := svc.fetchListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	detail := &ListingDetail{Listing: *listing}

	current, count, err := currentPrice(ctx, svc.db, listingID, listing.StartingBid)
	if err != nil {
		return nil, err
	}
	detail.CurrentPrice = current
	detail.BidCount = count

	if count > 0 {
		highest, err := highestBid(ctx, svc.db, listingID)
		if err != nil {
			return nil, err
		}
		detail.HighestBid = highest
	}

	detail.BidLabel = fmt.Sprintf("Bid ($): %d bid(s) so far.", count)
	if detail.HighestBid != nil && detail.HighestBid.BidderID == viewerID {
		detail.BidLabel += " Your bid is the current bid."
	}

	// The winner only exists once the auction is closed.
	if !listing.IsActive && detail.HighestBid != nil {
		detail.Winner = detail.HighestBid.Bidder
	}

	detail.Comments, err = commentsForListing(ctx, svc.db, listingID)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (svc *marketService) ListActive(ctx context.Context) ([]models.Listing, error) {
	rows, err := svc.db.QueryContext(ctx, `
	  SELECT `+listingColumns+`
	    FROM listings l
	    JOIN users u ON u.id = l.created_by
	   WHERE l.is_active
	   ORDER BY l.id`)
	if err != nil {
		return nil, err
	}
	return scanListings(rows)
}

func (svc *marketService) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := svc.db.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (svc *marketService) ListByCategory(ctx context.Context, categoryID int64) (*models.Category, []models.Listing, error) {
	category := &models.Category{}
	err := svc.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = $1`, categoryID,
	).Scan(&category.ID, &category.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := svc.db.QueryContext(ctx, `
	  SELECT `+listingColumns+`
	    FROM listings l
	    JOIN users u ON u.id = l.created_by
	   WHERE l.category_id = $1 AND l.is_active
	   ORDER BY l.id`, categoryID)
	if err != nil {
		return nil, nil, err
	}
	listings, err := scanListings(rows)
	return category, listings, err
}

func (svc *marketService) WatchlistListings(ctx context.Context, userID int64) ([]models.Listing, error) {
	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	watchlistID, err := ensureWatchlist(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
	  SELECT `+listingColumns+`
	    FROM watchlist_listings w
	    JOIN listings l ON l.id = w.listing_id
	    JOIN users u ON u.id = l.created_by
	   WHERE w.watchlist_id = $1
	   ORDER BY l.id`, watchlistID)
	if err != nil {
		return nil, err
	}
	listings, err := scanListings(rows)
	if err != nil {
		return nil, err
	}
	return listings, tx.Commit()
}

func (svc *marketService) fetchListing(ctx context.Context, id int64) (*models.Listing, error) {
	row := svc.db.QueryRowContext(ctx, `
	  SELECT `+listingColumns+`
	    FROM listings l
	    JOIN users u ON u.id = l.created_by
	   WHERE l.id = $1`, id)
	listing, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	return listing, err
}

// querier lets the read helpers run against either the pool or a transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// currentPrice returns the price a new bid must exceed and the bid count:
// the highest bid amount, or the starting bid while no bids exist.
func currentPrice(ctx context.Context, q querier, listingID int64, startingBid float64) (float64, int, error) {
	var count int
	var maxAmount sql.NullFloat64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(amount) FROM bids WHERE listing_id = $1`, listingID,
	).Scan(&count, &maxAmount)
	if err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return startingBid, 0, nil
	}
	return maxAmount.Float64, count, nil
}

func highestBid(ctx context.Context, q querier, listingID int64) (*models.Bid, error) {
	bid := &models.Bid{}
	err := q.QueryRowContext(ctx, `
	  SELECT b.id, b.listing_id, b.bidder_id, u.username, b.amount, b.created_at
	    FROM bids b
	    JOIN users u ON u.id = b.bidder_id
	   WHERE b.listing_id = $1
	   ORDER BY b.amount DESC, b.id
	   LIMIT 1`, listingID,
	).Scan(&bid.ID, &bid.ListingID, &bid.BidderID, &bid.Bidder, &bid.Amount, &bid.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return bid, nil
}

func commentsForListing(ctx context.Context, q querier, listingID int64) ([]models.Comment, error) {
	rows, err := q.QueryContext(ctx, `
	  SELECT c.id, c.listing_id, u.username, c.content, c.created_at
	    FROM comments c
	    JOIN users u ON u.id = c.commenter
	   WHERE c.listing_id = $1
	   ORDER BY c.id`, listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ListingID, &c.Commenter, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ensureWatchlist lazily creates the user's watchlist row and returns its id.
func ensureWatchlist(ctx context.Context, q querier, userID int64) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO watchlists (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID); err != nil {
		return 0, err
	}
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM watchlists WHERE user_id = $1`, userID).Scan(&id)
	return id, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	l := &models.Listing{}
	var categoryID sql.NullInt64
	err := row.Scan(&l.ID, &l.Title, &l.Description, &l.StartingBid, &l.ImageURL,
		&categoryID, &l.CreatedByID, &l.CreatedBy, &l.IsActive, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		l.CategoryID = &categoryID.Int64
	}
	return l, nil
}

func scanListings(rows *sql.Rows) ([]models.Listing, error) {
	defer rows.Close()
	listings := make([]models.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
