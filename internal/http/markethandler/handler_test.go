package markethandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chebah-Amine/bid-marketplace/internal/forms"
	"github.com/Chebah-Amine/bid-marketplace/internal/http/authmw"
	"github.com/Chebah-Amine/bid-marketplace/internal/models"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/market"
	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

// stubService lets each test plug in just the calls it expects.
type stubService struct {
	createListing   func(ctx context.Context, userID int64, in forms.ListingInput) (int64, forms.Errors, error)
	placeBid        func(ctx context.Context, listingID, userID int64, in forms.BidInput) (forms.Errors, error)
	postComment     func(ctx context.Context, listingID, userID int64, in forms.CommentInput) (forms.Errors, error)
	closeListing    func(ctx context.Context, listingID, userID int64) error
	toggleWatchlist func(ctx context.Context, listingID, userID int64) (bool, error)
	getListing      func(ctx context.Context, listingID, viewerID int64) (*market.ListingDetail, error)
	listActive      func(ctx context.Context) ([]models.Listing, error)
	listCategories  func(ctx context.Context) ([]models.Category, error)
	listByCategory  func(ctx context.Context, categoryID int64) (*models.Category, []models.Listing, error)
	watchlist       func(ctx context.Context, userID int64) ([]models.Listing, error)
}

var _ market.IMarketService = (*stubService)(nil)

func (s *stubService) CreateListing(ctx context.Context, userID int64, in forms.ListingInput) (int64, forms.Errors, error) {
	return s.createListing(ctx, userID, in)
}
func (s *stubService) PlaceBid(ctx context.Context, listingID, userID int64, in forms.BidInput) (forms.Errors, error) {
	return s.placeBid(ctx, listingID, userID, in)
}
func (s *stubService) PostComment(ctx context.Context, listingID, userID int64, in forms.CommentInput) (forms.Errors, error) {
	return s.postComment(ctx, listingID, userID, in)
}
func (s *stubService) CloseListing(ctx context.Context, listingID, userID int64) error {
	return s.closeListing(ctx, listingID, userID)
}
func (s *stubService) ToggleWatchlist(ctx context.Context, listingID, userID int64) (bool, error) {
	return s.toggleWatchlist(ctx, listingID, userID)
}
func (s *stubService) GetListing(ctx context.Context, listingID, viewerID int64) (*market.ListingDetail, error) {
	return s.getListing(ctx, listingID, viewerID)
}
func (s *stubService) ListActive(ctx context.Context) ([]models.Listing, error) {
	return s.listActive(ctx)
}
func (s *stubService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.listCategories(ctx)
}
func (s *stubService) ListByCategory(ctx context.Context, categoryID int64) (*models.Category, []models.Listing, error) {
	return s.listByCategory(ctx, categoryID)
}
func (s *stubService) WatchlistListings(ctx context.Context, userID int64) ([]models.Listing, error) {
	return s.watchlist(ctx, userID)
}

func newRouter(svc market.IMarketService, sessions *session.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(authmw.Resolve(sessions))
	New(svc, sessions).Register(r)
	return r
}

// expectSession primes the redis mock for one cookie resolution.
func expectSession(mock redismock.ClientMock) {
	mock.ExpectHGetAll("sess:tok").SetVal(map[string]string{
		"user_id":  "42",
		"username": "testuser",
	})
}

func authedForm(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok"})
	return req
}

func TestIndexListsActiveListings(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	svc := &stubService{
		listActive: func(context.Context) ([]models.Listing, error) {
			return []models.Listing{{ID: 1, Title: "Phone", IsActive: true}}, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp IndexResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Listings, 1)
	assert.Equal(t, "Phone", resp.Listings[0].Title)
}

func TestShowListingNotFound(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	svc := &stubService{
		getListing: func(context.Context, int64, int64) (*market.ListingDetail, error) {
			return nil, market.ErrListingNotFound
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/listings/999", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Listing with id 999 not found !", resp.Message)
}

func TestShowListingDetail(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	svc := &stubService{
		getListing: func(_ context.Context, listingID, viewerID int64) (*market.ListingDetail, error) {
			assert.Equal(t, int64(1), listingID)
			assert.Equal(t, int64(0), viewerID, "anonymous viewer")
			return &market.ListingDetail{
				Listing:      models.Listing{ID: 1, Title: "Camera", IsActive: true},
				CurrentPrice: 300,
				BidCount:     1,
				BidLabel:     "Bid ($): 1 bid(s) so far.",
				Comments:     []models.Comment{},
			}, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/listings/1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ListingPageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 300.0, resp.CurrentPrice)
	assert.Equal(t, "Camera", resp.Listing.Title)
}

func TestSubmitBidRedirectsOnSuccess(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	expectSession(mock)
	mock.Regexp().ExpectRPush(`flash:tok`, `.+`).SetVal(1)
	mock.ExpectExpire("flash:tok", time.Hour).SetVal(true)

	svc := &stubService{
		placeBid: func(_ context.Context, listingID, userID int64, in forms.BidInput) (forms.Errors, error) {
			assert.Equal(t, int64(1), listingID)
			assert.Equal(t, int64(42), userID)
			assert.Equal(t, "300", in.Bid)
			return nil, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedForm(http.MethodPost, "/listings/1", url.Values{"bid": {"300"}}))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/listings/1", w.Header().Get("Location"))
}

func TestSubmitBidReturnsFieldErrors(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	expectSession(mock)

	svc := &stubService{
		placeBid: func(context.Context, int64, int64, forms.BidInput) (forms.Errors, error) {
			errs := forms.Errors{}
			errs.Add("bid", "Bid must be greater than the current price: 150$.")
			return errs, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedForm(http.MethodPost, "/listings/1", url.Values{"bid": {"120"}}))

	require.Equal(t, http.StatusOK, w.Code)
	var resp FormErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Bid must be greater than the current price: 150$."}, resp.Errors["bid"])
	assert.Equal(t, "120", resp.Values["bid"])
}

func TestSubmitCommentRedirectsOnSuccess(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	expectSession(mock)
	mock.Regexp().ExpectRPush(`flash:tok`, `.+`).SetVal(1)
	mock.ExpectExpire("flash:tok", time.Hour).SetVal(true)

	svc := &stubService{
		postComment: func(_ context.Context, _, _ int64, in forms.CommentInput) (forms.Errors, error) {
			assert.Equal(t, "test comment", in.Comment)
			return nil, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedForm(http.MethodPost, "/listings/1", url.Values{"comment": {"test comment"}}))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/listings/1", w.Header().Get("Location"))
}

func TestSubmitWithoutBidOrComment(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	expectSession(mock)

	router := newRouter(&stubService{}, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedForm(http.MethodPost, "/listings/1", url.Values{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGuardedRoutesRedirectAnonymousToLogin(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	router := newRouter(&stubService{}, session.NewStore(rdc, time.Hour))

	for _, target := range []string{"/watchlist", "/listing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusFound, w.Code, target)
		assert.Equal(t, "/login", w.Header().Get("Location"), target)
	}
}

func TestCloseByNonOwnerFlashesPermissionError(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	expectSession(mock)
	mock.ExpectRPush("flash:tok",
		[]byte(`{"level":"error","message":"You do not have permission to close this auction."}`)).SetVal(1)
	mock.ExpectExpire("flash:tok", time.Hour).SetVal(true)

	svc := &stubService{
		closeListing: func(context.Context, int64, int64) error { return market.ErrNotOwner },
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedForm(http.MethodPost, "/listings/1/close", url.Values{}))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/listings/1", w.Header().Get("Location"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleWatchlistOnClosedListingFlashesInfo(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	expectSession(mock)
	mock.ExpectRPush("flash:tok",
		[]byte(`{"level":"info","message":"The auction is closed. You can't add it to your watchlist."}`)).SetVal(1)
	mock.ExpectExpire("flash:tok", time.Hour).SetVal(true)

	svc := &stubService{
		toggleWatchlist: func(context.Context, int64, int64) (bool, error) {
			return false, market.ErrListingClosed
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedForm(http.MethodPost, "/listings/1/watchlist", url.Values{}))

	require.Equal(t, http.StatusFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryNotFound(t *testing.T) {
	rdc, _ := redismock.NewClientMock()
	svc := &stubService{
		listByCategory: func(context.Context, int64) (*models.Category, []models.Listing, error) {
			return nil, nil, market.ErrCategoryNotFound
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/categories/99", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Category 99 not found", resp.Message)
}

func TestCreateListingRedirectsToNewListing(t *testing.T) {
	rdc, mock := redismock.NewClientMock()
	expectSession(mock)
	mock.Regexp().ExpectRPush(`flash:tok`, `.+`).SetVal(1)
	mock.ExpectExpire("flash:tok", time.Hour).SetVal(true)

	svc := &stubService{
		createListing: func(_ context.Context, userID int64, in forms.ListingInput) (int64, forms.Errors, error) {
			assert.Equal(t, int64(42), userID)
			assert.Equal(t, "Django Book", in.Title)
			return 11, nil, nil
		},
	}
	router := newRouter(svc, session.NewStore(rdc, time.Hour))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedForm(http.MethodPost, "/listing", url.Values{
		"title":        {"Django Book"},
		"description":  {"Learn Django"},
		"starting_bid": {"50"},
	}))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/listings/11", w.Header().Get("Location"))
}
