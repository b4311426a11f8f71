package markethandler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Chebah-Amine/bid-marketplace/internal/forms"
	"github.com/Chebah-Amine/bid-marketplace/internal/http/authmw"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/market"
	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

type Handler struct {
	svc      market.IMarketService
	sessions *session.Store
}

func New(svc market.IMarketService, sessions *session.Store) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.index)
	r.GET("/listing", authmw.RequireAuth, h.newListing)
	r.POST("/listing", authmw.RequireAuth, h.createListing)
	r.GET("/listings/:id", h.show)
	r.POST("/listings/:id", authmw.RequireAuth, h.submit)
	r.POST("/listings/:id/close", authmw.RequireAuth, h.close)
	r.POST("/listings/:id/watchlist", authmw.RequireAuth, h.toggleWatchlist)
	r.GET("/categories", h.categories)
	r.GET("/categories/:id", h.category)
	r.GET("/watchlist", authmw.RequireAuth, h.watchlist)
}

// @Summary		Active listings
// @Description	Returns every open listing, in creation order.
// @Tags			Listings
// @Success		200	{object}	IndexResponse
// @Router			/ [get]
func (h *Handler) index(c *gin.Context) {
	listings, err := h.svc.ListActive(c.Request.Context())
	if err != nil {
		h.serverError(c, "index", err)
		return
	}
	c.JSON(http.StatusOK, IndexResponse{Listings: listings, Flashes: h.popFlashes(c)})
}

// @Summary		Create-listing form
// @Tags			Listings
// @Success		200	{object}	NewListingResponse
// @Router			/listing [get]
func (h *Handler) newListing(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		h.serverError(c, "new_listing", err)
		return
	}
	c.JSON(http.StatusOK, NewListingResponse{Categories: categories, Flashes: h.popFlashes(c)})
}

// @Summary		Create a listing
// @Description	Validates the form and creates an open listing owned by the
// @Description	current user. Field errors come back with the entered values.
// @Tags			Listings
// @Param			body	body		forms.ListingInput	true	"Listing fields"
// @Success		302
// @Failure		200	{object}	FormErrorResponse
// @Failure		400	{object}	ErrorResponse
// @Router			/listing [post]
func (h *Handler) createListing(c *gin.Context) {
	var in forms.ListingInput
	if err := c.ShouldBind(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: err.Error()})
		return
	}

	sess := authmw.CurrentSession(c)
	id, errs, err := h.svc.CreateListing(c.Request.Context(), sess.UserID, in)
	if err != nil {
		zap.L().Error("create_listing", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Error creating a new listing.",
		})
		return
	}
	if errs.Any() {
		c.JSON(http.StatusOK, FormErrorResponse{Errors: errs, Values: map[string]string{
			"title":        in.Title,
			"description":  in.Description,
			"starting_bid": in.StartingBid,
			"image_url":    in.ImageURL,
			"category":     in.Category,
		}})
		return
	}

	h.flash(c, "success", "Listing created successfully!")
	c.Redirect(http.StatusFound, fmt.Sprintf("/listings/%d", id))
}

// @Summary		Listing detail
// @Description	The listing with its current price, bid count, highest-bid
// @Description	note, comments and, once closed, the winner.
// @Tags			Listings
// @Param			id	path		int	true	"Listing ID"
// @Success		200	{object}	ListingPageResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/listings/{id} [get]
func (h *Handler) show(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}

	var viewerID int64
	if sess := authmw.CurrentSession(c); sess != nil {
		viewerID = sess.UserID
	}

	detail, err := h.svc.GetListing(c.Request.Context(), id, viewerID)
	if errors.Is(err, market.ErrListingNotFound) {
		h.listingNotFound(c, c.Param("id"))
		return
	}
	if err != nil {
		h.serverError(c, "show_listing", err)
		return
	}
	c.JSON(http.StatusOK, ListingPageResponse{ListingDetail: *detail, Flashes: h.popFlashes(c)})
}

// @Summary		Bid or comment on a listing
// @Description	The body carries either a "bid" or a "comment" field; its
// @Description	presence selects the operation.
// @Tags			Listings
// @Param			id		path	int			true	"Listing ID"
// @Param			body	body	SubmitBody	true	"Bid or comment"
// @Success		302
// @Failure		200	{object}	FormErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/listings/{id} [post]
func (h *Handler) submit(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}

	var body SubmitBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: http.StatusBadRequest, Message: err.Error()})
		return
	}

	sess := authmw.CurrentSession(c)
	switch {
	case body.Bid != nil:
		errs, err := h.svc.PlaceBid(c.Request.Context(), id, sess.UserID, forms.BidInput{Bid: *body.Bid})
		if errors.Is(err, market.ErrListingNotFound) {
			h.listingNotFound(c, c.Param("id"))
			return
		}
		if err != nil {
			h.serverError(c, "place_bid", err)
			return
		}
		if errs.Any() {
			c.JSON(http.StatusOK, FormErrorResponse{Errors: errs, Values: map[string]string{"bid": *body.Bid}})
			return
		}
		h.flash(c, "success", "Your bid was successfully placed!")

	case body.Comment != nil:
		errs, err := h.svc.PostComment(c.Request.Context(), id, sess.UserID, forms.CommentInput{Comment: *body.Comment})
		if errors.Is(err, market.ErrListingNotFound) {
			h.listingNotFound(c, c.Param("id"))
			return
		}
		if err != nil {
			h.serverError(c, "post_comment", err)
			return
		}
		if errs.Any() {
			c.JSON(http.StatusOK, FormErrorResponse{Errors: errs, Values: map[string]string{"comment": *body.Comment}})
			return
		}
		h.flash(c, "success", "Your comment was added!")

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    http.StatusBadRequest,
			Message: "Request must contain a bid or a comment.",
		})
		return
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/listings/%d", id))
}

// @Summary		Close an auction
// @Description	Owner-only, one-way. Closing an already closed auction is a
// @Description	no-op with an informational message.
// @Tags			Listings
// @Param			id	path	int	true	"Listing ID"
// @Success		302
// @Failure		404	{object}	ErrorResponse
// @Router			/listings/{id}/close [post]
func (h *Handler) close(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}

	sess := authmw.CurrentSession(c)
	err := h.svc.CloseListing(c.Request.Context(), id, sess.UserID)
	switch {
	case errors.Is(err, market.ErrListingNotFound):
		h.listingNotFound(c, c.Param("id"))
		return
	case errors.Is(err, market.ErrNotOwner):
		h.flash(c, "error", "You do not have permission to close this auction.")
	case errors.Is(err, market.ErrAlreadyClosed):
		h.flash(c, "info", "The auction is already closed.")
	case err != nil:
		h.serverError(c, "close_listing", err)
		return
	default:
		h.flash(c, "success", "The auction has been successfully closed.")
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/listings/%d", id))
}

// @Summary		Toggle watchlist membership
// @Description	Adds the listing to the current user's watchlist, or removes
// @Description	it if already present. Closed listings are refused.
// @Tags			Watchlist
// @Param			id	path	int	true	"Listing ID"
// @Success		302
// @Failure		404	{object}	ErrorResponse
// @Router			/listings/{id}/watchlist [post]
func (h *Handler) toggleWatchlist(c *gin.Context) {
	id, ok := h.listingID(c)
	if !ok {
		return
	}

	sess := authmw.CurrentSession(c)
	added, err := h.svc.ToggleWatchlist(c.Request.Context(), id, sess.UserID)
	switch {
	case errors.Is(err, market.ErrListingNotFound):
		h.listingNotFound(c, c.Param("id"))
		return
	case errors.Is(err, market.ErrListingClosed):
		h.flash(c, "info", "The auction is closed. You can't add it to your watchlist.")
	case err != nil:
		h.serverError(c, "toggle_watchlist", err)
		return
	case added:
		h.flash(c, "success", "The listing has been added to your watchlist.")
	default:
		h.flash(c, "success", "The listing has been removed from your watchlist.")
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/listings/%d", id))
}

// @Summary		Browse categories
// @Tags			Categories
// @Success		200	{object}	CategoriesResponse
// @Router			/categories [get]
func (h *Handler) categories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		h.serverError(c, "categories", err)
		return
	}
	c.JSON(http.StatusOK, CategoriesResponse{Categories: categories, Flashes: h.popFlashes(c)})
}

// @Summary		Active listings in a category
// @Tags			Categories
// @Param			id	path		int	true	"Category ID"
// @Success		200	{object}	CategoryResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/categories/{id} [get]
func (h *Handler) category(c *gin.Context) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.categoryNotFound(c, raw)
		return
	}

	category, listings, err := h.svc.ListByCategory(c.Request.Context(), id)
	if errors.Is(err, market.ErrCategoryNotFound) {
		h.categoryNotFound(c, raw)
		return
	}
	if err != nil {
		h.serverError(c, "category", err)
		return
	}
	c.JSON(http.StatusOK, CategoryResponse{
		Category: *category,
		Listings: listings,
		Flashes:  h.popFlashes(c),
	})
}

// @Summary		Current user's watchlist
// @Tags			Watchlist
// @Success		200	{object}	WatchlistResponse
// @Router			/watchlist [get]
func (h *Handler) watchlist(c *gin.Context) {
	sess := authmw.CurrentSession(c)
	listings, err := h.svc.WatchlistListings(c.Request.Context(), sess.UserID)
	if err != nil {
		h.serverError(c, "watchlist", err)
		return
	}
	c.JSON(http.StatusOK, WatchlistResponse{Listings: listings, Flashes: h.popFlashes(c)})
}

func (h *Handler) listingID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.listingNotFound(c, raw)
		return 0, false
	}
	return id, true
}

func (h *Handler) listingNotFound(c *gin.Context, id string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf("Listing with id %s not found !", id),
	})
}

func (h *Handler) categoryNotFound(c *gin.Context, id string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf("Category %s not found", id),
	})
}

// serverError hides persistence detail from the response; the cause goes to
// the log only.
func (h *Handler) serverError(c *gin.Context, op string, err error) {
	zap.L().Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    http.StatusInternalServerError,
		Message: "Something went wrong. Please try again later.",
	})
}

func (h *Handler) flash(c *gin.Context, level, message string) {
	sess := authmw.CurrentSession(c)
	if sess == nil {
		return
	}
	if err := h.sessions.AddFlash(c.Request.Context(), sess.Token, level, message); err != nil {
		zap.L().Error("flash_add", zap.Error(err))
	}
}

func (h *Handler) popFlashes(c *gin.Context) []session.Flash {
	sess := authmw.CurrentSession(c)
	if sess == nil {
		return nil
	}
	flashes, err := h.sessions.PopFlashes(c.Request.Context(), sess.Token)
	if err != nil {
		zap.L().Error("flash_pop", zap.Error(err))
		return nil
	}
	return flashes
}
