package markethandler

import (
	"github.com/Chebah-Amine/bid-marketplace/internal/forms"
	"github.com/Chebah-Amine/bid-marketplace/internal/models"
	"github.com/Chebah-Amine/bid-marketplace/internal/services/market"
	"github.com/Chebah-Amine/bid-marketplace/internal/session"
)

// SubmitBody is the POST /listings/{id} payload; exactly one of the two
// fields is expected, and its presence picks the operation.
type SubmitBody struct {
	Bid     *string `form:"bid"     json:"bid,omitempty"`
	Comment *string `form:"comment" json:"comment,omitempty"`
} // @name SubmitListingRequest

// FormErrorResponse carries the failed submission back for re-display:
// the entered values plus field -> ordered error messages.
type FormErrorResponse struct {
	Errors forms.Errors      `json:"errors"`
	Values map[string]string `json:"values"`
} // @name FormErrorResponse

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
} // @name ErrorResponse

type IndexResponse struct {
	Listings []models.Listing `json:"listings"`
	Flashes  []session.Flash  `json:"flashes,omitempty"`
} // @name IndexResponse

// NewListingResponse is the create-listing form page: the category choices
// plus any failed prior submission.
type NewListingResponse struct {
	Categories []models.Category `json:"categories"`
	Flashes    []session.Flash   `json:"flashes,omitempty"`
} // @name NewListingResponse

type ListingPageResponse struct {
	market.ListingDetail
	Flashes []session.Flash `json:"flashes,omitempty"`
} // @name ListingPageResponse

type CategoriesResponse struct {
	Categories []models.Category `json:"categories"`
	Flashes    []session.Flash   `json:"flashes,omitempty"`
} // @name CategoriesResponse

type CategoryResponse struct {
	Category models.Category  `json:"category"`
	Listings []models.Listing `json:"listings"`
	Flashes  []session.Flash  `json:"flashes,omitempty"`
} // @name CategoryResponse

type WatchlistResponse struct {
	Listings []models.Listing `json:"listings"`
	Flashes  []session.Flash  `json:"flashes,omitempty"`
} // @name WatchlistResponse
