// Package forms holds the field validation rules for user-submitted input.
// Each validator returns the parsed values plus a field -> messages map; the
// handlers re-render the submitted form with that map attached.
package forms

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 500
	maxCommentLen     = 500
	minAmount         = 0.01
)

// Errors maps a field name to the ordered list of messages for that field.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Any reports whether at least one field failed validation.
func (e Errors) Any() bool { return len(e) > 0 }

// BidInput is the raw bid form submission.
type BidInput struct {
	Bid string `form:"bid" json:"bid"`
}

// ValidateBid parses and checks the bid amount. The cross-field rule against
// the listing's current price belongs to the workflow, not here.
func ValidateBid(in BidInput) (float64, Errors) {
	errs := Errors{}
	raw := strings.TrimSpace(in.Bid)
	if raw == "" {
		errs.Add("bid", "This field is required.")
		return 0, errs
	}
	amount, ok := parseDecimal(raw)
	if !ok {
		errs.Add("bid", "Enter a number.")
		return 0, errs
	}
	if amount < minAmount {
		errs.Add("bid", "Ensure this value is greater than or equal to 0.01.")
	}
	return amount, errs
}

// CommentInput is the raw comment form submission.
type CommentInput struct {
	Comment string `form:"comment" json:"comment"`
}

// ValidateComment checks the comment content and returns it trimmed.
func ValidateComment(in CommentInput) (string, Errors) {
	errs := Errors{}
	content := strings.TrimSpace(in.Comment)
	if content == "" {
		errs.Add("comment", "Comment must not be empty.")
		return "", errs
	}
	if utf8.RuneCountInString(content) > maxCommentLen {
		errs.Add("comment", "Comment must contain less than 500 characters.")
	}
	return content, errs
}

// ListingInput is the raw create-listing form submission. Category carries the
// category id as submitted; existence is checked by the workflow against the
// store and reported in the same Errors map.
type ListingInput struct {
	Title       string `form:"title"        json:"title"`
	Description string `form:"description"  json:"description"`
	StartingBid string `form:"starting_bid" json:"starting_bid"`
	ImageURL    string `form:"image_url"    json:"image_url"`
	Category    string `form:"category"     json:"category"`
}

// ListingData is a validated listing submission.
type ListingData struct {
	Title       string
	Description string
	StartingBid float64
	ImageURL    string
	CategoryID  *int64
}

// ValidateListing checks every listing field and returns trimmed, parsed data.
func ValidateListing(in ListingInput) (ListingData, Errors) {
	errs := Errors{}
	data := ListingData{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}

	if data.Title == "" {
		errs.Add("title", "Title is required.")
	} else if utf8.RuneCountInString(data.Title) > maxTitleLen {
		errs.Add("title", "Title must be between 1 and 100 characters.")
	}

	if data.Description == "" {
		errs.Add("description", "Description is required.")
	} else if utf8.RuneCountInString(data.Description) > maxDescriptionLen {
		errs.Add("description", "Description must be between 1 and 500 characters.")
	}

	rawBid := strings.TrimSpace(in.StartingBid)
	switch {
	case rawBid == "":
		errs.Add("starting_bid", "Starting bid is required.")
	default:
		amount, ok := parseDecimal(rawBid)
		if !ok {
			errs.Add("starting_bid", "Enter a number.")
		} else if amount < minAmount {
			errs.Add("starting_bid", "Starting bid must be greater than $0.")
		} else {
			data.StartingBid = amount
		}
	}

	if data.ImageURL != "" && !validURL(data.ImageURL) {
		errs.Add("image_url", "Enter a valid URL.")
	}

	if raw := strings.TrimSpace(in.Category); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs.Add("category", "Select a valid choice. That choice is not one of the available choices.")
		} else {
			data.CategoryID = &id
		}
	}

	return data, errs
}

// CategoryNotFound records the unknown-category error after a store lookup.
func (e Errors) CategoryNotFound() {
	e.Add("category", "Select a valid choice. That choice is not one of the available choices.")
}

func parseDecimal(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func validURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp", "ftps":
		return u.Host != ""
	}
	return false
}
