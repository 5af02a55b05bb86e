package api

import (
	"net/http"

	"github.com/platinummonkey/quotes/pkg/httputil"
	"github.com/platinummonkey/quotes/pkg/quotes"
)

// Query parameter names
const (
	paramLimit      = "limit"
	paramOffset     = "offset"
	paramSortBy     = "sort_by"
	paramDescending = "descending"

	paramAuthorContainsCI = "author_contains_ci"
	paramAuthorContainsCS = "author_contains_cs"
	paramAuthorEqualCI    = "author_equal_ci"
	paramAuthorEqualCS    = "author_equal_cs"
	paramKeywordsCI       = "keywords_ci"
	paramKeywordsCS       = "keywords_cs"
	paramLanguage         = "language"
	paramMinLength        = "min_length"
	paramMaxLength        = "max_length"
)

// parseListOptions reads pagination and ordering. Range checks are left to
// ListOptions.Validate.
func parseListOptions(r *http.Request) (quotes.ListOptions, error) {
	opts := quotes.DefaultListOptions()

	var err error
	if opts.Limit, err = httputil.ParseQueryInt(r, paramLimit, quotes.DefaultLimit); err != nil {
		return opts, quotes.NewValidationError(paramLimit, "must be an integer")
	}
	if opts.Offset, err = httputil.ParseQueryInt(r, paramOffset, 0); err != nil {
		return opts, quotes.NewValidationError(paramOffset, "must be an integer")
	}
	if opts.SortBy, err = quotes.ParseSortBy(httputil.ParseQueryString(r, paramSortBy, "")); err != nil {
		return opts, err
	}
	if opts.Descending, err = httputil.ParseQueryBool(r, paramDescending, false); err != nil {
		return opts, quotes.NewValidationError(paramDescending, "must be a boolean")
	}

	return opts, nil
}

func parseSearchFilter(r *http.Request) (quotes.SearchFilter, error) {
	opts, err := parseListOptions(r)
	if err != nil {
		return quotes.SearchFilter{}, err
	}

	filter := quotes.SearchFilter{
		AuthorContainsCI:  httputil.ParseQueryString(r, paramAuthorContainsCI, ""),
		AuthorContainsCS:  httputil.ParseQueryString(r, paramAuthorContainsCS, ""),
		AuthorEqualCI:     httputil.ParseQueryString(r, paramAuthorEqualCI, ""),
		AuthorEqualCS:     httputil.ParseQueryString(r, paramAuthorEqualCS, ""),
		ContentKeywordsCI: httputil.ParseQueryStrings(r, paramKeywordsCI),
		ContentKeywordsCS: httputil.ParseQueryStrings(r, paramKeywordsCS),
		Language:          httputil.ParseQueryString(r, paramLanguage, ""),
		ListOptions:       opts,
	}

	if filter.MinLength, err = httputil.ParseQueryOptionalInt(r, paramMinLength); err != nil {
		return filter, quotes.NewValidationError(paramMinLength, "must be an integer")
	}
	if filter.MaxLength, err = httputil.ParseQueryOptionalInt(r, paramMaxLength); err != nil {
		return filter, quotes.NewValidationError(paramMaxLength, "must be an integer")
	}

	return filter, nil
}
