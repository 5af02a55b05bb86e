package quotes

import (
	"fmt"
	"strings"
)

// Pagination bounds accepted by list and search
const (
	DefaultLimit = 100
	MaxLimit     = 99_999
	MaxOffset    = 9_999_999
)

// SortBy is a column a listing can be ordered by
type SortBy string

const (
	SortByID        SortBy = "id"
	SortByAuthor    SortBy = "author"
	SortByLanguage  SortBy = "language"
	SortByCreatedAt SortBy = "created_at"
)

// SortKeys lists every accepted sort key
var SortKeys = []SortBy{SortByID, SortByAuthor, SortByLanguage, SortByCreatedAt}

// ParseSortBy parses a sort key. An empty value selects SortByID.
func ParseSortBy(value string) (SortBy, error) {
	if value == "" {
		return SortByID, nil
	}
	for _, key := range SortKeys {
		if string(key) == value {
			return key, nil
		}
	}
	return "", NewValidationError("sort_by", fmt.Sprintf("must be one of %s", joinSortKeys()))
}

// Valid reports whether s is a known sort key
func (s SortBy) Valid() bool {
	for _, key := range SortKeys {
		if key == s {
			return true
		}
	}
	return false
}

func joinSortKeys() string {
	names := make([]string, len(SortKeys))
	for i, key := range SortKeys {
		names[i] = string(key)
	}
	return strings.Join(names, ", ")
}

// ListOptions controls ordering and pagination
type ListOptions struct {
	Limit      int
	Offset     int
	SortBy     SortBy
	Descending bool
}

// DefaultListOptions returns the first page ordered by id
func DefaultListOptions() ListOptions {
	return ListOptions{
		Limit:  DefaultLimit,
		Offset: 0,
		SortBy: SortByID,
	}
}

// Validate checks pagination bounds and the sort key
func (o ListOptions) Validate() error {
	if o.Limit < 1 || o.Limit > MaxLimit {
		return NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxLimit))
	}
	if o.Offset < 0 || o.Offset > MaxOffset {
		return NewValidationError("offset", fmt.Sprintf("must be between 0 and %d", MaxOffset))
	}
	if !o.SortBy.Valid() {
		return NewValidationError("sort_by", fmt.Sprintf("must be one of %s", joinSortKeys()))
	}
	return nil
}

// MatchMode selects how a text filter is compared against a column
type MatchMode int

const (
	MatchNone MatchMode = iota
	MatchContainsCI
	MatchContainsCS
	MatchEqualCI
	MatchEqualCS
)

func (m MatchMode) String() string {
	switch m {
	case MatchContainsCI:
		return "contains_ci"
	case MatchContainsCS:
		return "contains_cs"
	case MatchEqualCI:
		return "equal_ci"
	case MatchEqualCS:
		return "equal_cs"
	default:
		return "none"
	}
}

// SearchFilter narrows a listing. The author modes are mutually exclusive, as
// are the two keyword modes. Length bounds are strict and count characters.
type SearchFilter struct {
	AuthorContainsCI string
	AuthorContainsCS string
	AuthorEqualCI    string
	AuthorEqualCS    string

	ContentKeywordsCI []string
	ContentKeywordsCS []string

	Language  string
	MinLength *int
	MaxLength *int

	ListOptions
}

// Validate rejects conflicting modes and inconsistent bounds
func (f SearchFilter) Validate() error {
	if err := f.ListOptions.Validate(); err != nil {
		return err
	}

	authorModes := 0
	for _, v := range []string{f.AuthorContainsCI, f.AuthorContainsCS, f.AuthorEqualCI, f.AuthorEqualCS} {
		if v != "" {
			authorModes++
		}
	}
	if authorModes > 1 {
		return NewValidationError("author",
			"only one of author_contains_ci, author_contains_cs, author_equal_ci, author_equal_cs may be set")
	}

	if len(f.ContentKeywordsCI) > 0 && len(f.ContentKeywordsCS) > 0 {
		return NewValidationError("keywords", "only one of keywords_ci, keywords_cs may be set")
	}

	if f.MinLength != nil && *f.MinLength <= 0 {
		return NewValidationError("min_length", "must be greater than 0")
	}
	if f.MaxLength != nil && *f.MaxLength <= 0 {
		return NewValidationError("max_length", "must be greater than 0")
	}
	if f.MinLength != nil && f.MaxLength != nil && *f.MaxLength < *f.MinLength {
		return NewValidationError("max_length", "must not be less than min_length")
	}

	return nil
}

// AuthorMatch returns the selected author mode and its operand
func (f SearchFilter) AuthorMatch() (MatchMode, string) {
	switch {
	case f.AuthorContainsCI != "":
		return MatchContainsCI, f.AuthorContainsCI
	case f.AuthorContainsCS != "":
		return MatchContainsCS, f.AuthorContainsCS
	case f.AuthorEqualCI != "":
		return MatchEqualCI, f.AuthorEqualCI
	case f.AuthorEqualCS != "":
		return MatchEqualCS, f.AuthorEqualCS
	}
	return MatchNone, ""
}

// ContentMatch returns the selected keyword mode and the keywords joined by
// single spaces, which is the substring matched against the content.
func (f SearchFilter) ContentMatch() (MatchMode, string) {
	switch {
	case len(f.ContentKeywordsCI) > 0:
		return MatchContainsCI, strings.Join(f.ContentKeywordsCI, " ")
	case len(f.ContentKeywordsCS) > 0:
		return MatchContainsCS, strings.Join(f.ContentKeywordsCS, " ")
	}
	return MatchNone, ""
}

// HasFilters reports whether any narrowing filter is set
func (f SearchFilter) HasFilters() bool {
	authorMode, _ := f.AuthorMatch()
	contentMode, _ := f.ContentMatch()
	return authorMode != MatchNone ||
		contentMode != MatchNone ||
		f.Language != "" ||
		f.MinLength != nil ||
		f.MaxLength != nil
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
