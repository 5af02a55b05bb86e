package quotes

import (
	"time"
)

// DefaultLanguage is the language assigned to imported quotes
const DefaultLanguage = "en"

// Quote is a stored quote
type Quote struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	Author        string    `json:"author"`
	Language      string    `json:"language"`
	CreatedAt     time.Time `json:"created_at"`
	TimesAccessed int64     `json:"popularity"`
}

// NewQuote is the client supplied part of a quote. Identity, creation time and
// the access counter are always assigned by the store.
type NewQuote struct {
	Content  string `json:"content" validate:"required,notblank"`
	Author   string `json:"author" validate:"required,notblank"`
	Language string `json:"language" validate:"required,notblank,min=2,max=8"`
}

// QuoteList is a page of quotes with its size
type QuoteList struct {
	Quotes []Quote `json:"quotes"`
	Count  int     `json:"count"`
}

// NewQuoteList wraps quotes for a response, never producing a null array
func NewQuoteList(qs []Quote) QuoteList {
	if qs == nil {
		qs = []Quote{}
	}
	return QuoteList{Quotes: qs, Count: len(qs)}
}
