package api

import (
	"github.com/platinummonkey/quotes/pkg/quotes"
)

// InfoResponse describes the running API
type InfoResponse struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// BatchRequest is the add_batch payload
type BatchRequest struct {
	Quotes []quotes.NewQuote `json:"quotes"`
}
