package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/quotes/pkg/httputil"
	"github.com/platinummonkey/quotes/pkg/observability"
	"github.com/platinummonkey/quotes/pkg/quotes"
)

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, s.info)
}

func (s *Server) randomQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.service.Random(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, quote)
}

func (s *Server) listQuotes(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	qs, err := s.service.List(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, quotes.NewQuoteList(qs))
}

func (s *Server) searchQuotes(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSearchFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	qs, err := s.service.Search(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, quotes.NewQuoteList(qs))
}

func (s *Server) getQuote(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	quote, err := s.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, quote)
}

func (s *Server) addOne(w http.ResponseWriter, r *http.Request) {
	var req quotes.NewQuote
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	quote, err := s.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, quote)
}

func (s *Server) addBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	qs, err := s.service.CreateBatch(r.Context(), req.Quotes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.WriteCreated(w, quotes.NewQuoteList(qs))
}

// writeError maps domain errors to status codes. Anything unexpected is
// logged and answered with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case quotes.IsValidationError(err):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, quotes.ErrNotFound):
		httputil.WriteNotFound(w, err.Error())
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Quote request failed")
		httputil.WriteInternalError(w)
	}
}
