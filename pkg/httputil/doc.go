// Package httputil provides JSON responses, request parsing and the generic
// HTTP middleware shared by the API server.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, quote)
//	httputil.WriteCreated(w, list)
//	httputil.WriteBadRequest(w, "invalid limit: must be between 1 and 99999")
//	httputil.WriteInternalError(w) // always {"error":"internal server error"}
//
// Every error body has the shape {"error": "..."}.
//
// # Request Parsing
//
//	var payload quotes.NewQuote
//	if err := httputil.DecodeJSON(r, &payload); err != nil {
//		httputil.WriteBadRequest(w, err.Error())
//		return
//	}
//	limit, err := httputil.ParseQueryInt(r, "limit", 100)
//	keywords := httputil.ParseQueryStrings(r, "keywords_ci")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger, false),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//	)(router)
package httputil
