// Package api provides the HTTP REST API for the quotes service.
//
// # Routes
//
// All quote routes live under BasePath + "/quotes", require the client key and
// are rate limited per endpoint:
//
//	GET  /quotes            paginated, sorted list              (list)
//	GET  /quotes/random     one random quote                    (random)
//	GET  /quotes/search     filtered, sorted, paginated list    (search)
//	GET  /quotes/{id}       one quote by id                     (get)
//	POST /quotes/add_one    store one quote, 201                (add_one)
//	POST /quotes/add_batch  store many quotes atomically, 201   (add_batch)
//
// GET BasePath + "/info" returns the title and version and needs no key.
//
// # Usage
//
//	server := api.NewServer(quotes.NewService(store, metrics), api.Options{
//		BasePath:   cfg.API.BaseURL,
//		APIKey:     cfg.API.Key,
//		Limiter:    middleware.NewRateLimiter(redisClient, "", metrics),
//		RateLimits: cfg.RateLimits,
//		Metrics:    metrics,
//		Logger:     logger,
//	})
//	http.ListenAndServe(":8080", server)
//
// # Errors
//
// Validation and parameter errors answer 400, unknown ids and an empty store
// answer 404. Every other failure is logged and answered with a generic 500
// body. Every read increments the popularity of the quotes it returns, and the
// response carries the incremented value.
package api
