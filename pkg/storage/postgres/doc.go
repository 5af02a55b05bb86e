// Package postgres persists quotes in PostgreSQL and creates the Redis client
// used by the rate limiter.
//
// # Connections
//
//	db, err := postgres.Open(ctx, postgres.ConnectionConfig{
//		URL:      cfg.Database.DSN(),
//		MaxConns: cfg.Database.MaxConns,
//	})
//	applied, err := postgres.RunMigrations(ctx, db)
//
// Migrations are versioned, applied one transaction each and recorded in
// quotes_migrations, so running them on every start is safe.
//
// # Quote Store
//
// QuoteStore implements quotes.Store. Read paths select the rows and bump
// times_accessed with one UPDATE ... WHERE id = ANY($1) RETURNING inside the
// same transaction; the returned records carry the incremented counters.
// Sort keys map to fixed column names and every filter value is a bound
// parameter.
//
// # Redis
//
//	client, err := postgres.NewRedisClient(ctx, postgres.RedisConfig{
//		Address: "redis://localhost:6379/0",
//	})
package postgres
