package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/lib/pq"

	"github.com/platinummonkey/quotes/pkg/quotes"
)

const quoteColumns = "id, content, author, language, created_at, times_accessed"

// sortColumns maps sort keys to column names so client input never reaches SQL text
var sortColumns = map[quotes.SortBy]string{
	quotes.SortByID:        "id",
	quotes.SortByAuthor:    "author",
	quotes.SortByLanguage:  "language",
	quotes.SortByCreatedAt: "created_at",
}

// QuoteStore implements quotes.Store on PostgreSQL. Every read increments
// times_accessed of the returned rows in the same transaction.
type QuoteStore struct {
	db *sql.DB
	// randN returns a uniform value in [0, n)
	randN func(n int64) int64
}

var _ quotes.Store = (*QuoteStore)(nil)

// NewQuoteStore creates a store over an open pool
func NewQuoteStore(db *sql.DB) *QuoteStore {
	return &QuoteStore{
		db:    db,
		randN: rand.Int63n,
	}
}

// List returns one page of quotes
func (s *QuoteStore) List(ctx context.Context, opts quotes.ListOptions) ([]quotes.Quote, error) {
	return s.Search(ctx, quotes.SearchFilter{ListOptions: opts})
}

// Search returns one page of quotes matching filter. A filter without
// conditions behaves exactly like List.
func (s *QuoteStore) Search(ctx context.Context, filter quotes.SearchFilter) ([]quotes.Quote, error) {
	query, args, err := buildSearchQuery(filter)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	result, err := scanQuotes(rows)
	if err != nil {
		return nil, err
	}

	if err := bumpPopularity(ctx, tx, result); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// Get returns the quote with id and counts the access
func (s *QuoteStore) Get(ctx context.Context, id int64) (quotes.Quote, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE quotes SET times_accessed = times_accessed + 1
		WHERE id = $1
		RETURNING `+quoteColumns, id)

	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return quotes.Quote{}, quotes.ErrNotFound
	}
	if err != nil {
		return quotes.Quote{}, fmt.Errorf("failed to get quote %d: %w", id, err)
	}
	return quote, nil
}

// Random picks a uniform id in [MIN(id), MAX(id)] and returns the first quote
// at or above it, so gaps left in the sequence never yield an empty result.
func (s *QuoteStore) Random(ctx context.Context) (quotes.Quote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return quotes.Quote{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var minID, maxID sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MIN(id), MAX(id) FROM quotes").Scan(&minID, &maxID); err != nil {
		return quotes.Quote{}, fmt.Errorf("failed to read id range: %w", err)
	}
	if !minID.Valid || !maxID.Valid {
		return quotes.Quote{}, quotes.ErrNotFound
	}

	pick := minID.Int64 + s.randN(maxID.Int64-minID.Int64+1)

	row := tx.QueryRowContext(ctx, `
		UPDATE quotes SET times_accessed = times_accessed + 1
		WHERE id = (SELECT id FROM quotes WHERE id >= $1 ORDER BY id LIMIT 1)
		RETURNING `+quoteColumns, pick)

	quote, err := scanQuote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return quotes.Quote{}, quotes.ErrNotFound
	}
	if err != nil {
		return quotes.Quote{}, fmt.Errorf("failed to get random quote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return quotes.Quote{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return quote, nil
}

// Insert stores one quote and returns it with its generated fields
func (s *QuoteStore) Insert(ctx context.Context, quote quotes.NewQuote) (quotes.Quote, error) {
	row := s.db.QueryRowContext(ctx, insertQuoteSQL, quote.Content, quote.Author, quote.Language)
	stored, err := scanQuote(row)
	if err != nil {
		return quotes.Quote{}, fmt.Errorf("failed to insert quote: %w", err)
	}
	return stored, nil
}

const insertQuoteSQL = `
	INSERT INTO quotes (content, author, language)
	VALUES ($1, $2, $3)
	RETURNING ` + quoteColumns

// InsertMany stores every quote in one transaction. Any failure rolls back
// the whole batch.
func (s *QuoteStore) InsertMany(ctx context.Context, batch []quotes.NewQuote) ([]quotes.Quote, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertQuoteSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	stored := make([]quotes.Quote, 0, len(batch))
	for i, quote := range batch {
		q, err := scanQuote(stmt.QueryRowContext(ctx, quote.Content, quote.Author, quote.Language))
		if err != nil {
			return nil, fmt.Errorf("failed to insert quote %d: %w", i, err)
		}
		stored = append(stored, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return stored, nil
}

// Count returns the number of stored quotes
func (s *QuoteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM quotes").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count quotes: %w", err)
	}
	return n, nil
}

// buildSearchQuery builds the filtered, ordered and paginated select
func buildSearchQuery(filter quotes.SearchFilter) (string, []interface{}, error) {
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		return "", nil, quotes.NewValidationError("sort_by", fmt.Sprintf("unknown sort key %q", filter.SortBy))
	}

	var qb strings.Builder
	qb.WriteString("SELECT " + quoteColumns + " FROM quotes WHERE 1=1")

	args := make([]interface{}, 0, 6)
	argIndex := 1

	addCondition := func(column string, mode quotes.MatchMode, value string) {
		switch mode {
		case quotes.MatchContainsCI:
			args = append(args, escapeLike(value))
			qb.WriteString(fmt.Sprintf(" AND %s ILIKE '%%' || $%d || '%%'", column, argIndex))
		case quotes.MatchContainsCS:
			args = append(args, value)
			qb.WriteString(fmt.Sprintf(" AND strpos(%s, $%d) > 0", column, argIndex))
		case quotes.MatchEqualCI:
			args = append(args, value)
			qb.WriteString(fmt.Sprintf(" AND lower(%s) = lower($%d)", column, argIndex))
		case quotes.MatchEqualCS:
			args = append(args, value)
			qb.WriteString(fmt.Sprintf(" AND %s = $%d", column, argIndex))
		default:
			return
		}
		argIndex++
	}

	authorMode, author := filter.AuthorMatch()
	addCondition("author", authorMode, author)

	contentMode, keywords := filter.ContentMatch()
	addCondition("content", contentMode, keywords)

	if filter.Language != "" {
		addCondition("language", quotes.MatchEqualCS, filter.Language)
	}

	if filter.MinLength != nil {
		args = append(args, *filter.MinLength)
		qb.WriteString(fmt.Sprintf(" AND char_length(content) > $%d", argIndex))
		argIndex++
	}
	if filter.MaxLength != nil {
		args = append(args, *filter.MaxLength)
		qb.WriteString(fmt.Sprintf(" AND char_length(content) < $%d", argIndex))
		argIndex++
	}

	qb.WriteString(" ORDER BY " + column)
	if filter.Descending {
		qb.WriteString(" DESC")
	}
	if column != "id" {
		qb.WriteString(", id")
	}

	args = append(args, filter.Limit, filter.Offset)
	qb.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1))

	return qb.String(), args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes value match literally inside a LIKE pattern
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

// bumpPopularity increments times_accessed for every quote in result and
// copies the new values back
func bumpPopularity(ctx context.Context, tx *sql.Tx, result []quotes.Quote) error {
	if len(result) == 0 {
		return nil
	}

	ids := make([]int64, len(result))
	for i, q := range result {
		ids[i] = q.ID
	}

	rows, err := tx.QueryContext(ctx, `
		UPDATE quotes SET times_accessed = times_accessed + 1
		WHERE id = ANY($1)
		RETURNING id, times_accessed`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to update popularity: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64, len(result))
	for rows.Next() {
		var id, accessed int64
		if err := rows.Scan(&id, &accessed); err != nil {
			return fmt.Errorf("failed to scan popularity: %w", err)
		}
		counts[id] = accessed
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read popularity: %w", err)
	}

	for i := range result {
		if n, ok := counts[result[i].ID]; ok {
			result[i].TimesAccessed = n
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuote(row rowScanner) (quotes.Quote, error) {
	var q quotes.Quote
	err := row.Scan(&q.ID, &q.Content, &q.Author, &q.Language, &q.CreatedAt, &q.TimesAccessed)
	return q, err
}

func scanQuotes(rows *sql.Rows) ([]quotes.Quote, error) {
	defer rows.Close()

	result := make([]quotes.Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		result = append(result, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read quotes: %w", err)
	}
	return result, nil
}
