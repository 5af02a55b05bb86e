// Package quotestest provides an in-memory quotes.Store for tests.
package quotestest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/platinummonkey/quotes/pkg/quotes"
)

// ErrInjected is returned by MemoryStore when a failure has been injected
var ErrInjected = errors.New("injected store failure")

// MemoryStore is a quotes.Store backed by a slice. It mirrors the semantics
// of the Postgres store closely enough to exercise handlers and the service.
type MemoryStore struct {
	mu     sync.Mutex
	quotes []quotes.Quote
	nextID int64
	now    func() time.Time

	// FailInsertAt makes InsertMany fail on the item with this index, after
	// the preceding items were staged. Negative disables it.
	FailInsertAt int
	// Err, when set, is returned by every method.
	Err error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	return &MemoryStore{
		nextID: 1,
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
		FailInsertAt: -1,
	}
}

// Seed stores quotes directly and returns them
func (m *MemoryStore) Seed(qs ...quotes.NewQuote) []quotes.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]quotes.Quote, 0, len(qs))
	for _, q := range qs {
		out = append(out, m.insertLocked(q))
	}
	return out
}

// Snapshot returns a copy of the stored quotes without touching counters
func (m *MemoryStore) Snapshot() []quotes.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]quotes.Quote, len(m.quotes))
	copy(out, m.quotes)
	return out
}

func (m *MemoryStore) insertLocked(q quotes.NewQuote) quotes.Quote {
	language := q.Language
	if language == "" {
		language = quotes.DefaultLanguage
	}
	stored := quotes.Quote{
		ID:        m.nextID,
		Content:   q.Content,
		Author:    q.Author,
		Language:  language,
		CreatedAt: m.now(),
	}
	m.nextID++
	m.quotes = append(m.quotes, stored)
	return stored
}

func (m *MemoryStore) List(ctx context.Context, opts quotes.ListOptions) ([]quotes.Quote, error) {
	return m.Search(ctx, quotes.SearchFilter{ListOptions: opts})
}

func (m *MemoryStore) Get(ctx context.Context, id int64) (quotes.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return quotes.Quote{}, m.Err
	}
	for i := range m.quotes {
		if m.quotes[i].ID == id {
			m.quotes[i].TimesAccessed++
			return m.quotes[i], nil
		}
	}
	return quotes.Quote{}, quotes.ErrNotFound
}

func (m *MemoryStore) Random(ctx context.Context) (quotes.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return quotes.Quote{}, m.Err
	}
	if len(m.quotes) == 0 {
		return quotes.Quote{}, quotes.ErrNotFound
	}
	i := int(m.now().UnixNano() % int64(len(m.quotes)))
	m.quotes[i].TimesAccessed++
	return m.quotes[i], nil
}

func (m *MemoryStore) Search(ctx context.Context, filter quotes.SearchFilter) ([]quotes.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	authorMode, author := filter.AuthorMatch()
	contentMode, keywords := filter.ContentMatch()

	var idx []int
	for i, q := range m.quotes {
		if !matches(q.Author, authorMode, author) || !matches(q.Content, contentMode, keywords) {
			continue
		}
		if filter.Language != "" && q.Language != filter.Language {
			continue
		}
		length := utf8.RuneCountInString(q.Content)
		if filter.MinLength != nil && length <= *filter.MinLength {
			continue
		}
		if filter.MaxLength != nil && length >= *filter.MaxLength {
			continue
		}
		idx = append(idx, i)
	}

	sort.SliceStable(idx, func(a, b int) bool {
		qa, qb := m.quotes[idx[a]], m.quotes[idx[b]]
		less, equal := compare(qa, qb, filter.SortBy)
		if equal {
			return qa.ID < qb.ID
		}
		if filter.Descending {
			return !less
		}
		return less
	})

	if filter.Offset >= len(idx) {
		return []quotes.Quote{}, nil
	}
	idx = idx[filter.Offset:]
	if filter.Limit > 0 && len(idx) > filter.Limit {
		idx = idx[:filter.Limit]
	}

	out := make([]quotes.Quote, 0, len(idx))
	for _, i := range idx {
		m.quotes[i].TimesAccessed++
		out = append(out, m.quotes[i])
	}
	return out, nil
}

func (m *MemoryStore) Insert(ctx context.Context, q quotes.NewQuote) (quotes.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return quotes.Quote{}, m.Err
	}
	return m.insertLocked(q), nil
}

func (m *MemoryStore) InsertMany(ctx context.Context, batch []quotes.NewQuote) ([]quotes.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	savedQuotes, savedID := len(m.quotes), m.nextID
	out := make([]quotes.Quote, 0, len(batch))
	for i, q := range batch {
		if i == m.FailInsertAt {
			m.quotes = m.quotes[:savedQuotes]
			m.nextID = savedID
			return nil, ErrInjected
		}
		out = append(out, m.insertLocked(q))
	}
	return out, nil
}

func (m *MemoryStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.quotes)), nil
}

func matches(value string, mode quotes.MatchMode, operand string) bool {
	switch mode {
	case quotes.MatchContainsCI:
		return strings.Contains(strings.ToLower(value), strings.ToLower(operand))
	case quotes.MatchContainsCS:
		return strings.Contains(value, operand)
	case quotes.MatchEqualCI:
		return strings.EqualFold(value, operand)
	case quotes.MatchEqualCS:
		return value == operand
	default:
		return true
	}
}

func compare(a, b quotes.Quote, by quotes.SortBy) (less, equal bool) {
	switch by {
	case quotes.SortByAuthor:
		return a.Author < b.Author, a.Author == b.Author
	case quotes.SortByLanguage:
		return a.Language < b.Language, a.Language == b.Language
	case quotes.SortByCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
	default:
		return a.ID < b.ID, a.ID == b.ID
	}
}
