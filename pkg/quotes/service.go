package quotes

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/quotes/pkg/observability"
)

var serviceTracer = otel.Tracer("quotes/service")

// Service validates requests and delegates them to a Store
type Service struct {
	store     Store
	validator *Validator
	metrics   *observability.Metrics
}

// NewService creates a quote service. metrics may be nil.
func NewService(store Store, metrics *observability.Metrics) *Service {
	return &Service{
		store:     store,
		validator: NewValidator(),
		metrics:   metrics,
	}
}

// List returns one page of quotes in the requested order
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "List", trace.WithAttributes(listAttributes(opts)...))
	defer span.End()

	if err := opts.Validate(); err != nil {
		return nil, rejected(span, err)
	}

	qs, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, failed(span, err, "failed to list quotes")
	}

	span.SetAttributes(attribute.Int("result_count", len(qs)))
	s.metrics.RecordQuoteReads("list", len(qs))
	return qs, nil
}

// Get returns the quote with the given id
func (s *Service) Get(ctx context.Context, id int64) (Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "Get", trace.WithAttributes(attribute.Int64("id", id)))
	defer span.End()

	if id <= 0 {
		return Quote{}, ErrNotFound
	}

	quote, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quote{}, err
		}
		return Quote{}, failed(span, err, "failed to get quote")
	}

	s.metrics.RecordQuoteReads("get", 1)
	return quote, nil
}

// Random returns a randomly chosen quote
func (s *Service) Random(ctx context.Context) (Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "Random")
	defer span.End()

	quote, err := s.store.Random(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Quote{}, err
		}
		return Quote{}, failed(span, err, "failed to get random quote")
	}

	span.SetAttributes(attribute.Int64("id", quote.ID))
	s.metrics.RecordQuoteReads("random", 1)
	return quote, nil
}

// Search returns the quotes matching filter
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]Quote, error) {
	authorMode, _ := filter.AuthorMatch()
	contentMode, _ := filter.ContentMatch()
	attrs := append(listAttributes(filter.ListOptions),
		attribute.Bool("has_filters", filter.HasFilters()),
		attribute.String("author_mode", authorMode.String()),
		attribute.String("content_mode", contentMode.String()),
	)
	ctx, span := serviceTracer.Start(ctx, "Search", trace.WithAttributes(attrs...))
	defer span.End()

	if err := filter.Validate(); err != nil {
		return nil, rejected(span, err)
	}

	qs, err := s.store.Search(ctx, filter)
	if err != nil {
		return nil, failed(span, err, "failed to search quotes")
	}

	span.SetAttributes(attribute.Int("result_count", len(qs)))
	s.metrics.RecordQuoteReads("search", len(qs))
	return qs, nil
}

// Create validates and stores a single quote
func (s *Service) Create(ctx context.Context, quote NewQuote) (Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "Create")
	defer span.End()

	if err := s.validator.ValidateQuote(quote); err != nil {
		return Quote{}, rejected(span, err)
	}

	stored, err := s.store.Insert(ctx, quote)
	if err != nil {
		return Quote{}, failed(span, err, "failed to create quote")
	}

	span.SetAttributes(attribute.Int64("id", stored.ID))
	s.metrics.RecordQuotesCreated("add_one", 1)
	return stored, nil
}

// CreateBatch validates every quote, then stores all of them atomically
func (s *Service) CreateBatch(ctx context.Context, batch []NewQuote) ([]Quote, error) {
	ctx, span := serviceTracer.Start(ctx, "CreateBatch", trace.WithAttributes(attribute.Int("batch_size", len(batch))))
	defer span.End()

	if err := s.validator.ValidateBatch(batch); err != nil {
		return nil, rejected(span, err)
	}

	stored, err := s.store.InsertMany(ctx, batch)
	if err != nil {
		return nil, failed(span, err, "failed to create quotes")
	}

	s.metrics.RecordQuotesCreated("add_batch", len(stored))
	return stored, nil
}

// Count returns the number of stored quotes
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

func listAttributes(opts ListOptions) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("limit", opts.Limit),
		attribute.Int("offset", opts.Offset),
		attribute.String("sort_by", string(opts.SortBy)),
		attribute.Bool("descending", opts.Descending),
	}
}

func rejected(span trace.Span, err error) error {
	span.SetStatus(codes.Error, "invalid request")
	span.SetAttributes(attribute.String("validation_error", err.Error()))
	return err
}

func failed(span trace.Span, err error, message string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, message)
	return fmt.Errorf("%s: %w", message, err)
}
