package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/quotes/pkg/quotes"
	"github.com/platinummonkey/quotes/pkg/quotes/quotestest"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    quotes.NewQuote
		wantErr bool
	}{
		{
			name: "numbered line",
			line: "12. To be or not to be – Shakespeare",
			want: quotes.NewQuote{Content: "To be or not to be", Author: "Shakespeare", Language: "en"},
		},
		{
			name: "dash inside content",
			line: "3. Now – or never – Anonymous",
			want: quotes.NewQuote{Content: "Now – or never", Author: "Anonymous", Language: "en"},
		},
		{
			name: "sentence inside content",
			line: "7. Stay hungry. Stay foolish. – Steve Jobs",
			want: quotes.NewQuote{Content: "Stay hungry. Stay foolish.", Author: "Steve Jobs", Language: "en"},
		},
		{
			name: "no ordinal",
			line: "Be yourself. Everyone else is taken – Oscar Wilde",
			want: quotes.NewQuote{Content: "Be yourself. Everyone else is taken", Author: "Oscar Wilde", Language: "en"},
		},
		{
			name: "decimal number in content",
			line: "1.5 degrees is the limit – IPCC",
			want: quotes.NewQuote{Content: "1.5 degrees is the limit", Author: "IPCC", Language: "en"},
		},
		{
			name: "surrounding whitespace",
			line: "  1.   Know thyself  –  Socrates \r",
			want: quotes.NewQuote{Content: "Know thyself", Author: "Socrates", Language: "en"},
		},
		{
			name:    "hyphen instead of en dash",
			line:    "1. Know thyself - Socrates",
			wantErr: true,
		},
		{
			name:    "empty author",
			line:    "1. Know thyself – ",
			wantErr: true,
		},
		{
			name:    "empty content",
			line:    "1.  – Socrates",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line, "")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_Language(t *testing.T) {
	got, err := ParseLine("1. Veni, vidi, vici – Julius Caesar", "la")
	require.NoError(t, err)
	assert.Equal(t, "la", got.Language)
}

func TestParse(t *testing.T) {
	input := "\ufeff1. To be or not to be – Shakespeare\n" +
		"\n" +
		"2. Know thyself – Socrates\r\n" +
		"   \n" +
		"3. Veni, vidi, vici – Julius Caesar"

	result, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, result.Lines)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Quotes, 3)
	assert.Equal(t, "To be or not to be", result.Quotes[0].Content)
	assert.Equal(t, "Socrates", result.Quotes[1].Author)
	assert.Equal(t, "Julius Caesar", result.Quotes[2].Author)
}

func TestParse_InvalidLine(t *testing.T) {
	input := "1. To be or not to be – Shakespeare\n2. no author here\n3. Know thyself – Socrates\n"

	_, err := Parse(strings.NewReader(input), Options{})
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, 2, lineErr.Line)
	assert.Contains(t, err.Error(), "line 2")

	result, err := Parse(strings.NewReader(input), Options{SkipInvalid: true, Language: "pl"})
	require.NoError(t, err)
	require.Len(t, result.Quotes, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 2, result.Skipped[0].Line)
	assert.Equal(t, "pl", result.Quotes[1].Language)
}

func TestLoader_Load(t *testing.T) {
	store := quotestest.NewMemoryStore()
	loader := NewLoader(store)

	n, err := loader.Load(context.Background(), []quotes.NewQuote{
		{Content: "To be or not to be", Author: "Shakespeare", Language: "en"},
		{Content: "Know thyself", Author: "Socrates", Language: "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.Snapshot(), 2)
}

func TestLoader_LoadIsAtomic(t *testing.T) {
	store := quotestest.NewMemoryStore()
	store.FailInsertAt = 1
	loader := NewLoader(store)

	_, err := loader.Load(context.Background(), []quotes.NewQuote{
		{Content: "one", Author: "A", Language: "en"},
		{Content: "two", Author: "B", Language: "en"},
	})
	require.ErrorIs(t, err, quotestest.ErrInjected)
	assert.Empty(t, store.Snapshot())
}

func TestLoader_LoadRejectsInvalidLanguage(t *testing.T) {
	store := quotestest.NewMemoryStore()
	loader := NewLoader(store)

	_, err := loader.Load(context.Background(), []quotes.NewQuote{
		{Content: "one", Author: "A", Language: "english-language"},
	})
	require.Error(t, err)
	assert.True(t, quotes.IsValidationError(err))
	assert.Empty(t, store.Snapshot())
}

func TestLoader_LoadEmpty(t *testing.T) {
	n, err := NewLoader(quotestest.NewMemoryStore()).Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
