package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/platinummonkey/quotes/pkg/quotes"
)

const (
	// AuthorSeparator splits content from author: an en dash with spaces
	AuthorSeparator = " – "

	maxLineBytes = 1 << 20
)

// LineError reports a line that could not be parsed
type LineError struct {
	Line   int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Options controls parsing
type Options struct {
	// Language is assigned to every parsed quote; empty selects quotes.DefaultLanguage
	Language string
	// SkipInvalid collects malformed lines instead of failing on the first one
	SkipInvalid bool
}

// Result is the outcome of parsing a whole file
type Result struct {
	Quotes  []quotes.NewQuote
	Skipped []*LineError
	// Lines counts every line read, blank ones included
	Lines int
}

// ordinal matches a leading line number such as "12. "
var ordinal = regexp.MustCompile(`^\d+\.\s+`)

var (
	errNoSeparator  = errors.New("missing \" – \" between content and author")
	errEmptyContent = errors.New("empty content")
	errEmptyAuthor  = errors.New("empty author")
)

// ParseLine parses one "<number>. <content> – <author>" line. A leading
// ordinal is dropped when present, and the last " – " separates content from
// author.
func ParseLine(line, language string) (quotes.NewQuote, error) {
	if language == "" {
		language = quotes.DefaultLanguage
	}

	text := strings.TrimSpace(line)
	text = ordinal.ReplaceAllString(text, "")

	idx := strings.LastIndex(text, AuthorSeparator)
	if idx < 0 {
		return quotes.NewQuote{}, errNoSeparator
	}

	content := strings.TrimSpace(text[:idx])
	author := strings.TrimSpace(text[idx+len(AuthorSeparator):])
	if content == "" {
		return quotes.NewQuote{}, errEmptyContent
	}
	if author == "" {
		return quotes.NewQuote{}, errEmptyAuthor
	}

	return quotes.NewQuote{Content: content, Author: author, Language: language}, nil
}

// Parse reads quotes from r, one per non-blank line
func Parse(r io.Reader, opts Options) (Result, error) {
	var result Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		result.Lines++
		line := scanner.Text()
		if result.Lines == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		quote, err := ParseLine(line, opts.Language)
		if err != nil {
			lineErr := &LineError{Line: result.Lines, Reason: err.Error()}
			if !opts.SkipInvalid {
				return result, lineErr
			}
			result.Skipped = append(result.Skipped, lineErr)
			continue
		}
		result.Quotes = append(result.Quotes, quote)
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("failed to read quotes: %w", err)
	}
	return result, nil
}
