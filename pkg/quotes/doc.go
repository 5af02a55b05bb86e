// Package quotes defines the quote domain: the persisted Quote record, the
// payload used to create one, listing and search options, and the Service
// that validates requests before handing them to a Store.
//
// # Overview
//
// A Quote is immutable once stored except for its access counter, which the
// store increments on every read that is served to a client. The counter is
// exposed to clients as "popularity".
//
// # Searching
//
// SearchFilter combines at most one author matching mode, at most one
// content keyword mode, and the independent language and length filters:
//
//	filter := quotes.SearchFilter{
//		AuthorContainsCI: "shake",
//		MinLength:        quotes.IntPtr(20),
//		ListOptions:      quotes.DefaultListOptions(),
//	}
//	if err := filter.Validate(); err != nil {
//		// *ValidationError
//	}
//
// # Errors
//
// Store implementations return ErrNotFound for unknown ids. Validation
// failures are reported as *ValidationError so callers can map them to a
// client error with IsValidationError.
//
// # Related Packages
//
//   - pkg/storage/postgres: Store implementation
//   - pkg/api: HTTP handlers built on Service
package quotes
