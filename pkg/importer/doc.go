// Package importer reads the plain text quote format and loads it into a
// quotes.Store.
//
// Each non-blank line looks like
//
//	12. To be or not to be – William Shakespeare
//
// The leading number is dropped and the last " – " (U+2013) separates the
// content from the author.
package importer
