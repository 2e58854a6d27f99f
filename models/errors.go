// models/errors.go
package models

import "fmt"

// DiscoveryError means the upstream listing for a category was
// unreachable or unparseable. Fatal for that category's cycle; no
// metadata mutation occurs.
type DiscoveryError struct {
	Category ChartCategory
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Category, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// FetchError means the archive for a stale edition was missing, truncated
// or corrupt. Fatal for the cycle; the working directory is discarded and
// the same edition is retried on the next run.
type FetchError struct {
	Category ChartCategory
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s (%s): %v", e.Category, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ConversionError aggregates per-file conversion failures for one
// edition. Any failed file blocks the metadata commit.
type ConversionError struct {
	Category ChartCategory
	Failed   int
	Total    int
	Err      error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed for %s (%d of %d files): %v", e.Category, e.Failed, e.Total, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// PublishError means an upload or delete against the object store failed
// even after retrying.
type PublishError struct {
	Category ChartCategory
	Op       string // "upload" or "delete"
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s failed for %s: %v", e.Op, e.Category, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// MetadataCorruptionError flags an unreadable metadata file. Reads degrade
// to "absent"; only write failures are fatal.
type MetadataCorruptionError struct {
	Path string
	Err  error
}

func (e *MetadataCorruptionError) Error() string {
	return fmt.Sprintf("metadata file %s is corrupt: %v", e.Path, e.Err)
}

func (e *MetadataCorruptionError) Unwrap() error { return e.Err }
