package domain

import "time"

// ResourceRecord is one row of the resource audit index: a summary of
// the persisted state of one cached resource, keyed by the cache file
// path it belongs to.
type ResourceRecord struct {
	CachePath     string
	URL           string
	FileName      string
	BytesCached   int64
	FragmentCount int
	UpdatedAt     time.Time
}
