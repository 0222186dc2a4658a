// Package port defines the interfaces between the cache state core and
// its adapters.
package port

import "github.com/vertextoedge/streamcache/internal/domain"

// SnapshotStore reads and writes per-resource snapshot blobs.
type SnapshotStore interface {
	// Read returns the snapshot blob at path, or domain.ErrSnapshotNotFound
	// if no snapshot exists there.
	Read(path string) ([]byte, error)

	// Write atomically replaces the snapshot blob at path.
	Write(path string, data []byte) error

	// Remove deletes the snapshot blob at path. Removing a snapshot
	// that does not exist is not an error.
	Remove(path string) error
}

// ResourceRepository is the audit index of known cached resources.
// All of its operations are best-effort from the core's point of view:
// callers log failures and move on.
type ResourceRepository interface {
	UpsertResource(rec *domain.ResourceRecord) error
	GetResource(cachePath string) (*domain.ResourceRecord, error)
	ListResources() ([]*domain.ResourceRecord, error)
	ReplaceSamples(cachePath string, samples []domain.Sample) error
	GetSamples(cachePath string) ([]domain.Sample, error)
}
