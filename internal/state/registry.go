package state

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/streamcache/internal/domain"
	"github.com/vertextoedge/streamcache/internal/port"
)

// Registry hands out one Configuration per cache file path. It replaces
// the implicit process-wide cache the player used to keep: insertion
// happens on first Get, eviction only through Evict. Deleting the cache
// file and its snapshot stays a filesystem operation owned by the
// caller.
type Registry struct {
	opts Options
	repo port.ResourceRepository

	mu      sync.Mutex
	entries map[string]*Configuration
}

// NewRegistry creates a registry. repo may be nil; when set, every
// successful snapshot write also refreshes the resource audit index,
// best-effort.
func NewRegistry(opts Options, repo port.ResourceRepository) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Registry{
		opts:    opts,
		repo:    repo,
		entries: make(map[string]*Configuration),
	}
}

// Get returns the Configuration for the given cache file path, loading
// it on first use. Concurrent calls for the same path observe the same
// instance.
func (r *Registry) Get(cacheFilePath string) *Configuration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.entries[cacheFilePath]; ok {
		return c
	}

	opts := r.opts
	if r.repo != nil {
		opts.AfterSave = r.recordSave
	}
	c := Load(cacheFilePath, opts)
	r.entries[cacheFilePath] = c
	return c
}

// Evict removes the entry for the given path and cancels its pending
// save. It does not touch the cache file or the snapshot on disk.
func (r *Registry) Evict(cacheFilePath string) {
	r.mu.Lock()
	c, ok := r.entries[cacheFilePath]
	delete(r.entries, cacheFilePath)
	r.mu.Unlock()

	if ok {
		c.Close()
	}
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close evicts every entry.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*Configuration)
	r.mu.Unlock()

	for _, c := range entries {
		c.Close()
	}
}

// recordSave refreshes the audit index after a snapshot write.
func (r *Registry) recordSave(c *Configuration) {
	rec := &domain.ResourceRecord{
		CachePath:     c.FilePath(),
		URL:           c.URL(),
		FileName:      c.FileName(),
		BytesCached:   c.CoveredBytes(),
		FragmentCount: len(c.Fragments()),
		UpdatedAt:     time.Now(),
	}

	if err := r.repo.UpsertResource(rec); err != nil {
		r.opts.Logger.Warn("failed to update resource audit index",
			zap.String("path", rec.CachePath),
			zap.Error(err))
		return
	}
	if err := r.repo.ReplaceSamples(rec.CachePath, c.DownloadInfo()); err != nil {
		r.opts.Logger.Warn("failed to record throughput samples",
			zap.String("path", rec.CachePath),
			zap.Error(err))
	}
}
