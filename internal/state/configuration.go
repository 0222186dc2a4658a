// Package state owns the persisted per-resource cache configuration:
// which byte ranges of a progressively downloaded resource are already
// on disk, the throughput history of the download, and the resource
// metadata, together with debounced persistence of all of it.
package state

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/streamcache/internal/codec"
	"github.com/vertextoedge/streamcache/internal/domain"
	"github.com/vertextoedge/streamcache/internal/metrics"
	"github.com/vertextoedge/streamcache/internal/port"
)

// SnapshotSuffix is appended to a resource's cache file path to derive
// the path of its snapshot blob. The same rule is used for loading and
// saving.
const SnapshotSuffix = ".cache_configuration"

// SnapshotPath derives the snapshot blob path for a cache file path.
func SnapshotPath(cacheFilePath string) string {
	return cacheFilePath + SnapshotSuffix
}

// Options configures a Configuration's collaborators.
type Options struct {
	// Store persists snapshot blobs. Required.
	Store port.SnapshotStore

	// Logger receives degrade-and-log events. Defaults to a no-op logger.
	Logger *zap.Logger

	// SaveWindow is the debounce window for persistence requests.
	// Defaults to DefaultSaveWindow.
	SaveWindow time.Duration

	// AfterSave, if set, runs after every successful snapshot write.
	AfterSave func(*Configuration)
}

// Configuration is the aggregate root for one cached resource: its
// fragment index, download stats log, resource metadata, and the cache
// file path it is bound to. All failure in this type is degrade-and-log;
// no method returns an error.
type Configuration struct {
	fileName  string
	filePath  string
	fragments *domain.FragmentIndex
	stats     *domain.StatsLog

	store     port.SnapshotStore
	logger    *zap.Logger
	afterSave func(*Configuration)

	deb *debouncer

	// metaMu is kept separate from the collection locks so metadata
	// reads never contend with fragment merges.
	metaMu      sync.Mutex
	url         string
	contentInfo *domain.ContentInfo
}

// Load returns the Configuration for the given cache file path. If a
// snapshot exists at the derived path it is decoded through the
// allow-listed codec; a missing or undecodable snapshot yields a fresh
// configuration whose file name is the path's last component. Load
// never fails from the caller's point of view.
func Load(cacheFilePath string, opts Options) *Configuration {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	window := opts.SaveWindow
	if window <= 0 {
		window = DefaultSaveWindow
	}

	c := &Configuration{
		fileName:  filepath.Base(cacheFilePath),
		filePath:  cacheFilePath,
		fragments: domain.NewFragmentIndex(),
		stats:     domain.NewStatsLog(),
		store:     opts.Store,
		logger:    logger,
		afterSave: opts.AfterSave,
	}
	c.deb = newDebouncer(window, c.persist)

	data, err := opts.Store.Read(SnapshotPath(cacheFilePath))
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			logger.Warn("failed to read snapshot, starting fresh",
				zap.String("path", cacheFilePath),
				zap.Error(err))
		}
		return c
	}

	snap, err := codec.Decode(data)
	if err != nil {
		metrics.SnapshotDecodeFailures.Inc()
		logger.Warn("failed to decode snapshot, starting fresh",
			zap.String("path", cacheFilePath),
			zap.Error(err))
		return c
	}

	if snap.FileName != "" {
		c.fileName = snap.FileName
	}
	c.url = snap.URL
	c.contentInfo = snap.ContentInfo
	c.fragments = domain.NewFragmentIndexFrom(snap.Fragments)
	c.stats = domain.NewStatsLogFrom(snap.Samples)
	return c
}

// FileName returns the resource's file name.
func (c *Configuration) FileName() string {
	return c.fileName
}

// FilePath returns the cache file path the configuration is bound to.
// It is a property of where the configuration lives, not part of the
// persisted snapshot.
func (c *Configuration) FilePath() string {
	return c.filePath
}

// URL returns the resource URL.
func (c *Configuration) URL() string {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	return c.url
}

// SetURL records the resource URL.
func (c *Configuration) SetURL(url string) {
	c.metaMu.Lock()
	c.url = url
	c.metaMu.Unlock()
}

// ContentInfo returns a copy of the resource metadata, or nil if none
// has been recorded.
func (c *Configuration) ContentInfo() *domain.ContentInfo {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	if c.contentInfo == nil {
		return nil
	}
	info := *c.contentInfo
	return &info
}

// SetContentInfo records the resource metadata.
func (c *Configuration) SetContentInfo(info *domain.ContentInfo) {
	c.metaMu.Lock()
	if info == nil {
		c.contentInfo = nil
	} else {
		cp := *info
		c.contentInfo = &cp
	}
	c.metaMu.Unlock()
}

// AddFragment records that bytes [offset, offset+length) are now
// available locally. Invalid ranges are ignored.
func (c *Configuration) AddFragment(offset, length int64) {
	if offset < 0 || length <= 0 {
		return
	}
	before := c.fragments.Len()
	c.fragments.Add(offset, length)
	if after := c.fragments.Len(); after <= before && before > 0 {
		metrics.FragmentsMerged.Inc()
	}
}

// Fragments returns a snapshot of the downloaded byte ranges.
func (c *Configuration) Fragments() []domain.Fragment {
	return c.fragments.Fragments()
}

// Contains reports whether [offset, offset+length) can be served from
// the cache file without touching the network.
func (c *Configuration) Contains(offset, length int64) bool {
	return c.fragments.Contains(offset, length)
}

// CoveredBytes returns the total number of cached bytes.
func (c *Configuration) CoveredBytes() int64 {
	return c.fragments.CoveredBytes()
}

// AddSample records one download throughput sample.
func (c *Configuration) AddSample(bytes int64, elapsed float64) {
	c.stats.Append(bytes, elapsed)
}

// DownloadInfo returns a snapshot of the recorded throughput samples.
func (c *Configuration) DownloadInfo() []domain.Sample {
	return c.stats.Samples()
}

// Save requests persistence of the current state. Requests are
// coalesced: the first request in a window writes immediately, further
// requests within the window are folded into at most one trailing
// write when the window elapses.
func (c *Configuration) Save() {
	c.deb.request()
}

// Close cancels any scheduled save. If saves arrived after the last
// write, one final synchronous write captures them first, so closing
// never loses acknowledged state.
func (c *Configuration) Close() {
	c.deb.close()
}

// persist encodes the current state and writes it to the snapshot
// store. Failures are logged and counted, never surfaced: a failed
// write means disk lags memory until the next successful save.
func (c *Configuration) persist() {
	c.metaMu.Lock()
	snap := &codec.Snapshot{
		FileName: c.fileName,
		URL:      c.url,
	}
	if c.contentInfo != nil {
		info := *c.contentInfo
		snap.ContentInfo = &info
	}
	c.metaMu.Unlock()

	snap.Fragments = c.fragments.Fragments()
	snap.Samples = c.stats.Samples()

	data, err := codec.Encode(snap)
	if err != nil {
		metrics.SnapshotWriteFailures.Inc()
		c.logger.Warn("failed to encode snapshot",
			zap.String("path", c.filePath),
			zap.Error(err))
		return
	}

	if err := c.store.Write(SnapshotPath(c.filePath), data); err != nil {
		metrics.SnapshotWriteFailures.Inc()
		c.logger.Warn("failed to write snapshot",
			zap.String("path", c.filePath),
			zap.Error(err))
		return
	}

	metrics.SnapshotWrites.Inc()
	if c.afterSave != nil {
		c.afterSave(c)
	}
}
