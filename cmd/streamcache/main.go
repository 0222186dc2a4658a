package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vertextoedge/streamcache/internal/adapter/sqlite"
	"github.com/vertextoedge/streamcache/internal/codec"
	"github.com/vertextoedge/streamcache/internal/config"
	"github.com/vertextoedge/streamcache/internal/domain"
	"github.com/vertextoedge/streamcache/internal/logger"
	"github.com/vertextoedge/streamcache/internal/metrics"
	"github.com/vertextoedge/streamcache/internal/state"
)

const version = "0.1.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	dumpPath := flag.String("dump", "", "Dump a single snapshot file and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting streamcache",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	metrics.Register(prometheus.DefaultRegisterer)

	if *dumpPath != "" {
		if err := dumpSnapshot(*dumpPath); err != nil {
			zapLogger.Fatal("failed to dump snapshot", zap.String("path", *dumpPath), zap.Error(err))
		}
		return
	}

	// Open the resource audit index
	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = filepath.Join(cfg.Cache.RootDir, "audit.db")
	}

	store, err := sqlite.Open(dbPath)
	if err != nil {
		zapLogger.Fatal("failed to open database", zap.Error(err), zap.String("path", dbPath))
	}
	defer store.Close()

	if err := scanSnapshots(cfg.Cache.RootDir, store, zapLogger); err != nil {
		zapLogger.Fatal("scan failed", zap.Error(err))
	}
}

// scanSnapshots walks the cache root, decodes every snapshot it finds
// and refreshes the audit index. Undecodable snapshots are logged and
// skipped, matching the loader's degrade-and-log behavior.
func scanSnapshots(rootDir string, store *sqlite.Store, zapLogger *zap.Logger) error {
	found := 0

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, state.SnapshotSuffix) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			zapLogger.Warn("failed to read snapshot", zap.String("path", path), zap.Error(err))
			return nil
		}

		snap, err := codec.Decode(data)
		if err != nil {
			zapLogger.Warn("failed to decode snapshot", zap.String("path", path), zap.Error(err))
			return nil
		}

		cachePath := strings.TrimSuffix(path, state.SnapshotSuffix)

		var bytesCached int64
		for _, f := range snap.Fragments {
			bytesCached += f.Length
		}

		rec := &domain.ResourceRecord{
			CachePath:     cachePath,
			URL:           snap.URL,
			FileName:      snap.FileName,
			BytesCached:   bytesCached,
			FragmentCount: len(snap.Fragments),
			UpdatedAt:     time.Now(),
		}
		if err := store.UpsertResource(rec); err != nil {
			zapLogger.Warn("failed to update audit index", zap.String("path", cachePath), zap.Error(err))
			return nil
		}
		if err := store.ReplaceSamples(cachePath, snap.Samples); err != nil {
			zapLogger.Warn("failed to record samples", zap.String("path", cachePath), zap.Error(err))
		}

		found++
		zapLogger.Info("indexed snapshot",
			zap.String("file", snap.FileName),
			zap.String("url", snap.URL),
			zap.Int("fragments", len(snap.Fragments)),
			zap.Int64("bytes_cached", bytesCached),
			zap.Int("samples", len(snap.Samples)),
		)
		return nil
	})
	if err != nil {
		return err
	}

	zapLogger.Info("scan complete", zap.Int("snapshots", found))
	return nil
}

// dumpSnapshot decodes one snapshot file and prints its contents.
func dumpSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	snap, err := codec.Decode(data)
	if err != nil {
		return err
	}

	fmt.Printf("fileName: %s\n", snap.FileName)
	fmt.Printf("url:      %s\n", snap.URL)
	if snap.ContentInfo != nil {
		fmt.Printf("content:  length=%d mimeType=%s acceptsRanges=%v\n",
			snap.ContentInfo.Length, snap.ContentInfo.MIMEType, snap.ContentInfo.AcceptsRanges)
	}
	fmt.Printf("fragments (%d):\n", len(snap.Fragments))
	for _, f := range snap.Fragments {
		fmt.Printf("  [%d, %d) length=%d\n", f.Offset, f.End(), f.Length)
	}
	fmt.Printf("samples (%d):\n", len(snap.Samples))
	for _, s := range snap.Samples {
		fmt.Printf("  %d bytes in %.3fs\n", s.Bytes, s.Elapsed)
	}
	return nil
}
