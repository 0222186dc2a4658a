package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/vertextoedge/streamcache/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_UpsertAndGetResource(t *testing.T) {
	store := openTestStore(t)

	rec := &domain.ResourceRecord{
		CachePath:     "/cache/movie.mp4",
		URL:           "https://example.com/movie.mp4",
		FileName:      "movie.mp4",
		BytesCached:   1024,
		FragmentCount: 2,
		UpdatedAt:     time.Now().UTC().Truncate(time.Second),
	}

	if err := store.UpsertResource(rec); err != nil {
		t.Fatalf("UpsertResource() error: %v", err)
	}

	got, err := store.GetResource(rec.CachePath)
	if err != nil {
		t.Fatalf("GetResource() error: %v", err)
	}
	if got == nil {
		t.Fatal("GetResource() = nil, want record")
	}
	if got.URL != rec.URL || got.FileName != rec.FileName ||
		got.BytesCached != rec.BytesCached || got.FragmentCount != rec.FragmentCount {
		t.Errorf("GetResource() = %+v, want %+v", got, rec)
	}

	// Upsert with the same key refreshes in place.
	rec.BytesCached = 4096
	rec.FragmentCount = 1
	if err := store.UpsertResource(rec); err != nil {
		t.Fatalf("UpsertResource() error: %v", err)
	}

	got, err = store.GetResource(rec.CachePath)
	if err != nil {
		t.Fatalf("GetResource() error: %v", err)
	}
	if got.BytesCached != 4096 || got.FragmentCount != 1 {
		t.Errorf("after upsert GetResource() = %+v", got)
	}

	recs, err := store.ListResources()
	if err != nil {
		t.Fatalf("ListResources() error: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("ListResources() returned %d records, want 1", len(recs))
	}
}

func TestStore_GetResourceMissing(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetResource("/cache/nothing.mp4")
	if err != nil {
		t.Fatalf("GetResource() error: %v", err)
	}
	if got != nil {
		t.Errorf("GetResource() = %+v, want nil", got)
	}
}

func TestStore_ReplaceAndGetSamples(t *testing.T) {
	store := openTestStore(t)

	rec := &domain.ResourceRecord{CachePath: "/cache/movie.mp4", UpdatedAt: time.Now()}
	if err := store.UpsertResource(rec); err != nil {
		t.Fatalf("UpsertResource() error: %v", err)
	}

	first := []domain.Sample{{Bytes: 1024, Elapsed: 0.5}}
	if err := store.ReplaceSamples(rec.CachePath, first); err != nil {
		t.Fatalf("ReplaceSamples() error: %v", err)
	}

	second := []domain.Sample{{Bytes: 1024, Elapsed: 0.5}, {Bytes: 2048, Elapsed: 1.0}}
	if err := store.ReplaceSamples(rec.CachePath, second); err != nil {
		t.Fatalf("ReplaceSamples() error: %v", err)
	}

	got, err := store.GetSamples(rec.CachePath)
	if err != nil {
		t.Fatalf("GetSamples() error: %v", err)
	}
	if len(got) != len(second) {
		t.Fatalf("GetSamples() = %v, want %v", got, second)
	}
	for i := range second {
		if got[i] != second[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], second[i])
		}
	}
}
