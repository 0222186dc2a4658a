package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vertextoedge/streamcache/internal/codec"
	"github.com/vertextoedge/streamcache/internal/domain"
)

// fakeStore is an in-memory port.SnapshotStore that counts writes and
// can be told to fail them.
type fakeStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	writes     int
	failWrites bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (s *fakeStore) Read(path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[path]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return data, nil
}

func (s *fakeStore) Write(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return errors.New("disk full")
	}
	s.writes++
	s.blobs[path] = data
	return nil
}

func (s *fakeStore) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, path)
	return nil
}

func (s *fakeStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *fakeStore) blob(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[path]
}

func TestLoad_NoSnapshot(t *testing.T) {
	store := newFakeStore()

	c := Load("/cache/media/clip.mp4", Options{Store: store})

	if got := c.FileName(); got != "clip.mp4" {
		t.Errorf("FileName() = %q, want %q", got, "clip.mp4")
	}
	if got := c.FilePath(); got != "/cache/media/clip.mp4" {
		t.Errorf("FilePath() = %q, want %q", got, "/cache/media/clip.mp4")
	}
	if got := c.Fragments(); len(got) != 0 {
		t.Errorf("Fragments() = %v, want empty", got)
	}
	if got := c.DownloadInfo(); len(got) != 0 {
		t.Errorf("DownloadInfo() = %v, want empty", got)
	}
}

func TestLoad_CorruptSnapshot(t *testing.T) {
	store := newFakeStore()
	store.blobs[SnapshotPath("/cache/clip.mp4")] = []byte("garbage")

	c := Load("/cache/clip.mp4", Options{Store: store})

	if got := c.FileName(); got != "clip.mp4" {
		t.Errorf("FileName() = %q, want %q", got, "clip.mp4")
	}
	if got := c.Fragments(); len(got) != 0 {
		t.Errorf("Fragments() = %v, want empty", got)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newFakeStore()

	c := Load("/cache/clip.mp4", Options{Store: store, SaveWindow: 10 * time.Millisecond})
	c.SetURL("https://example.com/clip.mp4")
	c.SetContentInfo(&domain.ContentInfo{Length: 4096, MIMEType: "video/mp4", AcceptsRanges: true})
	c.AddFragment(0, 100)
	c.AddFragment(150, 50)
	c.AddSample(1024, 0.5)
	c.AddSample(2048, 1.0)
	c.Save()
	c.Close()

	got := Load("/cache/clip.mp4", Options{Store: store})

	if got.FileName() != "clip.mp4" {
		t.Errorf("FileName() = %q", got.FileName())
	}
	if got.URL() != "https://example.com/clip.mp4" {
		t.Errorf("URL() = %q", got.URL())
	}
	info := got.ContentInfo()
	if info == nil || *info != (domain.ContentInfo{Length: 4096, MIMEType: "video/mp4", AcceptsRanges: true}) {
		t.Errorf("ContentInfo() = %+v", info)
	}

	frags := got.Fragments()
	wantFrags := []domain.Fragment{{Offset: 0, Length: 100}, {Offset: 150, Length: 50}}
	if len(frags) != len(wantFrags) {
		t.Fatalf("Fragments() = %v, want %v", frags, wantFrags)
	}
	for i := range wantFrags {
		if frags[i] != wantFrags[i] {
			t.Errorf("fragment %d = %v, want %v", i, frags[i], wantFrags[i])
		}
	}

	samples := got.DownloadInfo()
	wantSamples := []domain.Sample{{Bytes: 1024, Elapsed: 0.5}, {Bytes: 2048, Elapsed: 1.0}}
	if len(samples) != len(wantSamples) {
		t.Fatalf("DownloadInfo() = %v, want %v", samples, wantSamples)
	}
	for i := range wantSamples {
		if samples[i] != wantSamples[i] {
			t.Errorf("sample %d = %v, want %v", i, samples[i], wantSamples[i])
		}
	}
}

func TestSave_CoalescesBurst(t *testing.T) {
	store := newFakeStore()
	window := 80 * time.Millisecond

	c := Load("/cache/clip.mp4", Options{Store: store, SaveWindow: window})

	// Five saves inside one window: one immediate write now, one
	// trailing write when the window elapses.
	for i := 0; i < 5; i++ {
		c.AddFragment(int64(i)*100, 50)
		c.Save()
	}

	if got := store.writeCount(); got != 1 {
		t.Fatalf("writes during window = %d, want 1", got)
	}

	time.Sleep(window + 50*time.Millisecond)

	if got := store.writeCount(); got != 2 {
		t.Fatalf("writes after window = %d, want 2", got)
	}

	// The trailing write captured the state at the last Save().
	snap, err := codec.Decode(store.blob(SnapshotPath("/cache/clip.mp4")))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(snap.Fragments) != 5 {
		t.Errorf("persisted fragments = %v, want 5 disjoint ranges", snap.Fragments)
	}
}

func TestSave_SingleSaveWritesOnce(t *testing.T) {
	store := newFakeStore()
	window := 50 * time.Millisecond

	c := Load("/cache/clip.mp4", Options{Store: store, SaveWindow: window})
	c.AddFragment(0, 100)
	c.Save()

	time.Sleep(window + 50*time.Millisecond)

	if got := store.writeCount(); got != 1 {
		t.Errorf("writes = %d, want 1 (no trailing write without a second save)", got)
	}
}

func TestSave_NewWindowAfterElapse(t *testing.T) {
	store := newFakeStore()
	window := 40 * time.Millisecond

	c := Load("/cache/clip.mp4", Options{Store: store, SaveWindow: window})

	c.Save()
	time.Sleep(window + 30*time.Millisecond)
	c.Save()
	time.Sleep(window + 30*time.Millisecond)

	// Two idle-state saves, each writing immediately, no trailing writes.
	if got := store.writeCount(); got != 2 {
		t.Errorf("writes = %d, want 2", got)
	}
}

func TestClose_CancelsPendingSave(t *testing.T) {
	store := newFakeStore()
	window := 60 * time.Millisecond

	c := Load("/cache/clip.mp4", Options{Store: store, SaveWindow: window})
	c.Save()
	c.Close()

	time.Sleep(window + 40*time.Millisecond)

	if got := store.writeCount(); got != 1 {
		t.Errorf("writes = %d, want 1 (closed entity must not write again)", got)
	}

	// Saves after Close are no-ops.
	c.Save()
	if got := store.writeCount(); got != 1 {
		t.Errorf("writes after closed Save() = %d, want 1", got)
	}
}

func TestClose_FlushesTrailingState(t *testing.T) {
	store := newFakeStore()
	window := 5 * time.Second // long enough that the timer never fires

	c := Load("/cache/clip.mp4", Options{Store: store, SaveWindow: window})
	c.Save()
	c.AddFragment(0, 100)
	c.Save()
	c.Close()

	if got := store.writeCount(); got != 2 {
		t.Fatalf("writes = %d, want 2 (close owes a trailing write)", got)
	}

	snap, err := codec.Decode(store.blob(SnapshotPath("/cache/clip.mp4")))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(snap.Fragments) != 1 {
		t.Errorf("persisted fragments = %v, want the post-save fragment", snap.Fragments)
	}
}

func TestSave_WriteFailureIsAbsorbed(t *testing.T) {
	store := newFakeStore()
	store.failWrites = true

	c := Load("/cache/clip.mp4", Options{Store: store, SaveWindow: 10 * time.Millisecond})
	c.AddFragment(0, 100)
	c.Save() // must not panic or surface the error
	c.Close()

	// In-memory state is intact even though the disk write failed.
	if got := c.Fragments(); len(got) != 1 {
		t.Errorf("Fragments() = %v, want 1", got)
	}
}
