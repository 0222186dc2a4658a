package domain

import "sync"

// Sample is one download throughput measurement: the number of bytes
// transferred and how long the transfer took.
type Sample struct {
	Bytes   int64
	Elapsed float64 // seconds
}

// StatsLog is an append-only log of throughput samples for one cached
// resource. Growth is unbounded; callers that need a bound truncate
// the persisted form externally.
type StatsLog struct {
	mu      sync.Mutex
	samples []Sample
}

// NewStatsLog creates an empty stats log.
func NewStatsLog() *StatsLog {
	return &StatsLog{}
}

// NewStatsLogFrom creates a stats log seeded with existing samples.
func NewStatsLogFrom(samples []Sample) *StatsLog {
	log := &StatsLog{}
	log.samples = append(log.samples, samples...)
	return log
}

// Append records one throughput sample.
func (l *StatsLog) Append(bytes int64, elapsed float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Sample, len(l.samples), len(l.samples)+1)
	copy(out, l.samples)
	l.samples = append(out, Sample{Bytes: bytes, Elapsed: elapsed})
}

// Samples returns a copy of the recorded samples in insertion order.
func (l *StatsLog) Samples() []Sample {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Sample, len(l.samples))
	copy(out, l.samples)
	return out
}

// Len returns the number of recorded samples.
func (l *StatsLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.samples)
}
