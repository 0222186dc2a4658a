// Package metrics exposes prometheus collectors for the cache state
// core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SnapshotWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamcache",
		Name:      "snapshot_writes_total",
		Help:      "Total number of snapshot blobs written.",
	})

	SnapshotWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamcache",
		Name:      "snapshot_write_failures_total",
		Help:      "Total number of failed snapshot encodes or writes.",
	})

	SnapshotDecodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamcache",
		Name:      "snapshot_decode_failures_total",
		Help:      "Total number of snapshots that failed allow-listed decoding.",
	})

	SavesCoalesced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamcache",
		Name:      "saves_coalesced_total",
		Help:      "Total number of save requests folded into a trailing write.",
	})

	FragmentsMerged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "streamcache",
		Name:      "fragments_merged_total",
		Help:      "Total number of fragment insertions that merged with existing ranges.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SnapshotWrites,
		SnapshotWriteFailures,
		SnapshotDecodeFailures,
		SavesCoalesced,
		FragmentsMerged,
	)
}
