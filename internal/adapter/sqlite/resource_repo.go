package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/vertextoedge/streamcache/internal/domain"
)

// UpsertResource inserts or refreshes the audit record for a resource
func (s *Store) UpsertResource(rec *domain.ResourceRecord) error {
	query := `
		INSERT INTO resources (cache_path, url, file_name, bytes_cached, fragment_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_path) DO UPDATE SET
			url = excluded.url,
			file_name = excluded.file_name,
			bytes_cached = excluded.bytes_cached,
			fragment_count = excluded.fragment_count,
			updated_at = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		rec.CachePath, rec.URL, rec.FileName,
		rec.BytesCached, rec.FragmentCount, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert resource: %w", err)
	}
	return nil
}

// GetResource retrieves the audit record for a cache path, or nil if
// none exists
func (s *Store) GetResource(cachePath string) (*domain.ResourceRecord, error) {
	query := `
		SELECT cache_path, url, file_name, bytes_cached, fragment_count, updated_at
		FROM resources
		WHERE cache_path = ?
	`

	rec := &domain.ResourceRecord{}
	err := s.db.QueryRow(query, cachePath).Scan(
		&rec.CachePath, &rec.URL, &rec.FileName,
		&rec.BytesCached, &rec.FragmentCount, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// ListResources returns all audit records, most recently updated first
func (s *Store) ListResources() ([]*domain.ResourceRecord, error) {
	query := `
		SELECT cache_path, url, file_name, bytes_cached, fragment_count, updated_at
		FROM resources
		ORDER BY updated_at DESC
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.ResourceRecord
	for rows.Next() {
		rec := &domain.ResourceRecord{}
		err := rows.Scan(
			&rec.CachePath, &rec.URL, &rec.FileName,
			&rec.BytesCached, &rec.FragmentCount, &rec.UpdatedAt)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// ReplaceSamples replaces the stored throughput samples for a cache
// path with the given set. The snapshot is the source of truth for the
// full sample history, so replacement keeps the index from drifting.
func (s *Store) ReplaceSamples(cachePath string, samples []domain.Sample) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM throughput_samples WHERE cache_path = ?", cachePath); err != nil {
		return fmt.Errorf("failed to clear samples: %w", err)
	}

	insert := `INSERT INTO throughput_samples (cache_path, bytes, elapsed_seconds) VALUES (?, ?, ?)`
	for _, sm := range samples {
		if _, err := tx.Exec(insert, cachePath, sm.Bytes, sm.Elapsed); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// GetSamples returns the stored throughput samples for a cache path in
// insertion order
func (s *Store) GetSamples(cachePath string) ([]domain.Sample, error) {
	query := `
		SELECT bytes, elapsed_seconds
		FROM throughput_samples
		WHERE cache_path = ?
		ORDER BY id ASC
	`

	rows, err := s.db.Query(query, cachePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.Sample
	for rows.Next() {
		var sm domain.Sample
		if err := rows.Scan(&sm.Bytes, &sm.Elapsed); err != nil {
			return nil, err
		}
		samples = append(samples, sm)
	}

	return samples, rows.Err()
}
