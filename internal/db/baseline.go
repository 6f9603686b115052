package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pfederi/Next-Wave-sub001/internal/metrics"
)

// UpdateSpotBaseline folds one best-session density into the spot's weekday baseline
func (db *DB) UpdateSpotBaseline(ctx context.Context, spotID string, dayOfWeek int, value float64) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		var mean, m2 float64

		err := tx.QueryRowContext(ctx, `
			SELECT sample_count, wph_mean, wph_m2
			FROM stats_spot_baseline
			WHERE spot_id = ? AND day_of_week = ?
		`, spotID, dayOfWeek).Scan(&count, &mean, &m2)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to read baseline for %s: %w", spotID, err)
		}

		w := metrics.RestoreWelfordState(count, mean, m2)
		w.Update(value)

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stats_spot_baseline (spot_id, day_of_week, sample_count, wph_mean, wph_m2, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (spot_id, day_of_week) DO UPDATE SET
				sample_count = excluded.sample_count,
				wph_mean = excluded.wph_mean,
				wph_m2 = excluded.wph_m2,
				updated_at = excluded.updated_at
		`, spotID, dayOfWeek, w.Count(), w.Mean(), w.M2(), formatUTC(time.Now()))
		if err != nil {
			return fmt.Errorf("failed to upsert baseline for %s: %w", spotID, err)
		}
		return nil
	})
}

// GetSpotBaseline returns the baseline of a spot for a weekday (0 = Sunday)
func (db *DB) GetSpotBaseline(ctx context.Context, spotID string, dayOfWeek int) (metrics.SpotBaseline, error) {
	var count int
	var mean, m2 float64
	var updatedAt string

	err := db.conn.QueryRowContext(ctx, `
		SELECT sample_count, wph_mean, wph_m2, updated_at
		FROM stats_spot_baseline
		WHERE spot_id = ? AND day_of_week = ?
	`, spotID, dayOfWeek).Scan(&count, &mean, &m2, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return metrics.SpotBaseline{}, ErrNotFound
	}
	if err != nil {
		return metrics.SpotBaseline{}, fmt.Errorf("failed to read baseline for %s: %w", spotID, err)
	}

	updated, err := parseUTC(updatedAt)
	if err != nil {
		return metrics.SpotBaseline{}, err
	}

	w := metrics.RestoreWelfordState(count, mean, m2)
	return metrics.SpotBaseline{
		SpotID:      spotID,
		DayOfWeek:   dayOfWeek,
		Mean:        w.Mean(),
		StdDev:      w.StdDev(),
		SampleCount: w.Count(),
		UpdatedAt:   updated,
	}, nil
}
