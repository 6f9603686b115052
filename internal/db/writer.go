package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// CreateSnapshot records an analysis run and returns its ID
func (db *DB) CreateSnapshot(ctx context.Context, analyzedAt time.Time) (string, error) {
	snapshotID := uuid.New().String()

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO analysis_snapshots (snapshot_id, analyzed_at_utc) VALUES (?, ?)",
		snapshotID, formatUTC(analyzedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}

	return snapshotID, nil
}

// SaveSpotAnalytics replaces the current sessions of a spot and appends
// them to the history under snapshotID
func (db *DB) SaveSpotAnalytics(ctx context.Context, snapshotID string, a waves.SpotAnalytics) error {
	analyzedAt := formatUTC(a.AnalyzedAt)

	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO spot_analysis_current (spot_id, spot_name, snapshot_id, analyzed_at_utc, updated_at)
			VALUES (?, ?, ?, ?, datetime('now'))
			ON CONFLICT (spot_id) DO UPDATE SET
				spot_name = excluded.spot_name,
				snapshot_id = excluded.snapshot_id,
				analyzed_at_utc = excluded.analyzed_at_utc,
				updated_at = datetime('now')
		`, a.SpotID, a.SpotName, snapshotID, analyzedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert analysis for %s: %w", a.SpotID, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM spot_sessions_current WHERE spot_id = ?", a.SpotID); err != nil {
			return fmt.Errorf("failed to clear sessions for %s: %w", a.SpotID, err)
		}

		currentStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO spot_sessions_current (spot_id, rank, snapshot_id, start_utc, end_utc, wave_count, waves_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare current statement: %w", err)
		}
		defer currentStmt.Close()

		historyStmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO spot_sessions_history (snapshot_id, spot_id, rank, start_utc, end_utc, wave_count, analyzed_at_utc)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare history statement: %w", err)
		}
		defer historyStmt.Close()

		for rank, slot := range a.TimeSlots {
			wavesJSON, err := json.Marshal(slot.Waves)
			if err != nil {
				return fmt.Errorf("failed to encode waves: %w", err)
			}
			start, end := formatUTC(slot.StartTime), formatUTC(slot.EndTime)

			if _, err := currentStmt.ExecContext(ctx, a.SpotID, rank, snapshotID, start, end, slot.WaveCount, string(wavesJSON)); err != nil {
				return fmt.Errorf("failed to insert session %s/%d: %w", a.SpotID, rank, err)
			}
			if _, err := historyStmt.ExecContext(ctx, snapshotID, a.SpotID, rank, start, end, slot.WaveCount, analyzedAt); err != nil {
				return fmt.Errorf("failed to insert session history %s/%d: %w", a.SpotID, rank, err)
			}
		}

		return nil
	})
}
