package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cleanup deletes session history and snapshots older than retention.
// Current sessions and baselines are kept.
func (db *DB) Cleanup(ctx context.Context, retention time.Duration) error {
	hours := int(retention.Hours())
	if hours < 1 {
		hours = 1
	}
	cutoff := fmt.Sprintf("-%d hours", hours)

	queries := []struct {
		name  string
		query string
	}{
		{"session_history", "DELETE FROM spot_sessions_history WHERE datetime(analyzed_at_utc) < datetime('now', ?)"},
		{"snapshots", `DELETE FROM analysis_snapshots
			WHERE datetime(analyzed_at_utc) < datetime('now', ?)
			AND snapshot_id NOT IN (SELECT snapshot_id FROM spot_analysis_current)`},
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	total := int64(0)
	for _, q := range queries {
		result, err := db.conn.ExecContext(ctx, q.query, cutoff)
		if err != nil {
			return fmt.Errorf("failed to cleanup %s: %w", q.name, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}

	if total > 0 {
		db.logger.Info("cleanup deleted old records", zap.Int64("rows", total), zap.Int("retention_hours", hours))
	}
	return nil
}
