package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pfederi/Next-Wave-sub001/internal/waves"
)

// GetSpotAnalytics returns the latest stored analysis of a spot
func (db *DB) GetSpotAnalytics(ctx context.Context, spotID string) (waves.SpotAnalytics, error) {
	var a waves.SpotAnalytics
	var analyzedAt string

	err := db.conn.QueryRowContext(ctx, `
		SELECT spot_id, spot_name, analyzed_at_utc
		FROM spot_analysis_current
		WHERE spot_id = ?
	`, spotID).Scan(&a.SpotID, &a.SpotName, &analyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return waves.SpotAnalytics{}, ErrNotFound
	}
	if err != nil {
		return waves.SpotAnalytics{}, fmt.Errorf("failed to query analysis for %s: %w", spotID, err)
	}

	if a.AnalyzedAt, err = parseUTC(analyzedAt); err != nil {
		return waves.SpotAnalytics{}, err
	}

	slots, err := db.sessionsFor(ctx, spotID)
	if err != nil {
		return waves.SpotAnalytics{}, err
	}
	a.TimeSlots = slots
	return a, nil
}

// ListSpotAnalytics returns the latest stored analysis of every spot, ordered by spot id
func (db *DB) ListSpotAnalytics(ctx context.Context) ([]waves.SpotAnalytics, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT spot_id
		FROM spot_analysis_current
		ORDER BY spot_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan spot id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]waves.SpotAnalytics, 0, len(ids))
	for _, id := range ids {
		a, err := db.GetSpotAnalytics(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (db *DB) sessionsFor(ctx context.Context, spotID string) ([]waves.WaveTimeSlot, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT start_utc, end_utc, wave_count, waves_json
		FROM spot_sessions_current
		WHERE spot_id = ?
		ORDER BY rank
	`, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions for %s: %w", spotID, err)
	}
	defer rows.Close()

	slots := []waves.WaveTimeSlot{}
	for rows.Next() {
		var slot waves.WaveTimeSlot
		var start, end, wavesJSON string
		if err := rows.Scan(&start, &end, &slot.WaveCount, &wavesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if slot.StartTime, err = parseUTC(start); err != nil {
			return nil, err
		}
		if slot.EndTime, err = parseUTC(end); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(wavesJSON), &slot.Waves); err != nil {
			return nil, fmt.Errorf("failed to decode waves for %s: %w", spotID, err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}
