package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnalyticsRecord is a computed per-device metric. Append-only and
// independent of the encryption pipeline.
type AnalyticsRecord struct {
	ID           string
	DeviceID     string
	MetricType   string
	Value        float64
	TimeWindow   string
	CalculatedAt time.Time
}

// InsertAnalytics appends a metric row. Assigns a fresh ID when the record
// has none.
func (s *Store) InsertAnalytics(rec *AnalyticsRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CalculatedAt.IsZero() {
		rec.CalculatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO analytics (id, device_id, metric_type, value, time_window, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DeviceID, rec.MetricType, rec.Value, rec.TimeWindow,
		rec.CalculatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics record: %w", err)
	}
	return nil
}

// AnalyticsFor returns a device's metric rows of one type, newest first.
func (s *Store) AnalyticsFor(deviceID, metricType string) ([]AnalyticsRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, device_id, metric_type, value, time_window, calculated_at
		 FROM analytics
		 WHERE device_id = ? AND metric_type = ?
		 ORDER BY calculated_at DESC, rowid DESC`,
		deviceID, metricType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", err)
	}
	defer rows.Close()

	var records []AnalyticsRecord
	for rows.Next() {
		var (
			rec AnalyticsRecord
			ts  string
		)
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &rec.MetricType, &rec.Value, &rec.TimeWindow, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan analytics row: %w", err)
		}
		rec.CalculatedAt, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("corrupt calculated_at %q: %w", ts, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
