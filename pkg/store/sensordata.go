package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout is RFC 3339 with a fixed nine-digit fraction. RFC3339Nano
// drops trailing zeros, so whole-second values would sort after fractional
// ones ('Z' > '.'); a fixed width keeps lexicographic order equal to
// chronological order. Values are normalized to UTC before formatting for
// the same reason.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SensorRecord is one encrypted sensor reading. Rows are append-only and
// immutable once written. The counter is stored so the deterministic nonces
// can be re-derived at decryption time.
type SensorRecord struct {
	ID               string
	DeviceID         string
	EncryptedPayload []byte
	Stage1KeyHash    string
	Stage2KeyHash    string
	Counter          uint64
	Timestamp        time.Time
}

// InsertSensorRecord appends an encrypted reading. Assigns a fresh ID when
// the record has none.
func (s *Store) InsertSensorRecord(rec *SensorRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO sensor_data (id, device_id, encrypted_payload, stage1_key_hash, stage2_key_hash, counter, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.DeviceID, rec.EncryptedPayload, rec.Stage1KeyHash, rec.Stage2KeyHash,
		rec.Counter, rec.Timestamp.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sensor record: %w", err)
	}
	return nil
}

// LatestSensorRecord returns the most recent record for a device, newest
// timestamp first with ties broken by insertion order (rowid). Returns
// (nil, nil) when the device has no records.
func (s *Store) LatestSensorRecord(deviceID string) (*SensorRecord, error) {
	var (
		rec SensorRecord
		ts  string
	)
	err := s.db.QueryRow(
		`SELECT id, device_id, encrypted_payload, stage1_key_hash, stage2_key_hash, counter, timestamp
		 FROM sensor_data
		 WHERE device_id = ?
		 ORDER BY timestamp DESC, rowid DESC
		 LIMIT 1`,
		deviceID,
	).Scan(&rec.ID, &rec.DeviceID, &rec.EncryptedPayload, &rec.Stage1KeyHash, &rec.Stage2KeyHash, &rec.Counter, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor record: %w", err)
	}

	rec.Timestamp, err = time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("corrupt timestamp %q: %w", ts, err)
	}
	return &rec, nil
}
