package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Device is a registered sensor device. The identifier doubles as the
// stage-1 key-derivation input, so it is immutable once registered.
type Device struct {
	ID          string
	DIDDocument string
	PublicKey   string
}

// RegisterDevice inserts the device row if absent and ensures a counter row
// exists at 0. Idempotent: re-registering an existing device is a no-op,
// never an error. An existing device's document and key are not replaced.
func (s *Store) RegisterDevice(id, didDocument, publicKey string) error {
	if id == "" {
		return fmt.Errorf("device id is required")
	}

	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO devices (id, did_document, public_key) VALUES (?, ?, ?)",
		id, didDocument, publicKey,
	); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO device_counters (device_id, counter) VALUES (?, 0)",
		id,
	); err != nil {
		return fmt.Errorf("failed to initialize device counter: %w", err)
	}

	return nil
}

// GetDevice returns the device row, or (nil, nil) when unregistered.
func (s *Store) GetDevice(id string) (*Device, error) {
	var d Device
	err := s.db.QueryRow(
		"SELECT id, did_document, public_key FROM devices WHERE id = ?", id,
	).Scan(&d.ID, &d.DIDDocument, &d.PublicKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return &d, nil
}

// DevicePublicKey returns the stored JWK JSON for a device. The second
// return value is false when the device is unregistered or has no key.
func (s *Store) DevicePublicKey(id string) (string, bool, error) {
	var key string
	err := s.db.QueryRow(
		"SELECT public_key FROM devices WHERE id = ?", id,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query device key: %w", err)
	}
	if key == "" {
		return "", false, nil
	}
	return key, true, nil
}

// NextCounter atomically increments and returns the counter for a device,
// creating the row at 1 if none existed. Single-statement read-modify-write:
// the upsert and the read happen in one SQLite statement, so two concurrent
// callers can never observe the same value. Counter values are never reset
// and never reused.
func (s *Store) NextCounter(deviceID string) (uint64, error) {
	var counter uint64
	err := s.db.QueryRow(
		`INSERT INTO device_counters (device_id, counter) VALUES (?, 1)
		 ON CONFLICT(device_id) DO UPDATE SET counter = counter + 1
		 RETURNING counter`,
		deviceID,
	).Scan(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate counter: %w", err)
	}
	return counter, nil
}
