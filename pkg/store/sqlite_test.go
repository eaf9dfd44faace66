package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// setupTestStore creates a temporary SQLite database for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestRegisterDevice(t *testing.T) {
	store := setupTestStore(t)

	deviceID := "did:example:123456789"
	didDoc := `{"id":"did:example:123456789"}`
	publicKey := `{"kty":"OKP","crv":"Ed25519","x":"abc"}`

	t.Run("Register", func(t *testing.T) {
		if err := store.RegisterDevice(deviceID, didDoc, publicKey); err != nil {
			t.Fatalf("RegisterDevice failed: %v", err)
		}

		dev, err := store.GetDevice(deviceID)
		if err != nil {
			t.Fatalf("GetDevice failed: %v", err)
		}
		if dev == nil {
			t.Fatal("expected device, got nil")
		}
		if dev.PublicKey != publicKey {
			t.Errorf("expected public key %q, got %q", publicKey, dev.PublicKey)
		}
	})

	t.Run("ReRegisterIsNoOp", func(t *testing.T) {
		// Second registration must not error and must not overwrite.
		if err := store.RegisterDevice(deviceID, "{}", "other-key"); err != nil {
			t.Fatalf("duplicate RegisterDevice failed: %v", err)
		}

		dev, _ := store.GetDevice(deviceID)
		if dev.PublicKey != publicKey {
			t.Errorf("re-registration overwrote key: got %q", dev.PublicKey)
		}
	})

	t.Run("CounterStartsAtZero", func(t *testing.T) {
		// First allocation after registration must be 1.
		c, err := store.NextCounter(deviceID)
		if err != nil {
			t.Fatalf("NextCounter failed: %v", err)
		}
		if c != 1 {
			t.Errorf("expected first counter 1, got %d", c)
		}
	})

	t.Run("EmptyID", func(t *testing.T) {
		if err := store.RegisterDevice("", "{}", "{}"); err == nil {
			t.Error("expected error for empty device id")
		}
	})
}

func TestDevicePublicKey(t *testing.T) {
	store := setupTestStore(t)

	if _, ok, err := store.DevicePublicKey("did:example:unknown"); err != nil || ok {
		t.Errorf("expected (_, false, nil) for unknown device, got ok=%v err=%v", ok, err)
	}

	store.RegisterDevice("did:example:nokey", "{}", "")
	if _, ok, _ := store.DevicePublicKey("did:example:nokey"); ok {
		t.Error("expected ok=false for device registered without a key")
	}

	store.RegisterDevice("did:example:keyed", "{}", `{"kty":"OKP"}`)
	key, ok, err := store.DevicePublicKey("did:example:keyed")
	if err != nil || !ok {
		t.Fatalf("expected stored key, got ok=%v err=%v", ok, err)
	}
	if key != `{"kty":"OKP"}` {
		t.Errorf("unexpected key %q", key)
	}
}

func TestNextCounterMonotonic(t *testing.T) {
	store := setupTestStore(t)
	deviceID := "did:example:counter"

	// Works without prior registration: first allocation creates the row at 1.
	for want := uint64(1); want <= 10; want++ {
		got, err := store.NextCounter(deviceID)
		if err != nil {
			t.Fatalf("NextCounter failed at %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("expected counter %d, got %d", want, got)
		}
	}

	// Counters are per device.
	got, err := store.NextCounter("did:example:other")
	if err != nil {
		t.Fatalf("NextCounter failed: %v", err)
	}
	if got != 1 {
		t.Errorf("expected independent counter 1, got %d", got)
	}
}

// TestNextCounterConcurrent allocates from many goroutines and requires the
// returned set to be exactly {1..N}: no duplicate, no gap. A duplicate here
// is a nonce-reuse event in the encryption pipeline.
func TestNextCounterConcurrent(t *testing.T) {
	store := setupTestStore(t)
	deviceID := "did:example:concurrent"

	const n = 50
	results := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := store.NextCounter(deviceID)
			if err != nil {
				t.Errorf("NextCounter failed: %v", err)
				return
			}
			results <- c
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint64]bool)
	for c := range results {
		if seen[c] {
			t.Fatalf("counter %d allocated twice", c)
		}
		seen[c] = true
	}
	for want := uint64(1); want <= n; want++ {
		if !seen[want] {
			t.Errorf("counter %d never allocated", want)
		}
	}
}

func TestSensorRecords(t *testing.T) {
	store := setupTestStore(t)
	deviceID := "did:example:sensor"
	store.RegisterDevice(deviceID, "{}", "{}")

	t.Run("LatestOnEmpty", func(t *testing.T) {
		rec, err := store.LatestSensorRecord(deviceID)
		if err != nil {
			t.Fatalf("LatestSensorRecord failed: %v", err)
		}
		if rec != nil {
			t.Errorf("expected nil record, got %+v", rec)
		}
	})

	t.Run("InsertAndFetch", func(t *testing.T) {
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			err := store.InsertSensorRecord(&SensorRecord{
				DeviceID:         deviceID,
				EncryptedPayload: []byte{byte(i)},
				Stage1KeyHash:    "hash1",
				Stage2KeyHash:    "hash2",
				Counter:          uint64(i + 1),
				Timestamp:        base.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatalf("InsertSensorRecord failed: %v", err)
			}
		}

		rec, err := store.LatestSensorRecord(deviceID)
		if err != nil {
			t.Fatalf("LatestSensorRecord failed: %v", err)
		}
		if rec == nil {
			t.Fatal("expected record, got nil")
		}
		if rec.Counter != 3 {
			t.Errorf("expected newest record (counter 3), got counter %d", rec.Counter)
		}
		if rec.Stage1KeyHash != "hash1" || rec.Stage2KeyHash != "hash2" {
			t.Errorf("key hashes not round-tripped: %q %q", rec.Stage1KeyHash, rec.Stage2KeyHash)
		}
	})

	t.Run("TimestampTieBrokenByInsertion", func(t *testing.T) {
		ts := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 2; i++ {
			err := store.InsertSensorRecord(&SensorRecord{
				DeviceID:         deviceID,
				EncryptedPayload: []byte("tie"),
				Stage1KeyHash:    "h1",
				Stage2KeyHash:    "h2",
				Counter:          uint64(10 + i),
				Timestamp:        ts,
			})
			if err != nil {
				t.Fatalf("InsertSensorRecord failed: %v", err)
			}
		}

		rec, err := store.LatestSensorRecord(deviceID)
		if err != nil {
			t.Fatalf("LatestSensorRecord failed: %v", err)
		}
		if rec.Counter != 11 {
			t.Errorf("expected last-inserted record (counter 11), got %d", rec.Counter)
		}
	})

	t.Run("FractionalSecondOrdering", func(t *testing.T) {
		// Whole-second and fractional timestamps must order correctly.
		// RFC3339Nano drops trailing zeros, which made "12:00:00Z" sort
		// after "12:00:00.5Z" as a string; the fixed-width layout keeps
		// string order chronological.
		whole := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		for _, rec := range []*SensorRecord{
			{DeviceID: deviceID, EncryptedPayload: []byte("old"), Stage1KeyHash: "h1", Stage2KeyHash: "h2", Counter: 20, Timestamp: whole},
			{DeviceID: deviceID, EncryptedPayload: []byte("new"), Stage1KeyHash: "h1", Stage2KeyHash: "h2", Counter: 21, Timestamp: whole.Add(500 * time.Millisecond)},
		} {
			if err := store.InsertSensorRecord(rec); err != nil {
				t.Fatalf("InsertSensorRecord failed: %v", err)
			}
		}

		rec, err := store.LatestSensorRecord(deviceID)
		if err != nil {
			t.Fatalf("LatestSensorRecord failed: %v", err)
		}
		if rec.Counter != 21 {
			t.Errorf("expected fractional-second record (counter 21), got %d", rec.Counter)
		}
		if !rec.Timestamp.Equal(whole.Add(500 * time.Millisecond)) {
			t.Errorf("timestamp not round-tripped: got %v", rec.Timestamp)
		}
	})
}

func TestAnalytics(t *testing.T) {
	store := setupTestStore(t)
	deviceID := "did:example:analytics"

	err := store.InsertAnalytics(&AnalyticsRecord{
		DeviceID:   deviceID,
		MetricType: "temperature_avg",
		Value:      23.5,
		TimeWindow: "1h",
	})
	if err != nil {
		t.Fatalf("InsertAnalytics failed: %v", err)
	}

	records, err := store.AnalyticsFor(deviceID, "temperature_avg")
	if err != nil {
		t.Fatalf("AnalyticsFor failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Value != 23.5 {
		t.Errorf("expected value 23.5, got %v", records[0].Value)
	}
	if records[0].ID == "" {
		t.Error("expected assigned record id")
	}

	other, err := store.AnalyticsFor(deviceID, "humidity_avg")
	if err != nil {
		t.Fatalf("AnalyticsFor failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no records for other metric, got %d", len(other))
	}

	// Newest-first ordering must hold across whole-second and fractional
	// calculated_at values.
	whole := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.InsertAnalytics(&AnalyticsRecord{DeviceID: deviceID, MetricType: "payload_bytes", Value: 1, TimeWindow: "1h", CalculatedAt: whole})
	store.InsertAnalytics(&AnalyticsRecord{DeviceID: deviceID, MetricType: "payload_bytes", Value: 2, TimeWindow: "1h", CalculatedAt: whole.Add(500 * time.Millisecond)})

	ordered, err := store.AnalyticsFor(deviceID, "payload_bytes")
	if err != nil {
		t.Fatalf("AnalyticsFor failed: %v", err)
	}
	if len(ordered) != 2 || ordered[0].Value != 2 {
		t.Errorf("expected fractional-second record first, got %+v", ordered)
	}
}

func TestPing(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Ping(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
