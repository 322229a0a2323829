package storage

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecord(ts time.Time, forecast float64) PredictionRecord {
	return PredictionRecord{
		Ts:         ts,
		Features:   []float64{1.0, 2.0, 3.0},
		TreeOutput: []float64{forecast - 0.5},
		SeqOutput:  []float64{0.5},
		Forecast:   []float64{forecast},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := sampleRecord(base.Add(time.Duration(i)*time.Second), float64(i))
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("StorePrediction failed: %v", err)
		}
	}

	records, err := store.GetPredictions(base, base.Add(10*time.Second))
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(records))
	}

	// Records come back in time order.
	for i, rec := range records {
		if rec.Forecast[0] != float64(i) {
			t.Errorf("Record %d forecast = %v, want %v", i, rec.Forecast[0], float64(i))
		}
	}
}

func TestStore_RangeBounds(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		rec := sampleRecord(base.Add(time.Duration(i)*time.Minute), float64(i))
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("StorePrediction failed: %v", err)
		}
	}

	// Inclusive range covering records 2..5.
	records, err := store.GetPredictions(base.Add(2*time.Minute), base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("Expected 4 records in range, got %d", len(records))
	}
}

func TestStore_Recent(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := sampleRecord(base.Add(time.Duration(i)*time.Second), float64(i))
		if err := store.StorePrediction(rec); err != nil {
			t.Fatalf("StorePrediction failed: %v", err)
		}
	}

	records, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	// Newest first.
	if records[0].Forecast[0] != 4.0 {
		t.Errorf("Expected newest record first, got forecast %v", records[0].Forecast[0])
	}

	if records, _ := store.Recent(0); records != nil {
		t.Errorf("Expected nil for zero limit, got %v", records)
	}
}

func TestStore_EmptyRange(t *testing.T) {
	store := newTestStore(t)

	records, err := store.GetPredictions(time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("GetPredictions failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}
