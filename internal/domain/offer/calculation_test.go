package offer

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestCalculationRoundTripVariants(t *testing.T) {
	started := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)

	raw, err := MarshalCalculation(Calculating{StartedAt: started, EstimatedWait: 90 * time.Second})
	if err != nil {
		t.Fatalf("MarshalCalculation(calculating) error = %v", err)
	}
	var shape map[string]any
	if err := json.Unmarshal(raw, &shape); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if shape["status"] != "calculating" || shape["estimated_wait_time"] != float64(90000) {
		t.Fatalf("stored shape = %v", shape)
	}
	if _, ok := shape["price_range"]; ok {
		t.Fatalf("calculating details must not carry a price range")
	}

	details, err := UnmarshalCalculation(raw)
	if err != nil {
		t.Fatalf("UnmarshalCalculation() error = %v", err)
	}
	calc, ok := details.(Calculating)
	if !ok {
		t.Fatalf("details = %T, want Calculating", details)
	}
	if !calc.ReadyAt().Equal(started.Add(90 * time.Second)) {
		t.Fatalf("ReadyAt() = %v", calc.ReadyAt())
	}

	done := Completed{
		StartedAt:   started,
		CompletedAt: started.Add(time.Minute),
		PriceRange:  PriceRange{Low: 248400, High: 291600, Confidence: 87},
	}
	raw, err = MarshalCalculation(done)
	if err != nil {
		t.Fatalf("MarshalCalculation(completed) error = %v", err)
	}
	details, err = UnmarshalCalculation(raw)
	if err != nil {
		t.Fatalf("UnmarshalCalculation() error = %v", err)
	}
	got, ok := details.(Completed)
	if !ok || got.PriceRange != done.PriceRange || got.Status() != CalculationCompleted {
		t.Fatalf("details = %#v", details)
	}
	if got.PriceRange.Midpoint() != 270000 {
		t.Fatalf("Midpoint() = %d", got.PriceRange.Midpoint())
	}
}

func TestUnmarshalCalculationRejectsPartialShapes(t *testing.T) {
	for _, raw := range []string{
		`{"status":"completed","started_at":"2026-05-01T10:00:00Z"}`,
		`{"status":"finished"}`,
		`not json`,
	} {
		if _, err := UnmarshalCalculation([]byte(raw)); !errors.Is(err, ErrInvalidCalculation) {
			t.Fatalf("UnmarshalCalculation(%s) error = %v", raw, err)
		}
	}
	if _, err := MarshalCalculation(nil); !errors.Is(err, ErrInvalidCalculation) {
		t.Fatalf("MarshalCalculation(nil) error = %v", err)
	}
}
