package offer

import (
	"encoding/json"
	"fmt"
	"time"
)

type CalculationStatus string

const (
	CalculationCalculating CalculationStatus = "calculating"
	CalculationCompleted   CalculationStatus = "completed"
)

// CalculationDetails is either Calculating or Completed.
type CalculationDetails interface {
	Status() CalculationStatus
	Started() time.Time
	isCalculationDetails()
}

type Calculating struct {
	StartedAt     time.Time
	EstimatedWait time.Duration
}

func (Calculating) Status() CalculationStatus { return CalculationCalculating }
func (c Calculating) Started() time.Time      { return c.StartedAt }
func (Calculating) isCalculationDetails()     {}

// ReadyAt is when the valuation is expected to finish; zero when no wait was drawn yet.
func (c Calculating) ReadyAt() time.Time {
	if c.EstimatedWait <= 0 {
		return time.Time{}
	}
	return c.StartedAt.Add(c.EstimatedWait)
}

type PriceRange struct {
	Low        int `json:"low"`
	High       int `json:"high"`
	Confidence int `json:"confidence"`
}

// Midpoint is the amount shown for a completed range.
func (r PriceRange) Midpoint() int {
	return (r.Low + r.High) / 2
}

type Completed struct {
	StartedAt   time.Time
	CompletedAt time.Time
	PriceRange  PriceRange
}

func (Completed) Status() CalculationStatus { return CalculationCompleted }
func (c Completed) Started() time.Time      { return c.StartedAt }
func (Completed) isCalculationDetails()     {}

// calculationEnvelope is the stored JSON shape.
type calculationEnvelope struct {
	Status              CalculationStatus `json:"status"`
	StartedAt           time.Time         `json:"started_at"`
	EstimatedWaitMillis int64             `json:"estimated_wait_time,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	PriceRange          *PriceRange       `json:"price_range,omitempty"`
}

func MarshalCalculation(details CalculationDetails) ([]byte, error) {
	switch v := details.(type) {
	case Calculating:
		return json.Marshal(calculationEnvelope{
			Status:              CalculationCalculating,
			StartedAt:           v.StartedAt.UTC(),
			EstimatedWaitMillis: v.EstimatedWait.Milliseconds(),
		})
	case Completed:
		completedAt := v.CompletedAt.UTC()
		pr := v.PriceRange
		return json.Marshal(calculationEnvelope{
			Status:      CalculationCompleted,
			StartedAt:   v.StartedAt.UTC(),
			CompletedAt: &completedAt,
			PriceRange:  &pr,
		})
	case nil:
		return nil, fmt.Errorf("%w: nil details", ErrInvalidCalculation)
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidCalculation, details)
}

func UnmarshalCalculation(raw []byte) (CalculationDetails, error) {
	var env calculationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalculation, err)
	}

	switch env.Status {
	case CalculationCalculating:
		return Calculating{
			StartedAt:     env.StartedAt,
			EstimatedWait: time.Duration(env.EstimatedWaitMillis) * time.Millisecond,
		}, nil
	case CalculationCompleted:
		if env.PriceRange == nil || env.CompletedAt == nil {
			return nil, fmt.Errorf("%w: completed without price range", ErrInvalidCalculation)
		}
		return Completed{
			StartedAt:   env.StartedAt,
			CompletedAt: *env.CompletedAt,
			PriceRange:  *env.PriceRange,
		}, nil
	}
	return nil, fmt.Errorf("%w: status %q", ErrInvalidCalculation, env.Status)
}
