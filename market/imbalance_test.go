package market

import (
	"testing"

	"matching-engine-go/internal/engine"
)

func TestCalculateImbalance(t *testing.T) {
	tests := []struct {
		name      string
		bidVolume int64
		askVolume int64
		expected  float64
	}{
		{name: "Equal volumes", bidVolume: 100, askVolume: 100, expected: 0},
		{name: "More bid volume", bidVolume: 150, askVolume: 100, expected: 0.2},
		{name: "More ask volume", bidVolume: 100, askVolume: 150, expected: -0.2},
		{name: "Zero volumes", bidVolume: 0, askVolume: 0, expected: 0},
		{name: "One zero volume", bidVolume: 100, askVolume: 0, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateImbalance(tt.bidVolume, tt.askVolume)
			if result != tt.expected {
				t.Errorf("CalculateImbalance(%d, %d) = %f, want %f",
					tt.bidVolume, tt.askVolume, result, tt.expected)
			}
		})
	}
}

func TestCalculateImbalanceFromSnapshot(t *testing.T) {
	snap := engine.BookSnapshot{
		Bids: []engine.PriceLevel{{Price: d("100.0"), Quantity: 200}, {Price: d("99.9"), Quantity: 300}, {Price: d("99.8"), Quantity: 100}},
		Asks: []engine.PriceLevel{{Price: d("100.1"), Quantity: 100}, {Price: d("100.2"), Quantity: 200}, {Price: d("100.3"), Quantity: 300}},
	}

	if got, want := CalculateImbalanceFromSnapshot(snap, 1), CalculateImbalance(200, 100); got != want {
		t.Errorf("1 level = %f, want %f", got, want)
	}
	if got, want := CalculateImbalanceFromSnapshot(snap, 2), CalculateImbalance(500, 300); got != want {
		t.Errorf("2 levels = %f, want %f", got, want)
	}
	if got := CalculateImbalanceFromSnapshot(snap, 10); got != 0 {
		t.Errorf("all levels balanced, got %f", got)
	}
	if got := CalculateImbalanceFromSnapshot(engine.BookSnapshot{}, 5); got != 0 {
		t.Errorf("empty book = %f, want 0", got)
	}
}
