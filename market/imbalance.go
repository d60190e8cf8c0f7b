package market

import "matching-engine-go/internal/engine"

// CalculateImbalance calculates the imbalance between bid and ask volumes
// Imbalance = (BidVol - AskVol) / (BidVol + AskVol)
func CalculateImbalance(bidVolume, askVolume int64) float64 {
	total := bidVolume + askVolume
	if total == 0 {
		return 0
	}
	return float64(bidVolume-askVolume) / float64(total)
}

// CalculateImbalanceFromSnapshot uses the visible quantity of the top levels
// of each side; levels <= 0 means all levels in the snapshot.
func CalculateImbalanceFromSnapshot(snap engine.BookSnapshot, levels int) float64 {
	return CalculateImbalance(sumLevels(snap.Bids, levels), sumLevels(snap.Asks, levels))
}

func sumLevels(levels []engine.PriceLevel, n int) int64 {
	var total int64
	for i, l := range levels {
		if n > 0 && i >= n {
			break
		}
		total += l.Quantity
	}
	return total
}
