package analyzer

import "meme-trading-bot/internal/types"

const (
	priceWindow   = 20
	volumeWindow  = 10
	srWindow      = 50
	srProximity   = 0.02
	volumeSpike   = 1.5
	volumeDrought = 0.5
)

// patternTags derives tags from the symbol's historical series. The
// caller guarantees history is chronological, oldest first; an empty
// history (fewer than the minimum records) yields no tags.
func patternTags(sample types.MarketSample, history []types.MarketSample) []string {
	if len(history) == 0 {
		return nil
	}

	prices := lastPrices(history, priceWindow)
	volumes := lastVolumes(history, volumeWindow)

	var tags []string
	tags = append(tags, continuationTags(prices)...)
	tags = append(tags, reversalTags(prices)...)
	tags = append(tags, volumeTags(sample.Volume, volumes)...)
	tags = append(tags, supportResistanceTags(sample.Price, lastPrices(history, srWindow))...)
	return tags
}

// continuationTags flags three strictly monotone consecutive prices.
func continuationTags(prices []float64) []string {
	if len(prices) < 3 {
		return nil
	}
	a, b, c := prices[len(prices)-3], prices[len(prices)-2], prices[len(prices)-1]
	if a < b && b < c {
		return []string{"uptrend_continuation"}
	}
	if a > b && b > c {
		return []string{"downtrend_continuation"}
	}
	return nil
}

// reversalTags flags a V (bullish) or inverted V (bearish) over the
// last three prices.
func reversalTags(prices []float64) []string {
	if len(prices) < 3 {
		return nil
	}
	a, b, c := prices[len(prices)-3], prices[len(prices)-2], prices[len(prices)-1]
	if a > b && c > b {
		return []string{"potential_reversal_bullish"}
	}
	if a < b && c < b {
		return []string{"potential_reversal_bearish"}
	}
	return nil
}

// volumeTags compares current volume against the trailing average.
func volumeTags(current float64, volumes []float64) []string {
	if len(volumes) == 0 {
		return nil
	}
	sum := 0.0
	for _, v := range volumes {
		sum += v
	}
	avg := sum / float64(len(volumes))
	if avg == 0 {
		return nil
	}
	if current > volumeSpike*avg {
		return []string{"high_volume"}
	}
	if current < volumeDrought*avg {
		return []string{"low_volume"}
	}
	return nil
}

// supportResistanceTags checks proximity to the observed extremes.
func supportResistanceTags(price float64, prices []float64) []string {
	if len(prices) == 0 {
		return nil
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices {
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}

	var tags []string
	if lo > 0 && price <= lo*(1+srProximity) {
		tags = append(tags, "near_support")
	}
	if hi > 0 && price >= hi*(1-srProximity) {
		tags = append(tags, "near_resistance")
	}
	return tags
}

func lastPrices(history []types.MarketSample, n int) []float64 {
	start := 0
	if len(history) > n {
		start = len(history) - n
	}
	out := make([]float64, 0, len(history)-start)
	for _, s := range history[start:] {
		out = append(out, s.Price)
	}
	return out
}

func lastVolumes(history []types.MarketSample, n int) []float64 {
	start := 0
	if len(history) > n {
		start = len(history) - n
	}
	out := make([]float64, 0, len(history)-start)
	for _, s := range history[start:] {
		out = append(out, s.Volume)
	}
	return out
}
