package synthesis

// Image pricing by size and quality. Unknown combinations fall back to the
// cheapest square tier.
var imageCosts = map[string]map[string]float64{
	"1024x1024": {"standard": 0.040, "hd": 0.080},
	"1024x1792": {"standard": 0.080, "hd": 0.120},
	"1792x1024": {"standard": 0.080, "hd": 0.120},
}

const fallbackImageCost = 0.040

// EstimateCost returns the estimated USD cost of one generated image.
func EstimateCost(size, quality string) float64 {
	if byQuality, ok := imageCosts[size]; ok {
		if cost, ok := byQuality[quality]; ok {
			return cost
		}
	}
	return fallbackImageCost
}
