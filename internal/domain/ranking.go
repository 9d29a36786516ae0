package domain

import "sort"

// Ranking weights and limits
const (
	PriceWeight    = 0.50
	DurationWeight = 0.30
	DirectWeight   = 0.20
	MaxRanked      = 5
)

// Rank scores offers, sorts them by descending relevance and keeps the top MaxRanked.
// The input slice is not modified. Ties are broken by lower price, fewer stops,
// offer id, then input order, so any permutation of the same offers ranks identically.
func Rank(offers []Offer) []Offer {
	if len(offers) == 0 {
		return []Offer{}
	}

	maxPrice, maxDuration := 0.0, 0
	minPrice, minDuration := offers[0].Price, offers[0].DurationMinutes
	for _, o := range offers {
		if o.Price > maxPrice {
			maxPrice = o.Price
		}
		if o.Price < minPrice {
			minPrice = o.Price
		}
		if o.DurationMinutes > maxDuration {
			maxDuration = o.DurationMinutes
		}
		if o.DurationMinutes < minDuration {
			minDuration = o.DurationMinutes
		}
	}
	uniformPrice := minPrice == maxPrice || maxPrice <= 0
	uniformDuration := minDuration == maxDuration || maxDuration <= 0

	scored := make([]Offer, len(offers))
	for i, o := range offers {
		priceScore := 1.0
		if !uniformPrice {
			priceScore = 1 - o.Price/maxPrice
		}
		durationScore := 1.0
		if !uniformDuration {
			durationScore = 1 - float64(o.DurationMinutes)/float64(maxDuration)
		}
		directBonus := 0.0
		if o.IsDirect() {
			directBonus = 1.0
		}
		o.RelevanceScore = PriceWeight*priceScore + DurationWeight*durationScore + DirectWeight*directBonus
		scored[i] = o
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		if a.Stops != b.Stops {
			return a.Stops < b.Stops
		}
		return a.ID < b.ID
	})

	if len(scored) > MaxRanked {
		scored = scored[:MaxRanked]
	}
	return scored
}
