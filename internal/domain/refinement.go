package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// RefinementIntent is a follow-up that acts on the previous result set
type RefinementIntent string

const (
	// RefinementCheaper keeps offers below CheaperRatio of the lowest price
	RefinementCheaper RefinementIntent = "cheaper"
	// RefinementDirectOnly keeps offers without stops
	RefinementDirectOnly RefinementIntent = "direct_only"
	// RefinementDateShift re-runs the search with the departure date moved
	RefinementDateShift RefinementIntent = "date_shift"
)

// Refinement thresholds
const (
	CheaperRatio = 0.80
	RelaxedRatio = 0.90
)

// Refinement is a recognized refinement utterance
type Refinement struct {
	Intent RefinementIntent
	// ShiftDays is the signed day offset for RefinementDateShift
	ShiftDays int
}

// RefinementOutcome is the result of applying a refinement to previous results
type RefinementOutcome struct {
	Intent  RefinementIntent
	Offers  []Offer
	NoMatch bool
	// Threshold is the price ceiling applied by RefinementCheaper
	Threshold float64
	// SuggestedThreshold is the relaxed ceiling offered after a cheaper NoMatch
	SuggestedThreshold float64
	// RequiresSearch is set for intents that need fresh criteria
	RequiresSearch bool
}

var (
	cheaperPattern = regexp.MustCompile(`\b(cheaper|less expensive|lower (price|fare)s?|more affordable)\b`)
	directPattern  = regexp.MustCompile(`\b(direct( flights?)? only|(only|just) (show )?(me )?direct|non[- ]?stop( flights?)? only|only non[- ]?stop|no (stops|layovers?|connections?))\b`)
	shiftPattern   = regexp.MustCompile(`\b(a|an|one|two|three|four|five|six|seven|\d+) days? (earlier|later|before|after)\b`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7,
}

// DetectRefinement matches text against the refinement patterns
func DetectRefinement(text string) (Refinement, bool) {
	t := strings.ToLower(text)

	if m := shiftPattern.FindStringSubmatch(t); m != nil {
		n, ok := numberWords[m[1]]
		if !ok {
			v, err := strconv.Atoi(m[1])
			if err != nil || v <= 0 || v > 30 {
				return Refinement{}, false
			}
			n = v
		}
		if m[2] == "earlier" || m[2] == "before" {
			n = -n
		}
		return Refinement{Intent: RefinementDateShift, ShiftDays: n}, true
	}
	if directPattern.MatchString(t) {
		return Refinement{Intent: RefinementDirectOnly}, true
	}
	if cheaperPattern.MatchString(t) {
		return Refinement{Intent: RefinementCheaper}, true
	}
	return Refinement{}, false
}

// Refine filters the previous result set. An empty filter result is a NoMatch
// outcome, not an error. Order of previous results is preserved.
func Refine(previous []Offer, lowestPrice float64, r Refinement) RefinementOutcome {
	out := RefinementOutcome{Intent: r.Intent}

	switch r.Intent {
	case RefinementCheaper:
		out.Threshold = CheaperRatio * lowestPrice
		out.Offers = filterOffers(previous, func(o Offer) bool { return o.Price < out.Threshold })
		if len(out.Offers) == 0 {
			out.NoMatch = true
			out.SuggestedThreshold = RelaxedRatio * lowestPrice
		}
	case RefinementDirectOnly:
		out.Offers = filterOffers(previous, Offer.IsDirect)
		out.NoMatch = len(out.Offers) == 0
	case RefinementDateShift:
		out.RequiresSearch = true
	}
	return out
}

func filterOffers(offers []Offer, keep func(Offer) bool) []Offer {
	filtered := make([]Offer, 0, len(offers))
	for _, o := range offers {
		if keep(o) {
			filtered = append(filtered, o)
		}
	}
	return filtered
}
