package resilient

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"
	"flight-assistant/pkg/resilience"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure Searcher implements GuardedSearcher interface
var _ output.GuardedSearcher = (*Searcher)(nil)

// Searcher struct - Degrading wrapper around a flight-search adapter
type Searcher struct {
	inner   output.FlightSearcher
	policy  resilience.Policy
	breaker *resilience.Breaker
}

// NewSearcher creates the wrapper
func NewSearcher(inner output.FlightSearcher, policy resilience.Policy, breaker *resilience.Breaker) *Searcher {
	return &Searcher{inner: inner, policy: policy, breaker: breaker}
}

// SearchOffers returns live offers, or the fallback set flagged as degraded once every
// attempt has failed. A live empty list is returned as is.
func (s *Searcher) SearchOffers(ctx context.Context, criteria domain.Criteria) domain.SearchResult {
	offers, err := resilience.Call(ctx, s.policy, s.breaker, func(ctx context.Context) ([]domain.Offer, error) {
		return s.inner.Search(ctx, criteria)
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"origin":      criteria.Origin,
			"destination": criteria.Destination,
		}).Warn("Flight search failed, serving fallback offers")
		return domain.SearchResult{Offers: FallbackOffers(criteria), Degraded: true}
	}
	return domain.SearchResult{Offers: offers}
}

// Breaker exposes the circuit for health reporting
func (s *Searcher) Breaker() *resilience.Breaker {
	return s.breaker
}

type fallbackFare struct {
	airline  string
	price    float64
	duration int
	stops    int
	departAt int
}

var fallbackFares = []fallbackFare{
	{airline: "Multiple airlines", price: 489, duration: 660, stops: 0, departAt: 9},
	{airline: "Multiple airlines", price: 412, duration: 840, stops: 1, departAt: 7},
	{airline: "Multiple airlines", price: 365, duration: 1020, stops: 2, departAt: 6},
}

// FallbackOffers returns a small fixed set of indicative offers for the route.
// Prices are placeholders; the booking link opens a live search for the same trip.
// Direct and price filters from the criteria still apply.
func FallbackOffers(criteria domain.Criteria) []domain.Offer {
	depart := time.Now().AddDate(0, 0, 14)
	if criteria.DepartureDate != nil {
		depart = *criteria.DepartureDate
	}
	day := domain.StartOfDay(depart)
	link := searchLink(criteria)

	offers := make([]domain.Offer, 0, len(fallbackFares))
	for i, f := range fallbackFares {
		departAt := day.Add(time.Duration(f.departAt) * time.Hour)
		offer := domain.Offer{
			ID:              fmt.Sprintf("fallback-%d", i+1),
			Airline:         f.airline,
			Price:           f.price * float64(criteria.PassengerCount()),
			Currency:        "USD",
			DurationMinutes: f.duration,
			Stops:           f.stops,
			Outbound: domain.Leg{
				Origin:      criteria.Origin,
				Destination: criteria.Destination,
				DepartureAt: departAt,
				ArrivalAt:   departAt.Add(time.Duration(f.duration) * time.Minute),
				Stops:       f.stops,
			},
			BookingReference: link,
		}
		if criteria.ReturnDate != nil {
			returnAt := domain.StartOfDay(*criteria.ReturnDate).Add(time.Duration(f.departAt+4) * time.Hour)
			offer.Return = &domain.Leg{
				Origin:      criteria.Destination,
				Destination: criteria.Origin,
				DepartureAt: returnAt,
				ArrivalAt:   returnAt.Add(time.Duration(f.duration) * time.Minute),
				Stops:       f.stops,
			}
		}
		if criteria.PreferDirect && !offer.IsDirect() {
			continue
		}
		if criteria.MaxPrice != nil && offer.Price > *criteria.MaxPrice {
			continue
		}
		offers = append(offers, offer)
	}
	return offers
}

func searchLink(criteria domain.Criteria) string {
	q := fmt.Sprintf("Flights from %s to %s", criteria.Origin, criteria.Destination)
	if criteria.DepartureDate != nil {
		q += " on " + criteria.DepartureDate.Format(domain.OnlyDate)
	}
	if criteria.ReturnDate != nil {
		q += " returning " + criteria.ReturnDate.Format(domain.OnlyDate)
	}
	return "https://www.google.com/travel/flights?q=" + url.QueryEscape(q)
}
