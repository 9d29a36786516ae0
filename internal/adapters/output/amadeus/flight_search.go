package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"flight-assistant/configs"
	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Compile-time check to ensure FlightSearchAdapter implements FlightSearcher interface
var _ output.FlightSearcher = (*FlightSearchAdapter)(nil)

const (
	tokenPath  = "/v1/security/oauth2/token"
	offersPath = "/v2/shopping/flight-offers"
	// localLayout is how Amadeus reports segment times, in airport local time
	localLayout = "2006-01-02T15:04:05"
)

// FlightSearchAdapter struct - Output adapter for the Amadeus Flight Offers Search API
type FlightSearchAdapter struct {
	httpClient *http.Client
	baseURL    string
	currency   string
	maxResults int
}

// NewFlightSearchAdapter func - Creates an adapter authenticated with OAuth2 client credentials
func NewFlightSearchAdapter(ctx context.Context, config configs.FlightSearch) *FlightSearchAdapter {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://test.api.amadeus.com"
	}

	transport := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	cc := clientcredentials.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		TokenURL:     baseURL + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	currency := config.Currency
	if currency == "" {
		currency = "USD"
	}
	maxResults := config.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	logrus.Infof("Amadeus flight search adapter initialized with base URL: %s", baseURL)

	return &FlightSearchAdapter{
		httpClient: cc.Client(context.WithValue(ctx, oauth2.HTTPClient, transport)),
		baseURL:    baseURL,
		currency:   currency,
		maxResults: maxResults,
	}
}

// Search queries flight offers for the criteria. An empty list is a valid result.
func (a *FlightSearchAdapter) Search(ctx context.Context, criteria domain.Criteria) ([]domain.Offer, error) {
	if criteria.DepartureDate == nil {
		return nil, fmt.Errorf("%w: departure date is required", domain.ErrInvalidRequest)
	}

	query := url.Values{}
	query.Set("originLocationCode", criteria.Origin)
	query.Set("destinationLocationCode", criteria.Destination)
	query.Set("departureDate", criteria.DepartureDate.Format(domain.OnlyDate))
	if criteria.ReturnDate != nil {
		query.Set("returnDate", criteria.ReturnDate.Format(domain.OnlyDate))
	}
	query.Set("adults", strconv.Itoa(criteria.PassengerCount()))
	query.Set("currencyCode", a.currency)
	query.Set("max", strconv.Itoa(a.maxResults))
	if criteria.PreferDirect {
		query.Set("nonStop", "true")
	}
	if criteria.MaxPrice != nil {
		query.Set("maxPrice", strconv.Itoa(int(*criteria.MaxPrice)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+offersPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create flight offers request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d - %s", domain.ErrorForStatus(resp.StatusCode), resp.StatusCode, string(body))
	}

	var payload offersResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse flight offers: %v", domain.ErrUpstreamUnavailable, err)
	}

	offers := make([]domain.Offer, 0, len(payload.Data))
	for _, raw := range payload.Data {
		offer, err := raw.toDomain()
		if err != nil {
			logrus.Warnf("Skipping flight offer %s: %v", raw.ID, err)
			continue
		}
		offers = append(offers, offer)
	}

	logrus.WithFields(logrus.Fields{
		"origin":      criteria.Origin,
		"destination": criteria.Destination,
		"offers":      len(offers),
	}).Info("Flight search completed")

	return offers, nil
}

func classifyTransportError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return fmt.Errorf("%w: token request failed: %v", domain.ErrorForStatus(retrieveErr.Response.StatusCode), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
}

type offersResponse struct {
	Data []flightOffer `json:"data"`
}

type flightOffer struct {
	ID          string      `json:"id"`
	Itineraries []itinerary `json:"itineraries"`
	Price       struct {
		Currency   string `json:"currency"`
		GrandTotal string `json:"grandTotal"`
		Total      string `json:"total"`
	} `json:"price"`
	ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
}

type itinerary struct {
	Duration string    `json:"duration"`
	Segments []segment `json:"segments"`
}

type segment struct {
	Departure struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		IataCode string `json:"iataCode"`
		At       string `json:"at"`
	} `json:"arrival"`
	CarrierCode   string `json:"carrierCode"`
	Number        string `json:"number"`
	NumberOfStops int    `json:"numberOfStops"`
}

func (o flightOffer) toDomain() (domain.Offer, error) {
	if len(o.Itineraries) == 0 {
		return domain.Offer{}, errors.New("no itineraries")
	}

	total := o.Price.GrandTotal
	if total == "" {
		total = o.Price.Total
	}
	price, err := strconv.ParseFloat(total, 64)
	if err != nil {
		return domain.Offer{}, fmt.Errorf("invalid price %q: %w", total, err)
	}

	offer := domain.Offer{
		ID:               o.ID,
		Price:            price,
		Currency:         o.Price.Currency,
		BookingReference: "amadeus:" + o.ID,
	}
	if len(o.ValidatingAirlineCodes) > 0 {
		offer.Airline = o.ValidatingAirlineCodes[0]
	}

	for i, it := range o.Itineraries {
		leg, err := it.toLeg()
		if err != nil {
			return domain.Offer{}, err
		}
		minutes, err := ParseISODuration(it.Duration)
		if err != nil {
			return domain.Offer{}, err
		}
		offer.DurationMinutes += minutes
		if leg.Stops > offer.Stops {
			offer.Stops = leg.Stops
		}
		switch i {
		case 0:
			offer.Outbound = leg
		case 1:
			ret := leg
			offer.Return = &ret
		}
	}
	if offer.Airline == "" && len(o.Itineraries[0].Segments) > 0 {
		offer.Airline = o.Itineraries[0].Segments[0].CarrierCode
	}
	return offer, nil
}

func (it itinerary) toLeg() (domain.Leg, error) {
	if len(it.Segments) == 0 {
		return domain.Leg{}, errors.New("itinerary without segments")
	}
	first, last := it.Segments[0], it.Segments[len(it.Segments)-1]

	departAt, err := time.Parse(localLayout, first.Departure.At)
	if err != nil {
		return domain.Leg{}, fmt.Errorf("invalid departure time: %w", err)
	}
	arriveAt, err := time.Parse(localLayout, last.Arrival.At)
	if err != nil {
		return domain.Leg{}, fmt.Errorf("invalid arrival time: %w", err)
	}

	leg := domain.Leg{
		Origin:      first.Departure.IataCode,
		Destination: last.Arrival.IataCode,
		DepartureAt: departAt,
		ArrivalAt:   arriveAt,
		Stops:       len(it.Segments) - 1,
	}
	for _, s := range it.Segments {
		leg.Stops += s.NumberOfStops
		leg.FlightNumbers = append(leg.FlightNumbers, s.CarrierCode+s.Number)
	}
	return leg, nil
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?)?$`)

// ParseISODuration converts durations such as PT10H30M or P1DT2H into minutes
func ParseISODuration(value string) (int, error) {
	m := isoDuration.FindStringSubmatch(value)
	if m == nil || value == "P" || value == "PT" {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	minutes := 0
	for i, unit := range []int{24 * 60, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", value, err)
		}
		minutes += n * unit
	}
	return minutes, nil
}
