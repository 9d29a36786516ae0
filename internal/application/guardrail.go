package application

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/output"
	"flight-assistant/pkg/validator"

	"github.com/sirupsen/logrus"
)

// Violation is a structured guardrail rejection
type Violation struct {
	Kind domain.ErrorKind
	// Field is the criteria field at fault, empty for text violations
	Field   string
	Message string
}

func (v *Violation) Error() string {
	if v.Field == "" {
		return string(v.Kind)
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Field)
}

const (
	scopeMessage      = "I can only help with searching for flights. Tell me where you'd like to fly from and to, and when."
	maxDaysAhead      = 365
	airportCacheTTL   = 10 * time.Minute
	defaultMaxMessage = 2000
)

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\b.{0,30}\b(previous|prior|above|earlier|all|your)\b.{0,20}\b(instructions?|prompts?|rules|context|messages?)`),
	regexp.MustCompile(`(?i)\b(system|developer)\s+(prompt|message|instructions?)\b`),
	regexp.MustCompile(`(?i)\byou are now\b|\bact as (an?|the)\b|\bpretend (to be|you are)\b`),
	regexp.MustCompile(`(?i)\b(jailbreak|dan mode|developer mode)\b`),
	regexp.MustCompile(`(?i)<\|?/?(system|im_start|im_end|assistant)\|?>|\[/?(inst|sys)\]`),
}

// advicePattern is rejected even when the message also mentions travel
var advicePattern = regexp.MustCompile(`(?i)\b(medical|legal|financial|tax|investment) advice\b`)

var offTopicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(medical|diagnos\w*|symptoms?|prescription|medication|dosage)\b`),
	regexp.MustCompile(`(?i)\b(lawyer|lawsuit|sue\b)`),
	regexp.MustCompile(`(?i)\b(invest(ment|ing)?|stocks?|crypto\w*)\b`),
	regexp.MustCompile(`(?i)\bwrite (me )?(a|an|some) (poem|essay|story|code|program|song)\b`),
}

var travelPattern = regexp.MustCompile(`(?i)\b(fly|flying|flights?|airports?|airlines?|tickets?|trip|travel\w*|depart\w*|return\w*|round[- ]trip|one[- ]way)\b`)

// Guardrail struct - Screens raw text and validates criteria before they reach the capabilities
type Guardrail struct {
	validator    validator.Validator
	airports     output.AirportDirectory
	maxLength    int
	mu           sync.Mutex
	known        map[string]bool
	knownFetched time.Time
}

// NewGuardrail func - Creates the guardrail
func NewGuardrail(v validator.Validator, airports output.AirportDirectory, maxLength int) *Guardrail {
	if maxLength <= 0 {
		maxLength = defaultMaxMessage
	}
	return &Guardrail{
		validator: v,
		airports:  airports,
		maxLength: maxLength,
	}
}

// Sanitize trims the text, drops control characters and truncates it to the maximum length.
// Over-long input is flagged, not rejected.
func (g *Guardrail) Sanitize(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)

	if utf8.RuneCountInString(cleaned) <= g.maxLength {
		return cleaned, false
	}
	logrus.Infof("Message truncated to %d characters", g.maxLength)
	return string([]rune(cleaned)[:g.maxLength]), true
}

// Validate screens text for injection signatures and out-of-scope requests
func (g *Guardrail) Validate(text string) *Violation {
	for _, p := range injectionPatterns {
		if p.MatchString(text) {
			logrus.Warnf("Rejected message: injection pattern %q", p.String())
			return &Violation{Kind: domain.KindScopeViolation, Message: scopeMessage}
		}
	}
	if advicePattern.MatchString(text) {
		logrus.Warnf("Rejected message: out of scope pattern %q", advicePattern.String())
		return &Violation{Kind: domain.KindScopeViolation, Message: scopeMessage}
	}
	if travelPattern.MatchString(text) {
		return nil
	}
	for _, p := range offTopicPatterns {
		if p.MatchString(text) {
			logrus.Warnf("Rejected message: out of scope pattern %q", p.String())
			return &Violation{Kind: domain.KindScopeViolation, Message: scopeMessage}
		}
	}
	return nil
}

// ValidateCriteria checks field rules against now. Valid criteria always pass.
func (g *Guardrail) ValidateCriteria(ctx context.Context, c domain.Criteria, now time.Time) *Violation {
	if err := g.validator.ValidateStruct(c); err != nil {
		fields := validator.FieldErrors(err)
		field := ""
		if len(fields) > 0 {
			field = fields[0]
		}
		return g.fieldViolation(c, field)
	}
	// omitempty skips pointers to zero values
	if c.Passengers != nil && (*c.Passengers < 1 || *c.Passengers > 9) {
		return g.fieldViolation(c, domain.FieldPassengers)
	}
	if c.MaxPrice != nil && *c.MaxPrice <= 0 {
		return g.fieldViolation(c, domain.FieldMaxPrice)
	}

	today := domain.StartOfDay(now.UTC())
	if c.DepartureDate != nil {
		if !c.DepartureDate.After(today) {
			return &Violation{Kind: domain.KindValidationError, Field: domain.FieldDepartureDate,
				Message: fmt.Sprintf("The departure date %s is not in the future. When would you like to leave?", c.DepartureDate.Format(domain.OnlyDate))}
		}
		if c.DepartureDate.After(today.AddDate(0, 0, maxDaysAhead)) {
			return &Violation{Kind: domain.KindValidationError, Field: domain.FieldDepartureDate,
				Message: "Flights can only be searched up to a year ahead. Could you pick an earlier departure date?"}
		}
	}
	if c.ReturnDate != nil {
		if !c.ReturnDate.After(today) {
			return &Violation{Kind: domain.KindValidationError, Field: domain.FieldReturnDate,
				Message: fmt.Sprintf("The return date %s is not in the future. When would you like to come back?", c.ReturnDate.Format(domain.OnlyDate))}
		}
		if c.DepartureDate != nil && !c.ReturnDate.After(*c.DepartureDate) {
			return &Violation{Kind: domain.KindValidationError, Field: domain.FieldReturnDate,
				Message: "The return date needs to be after the departure date. When would you like to come back?"}
		}
	}

	if c.Origin != "" && c.Origin == c.Destination {
		return &Violation{Kind: domain.KindValidationError, Field: domain.FieldDestination,
			Message: "The origin and destination are the same airport. Where would you like to fly to?"}
	}

	for _, f := range []struct{ field, code string }{
		{domain.FieldOrigin, c.Origin},
		{domain.FieldDestination, c.Destination},
	} {
		if f.code == "" {
			continue
		}
		known, err := g.isKnownAirport(ctx, f.code)
		if err != nil {
			logrus.Warnf("Airport directory unavailable, skipping code check: %v", err)
			break
		}
		if !known {
			return g.fieldViolation(c, f.field)
		}
	}
	return nil
}

func (g *Guardrail) fieldViolation(c domain.Criteria, field string) *Violation {
	v := &Violation{Kind: domain.KindValidationError, Field: field}
	switch field {
	case domain.FieldOrigin:
		v.Message = fmt.Sprintf("I don't recognize the airport code %q. Which airport are you flying from?", c.Origin)
	case domain.FieldDestination:
		v.Message = fmt.Sprintf("I don't recognize the airport code %q. Which airport are you flying to?", c.Destination)
	case domain.FieldPassengers:
		v.Message = "I can search for 1 to 9 passengers. How many people are travelling?"
	case domain.FieldMaxPrice:
		v.Message = "The price limit needs to be a positive amount. What's your budget?"
	default:
		v.Message = "Some of those travel details don't look right. Could you check them?"
	}
	logrus.Infof("Criteria rejected: field=%s", field)
	return v
}

func (g *Guardrail) isKnownAirport(ctx context.Context, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.known == nil || time.Since(g.knownFetched) > airportCacheTTL {
		codes, err := g.airports.KnownAirportCodes(ctx)
		if err != nil {
			return false, err
		}
		known := make(map[string]bool, len(codes))
		for _, c := range codes {
			known[strings.ToUpper(c)] = true
		}
		g.known = known
		g.knownFetched = time.Now()
	}
	return g.known[code], nil
}
