package application

import (
	"fmt"
	"strings"

	"flight-assistant/internal/domain"
)

const (
	restartNotice    = "Your previous session expired, so I started a new one."
	degradedNotice   = "Note: live flight search is unavailable right now, so these are sample fares for illustration only. Please check the booking link for real prices and availability."
	rephraseMessage  = "Sorry, I couldn't quite follow that. Could you tell me where you're flying from and to, and your travel dates?"
	sessionLimitText = "This conversation has reached its message limit. Please start a new conversation to keep searching."
	originLimitText  = "Too many new conversations were started from here. Please wait a few minutes and try again."
	emptyMessageText = "Please type a message so I can help you find flights."
	truncatedNotice  = "Your message was long, so I only read the first part of it."
)

var clarificationQuestions = map[string]domain.Clarification{
	domain.FieldOrigin: {
		Field:    domain.FieldOrigin,
		Question: "Which city or airport are you flying from?",
	},
	domain.FieldDestination: {
		Field:    domain.FieldDestination,
		Question: "Where would you like to fly to?",
	},
	domain.FieldDepartureDate: {
		Field:       domain.FieldDepartureDate,
		Question:    "What date would you like to depart?",
		Suggestions: []string{"Next Friday", "In two weeks", "Next month"},
	},
	domain.FieldReturnDate: {
		Field:       domain.FieldReturnDate,
		Question:    "When would you like to come back?",
		Suggestions: []string{"A week later", "Two weeks later"},
	},
}

func clarificationFor(c domain.Criteria) *domain.Clarification {
	if missing := c.Missing(); len(missing) > 0 {
		q := clarificationQuestions[missing[0]]
		return &q
	}
	return &domain.Clarification{
		Question:    fmt.Sprintf("Just to confirm, you'd like flights for %s. Shall I search?", c.Summary()),
		Suggestions: []string{"Yes, search", "Change dates"},
	}
}

func resultsText(c domain.Criteria, offers []domain.Offer, degraded bool, assumptions []string) string {
	var b strings.Builder
	if len(assumptions) > 0 {
		fmt.Fprintf(&b, "I went ahead with a few assumptions (%s). Let me know if any should change.\n", strings.Join(assumptions, "; "))
	}
	fmt.Fprintf(&b, "Here are the top %d flight(s) from %s to %s:\n", len(offers), c.Origin, c.Destination)
	writeOffers(&b, offers)
	if degraded {
		b.WriteString("\n")
		b.WriteString(degradedNotice)
	}
	return strings.TrimRight(b.String(), "\n")
}

func emptyResultsText(c domain.Criteria) string {
	return fmt.Sprintf("I couldn't find any flights for %s. Try different dates or a nearby airport.", c.Summary())
}

func refinementText(outcome domain.RefinementOutcome) string {
	var b strings.Builder
	switch outcome.Intent {
	case domain.RefinementCheaper:
		fmt.Fprintf(&b, "Here are the options under $%.0f:\n", outcome.Threshold)
	case domain.RefinementDirectOnly:
		b.WriteString("Here are the direct flights:\n")
	}
	writeOffers(&b, outcome.Offers)
	return strings.TrimRight(b.String(), "\n")
}

func noMatchText(outcome domain.RefinementOutcome, lowest float64) string {
	switch outcome.Intent {
	case domain.RefinementCheaper:
		return fmt.Sprintf("None of the current options are under $%.0f; the cheapest is $%.0f. Would flights under $%.0f work instead?",
			outcome.Threshold, lowest, outcome.SuggestedThreshold)
	case domain.RefinementDirectOnly:
		return "There are no direct flights in the current results. Would you like me to try different dates?"
	}
	return "None of the current options match that."
}

func dateShiftText(days int, c domain.Criteria, offers []domain.Offer, degraded bool) string {
	direction := "later"
	if days < 0 {
		direction = "earlier"
		days = -days
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Moved your departure %d day(s) %s to %s.\n", days, direction, c.DepartureDate.Format(domain.OnlyDate))
	if len(offers) == 0 {
		b.WriteString(emptyResultsText(c))
		return b.String()
	}
	b.WriteString(resultsText(c, offers, degraded, nil))
	return b.String()
}

func writeOffers(b *strings.Builder, offers []domain.Offer) {
	for i, o := range offers {
		stops := "direct"
		if o.Stops == 1 {
			stops = "1 stop"
		} else if o.Stops > 1 {
			stops = fmt.Sprintf("%d stops", o.Stops)
		}
		fmt.Fprintf(b, "%d. %s %.2f %s, %s, %s\n", i+1, o.Airline, o.Price, o.Currency, domain.FormatDuration(o.DurationMinutes), stops)
	}
}

func withNotice(notice, text string) string {
	if notice == "" {
		return text
	}
	return notice + " " + text
}
