package application

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"flight-assistant/internal/domain"
	"flight-assistant/internal/ports/input"
	"flight-assistant/internal/ports/output"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure TurnOrchestrator implements TurnService interface
var _ input.TurnService = (*TurnOrchestrator)(nil)

const (
	toolExtraction   = "extraction"
	toolFlightSearch = "flight_search"
	toolRefinement   = "refinement"

	defaultDepartureLeadDays = 14
	defaultTripLengthDays    = 7
)

// affirmPattern matches a reply that is only an affirmation. "ok, but for 3 passengers" carries a correction and does not match.
var affirmPattern = regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|sure|ok(ay)?|correct|that'?s (right|correct)|go ahead|please do|search)(,?\s*(please|search|go ahead|do it|thanks))*\s*[.!]*\s*$`)

// TurnConfig holds the turn-level thresholds
type TurnConfig struct {
	ConfidenceThreshold    float64
	FailClosedBelow        float64
	MaxClarificationRounds int
	SessionTTL             time.Duration
	// MaxMessages bounds the messages a single session accepts, zero disables it
	MaxMessages int
	// SessionsPerOrigin bounds session creations per client origin within OriginWindow
	SessionsPerOrigin int
	OriginWindow      time.Duration
	// HistoryTurns is the number of prior turns handed to extraction
	HistoryTurns int
}

// TurnDependencies groups the collaborators of the orchestrator
type TurnDependencies struct {
	Store     output.SessionStore
	Counter   output.RateCounter
	Extractor output.GuardedExtractor
	Searcher  output.GuardedSearcher
	Guardrail *Guardrail
	Context   *ContextManager
	// Reporter is optional
	Reporter output.ErrorReporter
	// Clock and NewID default to time.Now and uuid
	Clock func() time.Time
	NewID func() string
}

// TurnOrchestrator struct - Runs one conversational turn against a session
type TurnOrchestrator struct {
	store     output.SessionStore
	counter   output.RateCounter
	extractor output.GuardedExtractor
	searcher  output.GuardedSearcher
	guardrail *Guardrail
	context   *ContextManager
	reporter  output.ErrorReporter
	locks     *SessionLocks
	config    TurnConfig
	now       func() time.Time
	newID     func() string
}

type route int

const (
	routeSearch route = iota
	routeClarify
	routeFailClosed
)

// outcome is a response plus the diagnostics recorded on the assistant turn
type outcome struct {
	response   *domain.TurnResponse
	confidence *float64
	tools      []string
}

// NewTurnOrchestrator func - Creates the orchestrator
func NewTurnOrchestrator(deps TurnDependencies, config TurnConfig) *TurnOrchestrator {
	if config.ConfidenceThreshold <= 0 {
		config.ConfidenceThreshold = 0.7
	}
	if config.FailClosedBelow <= 0 {
		config.FailClosedBelow = 0.1
	}
	if config.MaxClarificationRounds <= 0 {
		config.MaxClarificationRounds = 2
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = time.Hour
	}
	if config.OriginWindow <= 0 {
		config.OriginWindow = time.Hour
	}
	if config.HistoryTurns <= 0 {
		config.HistoryTurns = 5
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &TurnOrchestrator{
		store:     deps.Store,
		counter:   deps.Counter,
		extractor: deps.Extractor,
		searcher:  deps.Searcher,
		guardrail: deps.Guardrail,
		context:   deps.Context,
		reporter:  deps.Reporter,
		locks:     NewSessionLocks(),
		config:    config,
		now:       deps.Clock,
		newID:     deps.NewID,
	}
}

// HandleTurn func - Processes one message. A version conflict on commit retries the turn once.
func (o *TurnOrchestrator) HandleTurn(ctx context.Context, request domain.TurnRequest) (*domain.TurnResponse, error) {
	response, err := o.handleTurn(ctx, request)
	if errors.Is(err, domain.ErrVersionConflict) {
		logrus.WithField("session_id", request.SessionID).Warn("Session changed during turn, retrying")
		response, err = o.handleTurn(ctx, request)
	}
	if err != nil {
		logrus.WithError(err).WithField("session_id", request.SessionID).Error("Turn failed")
		if o.reporter != nil && ctx.Err() == nil {
			o.reporter.CaptureException(err, map[string]string{
				"component":  "turn_orchestrator",
				"session_id": request.SessionID,
			})
		}
		return nil, err
	}
	return response, nil
}

// ResetSession func - Deletes a session
func (o *TurnOrchestrator) ResetSession(ctx context.Context, sessionID string) error {
	unlock, err := o.locks.Lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	defer unlock()

	if err := o.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	logrus.WithField("session_id", sessionID).Info("Session reset")
	return nil
}

func (o *TurnOrchestrator) handleTurn(ctx context.Context, request domain.TurnRequest) (*domain.TurnResponse, error) {
	now := o.now()

	if request.SessionID != "" {
		unlock, err := o.locks.Lock(ctx, request.SessionID)
		if err != nil {
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		defer unlock()
	}

	session, restarted, err := o.loadSession(ctx, request.SessionID, now)
	if err != nil {
		return nil, err
	}
	if session == nil {
		count, err := o.counter.Increment(ctx, "sessions:"+request.ClientOrigin, o.config.OriginWindow)
		if err != nil {
			return nil, fmt.Errorf("count session creation: %w", err)
		}
		if o.config.SessionsPerOrigin > 0 && count > int64(o.config.SessionsPerOrigin) {
			logrus.WithField("origin", request.ClientOrigin).Warn("Session creation limit reached")
			return rejection(domain.KindRateLimited, originLimitText), nil
		}
		session = domain.NewSession(o.newID(), now)
	}

	log := logrus.WithField("session_id", session.ID)
	log.WithField("state", "received").Debug("Turn received")

	if o.config.MaxMessages > 0 && session.MessageCount >= o.config.MaxMessages {
		log.Warn("Session message limit reached")
		resp := rejection(domain.KindRateLimited, sessionLimitText)
		resp.SessionID = session.ID
		return resp, nil
	}

	notice := ""
	if restarted {
		notice = restartNotice
		log.WithField("kind", domain.KindSessionExpired).Info("Started a new session in place of an expired one")
	}

	text, truncated := o.guardrail.Sanitize(request.Message)
	if truncated {
		notice = withNotice(notice, truncatedNotice)
	}
	if text == "" {
		return o.commitRejection(ctx, session, now, notice, domain.KindValidationError, emptyMessageText)
	}
	if v := o.guardrail.Validate(text); v != nil {
		return o.commitRejection(ctx, session, now, notice, v.Kind, v.Message)
	}
	log.WithField("state", "validated").Debug("Message validated")

	prior := session.RecentHistory(o.config.HistoryTurns)
	o.context.Append(session, domain.Turn{
		Role:      domain.TurnRoleUser,
		Text:      text,
		Timestamp: now,
		Metadata:  domain.TurnMetadata{Truncated: truncated},
	})
	log.WithField("state", "context_updated").Debug("User turn appended")

	suggested := session.SuggestedMaxPrice
	session.SuggestedMaxPrice = nil
	affirmed := affirmPattern.MatchString(text)

	var out outcome
	if ref, ok := domain.DetectRefinement(text); ok && len(session.LastResults) > 0 {
		out = o.refine(ctx, session, ref, now)
	} else if suggested != nil && affirmed && session.Criteria.IsComplete() {
		session.Criteria.MaxPrice = suggested
		out = o.search(ctx, session, nil)
	} else if session.ClarificationRounds > 0 && session.Criteria.IsComplete() && affirmed {
		out = o.search(ctx, session, nil)
	} else {
		out = o.extractAndRoute(ctx, session, text, prior, now)
	}

	resp := out.response
	resp.SessionID = session.ID
	resp.AssistantText = withNotice(notice, resp.AssistantText)

	o.context.Append(session, domain.Turn{
		Role:      domain.TurnRoleAssistant,
		Text:      resp.AssistantText,
		Timestamp: now,
		Metadata: domain.TurnMetadata{
			Confidence: out.confidence,
			Tools:      out.tools,
			ErrorCode:  resp.Kind,
		},
	})
	if err := o.commit(ctx, session, now); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"state":    "responded",
		"type":     resp.Type,
		"kind":     resp.Kind,
		"offers":   len(resp.Offers),
		"degraded": resp.Degraded,
	}).Info("Turn completed")
	return resp, nil
}

func (o *TurnOrchestrator) loadSession(ctx context.Context, sessionID string, now time.Time) (*domain.Session, bool, error) {
	if sessionID == "" {
		return nil, false, nil
	}
	session, err := o.store.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if o.context.IsExpired(session, now) {
		return nil, true, nil
	}
	return session, false, nil
}

func (o *TurnOrchestrator) commit(ctx context.Context, session *domain.Session, now time.Time) error {
	session.MessageCount++
	session.LastActiveAt = now
	if o.context.ShouldPrune(session) {
		o.context.Prune(session, now)
	}
	// The turn is committed even if the caller went away mid-turn
	if err := o.store.Put(context.WithoutCancel(ctx), session, o.config.SessionTTL); err != nil {
		return fmt.Errorf("commit session: %w", err)
	}
	return nil
}

func (o *TurnOrchestrator) commitRejection(ctx context.Context, session *domain.Session, now time.Time, notice string, kind domain.ErrorKind, message string) (*domain.TurnResponse, error) {
	if err := o.commit(ctx, session, now); err != nil {
		return nil, err
	}
	resp := rejection(kind, message)
	resp.SessionID = session.ID
	resp.AssistantText = withNotice(notice, resp.AssistantText)
	logrus.WithFields(logrus.Fields{"session_id": session.ID, "kind": kind}).Info("Message rejected")
	return resp, nil
}

func (o *TurnOrchestrator) route(e *domain.Extraction) route {
	switch {
	case e.Failed || e.Confidence < o.config.FailClosedBelow:
		return routeFailClosed
	case e.Confidence >= o.config.ConfidenceThreshold:
		return routeSearch
	default:
		return routeClarify
	}
}

func (o *TurnOrchestrator) extractAndRoute(ctx context.Context, session *domain.Session, text string, prior []domain.Turn, now time.Time) outcome {
	extraction := o.extractor.ExtractFields(ctx, domain.ExtractionRequest{
		Message: text,
		History: prior,
		Today:   now,
	})
	confidence := extraction.Confidence
	tools := []string{toolExtraction}

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"state":      "extracted",
		"confidence": confidence,
		"failed":     extraction.Failed,
	}).Debug("Extraction finished")

	r := o.route(extraction)
	if r == routeFailClosed {
		return outcome{
			response: &domain.TurnResponse{
				Type:          domain.ResponseTypeClarification,
				AssistantText: rephraseMessage,
				Clarification: &domain.Clarification{Question: rephraseMessage},
				Kind:          domain.KindExtractionFailed,
			},
			confidence: &confidence,
			tools:      tools,
		}
	}

	prev := session.Criteria
	merged := prev.Merge(*extraction)
	if v := o.guardrail.ValidateCriteria(ctx, merged, now); v != nil {
		session.Criteria = o.revert(ctx, merged, prev, v.Field, now)
		return outcome{response: violationResponse(v), confidence: &confidence, tools: tools}
	}
	session.Criteria = merged

	var out outcome
	if r == routeSearch && merged.IsComplete() {
		out = o.search(ctx, session, nil)
	} else {
		out = o.clarify(ctx, session, now)
	}
	out.confidence = &confidence
	out.tools = append(tools, out.tools...)
	return out
}

// revert restores the offending field. A field that was already invalid before this turn is cleared.
func (o *TurnOrchestrator) revert(ctx context.Context, merged, prev domain.Criteria, field string, now time.Time) domain.Criteria {
	reverted := merged.Revert(field, prev)
	if v := o.guardrail.ValidateCriteria(ctx, reverted, now); v != nil && v.Field == field {
		reverted = reverted.Revert(field, domain.Criteria{})
	}
	return reverted
}

func (o *TurnOrchestrator) clarify(ctx context.Context, session *domain.Session, now time.Time) outcome {
	c := session.Criteria
	if session.ClarificationRounds >= o.config.MaxClarificationRounds && c.Origin != "" && c.Destination != "" {
		forced, assumptions := withDefaults(c, now)
		if v := o.guardrail.ValidateCriteria(ctx, forced, now); v == nil {
			logrus.WithFields(logrus.Fields{
				"session_id":  session.ID,
				"rounds":      session.ClarificationRounds,
				"assumptions": assumptions,
			}).Info("Clarification rounds exhausted, searching with defaults")
			session.Criteria = forced
			return o.search(ctx, session, assumptions)
		}
	}

	session.ClarificationRounds++
	q := clarificationFor(c)
	return outcome{response: &domain.TurnResponse{
		Type:          domain.ResponseTypeClarification,
		AssistantText: q.Question,
		Clarification: q,
		Kind:          domain.KindExtractionAmbiguous,
	}}
}

func (o *TurnOrchestrator) search(ctx context.Context, session *domain.Session, assumptions []string) outcome {
	c := session.Criteria
	result := o.searcher.SearchOffers(ctx, c)
	ranked := domain.Rank(result.Offers)
	session.SetResults(ranked)
	session.ClarificationRounds = 0

	resp := &domain.TurnResponse{
		Type:        domain.ResponseTypeResults,
		Offers:      ranked,
		Degraded:    result.Degraded,
		Assumptions: assumptions,
	}
	switch {
	case len(ranked) == 0:
		resp.AssistantText = emptyResultsText(c)
		resp.Kind = domain.KindSearchEmpty
	case result.Degraded:
		resp.AssistantText = resultsText(c, ranked, true, assumptions)
		resp.Kind = domain.KindSearchUnavailable
	default:
		resp.AssistantText = resultsText(c, ranked, false, assumptions)
	}

	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"state":      "ranked",
		"offers":     len(ranked),
		"degraded":   result.Degraded,
	}).Debug("Search ranked")
	return outcome{response: resp, tools: []string{toolFlightSearch}}
}

func (o *TurnOrchestrator) refine(ctx context.Context, session *domain.Session, ref domain.Refinement, now time.Time) outcome {
	log := logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"state":      "refined",
		"intent":     ref.Intent,
	})

	if ref.Intent == domain.RefinementDateShift {
		return o.shiftDates(ctx, session, ref, now)
	}

	result := domain.Refine(session.LastResults, session.LastLowestPrice, ref)
	if result.NoMatch {
		log.Info("Refinement matched nothing")
		if result.SuggestedThreshold > 0 {
			suggested := result.SuggestedThreshold
			session.SuggestedMaxPrice = &suggested
		}
		return outcome{
			response: &domain.TurnResponse{
				Type:          domain.ResponseTypeRefinement,
				AssistantText: noMatchText(result, session.LastLowestPrice),
				Offers:        []domain.Offer{},
				Kind:          domain.KindRefinementNoMatch,
			},
			tools: []string{toolRefinement},
		}
	}

	switch ref.Intent {
	case domain.RefinementCheaper:
		threshold := result.Threshold
		session.Criteria.MaxPrice = &threshold
	case domain.RefinementDirectOnly:
		session.Criteria.PreferDirect = true
	}
	session.SetResults(result.Offers)
	log.WithField("offers", len(result.Offers)).Debug("Refinement applied")

	return outcome{
		response: &domain.TurnResponse{
			Type:          domain.ResponseTypeRefinement,
			AssistantText: refinementText(result),
			Offers:        result.Offers,
		},
		tools: []string{toolRefinement},
	}
}

func (o *TurnOrchestrator) shiftDates(ctx context.Context, session *domain.Session, ref domain.Refinement, now time.Time) outcome {
	prev := session.Criteria
	if prev.DepartureDate == nil {
		return o.clarify(ctx, session, now)
	}

	shifted := prev
	departure := domain.AddDays(*prev.DepartureDate, ref.ShiftDays)
	shifted.DepartureDate = &departure
	if prev.ReturnDate != nil && !prev.ReturnDate.After(departure) {
		ret := domain.AddDays(*prev.ReturnDate, ref.ShiftDays)
		shifted.ReturnDate = &ret
	}
	if v := o.guardrail.ValidateCriteria(ctx, shifted, now); v != nil {
		return outcome{response: violationResponse(v), tools: []string{toolRefinement}}
	}

	session.Criteria = shifted
	searched := o.search(ctx, session, nil)
	resp := searched.response
	resp.Type = domain.ResponseTypeRefinement
	resp.AssistantText = dateShiftText(ref.ShiftDays, shifted, resp.Offers, resp.Degraded)
	return outcome{response: resp, tools: []string{toolRefinement, toolFlightSearch}}
}

func withDefaults(c domain.Criteria, now time.Time) (domain.Criteria, []string) {
	var assumptions []string
	today := domain.StartOfDay(now.UTC())
	if c.DepartureDate == nil {
		d := domain.AddDays(today, defaultDepartureLeadDays)
		c.DepartureDate = &d
		assumptions = append(assumptions, fmt.Sprintf("departing %s, two weeks from today", d.Format(domain.OnlyDate)))
	}
	if c.ReturnDate == nil {
		r := domain.AddDays(*c.DepartureDate, defaultTripLengthDays)
		c.ReturnDate = &r
		assumptions = append(assumptions, fmt.Sprintf("returning %s, one week later", r.Format(domain.OnlyDate)))
	}
	if c.Passengers == nil {
		p := 1
		c.Passengers = &p
		assumptions = append(assumptions, "1 passenger")
	}
	return c, assumptions
}

func rejection(kind domain.ErrorKind, message string) *domain.TurnResponse {
	return &domain.TurnResponse{
		Type:          domain.ResponseTypeRejection,
		AssistantText: message,
		Error:         &domain.TurnError{Code: kind, UserMessage: message},
		Kind:          kind,
	}
}

func violationResponse(v *Violation) *domain.TurnResponse {
	return rejection(v.Kind, v.Message)
}
