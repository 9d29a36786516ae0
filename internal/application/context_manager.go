package application

import (
	"fmt"
	"strings"
	"time"

	"flight-assistant/internal/domain"

	"github.com/sirupsen/logrus"
)

// ContextConfig holds history bounds for a session
type ContextConfig struct {
	MaxTurns      int
	ContextWindow int
	PruneRatio    float64
	KeepRecent    int
	TTL           time.Duration
}

// TokenBudget is the estimated token count above which history is pruned
func (c ContextConfig) TokenBudget() int {
	return int(float64(c.ContextWindow) * c.PruneRatio)
}

// ContextManager struct - Keeps session history bounded
type ContextManager struct {
	config   ContextConfig
	estimate func(string) int
}

// NewContextManager func - Creates a context manager. A nil estimator uses domain.EstimateTokens.
func NewContextManager(config ContextConfig, estimate func(string) int) *ContextManager {
	if config.MaxTurns <= 0 {
		config.MaxTurns = 40
	}
	if config.ContextWindow <= 0 {
		config.ContextWindow = 8000
	}
	if config.PruneRatio <= 0 || config.PruneRatio > 1 {
		config.PruneRatio = 0.8
	}
	if config.KeepRecent <= 0 {
		config.KeepRecent = 6
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if estimate == nil {
		estimate = domain.EstimateTokens
	}
	return &ContextManager{config: config, estimate: estimate}
}

// Append adds a turn and marks the session active at the turn's timestamp
func (m *ContextManager) Append(session *domain.Session, turn domain.Turn) {
	session.History = append(session.History, turn)
	if turn.Timestamp.After(session.LastActiveAt) {
		session.LastActiveAt = turn.Timestamp
	}
}

// EstimateTokens sums the estimated tokens of every turn in the session
func (m *ContextManager) EstimateTokens(session *domain.Session) int {
	total := 0
	for _, t := range session.History {
		total += m.estimate(t.Text)
	}
	return total
}

// ShouldPrune reports whether the history is over the turn or token bound
func (m *ContextManager) ShouldPrune(session *domain.Session) bool {
	return len(session.History) > m.config.MaxTurns || m.EstimateTokens(session) > m.config.TokenBudget()
}

// Prune replaces older history with one summary turn. The leading system turn and the most
// recent turns are kept verbatim. Criteria and results are untouched.
func (m *ContextManager) Prune(session *domain.Session, now time.Time) {
	var system *domain.Turn
	rest := make([]domain.Turn, 0, len(session.History))
	for i, t := range session.History {
		if i == 0 && t.Role == domain.TurnRoleSystem && !t.IsSummary() {
			turn := t
			system = &turn
			continue
		}
		if t.IsSummary() {
			continue
		}
		rest = append(rest, t)
	}

	keep := m.config.KeepRecent
	if keep > len(rest) {
		keep = len(rest)
	}
	dropped := len(rest) - keep
	recent := rest[dropped:]

	history := make([]domain.Turn, 0, keep+2)
	if system != nil {
		history = append(history, *system)
	}
	history = append(history, domain.Turn{
		Role:      domain.TurnRoleSystem,
		Text:      summarize(session),
		Timestamp: now,
		Metadata:  domain.TurnMetadata{Kind: domain.TurnKindSummary},
	})
	history = append(history, recent...)

	before := len(session.History)
	session.History = history
	logrus.WithFields(logrus.Fields{
		"session_id": session.ID,
		"before":     before,
		"after":      len(history),
		"tokens":     m.EstimateTokens(session),
	}).Info("Pruned conversation history")
}

// IsExpired reports whether the session's inactivity exceeds the TTL
func (m *ContextManager) IsExpired(session *domain.Session, now time.Time) bool {
	return session.IsExpired(now, m.config.TTL)
}

func summarize(session *domain.Session) string {
	var b strings.Builder
	b.WriteString("Travel details so far: ")
	b.WriteString(session.Criteria.Summary())
	b.WriteString(".")
	if n := len(session.LastResults); n > 0 {
		fmt.Fprintf(&b, " Last search returned %d option(s), lowest price $%.0f.", n, session.LastLowestPrice)
	}
	return b.String()
}
