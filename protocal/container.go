package protocal

import (
	"context"
	"fmt"
	"time"

	"flight-assistant/configs"
	"flight-assistant/internal/adapters/output/amadeus"
	"flight-assistant/internal/adapters/output/gemini"
	lineAdapter "flight-assistant/internal/adapters/output/line"
	"flight-assistant/internal/adapters/output/lmstudio"
	"flight-assistant/internal/adapters/output/memory"
	"flight-assistant/internal/adapters/output/postgres"
	redisAdapter "flight-assistant/internal/adapters/output/redis"
	"flight-assistant/internal/adapters/output/resilient"
	sentryAdapter "flight-assistant/internal/adapters/output/sentry"
	"flight-assistant/internal/application"
	"flight-assistant/internal/ports/output"
	"flight-assistant/pkg/database_driver/gorm"
	"flight-assistant/pkg/validator"

	"github.com/sirupsen/logrus"
)

// sessionBackend is a session store that also keeps the abuse counters
type sessionBackend interface {
	output.SessionStore
	output.RateCounter
}

// Container struct - The wired application
type Container struct {
	Turns  *application.TurnOrchestrator
	Health *application.HealthService
	// LineWebhook is nil when the LINE channel is disabled
	LineWebhook *application.LineWebhookService

	closers []func()
}

// NewContainer wires every layer from config. Close releases what it opened.
func NewContainer(ctx context.Context, cfg *configs.Config) (*Container, error) {
	c := &Container{}

	reporter, err := sentryAdapter.NewReporter(cfg.Sentry, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	c.closers = append(c.closers, func() { reporter.Flush(2 * time.Second) })

	store, err := c.openSessionBackend(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	var airports output.AirportDirectory = memory.NewStaticAirportDirectory()
	var airportsPinger application.Pinger
	if cfg.Postgres.Enabled {
		dbConGorm, err := gorm.ConnectToPostgreSQL(
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.Username,
			cfg.Postgres.Password,
			cfg.Postgres.DbName,
			cfg.Postgres.SSLMode,
		)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, func() { gorm.DisconnectPostgres(dbConGorm.Postgres) })
		repo := postgres.NewAirportRepository(dbConGorm.Postgres)
		airports = repo
		airportsPinger = repo
	}

	rawExtractor, err := newExtractor(ctx, cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	extractor := resilient.NewExtractor(rawExtractor, resilient.ExtractionPolicy(cfg.Extraction), resilient.NewBreaker("extraction", cfg.Circuit))
	searcher := resilient.NewSearcher(amadeus.NewFlightSearchAdapter(ctx, cfg.FlightSearch), resilient.SearchPolicy(cfg.FlightSearch), resilient.NewBreaker("flight_search", cfg.Circuit))

	sessionTTL := seconds(cfg.Session.TTL)
	c.Turns = application.NewTurnOrchestrator(application.TurnDependencies{
		Store:     store,
		Counter:   store,
		Extractor: extractor,
		Searcher:  searcher,
		Guardrail: application.NewGuardrail(validator.New(), airports, cfg.Conversation.MaxMessageLength),
		Context: application.NewContextManager(application.ContextConfig{
			MaxTurns:      cfg.Conversation.MaxTurns,
			ContextWindow: cfg.Conversation.ContextWindow,
			PruneRatio:    cfg.Conversation.PruneRatio,
			KeepRecent:    cfg.Conversation.KeepRecent,
			TTL:           sessionTTL,
		}, nil),
		Reporter: reporter,
	}, application.TurnConfig{
		ConfidenceThreshold:    cfg.Conversation.ConfidenceThreshold,
		FailClosedBelow:        cfg.Conversation.FailClosedBelow,
		MaxClarificationRounds: cfg.Conversation.MaxClarificationRounds,
		SessionTTL:             sessionTTL,
		MaxMessages:            cfg.Session.MaxMessages,
		SessionsPerOrigin:      cfg.RateLimit.SessionsPerOrigin,
		OriginWindow:           seconds(cfg.RateLimit.OriginWindow),
	})
	c.Health = application.NewHealthService(store, airportsPinger, extractor.Breaker(), searcher.Breaker())

	if cfg.Line.Enabled {
		lineClient, err := lineAdapter.NewLineClientAdapter(cfg.Line.ChannelToken)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("create LINE client: %w", err)
		}
		c.LineWebhook = application.NewLineWebhookService(lineClient, c.Turns)
	}

	logrus.WithFields(logrus.Fields{
		"session_store": cfg.Session.Store,
		"extraction":    cfg.Extraction.Provider,
		"postgres":      cfg.Postgres.Enabled,
		"line":          cfg.Line.Enabled,
	}).Info("Application wired")
	return c, nil
}

// Close releases connections in reverse order of acquisition
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) openSessionBackend(ctx context.Context, cfg *configs.Config) (sessionBackend, error) {
	switch cfg.Session.Store {
	case "redis":
		client, err := redisAdapter.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() {
			if err := client.Close(); err != nil {
				logrus.Errorf("Error closing redis client: %v", err)
			}
		})
		return redisAdapter.NewRedisSessionStore(client), nil
	case "memory", "":
		logrus.Warn("Using in-memory session store - sessions are lost on restart")
		return memory.NewMemorySessionStore(), nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

func newExtractor(ctx context.Context, cfg *configs.Config) (output.Extractor, error) {
	switch cfg.Extraction.Provider {
	case "gemini":
		return gemini.NewGeminiExtractorAdapter(ctx, cfg.Gemini)
	case "lmstudio", "":
		return lmstudio.NewLMStudioClientAdapter(cfg.LMStudio)
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", cfg.Extraction.Provider)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
