package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flight-assistant/internal/domain"
)

// Mock implementations for testing

// MockLineClient implements output.LineClient for testing
type MockLineClient struct {
	ReplyMessageFunc func(request domain.LineReplyMessageRequest) (*domain.LineMessageResponse, error)
	PushMessageFunc  func(request domain.LinePushMessageRequest) (*domain.LineMessageResponse, error)

	// Captured values for assertions
	LastReplyRequest *domain.LineReplyMessageRequest
	LastPushRequest  *domain.LinePushMessageRequest

	// Track all push requests for multi-message testing
	PushRequests []domain.LinePushMessageRequest
}

func (m *MockLineClient) ReplyMessage(request domain.LineReplyMessageRequest) (*domain.LineMessageResponse, error) {
	m.LastReplyRequest = &request
	if m.ReplyMessageFunc != nil {
		return m.ReplyMessageFunc(request)
	}
	return &domain.LineMessageResponse{Status: "ok"}, nil
}

func (m *MockLineClient) PushMessage(request domain.LinePushMessageRequest) (*domain.LineMessageResponse, error) {
	m.LastPushRequest = &request
	m.PushRequests = append(m.PushRequests, request)
	if m.PushMessageFunc != nil {
		return m.PushMessageFunc(request)
	}
	return &domain.LineMessageResponse{Status: "ok"}, nil
}

// MockAirportDirectory implements output.AirportDirectory for testing
type MockAirportDirectory struct {
	KnownAirportCodesFunc func(ctx context.Context) ([]string, error)
	Calls                 int
}

func (m *MockAirportDirectory) KnownAirportCodes(ctx context.Context) ([]string, error) {
	m.Calls++
	if m.KnownAirportCodesFunc != nil {
		return m.KnownAirportCodesFunc(ctx)
	}
	return domain.DefaultAirportCodes(), nil
}

// MockSessionStore implements output.SessionStore for testing with version checks
type MockSessionStore struct {
	GetFunc func(ctx context.Context, sessionID string) (*domain.Session, error)
	PutFunc func(ctx context.Context, session *domain.Session, ttl time.Duration) error
	PingErr error

	mu       sync.Mutex
	sessions map[string]*domain.Session
	PutCalls int
	Deleted  []string
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]*domain.Session)}
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MockSessionStore) Put(ctx context.Context, session *domain.Session, ttl time.Duration) error {
	m.mu.Lock()
	m.PutCalls++
	m.mu.Unlock()
	if m.PutFunc != nil {
		return m.PutFunc(ctx, session, ttl)
	}
	return m.put(session)
}

func (m *MockSessionStore) put(session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stored int64
	if s, ok := m.sessions[session.ID]; ok {
		stored = s.Version
	}
	if stored != session.Version {
		return fmt.Errorf("%w: %s", domain.ErrVersionConflict, session.ID)
	}
	session.Version++
	m.sessions[session.ID] = session.Clone()
	return nil
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	m.Deleted = append(m.Deleted, sessionID)
	return nil
}

func (m *MockSessionStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Stored returns a copy of the committed session
func (m *MockSessionStore) Stored(sessionID string) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	return s.Clone()
}

// MockRateCounter implements output.RateCounter for testing
type MockRateCounter struct {
	IncrementFunc func(ctx context.Context, key string, window time.Duration) (int64, error)

	mu     sync.Mutex
	counts map[string]int64
}

func (m *MockRateCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, key, window)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return m.counts[key], nil
}

// MockExtractor implements output.GuardedExtractor for testing
type MockExtractor struct {
	ExtractFieldsFunc func(ctx context.Context, request domain.ExtractionRequest) *domain.Extraction

	mu       sync.Mutex
	Requests []domain.ExtractionRequest
}

func (m *MockExtractor) ExtractFields(ctx context.Context, request domain.ExtractionRequest) *domain.Extraction {
	m.mu.Lock()
	m.Requests = append(m.Requests, request)
	m.mu.Unlock()
	if m.ExtractFieldsFunc != nil {
		return m.ExtractFieldsFunc(ctx, request)
	}
	return domain.FailedExtraction()
}

func (m *MockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockSearcher implements output.GuardedSearcher for testing
type MockSearcher struct {
	SearchOffersFunc func(ctx context.Context, criteria domain.Criteria) domain.SearchResult

	mu       sync.Mutex
	Criteria []domain.Criteria
}

func (m *MockSearcher) SearchOffers(ctx context.Context, criteria domain.Criteria) domain.SearchResult {
	m.mu.Lock()
	m.Criteria = append(m.Criteria, criteria)
	m.mu.Unlock()
	if m.SearchOffersFunc != nil {
		return m.SearchOffersFunc(ctx, criteria)
	}
	return domain.SearchResult{Offers: testOffers()}
}

func (m *MockSearcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Criteria)
}

// MockErrorReporter implements output.ErrorReporter for testing
type MockErrorReporter struct {
	mu       sync.Mutex
	Captured []error
	Tags     []map[string]string
}

func (m *MockErrorReporter) CaptureException(err error, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Captured = append(m.Captured, err)
	m.Tags = append(m.Tags, tags)
}

// MockTurnService implements input.TurnService for testing
type MockTurnService struct {
	HandleTurnFunc   func(ctx context.Context, request domain.TurnRequest) (*domain.TurnResponse, error)
	ResetSessionFunc func(ctx context.Context, sessionID string) error

	Requests []domain.TurnRequest
	Resets   []string
}

func (m *MockTurnService) HandleTurn(ctx context.Context, request domain.TurnRequest) (*domain.TurnResponse, error) {
	m.Requests = append(m.Requests, request)
	if m.HandleTurnFunc != nil {
		return m.HandleTurnFunc(ctx, request)
	}
	id := request.SessionID
	if id == "" {
		id = "session-1"
	}
	return &domain.TurnResponse{
		SessionID:     id,
		Type:          domain.ResponseTypeResults,
		AssistantText: "Here are the top flights",
	}, nil
}

func (m *MockTurnService) ResetSession(ctx context.Context, sessionID string) error {
	m.Resets = append(m.Resets, sessionID)
	if m.ResetSessionFunc != nil {
		return m.ResetSessionFunc(ctx, sessionID)
	}
	return nil
}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testOffer(id, airline string, price float64, minutes, stops int) domain.Offer {
	return domain.Offer{
		ID:               id,
		Airline:          airline,
		Price:            price,
		Currency:         "USD",
		DurationMinutes:  minutes,
		Stops:            stops,
		BookingReference: "https://example.com/book/" + id,
	}
}

// testOffers is a result set priced 400 to 900
func testOffers() []domain.Offer {
	return []domain.Offer{
		testOffer("o600", "BA", 600, 600, 0),
		testOffer("o400", "AF", 400, 780, 1),
		testOffer("o900", "UA", 900, 660, 0),
		testOffer("o420", "DL", 420, 900, 2),
		testOffer("o610", "LH", 610, 720, 1),
	}
}
