package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/testutil"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (f *fakePublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) published() []queue.BookingConfirmedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.BookingConfirmedEvent(nil), f.events...)
}

// env is a fully wired core on top of an in-memory database.
type env struct {
	db       *sql.DB
	fixture  testutil.Fixture
	sessions *SessionStore
	accounts *AccountService
	pricing  *PricingEngine
	gate     *ShowingGate
	seats    *SeatAvailability
	bookings *BookingOrchestrator
	events   *fakePublisher
}

func newEnv(t *testing.T, showingStart time.Time) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{db: db, fixture: testutil.SeedFixture(t, db, showingStart), events: &fakePublisher{}}
	timeout := 5 * time.Second
	seatRepo := repository.NewSeatRepo(db)
	e.sessions = NewSessionStore(repository.NewSessionRepo(db), 24*time.Hour, timeout)
	e.accounts = NewAccountService(repository.NewAccountRepo(db), 4, timeout)
	e.pricing = NewPricingEngine(repository.NewPriceRuleRepo(db), "Adult", timeout)
	e.gate = NewShowingGate(repository.NewShowingRepo(db), time.UTC)
	e.seats = NewSeatAvailability(db, seatRepo, e.gate, timeout)
	e.bookings = NewBookingOrchestrator(db, e.gate, seatRepo, repository.NewBookingRepo(db), e.pricing, e.events, timeout)
	return e
}

func (e *env) request(seatIdx ...int) BookingRequest {
	req := BookingRequest{
		ShowingID: e.fixture.ShowingID,
		Booker:    Booker{Email: "booker@example.com", FirstName: "Bea", LastName: "Booker"},
	}
	for i, idx := range seatIdx {
		req.SeatIDs = append(req.SeatIDs, e.fixture.SeatIDs[idx])
		req.Spectators = append(req.Spectators, Spectator{FirstName: "Spec", LastName: "Tator", Age: 20 + i})
	}
	return req
}
