package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/metrics"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Booker is the contact the booking is made under.
type Booker struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// BookingRequest asks for Spectators[i] to sit in SeatIDs[i].  AccountID
// is nil for anonymous bookings.
type BookingRequest struct {
	ShowingID  uint64
	AccountID  *uint64
	Spectators []Spectator
	SeatIDs    []uint64
	Booker     Booker
}

// BookingResult describes a committed booking.
type BookingResult struct {
	BookingID  uint64          `json:"booking_id"`
	ShowingID  uint64          `json:"showing_id"`
	SeatIDs    []uint64        `json:"seat_ids"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Quote      Quote           `json:"quote"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MarshalJSON renders the total with two decimals.
func (r BookingResult) MarshalJSON() ([]byte, error) {
	type plain BookingResult
	return json.Marshal(struct {
		plain
		TotalPrice string `json:"total_price"`
	}{plain(r), r.TotalPrice.StringFixed(2)})
}

// EventPublisher receives booking events after commit.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// BookingOrchestrator turns a seat selection into a persisted booking.
// The availability re-check and all inserts share one transaction, and
// the (showing_id, seat_id) unique key settles races the re-check cannot
// see.
type BookingOrchestrator struct {
	db       *sql.DB
	gate     *ShowingGate
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
	pricing  *PricingEngine
	events   EventPublisher
	timeout  time.Duration
	Now      Clock
}

// NewBookingOrchestrator wires the orchestrator.  events may be nil.
func NewBookingOrchestrator(db *sql.DB, gate *ShowingGate, seats *repository.SeatRepo, bookings *repository.BookingRepo,
	pricing *PricingEngine, events EventPublisher, timeout time.Duration) *BookingOrchestrator {
	return &BookingOrchestrator{
		db: db, gate: gate, seats: seats, bookings: bookings,
		pricing: pricing, events: events, timeout: timeout, Now: SystemClock,
	}
}

// CreateBooking validates req, then in one transaction loads the showing,
// re-checks the requested seats, prices the spectators and writes the
// booking, one customer per spectator and one reservation per seat.
func (b *BookingOrchestrator) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	started := time.Now()
	res, err := b.createBooking(ctx, req)
	metrics.ObserveBooking(bookingOutcome(err), len(req.SeatIDs), time.Since(started))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *BookingOrchestrator) createBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	booker, err := validateBookingRequest(&req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := bounded(ctx, b.timeout)
	defer cancel()

	// The showing is checked first so an unknown or finished showing is
	// reported as such whatever the state of the rule store.  Rules then
	// come from the pool (or cache) before the transaction opens so the
	// transaction holds a single connection throughout.  The showing is
	// loaded again inside the transaction.
	if _, err := b.gate.Load(ctx, b.db, req.ShowingID); err != nil {
		return nil, err
	}
	rules, err := b.pricing.loadRules(ctx)
	if err != nil {
		return nil, err
	}
	ages := make([]int, len(req.Spectators))
	for i, sp := range req.Spectators {
		ages[i] = sp.Age
	}

	var (
		result   *BookingResult
		show     *model.ShowingDetail
		pmrSeats int
	)
	now := b.Now()
	err = database.WithTx(ctx, b.db, func(tx *sql.Tx) error {
		var err error
		show, err = b.gate.Load(ctx, tx, req.ShowingID)
		if err != nil {
			return err
		}

		seats, err := b.seats.InRoomWith(ctx, tx, show.RoomID, req.SeatIDs)
		if err != nil {
			return storageFailure(ctx, "booking.seats", err)
		}
		for _, id := range req.SeatIDs {
			if _, ok := seats[id]; !ok {
				return invalid("seat %d does not belong to this showing", id)
			}
		}

		taken, err := b.seats.ReservedWith(ctx, tx, req.ShowingID, req.SeatIDs)
		if err != nil {
			return storageFailure(ctx, "booking.recheck", err)
		}
		if len(taken) > 0 {
			return seatsUnavailable(taken)
		}

		quote, err := QuoteWithRules(rules, show.PriceCents, ages, b.pricing.fallback)
		if err != nil {
			return err
		}

		booking := &model.Booking{
			AccountID:  req.AccountID,
			ShowingID:  req.ShowingID,
			Email:      booker.Email,
			FirstName:  booker.FirstName,
			LastName:   booker.LastName,
			TotalPrice: quote.Total,
			CreatedAt:  now,
		}
		if err := b.bookings.CreateTx(ctx, tx, booking); err != nil {
			return storageFailure(ctx, "booking.insert", err)
		}

		pmrSeats = 0
		for _, i := range reservationOrder(req.SeatIDs) {
			sp := req.Spectators[i]
			seat := seats[req.SeatIDs[i]]
			customer := &model.Customer{
				BookingID: booking.ID,
				FirstName: strings.TrimSpace(sp.FirstName),
				LastName:  strings.TrimSpace(sp.LastName),
				Age:       uint32(sp.Age),
				PMR:       seat.IsPMR(),
			}
			if customer.PMR {
				pmrSeats++
			}
			if err := b.bookings.CreateCustomerTx(ctx, tx, customer); err != nil {
				return storageFailure(ctx, "booking.customer", err)
			}
			err := b.seats.ReserveTx(ctx, tx, &model.SeatReservation{
				ShowingID:  req.ShowingID,
				SeatID:     seat.ID,
				CustomerID: customer.ID,
				BookingID:  booking.ID,
				CreatedAt:  now,
			})
			if errors.Is(err, repository.ErrSeatTaken) {
				return seatsUnavailable([]uint64{seat.ID})
			}
			if errors.Is(err, repository.ErrSeatContended) {
				return &seatContention{seatID: seat.ID}
			}
			if err != nil {
				return storageFailure(ctx, "booking.reserve", err)
			}
		}

		result = &BookingResult{
			BookingID:  booking.ID,
			ShowingID:  req.ShowingID,
			SeatIDs:    append([]uint64(nil), req.SeatIDs...),
			TotalPrice: quote.Total,
			Quote:      quote,
			CreatedAt:  now,
		}
		return nil
	})
	var lost *seatContention
	if errors.As(err, &lost) {
		return nil, b.contended(ctx, req, lost.seatID)
	}
	if err != nil {
		return nil, storageFailure(ctx, "booking.commit", err)
	}

	logger.FromContext(ctx).Info("booking confirmed",
		"booking_id", result.BookingID, "showing_id", result.ShowingID,
		"seats", len(result.SeatIDs), "total", result.TotalPrice.StringFixed(2))
	b.publish(ctx, req, booker, show, result, pmrSeats)
	return result, nil
}

// seatContention marks a reservation insert that lost a lock conflict.
// It never leaves the package: contended turns it into a seat conflict
// once the transaction has rolled back.
type seatContention struct{ seatID uint64 }

func (e *seatContention) Error() string { return "seat reservation contended" }

// contended names the seats a concurrent booking took.  The winner may
// not have committed yet, in which case the contended seat is reported.
func (b *BookingOrchestrator) contended(ctx context.Context, req BookingRequest, seatID uint64) error {
	taken, err := b.seats.ReservedWith(ctx, b.db, req.ShowingID, req.SeatIDs)
	if err != nil || len(taken) == 0 {
		return seatsUnavailable([]uint64{seatID})
	}
	return seatsUnavailable(taken)
}

// reservationOrder returns the request indexes sorted by seat id.
// Reserving in one global order keeps two bookings over the same seats
// from locking them in opposite orders.
func reservationOrder(seatIDs []uint64) []int {
	order := make([]int, len(seatIDs))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, c int) bool { return seatIDs[order[a]] < seatIDs[order[c]] })
	return order
}

// publish emits the confirmation event.  Failures are logged and never
// undo the committed booking.
func (b *BookingOrchestrator) publish(ctx context.Context, req BookingRequest, booker Booker, show *model.ShowingDetail, res *BookingResult, pmrSeats int) {
	if b.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	ev := queue.BookingConfirmedEvent{
		BookingID:   res.BookingID,
		AccountID:   req.AccountID,
		ShowingID:   res.ShowingID,
		MovieName:   show.MovieName,
		StartsAt:    show.StartsAt(b.gate.Location()).Format(time.RFC3339),
		Email:       booker.Email,
		SeatIDs:     res.SeatIDs,
		PMRSeats:    pmrSeats,
		TotalPrice:  res.TotalPrice.StringFixed(2),
		ConfirmedAt: res.CreatedAt.Format(time.RFC3339),
	}
	if err := b.events.PublishBookingConfirmed(pctx, ev); err != nil {
		logger.FromContext(ctx).Warn("booking event not published", "booking_id", res.BookingID, "err", err)
	}
}

// PreviewPrice quotes spectators for a bookable showing without writing
// anything.
func (b *BookingOrchestrator) PreviewPrice(ctx context.Context, showingID uint64, spectators []Spectator) (Quote, error) {
	ctx, cancel := bounded(ctx, b.timeout)
	defer cancel()
	show, err := b.gate.Load(ctx, b.db, showingID)
	if err != nil {
		return Quote{}, err
	}
	return b.pricing.Price(ctx, show.PriceCents, spectators)
}

// ListForAccount returns the account's bookings, newest first.
func (b *BookingOrchestrator) ListForAccount(ctx context.Context, accountID uint64) ([]model.BookingDetail, error) {
	ctx, cancel := bounded(ctx, b.timeout)
	defer cancel()
	list, err := b.bookings.ListForAccount(ctx, accountID, b.gate.Location())
	if err != nil {
		return nil, storageFailure(ctx, "booking.list", err)
	}
	return list, nil
}

// GetForAccount returns one booking owned by accountID.
func (b *BookingOrchestrator) GetForAccount(ctx context.Context, bookingID, accountID uint64) (*model.BookingDetail, error) {
	ctx, cancel := bounded(ctx, b.timeout)
	defer cancel()
	d, err := b.bookings.GetForAccount(ctx, bookingID, accountID, b.gate.Location())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, storageFailure(ctx, "booking.get", err)
	}
	return d, nil
}

func validateBookingRequest(req *BookingRequest) (Booker, error) {
	if len(req.SeatIDs) == 0 || len(req.Spectators) == 0 {
		return Booker{}, invalid("seats and spectators are required")
	}
	if len(req.SeatIDs) != len(req.Spectators) {
		return Booker{}, invalid("got %d seats for %d spectators", len(req.SeatIDs), len(req.Spectators))
	}
	if _, err := uniqueSeatIDs(req.SeatIDs, false); err != nil {
		return Booker{}, err
	}
	booker := Booker{
		Email:     strings.ToLower(strings.TrimSpace(req.Booker.Email)),
		FirstName: strings.TrimSpace(req.Booker.FirstName),
		LastName:  strings.TrimSpace(req.Booker.LastName),
	}
	if booker.Email == "" || booker.FirstName == "" || booker.LastName == "" {
		return Booker{}, invalid("booker email, first name and last name are required")
	}
	if _, err := mail.ParseAddress(booker.Email); err != nil {
		return Booker{}, invalid("booker email is not valid")
	}
	for i, sp := range req.Spectators {
		if strings.TrimSpace(sp.FirstName) == "" || strings.TrimSpace(sp.LastName) == "" {
			return Booker{}, invalid("spectator %d needs a first and last name", i+1)
		}
		if err := checkAge(sp.Age); err != nil {
			return Booker{}, err
		}
	}
	return booker, nil
}

func bookingOutcome(err error) string {
	switch KindOf(err) {
	case 0:
		if err == nil {
			return metrics.OutcomeConfirmed
		}
		return metrics.OutcomeError
	case KindSeatsUnavailable:
		return metrics.OutcomeSeatsUnavailable
	case KindShowingExpired, KindShowingNotFound:
		return metrics.OutcomeShowingGone
	case KindValidation:
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
