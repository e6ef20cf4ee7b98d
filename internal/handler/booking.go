package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// BookingHandler serves seat maps, price previews, bookings and receipts.
type BookingHandler struct {
	Seats         *service.SeatAvailability
	Bookings      *service.BookingOrchestrator
	ReceiptSecret string
	ReceiptTTL    time.Duration
}

func NewBookingHandler(seats *service.SeatAvailability, bookings *service.BookingOrchestrator, receiptSecret string, receiptTTL time.Duration) *BookingHandler {
	return &BookingHandler{Seats: seats, Bookings: bookings, ReceiptSecret: receiptSecret, ReceiptTTL: receiptTTL}
}

// ----- DTOs -----

type seatResp struct {
	ID       uint64 `json:"id"`
	Row      uint32 `json:"row"`
	Column   uint32 `json:"column"`
	Type     string `json:"type"`
	Occupied bool   `json:"occupied"`
}

type availabilityReq struct {
	SeatIDs []uint64 `json:"seat_ids"`
}

type priceReq struct {
	Spectators []service.Spectator `json:"spectators"`
}

type bookingReq struct {
	Spectators []service.Spectator `json:"spectators"`
	SeatIDs    []uint64            `json:"seat_ids"`
	Booker     service.Booker      `json:"booker"`
}

type receiptPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type bookingResp struct {
	BookingID  uint64        `json:"booking_id"`
	ShowingID  uint64        `json:"showing_id"`
	SeatIDs    []uint64      `json:"seat_ids"`
	TotalPrice string        `json:"total_price"`
	Quote      service.Quote `json:"quote"`
	CreatedAt  time.Time     `json:"created_at"`
	Receipt    *receiptPart  `json:"receipt,omitempty"`
}

type spectatorResp struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Age       uint32   `json:"age"`
	PMR       bool     `json:"pmr"`
	Seat      seatResp `json:"seat"`
}

type bookingDetailResp struct {
	ID         uint64          `json:"id"`
	ShowingID  uint64          `json:"showing_id"`
	MovieName  string          `json:"movie_name"`
	ShowingAt  time.Time       `json:"showing_at"`
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	TotalPrice string          `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	Spectators []spectatorResp `json:"spectators"`
}

func toSeatResp(s model.Seat, occupied bool) seatResp {
	return seatResp{ID: s.ID, Row: s.Row, Column: s.Column, Type: s.Type, Occupied: occupied}
}

func toBookingDetailResp(d model.BookingDetail) bookingDetailResp {
	out := bookingDetailResp{
		ID: d.ID, ShowingID: d.ShowingID, MovieName: d.MovieName, ShowingAt: d.ShowingAt,
		Email: d.Email, FirstName: d.FirstName, LastName: d.LastName,
		TotalPrice: d.TotalPrice.StringFixed(2), CreatedAt: d.CreatedAt,
		Spectators: make([]spectatorResp, 0, len(d.Spectators)),
	}
	for _, sp := range d.Spectators {
		out.Spectators = append(out.Spectators, spectatorResp{
			FirstName: sp.FirstName, LastName: sp.LastName, Age: sp.Age, PMR: sp.PMR,
			Seat: toSeatResp(sp.Seat, true),
		})
	}
	return out
}

// SeatMap returns every seat of the showing's room with its occupancy.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showing id")
	}
	states, err := h.Seats.SeatsForShowing(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	seats := make([]seatResp, 0, len(states))
	for _, s := range states {
		seats = append(seats, toSeatResp(s.Seat, s.Occupied))
	}
	return c.JSON(http.StatusOK, echo.Map{"showing_id": id, "seats": seats})
}

// Availability reports whether all requested seats are free right now.
// The answer is advisory; only a booking reserves seats.
func (h *BookingHandler) Availability(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showing id")
	}
	var req availabilityReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	free, err := h.Seats.CheckAvailability(c.Request().Context(), req.SeatIDs, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"showing_id": id, "available": free})
}

// Price quotes the spectators against the showing's base price.
func (h *BookingHandler) Price(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showing id")
	}
	var req priceReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	q, err := h.Bookings.PreviewPrice(c.Request().Context(), id, req.Spectators)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Book creates a booking.  A session is optional: authenticated bookings
// are attached to the account and default the booker email to it.
func (h *BookingHandler) Book(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid showing id")
	}
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in := service.BookingRequest{
		ShowingID:  id,
		Spectators: req.Spectators,
		SeatIDs:    req.SeatIDs,
		Booker:     req.Booker,
	}
	if accountID, ok := middleware.AccountID(c); ok {
		in.AccountID = &accountID
		if in.Booker.Email == "" {
			if s := middleware.Session(c); s != nil {
				in.Booker.Email = s.Email
			}
		}
	}

	ctx := c.Request().Context()
	res, err := h.Bookings.CreateBooking(ctx, in)
	if err != nil {
		return writeError(c, err)
	}

	out := bookingResp{
		BookingID:  res.BookingID,
		ShowingID:  res.ShowingID,
		SeatIDs:    res.SeatIDs,
		TotalPrice: res.TotalPrice.StringFixed(2),
		Quote:      res.Quote,
		CreatedAt:  res.CreatedAt,
	}
	token, exp, err := utils.NewReceipt(h.ReceiptSecret, utils.ReceiptClaims{
		BookingID: res.BookingID,
		ShowingID: res.ShowingID,
		SeatIDs:   res.SeatIDs,
		Total:     res.TotalPrice.StringFixed(2),
	}, h.ReceiptTTL)
	if err != nil {
		logger.FromContext(ctx).Warn("receipt not issued", "booking_id", res.BookingID, "err", err)
	} else {
		out.Receipt = &receiptPart{Token: token, Expires: exp}
	}
	return c.JSON(http.StatusCreated, out)
}

// ListBookings returns the caller's bookings, newest first.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	accountID, _ := middleware.AccountID(c)
	list, err := h.Bookings.ListForAccount(c.Request().Context(), accountID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingDetailResp, 0, len(list))
	for _, d := range list {
		out = append(out, toBookingDetailResp(d))
	}
	return c.JSON(http.StatusOK, out)
}

// GetBooking returns one of the caller's bookings.  Bookings of other
// accounts are reported as not found.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	accountID, _ := middleware.AccountID(c)
	d, err := h.Bookings.GetForAccount(c.Request().Context(), id, accountID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingDetailResp(*d))
}

// Receipt verifies a signed booking receipt and echoes its claims.
func (h *BookingHandler) Receipt(c echo.Context) error {
	claims, err := utils.ParseReceipt(h.ReceiptSecret, c.Param("token"))
	if err != nil {
		return badRequest(c, "invalid or expired receipt")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booking_id":  claims.BookingID,
		"showing_id":  claims.ShowingID,
		"seat_ids":    claims.SeatIDs,
		"total_price": claims.Total,
		"expires":     claims.ExpiresAt.Time,
	})
}
