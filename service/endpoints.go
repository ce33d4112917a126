package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"libseat-cli/model"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type sectionPayload struct {
	Id          *int    `json:"id"`
	Name        *string `json:"name"`
	Description string  `json:"description"`
}

// sectionRef accepts both a bare section id and a nested {id, name} object.
type sectionRef struct {
	Id   int
	Name string
}

func (s *sectionRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '{' {
		var nested struct {
			Id   int    `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &nested); err != nil {
			return err
		}
		s.Id, s.Name = nested.Id, nested.Name
		return nil
	}
	return json.Unmarshal(data, &s.Id)
}

type seatPayload struct {
	Id             *int        `json:"id"`
	Number         *string     `json:"number"`
	Section        *sectionRef `json:"section"`
	SectionId      *int        `json:"section_id"`
	IsAvailable    *bool       `json:"is_available"`
	HasPowerOutlet bool        `json:"has_power_outlet"`
	NearWindow     bool        `json:"near_window"`
}

type bookingPayload struct {
	Id   *int `json:"id"`
	Seat *struct {
		Number  string      `json:"number"`
		Section *sectionRef `json:"section"`
	} `json:"seat"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Status      string  `json:"status"`
	QRCodeToken string  `json:"qr_code_token"`
}

type checkInPayload struct {
	User *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"user"`
	Seat *struct {
		Number  string      `json:"number"`
		Section *sectionRef `json:"section"`
	} `json:"seat"`
	Booking *struct {
		Id int `json:"id"`
	} `json:"booking"`
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username string, password string) (string, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return "", errors.New("username and password are required")
	}
	in := map[string]string{"username": username, "password": password}
	var out struct {
		Access *string `json:"access"`
	}
	if err := c.postJSON(ctx, c.baseURL+"/api/auth/jwt/create/", in, &out); err != nil {
		return "", err
	}
	if out.Access == nil || *out.Access == "" {
		return "", fmt.Errorf("%w: login response has no access token", ErrMalformedResponse)
	}
	return *out.Access, nil
}

// ListSections returns the library sections.
func (c *Client) ListSections(ctx context.Context) ([]model.Section, error) {
	var payload []sectionPayload
	if err := c.getJSON(ctx, c.baseURL+"/api/sections/", &payload); err != nil {
		return nil, err
	}
	sections := make([]model.Section, 0, len(payload))
	for i, p := range payload {
		if p.Id == nil || p.Name == nil {
			return nil, fmt.Errorf("%w: section %d is missing id or name", ErrMalformedResponse, i)
		}
		sections = append(sections, model.Section{Id: *p.Id, Name: *p.Name, Description: p.Description})
	}
	return sections, nil
}

// ListSeats returns the seats of a section with availability for the query window.
func (c *Client) ListSeats(ctx context.Context, query model.SeatQuery) ([]model.Seat, error) {
	if query.SectionId == 0 {
		return nil, errors.New("section id is required")
	}
	params := url.Values{}
	params.Set("section_id", strconv.Itoa(query.SectionId))
	if query.Date != "" {
		params.Set("date", query.Date)
	}
	if query.StartTime != "" {
		params.Set("start", query.StartTime)
	}
	if query.EndTime != "" {
		params.Set("end", query.EndTime)
	}

	var payload []seatPayload
	if err := c.getJSON(ctx, c.baseURL+"/api/seats/?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	seats := make([]model.Seat, 0, len(payload))
	for i, p := range payload {
		seat, err := p.toSeat(query.SectionId)
		if err != nil {
			return nil, fmt.Errorf("seat %d: %w", i, err)
		}
		seats = append(seats, seat)
	}
	return seats, nil
}

func (p seatPayload) toSeat(fallbackSection int) (model.Seat, error) {
	if p.Id == nil {
		return model.Seat{}, fmt.Errorf("%w: missing id", ErrMalformedResponse)
	}
	if p.Number == nil || strings.TrimSpace(*p.Number) == "" {
		return model.Seat{}, fmt.Errorf("%w: missing number", ErrMalformedResponse)
	}
	if p.IsAvailable == nil {
		return model.Seat{}, fmt.Errorf("%w: missing is_available", ErrMalformedResponse)
	}
	seat := model.Seat{
		Id:             *p.Id,
		Number:         *p.Number,
		SectionId:      fallbackSection,
		IsAvailable:    *p.IsAvailable,
		HasPowerOutlet: p.HasPowerOutlet,
		NearWindow:     p.NearWindow,
	}
	switch {
	case p.Section != nil && p.Section.Id != 0:
		seat.SectionId = p.Section.Id
		seat.SectionName = p.Section.Name
	case p.SectionId != nil:
		seat.SectionId = *p.SectionId
	}
	return seat, nil
}

// CreateBooking reserves a seat and returns the reservation id. A seat that
// is already taken for an overlapping window yields an APIError for which
// IsConflict is true.
func (c *Client) CreateBooking(ctx context.Context, req model.BookingRequest) (int, error) {
	if req.SeatId == 0 || req.StartTime == "" || req.EndTime == "" {
		return 0, errors.New("seat id, start time and end time are required")
	}
	var out struct {
		Id *int `json:"id"`
	}
	if err := c.postJSON(ctx, c.baseURL+"/api/bookings/", req, &out); err != nil {
		return 0, err
	}
	if out.Id == nil {
		return 0, fmt.Errorf("%w: booking response has no id", ErrMalformedResponse)
	}
	return *out.Id, nil
}

// ListBookings returns the bookings of the signed-in user.
func (c *Client) ListBookings(ctx context.Context) ([]model.Booking, error) {
	var payload []bookingPayload
	if err := c.getJSON(ctx, c.baseURL+"/api/bookings/", &payload); err != nil {
		return nil, err
	}
	bookings := make([]model.Booking, 0, len(payload))
	for i, p := range payload {
		if p.Id == nil || p.StartTime == nil || p.EndTime == nil {
			return nil, fmt.Errorf("%w: booking %d is missing id or times", ErrMalformedResponse, i)
		}
		start, err := parseTime(*p.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: booking %d start: %v", ErrMalformedResponse, i, err)
		}
		end, err := parseTime(*p.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: booking %d end: %v", ErrMalformedResponse, i, err)
		}
		booking := model.Booking{
			Id:          *p.Id,
			StartTime:   start,
			EndTime:     end,
			Status:      p.Status,
			QRCodeToken: p.QRCodeToken,
		}
		if p.Seat != nil {
			booking.SeatNumber = p.Seat.Number
			if p.Seat.Section != nil {
				booking.SectionName = p.Seat.Section.Name
			}
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func (c *Client) CancelBooking(ctx context.Context, bookingID int) error {
	if bookingID <= 0 {
		return errors.New("booking id is required")
	}
	endpoint := fmt.Sprintf("%s/api/bookings/%d/cancel/", c.baseURL, bookingID)
	return c.postJSON(ctx, endpoint, nil, nil)
}

// GetAnalytics returns occupancy figures. Admin only.
func (c *Client) GetAnalytics(ctx context.Context) (model.Analytics, error) {
	var out model.Analytics
	if err := c.getJSON(ctx, c.baseURL+"/api/admin/analytics/", &out); err != nil {
		return model.Analytics{}, err
	}
	return out, nil
}

// CheckIn marks the booking behind a QR token as checked in. Admin only.
func (c *Client) CheckIn(ctx context.Context, qrToken string) (model.CheckIn, error) {
	qrToken = strings.TrimSpace(qrToken)
	if qrToken == "" {
		return model.CheckIn{}, errors.New("qr code token is required")
	}
	var payload checkInPayload
	in := map[string]string{"qr_code_token": qrToken}
	if err := c.postJSON(ctx, c.baseURL+"/api/admin/check-in/", in, &payload); err != nil {
		return model.CheckIn{}, err
	}
	if payload.User == nil || payload.Seat == nil {
		return model.CheckIn{}, fmt.Errorf("%w: check-in response is missing user or seat", ErrMalformedResponse)
	}
	out := model.CheckIn{
		FirstName:  payload.User.FirstName,
		LastName:   payload.User.LastName,
		SeatNumber: payload.Seat.Number,
	}
	if payload.Seat.Section != nil {
		out.SectionName = payload.Seat.Section.Name
	}
	if payload.Booking != nil {
		out.BookingId = payload.Booking.Id
	}
	return out, nil
}

func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}
