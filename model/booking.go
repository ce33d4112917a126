package model

import (
	"strings"
	"time"
)

const (
	BookingConfirmed = "confirmed"
	BookingCheckedIn = "checked-in"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// BookingRequest is the payload of a reservation. Times are local
// date-times without zone, e.g. 2026-10-18T09:00:00.
type BookingRequest struct {
	SeatId    int    `json:"seat_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Booking struct {
	Id          int       `json:"id"`
	SeatNumber  string    `json:"seat_number"`
	SectionName string    `json:"section_name"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	QRCodeToken string    `json:"qr_code_token"`
}

func (b Booking) IsUpcoming(now time.Time) bool {
	return b.EndTime.After(now)
}

func (b Booking) IsConfirmed() bool {
	return strings.EqualFold(b.Status, BookingConfirmed)
}
