package model

type Analytics struct {
	TotalSeats    int     `json:"total_seats"`
	OccupiedSeats int     `json:"occupied_seats"`
	OccupancyRate float64 `json:"occupancy_rate"`
	BookingsToday int     `json:"bookings_today"`
	NoShowRate    float64 `json:"no_show_rate"`
}

type CheckIn struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	SeatNumber  string `json:"seat_number"`
	SectionName string `json:"section_name"`
	BookingId   int    `json:"booking_id"`
}
