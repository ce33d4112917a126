package model

type Seat struct {
	Id             int    `json:"id"`
	Number         string `json:"number"`
	SectionId      int    `json:"section_id"`
	SectionName    string `json:"section_name,omitempty"`
	IsAvailable    bool   `json:"is_available"`
	HasPowerOutlet bool   `json:"has_power_outlet"`
	NearWindow     bool   `json:"near_window"`
}

// SeatQuery selects the seats of a section for a date and hour window.
type SeatQuery struct {
	SectionId int
	Date      string
	StartTime string
	EndTime   string
}
