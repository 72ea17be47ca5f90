package models

// DashboardStats are the headline numbers on the admin dashboard.
type DashboardStats struct {
	TotalBookings   int       `json:"totalBookings"`
	TotalUsers      int       `json:"totalUsers"`
	PendingBookings int       `json:"pendingBookings"`
	CompletedToday  int       `json:"completedToday"`
	Recent          []Booking `json:"recent"`
}

// Analytics breaks bookings down by status and emergency type.
type Analytics struct {
	StatusCounts   map[BookingStatus]int `json:"statusCounts"`
	EmergencyTypes map[string]int        `json:"emergencyTypes"`
}

// DataExport is the admin data dump.
type DataExport struct {
	Bookings   []Booking `json:"bookings"`
	Users      []User    `json:"users"`
	ExportDate string    `json:"exportDate"`
}
