package domain

import "time"

type ForgottenFamily struct {
	Family
	// Nil when the family was never visited.
	LastVisitDate *time.Time `json:"last_visit_date"`
}

type RecentReport struct {
	VisitID       string    `json:"id"`
	FamilyName    string    `json:"family_name"`
	VolunteerName string    `json:"volunteer_name"`
	Notes         string    `json:"notes"`
	Date          time.Time `json:"date"`
}

// AlertsSnapshot is recomputed on every request and never stored.
type AlertsSnapshot struct {
	UrgentFamilies    []Family          `json:"urgent_families"`
	ForgottenFamilies []ForgottenFamily `json:"forgotten_families"`
	LowStockItems     []Item            `json:"low_stock_items"`
	RecentReports     []RecentReport    `json:"recent_reports"`
}

type Stats struct {
	TotalFamilies  int `json:"total_families"`
	UrgentFamilies int `json:"urgent_families"`
	VisitsCount    int `json:"visits_count"`
}
