package domain

import "time"

type FamilyStatus string

const (
	FamilyActive FamilyStatus = "ACTIVE"
	FamilyUrgent FamilyStatus = "URGENT"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Family is owned by the family-management service; this service reads it and
// only ever flips Status from URGENT to ACTIVE.
type Family struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Status      FamilyStatus `json:"status"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (f Family) IsUrgent() bool {
	return f.Status == FamilyUrgent
}

// FamilySummary is the slice of a family embedded in visit responses.
type FamilySummary struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Address string       `json:"address"`
	Status  FamilyStatus `json:"status"`
}

func (f Family) Summary() FamilySummary {
	return FamilySummary{ID: f.ID, Name: f.Name, Address: f.Address, Status: f.Status}
}
