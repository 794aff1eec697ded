package domain

import (
	"slices"
	"time"
)

type VisitStatus string

const (
	VisitPlanned   VisitStatus = "PLANNED"
	VisitCompleted VisitStatus = "COMPLETED"
)

func (s VisitStatus) Valid() bool {
	return s == VisitPlanned || s == VisitCompleted
}

// NormalizeVisitStatus maps a stored status to its domain value. Records written
// before the status column existed carry no status and count as completed.
func NormalizeVisitStatus(raw string) VisitStatus {
	if raw == "" {
		return VisitCompleted
	}
	return VisitStatus(raw)
}

type CheckInLocation struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Accuracy   *float64  `json:"accuracy,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (l CheckInLocation) Coordinates() Coordinates {
	return Coordinates{Lat: l.Lat, Lng: l.Lng}
}

type Visit struct {
	ID              string           `json:"id"`
	FamilyID        string           `json:"family_id"`
	ReportedBy      string           `json:"reported_by"`
	AssignedTo      []string         `json:"assigned_to"`
	CompletedBy     string           `json:"completed_by,omitempty"`
	Status          VisitStatus      `json:"status"`
	Date            time.Time        `json:"date"`
	Types           []string         `json:"types"`
	Notes           string           `json:"notes"`
	ProofPhotoRef   string           `json:"proof_photo_ref,omitempty"`
	CheckInLocation *CheckInLocation `json:"check_in_location,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (v Visit) IsPlanned() bool {
	return v.Status == VisitPlanned
}

// IsSettled reports whether the visit counts as done for aggregation.
func (v Visit) IsSettled() bool {
	return v.Status == VisitCompleted
}

// IsOpenMission reports whether a planned visit is claimable by any volunteer.
func (v Visit) IsOpenMission() bool {
	return v.IsPlanned() && len(v.AssignedTo) == 0
}

func (v Visit) IsAssignedTo(userID string) bool {
	return slices.Contains(v.AssignedTo, userID)
}

// Completer returns who settled the visit, falling back to the reporter for
// legacy records that predate completedBy.
func (v Visit) Completer() string {
	if v.CompletedBy != "" {
		return v.CompletedBy
	}
	return v.ReportedBy
}

// Complete applies the PLANNED -> COMPLETED transition in memory.
func (v *Visit) Complete(actorID string, at time.Time, loc CheckInLocation, proofPhotoRef string) error {
	if !v.IsPlanned() {
		return ErrAlreadyCompleted()
	}
	v.Status = VisitCompleted
	v.CompletedBy = actorID
	v.Date = at
	v.CheckInLocation = &loc
	v.AssignedTo = []string{}
	if proofPhotoRef != "" {
		v.ProofPhotoRef = proofPhotoRef
	}
	v.UpdatedAt = at
	return nil
}

// VisitView is a visit with its references resolved to display names.
type VisitView struct {
	Visit
	Family          *FamilySummary `json:"family,omitempty"`
	ReportedByName  string         `json:"reported_by_name,omitempty"`
	CompletedByName string         `json:"completed_by_name,omitempty"`
	AssigneeNames   []string       `json:"assignee_names,omitempty"`
}
