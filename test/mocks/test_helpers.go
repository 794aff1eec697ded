package mocks

import (
	"time"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
)

// Tunis medina; the reference point for geofence fixtures.
var FamilyLocation = domain.Coordinates{Lat: 36.8065, Lng: 10.1815}

// CreateTestFamily returns an ACTIVE family at FamilyLocation.
func CreateTestFamily(id, name string) domain.Family {
	loc := FamilyLocation
	return domain.Family{
		ID:          id,
		Name:        name,
		Address:     "12 rue de la Kasbah, Tunis",
		Status:      domain.FamilyActive,
		Coordinates: &loc,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// CreatePlannedVisit returns a PLANNED visit reported by reporter.
func CreatePlannedVisit(id, familyID, reporter string, date time.Time, assignees ...string) domain.Visit {
	if assignees == nil {
		assignees = []string{}
	}
	return domain.Visit{
		ID:         id,
		FamilyID:   familyID,
		ReportedBy: reporter,
		AssignedTo: assignees,
		Status:     domain.VisitPlanned,
		Date:       date,
		Types:      []string{"FOOD"},
		CreatedAt:  date.Add(-24 * time.Hour),
		UpdatedAt:  date.Add(-24 * time.Hour),
	}
}

// CreateCompletedVisit returns a settled visit completed by completer.
func CreateCompletedVisit(id, familyID, completer string, date time.Time) domain.Visit {
	return domain.Visit{
		ID:          id,
		FamilyID:    familyID,
		ReportedBy:  completer,
		CompletedBy: completer,
		AssignedTo:  []string{},
		Status:      domain.VisitCompleted,
		Date:        date,
		Notes:       "visit " + id,
		CreatedAt:   date,
		UpdatedAt:   date,
	}
}

// CreateTestEvent returns a sample outbox event.
func CreateTestEvent() ports.VisitEvent {
	return ports.VisitEvent{
		ID:         "evt-1",
		Type:       ports.EventVisitCompleted,
		VisitID:    "visit-1",
		FamilyID:   "family-1",
		ActorID:    "vol-1",
		Status:     string(domain.VisitCompleted),
		OccurredAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}
