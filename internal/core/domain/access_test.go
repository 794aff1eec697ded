package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familycare/visit-service/internal/core/domain"
)

func TestAccessPredicates(t *testing.T) {
	coordinator := domain.Actor{ID: "coord-1", Role: domain.RoleCoordinator}
	amira := domain.Actor{ID: "vol-1", Role: domain.RoleVolunteer}
	karim := domain.Actor{ID: "vol-2", Role: domain.RoleVolunteer}

	open := domain.Visit{ID: "open", Status: domain.VisitPlanned, ReportedBy: "coord-1"}
	claimed := domain.Visit{ID: "claimed", Status: domain.VisitPlanned, ReportedBy: "coord-1", AssignedTo: []string{"vol-2"}}
	done := domain.Visit{ID: "done", Status: domain.VisitCompleted, ReportedBy: "coord-1", CompletedBy: "vol-1"}
	legacy := domain.Visit{ID: "legacy", Status: domain.NormalizeVisitStatus(""), ReportedBy: "vol-2"}

	tests := []struct {
		name        string
		actor       domain.Actor
		visit       domain.Visit
		canView     bool
		canComplete bool
		mine        bool
	}{
		{"volunteer_open_mission", amira, open, true, true, true},
		{"volunteer_claimed_by_other", amira, claimed, false, false, false},
		{"assignee_claimed_mission", karim, claimed, true, true, true},
		{"coordinator_claimed_mission", coordinator, claimed, true, true, false},
		{"completer_settled_visit", amira, done, true, false, true},
		{"stranger_settled_visit", karim, done, false, false, false},
		{"coordinator_settled_visit", coordinator, done, true, true, false},
		{"legacy_reporter", karim, legacy, true, false, true},
		{"legacy_stranger", amira, legacy, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.canView, domain.CanViewVisit(tt.actor, tt.visit), "CanViewVisit")
			assert.Equal(t, tt.canComplete, domain.CanCompleteVisit(tt.actor, tt.visit), "CanCompleteVisit")
			assert.Equal(t, tt.mine, domain.IsMine(tt.actor, tt.visit), "IsMine")
		})
	}
}

func TestVisit_Complete(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	v := domain.Visit{
		ID:            "v1",
		Status:        domain.VisitPlanned,
		AssignedTo:    []string{"vol-1", "vol-2"},
		Date:          at.Add(72 * time.Hour),
		ProofPhotoRef: "earlier.jpg",
	}
	loc := domain.CheckInLocation{Lat: 36.8, Lng: 10.18, RecordedAt: at}

	require.NoError(t, v.Complete("vol-1", at, loc, ""))

	assert.Equal(t, domain.VisitCompleted, v.Status)
	assert.Equal(t, "vol-1", v.CompletedBy)
	assert.Empty(t, v.AssignedTo)
	assert.NotNil(t, v.AssignedTo)
	assert.True(t, v.Date.Equal(at))
	assert.Equal(t, "earlier.jpg", v.ProofPhotoRef)
	assert.Equal(t, &loc, v.CheckInLocation)

	snapshot := v
	err := v.Complete("vol-2", at.Add(time.Hour), loc, "new.jpg")
	assert.True(t, domain.IsKind(err, domain.KindAlreadyCompleted))
	assert.Equal(t, snapshot, v)
}

func TestNormalizeVisitStatus(t *testing.T) {
	assert.Equal(t, domain.VisitCompleted, domain.NormalizeVisitStatus(""))
	assert.Equal(t, domain.VisitPlanned, domain.NormalizeVisitStatus("PLANNED"))
	assert.Equal(t, domain.VisitCompleted, domain.NormalizeVisitStatus("COMPLETED"))
}

func TestErrorKinds(t *testing.T) {
	err := domain.ErrTooFar(812, 500)

	assert.Equal(t, domain.KindTooFar, domain.KindOf(err))
	assert.Contains(t, err.Error(), "812 m")
	assert.Equal(t, domain.ErrorKind(""), domain.KindOf(assert.AnError))
}
