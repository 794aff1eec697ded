package ports

import (
	"context"
	"time"

	"github.com/familycare/visit-service/internal/core/domain"
)

// CreateVisitInput carries the caller-supplied fields of POST /visits.
type CreateVisitInput struct {
	FamilyID        string
	Types           []string
	Notes           string
	ProofPhoto      string
	Date            *time.Time
	Status          domain.VisitStatus
	ResolveUrgency  bool
	CheckInLocation *domain.CheckInLocation
	AssignedTo      []string
}

// CheckInEntryPoint names the client flow a completion came from; each one has
// its own geofence radius.
type CheckInEntryPoint string

const (
	EntryPointValidate CheckInEntryPoint = "validate"
	EntryPointCheckIn  CheckInEntryPoint = "check-in"
)

type CompleteVisitInput struct {
	EntryPoint     CheckInEntryPoint
	ResolveUrgency bool
	Location       *domain.CheckInLocation
	ProofPhoto     string
}

// ProximityResult describes how the geofence treated a completion.
type ProximityResult struct {
	Verified       bool   `json:"verified"`
	DistanceMeters *int   `json:"distance_meters,omitempty"`
	RadiusMeters   int    `json:"radius_meters"`
	Caveat         string `json:"caveat,omitempty"`
}

type CompleteVisitResult struct {
	Visit           domain.VisitView `json:"visit"`
	Proximity       ProximityResult  `json:"proximity"`
	UrgencyResolved bool             `json:"urgency_resolved"`
}

type VisitList struct {
	Visits       []domain.VisitView
	SettledCount int
}

type VisitService interface {
	CreateVisit(ctx context.Context, actor domain.Actor, in CreateVisitInput) (*domain.VisitView, error)
	CompleteVisit(ctx context.Context, actor domain.Actor, visitID string, in CompleteVisitInput) (*CompleteVisitResult, error)
	GetVisit(ctx context.Context, actor domain.Actor, visitID string) (*domain.VisitView, error)
	MyVisits(ctx context.Context, actor domain.Actor) ([]domain.VisitView, error)
	AllVisits(ctx context.Context) (*VisitList, error)
	FamilyVisits(ctx context.Context, familyID string) ([]domain.VisitView, error)
}

type AlertService interface {
	ComputeAlerts(ctx context.Context, now time.Time) (*domain.AlertsSnapshot, error)
	ComputeStats(ctx context.Context) (*domain.Stats, error)
}
