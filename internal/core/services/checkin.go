package services

import (
	"fmt"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/geo"
	"github.com/familycare/visit-service/internal/core/ports"
)

const noCoordinatesCaveat = "family has no stored coordinates, presence was not verified by distance"

// GeofencePolicy holds the accepted check-in radius for each client flow.
type GeofencePolicy struct {
	ValidateRadiusMeters int
	CheckInRadiusMeters  int
}

type CheckInValidator struct {
	policy GeofencePolicy
}

func NewCheckInValidator(policy GeofencePolicy) *CheckInValidator {
	return &CheckInValidator{policy: policy}
}

// RadiusFor returns the configured radius for an entry point.
func (v *CheckInValidator) RadiusFor(ep ports.CheckInEntryPoint) (int, error) {
	switch ep {
	case ports.EntryPointValidate:
		return v.policy.ValidateRadiusMeters, nil
	case ports.EntryPointCheckIn:
		return v.policy.CheckInRadiusMeters, nil
	}
	return 0, domain.ErrValidation("entryPoint", fmt.Sprintf("unknown check-in entry point %q", ep))
}

// ValidateProximity accepts the actor when the rounded distance to the family
// is within radiusMeters. Families without coordinates are accepted unverified.
func (v *CheckInValidator) ValidateProximity(actor domain.Coordinates, family *domain.Coordinates, radiusMeters int) (ports.ProximityResult, error) {
	if family == nil {
		return ports.ProximityResult{
			Verified:     false,
			RadiusMeters: radiusMeters,
			Caveat:       noCoordinatesCaveat,
		}, nil
	}

	distance := geo.RoundedDistance(actor, *family)
	if distance > radiusMeters {
		return ports.ProximityResult{}, domain.ErrTooFar(distance, radiusMeters)
	}
	return ports.ProximityResult{
		Verified:       true,
		DistanceMeters: &distance,
		RadiusMeters:   radiusMeters,
	}, nil
}
