package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/geo"
	"github.com/familycare/visit-service/internal/core/ports"
	"github.com/familycare/visit-service/internal/metrics"
)

type VisitService struct {
	visits    ports.VisitRepository
	families  ports.FamilyRepository
	users     ports.UserDirectory
	evidence  ports.EvidenceStore
	validator *CheckInValidator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.VisitService = (*VisitService)(nil)

func NewVisitService(
	visits ports.VisitRepository,
	families ports.FamilyRepository,
	users ports.UserDirectory,
	evidence ports.EvidenceStore,
	validator *CheckInValidator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *VisitService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisitService{
		visits:    visits,
		families:  families,
		users:     users,
		evidence:  evidence,
		validator: validator,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (s *VisitService) WithClock(now func() time.Time) *VisitService {
	s.now = now
	return s
}

// CreateVisit records a planned visit or a retrospective completed one.
//
// When urgency resolution is requested the family is updated first and the
// visit inserted second. The two writes are not atomic: if the insert fails the
// family stays ACTIVE and the error is returned to the caller.
func (s *VisitService) CreateVisit(ctx context.Context, actor domain.Actor, in ports.CreateVisitInput) (*domain.VisitView, error) {
	familyID := strings.TrimSpace(in.FamilyID)
	if familyID == "" {
		return nil, domain.ErrValidation("familyId", "is required")
	}
	if in.Status != "" && !in.Status.Valid() {
		return nil, domain.ErrValidation("status", "must be one of PLANNED, COMPLETED")
	}
	if in.CheckInLocation != nil && !geo.ValidCoordinates(in.CheckInLocation.Coordinates()) {
		return nil, domain.ErrValidation("checkInLocation", "lat/lng out of range")
	}

	family, err := s.families.FindByID(ctx, familyID)
	if err != nil {
		return nil, err
	}

	assignees, err := s.validateAssignees(ctx, in.AssignedTo)
	if err != nil {
		return nil, err
	}

	now := s.now()
	date := now
	if in.Date != nil {
		date = *in.Date
	}
	status := in.Status
	if status == "" {
		status = domain.VisitCompleted
		if date.After(now) {
			status = domain.VisitPlanned
		}
	}

	visit := domain.Visit{
		ID:         uuid.NewString(),
		FamilyID:   family.ID,
		ReportedBy: actor.ID,
		AssignedTo: assignees,
		Status:     status,
		Date:       date,
		Types:      cleanTypes(in.Types),
		Notes:      strings.TrimSpace(in.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Evidence and location only belong to a visit that already happened.
	if status == domain.VisitCompleted {
		visit.AssignedTo = []string{}
		if in.CheckInLocation != nil {
			loc := *in.CheckInLocation
			if loc.RecordedAt.IsZero() {
				loc.RecordedAt = now
			}
			visit.CheckInLocation = &loc
		}
		ref, err := s.storeProofPhoto(ctx, visit.ID, in.ProofPhoto)
		if err != nil {
			return nil, err
		}
		visit.ProofPhotoRef = ref
	}

	if in.ResolveUrgency && family.IsUrgent() {
		resolved, err := s.families.ResolveUrgency(ctx, family.ID)
		if err != nil {
			return nil, fmt.Errorf("resolve family urgency: %w", err)
		}
		if resolved {
			family.Status = domain.FamilyActive
			s.metrics.IncUrgencyResolved()
			s.logger.InfoContext(ctx, "family urgency resolved",
				"family_id", family.ID,
				"actor_id", actor.ID,
			)
		}
	}

	event := newVisitEvent(ports.EventVisitCreated, visit, actor.ID, in.ResolveUrgency, now)
	if err := s.visits.Create(ctx, visit, event); err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}

	s.metrics.IncVisitCreated(string(visit.Status))
	s.logger.InfoContext(ctx, "visit created",
		"visit_id", visit.ID,
		"family_id", visit.FamilyID,
		"status", visit.Status,
		"actor_id", actor.ID,
		"assignees", len(visit.AssignedTo),
	)

	return s.view(ctx, visit, family)
}

// CompleteVisit runs the geofenced PLANNED -> COMPLETED transition.
//
// The visit write happens first and is conditional on the stored row still
// being PLANNED, so a concurrent loser fails with AlreadyCompleted without
// touching the family. Urgency resolution follows; if that second write fails
// the completion stands, the failure is logged and UrgencyResolved is false.
func (s *VisitService) CompleteVisit(ctx context.Context, actor domain.Actor, visitID string, in ports.CompleteVisitInput) (*ports.CompleteVisitResult, error) {
	radius, err := s.validator.RadiusFor(in.EntryPoint)
	if err != nil {
		return nil, err
	}

	visit, err := s.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if !visit.IsPlanned() {
		if domain.CanViewVisit(actor, *visit) {
			s.metrics.IncCheckInRejected(string(domain.KindAlreadyCompleted))
			return nil, domain.ErrAlreadyCompleted()
		}
		s.metrics.IncCheckInRejected(string(domain.KindForbidden))
		return nil, domain.ErrForbidden("you cannot validate this visit")
	}
	if !domain.CanCompleteVisit(actor, *visit) {
		s.metrics.IncCheckInRejected(string(domain.KindForbidden))
		return nil, domain.ErrForbidden("you cannot validate this visit")
	}
	if in.Location == nil {
		s.metrics.IncCheckInRejected(string(domain.KindMissingLocation))
		return nil, domain.ErrMissingLocation()
	}
	if !geo.ValidCoordinates(in.Location.Coordinates()) {
		return nil, domain.ErrValidation("location", "lat/lng out of range")
	}

	family, err := s.families.FindByID(ctx, visit.FamilyID)
	if err != nil {
		return nil, err
	}

	proximity, err := s.validator.ValidateProximity(in.Location.Coordinates(), family.Coordinates, radius)
	if err != nil {
		s.metrics.IncCheckInRejected(string(domain.KindOf(err)))
		s.logger.WarnContext(ctx, "check-in rejected",
			"visit_id", visit.ID,
			"actor_id", actor.ID,
			"entry_point", in.EntryPoint,
			"error", err,
		)
		return nil, err
	}
	if !proximity.Verified {
		s.metrics.IncGeofenceSkipped()
		s.logger.WarnContext(ctx, "check-in accepted without proximity check",
			"visit_id", visit.ID,
			"family_id", family.ID,
			"actor_id", actor.ID,
		)
	}

	now := s.now()
	ref, err := s.storeProofPhoto(ctx, visit.ID, in.ProofPhoto)
	if err != nil {
		return nil, err
	}

	loc := domain.CheckInLocation{
		Lat:        in.Location.Lat,
		Lng:        in.Location.Lng,
		Accuracy:   in.Location.Accuracy,
		RecordedAt: now,
	}
	if err := visit.Complete(actor.ID, now, loc, ref); err != nil {
		return nil, err
	}

	event := newVisitEvent(ports.EventVisitCompleted, *visit, actor.ID, in.ResolveUrgency, now)
	if err := s.visits.Complete(ctx, *visit, event); err != nil {
		if domain.IsKind(err, domain.KindAlreadyCompleted) {
			s.metrics.IncCheckInRejected(string(domain.KindAlreadyCompleted))
			return nil, err
		}
		return nil, fmt.Errorf("complete visit: %w", err)
	}

	urgencyResolved := false
	if in.ResolveUrgency && family.IsUrgent() {
		resolved, err := s.families.ResolveUrgency(ctx, family.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "visit completed but urgency resolution failed",
				"visit_id", visit.ID,
				"family_id", family.ID,
				"error", err,
			)
		} else if resolved {
			urgencyResolved = true
			family.Status = domain.FamilyActive
			s.metrics.IncUrgencyResolved()
		}
	}

	s.metrics.IncVisitCompleted(string(in.EntryPoint))
	s.logger.InfoContext(ctx, "visit completed",
		"visit_id", visit.ID,
		"family_id", visit.FamilyID,
		"actor_id", actor.ID,
		"entry_point", in.EntryPoint,
		"verified", proximity.Verified,
		"urgency_resolved", urgencyResolved,
	)

	view, err := s.view(ctx, *visit, family)
	if err != nil {
		return nil, err
	}
	return &ports.CompleteVisitResult{
		Visit:           *view,
		Proximity:       proximity,
		UrgencyResolved: urgencyResolved,
	}, nil
}

func (s *VisitService) GetVisit(ctx context.Context, actor domain.Actor, visitID string) (*domain.VisitView, error) {
	visit, err := s.visits.FindByID(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewVisit(actor, *visit) {
		return nil, domain.ErrForbidden("access to this visit is not allowed")
	}

	var family *domain.Family
	f, err := s.families.FindByID(ctx, visit.FamilyID)
	switch {
	case err == nil:
		family = f
	case domain.IsKind(err, domain.KindNotFound):
	default:
		return nil, err
	}
	return s.view(ctx, *visit, family)
}

// MyVisits lists the actor's planned missions by date ascending, followed by
// the visits they settled, newest first.
func (s *VisitService) MyVisits(ctx context.Context, actor domain.Actor) ([]domain.VisitView, error) {
	visits, err := s.visits.ListForActor(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list visits for actor: %w", err)
	}

	var planned, settled []domain.Visit
	for _, v := range visits {
		if !domain.IsMine(actor, v) {
			continue
		}
		if v.IsPlanned() {
			planned = append(planned, v)
		} else {
			settled = append(settled, v)
		}
	}
	sortByDate(planned, true)
	sortByDate(settled, false)

	views, err := s.views(ctx, append(planned, settled...))
	return views, err
}

// AllVisits lists every visit whose family still exists, newest first.
func (s *VisitService) AllVisits(ctx context.Context) (*ports.VisitList, error) {
	visits, err := s.visits.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	sortByDate(visits, false)

	views, err := s.views(ctx, visits)
	if err != nil {
		return nil, err
	}

	kept := make([]domain.VisitView, 0, len(views))
	settled := 0
	for _, v := range views {
		if v.Family == nil {
			continue
		}
		kept = append(kept, v)
		if v.IsSettled() {
			settled++
		}
	}
	return &ports.VisitList{Visits: kept, SettledCount: settled}, nil
}

func (s *VisitService) FamilyVisits(ctx context.Context, familyID string) ([]domain.VisitView, error) {
	family, err := s.families.FindByID(ctx, familyID)
	if err != nil {
		return nil, err
	}
	visits, err := s.visits.ListByFamily(ctx, family.ID)
	if err != nil {
		return nil, fmt.Errorf("list family visits: %w", err)
	}
	sortByDate(visits, false)

	views, err := s.views(ctx, visits)
	return views, err
}

// validateAssignees drops blanks and duplicates and requires every remaining
// id to be a known volunteer.
func (s *VisitService) validateAssignees(ctx context.Context, ids []string) ([]string, error) {
	assignees := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(assignees, id) {
			continue
		}
		assignees = append(assignees, id)
	}
	if len(assignees) == 0 {
		return assignees, nil
	}

	volunteers, err := s.users.ListByRole(ctx, domain.RoleVolunteer)
	if err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	known := make(map[string]bool, len(volunteers))
	for _, u := range volunteers {
		known[u.ID] = true
	}
	for _, id := range assignees {
		if !known[id] {
			return nil, domain.ErrValidation("assignedTo", fmt.Sprintf("unknown volunteer %q", id))
		}
	}
	return assignees, nil
}

func (s *VisitService) view(ctx context.Context, visit domain.Visit, family *domain.Family) (*domain.VisitView, error) {
	names, err := s.users.FindByIDs(ctx, userRefs([]domain.Visit{visit}))
	if err != nil {
		return nil, fmt.Errorf("resolve user names: %w", err)
	}
	v := buildView(visit, family, names)
	return &v, nil
}

// views resolves families and user names for a batch of visits in two lookups.
func (s *VisitService) views(ctx context.Context, visits []domain.Visit) ([]domain.VisitView, error) {
	familyIDs := make([]string, 0, len(visits))
	for _, v := range visits {
		if !slices.Contains(familyIDs, v.FamilyID) {
			familyIDs = append(familyIDs, v.FamilyID)
		}
	}
	families, err := s.families.FindByIDs(ctx, familyIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve families: %w", err)
	}
	names, err := s.users.FindByIDs(ctx, userRefs(visits))
	if err != nil {
		return nil, fmt.Errorf("resolve user names: %w", err)
	}

	views := make([]domain.VisitView, 0, len(visits))
	for _, v := range visits {
		var family *domain.Family
		if f, ok := families[v.FamilyID]; ok {
			family = &f
		}
		views = append(views, buildView(v, family, names))
	}
	return views, nil
}

func buildView(visit domain.Visit, family *domain.Family, users map[string]domain.User) domain.VisitView {
	view := domain.VisitView{Visit: visit}
	if family != nil {
		summary := family.Summary()
		view.Family = &summary
	}
	view.ReportedByName = users[visit.ReportedBy].Name
	if visit.CompletedBy != "" {
		view.CompletedByName = users[visit.CompletedBy].Name
	}
	for _, id := range visit.AssignedTo {
		if u, ok := users[id]; ok {
			view.AssigneeNames = append(view.AssigneeNames, u.Name)
		}
	}
	return view
}

func userRefs(visits []domain.Visit) []string {
	var ids []string
	add := func(id string) {
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	for _, v := range visits {
		add(v.ReportedBy)
		add(v.CompletedBy)
		for _, a := range v.AssignedTo {
			add(a)
		}
	}
	return ids
}

func cleanTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func sortByDate(visits []domain.Visit, ascending bool) {
	sort.SliceStable(visits, func(i, j int) bool {
		a, b := visits[i].Date, visits[j].Date
		if a.Equal(b) {
			return visits[i].ID < visits[j].ID
		}
		if ascending {
			return a.Before(b)
		}
		return a.After(b)
	})
}

func newVisitEvent(eventType string, v domain.Visit, actorID string, resolveUrgency bool, at time.Time) ports.VisitEvent {
	return ports.VisitEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		VisitID:        v.ID,
		FamilyID:       v.FamilyID,
		ActorID:        actorID,
		Status:         string(v.Status),
		ResolveUrgency: resolveUrgency,
		OccurredAt:     at,
	}
}
