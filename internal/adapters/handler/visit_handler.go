package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/familycare/visit-service/internal/adapters/middleware"
	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
)

type VisitHandler struct {
	visits ports.VisitService
	logger *slog.Logger
}

func NewVisitHandler(visits ports.VisitService, logger *slog.Logger) *VisitHandler {
	return &VisitHandler{visits: visits, logger: logger}
}

// LocationRequest is a GPS fix sent by the field app. RecordedAt is optional;
// the service stamps its own clock when it is missing.
type LocationRequest struct {
	Lat        *float64   `json:"lat"`
	Lng        *float64   `json:"lng"`
	Accuracy   *float64   `json:"accuracy,omitempty"`
	RecordedAt *time.Time `json:"recordedAt,omitempty"`
}

type CreateVisitRequest struct {
	FamilyID        string           `json:"familyId"`
	Types           []string         `json:"types"`
	Notes           string           `json:"notes"`
	ProofPhoto      string           `json:"proofPhoto,omitempty"`
	Date            *time.Time       `json:"date,omitempty"`
	Status          string           `json:"status,omitempty"`
	ResolveUrgency  bool             `json:"resolveUrgency"`
	CheckInLocation *LocationRequest `json:"checkInLocation,omitempty"`
	AssignedTo      []string         `json:"assignedTo,omitempty"`
}

type CompleteVisitRequest struct {
	ResolveUrgency bool             `json:"resolveUrgency"`
	Location       *LocationRequest `json:"location,omitempty"`
	ProofPhoto     string           `json:"proofPhoto,omitempty"`
}

func (h *VisitHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	var req CreateVisitRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, "Invalid request payload")
		return
	}
	loc := req.CheckInLocation.toDomain()
	if req.CheckInLocation != nil && loc == nil {
		writeError(w, r, h.logger, domain.ErrValidation("checkInLocation", "lat and lng are required"))
		return
	}

	view, err := h.visits.CreateVisit(r.Context(), actor, ports.CreateVisitInput{
		FamilyID:        req.FamilyID,
		Types:           req.Types,
		Notes:           req.Notes,
		ProofPhoto:      req.ProofPhoto,
		Date:            req.Date,
		Status:          domain.VisitStatus(req.Status),
		ResolveUrgency:  req.ResolveUrgency,
		CheckInLocation: loc,
		AssignedTo:      req.AssignedTo,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, view)
}

// Validate completes a planned visit from the visit list flow.
func (h *VisitHandler) Validate(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, ports.EntryPointValidate)
}

// CheckIn completes a planned visit from the dedicated check-in screen.
func (h *VisitHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.complete(w, r, ports.EntryPointCheckIn)
}

func (h *VisitHandler) complete(w http.ResponseWriter, r *http.Request, ep ports.CheckInEntryPoint) {
	actor, _ := middleware.ActorFrom(r.Context())

	var req CompleteVisitRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, h.logger, "Invalid request payload")
		return
	}
	result, err := h.visits.CompleteVisit(r.Context(), actor, chi.URLParam(r, "id"), ports.CompleteVisitInput{
		EntryPoint:     ep,
		ResolveUrgency: req.ResolveUrgency,
		Location:       req.Location.toDomain(),
		ProofPhoto:     req.ProofPhoto,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, result)
}

func (h *VisitHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	view, err := h.visits.GetVisit(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, view)
}

func (h *VisitHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	views, err := h.visits.MyVisits(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, h.logger, views, len(views))
}

// List returns every visit of an existing family; count is the number of
// completed visits.
func (h *VisitHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.visits.AllVisits(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, h.logger, list.Visits, list.SettledCount)
}

func (h *VisitHandler) ByFamily(w http.ResponseWriter, r *http.Request) {
	views, err := h.visits.FamilyVisits(r.Context(), chi.URLParam(r, "familyId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeList(w, h.logger, views, len(views))
}

// toDomain returns nil unless both coordinates are present.
func (l *LocationRequest) toDomain() *domain.CheckInLocation {
	if l == nil || l.Lat == nil || l.Lng == nil {
		return nil
	}
	loc := &domain.CheckInLocation{Lat: *l.Lat, Lng: *l.Lng, Accuracy: l.Accuracy}
	if l.RecordedAt != nil {
		loc.RecordedAt = l.RecordedAt.UTC()
	}
	return loc
}
