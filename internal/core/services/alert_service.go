package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
	"github.com/familycare/visit-service/internal/metrics"
)

const (
	DefaultNeglectThreshold   = 30 * 24 * time.Hour
	DefaultRecentReportsLimit = 3

	fallbackFamilyName    = "Family"
	fallbackVolunteerName = "Volunteer"
)

// NeglectPolicy tunes the alerts snapshot.
type NeglectPolicy struct {
	Threshold          time.Duration
	RecentReportsLimit int
}

type AlertService struct {
	families ports.FamilyRepository
	visits   ports.VisitRepository
	items    ports.ItemRepository
	users    ports.UserDirectory
	policy   NeglectPolicy
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

var _ ports.AlertService = (*AlertService)(nil)

func NewAlertService(
	families ports.FamilyRepository,
	visits ports.VisitRepository,
	items ports.ItemRepository,
	users ports.UserDirectory,
	policy NeglectPolicy,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AlertService {
	if policy.Threshold <= 0 {
		policy.Threshold = DefaultNeglectThreshold
	}
	if policy.RecentReportsLimit <= 0 {
		policy.RecentReportsLimit = DefaultRecentReportsLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertService{
		families: families,
		visits:   visits,
		items:    items,
		users:    users,
		policy:   policy,
		metrics:  m,
		logger:   logger,
	}
}

// ComputeAlerts builds a fresh snapshot from current store state. Nothing is
// cached between calls.
func (s *AlertService) ComputeAlerts(ctx context.Context, now time.Time) (*domain.AlertsSnapshot, error) {
	start := time.Now()

	var (
		families []domain.Family
		visits   []domain.Visit
		items    []domain.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		families, err = s.families.List(gctx)
		if err != nil {
			return fmt.Errorf("list families: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		visits, err = s.visits.List(gctx)
		if err != nil {
			return fmt.Errorf("list visits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = s.items.List(gctx)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	recent := RecentSettledVisits(visits, s.policy.RecentReportsLimit)
	names, err := s.users.FindByIDs(ctx, userRefs(recent))
	if err != nil {
		return nil, fmt.Errorf("resolve user names: %w", err)
	}

	snapshot := &domain.AlertsSnapshot{
		UrgentFamilies:    UrgentUnvisited(families, visits),
		ForgottenFamilies: ForgottenFamilies(families, visits, now.Add(-s.policy.Threshold)),
		LowStockItems:     LowStockItems(items),
		RecentReports:     buildReports(recent, families, names),
	}

	s.metrics.ObserveAlerts(time.Since(start), len(snapshot.UrgentFamilies), len(snapshot.ForgottenFamilies))
	s.logger.DebugContext(ctx, "alerts computed",
		"urgent", len(snapshot.UrgentFamilies),
		"forgotten", len(snapshot.ForgottenFamilies),
		"low_stock", len(snapshot.LowStockItems),
	)
	return snapshot, nil
}

// ComputeStats returns the dashboard counters. Visits of deleted families are
// not counted.
func (s *AlertService) ComputeStats(ctx context.Context) (*domain.Stats, error) {
	var (
		families []domain.Family
		visits   []domain.Visit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		families, err = s.families.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		visits, err = s.visits.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	known := make(map[string]bool, len(families))
	stats := &domain.Stats{TotalFamilies: len(families)}
	for _, f := range families {
		known[f.ID] = true
		if f.IsUrgent() {
			stats.UrgentFamilies++
		}
	}
	for _, v := range visits {
		if v.IsSettled() && known[v.FamilyID] {
			stats.VisitsCount++
		}
	}
	return stats, nil
}

// UrgentUnvisited returns URGENT families with no PLANNED visit, newest
// registered first.
func UrgentUnvisited(families []domain.Family, visits []domain.Visit) []domain.Family {
	scheduled := make(map[string]bool)
	for _, v := range visits {
		if v.IsPlanned() {
			scheduled[v.FamilyID] = true
		}
	}

	out := make([]domain.Family, 0)
	for _, f := range families {
		if f.IsUrgent() && !scheduled[f.ID] {
			out = append(out, f)
		}
	}
	sortNewestFamilies(out, func(i int) domain.Family { return out[i] })
	return out
}

// ForgottenFamilies joins each non-urgent family to its latest settled visit
// and keeps those never visited or last visited before cutoff, newest
// registered first.
func ForgottenFamilies(families []domain.Family, visits []domain.Visit, cutoff time.Time) []domain.ForgottenFamily {
	lastSettled := make(map[string]time.Time)
	for _, v := range visits {
		if !v.IsSettled() {
			continue
		}
		if last, ok := lastSettled[v.FamilyID]; !ok || v.Date.After(last) {
			lastSettled[v.FamilyID] = v.Date
		}
	}

	out := make([]domain.ForgottenFamily, 0)
	for _, f := range families {
		if f.IsUrgent() {
			continue
		}
		last, visited := lastSettled[f.ID]
		if visited && !last.Before(cutoff) {
			continue
		}
		ff := domain.ForgottenFamily{Family: f}
		if visited {
			ff.LastVisitDate = &last
		}
		out = append(out, ff)
	}
	sortNewestFamilies(out, func(i int) domain.Family { return out[i].Family })
	return out
}

// LowStockItems returns items below their threshold, most critical first.
func LowStockItems(items []domain.Item) []domain.Item {
	out := make([]domain.Item, 0)
	for _, it := range items {
		if it.IsLowStock() {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity < out[j].Quantity
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RecentSettledVisits returns the limit most recently dated settled visits.
func RecentSettledVisits(visits []domain.Visit, limit int) []domain.Visit {
	settled := make([]domain.Visit, 0)
	for _, v := range visits {
		if v.IsSettled() {
			settled = append(settled, v)
		}
	}
	sortByDate(settled, false)
	if len(settled) > limit {
		settled = settled[:limit]
	}
	return settled
}

func buildReports(visits []domain.Visit, families []domain.Family, users map[string]domain.User) []domain.RecentReport {
	familyNames := make(map[string]string, len(families))
	for _, f := range families {
		familyNames[f.ID] = f.Name
	}

	reports := make([]domain.RecentReport, 0, len(visits))
	for _, v := range visits {
		familyName := familyNames[v.FamilyID]
		if familyName == "" {
			familyName = fallbackFamilyName
		}
		reports = append(reports, domain.RecentReport{
			VisitID:       v.ID,
			FamilyName:    familyName,
			VolunteerName: volunteerName(v, users),
			Notes:         v.Notes,
			Date:          v.Date,
		})
	}
	return reports
}

// volunteerName prefers the completer, then the reporter, then a generic label.
func volunteerName(v domain.Visit, users map[string]domain.User) string {
	if u, ok := users[v.CompletedBy]; ok && u.Name != "" {
		return u.Name
	}
	if u, ok := users[v.ReportedBy]; ok && u.Name != "" {
		return u.Name
	}
	return fallbackVolunteerName
}

func sortNewestFamilies[T any](s []T, family func(int) domain.Family) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := family(i), family(j)
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
