// Package mocks provides in-memory implementations of the core ports for tests.
// Each mock tracks calls and supports error injection so services and handlers
// can be exercised without Postgres.
package mocks

import (
	"context"
	"slices"
	"sync"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
)

// MockVisitRepository implements ports.VisitRepository in memory. Like the
// Postgres adapter, Complete only succeeds while the stored visit is PLANNED.
type MockVisitRepository struct {
	mu     sync.RWMutex
	visits map[string]domain.Visit

	// Events written alongside visits (the outbox).
	Events []ports.VisitEvent

	CreateCalls   []domain.Visit
	CompleteCalls []domain.Visit

	FindByIDError error
	CreateError   error
	CompleteError error
	ListError     error
}

var _ ports.VisitRepository = (*MockVisitRepository)(nil)

func NewMockVisitRepository() *MockVisitRepository {
	return &MockVisitRepository{visits: make(map[string]domain.Visit)}
}

// Seed stores visits as-is. An empty status is normalized the same way the
// Postgres adapter does for legacy rows.
func (m *MockVisitRepository) Seed(visits ...domain.Visit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range visits {
		v.Status = domain.NormalizeVisitStatus(string(v.Status))
		m.visits[v.ID] = clone(v)
	}
}

// Get returns the stored copy of a visit for assertions.
func (m *MockVisitRepository) Get(id string) (domain.Visit, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visits[id]
	return clone(v), ok
}

func (m *MockVisitRepository) FindByID(ctx context.Context, id string) (*domain.Visit, error) {
	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.visits[id]
	if !ok {
		return nil, domain.ErrNotFound("visit")
	}
	c := clone(v)
	return &c, nil
}

func (m *MockVisitRepository) Create(ctx context.Context, visit domain.Visit, event ports.VisitEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, clone(visit))
	if m.CreateError != nil {
		return m.CreateError
	}
	m.visits[visit.ID] = clone(visit)
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockVisitRepository) Complete(ctx context.Context, visit domain.Visit, event ports.VisitEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls = append(m.CompleteCalls, clone(visit))
	if m.CompleteError != nil {
		return m.CompleteError
	}
	stored, ok := m.visits[visit.ID]
	if !ok {
		return domain.ErrNotFound("visit")
	}
	if !stored.IsPlanned() {
		return domain.ErrAlreadyCompleted()
	}
	m.visits[visit.ID] = clone(visit)
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockVisitRepository) List(ctx context.Context) ([]domain.Visit, error) {
	return m.filter(func(domain.Visit) bool { return true })
}

func (m *MockVisitRepository) ListByFamily(ctx context.Context, familyID string) ([]domain.Visit, error) {
	return m.filter(func(v domain.Visit) bool { return v.FamilyID == familyID })
}

func (m *MockVisitRepository) ListForActor(ctx context.Context, actorID string) ([]domain.Visit, error) {
	actor := domain.Actor{ID: actorID, Role: domain.RoleVolunteer}
	return m.filter(func(v domain.Visit) bool { return domain.IsMine(actor, v) })
}

func (m *MockVisitRepository) filter(keep func(domain.Visit) bool) ([]domain.Visit, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Visit, 0, len(m.visits))
	for _, v := range m.visits {
		if keep(v) {
			out = append(out, clone(v))
		}
	}
	slices.SortFunc(out, func(a, b domain.Visit) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func clone(v domain.Visit) domain.Visit {
	v.AssignedTo = slices.Clone(v.AssignedTo)
	v.Types = slices.Clone(v.Types)
	if v.CheckInLocation != nil {
		loc := *v.CheckInLocation
		v.CheckInLocation = &loc
	}
	return v
}

// MockFamilyRepository implements ports.FamilyRepository in memory.
type MockFamilyRepository struct {
	mu       sync.RWMutex
	families map[string]domain.Family

	ResolveUrgencyCalls []string

	FindByIDError       error
	ListError           error
	ResolveUrgencyError error
}

var _ ports.FamilyRepository = (*MockFamilyRepository)(nil)

func NewMockFamilyRepository() *MockFamilyRepository {
	return &MockFamilyRepository{families: make(map[string]domain.Family)}
}

func (m *MockFamilyRepository) Seed(families ...domain.Family) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range families {
		m.families[f.ID] = f
	}
}

// Delete removes a family, leaving its visits orphaned.
func (m *MockFamilyRepository) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.families, id)
}

func (m *MockFamilyRepository) Get(id string) (domain.Family, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.families[id]
	return f, ok
}

func (m *MockFamilyRepository) FindByID(ctx context.Context, id string) (*domain.Family, error) {
	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.families[id]
	if !ok {
		return nil, domain.ErrNotFound("family")
	}
	return &f, nil
}

func (m *MockFamilyRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Family, error) {
	if m.FindByIDError != nil {
		return nil, m.FindByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.Family, len(ids))
	for _, id := range ids {
		if f, ok := m.families[id]; ok {
			out[id] = f
		}
	}
	return out, nil
}

func (m *MockFamilyRepository) List(ctx context.Context) ([]domain.Family, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Family, 0, len(m.families))
	for _, f := range m.families {
		out = append(out, f)
	}
	return out, nil
}

func (m *MockFamilyRepository) ResolveUrgency(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResolveUrgencyCalls = append(m.ResolveUrgencyCalls, id)
	if m.ResolveUrgencyError != nil {
		return false, m.ResolveUrgencyError
	}
	f, ok := m.families[id]
	if !ok || !f.IsUrgent() {
		return false, nil
	}
	f.Status = domain.FamilyActive
	m.families[id] = f
	return true, nil
}

// MockItemRepository implements ports.ItemRepository.
type MockItemRepository struct {
	Items     []domain.Item
	ListError error
}

var _ ports.ItemRepository = (*MockItemRepository)(nil)

func (m *MockItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return slices.Clone(m.Items), nil
}

// MockUserDirectory implements ports.UserDirectory.
type MockUserDirectory struct {
	mu    sync.RWMutex
	users map[string]domain.User

	FindError error
	ListError error
}

var _ ports.UserDirectory = (*MockUserDirectory)(nil)

func NewMockUserDirectory(users ...domain.User) *MockUserDirectory {
	m := &MockUserDirectory{users: make(map[string]domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserDirectory) FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (m *MockUserDirectory) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}
