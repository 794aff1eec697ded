package ports

import (
	"context"

	"github.com/familycare/visit-service/internal/core/domain"
)

// VisitRepository is the persistence boundary for visits. Implementations
// normalize legacy status-less rows to COMPLETED when reading.
type VisitRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Visit, error)
	// Create inserts the visit together with its outbox event.
	Create(ctx context.Context, visit domain.Visit, event VisitEvent) error
	// Complete persists a PLANNED -> COMPLETED transition. It must only succeed
	// while the stored row is still PLANNED and fail with AlreadyCompleted
	// otherwise.
	Complete(ctx context.Context, visit domain.Visit, event VisitEvent) error
	List(ctx context.Context) ([]domain.Visit, error)
	ListByFamily(ctx context.Context, familyID string) ([]domain.Visit, error)
	ListForActor(ctx context.Context, actorID string) ([]domain.Visit, error)
}

// FamilyRepository is the slice of the family collaborator this service uses.
type FamilyRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Family, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.Family, error)
	List(ctx context.Context) ([]domain.Family, error)
	// ResolveUrgency flips an URGENT family to ACTIVE and reports whether it did.
	ResolveUrgency(ctx context.Context, id string) (bool, error)
}

type ItemRepository interface {
	List(ctx context.Context) ([]domain.Item, error)
}

type UserDirectory interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}
