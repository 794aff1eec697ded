package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
)

// openTestDB connects to TEST_DB_CONNECTION_STRING and applies the schema.
// Tests are skipped when it is not set.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("TEST_DB_CONNECTION_STRING not set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, Migrate(ctx, db))
	return db
}

func seedFamily(t *testing.T, db *sql.DB, status domain.FamilyStatus) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO families (id, name, address, status, lat, lng) VALUES ($1, $2, '', $3, 36.8065, 10.1815)`,
		id, "Family "+id[:8], string(status))
	require.NoError(t, err)
	return id
}

func testEvent(v domain.Visit, typ string) ports.VisitEvent {
	return ports.VisitEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		VisitID:    v.ID,
		FamilyID:   v.FamilyID,
		Status:     string(v.Status),
		OccurredAt: time.Now().UTC(),
	}
}

func TestVisitRepository_CreateAndComplete(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewVisitRepository(db)
	familyID := seedFamily(t, db, domain.FamilyActive)
	now := time.Now().UTC().Truncate(time.Microsecond)

	visit := domain.Visit{
		ID:         uuid.NewString(),
		FamilyID:   familyID,
		ReportedBy: "coord-1",
		AssignedTo: []string{"vol-1"},
		Status:     domain.VisitPlanned,
		Date:       now.Add(24 * time.Hour),
		Types:      []string{"FOOD"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created := testEvent(visit, ports.EventVisitCreated)
	require.NoError(t, repo.Create(ctx, visit, created))

	got, err := repo.FindByID(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"vol-1"}, got.AssignedTo)
	assert.Nil(t, got.CheckInLocation)

	mine, err := repo.ListForActor(ctx, "vol-1")
	require.NoError(t, err)
	assert.True(t, containsVisit(mine, visit.ID))

	acc := 12.5
	loc := domain.CheckInLocation{Lat: 36.8066, Lng: 10.1816, Accuracy: &acc, RecordedAt: now}
	require.NoError(t, got.Complete("vol-1", now, loc, ""))
	require.NoError(t, repo.Complete(ctx, *got, testEvent(*got, ports.EventVisitCompleted)))

	done, err := repo.FindByID(ctx, visit.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VisitCompleted, done.Status)
	assert.Equal(t, "vol-1", done.CompletedBy)
	assert.Empty(t, done.AssignedTo)
	require.NotNil(t, done.CheckInLocation)
	assert.InDelta(t, 12.5, *done.CheckInLocation.Accuracy, 0.001)

	err = repo.Complete(ctx, *got, testEvent(*got, ports.EventVisitCompleted))
	assert.True(t, domain.IsKind(err, domain.KindAlreadyCompleted))

	var events int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM outbox_events WHERE aggregate_id = $1`, visit.ID).Scan(&events))
	assert.Equal(t, 2, events)
}

func TestVisitRepository_LegacyStatusIsSettled(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	familyID := seedFamily(t, db, domain.FamilyActive)
	id := uuid.NewString()
	_, err := db.Exec(`INSERT INTO visits (id, family_id, reported_by, status, date) VALUES ($1, $2, 'vol-9', NULL, NOW())`, id, familyID)
	require.NoError(t, err)

	repo := NewVisitRepository(db)
	v, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.VisitCompleted, v.Status)

	mine, err := repo.ListForActor(ctx, "vol-9")
	require.NoError(t, err)
	assert.True(t, containsVisit(mine, id))
}

func TestVisitRepository_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := NewVisitRepository(db).FindByID(context.Background(), uuid.NewString())
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestFamilyRepository_ResolveUrgency(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewFamilyRepository(db)
	id := seedFamily(t, db, domain.FamilyUrgent)

	resolved, err := repo.ResolveUrgency(ctx, id)
	require.NoError(t, err)
	assert.True(t, resolved)

	resolved, err = repo.ResolveUrgency(ctx, id)
	require.NoError(t, err)
	assert.False(t, resolved)

	f, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.FamilyActive, f.Status)
	require.NotNil(t, f.Coordinates)

	found, err := repo.FindByIDs(ctx, []string{id, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func containsVisit(visits []domain.Visit, id string) bool {
	for _, v := range visits {
		if v.ID == id {
			return true
		}
	}
	return false
}
