package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/familycare/visit-service/internal/adapters/outbox"
	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
)

const visitColumns = `
	id, family_id, reported_by, assigned_to, completed_by, status, date, types,
	notes, proof_photo_ref, checkin_lat, checkin_lng, checkin_accuracy,
	checkin_recorded_at, created_at, updated_at`

type VisitRepository struct {
	db *sql.DB
}

var _ ports.VisitRepository = (*VisitRepository)(nil)

func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

func (r *VisitRepository) FindByID(ctx context.Context, id string) (*domain.Visit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
	v, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("visit")
	}
	if err != nil {
		return nil, fmt.Errorf("find visit: %w", err)
	}
	return &v, nil
}

// Create inserts the visit and its outbox event in one transaction.
func (r *VisitRepository) Create(ctx context.Context, v domain.Visit, event ports.VisitEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	loc := newLocationColumns(v.CheckInLocation)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO visits (`+visitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		v.ID, v.FamilyID, v.ReportedBy, pq.Array(nonNil(v.AssignedTo)), nullString(v.CompletedBy),
		string(v.Status), v.Date, pq.Array(nonNil(v.Types)), v.Notes, nullString(v.ProofPhotoRef),
		loc.lat, loc.lng, loc.accuracy, loc.recordedAt, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}

	if err := outbox.Enqueue(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// Complete persists a completed visit only if the stored row is still
// PLANNED. A row that was completed in the meantime yields AlreadyCompleted.
func (r *VisitRepository) Complete(ctx context.Context, v domain.Visit, event ports.VisitEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	loc := newLocationColumns(v.CheckInLocation)
	res, err := tx.ExecContext(ctx, `
		UPDATE visits SET
			status = 'COMPLETED',
			completed_by = $2,
			date = $3,
			assigned_to = '{}',
			proof_photo_ref = COALESCE($4, proof_photo_ref),
			checkin_lat = $5,
			checkin_lng = $6,
			checkin_accuracy = $7,
			checkin_recorded_at = $8,
			updated_at = $9
		WHERE id = $1 AND status = 'PLANNED'`,
		v.ID, v.CompletedBy, v.Date, nullString(v.ProofPhotoRef),
		loc.lat, loc.lng, loc.accuracy, loc.recordedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("complete visit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM visits WHERE id = $1)`, v.ID).Scan(&exists); err != nil {
			return fmt.Errorf("re-read visit: %w", err)
		}
		if !exists {
			return domain.ErrNotFound("visit")
		}
		return domain.ErrAlreadyCompleted()
	}

	if err := outbox.Enqueue(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *VisitRepository) List(ctx context.Context) ([]domain.Visit, error) {
	return r.query(ctx, `SELECT `+visitColumns+` FROM visits ORDER BY date DESC`)
}

func (r *VisitRepository) ListByFamily(ctx context.Context, familyID string) ([]domain.Visit, error) {
	return r.query(ctx, `SELECT `+visitColumns+` FROM visits WHERE family_id = $1 ORDER BY date DESC`, familyID)
}

// ListForActor returns open missions, missions assigned to the actor and the
// settled visits they completed (or reported, for legacy rows).
func (r *VisitRepository) ListForActor(ctx context.Context, actorID string) ([]domain.Visit, error) {
	return r.query(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE (status = 'PLANNED' AND (cardinality(assigned_to) = 0 OR $1 = ANY(assigned_to)))
		   OR (COALESCE(status, 'COMPLETED') = 'COMPLETED'
		       AND COALESCE(NULLIF(completed_by, ''), reported_by) = $1)
		ORDER BY date`, actorID)
}

func (r *VisitRepository) query(ctx context.Context, q string, args ...any) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query visits: %w", err)
	}
	defer rows.Close()

	var visits []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanVisit reads one row and normalizes a missing status to COMPLETED.
func scanVisit(s scanner) (domain.Visit, error) {
	var (
		v           domain.Visit
		completedBy sql.NullString
		status      sql.NullString
		photo       sql.NullString
		lat, lng    sql.NullFloat64
		accuracy    sql.NullFloat64
		recordedAt  sql.NullTime
	)
	err := s.Scan(
		&v.ID, &v.FamilyID, &v.ReportedBy, pq.Array(&v.AssignedTo), &completedBy, &status,
		&v.Date, pq.Array(&v.Types), &v.Notes, &photo, &lat, &lng, &accuracy, &recordedAt,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return domain.Visit{}, err
	}

	v.CompletedBy = completedBy.String
	v.Status = domain.NormalizeVisitStatus(status.String)
	v.ProofPhotoRef = photo.String
	v.AssignedTo = nonNil(v.AssignedTo)
	v.Types = nonNil(v.Types)
	if lat.Valid && lng.Valid {
		loc := &domain.CheckInLocation{Lat: lat.Float64, Lng: lng.Float64, RecordedAt: recordedAt.Time}
		if accuracy.Valid {
			a := accuracy.Float64
			loc.Accuracy = &a
		}
		v.CheckInLocation = loc
	}
	return v, nil
}

type locationColumns struct {
	lat, lng, accuracy sql.NullFloat64
	recordedAt         sql.NullTime
}

func newLocationColumns(loc *domain.CheckInLocation) locationColumns {
	if loc == nil {
		return locationColumns{}
	}
	c := locationColumns{
		lat:        sql.NullFloat64{Float64: loc.Lat, Valid: true},
		lng:        sql.NullFloat64{Float64: loc.Lng, Valid: true},
		recordedAt: sql.NullTime{Time: loc.RecordedAt, Valid: !loc.RecordedAt.IsZero()},
	}
	if loc.Accuracy != nil {
		c.accuracy = sql.NullFloat64{Float64: *loc.Accuracy, Valid: true}
	}
	return c
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
