package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/familycare/visit-service/internal/core/domain"
	"github.com/familycare/visit-service/internal/core/ports"
)

const familyColumns = `id, name, address, status, lat, lng, created_at`

type FamilyRepository struct {
	db *sql.DB
}

var _ ports.FamilyRepository = (*FamilyRepository)(nil)

func NewFamilyRepository(db *sql.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*domain.Family, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+familyColumns+` FROM families WHERE id = $1`, id)
	f, err := scanFamily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("family")
	}
	if err != nil {
		return nil, fmt.Errorf("find family: %w", err)
	}
	return &f, nil
}

// FindByIDs returns the families that exist among ids, keyed by id.
func (r *FamilyRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Family, error) {
	out := make(map[string]domain.Family, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	families, err := r.query(ctx, `SELECT `+familyColumns+` FROM families WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	for _, f := range families {
		out[f.ID] = f
	}
	return out, nil
}

func (r *FamilyRepository) List(ctx context.Context) ([]domain.Family, error) {
	return r.query(ctx, `SELECT `+familyColumns+` FROM families ORDER BY created_at DESC`)
}

// ResolveUrgency flips URGENT to ACTIVE and reports whether a row changed.
func (r *FamilyRepository) ResolveUrgency(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE families SET status = 'ACTIVE', updated_at = NOW()
		WHERE id = $1 AND status = 'URGENT'`, id)
	if err != nil {
		return false, fmt.Errorf("resolve urgency: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *FamilyRepository) query(ctx context.Context, q string, args ...any) ([]domain.Family, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query families: %w", err)
	}
	defer rows.Close()

	var families []domain.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

func scanFamily(s scanner) (domain.Family, error) {
	var (
		f        domain.Family
		status   string
		lat, lng sql.NullFloat64
	)
	if err := s.Scan(&f.ID, &f.Name, &f.Address, &status, &lat, &lng, &f.CreatedAt); err != nil {
		return domain.Family{}, err
	}
	f.Status = domain.FamilyStatus(status)
	if lat.Valid && lng.Valid {
		f.Coordinates = &domain.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return f, nil
}

type ItemRepository struct {
	db *sql.DB
}

var _ ports.ItemRepository = (*ItemRepository)(nil)

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, quantity, unit, min_threshold FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Quantity, &it.Unit, &it.MinThreshold); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
