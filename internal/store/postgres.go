package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tripnav/internal/model"
)

//go:embed schema.sql
var schemaSQL string

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies the embedded schema. Statements are idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schemaSQL)
	return err
}

func (p *Postgres) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, title, lat, lng, category, address FROM favorites ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Favorite{}
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) GetFavorite(ctx context.Context, id string) (model.Favorite, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, title, lat, lng, category, address FROM favorites WHERE id=$1`, id)
	f, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Favorite{}, ErrNotFound
	}
	return f, err
}

func (p *Postgres) PutFavorite(ctx context.Context, f model.Favorite) (model.Favorite, error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO favorites (id, title, lat, lng, category, address) VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, lat=EXCLUDED.lat, lng=EXCLUDED.lng, category=EXCLUDED.category, address=EXCLUDED.address`,
		f.ID, f.Title, f.Lat, f.Lon, nullIfEmpty(f.Category), nullIfEmpty(f.Address))
	if err != nil {
		return model.Favorite{}, err
	}
	return f, nil
}

func (p *Postgres) DeleteFavorite(ctx context.Context, id string) error {
	return p.deleteByID(ctx, `DELETE FROM favorites WHERE id=$1`, id)
}

func (p *Postgres) SaveRoute(ctx context.Context, r model.StoredRoute) (model.StoredRoute, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	created := time.Now().UTC()
	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			created = t
		}
	}
	r.CreatedAt = created.Format(time.RFC3339)
	points, err := toJSON(r.Points)
	if err != nil {
		return model.StoredRoute{}, err
	}
	waypoints, err := toJSON(r.Waypoints)
	if err != nil {
		return model.StoredRoute{}, err
	}
	polyline, err := toJSON(r.Polyline)
	if err != nil {
		return model.StoredRoute{}, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO routes (id, title, profile, outcome, distance_km, duration_hours, cost_currency, points, waypoints, polyline, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, profile=EXCLUDED.profile, outcome=EXCLUDED.outcome,
            distance_km=EXCLUDED.distance_km, duration_hours=EXCLUDED.duration_hours, cost_currency=EXCLUDED.cost_currency,
            points=EXCLUDED.points, waypoints=EXCLUDED.waypoints, polyline=EXCLUDED.polyline`,
		r.ID, r.Title, nullIfEmpty(r.Profile), nullIfEmpty(r.Outcome), r.DistanceKm, r.DurationHours, r.CostCurrency,
		points, waypoints, polyline, created)
	if err != nil {
		return model.StoredRoute{}, err
	}
	return r, nil
}

const routeColumns = `id, title, profile, outcome, distance_km, duration_hours, cost_currency, points, waypoints, polyline, created_at`

func (p *Postgres) GetRoute(ctx context.Context, id string) (model.StoredRoute, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id=$1`, id)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.StoredRoute{}, ErrNotFound
	}
	return r, err
}

const (
	listRoutesFirst = `SELECT ` + routeColumns + ` FROM routes ORDER BY created_at, id LIMIT $1`
	listRoutesAfter = `SELECT ` + routeColumns + ` FROM routes
        WHERE (created_at, id) > (SELECT created_at, id FROM routes WHERE id = $1)
        ORDER BY created_at, id LIMIT $2`
)

// ListRoutes pages in creation order, ties broken by id; cursor is the last
// id of the previous page.
func (p *Postgres) ListRoutes(ctx context.Context, cursor string, limit int) ([]model.StoredRoute, string, error) {
	limit = pageSize(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, listRoutesAfter, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, listRoutesFirst, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.StoredRoute{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) DeleteRoute(ctx context.Context, id string) error {
	return p.deleteByID(ctx, `DELETE FROM routes WHERE id=$1`, id)
}

func (p *Postgres) deleteByID(ctx context.Context, query, id string) error {
	res, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFavorite(s scanner) (model.Favorite, error) {
	var f model.Favorite
	var category, address sql.NullString
	if err := s.Scan(&f.ID, &f.Title, &f.Lat, &f.Lon, &category, &address); err != nil {
		return model.Favorite{}, err
	}
	f.Category = category.String
	f.Address = address.String
	return f, nil
}

func scanRoute(s scanner) (model.StoredRoute, error) {
	var r model.StoredRoute
	var profile, outcome sql.NullString
	var points, waypoints, polyline []byte
	var created time.Time
	if err := s.Scan(&r.ID, &r.Title, &profile, &outcome, &r.DistanceKm, &r.DurationHours, &r.CostCurrency,
		&points, &waypoints, &polyline, &created); err != nil {
		return model.StoredRoute{}, err
	}
	r.Profile = profile.String
	r.Outcome = outcome.String
	r.CreatedAt = created.UTC().Format(time.RFC3339)
	if err := fromJSON(points, &r.Points); err != nil {
		return model.StoredRoute{}, err
	}
	if err := fromJSON(waypoints, &r.Waypoints); err != nil {
		return model.StoredRoute{}, err
	}
	if err := fromJSON(polyline, &r.Polyline); err != nil {
		return model.StoredRoute{}, err
	}
	return r, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// toJSON encodes v for a JSONB column; empty slices are stored as NULL.
func toJSON[T any](v []T) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func fromJSON[T any](b []byte, dst *[]T) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
