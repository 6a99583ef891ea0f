package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-widget/pkg/simplewidget"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplewidget.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) simplewidget.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) simplewidget.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "slug") {
				return simplewidget.ErrSlugTaken
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return simplewidget.ErrWidgetNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const widgetColumns = `
	id, owner_id, slug, title, config_data, asset_refs, version,
	is_active, expires_at, created_at, updated_at`

func (r *Repository) CreateWidget(ctx context.Context, widget *simplewidget.Widget) error {
	config, refs, err := marshalDocuments(widget)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO widgets (
			id, owner_id, slug, title, config_data, asset_refs, version,
			is_active, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.Exec(ctx, query,
		widget.ID, widget.OwnerID, widget.Slug, widget.Title, config, refs,
		widget.Version, widget.IsActive, widget.ExpiresAt,
		widget.CreatedAt, widget.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create widget", err)
	}

	return nil
}

func (r *Repository) GetWidget(ctx context.Context, id uuid.UUID) (*simplewidget.Widget, error) {
	query := `SELECT ` + widgetColumns + `
		FROM widgets WHERE id = $1 AND deleted_at IS NULL`

	return r.scanWidget(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetWidgetBySlug(ctx context.Context, slug string) (*simplewidget.Widget, error) {
	query := `SELECT ` + widgetColumns + `
		FROM widgets WHERE slug = $1 AND deleted_at IS NULL`

	return r.scanWidget(r.db.QueryRow(ctx, query, slug))
}

func (r *Repository) ListWidgets(ctx context.Context, ownerID uuid.UUID) ([]*simplewidget.Widget, error) {
	query := `SELECT ` + widgetColumns + `
		FROM widgets WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.handlePostgresError("list widgets", err)
	}
	defer rows.Close()

	var widgets []*simplewidget.Widget
	for rows.Next() {
		widget, err := r.scanWidget(rows)
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, widget)
	}

	return widgets, rows.Err()
}

func (r *Repository) UpdateWidget(ctx context.Context, widget *simplewidget.Widget) error {
	config, refs, err := marshalDocuments(widget)
	if err != nil {
		return err
	}

	query := `
		UPDATE widgets SET
			slug = $2, title = $3, config_data = $4, asset_refs = $5,
			version = $6, is_active = $7, expires_at = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		widget.ID, widget.Slug, widget.Title, config, refs,
		widget.Version, widget.IsActive, widget.ExpiresAt, widget.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update widget", err)
	}
	if tag.RowsAffected() == 0 {
		return simplewidget.ErrWidgetNotFound
	}

	return nil
}

func (r *Repository) DeleteWidget(ctx context.Context, id uuid.UUID) error {
	// Soft delete; the partial unique index on slug ignores deleted rows,
	// so the slug frees up immediately.
	query := `
		UPDATE widgets SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("delete widget", err)
	}
	if tag.RowsAffected() == 0 {
		return simplewidget.ErrWidgetNotFound
	}

	return nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM widgets WHERE slug = $1 AND deleted_at IS NULL)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, slug).Scan(&exists); err != nil {
		return false, r.handlePostgresError("check slug", err)
	}

	return exists, nil
}

func (r *Repository) scanWidget(row pgx.Row) (*simplewidget.Widget, error) {
	var (
		widget simplewidget.Widget
		config []byte
		refs   []byte
	)

	err := row.Scan(
		&widget.ID, &widget.OwnerID, &widget.Slug, &widget.Title,
		&config, &refs, &widget.Version, &widget.IsActive,
		&widget.ExpiresAt, &widget.CreatedAt, &widget.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplewidget.ErrWidgetNotFound
		}
		return nil, err
	}

	if len(config) > 0 {
		if err := json.Unmarshal(config, &widget.ConfigData); err != nil {
			return nil, fmt.Errorf("decode config_data: %w", err)
		}
	}
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &widget.AssetRefs); err != nil {
			return nil, fmt.Errorf("decode asset_refs: %w", err)
		}
	}

	return &widget, nil
}

func marshalDocuments(widget *simplewidget.Widget) ([]byte, []byte, error) {
	config, err := json.Marshal(widget.ConfigData)
	if err != nil {
		return nil, nil, fmt.Errorf("encode config_data: %w", err)
	}
	refs, err := json.Marshal(widget.AssetRefs)
	if err != nil {
		return nil, nil, fmt.Errorf("encode asset_refs: %w", err)
	}
	return config, refs, nil
}
