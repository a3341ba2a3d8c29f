package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campus-eats/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*MenuItem, error)
	List(ctx context.Context, filter ListFilter) ([]MenuItem, error)
	Categories(ctx context.Context) ([]Category, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const menuItemColumns = `
	m.id, m.name, m.description, m.price, m.category, m.image,
	m.ingredients, m.is_vegetarian, m.is_vegan, m.is_gluten_free,
	m.spice_level, m.preparation_time, m.is_available, m.rating,
	m.review_count, m.created_at, m.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(row rowScanner) (*MenuItem, error) {
	var m MenuItem
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Description,
		&m.Price,
		&m.Category,
		&m.Image,
		pq.Array(&m.Ingredients),
		&m.IsVegetarian,
		&m.IsVegan,
		&m.IsGlutenFree,
		&m.SpiceLevel,
		&m.PreparationTime,
		&m.IsAvailable,
		&m.Rating,
		&m.ReviewCount,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*MenuItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT`+menuItemColumns+`
		FROM menu_items m
		WHERE m.id = $1
	`, id)

	item, err := scanMenuItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMenuItemNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return item, nil
}

// List returns available items only, ranked by text relevance when searching
// and newest first otherwise.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]MenuItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListMenuItems"),
	)

	query := `SELECT` + menuItemColumns + `
		FROM menu_items m
		WHERE m.is_available = TRUE`

	args := []any{}
	argIndex := 1

	if filter.Category != nil {
		query += fmt.Sprintf(" AND m.category = $%d", argIndex)
		args = append(args, string(*filter.Category))
		argIndex++
	}
	if filter.Vegetarian {
		query += " AND m.is_vegetarian = TRUE"
	}
	if filter.Vegan {
		query += " AND m.is_vegan = TRUE"
	}
	if filter.GlutenFree {
		query += " AND m.is_gluten_free = TRUE"
	}

	orderBy := "m.created_at DESC"
	if filter.Search != "" {
		query += fmt.Sprintf(
			" AND to_tsvector('english', m.name || ' ' || m.description) @@ plainto_tsquery('english', $%d)",
			argIndex,
		)
		orderBy = fmt.Sprintf(
			"ts_rank(to_tsvector('english', m.name || ' ' || m.description), plainto_tsquery('english', $%d)) DESC",
			argIndex,
		)
		args = append(args, filter.Search)
	}

	query += " ORDER BY " + orderBy

	log.Debug("executing list menu query", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query menu items", zap.Error(err))
		return nil, storageError(err)
	}
	defer rows.Close()

	items := []MenuItem{}
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			log.Error("failed to scan menu item", zap.Error(err))
			return nil, storageError(err)
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}
	return items, nil
}

func (r *repository) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT category
		FROM menu_items
		WHERE is_available = TRUE
		ORDER BY category
	`)
	if err != nil {
		return nil, storageError(err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c); err != nil {
			return nil, storageError(err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(err)
	}
	return categories, nil
}
