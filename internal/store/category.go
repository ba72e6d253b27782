// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"coursecatalog/internal/models"
)

// CategoryStore manages course categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

const categoryColumns = `id, name, slug, created_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	if err := scanner.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns all categories ordered by name, each with the number of
// courses (published or not) that reference it.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	return s.list(ctx, `
		SELECT c.id, c.name, c.slug, c.created_at, COUNT(co.id)
		FROM course_categories c
		LEFT JOIN courses co ON co.category_id = c.id
		GROUP BY c.id
		ORDER BY c.name
	`)
}

// ListWithPublishedCounts returns all categories ordered by name, counting
// only published courses.
func (s *CategoryStore) ListWithPublishedCounts(ctx context.Context) ([]models.Category, error) {
	return s.list(ctx, `
		SELECT c.id, c.name, c.slug, c.created_at, COUNT(co.id)
		FROM course_categories c
		LEFT JOIN courses co ON co.category_id = c.id AND co.is_published
		GROUP BY c.id
		ORDER BY c.name
	`)
}

func (s *CategoryStore) list(ctx context.Context, query string) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.CourseCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM course_categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a category by slug. Returns nil if not found.
func (s *CategoryStore) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM course_categories WHERE slug = $1`, slug)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by slug: %w", err)
	}
	return c, nil
}

// SlugOwner reports which category currently holds slug.
func (s *CategoryStore) SlugOwner(ctx context.Context, slug string) (uuid.UUID, bool, error) {
	return slugOwner(ctx, s.db, "course_categories", slug)
}

// Create inserts c. With autoSuffix, c.Slug is treated as a base and a
// numeric suffix is appended until it is unique; otherwise a taken slug
// fails with ErrDuplicateSlug. On success c.ID, c.Slug and c.CreatedAt are
// set.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category, autoSuffix bool) error {
	return writeSlug(ctx, c.Slug, autoSuffix, func(ctx context.Context, candidate string) error {
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO course_categories (name, slug)
			VALUES ($1, $2)
			RETURNING id, created_at
		`, c.Name, candidate).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return classify("create category", err)
		}
		c.Slug = candidate
		return nil
	})
}

// Update modifies the name and slug of an existing category, following
// the same slug rules as Create.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category, autoSuffix bool) error {
	return writeSlug(ctx, c.Slug, autoSuffix, func(ctx context.Context, candidate string) error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE course_categories SET name = $1, slug = $2 WHERE id = $3
		`, c.Name, candidate, c.ID)
		if err != nil {
			return classify("update category", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		c.Slug = candidate
		return nil
	})
}

// Delete removes a category. It refuses with ErrCategoryInUse when any
// course references the category; the ON DELETE RESTRICT foreign key
// reports the same error if a course is added between check and delete.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	var inUse bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM courses WHERE category_id = $1)`, id,
	).Scan(&inUse)
	if err != nil {
		return fmt.Errorf("check category usage: %w", err)
	}
	if inUse {
		return ErrCategoryInUse
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM course_categories WHERE id = $1`, id)
	if err != nil {
		err = classify("delete category", err)
		if errors.Is(err, ErrForeignKey) {
			return fmt.Errorf("delete category: %w", ErrCategoryInUse)
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of categories.
func (s *CategoryStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_categories`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}

// slugOwner looks up the id of the row in table that holds slug. table is
// always a constant from this package.
func slugOwner(ctx context.Context, db *sql.DB, table, slug string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE slug = $1`, slug).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%s slug owner: %w", table, err)
	}
	return id, true, nil
}
