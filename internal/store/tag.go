// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"coursecatalog/internal/models"
)

// TagStore manages course tags in the database.
type TagStore struct {
	db *sql.DB
}

// NewTagStore returns a new TagStore.
func NewTagStore(db *sql.DB) *TagStore {
	return &TagStore{db: db}
}

// List returns all tags ordered by name with their course counts.
func (s *TagStore) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.created_at, COUNT(m.course_id)
		FROM course_tags t
		LEFT JOIN course_tag_map m ON m.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var items []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.CourseCount); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// FindByID retrieves a tag by ID. Returns nil if not found.
func (s *TagStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at FROM course_tags WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find tag by id: %w", err)
	}
	return &t, nil
}

// SlugOwner reports which tag currently holds slug.
func (s *TagStore) SlugOwner(ctx context.Context, slug string) (uuid.UUID, bool, error) {
	return slugOwner(ctx, s.db, "course_tags", slug)
}

// Create inserts t, following the slug rules of CategoryStore.Create.
func (s *TagStore) Create(ctx context.Context, t *models.Tag, autoSuffix bool) error {
	return writeSlug(ctx, t.Slug, autoSuffix, func(ctx context.Context, candidate string) error {
		err := s.db.QueryRowContext(ctx, `
			INSERT INTO course_tags (name, slug)
			VALUES ($1, $2)
			RETURNING id, created_at
		`, t.Name, candidate).Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return classify("create tag", err)
		}
		t.Slug = candidate
		return nil
	})
}

// Update modifies the name and slug of an existing tag.
func (s *TagStore) Update(ctx context.Context, t *models.Tag, autoSuffix bool) error {
	return writeSlug(ctx, t.Slug, autoSuffix, func(ctx context.Context, candidate string) error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE course_tags SET name = $1, slug = $2 WHERE id = $3`,
			t.Name, candidate, t.ID,
		)
		if err != nil {
			return classify("update tag", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		t.Slug = candidate
		return nil
	})
}

// Delete removes a tag. Its course associations go with it.
func (s *TagStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM course_tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of tags.
func (s *TagStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM course_tags`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tags: %w", err)
	}
	return n, nil
}
