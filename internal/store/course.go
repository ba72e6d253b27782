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

// CourseStore manages courses and their tag associations.
type CourseStore struct {
	db *sql.DB
}

// NewCourseStore returns a new CourseStore.
func NewCourseStore(db *sql.DB) *CourseStore {
	return &CourseStore{db: db}
}

// courseSelect joins the owning category so listings can show its name.
const courseSelect = `
	SELECT co.id, co.title, co.slug, co.short_description, co.full_description,
	       co.image_url, co.payment_url, co.price_display, co.category_id,
	       co.is_published, co.is_featured, co.sort_order,
	       co.created_at, co.updated_at, co.published_at,
	       cat.name, cat.slug
	FROM courses co
	LEFT JOIN course_categories cat ON cat.id = co.category_id`

// courseOrder puts featured courses first, then manual order, then newest.
const courseOrder = ` ORDER BY co.is_featured DESC, co.sort_order ASC, co.created_at DESC`

// scanCourse scans a courseSelect row into a Course struct.
func scanCourse(scanner interface{ Scan(...any) error }) (*models.Course, error) {
	var c models.Course
	err := scanner.Scan(
		&c.ID, &c.Title, &c.Slug, &c.ShortDescription, &c.FullDescription,
		&c.ImageURL, &c.PaymentURL, &c.PriceDisplay, &c.CategoryID,
		&c.IsPublished, &c.IsFeatured, &c.SortOrder,
		&c.CreatedAt, &c.UpdatedAt, &c.PublishedAt,
		&c.CategoryName, &c.CategorySlug,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CourseStore) query(ctx context.Context, op, query string, args ...any) ([]models.Course, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var items []models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// ListAll returns every course for the admin list.
func (s *CourseStore) ListAll(ctx context.Context) ([]models.Course, error) {
	return s.query(ctx, "list courses", courseSelect+courseOrder)
}

// ListPublished returns the published courses shown on the home page.
func (s *CourseStore) ListPublished(ctx context.Context) ([]models.Course, error) {
	return s.query(ctx, "list published courses", courseSelect+` WHERE co.is_published`+courseOrder)
}

// ListPublishedByCategory returns the published courses of one category.
func (s *CourseStore) ListPublishedByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Course, error) {
	return s.query(ctx, "list courses by category",
		courseSelect+` WHERE co.is_published AND co.category_id = $1`+courseOrder, categoryID)
}

// FindByID retrieves a course regardless of publication state. Returns nil
// if not found.
func (s *CourseStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx, courseSelect+` WHERE co.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find course by id: %w", err)
	}
	return c, nil
}

// FindPublishedBySlug retrieves a published course with its tags. Returns
// nil if no published course has that slug.
func (s *CourseStore) FindPublishedBySlug(ctx context.Context, slug string) (*models.Course, error) {
	c, err := scanCourse(s.db.QueryRowContext(ctx,
		courseSelect+` WHERE co.slug = $1 AND co.is_published`, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find course by slug: %w", err)
	}

	c.Tags, err = s.Tags(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Tags returns the tags attached to a course, ordered by name.
func (s *CourseStore) Tags(ctx context.Context, courseID uuid.UUID) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.created_at
		FROM course_tag_map m
		JOIN course_tags t ON t.id = m.tag_id
		WHERE m.course_id = $1
		ORDER BY t.name
	`, courseID)
	if err != nil {
		return nil, fmt.Errorf("course tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// TagIDs returns the ids of the tags attached to a course.
func (s *CourseStore) TagIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	return tagIDs(ctx, s.db, courseID)
}

// SlugOwner reports which course currently holds slug.
func (s *CourseStore) SlugOwner(ctx context.Context, slug string) (uuid.UUID, bool, error) {
	return slugOwner(ctx, s.db, "courses", slug)
}

// Create inserts c together with its tag set in one transaction. Slug rules
// match CategoryStore.Create; each suffixed attempt runs in a fresh
// transaction. Unknown tag ids are ignored. A category_id that does not
// exist fails with ErrForeignKey.
func (s *CourseStore) Create(ctx context.Context, c *models.Course, tags []uuid.UUID, autoSuffix bool) error {
	return writeSlug(ctx, c.Slug, autoSuffix, func(ctx context.Context, candidate string) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			err := tx.QueryRowContext(ctx, `
				INSERT INTO courses (
					title, slug, short_description, full_description,
					image_url, payment_url, price_display, category_id,
					is_published, is_featured, sort_order, published_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
				        CASE WHEN $9 THEN NOW() END)
				RETURNING id, created_at, updated_at, published_at
			`,
				c.Title, candidate, c.ShortDescription, c.FullDescription,
				c.ImageURL, c.PaymentURL, c.PriceDisplay, c.CategoryID,
				c.IsPublished, c.IsFeatured, c.SortOrder,
			).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.PublishedAt)
			if err != nil {
				return classify("create course", err)
			}

			if err := syncTags(ctx, tx, c.ID, tags); err != nil {
				return err
			}
			c.Slug = candidate
			return nil
		})
	})
}

// Update saves every editable column of c and reconciles its tag set in
// one transaction. published_at is stamped the first time the course is
// published.
func (s *CourseStore) Update(ctx context.Context, c *models.Course, tags []uuid.UUID, autoSuffix bool) error {
	return writeSlug(ctx, c.Slug, autoSuffix, func(ctx context.Context, candidate string) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			err := tx.QueryRowContext(ctx, `
				UPDATE courses SET
					title = $1, slug = $2, short_description = $3, full_description = $4,
					image_url = $5, payment_url = $6, price_display = $7, category_id = $8,
					is_published = $9, is_featured = $10, sort_order = $11,
					published_at = CASE WHEN $9 AND published_at IS NULL THEN NOW() ELSE published_at END,
					updated_at = NOW()
				WHERE id = $12
				RETURNING updated_at, published_at
			`,
				c.Title, candidate, c.ShortDescription, c.FullDescription,
				c.ImageURL, c.PaymentURL, c.PriceDisplay, c.CategoryID,
				c.IsPublished, c.IsFeatured, c.SortOrder, c.ID,
			).Scan(&c.UpdatedAt, &c.PublishedAt)
			if err == sql.ErrNoRows {
				return ErrNotFound
			}
			if err != nil {
				return classify("update course", err)
			}

			if err := syncTags(ctx, tx, c.ID, tags); err != nil {
				return err
			}
			c.Slug = candidate
			return nil
		})
	})
}

// SetPublished flips the publication flag of a course.
func (s *CourseStore) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE courses SET
			is_published = $1,
			published_at = CASE WHEN $1 AND published_at IS NULL THEN NOW() ELSE published_at END,
			updated_at = NOW()
		WHERE id = $2
	`, published, id)
	if err != nil {
		return fmt.Errorf("set course published: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a course and returns its image URL, if any, so the caller
// can remove the stored object.
func (s *CourseStore) Delete(ctx context.Context, id uuid.UUID) (*string, error) {
	var imageURL *string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM courses WHERE id = $1 RETURNING image_url`, id,
	).Scan(&imageURL)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("delete course: %w", err)
	}
	return imageURL, nil
}

// Count returns the number of courses and how many of them are published.
func (s *CourseStore) Count(ctx context.Context) (total, published int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_published) FROM courses`,
	).Scan(&total, &published)
	if err != nil {
		return 0, 0, fmt.Errorf("count courses: %w", err)
	}
	return total, published, nil
}

// inTx runs fn inside a transaction, committing when it returns nil.
func (s *CourseStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
