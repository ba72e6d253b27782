// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"coursecatalog/internal/slug"
)

var (
	// ErrNotFound is returned by writes that target a row that does not exist.
	// Lookups return (nil, nil) instead.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicateSlug is returned when a slug unique constraint rejects a
	// write. It is slug.ErrTaken so slug.Claim can retry on it.
	ErrDuplicateSlug = slug.ErrTaken

	// ErrForeignKey is returned when a write references a missing row,
	// e.g. a course pointing at a deleted category.
	ErrForeignKey = errors.New("store: referenced row does not exist")

	// ErrCategoryInUse is returned when deleting a category that still has
	// courses.
	ErrCategoryInUse = errors.New("store: category has courses")
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify wraps err with op and, for known constraint violations, with the
// matching sentinel. The driver error stays in the chain.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && strings.HasSuffix(pgErr.ConstraintName, "_slug_key"):
			return fmt.Errorf("%s: %w: %w", op, ErrDuplicateSlug, err)
		case pgErr.Code == pgForeignKeyViolation:
			return fmt.Errorf("%s: %w: %w", op, ErrForeignKey, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// writeSlug runs write with the given slug. With autoSuffix the slug is a
// base that may be extended with -1, -2, ... until the unique constraint
// accepts it; otherwise it is written once and a conflict is returned to
// the caller.
func writeSlug(ctx context.Context, base string, autoSuffix bool, write func(ctx context.Context, candidate string) error) error {
	if base == "" {
		return slug.ErrEmpty
	}
	if !autoSuffix {
		return write(ctx, base)
	}
	_, err := slug.Claim(ctx, base, write)
	return err
}
