// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// tagIDs returns the tag ids currently mapped to a course.
func tagIDs(ctx context.Context, db dbtx, courseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT tag_id FROM course_tag_map WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, fmt.Errorf("course tag ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan course tag id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// syncTags makes the course's tag set equal to want, touching only the
// rows that differ. Ids of tags that do not exist are skipped.
func syncTags(ctx context.Context, db dbtx, courseID uuid.UUID, want []uuid.UUID) error {
	current, err := tagIDs(ctx, db, courseID)
	if err != nil {
		return err
	}

	added, removed := diffTags(current, want)

	for _, id := range removed {
		if _, err := db.ExecContext(ctx,
			`DELETE FROM course_tag_map WHERE course_id = $1 AND tag_id = $2`,
			courseID, id,
		); err != nil {
			return fmt.Errorf("unmap tag %s: %w", id, err)
		}
	}

	for _, id := range added {
		if _, err := db.ExecContext(ctx, `
			INSERT INTO course_tag_map (course_id, tag_id)
			SELECT $1, id FROM course_tags WHERE id = $2
			ON CONFLICT DO NOTHING
		`, courseID, id); err != nil {
			return fmt.Errorf("map tag %s: %w", id, err)
		}
	}
	return nil
}

// diffTags compares the current and desired tag sets. Duplicates in either
// input are ignored; output order follows the input order.
func diffTags(current, want []uuid.UUID) (added, removed []uuid.UUID) {
	have := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	wanted := make(map[uuid.UUID]bool, len(want))
	for _, id := range want {
		if wanted[id] {
			continue
		}
		wanted[id] = true
		if !have[id] {
			added = append(added, id)
		}
	}

	seen := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !wanted[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
