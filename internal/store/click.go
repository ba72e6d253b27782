package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"coursecatalog/internal/models"
)

// ClickStore records payment-link clicks and aggregates them.
type ClickStore struct {
	db *sql.DB
}

// NewClickStore returns a new ClickStore.
func NewClickStore(db *sql.DB) *ClickStore {
	return &ClickStore{db: db}
}

// Record inserts a click. ClickedAt defaults to now when zero.
func (s *ClickStore) Record(ctx context.Context, click *models.Click) error {
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO analytics_clicks (course_id, clicked_at, ip_hash, user_agent)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, click.CourseID, click.ClickedAt, click.IPHash, click.UserAgent).Scan(&click.ID)
	if err != nil {
		return classify("record click", err)
	}
	return nil
}

// Stats returns per-course click totals, plus the clicks since the given
// time, for the limit most clicked courses.
func (s *ClickStore) Stats(ctx context.Context, since time.Time, limit int) ([]models.CourseStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT co.id, co.title, co.slug,
		       COUNT(ac.id),
		       COUNT(ac.id) FILTER (WHERE ac.clicked_at >= $1)
		FROM courses co
		JOIN analytics_clicks ac ON ac.course_id = co.id
		GROUP BY co.id
		ORDER BY COUNT(ac.id) DESC, co.title
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("click stats: %w", err)
	}
	defer rows.Close()

	var stats []models.CourseStats
	for rows.Next() {
		var st models.CourseStats
		if err := rows.Scan(&st.CourseID, &st.Title, &st.Slug, &st.TotalClicks, &st.RecentClicks); err != nil {
			return nil, fmt.Errorf("scan click stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Totals returns the number of clicks overall and since the given time.
func (s *ClickStore) Totals(ctx context.Context, since time.Time) (total, recent int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE clicked_at >= $1) FROM analytics_clicks
	`, since).Scan(&total, &recent)
	if err != nil {
		return 0, 0, fmt.Errorf("click totals: %w", err)
	}
	return total, recent, nil
}
