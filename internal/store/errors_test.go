package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"coursecatalog/internal/slug"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    error
		notWant error
	}{
		{
			name: "slug unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "courses_slug_key"},
			want: ErrDuplicateSlug,
		},
		{
			name:    "other unique violation",
			err:     &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			notWant: ErrDuplicateSlug,
		},
		{
			name: "foreign key violation",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "courses_category_id_fkey"},
			want: ErrForeignKey,
		},
		{
			name:    "plain error",
			err:     errors.New("connection refused"),
			notWant: ErrForeignKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify("op", tt.err)
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error lost the driver error: %v", got)
			}
			if tt.want != nil && !errors.Is(got, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", got, tt.want)
			}
			if tt.notWant != nil && errors.Is(got, tt.notWant) {
				t.Errorf("errors.Is(%v, %v) = true", got, tt.notWant)
			}
		})
	}
}

func TestDuplicateSlugIsSlugTaken(t *testing.T) {
	if !errors.Is(ErrDuplicateSlug, slug.ErrTaken) {
		t.Fatal("ErrDuplicateSlug must match slug.ErrTaken so Claim retries on it")
	}
}

func TestWriteSlug(t *testing.T) {
	ctx := context.Background()

	t.Run("empty base", func(t *testing.T) {
		err := writeSlug(ctx, "", true, func(context.Context, string) error { return nil })
		if !errors.Is(err, slug.ErrEmpty) {
			t.Errorf("err = %v, want ErrEmpty", err)
		}
	})

	t.Run("manual slug is written once", func(t *testing.T) {
		calls := 0
		err := writeSlug(ctx, "python", false, func(context.Context, string) error {
			calls++
			return ErrDuplicateSlug
		})
		if !errors.Is(err, ErrDuplicateSlug) {
			t.Errorf("err = %v, want ErrDuplicateSlug", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("auto slug retries with suffix", func(t *testing.T) {
		var tried []string
		err := writeSlug(ctx, "python", true, func(_ context.Context, c string) error {
			tried = append(tried, c)
			if len(tried) < 3 {
				return ErrDuplicateSlug
			}
			return nil
		})
		if err != nil {
			t.Fatalf("writeSlug: %v", err)
		}
		want := []string{"python", "python-1", "python-2"}
		for i := range want {
			if tried[i] != want[i] {
				t.Errorf("attempt %d = %q, want %q", i, tried[i], want[i])
			}
		}
	})
}
