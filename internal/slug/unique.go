// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MaxAttempts bounds how many suffixed candidates are tried before giving up.
const MaxAttempts = 100

var (
	// ErrEmpty is returned when a name produces no slug characters at all.
	ErrEmpty = errors.New("slug: empty")

	// ErrTaken signals that a write was rejected because the slug already
	// exists. Storage layers wrap their unique-constraint error with it.
	ErrTaken = errors.New("slug: already taken")

	// ErrExhausted is returned when every candidate up to MaxAttempts is taken.
	ErrExhausted = errors.New("slug: no free candidate")
)

// Candidate returns the n-th candidate for base: base itself for n == 0,
// base-n otherwise.
func Candidate(base string, n int) string {
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// LookupFunc reports which row, if any, currently owns a slug.
type LookupFunc func(ctx context.Context, slug string) (owner uuid.UUID, found bool, err error)

// Unique derives a slug from name and returns the first candidate that is
// free in the table behind lookup. A candidate owned by existingID counts
// as free, so editing a record keeps its slug.
//
// The answer is only a snapshot: another writer can take the slug before
// it is stored. Use Claim on the write path.
func Unique(ctx context.Context, name string, lookup LookupFunc, existingID *uuid.UUID) (string, error) {
	base := Generate(name)
	if base == "" {
		return "", ErrEmpty
	}

	for n := 0; n < MaxAttempts; n++ {
		candidate := Candidate(base, n)
		owner, found, err := lookup(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug lookup %q: %w", candidate, err)
		}
		if !found || (existingID != nil && owner == *existingID) {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}

// Claim stores a record under the first free candidate derived from base.
// write must attempt the insert or update with the given slug and return
// an error wrapping ErrTaken when the unique constraint rejects it; Claim
// then retries with the next suffix. Any other error stops the loop.
func Claim(ctx context.Context, base string, write func(ctx context.Context, candidate string) error) (string, error) {
	if base == "" {
		return "", ErrEmpty
	}

	for n := 0; n < MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := Candidate(base, n)
		err := write(ctx, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, ErrTaken) {
			return "", err
		}
	}
	return "", ErrExhausted
}
