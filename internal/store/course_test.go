// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"

	"coursecatalog/internal/models"
)

func strPtr(s string) *string { return &s }

func TestDiffTags(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name        string
		current     []uuid.UUID
		want        []uuid.UUID
		wantAdded   []uuid.UUID
		wantRemoved []uuid.UUID
	}{
		{"empty", nil, nil, nil, nil},
		{"add all", nil, []uuid.UUID{a, b}, []uuid.UUID{a, b}, nil},
		{"remove all", []uuid.UUID{a, b}, nil, nil, []uuid.UUID{a, b}},
		{"unchanged", []uuid.UUID{a, b}, []uuid.UUID{b, a}, nil, nil},
		{"swap", []uuid.UUID{a, b, c}, []uuid.UUID{b, d}, []uuid.UUID{d}, []uuid.UUID{a, c}},
		{"duplicates in want", nil, []uuid.UUID{a, a, b}, []uuid.UUID{a, b}, nil},
		{"duplicates in current", []uuid.UUID{a, a}, nil, nil, []uuid.UUID{a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := diffTags(tt.current, tt.want)
			if !slices.Equal(added, tt.wantAdded) {
				t.Errorf("added = %v, want %v", added, tt.wantAdded)
			}
			if !slices.Equal(removed, tt.wantRemoved) {
				t.Errorf("removed = %v, want %v", removed, tt.wantRemoved)
			}
		})
	}
}

func TestCourseStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	cats := NewCategoryStore(db)
	tags := NewTagStore(db)
	s := NewCourseStore(db)
	ctx := context.Background()

	prefix := uniq("course-cf")
	t.Cleanup(func() {
		cleanCourses(t, db, prefix)
		cleanCategories(t, db, prefix)
		cleanTags(t, db, prefix)
	})

	cat := &models.Category{Name: "Design", Slug: prefix}
	if err := cats.Create(ctx, cat, false); err != nil {
		t.Fatalf("Create category: %v", err)
	}
	tagB := &models.Tag{Name: "B", Slug: prefix + "-b"}
	tagA := &models.Tag{Name: "A", Slug: prefix + "-a"}
	for _, tag := range []*models.Tag{tagB, tagA} {
		if err := tags.Create(ctx, tag, false); err != nil {
			t.Fatalf("Create tag: %v", err)
		}
	}

	c := &models.Course{
		Title:            "Figma do Zero",
		Slug:             prefix + "-figma",
		ShortDescription: "Interfaces",
		FullDescription:  "# Módulo 1",
		PaymentURL:       strPtr("https://pay.example.com/figma"),
		CategoryID:       &cat.ID,
		IsPublished:      true,
	}
	// An unknown tag id is skipped rather than failing the write.
	if err := s.Create(ctx, c, []uuid.UUID{tagB.ID, tagA.ID, uuid.New()}, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.PublishedAt == nil {
		t.Error("expected published_at to be stamped on a published create")
	}

	found, err := s.FindPublishedBySlug(ctx, c.Slug)
	if err != nil || found == nil {
		t.Fatalf("FindPublishedBySlug: %v %v", found, err)
	}
	if found.CategoryName == nil || *found.CategoryName != "Design" {
		t.Errorf("CategoryName: %v", found.CategoryName)
	}
	if len(found.Tags) != 2 || found.Tags[0].Name != "A" || found.Tags[1].Name != "B" {
		t.Errorf("Tags: %+v", found.Tags)
	}
	if !found.HasPaymentURL() {
		t.Error("expected payment url")
	}
}

func TestCourseStoreUnpublishedHidden(t *testing.T) {
	db := testDB(t)
	s := NewCourseStore(db)
	ctx := context.Background()

	prefix := uniq("course-hidden")
	t.Cleanup(func() { cleanCourses(t, db, prefix) })

	c := &models.Course{Title: "Rascunho", Slug: prefix, ShortDescription: "x"}
	if err := s.Create(ctx, c, nil, false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.PublishedAt != nil {
		t.Error("draft must not have published_at")
	}

	found, err := s.FindPublishedBySlug(ctx, prefix)
	if err != nil {
		t.Fatalf("FindPublishedBySlug: %v", err)
	}
	if found != nil {
		t.Error("draft course must not be found by the public lookup")
	}

	if err := s.SetPublished(ctx, c.ID, true); err != nil {
		t.Fatalf("SetPublished: %v", err)
	}
	found, _ = s.FindPublishedBySlug(ctx, prefix)
	if found == nil || found.PublishedAt == nil {
		t.Fatalf("expected published course with timestamp, got %+v", found)
	}
	first := *found.PublishedAt

	// Republishing keeps the original timestamp.
	s.SetPublished(ctx, c.ID, false)
	s.SetPublished(ctx, c.ID, true)
	found, _ = s.FindPublishedBySlug(ctx, prefix)
	if !found.PublishedAt.Equal(first) {
		t.Errorf("published_at changed: %v -> %v", first, *found.PublishedAt)
	}

	if err := s.SetPublished(ctx, uuid.New(), true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPublished unknown: got %v", err)
	}
}

func TestCourseStoreUnknownCategory(t *testing.T) {
	db := testDB(t)
	s := NewCourseStore(db)
	ctx := context.Background()

	prefix := uniq("course-fk")
	t.Cleanup(func() { cleanCourses(t, db, prefix) })

	missing := uuid.New()
	c := &models.Course{Title: "Órfão", Slug: prefix, ShortDescription: "x", CategoryID: &missing}
	err := s.Create(ctx, c, nil, false)
	if !errors.Is(err, ErrForeignKey) {
		t.Fatalf("got %v, want ErrForeignKey", err)
	}
	if owner, found, _ := s.SlugOwner(ctx, prefix); found {
		t.Errorf("no row should exist, found owner %s", owner)
	}
}

func TestCourseStoreSlugSuffix(t *testing.T) {
	db := testDB(t)
	s := NewCourseStore(db)
	ctx := context.Background()

	prefix := uniq("course-sfx")
	t.Cleanup(func() { cleanCourses(t, db, prefix) })

	first := &models.Course{Title: "Go", Slug: prefix, ShortDescription: "x"}
	if err := s.Create(ctx, first, nil, false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	manual := &models.Course{Title: "Go", Slug: prefix, ShortDescription: "x"}
	if err := s.Create(ctx, manual, nil, false); !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("manual duplicate: got %v", err)
	}

	second := &models.Course{Title: "Go", Slug: prefix, ShortDescription: "x"}
	if err := s.Create(ctx, second, nil, true); err != nil {
		t.Fatalf("auto Create: %v", err)
	}
	if second.Slug != prefix+"-1" {
		t.Errorf("slug = %q, want %q", second.Slug, prefix+"-1")
	}

	// Editing a course onto its own slug is not a conflict.
	first.Title = "Go Avançado"
	if err := s.Update(ctx, first, nil, false); err != nil {
		t.Fatalf("Update self: %v", err)
	}
	if first.Slug != prefix {
		t.Errorf("slug changed on self update: %q", first.Slug)
	}
}

func TestCourseStoreUpdateTags(t *testing.T) {
	db := testDB(t)
	tags := NewTagStore(db)
	s := NewCourseStore(db)
	ctx := context.Background()

	prefix := uniq("course-tags")
	t.Cleanup(func() {
		cleanCourses(t, db, prefix)
		cleanTags(t, db, prefix)
	})

	var ids []uuid.UUID
	for _, name := range []string{"x", "y", "z"} {
		tag := &models.Tag{Name: name, Slug: prefix + "-" + name}
		if err := tags.Create(ctx, tag, false); err != nil {
			t.Fatalf("Create tag: %v", err)
		}
		ids = append(ids, tag.ID)
	}

	c := &models.Course{Title: "T", Slug: prefix, ShortDescription: "x"}
	if err := s.Create(ctx, c, ids[:2], false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Update(ctx, c, ids[1:], false); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.TagIDs(ctx, c.ID)
	if err != nil {
		t.Fatalf("TagIDs: %v", err)
	}
	slices.SortFunc(got, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	want := slices.Clone(ids[1:])
	slices.SortFunc(want, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	if !slices.Equal(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}

	if err := s.Update(ctx, c, nil, false); err != nil {
		t.Fatalf("Update clear: %v", err)
	}
	if got, _ := s.TagIDs(ctx, c.ID); len(got) != 0 {
		t.Errorf("expected no tags, got %v", got)
	}

	c.ID = uuid.New()
	if err := s.Update(ctx, c, nil, false); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update unknown: got %v", err)
	}
}

func TestCourseStoreOrdering(t *testing.T) {
	db := testDB(t)
	s := NewCourseStore(db)
	ctx := context.Background()

	prefix := uniq("course-ord")
	t.Cleanup(func() { cleanCourses(t, db, prefix) })

	plain := &models.Course{Title: "Plain", Slug: prefix + "-plain", ShortDescription: "x", IsPublished: true, SortOrder: 0}
	late := &models.Course{Title: "Late", Slug: prefix + "-late", ShortDescription: "x", IsPublished: true, SortOrder: 5}
	star := &models.Course{Title: "Star", Slug: prefix + "-star", ShortDescription: "x", IsPublished: true, IsFeatured: true, SortOrder: 9}
	for _, c := range []*models.Course{late, plain, star} {
		if err := s.Create(ctx, c, nil, false); err != nil {
			t.Fatalf("Create %s: %v", c.Title, err)
		}
	}

	list, err := s.ListPublished(ctx)
	if err != nil {
		t.Fatalf("ListPublished: %v", err)
	}
	var order []string
	for _, c := range list {
		switch c.ID {
		case plain.ID, late.ID, star.ID:
			order = append(order, c.Title)
		}
	}
	if !slices.Equal(order, []string{"Star", "Plain", "Late"}) {
		t.Errorf("order = %v", order)
	}
}

func TestCourseStoreDeleteReturnsImage(t *testing.T) {
	db := testDB(t)
	s := NewCourseStore(db)
	ctx := context.Background()

	prefix := uniq("course-del")
	t.Cleanup(func() { cleanCourses(t, db, prefix) })

	img := "https://cdn.example.com/courses/a.png"
	c := &models.Course{Title: "Img", Slug: prefix, ShortDescription: "x", ImageURL: &img}
	if err := s.Create(ctx, c, nil, false); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Delete(ctx, c.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got == nil || *got != img {
		t.Errorf("image url = %v, want %s", got, img)
	}
	if _, err := s.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v", err)
	}
}
