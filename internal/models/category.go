// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups courses. A course belongs to at most one category and a
// category cannot be removed while courses reference it.
type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`

	// CourseCount is populated by listing queries. Depending on the query it
	// counts every course or only published ones.
	CourseCount int `json:"course_count"`
}

// Tag is a free-form label attached to courses through course_tag_map.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`

	CourseCount int `json:"course_count"`
}
