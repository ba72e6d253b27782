// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is a catalog entry. Optional columns are pointers so NULL survives
// a round trip.
type Course struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	ShortDescription string     `json:"short_description"`
	FullDescription  string     `json:"full_description"`
	ImageURL         *string    `json:"image_url,omitempty"`
	PaymentURL       *string    `json:"payment_url,omitempty"`
	PriceDisplay     *string    `json:"price_display,omitempty"`
	CategoryID       *uuid.UUID `json:"category_id,omitempty"`
	IsPublished      bool       `json:"is_published"`
	IsFeatured       bool       `json:"is_featured"`
	SortOrder        int        `json:"sort_order"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`

	// Joined from course_categories by listing queries.
	CategoryName *string `json:"category_name,omitempty"`
	CategorySlug *string `json:"category_slug,omitempty"`

	// Tags is populated only by detail lookups.
	Tags []Tag `json:"tags,omitempty"`
}

// HasPaymentURL reports whether the course can be bought.
func (c *Course) HasPaymentURL() bool {
	return c.PaymentURL != nil && *c.PaymentURL != ""
}

// Click is one recorded visit to a course's payment link.
type Click struct {
	ID        int64     `json:"id"`
	CourseID  uuid.UUID `json:"course_id"`
	ClickedAt time.Time `json:"clicked_at"`
	IPHash    *string   `json:"ip_hash,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
}

// CourseStats aggregates clicks for the admin dashboard.
type CourseStats struct {
	CourseID     uuid.UUID `json:"course_id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	TotalClicks  int       `json:"total_clicks"`
	RecentClicks int       `json:"recent_clicks"`
}
