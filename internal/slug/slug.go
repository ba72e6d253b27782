// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings
// and helpers for picking a slug that is free in a table.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonSlugChars matches anything that isn't a lowercase letter, digit,
	// whitespace or hyphen.
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespaceRuns matches one or more whitespace characters.
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from the given string. Accents are
// folded to their base letter before filtering.
// Example: "São Paulo: Guia 2026" → "sao-paulo-guia-2026"
//
// An empty result means the input had no usable characters.
func Generate(s string) string {
	result := stripMarks(foldSpaces(s))
	result = strings.ToLower(strings.TrimSpace(result))
	result = nonSlugChars.ReplaceAllString(result, "")
	result = whitespaceRuns.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// stripMarks decomposes s (NFD) and drops combining marks. A transformer
// chain keeps state, so one is built per call.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// foldSpaces maps every Unicode space (NBSP, ideographic space, ...) to an
// ASCII space so the \s class below sees it.
func foldSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}
