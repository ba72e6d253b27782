package handlers

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{"valid", "Programação", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"at limit", strings.Repeat("á", 100), false},
		{"too long", strings.Repeat("a", 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateName(tt.input)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}

func TestNormalizeSlug(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantSlug   string
		wantManual bool
		wantError  bool
	}{
		{"blank derives from name", "", "", false, false},
		{"whitespace derives from name", "  ", "", false, false},
		{"already canonical", "go-basico", "go-basico", true, false},
		{"normalised", "  Go Básico!  ", "go-basico", true, false},
		{"nothing usable", "!!!", "", true, true},
		{"too long", strings.Repeat("a", 301), "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, manual, msg := normalizeSlug(tt.input)
			if got != tt.wantSlug {
				t.Errorf("slug: got %q, want %q", got, tt.wantSlug)
			}
			if manual != tt.wantManual {
				t.Errorf("manual: got %v, want %v", manual, tt.wantManual)
			}
			if (msg != "") != tt.wantError {
				t.Errorf("error: got %q, wantError %v", msg, tt.wantError)
			}
		})
	}
}

func TestValidatePaymentURL(t *testing.T) {
	tests := []struct {
		input     string
		wantError bool
	}{
		{"", false},
		{"https://pay.example.com/c/1", false},
		{"http://pay.example.com", false},
		{"pay.example.com/c/1", true},
		{"/relative/path", true},
		{"javascript:alert(1)", true},
		{"ftp://files.example.com", true},
		{"https://" + strings.Repeat("a", 2_001), true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := validatePaymentURL(tt.input)
			if (result != "") != tt.wantError {
				t.Errorf("validatePaymentURL(%q) = %q, wantError %v", tt.input, result, tt.wantError)
			}
		})
	}
}

// validCourseForm returns form values that pass parseCourseForm.
func validCourseForm() url.Values {
	return url.Values{
		"title":             {"Go para iniciantes"},
		"short_description": {"Aprenda Go do zero."},
		"full_description":  {"# Conteúdo"},
		"category_id":       {uuid.NewString()},
		"payment_url":       {"https://pay.example.com/go"},
		"price_display":     {"R$ 99,00"},
		"sort_order":        {"3"},
		"is_published":      {"true"},
	}
}

func TestParseCourseForm_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(url.Values)
		wantMsg string
	}{
		{"missing title", func(v url.Values) { v.Del("title") }, "Título"},
		{"title too long", func(v url.Values) { v.Set("title", strings.Repeat("a", 301)) }, "Título"},
		{"missing short description", func(v url.Values) { v.Set("short_description", " ") }, "Descrição curta"},
		{"short description too long", func(v url.Values) { v.Set("short_description", strings.Repeat("a", 501)) }, "Descrição curta"},
		{"full description too long", func(v url.Values) { v.Set("full_description", strings.Repeat("a", 100_001)) }, "Descrição completa"},
		{"missing category", func(v url.Values) { v.Del("category_id") }, "Categoria é obrigatória"},
		{"invalid category", func(v url.Values) { v.Set("category_id", "not-a-uuid") }, "Categoria inválida"},
		{"bad payment url", func(v url.Values) { v.Set("payment_url", "pay.example.com") }, "Link de pagamento"},
		{"non-integer sort order", func(v url.Values) { v.Set("sort_order", "1.5") }, "Ordem"},
		{"unusable slug", func(v url.Values) { v.Set("slug", "???") }, "Slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validCourseForm()
			tt.mutate(form)
			_, msg := parseCourseForm(form)
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("got %q, want message containing %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestParseCourseForm_Valid(t *testing.T) {
	form := validCourseForm()
	tagA, tagB := uuid.New(), uuid.New()
	form["tags"] = []string{tagA.String(), "garbage", tagB.String(), tagA.String()}
	form.Set("slug", "Go Iniciantes")

	f, msg := parseCourseForm(form)
	if msg != "" {
		t.Fatalf("unexpected error: %s", msg)
	}

	c := f.Course
	if c.Title != "Go para iniciantes" || c.SortOrder != 3 || !c.IsPublished || c.IsFeatured {
		t.Errorf("unexpected course fields: %+v", c)
	}
	if c.CategoryID == nil || c.CategoryID.String() != form.Get("category_id") {
		t.Errorf("CategoryID: got %v", c.CategoryID)
	}
	if c.PaymentURL == nil || *c.PaymentURL != "https://pay.example.com/go" {
		t.Errorf("PaymentURL: got %v", c.PaymentURL)
	}
	if len(f.Tags) != 2 || f.Tags[0] != tagA || f.Tags[1] != tagB {
		t.Errorf("Tags: got %v, want [%s %s]", f.Tags, tagA, tagB)
	}
	if f.Slug != "go-iniciantes" || !f.ManualSlug {
		t.Errorf("Slug: got %q manual=%v", f.Slug, f.ManualSlug)
	}
}

func TestParseCourseForm_OptionalFieldsEmpty(t *testing.T) {
	form := validCourseForm()
	form.Del("payment_url")
	form.Del("price_display")
	form.Del("sort_order")

	f, msg := parseCourseForm(form)
	if msg != "" {
		t.Fatalf("unexpected error: %s", msg)
	}
	if f.Course.PaymentURL != nil || f.Course.PriceDisplay != nil {
		t.Error("blank optional fields should stay nil")
	}
	if f.Course.SortOrder != 0 {
		t.Errorf("SortOrder: got %d, want 0", f.Course.SortOrder)
	}
	if f.ManualSlug {
		t.Error("blank slug should be derived from the title")
	}
}

func TestSanitizeRedirect(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "/admin"},
		{"/admin/cursos", "/admin/cursos"},
		{"/admin/cursos?x=1", "/admin/cursos?x=1"},
		{"https://evil.example.com", "/admin"},
		{"//evil.example.com", "/admin"},
		{"/\\evil.example.com", "/admin"},
		{"admin", "/admin"},
		{"javascript:alert(1)", "/admin"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := sanitizeRedirect(tt.input); got != tt.want {
				t.Errorf("sanitizeRedirect(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
