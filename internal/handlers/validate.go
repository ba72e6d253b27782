package handlers

import (
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"coursecatalog/internal/models"
	"coursecatalog/internal/slug"
)

// Validation limits for catalog form fields.
const (
	maxNameLen      = 100
	maxTitleLen     = 300
	maxSlugLen      = 300
	maxShortDescLen = 500
	maxFullDescLen  = 100_000
	maxPriceLen     = 100
	maxURLLen       = 2_000
)

// defaultRedirect is where a successful sign-in lands without redirectTo.
const defaultRedirect = "/admin"

// validateName checks the name of a category or tag.
func validateName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Nome é obrigatório."
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "Nome muito longo (máximo de 100 caracteres)."
	}
	return ""
}

// normalizeSlug turns a manually typed slug into its canonical form. An
// empty input returns "" with manual false, meaning the slug should be
// derived from the name instead.
func normalizeSlug(raw string) (s string, manual bool, errMsg string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, ""
	}
	s = slug.Generate(raw)
	if s == "" {
		return "", true, "Slug inválido: use letras, números ou hífens."
	}
	if utf8.RuneCountInString(s) > maxSlugLen {
		return "", true, "Slug muito longo (máximo de 300 caracteres)."
	}
	return s, true, ""
}

// validatePaymentURL accepts an empty value or an absolute http(s) URL.
func validatePaymentURL(raw string) string {
	if raw == "" {
		return ""
	}
	if len(raw) > maxURLLen {
		return "Link de pagamento muito longo."
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "Link de pagamento deve ser uma URL http(s) completa."
	}
	return ""
}

// courseForm is the parsed, validated content of the course form.
type courseForm struct {
	Course     models.Course
	Tags       []uuid.UUID
	Slug       string // normalised manual slug, "" when derived from the title
	ManualSlug bool
}

// parseCourseForm validates the course fields and returns the first error
// found. No store or network call happens before this succeeds.
func parseCourseForm(form url.Values) (*courseForm, string) {
	f := &courseForm{}
	c := &f.Course

	c.Title = strings.TrimSpace(form.Get("title"))
	if c.Title == "" {
		return f, "Título é obrigatório."
	}
	if utf8.RuneCountInString(c.Title) > maxTitleLen {
		return f, "Título muito longo (máximo de 300 caracteres)."
	}

	c.ShortDescription = strings.TrimSpace(form.Get("short_description"))
	if c.ShortDescription == "" {
		return f, "Descrição curta é obrigatória."
	}
	if utf8.RuneCountInString(c.ShortDescription) > maxShortDescLen {
		return f, "Descrição curta muito longa (máximo de 500 caracteres)."
	}

	c.FullDescription = form.Get("full_description")
	if utf8.RuneCountInString(c.FullDescription) > maxFullDescLen {
		return f, "Descrição completa muito longa (máximo de 100.000 caracteres)."
	}

	rawCategory := strings.TrimSpace(form.Get("category_id"))
	if rawCategory == "" {
		return f, "Categoria é obrigatória."
	}
	catID, err := uuid.Parse(rawCategory)
	if err != nil {
		return f, "Categoria inválida."
	}
	c.CategoryID = &catID

	if payment := strings.TrimSpace(form.Get("payment_url")); payment != "" {
		if msg := validatePaymentURL(payment); msg != "" {
			return f, msg
		}
		c.PaymentURL = &payment
	}

	if price := strings.TrimSpace(form.Get("price_display")); price != "" {
		if utf8.RuneCountInString(price) > maxPriceLen {
			return f, "Preço muito longo (máximo de 100 caracteres)."
		}
		c.PriceDisplay = &price
	}

	if raw := strings.TrimSpace(form.Get("sort_order")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return f, "Ordem deve ser um número inteiro."
		}
		c.SortOrder = n
	}

	c.IsPublished = form.Get("is_published") == "true"
	c.IsFeatured = form.Get("is_featured") == "true"
	f.Tags = parseIDs(form["tags"])

	var msg string
	f.Slug, f.ManualSlug, msg = normalizeSlug(form.Get("slug"))
	if msg != "" {
		return f, msg
	}
	return f, ""
}

// parseIDs parses a list of UUID strings, dropping invalid entries and
// duplicates while keeping order.
func parseIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// sanitizeRedirect keeps only local absolute paths so a crafted
// redirectTo cannot send the user to another host.
func sanitizeRedirect(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return defaultRedirect
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return defaultRedirect
	}
	return raw
}
