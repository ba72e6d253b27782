package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"coursecatalog/internal/models"
	"coursecatalog/internal/render"
	"coursecatalog/internal/slug"
	"coursecatalog/internal/store"
)

// nameForm is the shared form for categories and tags.
type nameForm struct {
	Title   string
	Section string
	Table   string // slug preview table
	Action  string
	Back    string
	ID      string
	Name    string
	Slug    string
	Error   string
}

func (a *Admin) renderNameForm(w http.ResponseWriter, r *http.Request, status int, f nameForm) {
	a.renderer.PageStatus(w, r, status, "name_form", &render.PageData{
		Title:   f.Title,
		Section: f.Section,
		Data: map[string]any{
			"Table":  f.Table,
			"Action": f.Action,
			"Back":   f.Back,
			"ID":     f.ID,
			"Name":   f.Name,
			"Slug":   f.Slug,
			"Error":  f.Error,
		},
	})
}

// saveNamed validates a category or tag form and stores it through write.
// A blank slug is derived from the name and suffixed until free; a typed
// slug is normalised and stored as-is. The returned message is non-empty
// when the form must be shown again.
func saveNamed(ctx context.Context, name, rawSlug string, write func(ctx context.Context, name, slug string, autoSuffix bool) error) (string, error) {
	name = strings.TrimSpace(name)
	if msg := validateName(name); msg != "" {
		return msg, nil
	}
	s, manual, msg := normalizeSlug(rawSlug)
	if msg != "" {
		return msg, nil
	}
	if !manual {
		s = slug.Generate(name)
	}
	return writeErrorMessage(write(ctx, name, s, !manual))
}

// --- Categories ---

func categoryForm(isNew bool) nameForm {
	f := nameForm{Section: "categorias", Table: "categorias", Back: "/admin/categorias"}
	if isNew {
		f.Title = "Nova categoria"
		f.Action = "/admin/categorias"
	} else {
		f.Title = "Editar categoria"
	}
	return f
}

// CategoriesList renders all categories with their course counts.
func (a *Admin) CategoriesList(w http.ResponseWriter, r *http.Request) {
	a.renderCategories(w, r, nil)
}

func (a *Admin) renderCategories(w http.ResponseWriter, r *http.Request, flashes []render.Flash) {
	items, err := a.categories.List(r.Context())
	if err != nil {
		serverError(w, "list categories failed", err)
		return
	}
	a.renderer.Page(w, r, "categories", &render.PageData{
		Title:   "Categorias",
		Section: "categorias",
		Flashes: flashes,
		Data:    map[string]any{"Categories": items},
	})
}

// CategoryNew renders an empty category form.
func (a *Admin) CategoryNew(w http.ResponseWriter, r *http.Request) {
	a.renderNameForm(w, r, http.StatusOK, categoryForm(true))
}

// CategoryCreate validates and inserts a category.
func (a *Admin) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	c := &models.Category{}
	msg, err := saveNamed(r.Context(), r.FormValue("name"), r.FormValue("slug"),
		func(ctx context.Context, name, s string, autoSuffix bool) error {
			c.Name, c.Slug = name, s
			return a.categories.Create(ctx, c, autoSuffix)
		})
	if err != nil {
		serverError(w, "create category failed", err)
		return
	}
	if msg != "" {
		f := categoryForm(true)
		f.Name, f.Slug, f.Error = r.FormValue("name"), r.FormValue("slug"), msg
		a.renderNameForm(w, r, http.StatusUnprocessableEntity, f)
		return
	}

	a.invalidatePublic(r.Context(), "category", c.ID, "create")
	http.Redirect(w, r, "/admin/categorias", http.StatusSeeOther)
}

// CategoryEdit renders the form for an existing category.
func (a *Admin) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	c, err := a.categories.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, "find category failed", err, "id", id)
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}

	f := categoryForm(false)
	f.Action = "/admin/categorias/" + id.String()
	f.ID, f.Name, f.Slug = id.String(), c.Name, c.Slug
	a.renderNameForm(w, r, http.StatusOK, f)
}

// CategoryUpdate validates and saves an existing category.
func (a *Admin) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	msg, err := saveNamed(r.Context(), r.FormValue("name"), r.FormValue("slug"),
		func(ctx context.Context, name, s string, autoSuffix bool) error {
			return a.categories.Update(ctx, &models.Category{ID: id, Name: name, Slug: s}, autoSuffix)
		})
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, "update category failed", err, "id", id)
		return
	}
	if msg != "" {
		f := categoryForm(false)
		f.Action = "/admin/categorias/" + id.String()
		f.ID, f.Name, f.Slug, f.Error = id.String(), r.FormValue("name"), r.FormValue("slug"), msg
		a.renderNameForm(w, r, http.StatusUnprocessableEntity, f)
		return
	}

	a.invalidatePublic(r.Context(), "category", id, "update")
	http.Redirect(w, r, "/admin/categorias", http.StatusSeeOther)
}

// CategoryDelete removes a category that no course references. When courses
// still use it the list is shown again with an explanation.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	err := a.categories.Delete(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, store.ErrCategoryInUse):
		// Swap the whole list instead of the row so the message shows.
		w.Header().Set("HX-Retarget", "#content")
		w.Header().Set("HX-Reswap", "innerHTML")
		a.renderCategories(w, r, []render.Flash{{
			Type:    "error",
			Message: "Esta categoria possui cursos. Mova ou exclua os cursos antes de excluí-la.",
		}})
		return
	case err != nil:
		serverError(w, "delete category failed", err, "id", id)
		return
	}

	a.invalidatePublic(r.Context(), "category", id, "delete")
	finishDelete(w, r, "/admin/categorias")
}

// --- Tags ---

func tagForm(isNew bool) nameForm {
	f := nameForm{Section: "tags", Table: "tags", Back: "/admin/tags"}
	if isNew {
		f.Title = "Nova tag"
		f.Action = "/admin/tags"
	} else {
		f.Title = "Editar tag"
	}
	return f
}

// TagsList renders all tags with their course counts.
func (a *Admin) TagsList(w http.ResponseWriter, r *http.Request) {
	items, err := a.tags.List(r.Context())
	if err != nil {
		serverError(w, "list tags failed", err)
		return
	}
	a.renderer.Page(w, r, "tags", &render.PageData{
		Title:   "Tags",
		Section: "tags",
		Data:    map[string]any{"Tags": items},
	})
}

// TagNew renders an empty tag form.
func (a *Admin) TagNew(w http.ResponseWriter, r *http.Request) {
	a.renderNameForm(w, r, http.StatusOK, tagForm(true))
}

// TagCreate validates and inserts a tag.
func (a *Admin) TagCreate(w http.ResponseWriter, r *http.Request) {
	t := &models.Tag{}
	msg, err := saveNamed(r.Context(), r.FormValue("name"), r.FormValue("slug"),
		func(ctx context.Context, name, s string, autoSuffix bool) error {
			t.Name, t.Slug = name, s
			return a.tags.Create(ctx, t, autoSuffix)
		})
	if err != nil {
		serverError(w, "create tag failed", err)
		return
	}
	if msg != "" {
		f := tagForm(true)
		f.Name, f.Slug, f.Error = r.FormValue("name"), r.FormValue("slug"), msg
		a.renderNameForm(w, r, http.StatusUnprocessableEntity, f)
		return
	}

	a.invalidatePublic(r.Context(), "tag", t.ID, "create")
	http.Redirect(w, r, "/admin/tags", http.StatusSeeOther)
}

// TagEdit renders the form for an existing tag.
func (a *Admin) TagEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	t, err := a.tags.FindByID(r.Context(), id)
	if err != nil {
		serverError(w, "find tag failed", err, "id", id)
		return
	}
	if t == nil {
		http.NotFound(w, r)
		return
	}

	f := tagForm(false)
	f.Action = "/admin/tags/" + id.String()
	f.ID, f.Name, f.Slug = id.String(), t.Name, t.Slug
	a.renderNameForm(w, r, http.StatusOK, f)
}

// TagUpdate validates and saves an existing tag.
func (a *Admin) TagUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	msg, err := saveNamed(r.Context(), r.FormValue("name"), r.FormValue("slug"),
		func(ctx context.Context, name, s string, autoSuffix bool) error {
			return a.tags.Update(ctx, &models.Tag{ID: id, Name: name, Slug: s}, autoSuffix)
		})
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, "update tag failed", err, "id", id)
		return
	}
	if msg != "" {
		f := tagForm(false)
		f.Action = "/admin/tags/" + id.String()
		f.ID, f.Name, f.Slug, f.Error = id.String(), r.FormValue("name"), r.FormValue("slug"), msg
		a.renderNameForm(w, r, http.StatusUnprocessableEntity, f)
		return
	}

	a.invalidatePublic(r.Context(), "tag", id, "update")
	http.Redirect(w, r, "/admin/tags", http.StatusSeeOther)
}

// TagDelete removes a tag and detaches it from every course.
func (a *Admin) TagDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	err := a.tags.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, "delete tag failed", err, "id", id)
		return
	}

	a.invalidatePublic(r.Context(), "tag", id, "delete")
	finishDelete(w, r, "/admin/tags")
}
