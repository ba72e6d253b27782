package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/google/uuid"

	"coursecatalog/internal/models"
	"coursecatalog/internal/render"
	"coursecatalog/internal/slug"
	"coursecatalog/internal/storage"
	"coursecatalog/internal/store"
)

// maxUploadMemory is how much of a multipart body is kept in memory; the
// rest spills to temporary files.
const maxUploadMemory = 4 << 20

// courseFormData is what the course form template needs.
type courseFormData struct {
	Course       *models.Course
	SelectedTags []uuid.UUID
	IsNew        bool
	Error        string
}

// renderCourseForm loads the category and tag choices and renders the form.
func (a *Admin) renderCourseForm(w http.ResponseWriter, r *http.Request, status int, d courseFormData) {
	ctx := r.Context()
	categories, err := a.categories.List(ctx)
	if err != nil {
		serverError(w, "list categories failed", err)
		return
	}
	tags, err := a.tags.List(ctx)
	if err != nil {
		serverError(w, "list tags failed", err)
		return
	}

	title := "Editar curso"
	if d.IsNew {
		title = "Novo curso"
	}
	a.renderer.PageStatus(w, r, status, "course_form", &render.PageData{
		Title:   title,
		Section: "cursos",
		Data: map[string]any{
			"Course":         d.Course,
			"SelectedTags":   d.SelectedTags,
			"IsNew":          d.IsNew,
			"Error":          d.Error,
			"Categories":     categories,
			"Tags":           tags,
			"StorageEnabled": a.bucket != nil,
		},
	})
}

// CoursesList renders every course, published or not.
func (a *Admin) CoursesList(w http.ResponseWriter, r *http.Request) {
	courses, err := a.courses.ListAll(r.Context())
	if err != nil {
		serverError(w, "list courses failed", err)
		return
	}
	a.renderer.Page(w, r, "courses", &render.PageData{
		Title:   "Cursos",
		Section: "cursos",
		Data:    map[string]any{"Courses": courses},
	})
}

// CourseNew renders an empty course form.
func (a *Admin) CourseNew(w http.ResponseWriter, r *http.Request) {
	a.renderCourseForm(w, r, http.StatusOK, courseFormData{Course: &models.Course{}, IsNew: true})
}

// CourseCreate validates the form, uploads the optional cover image and
// inserts the course with its tags.
func (a *Admin) CourseCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, ok := a.parseCourseRequest(w, r, nil)
	if !ok {
		return
	}
	c := &f.Course

	img, msg := a.readCoverImage(r)
	if msg != "" {
		a.renderCourseForm(w, r, http.StatusUnprocessableEntity, courseFormData{Course: c, SelectedTags: f.Tags, IsNew: true, Error: msg})
		return
	}
	if img != nil {
		url, err := a.uploadCover(ctx, img)
		if err != nil {
			a.renderCourseForm(w, r, http.StatusBadGateway, courseFormData{Course: c, SelectedTags: f.Tags, IsNew: true, Error: "Falha ao enviar a imagem. Tente novamente."})
			return
		}
		c.ImageURL = &url
	}

	c.Slug = f.Slug
	if !f.ManualSlug {
		c.Slug = slug.Generate(c.Title)
	}
	msg, err := writeErrorMessage(a.courses.Create(ctx, c, f.Tags, !f.ManualSlug))
	if msg != "" || err != nil {
		// The row was not written; drop the object uploaded for it.
		a.removeImage(ctx, c.ImageURL)
		c.ImageURL = nil
		if err != nil {
			serverError(w, "create course failed", err)
			return
		}
		c.Slug = f.Slug
		a.renderCourseForm(w, r, http.StatusUnprocessableEntity, courseFormData{Course: c, SelectedTags: f.Tags, IsNew: true, Error: msg})
		return
	}

	a.invalidatePublic(ctx, "course", c.ID, "create")
	http.Redirect(w, r, "/admin/cursos", http.StatusSeeOther)
}

// CourseEdit renders the form for an existing course.
func (a *Admin) CourseEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	c, err := a.courses.FindByID(ctx, id)
	if err != nil {
		serverError(w, "find course failed", err, "id", id)
		return
	}
	if c == nil {
		http.NotFound(w, r)
		return
	}
	tagIDs, err := a.courses.TagIDs(ctx, id)
	if err != nil {
		serverError(w, "course tags failed", err, "id", id)
		return
	}

	a.renderCourseForm(w, r, http.StatusOK, courseFormData{Course: c, SelectedTags: tagIDs})
}

// CourseUpdate validates the form and saves an existing course. A new
// upload or the remove_image checkbox replaces the current cover; the old
// object is deleted once the row no longer points at it.
func (a *Admin) CourseUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	existing, err := a.courses.FindByID(ctx, id)
	if err != nil {
		serverError(w, "find course failed", err, "id", id)
		return
	}
	if existing == nil {
		http.NotFound(w, r)
		return
	}

	f, ok := a.parseCourseRequest(w, r, existing)
	if !ok {
		return
	}
	c := &f.Course
	formData := func(msg string) courseFormData {
		return courseFormData{Course: c, SelectedTags: f.Tags, Error: msg}
	}

	img, msg := a.readCoverImage(r)
	if msg != "" {
		a.renderCourseForm(w, r, http.StatusUnprocessableEntity, formData(msg))
		return
	}

	var replaced *string
	if r.FormValue("remove_image") == "true" {
		replaced, c.ImageURL = existing.ImageURL, nil
	}
	var uploaded *string
	if img != nil {
		url, err := a.uploadCover(ctx, img)
		if err != nil {
			a.renderCourseForm(w, r, http.StatusBadGateway, formData("Falha ao enviar a imagem. Tente novamente."))
			return
		}
		uploaded = &url
		replaced, c.ImageURL = existing.ImageURL, uploaded
	}

	c.Slug = f.Slug
	if !f.ManualSlug {
		c.Slug = slug.Generate(c.Title)
	}
	err = a.courses.Update(ctx, c, f.Tags, !f.ManualSlug)
	if err != nil {
		a.removeImage(ctx, uploaded)
		c.ImageURL = existing.ImageURL
	}
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	msg, err = writeErrorMessage(err)
	if err != nil {
		serverError(w, "update course failed", err, "id", id)
		return
	}
	if msg != "" {
		c.Slug = f.Slug
		a.renderCourseForm(w, r, http.StatusUnprocessableEntity, formData(msg))
		return
	}

	a.removeImage(ctx, replaced)
	a.invalidatePublic(ctx, "course", id, "update")
	http.Redirect(w, r, "/admin/cursos", http.StatusSeeOther)
}

// CoursePublish sets the publication flag from the course list.
func (a *Admin) CoursePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}

	published := r.FormValue("publicado") == "true"
	err := a.courses.SetPublished(r.Context(), id, published)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, "set course published failed", err, "id", id)
		return
	}

	action := "unpublish"
	if published {
		action = "publish"
	}
	a.invalidatePublic(r.Context(), "course", id, action)
	http.Redirect(w, r, "/admin/cursos", http.StatusSeeOther)
}

// CourseDelete removes a course, its tag links and clicks, then its cover
// image.
func (a *Admin) CourseDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	imageURL, err := a.courses.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, "delete course failed", err, "id", id)
		return
	}

	a.removeImage(ctx, imageURL)
	a.invalidatePublic(ctx, "course", id, "delete")
	finishDelete(w, r, "/admin/cursos")
}

// parseCourseRequest parses the (usually multipart) body and validates the
// course fields. existing is the stored course on edit and nil on create;
// its id and cover carry over into the form. On failure it has already
// written the response.
func (a *Admin) parseCourseRequest(w http.ResponseWriter, r *http.Request, existing *models.Course) (*courseForm, bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "Formulário inválido", http.StatusBadRequest)
		return nil, false
	}

	f, msg := parseCourseForm(r.Form)
	if existing != nil {
		f.Course.ID = existing.ID
		f.Course.ImageURL = existing.ImageURL
	}
	if msg != "" {
		f.Course.Slug = r.FormValue("slug")
		a.renderCourseForm(w, r, http.StatusUnprocessableEntity, courseFormData{
			Course: &f.Course, SelectedTags: f.Tags, IsNew: existing == nil, Error: msg,
		})
		return nil, false
	}
	return f, true
}

// coverUpload is a validated image from the course form.
type coverUpload struct {
	image    *storage.Image
	filename string
}

// readCoverImage validates the optional image field. It returns nil when
// no file was sent, and a form message when the file is rejected.
func (a *Admin) readCoverImage(r *http.Request) (*coverUpload, string) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, ""
	}
	if err != nil {
		return nil, "Não foi possível ler a imagem enviada."
	}
	defer file.Close()

	if header.Size == 0 {
		return nil, ""
	}
	if a.bucket == nil {
		return nil, "O envio de imagens não está configurado."
	}
	img, msg := readImageFile(file)
	if msg != "" {
		return nil, msg
	}
	return &coverUpload{image: img, filename: header.Filename}, ""
}

func readImageFile(file multipart.File) (*storage.Image, string) {
	img, err := storage.ReadImage(file)
	switch {
	case err == nil:
		return img, ""
	case errors.Is(err, storage.ErrImageType):
		return nil, "Formato de imagem não suportado. Use JPEG, PNG ou WebP."
	case errors.Is(err, storage.ErrImageTooLarge):
		return nil, "A imagem deve ter no máximo 2 MB."
	case errors.Is(err, storage.ErrImageTooManyPx):
		return nil, "A imagem tem resolução grande demais."
	default:
		return nil, "A imagem está corrompida ou não pôde ser lida."
	}
}

// uploadCover stores a validated image and returns its public URL.
func (a *Admin) uploadCover(ctx context.Context, up *coverUpload) (string, error) {
	url, err := storage.PutImage(ctx, a.bucket, up.image, up.filename)
	if err != nil {
		slog.Error("cover upload failed", "error", err)
		return "", err
	}
	return url, nil
}

// removeImage deletes a stored cover. Failures are logged and otherwise
// ignored.
func (a *Admin) removeImage(ctx context.Context, url *string) {
	if url == nil || *url == "" || a.bucket == nil {
		return
	}
	if err := storage.RemoveURL(ctx, a.bucket, *url); err != nil {
		slog.Warn("cover removal failed", "error", err, "url", *url)
	}
}
