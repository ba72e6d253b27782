package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"coursecatalog/internal/middleware"
	"coursecatalog/internal/models"
	"coursecatalog/internal/render"
	"coursecatalog/internal/session"
	"coursecatalog/internal/store"
)

// totpIssuer is the account label shown in authenticator apps.
const totpIssuer = "Catalogo de Cursos"

// Auth groups the sign-in, second factor, sign-out and TOTP enrollment
// handlers.
type Auth struct {
	renderer *render.Renderer
	sessions *session.Store
	users    *store.UserStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions *session.Store, users *store.UserStore) *Auth {
	return &Auth{
		renderer: renderer,
		sessions: sessions,
		users:    users,
	}
}

// LoginPage renders the login form. A complete session skips straight to
// the requested page.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirectTo := sanitizeRedirect(r.URL.Query().Get("redirectTo"))

	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.Complete() {
		http.Redirect(w, r, redirectTo, http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "login", &render.PageData{
		Title: "Entrar",
		Data:  map[string]any{"RedirectTo": redirectTo},
	})
}

// LoginSubmit checks the credentials and opens a session. Users with TOTP
// enabled continue to the code prompt before the session counts.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	redirectTo := sanitizeRedirect(r.FormValue("redirectTo"))

	fail := func(status int, msg string) {
		a.renderer.PageStatus(w, r, status, "login", &render.PageData{
			Title: "Entrar",
			Data:  map[string]any{"Error": msg, "Email": email, "RedirectTo": redirectTo},
		})
	}

	user, err := a.users.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		fail(http.StatusInternalServerError, "Ocorreu um erro inesperado. Tente novamente.")
		return
	}
	if user == nil || !a.users.CheckPassword(user, password) {
		slog.Info("login rejected", "email", email, "remote", middleware.ClientIP(r))
		fail(http.StatusUnauthorized, "E-mail ou senha inválidos.")
		return
	}

	// Never reuse a session id across a sign-in.
	if middleware.SessionFromCtx(ctx) != nil {
		if err := a.sessions.Destroy(ctx, w, r); err != nil {
			slog.Warn("previous session destroy failed", "error", err)
		}
	}

	data := &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Roles:       user.Roles,
		Needs2FA:    user.Requires2FA(),
	}
	if _, err := a.sessions.Create(ctx, w, data); err != nil {
		slog.Error("session create failed", "error", err)
		fail(http.StatusInternalServerError, "Ocorreu um erro inesperado. Tente novamente.")
		return
	}

	if data.Needs2FA {
		http.Redirect(w, r, middleware.SecondFactorPath+"?redirectTo="+url.QueryEscape(redirectTo), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

// Login2FAPage renders the TOTP code prompt.
func (a *Auth) Login2FAPage(w http.ResponseWriter, r *http.Request) {
	redirectTo := sanitizeRedirect(r.URL.Query().Get("redirectTo"))

	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}
	if sess.Complete() {
		http.Redirect(w, r, redirectTo, http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "login_2fa", &render.PageData{
		Title: "Verificação em dois fatores",
		Data:  map[string]any{"RedirectTo": redirectTo},
	})
}

// Login2FASubmit validates the TOTP code and completes the session.
func (a *Auth) Login2FASubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	redirectTo := sanitizeRedirect(r.FormValue("redirectTo"))

	sess := middleware.SessionFromCtx(ctx)
	if sess == nil {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}

	user, err := a.users.FindByID(ctx, sess.UserID)
	if err != nil {
		serverError(w, "user lookup for 2fa failed", err, "user_id", sess.UserID)
		return
	}
	if user == nil {
		a.sessions.Destroy(ctx, w, r)
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}

	// TOTP may have been disabled since sign-in; then there is nothing to check.
	if user.Requires2FA() && !totp.Validate(strings.TrimSpace(r.FormValue("code")), *user.TOTPSecret) {
		a.renderer.PageStatus(w, r, http.StatusUnauthorized, "login_2fa", &render.PageData{
			Title: "Verificação em dois fatores",
			Data:  map[string]any{"Error": "Código inválido. Tente novamente.", "RedirectTo": redirectTo},
		})
		return
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(ctx, r, sess); err != nil {
		serverError(w, "session update failed", err)
		return
	}
	http.Redirect(w, r, redirectTo, http.StatusSeeOther)
}

// Logout destroys the session and redirects to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

// SecurityPage shows the TOTP status of the signed-in user. A secret that
// was generated but never confirmed is shown again.
func (a *Auth) SecurityPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		serverError(w, "user lookup failed", err, "user_id", sess.UserID)
		return
	}
	a.renderSecurity(w, r, http.StatusOK, user, "", "")
}

// SecuritySubmit handles the enroll, confirm and disable actions of the
// security page.
func (a *Auth) SecuritySubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFromCtx(ctx)
	user, err := a.users.FindByID(ctx, sess.UserID)
	if err != nil || user == nil {
		serverError(w, "user lookup failed", err, "user_id", sess.UserID)
		return
	}
	code := strings.TrimSpace(r.FormValue("code"))

	switch r.FormValue("action") {
	case "enroll":
		if user.TOTPEnabled {
			a.renderSecurity(w, r, http.StatusConflict, user, "A verificação em dois fatores já está ativa.", "")
			return
		}
		key, err := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: user.Email})
		if err != nil {
			serverError(w, "totp generate failed", err)
			return
		}
		if err := a.users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
			serverError(w, "save totp secret failed", err)
			return
		}
		secret := key.Secret()
		user.TOTPSecret = &secret
		a.renderSecurity(w, r, http.StatusOK, user, "", "")

	case "confirm":
		if user.TOTPSecret == nil || user.TOTPEnabled {
			http.Redirect(w, r, "/admin/seguranca", http.StatusSeeOther)
			return
		}
		if !totp.Validate(code, *user.TOTPSecret) {
			a.renderSecurity(w, r, http.StatusUnprocessableEntity, user, "Código inválido. Tente novamente.", "")
			return
		}
		if err := a.users.EnableTOTP(ctx, user.ID); err != nil {
			serverError(w, "enable totp failed", err)
			return
		}
		// The code just proved the second factor for this session too.
		sess.Needs2FA, sess.TwoFADone = true, true
		if err := a.sessions.Update(ctx, r, sess); err != nil {
			slog.Warn("session update after totp enable failed", "error", err)
		}
		user.TOTPEnabled = true
		a.renderSecurity(w, r, http.StatusOK, user, "", "Verificação em dois fatores ativada.")

	case "disable":
		if !user.Requires2FA() {
			http.Redirect(w, r, "/admin/seguranca", http.StatusSeeOther)
			return
		}
		if !totp.Validate(code, *user.TOTPSecret) {
			a.renderSecurity(w, r, http.StatusUnprocessableEntity, user, "Código inválido. Tente novamente.", "")
			return
		}
		if err := a.users.DisableTOTP(ctx, user.ID); err != nil {
			serverError(w, "disable totp failed", err)
			return
		}
		sess.Needs2FA, sess.TwoFADone = false, false
		if err := a.sessions.Update(ctx, r, sess); err != nil {
			slog.Warn("session update after totp disable failed", "error", err)
		}
		user.TOTPEnabled, user.TOTPSecret = false, nil
		a.renderSecurity(w, r, http.StatusOK, user, "", "Verificação em dois fatores desativada.")

	default:
		http.Error(w, "Ação inválida", http.StatusBadRequest)
	}
}

func (a *Auth) renderSecurity(w http.ResponseWriter, r *http.Request, status int, user *models.User, errMsg, message string) {
	data := map[string]any{
		"TOTPEnabled": user.TOTPEnabled,
		"Error":       errMsg,
		"Message":     message,
	}

	if !user.TOTPEnabled && user.TOTPSecret != nil {
		png, err := qrcode.Encode(totpURL(user.Email, *user.TOTPSecret), qrcode.Medium, 256)
		if err != nil {
			serverError(w, "qr code generation failed", err)
			return
		}
		data["QRCode"] = base64.StdEncoding.EncodeToString(png)
		data["Secret"] = *user.TOTPSecret
	}

	a.renderer.PageStatus(w, r, status, "security", &render.PageData{
		Title:   "Segurança",
		Section: "seguranca",
		Data:    data,
	})
}

// totpURL builds the otpauth:// URI authenticator apps scan.
func totpURL(account, secret string) string {
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", totpIssuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + totpIssuer + ":" + account,
		RawQuery: q.Encode(),
	}
	return u.String()
}
