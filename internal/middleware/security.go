// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import "net/http"

// ContentSecurityPolicy is sent with every response. Cover images come
// from the storage host over https, the TOTP QR code is a data: URL, and
// the only script is HTMX from unpkg.
const ContentSecurityPolicy = "default-src 'self'; img-src 'self' https: data:; " +
	"script-src 'self' https://unpkg.com; style-src 'self'; " +
	"frame-ancestors 'self'; form-action 'self'; base-uri 'self'"

// securityHeaders are set on every response before the handler runs.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "SAMEORIGIN",
	"X-XSS-Protection":        "0",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Permissions-Policy":      "interest-cohort=()",
	"Content-Security-Policy": ContentSecurityPolicy,
}

// SecureHeaders adds securityHeaders to every response. Handlers may
// still override any of them.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range securityHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}
