// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// internalErrorMessage matches the message handlers send on store failures.
const internalErrorMessage = "Erro interno do servidor"

// Recoverer turns a handler panic into a 500 and logs it with the request
// id and signed-in user. The response carries the request id as a
// reference the admin can quote. Nothing is written when the handler had
// already started its response. Install it inside Logger so the 500 is
// logged too.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			attrs := append(requestAttrs(r),
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			slog.Error("panic recovered", attrs...)

			if rw, ok := w.(*responseWriter); ok && rw.written {
				return
			}
			msg := internalErrorMessage
			if id := chimw.GetReqID(r.Context()); id != "" {
				msg += " (ref. " + id + ")"
			}
			http.Error(w, msg, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
