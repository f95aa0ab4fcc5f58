/* Copyright 2025 Bauhub Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package middleware

import (
	"net/http"

	"github.com/bauhub/bauhub/pkg/server/log"
)

// Middleware wraps a route handler with the cross-cutting concerns of its
// route group
type Middleware func(h http.HandlerFunc, rateLimit bool) http.Handler

// NewAPIMw returns the middleware for API routes
func NewAPIMw(rl *RateLimiter) Middleware {
	return func(h http.HandlerFunc, rateLimit bool) http.Handler {
		return ApplyLimit(rl, h, rateLimit)
	}
}

// Global wraps the router with the middleware applied to every request
func Global(h http.Handler) http.Handler {
	return logging(recoverPanic(h))
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Debug("handled request")
	})
}

func recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"panic": rec,
					"path":  r.URL.Path,
				}).Error("recovered from panic")
				respondError(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
