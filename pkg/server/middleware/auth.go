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

	"github.com/bauhub/bauhub/pkg/server/context"
	"github.com/bauhub/bauhub/pkg/server/log"
	"github.com/bauhub/bauhub/pkg/server/session"
)

// Auth is an authentication middleware. It resolves the caller's session
// through the given provider and stores it in the request context. Requests
// with no resolvable session are rejected; ownership is derived exclusively
// from the resolved session, never from payload fields.
func Auth(p session.Provider, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok, err := p.Get(r)
		if err != nil {
			log.ErrorWrap(err, "resolving session")
			RespondUnauthorized(w)
			return
		}
		if !ok {
			RespondUnauthorized(w)
			return
		}

		ctx := context.WithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}
