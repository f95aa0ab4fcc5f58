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

// Package context provides typed accessors for request-scoped values
package context

import (
	"context"

	"github.com/bauhub/bauhub/pkg/server/session"
)

const sessionKey privateKey = "session"

type privateKey string

// WithSession creates a new context carrying the given session
func WithSession(ctx context.Context, sess session.UserSession) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// Session retrieves the session from the given context. The second return
// value reports whether a session was present.
func Session(ctx context.Context) (session.UserSession, bool) {
	if temp := ctx.Value(sessionKey); temp != nil {
		if sess, ok := temp.(session.UserSession); ok {
			return sess, true
		}
	}

	return session.UserSession{}, false
}
