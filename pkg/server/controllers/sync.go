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

package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/bauhub/bauhub/pkg/server/app"
	"github.com/bauhub/bauhub/pkg/server/context"
	mw "github.com/bauhub/bauhub/pkg/server/middleware"
)

// NewSync creates a new Sync controller
func NewSync(app *app.App) *Sync {
	return &Sync{
		app: app,
	}
}

// Sync is the controller serving the bulk reconciliation and identity
// migration endpoints
type Sync struct {
	app *app.App
}

// SyncParams is the payload for the pull and push endpoints
type SyncParams struct {
	UserID string `json:"user_id"`
}

// IdentityParams is the payload for the identity migration endpoint
type IdentityParams struct {
	NewUserID string `json:"new_user_id"`
}

// SyncResult is the aggregate outcome of a reconciliation run
type SyncResult struct {
	Count int64 `json:"count"`
}

// Pull handles POST /v3/sync/pull
func (c *Sync) Pull(w http.ResponseWriter, r *http.Request) {
	sess, ok := context.Session(r.Context())
	if !ok {
		mw.RespondUnauthorized(w)
		return
	}

	var params SyncParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		mw.RespondInvalidParams(w, "invalid payload")
		return
	}

	count, err := c.app.PullAll(sess, params.UserID)
	if err != nil {
		handleAppError(w, "pulling remote data", err)
		return
	}

	mw.RespondJSON(w, http.StatusOK, SyncResult{Count: int64(count)})
}

// Push handles POST /v3/sync/push
func (c *Sync) Push(w http.ResponseWriter, r *http.Request) {
	sess, ok := context.Session(r.Context())
	if !ok {
		mw.RespondUnauthorized(w)
		return
	}

	var params SyncParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		mw.RespondInvalidParams(w, "invalid payload")
		return
	}

	count, err := c.app.PushAll(sess, params.UserID)
	if err != nil {
		handleAppError(w, "pushing local data", err)
		return
	}

	mw.RespondJSON(w, http.StatusOK, SyncResult{Count: int64(count)})
}

// Identity handles POST /v3/identity/sync
func (c *Sync) Identity(w http.ResponseWriter, r *http.Request) {
	if _, ok := context.Session(r.Context()); !ok {
		mw.RespondUnauthorized(w)
		return
	}

	var params IdentityParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		mw.RespondInvalidParams(w, "invalid payload")
		return
	}

	count, err := c.app.MigrateIdentity(params.NewUserID)
	if err != nil {
		handleAppError(w, "migrating identity", err)
		return
	}

	mw.RespondJSON(w, http.StatusOK, SyncResult{Count: count})
}
