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

	"github.com/gorilla/mux"

	"github.com/bauhub/bauhub/pkg/server/app"
	"github.com/bauhub/bauhub/pkg/server/context"
	mw "github.com/bauhub/bauhub/pkg/server/middleware"
	"github.com/bauhub/bauhub/pkg/server/schema"
)

// NewRecords creates a new Records controller
func NewRecords(app *app.App) *Records {
	return &Records{
		app: app,
	}
}

// Records is the controller serving the entity CRUD endpoints. One instance
// serves every managed table; the table name is bound per route.
type Records struct {
	app *app.App
}

// Index returns the handler for listing the session owner's records in the
// given table
func (c *Records) Index(table string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := context.Session(r.Context())
		if !ok {
			mw.RespondUnauthorized(w)
			return
		}

		recs, err := c.app.ListRecords(table, sess)
		if err != nil {
			handleAppError(w, "listing records", err)
			return
		}

		mw.RespondJSON(w, http.StatusOK, recs)
	}
}

// Upsert returns the handler for creating or replacing a record in the
// given table
func (c *Records) Upsert(table string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := context.Session(r.Context())
		if !ok {
			mw.RespondUnauthorized(w)
			return
		}

		var payload schema.Record
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			mw.RespondInvalidParams(w, "invalid payload")
			return
		}

		rec, err := c.app.SaveRecord(table, sess, payload)
		if err != nil {
			handleAppError(w, "saving record", err)
			return
		}

		mw.RespondJSON(w, http.StatusOK, rec)
	}
}

// Delete returns the handler for removing a record from the given table
func (c *Records) Delete(table string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := context.Session(r.Context())
		if !ok {
			mw.RespondUnauthorized(w)
			return
		}

		vars := mux.Vars(r)
		key := vars["key"]

		if err := c.app.DeleteRecord(table, sess, key); err != nil {
			handleAppError(w, "deleting record", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
