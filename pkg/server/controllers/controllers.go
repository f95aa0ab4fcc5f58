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

// Package controllers implements the HTTP handlers for the entity CRUD
// endpoints and the reconciliation endpoints
package controllers

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/bauhub/bauhub/pkg/server/app"
	mw "github.com/bauhub/bauhub/pkg/server/middleware"
	"github.com/bauhub/bauhub/pkg/server/store"
)

// Controllers is a group of controllers
type Controllers struct {
	Records *Records
	Sync    *Sync
	Health  *Health
}

// New returns a new group of controllers
func New(a *app.App) *Controllers {
	c := Controllers{}

	c.Records = NewRecords(a)
	c.Sync = NewSync(a)
	c.Health = NewHealth(a)

	return &c
}

// handleAppError maps an application error to an HTTP response
func handleAppError(w http.ResponseWriter, msg string, err error) {
	switch errors.Cause(err) {
	case store.ErrUnknownTable, store.ErrNotFound:
		mw.RespondNotFound(w)
	case store.ErrForbidden:
		mw.RespondForbidden(w)
	case app.ErrOwnerMismatch:
		mw.RespondUnauthorized(w)
	case app.ErrKeyRequired, app.ErrOwnerIDRequired, app.ErrNotLocalFirst, app.ErrRemoteUnavailable:
		mw.RespondInvalidParams(w, errors.Cause(err).Error())
	default:
		mw.DoError(w, msg, err, http.StatusInternalServerError)
	}
}
