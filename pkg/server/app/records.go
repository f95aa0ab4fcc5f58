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

package app

import (
	"time"

	"github.com/bauhub/bauhub/pkg/server/helpers"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/store"
)

// ListRecords returns the session owner's records in the given table
func (a *App) ListRecords(table string, sess session.UserSession) ([]schema.Record, error) {
	return a.Records.List(table, sess)
}

// SaveRecord upserts the given payload into the given table on behalf of the
// session. The owner column is force-set to the session identity, a primary
// key is generated when absent, and timestamps are stamped from the app
// clock. It returns the record as written.
func (a *App) SaveRecord(table string, sess session.UserSession, payload schema.Record) (schema.Record, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return nil, store.ErrUnknownTable
	}

	rec := tbl.Normalize(payload)
	rec[schema.ColumnUserID] = sess.UserID

	if tbl.Name == schema.TableSettings {
		merged, err := a.mergeSettings(sess, rec)
		if err != nil {
			return nil, err
		}
		rec = merged
	} else if tbl.KeyOf(rec) == "" {
		id, err := helpers.GenUUID()
		if err != nil {
			return nil, err
		}
		rec[tbl.PrimaryKey] = id
	}

	now := a.Clock.Now().UTC().Format(time.RFC3339)
	if _, ok := rec[schema.ColumnCreatedAt]; !ok {
		rec[schema.ColumnCreatedAt] = now
	}
	rec[schema.ColumnUpdatedAt] = now

	if _, err := a.Records.Upsert(table, sess, rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// DeleteRecord removes the record with the given key from the given table,
// provided the session owns it
func (a *App) DeleteRecord(table string, sess session.UserSession, key string) error {
	if key == "" {
		return ErrKeyRequired
	}

	return a.Records.Delete(table, sess, key)
}

// mergeSettings overlays the incoming settings slices onto the owner's
// existing settings record. The record is a per-owner singleton keyed by the
// owner id and composed of independently updatable slices; a partial update
// must leave the slices it does not carry untouched, which a bare
// insert-or-replace would clobber.
func (a *App) mergeSettings(sess session.UserSession, rec schema.Record) (schema.Record, error) {
	existing, err := a.Records.List(schema.TableSettings, sess)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return rec, nil
	}

	merged := existing[0].Clone()
	for col, val := range rec {
		merged[col] = val
	}

	return merged, nil
}
