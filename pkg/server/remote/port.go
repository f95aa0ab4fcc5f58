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

package remote

import (
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/store"
)

// Port adapts the hosted store adapter to the storage port. It is the
// store.Store implementation selected in hosted deployments; every operation
// derives the request credential and scopes to the session identity.
type Port struct {
	remote *Store
}

// NewPort returns a storage port backed by the hosted store
func NewPort(remote *Store) *Port {
	return &Port{remote: remote}
}

// List returns all records of the given table owned by the session identity
func (p *Port) List(table string, sess session.UserSession) ([]schema.Record, error) {
	return p.remote.ForSession(sess).List(table, sess.UserID)
}

// Upsert inserts or replaces the given record with the owner force-set to
// the session identity
func (p *Port) Upsert(table string, sess session.UserSession, rec schema.Record) (string, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return "", store.ErrUnknownTable
	}

	return p.remote.ForSession(sess).Upsert(table, tbl.ToRemote(rec, sess.UserID))
}

// Delete removes the record with the given id if the session identity owns it
func (p *Port) Delete(table string, sess session.UserSession, id string) error {
	return p.remote.ForSession(sess).Delete(table, id, sess.UserID)
}

var _ store.Store = (*Port)(nil)
