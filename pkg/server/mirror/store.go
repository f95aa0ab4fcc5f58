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

package mirror

import (
	"github.com/bauhub/bauhub/pkg/server/local"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/store"
)

// Store serves reads and writes from the embedded store and replicates every
// write through the queue. The embedded write is reported to the caller
// before replication is attempted; when no queue is configured writes stay
// local only.
type Store struct {
	local *local.Store
	queue *Queue
}

// NewStore returns a mirrored store. The queue may be nil, in which case
// replication is disabled.
func NewStore(l *local.Store, q *Queue) *Store {
	return &Store{local: l, queue: q}
}

var _ store.Store = (*Store)(nil)

// List returns the caller's rows in the given table from the embedded store
func (s *Store) List(table string, sess session.UserSession) ([]schema.Record, error) {
	return s.local.List(table, sess.UserID)
}

// Upsert writes the given record to the embedded store and enqueues it for
// replication
func (s *Store) Upsert(table string, sess session.UserSession, rec schema.Record) (string, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return "", store.ErrUnknownTable
	}

	key, err := s.local.Upsert(table, rec)
	if err != nil {
		return "", err
	}

	if s.queue != nil {
		s.queue.Enqueue(Op{
			Kind:    OpUpsert,
			Table:   table,
			Record:  tbl.ToRemote(rec, sess.UserID),
			Key:     key,
			Session: sess,
		})
	}

	return key, nil
}

// Delete removes the caller's record from the embedded store and enqueues
// the removal for replication
func (s *Store) Delete(table string, sess session.UserSession, id string) error {
	if _, ok := schema.Lookup(table); !ok {
		return store.ErrUnknownTable
	}

	if err := s.local.Delete(table, id, sess.UserID); err != nil {
		return err
	}

	if s.queue != nil {
		s.queue.Enqueue(Op{
			Kind:    OpDelete,
			Table:   table,
			Key:     id,
			Session: sess,
		})
	}

	return nil
}
