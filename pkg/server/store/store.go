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

// Package store defines the storage port shared by the embedded and the
// hosted adapters. The deployment mode picks one implementation at process
// start; request handlers depend only on this interface and never branch on
// mode themselves.
package store

import (
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/pkg/errors"
)

var (
	// ErrForbidden is an error for an operation on a record owned by another identity
	ErrForbidden = errors.New("record belongs to another owner")
	// ErrNotFound is an error for an operation on a record that does not exist
	ErrNotFound = errors.New("record not found")
	// ErrUnknownTable is an error for an operation on a table outside the managed set
	ErrUnknownTable = errors.New("unknown table")
)

// Store is the storage port for the managed tables. Every operation is
// scoped to the acting session's identity.
type Store interface {
	// List returns all records of the given table owned by the session identity
	List(table string, sess session.UserSession) ([]schema.Record, error)
	// Upsert inserts or replaces the given record, keyed by the table's
	// primary key, and returns the record's id
	Upsert(table string, sess session.UserSession, rec schema.Record) (string, error)
	// Delete removes the record with the given id if the session identity
	// owns it. It returns ErrForbidden on an ownership mismatch.
	Delete(table string, sess session.UserSession, id string) error
}
