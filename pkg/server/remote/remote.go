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

// Package remote implements the hosted store adapter. Every read, update and
// delete carries an explicit owner filter; when the store does not enforce
// row-level security itself, this filter is the sole authorization boundary
// and must never be omitted.
package remote

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bauhub/bauhub/pkg/server/log"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/store"
)

// BatchSize is the fixed batch size for bulk upserts during reconciliation
const BatchSize = 100

// Open initializes the hosted store connection
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "opening hosted store connection")
	}

	return db, nil
}

// InitSchema creates the managed tables on the hosted store if they do not
// exist. Production deployments manage the hosted schema out of band; this
// covers fresh installations and tests.
func (s *Store) InitSchema() error {
	migrator := s.db.Migrator()

	for _, tbl := range schema.Tables() {
		if migrator.HasTable(tbl.Name) {
			continue
		}
		if err := s.db.Exec(tableDDL(tbl)).Error; err != nil {
			return errors.Wrapf(err, "creating %s table", tbl.Name)
		}
	}

	return nil
}

func tableDDL(tbl *schema.Table) string {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (", tbl.Name)
	for i, col := range tbl.Columns {
		if i > 0 {
			ddl += ", "
		}
		switch {
		case col == tbl.PrimaryKey:
			ddl += fmt.Sprintf("%s text PRIMARY KEY", col)
		case tbl.IsBoolColumn(col):
			ddl += fmt.Sprintf("%s boolean", col)
		default:
			ddl += fmt.Sprintf("%s text", col)
		}
	}
	ddl += ")"

	return ddl
}

// Store performs CRUD against the hosted store. The zero credential mode is
// elevated: the process-wide service connection, permitted to act on
// explicit target owners (administrative and mirror paths). A caller-scoped
// store derived with ForSession is bound to the validated token subject and
// rejects operations naming any other owner.
type Store struct {
	db         *gorm.DB
	tokens     *session.JWTProvider
	boundOwner string
}

// NewStore returns an elevated store backed by the given connection
func NewStore(db *gorm.DB, tokens *session.JWTProvider) *Store {
	return &Store{db: db, tokens: tokens}
}

// ForSession derives the credential for acting on behalf of the given
// session. When the session carries a valid access token the returned store
// is bound to the token's subject; otherwise the elevated store is returned
// with a logged warning, since proceeding with no credential at all would
// silently no-op every write.
func (s *Store) ForSession(sess session.UserSession) *Store {
	if sess.AccessToken != "" {
		parsed, err := s.tokens.Parse(sess.AccessToken)
		if err == nil && parsed.UserID == sess.UserID {
			scoped := *s
			scoped.boundOwner = sess.UserID
			return &scoped
		}

		log.WithModule("remote").WithFields(log.Fields{
			"user_id": sess.UserID,
		}).Warn("session access token failed validation; falling back to elevated credential")
		return s
	}

	log.WithModule("remote").WithFields(log.Fields{
		"user_id": sess.UserID,
	}).Warn("session has no access token; falling back to elevated credential")
	return s
}

// Elevated checks whether the store uses the elevated credential
func (s *Store) Elevated() bool {
	return s.boundOwner == ""
}

func (s *Store) checkOwner(ownerID string) error {
	if s.boundOwner != "" && s.boundOwner != ownerID {
		return store.ErrForbidden
	}
	return nil
}

// List returns all records of the given table for the given owner
func (s *Store) List(table, ownerID string) ([]schema.Record, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return nil, store.ErrUnknownTable
	}
	if err := s.checkOwner(ownerID); err != nil {
		return nil, err
	}

	var rows []map[string]interface{}
	if err := s.db.Table(tbl.Name).Where("user_id = ?", ownerID).Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "listing %s", tbl.Name)
	}

	ret := make([]schema.Record, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, tbl.FromRemote(schema.Record(row)))
	}

	return ret, nil
}

// Upsert inserts or replaces the given domain record, keyed by the table's
// primary key. The record must carry its owner and primary key; replacing a
// row owned by another identity yields store.ErrForbidden.
func (s *Store) Upsert(table string, rec schema.Record) (string, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return "", store.ErrUnknownTable
	}

	key := tbl.KeyOf(rec)
	if key == "" {
		return "", errors.Errorf("record for %s is missing its primary key", table)
	}

	owner, _ := rec[schema.ColumnUserID].(string)
	if err := s.checkOwner(owner); err != nil {
		return "", err
	}

	existing, err := s.Get(table, key)
	if err != nil && errors.Cause(err) != store.ErrNotFound {
		return "", err
	}
	if existing != nil {
		if existingOwner, _ := existing[schema.ColumnUserID].(string); existingOwner != owner {
			return "", store.ErrForbidden
		}
	}

	row, err := encodeRow(tbl, rec, false)
	if err != nil {
		return "", err
	}

	err = s.db.Table(tbl.Name).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: tbl.PrimaryKey}},
			DoUpdates: clause.AssignmentColumns(updateColumns(tbl)),
		}).
		Create(row).Error
	if err != nil {
		return "", errors.Wrapf(err, "upserting into %s", tbl.Name)
	}

	return key, nil
}

// UpsertBatch inserts or replaces the given records in fixed-size batches.
// It is used by bulk reconciliation; each batch is one statement.
func (s *Store) UpsertBatch(table string, recs []schema.Record) (int, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return 0, store.ErrUnknownTable
	}

	var synced int
	for start := 0; start < len(recs); start += BatchSize {
		end := start + BatchSize
		if end > len(recs) {
			end = len(recs)
		}

		batch := make([]map[string]interface{}, 0, end-start)
		for _, rec := range recs[start:end] {
			if tbl.KeyOf(rec) == "" {
				return synced, errors.Errorf("record for %s is missing its primary key", table)
			}
			owner, _ := rec[schema.ColumnUserID].(string)
			if err := s.checkOwner(owner); err != nil {
				return synced, err
			}

			// pad absent columns so the batch insert has a uniform column set
			row, err := encodeRow(tbl, rec, true)
			if err != nil {
				return synced, err
			}
			batch = append(batch, row)
		}

		err := s.db.Table(tbl.Name).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: tbl.PrimaryKey}},
				DoUpdates: clause.AssignmentColumns(updateColumns(tbl)),
			}).
			Create(batch).Error
		if err != nil {
			return synced, errors.Wrapf(err, "upserting batch into %s", tbl.Name)
		}

		synced += len(batch)
	}

	return synced, nil
}

// Get returns the record with the given primary key regardless of owner.
// It backs ownership checks; callers scope reads with List.
func (s *Store) Get(table, key string) (schema.Record, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return nil, store.ErrUnknownTable
	}

	var rows []map[string]interface{}
	err := s.db.Table(tbl.Name).
		Where(fmt.Sprintf("%s = ?", tbl.PrimaryKey), key).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "finding record in %s", tbl.Name)
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}

	return tbl.FromRemote(schema.Record(rows[0])), nil
}

// Delete removes the record with the given primary key, scoped to the given
// owner. The owner filter also doubles as the authorization check: a row
// owned by someone else yields store.ErrForbidden untouched.
func (s *Store) Delete(table, key, ownerID string) error {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return store.ErrUnknownTable
	}
	if err := s.checkOwner(ownerID); err != nil {
		return err
	}

	existing, err := s.Get(table, key)
	if err != nil {
		return err
	}
	if existing[schema.ColumnUserID] != ownerID {
		return store.ErrForbidden
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND user_id = ?", tbl.Name, tbl.PrimaryKey)
	if err := s.db.Exec(query, key, ownerID).Error; err != nil {
		return errors.Wrapf(err, "deleting from %s", tbl.Name)
	}

	return nil
}

// updateColumns lists the columns rewritten when an insert conflicts on the
// primary key. The map-based Create API has no model schema to expand a
// blanket update from, so the assignments are spelled out from the registry.
func updateColumns(tbl *schema.Table) []string {
	cols := make([]string, 0, len(tbl.Columns)-1)
	for _, col := range tbl.Columns {
		if col == tbl.PrimaryKey {
			continue
		}
		cols = append(cols, col)
	}

	return cols
}

// encodeRow prepares a domain record for the driver: nested structures are
// carried as raw JSON, booleans stay native. With pad set, absent
// allow-listed columns are filled with NULL so batched rows share a uniform
// column set.
func encodeRow(tbl *schema.Table, rec schema.Record, pad bool) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(tbl.Columns))

	for _, col := range tbl.Columns {
		val, ok := rec[col]
		if !ok {
			if pad {
				row[col] = nil
			}
			continue
		}

		if tbl.IsJSONColumn(col) && val != nil {
			serialized, err := json.Marshal(val)
			if err != nil {
				return nil, errors.Wrapf(err, "serializing column %s", col)
			}
			row[col] = json.RawMessage(serialized)
			continue
		}

		row[col] = val
	}

	return row, nil
}
