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

// Package local implements the embedded store adapter over a single-file
// SQLite database. The connection is a process-wide singleton shared by all
// requests; every write is a single atomic statement with replace-on-conflict
// semantics keyed by the table's primary key.
package local

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/bauhub/bauhub/pkg/server/log"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/store"
)

// DB is a handle to the embedded database
type DB struct {
	*sql.DB
}

// Open initializes the embedded database connection, creating the parent
// directory if necessary.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "creating database directory at %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}

	return &DB{DB: db}, nil
}

// InitSchema creates the managed tables if they do not exist. The DDL is
// derived from the table registry so the embedded schema cannot drift from
// the translator's allow-lists.
func (d *DB) InitSchema() error {
	for _, tbl := range schema.Tables() {
		if _, err := d.Exec(tableDDL(tbl)); err != nil {
			return errors.Wrapf(err, "creating %s table", tbl.Name)
		}
	}

	return nil
}

func tableDDL(tbl *schema.Table) string {
	defs := make([]string, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		switch {
		case col == tbl.PrimaryKey:
			defs = append(defs, fmt.Sprintf("%s text PRIMARY KEY", col))
		case tbl.IsBoolColumn(col):
			defs = append(defs, fmt.Sprintf("%s integer DEFAULT 0", col))
		default:
			defs = append(defs, fmt.Sprintf("%s text", col))
		}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tbl.Name, strings.Join(defs, ", "))
}

// Store performs CRUD against the embedded database for the managed tables.
// Records cross its boundary in the domain shape; the row shape is an
// internal concern handled by the schema translator.
type Store struct {
	db *DB
}

// NewStore returns a store backed by the given embedded database
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// List returns all records of the given table owned by the given identity
func (s *Store) List(table, ownerID string) ([]schema.Record, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return nil, store.ErrUnknownTable
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ?", strings.Join(tbl.Columns, ", "), tbl.Name)
	return s.query(tbl, query, ownerID)
}

// ListAll returns every record of the given table regardless of owner. It is
// used by bulk reconciliation, which covers the entire local dataset.
func (s *Store) ListAll(table string) ([]schema.Record, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return nil, store.ErrUnknownTable
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(tbl.Columns, ", "), tbl.Name)
	return s.query(tbl, query)
}

// Get returns the record with the given primary key, or store.ErrNotFound
func (s *Store) Get(table, key string) (schema.Record, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return nil, store.ErrUnknownTable
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", strings.Join(tbl.Columns, ", "), tbl.Name, tbl.PrimaryKey)
	recs, err := s.query(tbl, query, key)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, store.ErrNotFound
	}

	return recs[0], nil
}

// Upsert inserts or replaces the given domain record and returns its primary
// key value. The record must carry its primary key and owner; replacing a row
// owned by another identity yields store.ErrForbidden.
func (s *Store) Upsert(table string, rec schema.Record) (string, error) {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return "", store.ErrUnknownTable
	}

	key := tbl.KeyOf(rec)
	if key == "" {
		return "", errors.Errorf("record for %s is missing its primary key", table)
	}

	var existingOwner sql.NullString
	ownerQuery := fmt.Sprintf("SELECT user_id FROM %s WHERE %s = ?", tbl.Name, tbl.PrimaryKey)
	err := s.db.QueryRow(ownerQuery, key).Scan(&existingOwner)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.Wrapf(err, "finding record in %s", tbl.Name)
	}
	if err == nil {
		owner, _ := rec[schema.ColumnUserID].(string)
		if existingOwner.String != owner {
			return "", store.ErrForbidden
		}
	}

	row, err := tbl.ToLocal(rec)
	if err != nil {
		return "", errors.Wrapf(err, "translating record for %s", table)
	}

	cols := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	args := make([]interface{}, 0, len(row))
	for _, col := range tbl.Columns {
		val, ok := row[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		placeholders = append(placeholders, "?")
		args = append(args, val)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tbl.Name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if _, err := s.db.Exec(query, args...); err != nil {
		return "", errors.Wrapf(err, "upserting into %s", tbl.Name)
	}

	return key, nil
}

// Delete removes the record with the given primary key after verifying the
// owner. A mismatch yields store.ErrForbidden without touching the row.
func (s *Store) Delete(table, key, ownerID string) error {
	tbl, ok := schema.Lookup(table)
	if !ok {
		return store.ErrUnknownTable
	}

	var existingOwner sql.NullString
	query := fmt.Sprintf("SELECT user_id FROM %s WHERE %s = ?", tbl.Name, tbl.PrimaryKey)
	err := s.db.QueryRow(query, key).Scan(&existingOwner)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	} else if err != nil {
		return errors.Wrapf(err, "finding record in %s", tbl.Name)
	}

	if existingOwner.String != ownerID {
		return store.ErrForbidden
	}

	if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", tbl.Name, tbl.PrimaryKey), key); err != nil {
		return errors.Wrapf(err, "deleting from %s", tbl.Name)
	}

	return nil
}

// RewriteOwner sets the owner of every row in every managed table to the
// given identity, for rows not already matching it (including rows with a
// NULL owner). Per-table failures are logged and do not abort the remaining
// tables. It returns the total number of rows updated.
func (s *Store) RewriteOwner(newOwnerID string) int64 {
	var total int64

	for _, tbl := range schema.Tables() {
		query := fmt.Sprintf("UPDATE %s SET user_id = ? WHERE user_id IS NULL OR user_id != ?", tbl.Name)

		result, err := s.db.Exec(query, newOwnerID, newOwnerID)
		if err != nil {
			log.WithModule("identity").WithFields(log.Fields{
				"table": tbl.Name,
				"err":   err,
			}).Error("rewriting owner")
			continue
		}

		if n, err := result.RowsAffected(); err == nil {
			total += n
		}
	}

	return total
}

func (s *Store) query(tbl *schema.Table, query string, args ...interface{}) ([]schema.Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", tbl.Name)
	}
	defer rows.Close()

	var ret []schema.Record
	for rows.Next() {
		vals := make([]interface{}, len(tbl.Columns))
		ptrs := make([]interface{}, len(tbl.Columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scanning %s row", tbl.Name)
		}

		row := make(schema.Record, len(tbl.Columns))
		for i, col := range tbl.Columns {
			if vals[i] == nil {
				continue
			}
			row[col] = normalizeCell(vals[i])
		}

		ret = append(ret, tbl.FromLocal(row))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterating %s rows", tbl.Name)
	}

	return ret, nil
}

// normalizeCell converts driver byte slices to strings so records compare
// cleanly across the two stores
func normalizeCell(val interface{}) interface{} {
	if b, ok := val.([]byte); ok {
		return string(b)
	}
	return val
}
