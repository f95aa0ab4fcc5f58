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

// Package schema describes the managed tables and translates records between
// the embedded-store row shape (flat columns, JSON as text, booleans as 0/1)
// and the hosted-store shape (native JSON, native booleans). Fields outside a
// table's allow-list are dropped during translation so that schema drift on
// one side cannot crash an insert on the other.
package schema

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	// ColumnID is the id column shared by every table except settings
	ColumnID = "id"
	// ColumnUserID is the owner column present on every table
	ColumnUserID = "user_id"
	// ColumnCreatedAt is the creation timestamp column
	ColumnCreatedAt = "created_at"
	// ColumnUpdatedAt is the timestamp column used for reconciliation comparisons
	ColumnUpdatedAt = "updated_at"
)

// Record is a single entity record keyed by canonical column name
type Record map[string]interface{}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	ret := make(Record, len(r))
	for k, v := range r {
		ret[k] = v
	}
	return ret
}

// Table describes one managed table: its allow-listed columns, which of them
// hold nested JSON structures, which hold booleans, and the primary key used
// for replace-on-conflict upserts.
type Table struct {
	Name        string
	PrimaryKey  string
	Columns     []string
	JSONColumns []string
	BoolColumns []string

	columnSet map[string]bool
	jsonSet   map[string]bool
	boolSet   map[string]bool
	aliases   map[string]string
}

// HasColumn checks whether the given canonical column is allow-listed
func (t *Table) HasColumn(name string) bool {
	return t.columnSet[name]
}

// IsJSONColumn checks whether the given column holds a nested structure
func (t *Table) IsJSONColumn(name string) bool {
	return t.jsonSet[name]
}

// IsBoolColumn checks whether the given column holds a boolean
func (t *Table) IsBoolColumn(name string) bool {
	return t.boolSet[name]
}

// KeyOf returns the record's primary key value, or an empty string if unset
func (t *Table) KeyOf(rec Record) string {
	if v, ok := rec[t.PrimaryKey].(string); ok {
		return v
	}
	return ""
}

// init precomputes the column sets and the declared alias table. An alias
// table maps every camelCase and lowercase spelling of a column to its
// canonical snake_case name, so that rows read back from the hosted store are
// resolved against a fixed mapping instead of probed at runtime.
func (t *Table) init() {
	t.columnSet = make(map[string]bool, len(t.Columns))
	t.aliases = make(map[string]string, len(t.Columns)*3)
	for _, col := range t.Columns {
		t.columnSet[col] = true
		t.aliases[col] = col
		t.aliases[camelCase(col)] = col
		t.aliases[strings.ReplaceAll(col, "_", "")] = col
	}

	t.jsonSet = make(map[string]bool, len(t.JSONColumns))
	for _, col := range t.JSONColumns {
		t.jsonSet[col] = true
	}

	t.boolSet = make(map[string]bool, len(t.BoolColumns))
	for _, col := range t.BoolColumns {
		t.boolSet[col] = true
	}
}

// Normalize maps the record's keys onto canonical column names using the
// table's declared alias mapping. Keys with no declared alias are dropped.
func (t *Table) Normalize(rec Record) Record {
	ret := make(Record, len(rec))
	for k, v := range rec {
		canonical, ok := t.aliases[k]
		if !ok {
			continue
		}
		ret[canonical] = v
	}
	return ret
}

// ToLocal converts a domain record into the embedded-store row shape:
// allow-listed columns only, nested structures serialized to JSON text,
// booleans converted to 0/1. Absent fields are omitted rather than written
// as NULL; a replace-on-conflict write still replaces the whole row, so
// callers that need to preserve unsent columns merge them in first, as the
// settings path does.
func (t *Table) ToLocal(rec Record) (Record, error) {
	row := make(Record, len(rec))

	for _, col := range t.Columns {
		val, ok := rec[col]
		if !ok {
			continue
		}

		switch {
		case t.jsonSet[col]:
			if val == nil {
				row[col] = nil
				continue
			}
			serialized, err := json.Marshal(val)
			if err != nil {
				return nil, errors.Wrapf(err, "serializing column %s", col)
			}
			row[col] = string(serialized)
		case t.boolSet[col]:
			row[col] = boolToInt(val)
		default:
			row[col] = val
		}
	}

	return row, nil
}

// FromLocal converts an embedded-store row back into the domain shape.
// Malformed JSON in a nested column yields nil for that field rather than an
// error; a corrupt cell must not fail the whole read.
func (t *Table) FromLocal(row Record) Record {
	rec := make(Record, len(row))

	for col, val := range row {
		if !t.columnSet[col] {
			continue
		}

		switch {
		case t.jsonSet[col]:
			rec[col] = parseJSONValue(val)
		case t.boolSet[col]:
			rec[col] = toBool(val)
		default:
			rec[col] = val
		}
	}

	return rec
}

// FromRemote converts a row read from the hosted store into the domain
// shape: keys resolved against the declared alias mapping, JSON columns
// parsed when the driver returned them as text, booleans coerced from
// driver-specific representations.
func (t *Table) FromRemote(rec Record) Record {
	return t.FromLocal(t.Normalize(rec))
}

// ToRemote converts a domain record into the hosted-store shape. Nested
// structures and booleans pass through unchanged; the owner column is
// force-set to the given identity so a spoofed payload value cannot grant
// access to another owner's rows.
func (t *Table) ToRemote(rec Record, ownerID string) Record {
	ret := make(Record, len(rec))

	for _, col := range t.Columns {
		val, ok := rec[col]
		if !ok {
			continue
		}
		ret[col] = val
	}

	ret[ColumnUserID] = ownerID

	return ret
}

func parseJSONValue(val interface{}) interface{} {
	var raw []byte
	switch v := val.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		// already structured
		return val
	}

	if len(raw) == 0 {
		return nil
	}

	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}

	return parsed
}

func boolToInt(val interface{}) int {
	if toBool(val) {
		return 1
	}
	return 0
}

func toBool(val interface{}) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v == "1" || v == "true"
	default:
		return false
	}
}

// camelCase converts a snake_case column name to its camelCase spelling
func camelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}
