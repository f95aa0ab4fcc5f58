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

// Package sync implements bulk reconciliation between the embedded store and
// the hosted store, plus local identity migration. Reconciliation is a manual
// repair tool: it tolerates per-row and per-table failures by logging and
// moving on, and reports an aggregate count of rows moved.
package sync

import (
	"time"

	"github.com/pkg/errors"

	"github.com/bauhub/bauhub/pkg/server/local"
	"github.com/bauhub/bauhub/pkg/server/log"
	"github.com/bauhub/bauhub/pkg/server/remote"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/store"
)

// timestamp layouts accepted when comparing updated_at values. Rows written
// by this server carry RFC 3339; date-only values appear in data imported
// from older installations.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Service performs bulk reconciliation against a pair of stores
type Service struct {
	local  *local.Store
	remote *remote.Store
}

// NewService creates a reconciliation service
func NewService(l *local.Store, r *remote.Store) *Service {
	return &Service{local: l, remote: r}
}

// Push replicates the entire local dataset to the hosted store. The local
// database of a local-first installation is assumed single-owner, so every
// row is pushed under the acting session's identity. A failing table is
// logged and skipped; the returned count covers the rows that were upserted.
func (s *Service) Push(sess session.UserSession) (int, error) {
	client := s.remote.ForSession(sess)

	var total int
	for _, tbl := range schema.Tables() {
		recs, err := s.local.ListAll(tbl.Name)
		if err != nil {
			log.WithModule("sync").WithFields(log.Fields{
				"table": tbl.Name,
				"err":   err,
			}).Error("push: reading local table")
			continue
		}
		if len(recs) == 0 {
			continue
		}

		outbound := make([]schema.Record, 0, len(recs))
		for _, rec := range recs {
			outbound = append(outbound, tbl.ToRemote(rec, sess.UserID))
		}

		n, err := client.UpsertBatch(tbl.Name, outbound)
		total += n
		if err != nil {
			log.WithModule("sync").WithFields(log.Fields{
				"table":  tbl.Name,
				"synced": n,
				"err":    err,
			}).Error("push: upserting batch")
			continue
		}
	}

	return total, nil
}

// Pull replicates the target owner's hosted dataset into the embedded store.
// A remote row overwrites its local counterpart only if it is strictly newer
// by updated_at, or if no local counterpart exists. Rows that fail to
// translate or insert are logged and skipped.
func (s *Service) Pull(sess session.UserSession) (int, error) {
	client := s.remote.ForSession(sess)

	var total int
	for _, tbl := range schema.Tables() {
		recs, err := client.List(tbl.Name, sess.UserID)
		if err != nil {
			log.WithModule("sync").WithFields(log.Fields{
				"table": tbl.Name,
				"err":   err,
			}).Error("pull: reading hosted table")
			continue
		}

		for _, rec := range recs {
			key := tbl.KeyOf(rec)
			if key == "" {
				log.WithModule("sync").WithFields(log.Fields{
					"table": tbl.Name,
				}).Error("pull: skipping row with no primary key")
				continue
			}

			existing, err := s.local.Get(tbl.Name, key)
			if err != nil && errors.Cause(err) != store.ErrNotFound {
				log.WithModule("sync").WithFields(log.Fields{
					"table": tbl.Name,
					"key":   key,
					"err":   err,
				}).Error("pull: reading local row")
				continue
			}
			if existing != nil && !newerThan(rec, existing) {
				continue
			}

			if _, err := s.local.Upsert(tbl.Name, rec); err != nil {
				log.WithModule("sync").WithFields(log.Fields{
					"table": tbl.Name,
					"key":   key,
					"err":   err,
				}).Error("pull: writing local row")
				continue
			}
			total++
		}
	}

	return total, nil
}

// MigrateIdentity rewrites the owner column of every local table to the
// given identity and returns the total number of rows rewritten. Rows
// already owned by the target identity are left alone, which makes the
// operation idempotent.
func (s *Service) MigrateIdentity(newOwnerID string) int64 {
	return s.local.RewriteOwner(newOwnerID)
}

// newerThan reports whether the candidate record is strictly newer than the
// existing one by updated_at. A record with a missing or unparsable
// timestamp counts as older than any timestamped record.
func newerThan(candidate, existing schema.Record) bool {
	ct, ok := parseTimestamp(candidate[schema.ColumnUpdatedAt])
	if !ok {
		return false
	}

	et, ok := parseTimestamp(existing[schema.ColumnUpdatedAt])
	if !ok {
		return true
	}

	return ct.After(et)
}

func parseTimestamp(val interface{}) (time.Time, bool) {
	str, ok := val.(string)
	if !ok || str == "" {
		return time.Time{}, false
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, str); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
