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

package remote_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/bauhub/bauhub/pkg/server/remote"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/store"
	"github.com/bauhub/bauhub/pkg/server/testutils"
)

func TestUpsertAndList(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	rec := schema.Record{
		"id":      "customer-1",
		"user_id": "user-1",
		"name":    "Acme",
		"address": map[string]interface{}{
			"street": "Main St",
			"city":   "Linz",
			"zip":    "4020",
		},
		"updated_at": "2024-06-01T10:00:00Z",
	}

	if _, err := s.Upsert(schema.TableCustomers, rec); err != nil {
		t.Fatal(errors.Wrap(err, "upserting customer"))
	}

	got, err := s.List(schema.TableCustomers, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing customers"))
	}

	if len(got) != 1 {
		t.Fatalf("record count mismatch. got %d, want %d", len(got), 1)
	}
	if diff := cmp.Diff(rec["address"], got[0]["address"]); diff != "" {
		t.Errorf("address mismatch (-want +got):\n%s", diff)
	}
	if got[0]["user_id"] != "user-1" {
		t.Errorf("owner mismatch. got %v, want %v", got[0]["user_id"], "user-1")
	}
}

func TestListScopesByOwner(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	for idx, owner := range []string{"user-1", "user-2"} {
		_, err := s.Upsert(schema.TableInvoices, schema.Record{
			"id":      fmt.Sprintf("invoice-%d", idx),
			"user_id": owner,
			"number":  fmt.Sprintf("2024-%04d", idx),
		})
		if err != nil {
			t.Fatal(errors.Wrap(err, "upserting invoice"))
		}
	}

	got, err := s.List(schema.TableInvoices, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing invoices"))
	}

	if len(got) != 1 {
		t.Fatalf("record count mismatch. got %d, want %d", len(got), 1)
	}
	if got[0]["id"] != "invoice-0" {
		t.Errorf("id mismatch. got %v, want %v", got[0]["id"], "invoice-0")
	}
}

func TestUpsertReplaces(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	for _, paid := range []bool{false, true} {
		_, err := s.Upsert(schema.TableInvoices, schema.Record{
			"id":      "invoice-1",
			"user_id": "user-1",
			"number":  "2024-0001",
			"paid":    paid,
		})
		if err != nil {
			t.Fatal(errors.Wrap(err, "upserting invoice"))
		}
	}

	got, err := s.List(schema.TableInvoices, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing invoices"))
	}

	if len(got) != 1 {
		t.Fatalf("record count mismatch. got %d, want %d", len(got), 1)
	}
	if got[0]["paid"] != true {
		t.Errorf("paid mismatch. got %v, want %v", got[0]["paid"], true)
	}
}

func TestUpsertOwnershipMismatch(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	if _, err := s.Upsert(schema.TableProjects, schema.Record{
		"id":      "project-1",
		"user_id": "user-1",
		"name":    "Neubau Linz Süd",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "upserting project"))
	}

	// a write naming another owner's primary key must not replace the row,
	// even through the elevated credential
	if _, err := s.Upsert(schema.TableProjects, schema.Record{
		"id":      "project-1",
		"user_id": "user-2",
		"name":    "hijacked",
	}); !errors.Is(err, store.ErrForbidden) {
		t.Errorf("error mismatch. got %v, want %v", err, store.ErrForbidden)
	}

	got, err := s.List(schema.TableProjects, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing projects"))
	}
	if len(got) != 1 {
		t.Fatalf("record count mismatch. got %d, want %d", len(got), 1)
	}
	if got[0]["name"] != "Neubau Linz Süd" {
		t.Errorf("name mismatch. got %v, want %v", got[0]["name"], "Neubau Linz Süd")
	}
}

func TestUpsertBatch(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	var recs []schema.Record
	for i := 0; i < 205; i++ {
		recs = append(recs, schema.Record{
			"id":      fmt.Sprintf("service-%d", i),
			"user_id": "user-1",
			"title":   fmt.Sprintf("Leistung %d", i),
		})
	}

	synced, err := s.UpsertBatch(schema.TableServices, recs)
	if err != nil {
		t.Fatal(errors.Wrap(err, "upserting batch"))
	}
	if synced != 205 {
		t.Errorf("synced count mismatch. got %d, want %d", synced, 205)
	}

	got, err := s.List(schema.TableServices, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing services"))
	}
	if len(got) != 205 {
		t.Errorf("record count mismatch. got %d, want %d", len(got), 205)
	}
}

func TestUpsertBatchReplaces(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	seed := func(title string) []schema.Record {
		var recs []schema.Record
		for i := 0; i < 3; i++ {
			recs = append(recs, schema.Record{
				"id":      fmt.Sprintf("service-%d", i),
				"user_id": "user-1",
				"title":   fmt.Sprintf("%s %d", title, i),
			})
		}
		return recs
	}

	if _, err := s.UpsertBatch(schema.TableServices, seed("first")); err != nil {
		t.Fatal(errors.Wrap(err, "upserting first batch"))
	}
	if _, err := s.UpsertBatch(schema.TableServices, seed("second")); err != nil {
		t.Fatal(errors.Wrap(err, "upserting second batch"))
	}

	got, err := s.List(schema.TableServices, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing services"))
	}
	if len(got) != 3 {
		t.Fatalf("record count mismatch. got %d, want %d", len(got), 3)
	}
	for _, rec := range got {
		if title, _ := rec["title"].(string); !strings.HasPrefix(title, "second") {
			t.Errorf("conflicting row not replaced. got %v", rec["title"])
		}
	}
}

func TestDeleteScopesByOwner(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	if _, err := s.Upsert(schema.TableProjects, schema.Record{
		"id":      "project-1",
		"user_id": "user-2",
		"name":    "Dachsanierung",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "upserting project"))
	}

	if err := s.Delete(schema.TableProjects, "project-1", "user-1"); !errors.Is(err, store.ErrForbidden) {
		t.Errorf("error mismatch. got %v, want %v", err, store.ErrForbidden)
	}

	if err := s.Delete(schema.TableProjects, "project-1", "user-2"); err != nil {
		t.Fatal(errors.Wrap(err, "deleting own project"))
	}

	if err := s.Delete(schema.TableProjects, "project-1", "user-2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error mismatch. got %v, want %v", err, store.ErrNotFound)
	}
}

func TestForSessionScoping(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	scoped := s.ForSession(testutils.SetupSession(t, "user-1", "user"))
	if scoped.Elevated() {
		t.Fatal("expected a caller-scoped store for a session with a valid token")
	}

	// a caller-scoped store must refuse to act on another owner
	if _, err := scoped.List(schema.TableCustomers, "user-2"); !errors.Is(err, store.ErrForbidden) {
		t.Errorf("error mismatch. got %v, want %v", err, store.ErrForbidden)
	}
	if _, err := scoped.Upsert(schema.TableCustomers, schema.Record{
		"id":      "customer-1",
		"user_id": "user-2",
		"name":    "Acme",
	}); !errors.Is(err, store.ErrForbidden) {
		t.Errorf("error mismatch. got %v, want %v", err, store.ErrForbidden)
	}
}

func TestForSessionFallback(t *testing.T) {
	s := testutils.InitRemoteStore(t)

	// without a token the elevated credential is used
	fallback := s.ForSession(testutils.SetupTokenlessSession("user-1", "user"))
	if !fallback.Elevated() {
		t.Error("expected the elevated fallback for a tokenless session")
	}

	// a tampered token also falls back
	sess := testutils.SetupSession(t, "user-1", "user")
	sess.AccessToken = sess.AccessToken + "tampered"
	fallback = s.ForSession(sess)
	if !fallback.Elevated() {
		t.Error("expected the elevated fallback for an invalid token")
	}
}

func TestPort(t *testing.T) {
	s := testutils.InitRemoteStore(t)
	port := remote.NewPort(s)

	sess := testutils.SetupSession(t, "user-1", "user")

	// owner on the payload is overridden with the session identity
	if _, err := port.Upsert(schema.TableCustomers, sess, schema.Record{
		"id":      "customer-1",
		"user_id": "attacker",
		"name":    "Acme",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "upserting through port"))
	}

	got, err := port.List(schema.TableCustomers, sess)
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing through port"))
	}
	if len(got) != 1 {
		t.Fatalf("record count mismatch. got %d, want %d", len(got), 1)
	}
	if got[0]["user_id"] != "user-1" {
		t.Errorf("owner mismatch. got %v, want %v", got[0]["user_id"], "user-1")
	}
}
