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
	"testing"

	"github.com/bauhub/bauhub/pkg/clock"
	"github.com/bauhub/bauhub/pkg/server/config"
	"github.com/bauhub/bauhub/pkg/server/mirror"
	"github.com/bauhub/bauhub/pkg/server/remote"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/sync"
	"github.com/bauhub/bauhub/pkg/server/testutils"
	"github.com/pkg/errors"
)

func newReconcilingApp(t *testing.T) (*App, *remote.Store) {
	localDB := testutils.InitLocalStore(t)
	remoteDB := testutils.InitRemoteStore(t)

	a := &App{
		Clock:   clock.NewMock(),
		Config:  config.Config{Mode: config.ModeLocalFirst, DBPath: ":memory:", TokenSecret: testutils.TokenSecret},
		Records: mirror.NewStore(localDB, nil),
		Local:   localDB,
		Remote:  remoteDB,
		Syncer:  sync.NewService(localDB, remoteDB),
	}
	if err := a.Validate(); err != nil {
		t.Fatal(errors.Wrap(err, "validating app"))
	}

	return a, remoteDB
}

func TestPullAll(t *testing.T) {
	a, remoteDB := newReconcilingApp(t)
	sess := testutils.SetupSession(t, "user-1", session.RoleUser)

	if _, err := remoteDB.Upsert(schema.TableInvoices, schema.Record{
		"id":         "invoice-42",
		"user_id":    "user-1",
		"number":     "2024-042",
		"updated_at": "2024-01-02",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "seeding remote invoice"))
	}

	count, err := a.PullAll(sess, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "pulling"))
	}
	if count != 1 {
		t.Errorf("pulled count mismatch. got %d", count)
	}

	got, err := a.Local.Get(schema.TableInvoices, "invoice-42")
	if err != nil {
		t.Fatal(errors.Wrap(err, "getting local invoice"))
	}
	if got["number"] != "2024-042" {
		t.Errorf("pulled invoice mismatch. got %v", got["number"])
	}
}

func TestPushAll(t *testing.T) {
	a, remoteDB := newReconcilingApp(t)
	sess := testutils.SetupSession(t, "user-1", session.RoleUser)

	if _, err := a.SaveRecord(schema.TableCustomers, sess, schema.Record{
		"name": "Huber Bau GmbH",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "saving customer"))
	}

	count, err := a.PushAll(sess, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "pushing"))
	}
	if count != 1 {
		t.Errorf("pushed count mismatch. got %d", count)
	}

	got, err := remoteDB.List(schema.TableCustomers, "user-1")
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing remote customers"))
	}
	if len(got) != 1 {
		t.Errorf("remote customer count mismatch. got %d", len(got))
	}
}

func TestReconciliationOwnerMismatch(t *testing.T) {
	a, remoteDB := newReconcilingApp(t)
	sess := testutils.SetupSession(t, "user-1", session.RoleUser)

	if _, err := remoteDB.Upsert(schema.TableTodos, schema.Record{
		"id":      "todo-1",
		"user_id": "user-2",
		"title":   "order rebar",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "seeding remote todo"))
	}

	if _, err := a.PullAll(sess, "user-2"); errors.Cause(err) != ErrOwnerMismatch {
		t.Fatalf("pull error mismatch. got %v", err)
	}
	if _, err := a.PushAll(sess, "user-2"); errors.Cause(err) != ErrOwnerMismatch {
		t.Fatalf("push error mismatch. got %v", err)
	}

	// no data moved
	if _, err := a.Local.Get(schema.TableTodos, "todo-1"); err == nil {
		t.Error("data moved despite the owner mismatch")
	}
}

func TestReconciliationAdminBypass(t *testing.T) {
	a, remoteDB := newReconcilingApp(t)
	admin := testutils.SetupSession(t, "admin-1", session.RoleAdmin)

	if _, err := remoteDB.Upsert(schema.TableTodos, schema.Record{
		"id":         "todo-1",
		"user_id":    "user-2",
		"title":      "order rebar",
		"updated_at": "2024-01-02",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "seeding remote todo"))
	}

	count, err := a.PullAll(admin, "user-2")
	if err != nil {
		t.Fatal(errors.Wrap(err, "pulling as admin"))
	}
	if count != 1 {
		t.Errorf("pulled count mismatch. got %d", count)
	}
}

func TestReconciliationRejectedWhenHosted(t *testing.T) {
	a, _ := newReconcilingApp(t)
	a.Config.Mode = config.ModeHosted
	sess := testutils.SetupSession(t, "user-1", session.RoleUser)

	if _, err := a.PullAll(sess, "user-1"); errors.Cause(err) != ErrNotLocalFirst {
		t.Fatalf("pull error mismatch. got %v", err)
	}
	if _, err := a.PushAll(sess, "user-1"); errors.Cause(err) != ErrNotLocalFirst {
		t.Fatalf("push error mismatch. got %v", err)
	}
	if _, err := a.MigrateIdentity("user-new"); errors.Cause(err) != ErrNotLocalFirst {
		t.Fatalf("identity error mismatch. got %v", err)
	}
}

func TestReconciliationRequiresOwnerID(t *testing.T) {
	a, _ := newReconcilingApp(t)
	sess := testutils.SetupSession(t, "user-1", session.RoleUser)

	if _, err := a.PullAll(sess, ""); errors.Cause(err) != ErrOwnerIDRequired {
		t.Fatalf("error mismatch. got %v", err)
	}
}

func TestMigrateIdentity(t *testing.T) {
	a, _ := newReconcilingApp(t)
	sess := testutils.SetupTokenlessSession("user-old", session.RoleUser)

	if _, err := a.SaveRecord(schema.TableCustomers, sess, schema.Record{
		"id":   "customer-1",
		"name": "Huber Bau GmbH",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "saving customer"))
	}

	count, err := a.MigrateIdentity("user-new")
	if err != nil {
		t.Fatal(errors.Wrap(err, "migrating identity"))
	}
	if count != 1 {
		t.Errorf("rewritten count mismatch. got %d", count)
	}

	rerun, err := a.MigrateIdentity("user-new")
	if err != nil {
		t.Fatal(errors.Wrap(err, "rerunning identity migration"))
	}
	if rerun != 0 {
		t.Errorf("rerun count mismatch. got %d", rerun)
	}
}
