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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
	"github.com/bauhub/bauhub/pkg/server/testutils"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

type fakeApplier struct {
	mu      sync.Mutex
	applied []Op
	delay   time.Duration
	err     error
	release chan struct{}
}

func (a *fakeApplier) Apply(op Op) error {
	if a.release != nil {
		<-a.release
	}
	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, op)

	return a.err
}

func (a *fakeApplier) ops() []Op {
	a.mu.Lock()
	defer a.mu.Unlock()

	ret := make([]Op, len(a.applied))
	copy(ret, a.applied)
	return ret
}

func TestQueueDrains(t *testing.T) {
	applier := &fakeApplier{}
	q := NewQueue(applier, 8)

	sess := testutils.SetupTokenlessSession("user-1", session.RoleUser)
	q.Enqueue(Op{Kind: OpUpsert, Table: schema.TableTodos, Key: "todo-1", Session: sess, Record: schema.Record{
		"id":      "todo-1",
		"user_id": "user-1",
		"title":   "order rebar",
	}})
	q.Enqueue(Op{Kind: OpDelete, Table: schema.TableTodos, Key: "todo-2", Session: sess})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatal(errors.Wrap(err, "shutting down queue"))
	}

	got := applier.ops()
	if len(got) != 2 {
		t.Fatalf("applied op count mismatch. got %d", len(got))
	}
	if got[0].Kind != OpUpsert || got[0].Key != "todo-1" {
		t.Errorf("first op mismatch: %+v", got[0])
	}
	if got[1].Kind != OpDelete || got[1].Key != "todo-2" {
		t.Errorf("second op mismatch: %+v", got[1])
	}
}

func TestEnqueueDoesNotBlock(t *testing.T) {
	applier := &fakeApplier{release: make(chan struct{})}
	q := NewQueue(applier, 1)

	sess := testutils.SetupTokenlessSession("user-1", session.RoleUser)

	// with the applier stalled, a burst beyond the queue capacity must
	// still return promptly; the surplus is dropped
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			q.Enqueue(Op{Kind: OpDelete, Table: schema.TableTodos, Key: "todo", Session: sess})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a stalled drain loop")
	}

	close(applier.release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatal(errors.Wrap(err, "shutting down queue"))
	}

	if got := len(applier.ops()); got > 2 {
		t.Errorf("expected surplus ops to be dropped. got %d applied", got)
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	applier := &fakeApplier{}
	q := NewQueue(applier, 8)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatal(errors.Wrap(err, "shutting down queue"))
	}

	sess := testutils.SetupTokenlessSession("user-1", session.RoleUser)
	// must not panic on the closed channel
	q.Enqueue(Op{Kind: OpUpsert, Table: schema.TableTodos, Key: "todo-1", Session: sess})

	if got := len(applier.ops()); got != 0 {
		t.Errorf("op applied after shutdown. got %d", got)
	}
}

func TestShutdownTimeout(t *testing.T) {
	applier := &fakeApplier{release: make(chan struct{})}
	defer close(applier.release)
	q := NewQueue(applier, 8)

	sess := testutils.SetupTokenlessSession("user-1", session.RoleUser)
	q.Enqueue(Op{Kind: OpDelete, Table: schema.TableTodos, Key: "todo-1", Session: sess})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Shutdown(ctx); err != context.DeadlineExceeded {
		t.Fatalf("error mismatch. got %v", err)
	}
}

func TestMirroredStoreUpsert(t *testing.T) {
	db := testutils.InitLocalStore(t)

	applier := &fakeApplier{}
	q := NewQueue(applier, 8)
	s := NewStore(db, q)

	sess := testutils.SetupTokenlessSession("user-1", session.RoleUser)
	key, err := s.Upsert(schema.TableCustomers, sess, schema.Record{
		"id":      "customer-1",
		"user_id": "user-1",
		"name":    "Huber Bau GmbH",
		"address": map[string]interface{}{"city": "Linz"},
	})
	if err != nil {
		t.Fatal(errors.Wrap(err, "upserting"))
	}
	if key != "customer-1" {
		t.Errorf("key mismatch. got %s", key)
	}

	// the local write is visible before the queue drains
	got, err := s.List(schema.TableCustomers, sess)
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing"))
	}
	if len(got) != 1 {
		t.Fatalf("record count mismatch. got %d", len(got))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatal(errors.Wrap(err, "shutting down queue"))
	}

	ops := applier.ops()
	if len(ops) != 1 {
		t.Fatalf("enqueued op count mismatch. got %d", len(ops))
	}
	if ops[0].Kind != OpUpsert || ops[0].Table != schema.TableCustomers {
		t.Errorf("op mismatch: %+v", ops[0])
	}
	if ops[0].Record["user_id"] != "user-1" {
		t.Errorf("owner mismatch in replicated record. got %v", ops[0].Record["user_id"])
	}
	if diff := cmp.Diff(map[string]interface{}{"city": "Linz"}, ops[0].Record["address"]); diff != "" {
		t.Errorf("replicated address mismatch (-want +got):\n%s", diff)
	}
}

func TestMirroredStoreDelete(t *testing.T) {
	db := testutils.InitLocalStore(t)

	applier := &fakeApplier{}
	q := NewQueue(applier, 8)
	s := NewStore(db, q)

	sess := testutils.SetupTokenlessSession("user-1", session.RoleUser)
	if _, err := s.Upsert(schema.TableTodos, sess, schema.Record{
		"id":      "todo-1",
		"user_id": "user-1",
		"title":   "order rebar",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "upserting"))
	}

	if err := s.Delete(schema.TableTodos, sess, "todo-1"); err != nil {
		t.Fatal(errors.Wrap(err, "deleting"))
	}

	got, err := s.List(schema.TableTodos, sess)
	if err != nil {
		t.Fatal(errors.Wrap(err, "listing"))
	}
	if len(got) != 0 {
		t.Fatalf("record count mismatch. got %d", len(got))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatal(errors.Wrap(err, "shutting down queue"))
	}

	ops := applier.ops()
	if len(ops) != 2 {
		t.Fatalf("enqueued op count mismatch. got %d", len(ops))
	}
	if ops[1].Kind != OpDelete || ops[1].Key != "todo-1" {
		t.Errorf("delete op mismatch: %+v", ops[1])
	}
}

func TestMirroredStoreNilQueue(t *testing.T) {
	db := testutils.InitLocalStore(t)
	s := NewStore(db, nil)

	sess := testutils.SetupTokenlessSession("user-1", session.RoleUser)
	if _, err := s.Upsert(schema.TableTodos, sess, schema.Record{
		"id":      "todo-1",
		"user_id": "user-1",
		"title":   "order rebar",
	}); err != nil {
		t.Fatal(errors.Wrap(err, "upserting"))
	}
	if err := s.Delete(schema.TableTodos, sess, "todo-1"); err != nil {
		t.Fatal(errors.Wrap(err, "deleting"))
	}
}
