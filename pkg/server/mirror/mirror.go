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

// Package mirror replicates local writes to the hosted store without making
// the caller wait. Replication runs on a bounded work queue drained by a
// single goroutine; failures are logged to the durable sink and never
// surface to the request that triggered them. The local write is
// authoritative and already committed by the time an operation is enqueued.
package mirror

import (
	"context"
	"sync"

	"github.com/bauhub/bauhub/pkg/server/log"
	"github.com/bauhub/bauhub/pkg/server/remote"
	"github.com/bauhub/bauhub/pkg/server/schema"
	"github.com/bauhub/bauhub/pkg/server/session"
)

const (
	// OpUpsert replicates a local write
	OpUpsert = "upsert"
	// OpDelete replicates a local delete
	OpDelete = "delete"

	// DefaultQueueSize is the default capacity of the work queue
	DefaultQueueSize = 256
)

// Op is a single replication operation
type Op struct {
	Kind    string
	Table   string
	Record  schema.Record
	Key     string
	Session session.UserSession
}

// Applier executes a replication operation against the hosted store
type Applier interface {
	Apply(op Op) error
}

// RemoteApplier applies operations through the hosted store adapter,
// deriving the credential from the operation's session.
type RemoteApplier struct {
	remote *remote.Store
}

// NewRemoteApplier returns an applier backed by the given hosted store
func NewRemoteApplier(r *remote.Store) *RemoteApplier {
	return &RemoteApplier{remote: r}
}

// Apply executes the given operation
func (a *RemoteApplier) Apply(op Op) error {
	client := a.remote.ForSession(op.Session)

	switch op.Kind {
	case OpDelete:
		return client.Delete(op.Table, op.Key, op.Session.UserID)
	default:
		_, err := client.Upsert(op.Table, op.Record)
		return err
	}
}

// Queue is a bounded replication queue with a dedicated drain loop
type Queue struct {
	applier Applier
	ops     chan Op
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given capacity and starts its drain loop
func NewQueue(applier Applier, size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}

	q := &Queue{
		applier: applier,
		ops:     make(chan Op, size),
		done:    make(chan struct{}),
	}
	go q.drain()

	return q
}

// Enqueue hands an operation to the drain loop without blocking the caller.
// When the queue is full or already shut down the operation is dropped with
// a logged error; the divergence stands until the next bulk reconciliation.
func (q *Queue) Enqueue(op Op) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logDrop(op, "queue is shut down")
		return
	}

	select {
	case q.ops <- op:
	default:
		q.logDrop(op, "queue is full")
	}
}

// Shutdown stops intake and waits for the pending operations to drain, or
// for the context to expire, whichever comes first.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ops)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) drain() {
	defer close(q.done)

	for op := range q.ops {
		if err := q.applier.Apply(op); err != nil {
			log.WithModule("mirror").WithFields(log.Fields{
				"op":    op.Kind,
				"table": op.Table,
				"key":   op.Key,
				"err":   err,
			}).Error("replicating to hosted store")
		}
	}
}

func (q *Queue) logDrop(op Op, reason string) {
	log.WithModule("mirror").WithFields(log.Fields{
		"op":    op.Kind,
		"table": op.Table,
		"key":   op.Key,
	}).Error("dropping replication op: " + reason)
}
