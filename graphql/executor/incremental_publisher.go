/**
 * Copyright (c) 2018, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package executor

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nimbus-gql/nimbus/graphql"
	"github.com/nimbus-gql/nimbus/iterator"
)

// DeferredFragmentRecord identifies one deferred fragment's place in the response tree: its path,
// optional label, and parent deferred fragment (nil at the root), used to enforce that a deferred
// fragment's payload is never delivered before its parent's.
type DeferredFragmentRecord struct {
	ID     uuid.UUID
	Path   graphql.ResponsePath
	Label  string
	Parent *DeferredFragmentRecord
}

// PendingExecutionGroup pairs the DeferredFragmentRecords a completed group belongs to with its
// boxed result, ready to be hand off to the publisher once its parent (if any) has been released.
type PendingExecutionGroup struct {
	Records []*DeferredFragmentRecord
	Data    *ResultNode
	Errors  graphql.Errors
}

// StreamRecord tracks one @stream's remainder delivery: its path/label for reporting, and a
// cancellation hook invoked when the consumer stops reading early.
type StreamRecord struct {
	ID          uuid.UUID
	Path        graphql.ResponsePath
	Label       string
	earlyReturn func() error
}

// IncrementalItem is one entry of a SubsequentResult's Incremental array: either a completed
// deferred fragment (Data populated) or a batch of streamed list items (Items populated).
type IncrementalItem struct {
	Path   graphql.ResponsePath
	Label  string
	Data   *ResultNode
	Items  []ResultNode
	Errors graphql.Errors
}

// SubsequentResult is one payload emitted after the initial response: either more incremental
// items with HasNext true, or the terminal payload with HasNext false.
type SubsequentResult struct {
	Incremental []IncrementalItem
	HasNext     bool
}

// incrementalPublisher accumulates incremental items produced by concurrently-running deferred
// groups and stream tails and emits them, in completion order, as an iterator.AsyncIterator, the
// same contract subscribe.go uses for per-event results, generalized here to subsequent payloads
// instead of subscription events.
type incrementalPublisher struct {
	values chan interface{} // carries SubsequentResult

	mutex        sync.Mutex
	cancellables []func() error

	pending      sync.WaitGroup
	scheduled    int32 // count of addPending calls made so far; read via hasScheduledWork
	stopOnce     sync.Once
	stopped      chan struct{}
}

func newIncrementalPublisher() *incrementalPublisher {
	return &incrementalPublisher{
		values:  make(chan interface{}, 8),
		stopped: make(chan struct{}),
	}
}

// trackCancellable registers a stream's early-return hook so a consumer-initiated Close invokes
// it.
func (publisher *incrementalPublisher) trackCancellable(fn func() error) {
	if fn == nil {
		return
	}
	publisher.mutex.Lock()
	publisher.cancellables = append(publisher.cancellables, fn)
	publisher.mutex.Unlock()
}

// addPending registers one in-flight producer (a deferred group or a stream tail); the terminal
// payload is withheld until every producer registered this way has called the returned func.
func (publisher *incrementalPublisher) addPending() (done func()) {
	publisher.pending.Add(1)
	atomic.AddInt32(&publisher.scheduled, 1)
	var once sync.Once
	return func() {
		once.Do(publisher.pending.Done)
	}
}

// hasScheduledWork reports whether any producer has ever been registered via addPending. The
// orchestrator uses this, right after the initial (synchronous) portion of the tree has run, to
// decide whether the operation has any incremental payload at all, since a query with no @defer or
// @stream in it never calls addPending and so would otherwise wait forever on an empty run.
func (publisher *incrementalPublisher) hasScheduledWork() bool {
	return atomic.LoadInt32(&publisher.scheduled) > 0
}

// emit sends one non-terminal payload, dropping it instead of blocking forever if the publisher
// has already been stopped.
func (publisher *incrementalPublisher) emit(item IncrementalItem) {
	select {
	case publisher.values <- SubsequentResult{Incremental: []IncrementalItem{item}, HasNext: true}:
	case <-publisher.stopped:
	}
}

// emitGroup converts a completed PendingExecutionGroup into a SubsequentResult payload, keyed by
// its innermost DeferredFragmentRecord (the last one in Records, i.e. the group's own scope).
func (publisher *incrementalPublisher) emitGroup(group *PendingExecutionGroup) {
	record := group.Records[len(group.Records)-1]
	publisher.emit(IncrementalItem{
		Path:   record.Path,
		Label:  record.Label,
		Data:   group.Data,
		Errors: group.Errors,
	})
}

// run waits for every registered producer to finish, emits the terminal payload, and closes the
// channel. Call once, after every producer for the request has been started.
func (publisher *incrementalPublisher) run() {
	publisher.pending.Wait()
	select {
	case publisher.values <- SubsequentResult{HasNext: false}:
	case <-publisher.stopped:
	}
	close(publisher.values)
}

// stop is the AsyncIterator Close hook: it invokes every registered stream's early-return (errors
// ignored, per the cancellation contract) and unblocks any pending emit/run call. Idempotent.
func (publisher *incrementalPublisher) stop() {
	publisher.stopOnce.Do(func() { close(publisher.stopped) })

	publisher.mutex.Lock()
	cancellables := publisher.cancellables
	publisher.cancellables = nil
	publisher.mutex.Unlock()

	for _, fn := range cancellables {
		_ = fn()
	}
}

// Iterator returns the AsyncIterator view callers consume SubsequentResults through.
func (publisher *incrementalPublisher) Iterator() iterator.AsyncIterator {
	return iterator.NewChanAsyncIterator(publisher.values, nil, publisher.stop)
}
