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

	"github.com/google/uuid"

	"github.com/nimbus-gql/nimbus/graphql"
)

// executionPlan partitions a grouped field set (an ExecutionNode slice, as produced by
// Common.collectFields) into the part deliverable in the current payload and the parts that must
// wait behind one or more @defer usages.
type executionPlan struct {
	// Immediate holds nodes whose defer scope matches what's already in scope for the caller (nil at
	// the operation root), i.e. nodes delivered in the current payload.
	Immediate []*ExecutionNode

	// Deferred maps a newly-introduced defer-usage scope to the nodes gated behind it. Two fields
	// reached through different selections that resolve to the same DeferUsage (merged fields) land
	// in the same bucket.
	Deferred map[deferUsageSetKey]*deferredGroup
}

// deferredGroup is one bucket of Deferred: the nodes sharing a defer scope, plus that scope's
// usage record (carrying its label and parent, for building a DeferredFragmentRecord).
type deferredGroup struct {
	Usage *DeferUsage
	Nodes []*ExecutionNode
}

// buildExecutionPlan implements the plan-builder policy: for each node, compare the defer usage it
// was collected under against inScope (the usage already active for the enclosing selection, nil
// at the root). A match means the field belongs to the immediately-executed group; a mismatch
// buckets it by its own usage. Buckets for the same usage merge, matching merged-field semantics.
func buildExecutionPlan(nodes []*ExecutionNode, inScope *DeferUsage) *executionPlan {
	plan := &executionPlan{}
	for _, node := range nodes {
		if node.DeferUsage == inScope {
			plan.Immediate = append(plan.Immediate, node)
			continue
		}

		if plan.Deferred == nil {
			plan.Deferred = map[deferUsageSetKey]*deferredGroup{}
		}
		key := deferUsageSetKeyOf([]*DeferUsage{node.DeferUsage})
		group := plan.Deferred[key]
		if group == nil {
			group = &deferredGroup{Usage: node.DeferUsage}
			plan.Deferred[key] = group
		}
		group.Nodes = append(group.Nodes, node)
	}
	return plan
}

// HasDeferredWork reports whether plan carved out any deferred buckets.
func (plan *executionPlan) HasDeferredWork() bool {
	return len(plan.Deferred) > 0
}

// deferTracker hands out one DeferredFragmentRecord per DeferUsage, the first time a group using
// that scope is scheduled, so a nested defer discovered later (possibly by a different goroutine,
// since ParallelExecutor completes sibling fields concurrently) can find its enclosing record via
// DeferUsage.Parent regardless of which object boundary reaches it first.
type deferTracker struct {
	mutex   sync.Mutex
	records map[*DeferUsage]*DeferredFragmentRecord
}

func newDeferTracker() *deferTracker {
	return &deferTracker{records: map[*DeferUsage]*DeferredFragmentRecord{}}
}

// recordFor returns the DeferredFragmentRecord for usage, creating it (parented at usage.Parent's
// record, if any) the first time usage is seen. path is the response path of the object boundary
// where usage's fragment was spread; it is only used the first time, to build the record.
func (tracker *deferTracker) recordFor(usage *DeferUsage, path graphql.ResponsePath) *DeferredFragmentRecord {
	tracker.mutex.Lock()
	defer tracker.mutex.Unlock()

	if record, ok := tracker.records[usage]; ok {
		return record
	}

	var parent *DeferredFragmentRecord
	if usage.Parent != nil {
		parent = tracker.records[usage.Parent]
	}

	record := &DeferredFragmentRecord{
		ID:     uuid.New(),
		Path:   path,
		Label:  usage.Label,
		Parent: parent,
	}
	tracker.records[usage] = record
	return record
}
