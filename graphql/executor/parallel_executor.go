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
	"context"
	"sync"

	"github.com/nimbus-gql/nimbus/concurrent"
	"github.com/nimbus-gql/nimbus/graphql"
)

// ParallelExecutor implements Executor which executes fields within a selection set concurrently on
// the given concurrent.Executor, dispatching a new wave of tasks for the children of a node only
// after every node in the current wave has been resolved. Query and Subscription root fields run
// this way; Mutation root fields always run with SerialExecutor instead to honor the ordering
// guarantee required by the spec for top-level mutation fields.
type ParallelExecutor struct {
	impl   Common
	runner concurrent.Executor
}

// NewParallelExecutor creates a ParallelExecutor that dispatches node resolution to runner.
func NewParallelExecutor(runner concurrent.Executor) ParallelExecutor {
	return ParallelExecutor{runner: runner}
}

// parallelExecutionQueue collects nodes discovered while executing the current wave; It is safe for
// concurrent use by the goroutines resolving that wave.
type parallelExecutionQueue struct {
	mutex sync.Mutex
	nodes []*ResultNode
}

// Push implements ExecutionQueue.
func (queue *parallelExecutionQueue) Push(node *ResultNode) {
	queue.mutex.Lock()
	queue.nodes = append(queue.nodes, node)
	queue.mutex.Unlock()
}

// drain empties the queue and returns the nodes collected so far.
func (queue *parallelExecutionQueue) drain() []*ResultNode {
	queue.mutex.Lock()
	nodes := queue.nodes
	queue.nodes = nil
	queue.mutex.Unlock()
	return nodes
}

// Execute implements Executor.
func (executor ParallelExecutor) Execute(ctx context.Context, executionCtx *ExecutionContext) ExecutionResult {
	impl := executor.impl

	rootNode, err := impl.BuildRootResultNode(executionCtx)
	if err != nil {
		return ExecutionResult{
			Errors: graphql.ErrorsOf(err.(*graphql.Error)),
		}
	}

	result := ExecutionResult{
		Data: rootNode,
	}

	var wave parallelExecutionQueue
	impl.EnqueueChildNodes(&wave, rootNode)

	for {
		nodes := wave.drain()
		if len(nodes) == 0 {
			break
		}

		errs := executor.runWave(ctx, executionCtx, nodes)
		if errs.HaveOccurred() {
			result.Errors.AppendErrors(errs)
		}

		// Discover the next wave from the nodes just resolved.
		for _, node := range nodes {
			impl.EnqueueChildNodes(&wave, node)
		}
	}

	return result
}

// runWave resolves every node in nodes concurrently on executor.runner and waits for all of them to
// complete before returning.
func (executor ParallelExecutor) runWave(
	ctx context.Context, executionCtx *ExecutionContext, nodes []*ResultNode) graphql.Errors {
	var (
		errs   graphql.Errors
		mutex  sync.Mutex
		wg     sync.WaitGroup
		runner = executor.runner
		impl   = executor.impl
	)

	wg.Add(len(nodes))
	for _, node := range nodes {
		node := node
		task := concurrent.TaskFunc(func() (interface{}, error) {
			defer wg.Done()
			nodeErrs := impl.ExecuteNode(ctx, executionCtx, node)
			if nodeErrs.HaveOccurred() {
				mutex.Lock()
				errs.AppendErrors(nodeErrs)
				mutex.Unlock()
			}
			return nil, nil
		})

		if _, submitErr := runner.Submit(task); submitErr != nil {
			// Could not schedule the task on the runner (e.g., it was shut down); Fall back to running it
			// on the calling goroutine so the wave still completes.
			wg.Done()
			nodeErrs := impl.ExecuteNode(ctx, executionCtx, node)
			if nodeErrs.HaveOccurred() {
				mutex.Lock()
				errs.AppendErrors(nodeErrs)
				mutex.Unlock()
			}
		}
	}

	wg.Wait()
	return errs
}

// blockingExecutor runs every node on the calling goroutine, one at a time, with no concurrency.
// It is used when ExecuteParams.Runner is not provided.
type blockingExecutor struct {
	impl Common
}

// Execute implements Executor.
func (executor blockingExecutor) Execute(ctx context.Context, executionCtx *ExecutionContext) ExecutionResult {
	impl := executor.impl

	rootNode, err := impl.BuildRootResultNode(executionCtx)
	if err != nil {
		return ExecutionResult{
			Errors: graphql.ErrorsOf(err.(*graphql.Error)),
		}
	}

	result := ExecutionResult{
		Data: rootNode,
	}

	var queue serialExecutionQueue
	impl.EnqueueChildNodes(&queue, rootNode)

	for len(queue) > 0 {
		var resultNode *ResultNode
		resultNode, queue = queue[len(queue)-1], queue[:len(queue)-1]

		errs := impl.ExecuteNode(ctx, executionCtx, resultNode)
		if errs.HaveOccurred() {
			result.Errors.AppendErrors(errs)
			continue
		}

		impl.EnqueueChildNodes(&queue, resultNode)
	}

	return result
}
