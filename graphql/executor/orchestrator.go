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

	"github.com/nimbus-gql/nimbus/graphql"
	"github.com/nimbus-gql/nimbus/graphql/ast"
	"github.com/nimbus-gql/nimbus/iterator"
)

// ValidateExecutionArgs runs every precondition check Execute/ExecuteSync/
// ExperimentalExecuteIncrementally perform before touching a resolver, without running any of
// them: currently, coercing params.VariableValues against operation's variable definitions. A
// caller that wants to reject a malformed request before committing to an Executor (e.g. before
// acquiring a Runner slot) can call this first; Execute et al. still repeat the same check, so
// calling it is never required for correctness.
func ValidateExecutionArgs(ctx context.Context, operation *PreparedOperation, params ExecuteParams) graphql.Errors {
	_, errs := newExecutionContext(ctx, operation, &params)
	return errs
}

// Execute runs operation to completion and returns its single ExecutionResult, blocking the
// calling goroutine. It is a synchronous convenience wrapper over PreparedOperation.Execute's
// channel, for callers that have no use for @defer/@stream and just want one result back.
func Execute(ctx context.Context, operation *PreparedOperation, params ExecuteParams) ExecutionResult {
	return <-operation.Execute(ctx, params)
}

// ExecuteSync runs operation to completion on the calling goroutine, ignoring params.Runner: no
// child goroutines are spawned for field resolution, even for a query that would otherwise run in
// parallel. Mutations always execute this way already; ExecuteSync is for a caller of a query or
// subscription operation that specifically needs deterministic, single-goroutine execution (for
// example, inside a test, or inside code that cannot safely have resolvers run concurrently).
func ExecuteSync(ctx context.Context, operation *PreparedOperation, params ExecuteParams) ExecutionResult {
	params.Runner = nil
	executionCtx, errs := newExecutionContext(ctx, operation, &params)
	if errs.HaveOccurred() {
		return ExecutionResult{Errors: errs}
	}
	return blockingExecutor{}.Execute(ctx, executionCtx)
}

// IncrementalExecutionResult is the return value of ExperimentalExecuteIncrementally: the portion
// of the response ready immediately (Initial), and, when HasNext is true on it, a Subsequent
// iterator yielding one SubsequentResult per completed deferred group or stream tail until a
// terminal payload (HasNext false) closes it.
type IncrementalExecutionResult struct {
	Initial    ExecutionResult
	HasNext    bool
	Subsequent iterator.AsyncIterator
}

// ExperimentalExecuteIncrementally is the entry point for operations that may use @defer/@stream.
// Unlike Execute, it installs an incrementalPublisher on the ExecutionContext before running the
// operation, so completeObjectValue and completeWrappingValue (executor_impl.go) box up deferred
// selections and stream tails instead of resolving them inline, and returns the immediately
// available portion together with an iterator for the rest. Name and shape follow graphql-js's
// experimentalExecuteIncrementally, which this mirrors: exported under the same "experimental"
// name since, like there, the incremental delivery wire format it produces is still a draft RFC.
func ExperimentalExecuteIncrementally(ctx context.Context, operation *PreparedOperation, params ExecuteParams) (IncrementalExecutionResult, error) {
	if operation.Type() == ast.OperationTypeSubscription {
		return IncrementalExecutionResult{}, graphql.NewError(
			"ExperimentalExecuteIncrementally cannot be used to execute a subscription operation; use Subscribe instead.")
	}

	executionCtx, errs := newExecutionContext(ctx, operation, &params)
	if errs.HaveOccurred() {
		return IncrementalExecutionResult{Initial: ExecutionResult{Errors: errs}}, nil
	}

	publisher := newIncrementalPublisher()
	executionCtx.publisher = publisher
	executionCtx.deferTracker = newDeferTracker()

	e := selectExecutor(operation, params)

	// Running e.Execute synchronously (on the calling goroutine, through this function's return)
	// drains the immediate portion of the tree and, along the way, schedules one publisher producer
	// per deferred group it discovers (scheduleDeferredGroups, executor_impl.go). Those producers are
	// the only pending work publisher.run is waiting for below, so it's safe to start waiting for them
	// only once Execute has returned.
	initial := e.Execute(ctx, executionCtx)

	hasNext := publisher.hasScheduledWork()
	if !hasNext {
		return IncrementalExecutionResult{Initial: initial}, nil
	}

	go publisher.run()

	return IncrementalExecutionResult{
		Initial:    initial,
		HasNext:    true,
		Subsequent: publisher.Iterator(),
	}, nil
}
