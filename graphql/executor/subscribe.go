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
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nimbus-gql/nimbus/graphql"
	"github.com/nimbus-gql/nimbus/graphql/ast"
	"github.com/nimbus-gql/nimbus/iterator"
)

// Subscribe implements "Subscription" [0]: it resolves the single root field of a subscription
// operation to a source event stream, then returns a response event stream which re-executes the
// operation once per source event, with the event value substituted as the root value.
//
// [0]: https://graphql.github.io/graphql-spec/October2021/#sec-Subscription
func Subscribe(ctx context.Context, operation *PreparedOperation, params ExecuteParams) (iterator.AsyncIterator, error) {
	if operation.Type() != ast.OperationTypeSubscription {
		return nil, graphql.NewError("Subscribe can only be used to execute a subscription operation.")
	}

	executionCtx, errs := newExecutionContext(ctx, operation, &params)
	if errs.HaveOccurred() {
		return nil, errs.Errors[0]
	}

	subscriptionID := uuid.New()
	logger := executionCtx.Logger().WithField("subscriptionId", subscriptionID)

	rootType := operation.RootType()
	rootNode := &ExecutionNode{}

	var impl Common
	childNodes, err := impl.collectFields(executionCtx, rootNode, rootType)
	if err != nil {
		return nil, err
	}
	if len(childNodes) != 1 {
		return nil, graphql.NewError(
			"Subscription operation must have exactly one root field.")
	}
	rootFieldNode := childNodes[0]

	if err := assertNoIncrementalDelivery(rootFieldNode); err != nil {
		return nil, err
	}

	subscriber := rootFieldNode.Field.Subscriber()
	if subscriber == nil {
		return nil, graphql.NewError(fmt.Sprintf(
			`Subscription field "%s" does not provide a FieldSubscriber.`, rootFieldNode.Field.Name()))
	}

	rootResult := &ResultNode{Kind: ResultKindUnresolved}
	info := &ResolveInfo{
		ExecutionContext: executionCtx,
		ExecutionNode:    rootFieldNode,
		ResultNode:       rootResult,
		ParentType:       rootType,
		ctx:              ctx,
	}

	logger.Debug("subscribing to source event stream")
	sourceEvents, err := subscriber.Subscribe(ctx, executionCtx.RootValue(), info)
	if err != nil {
		return nil, err
	}

	return &responseEventStream{
		logger:       logger,
		operation:    operation,
		params:       params,
		sourceEvents: sourceEvents,
	}, nil
}

// assertNoIncrementalDelivery rejects @defer/@stream on a subscription's root field. Incremental
// delivery assumes a single in-flight operation producing a sequence of payloads for one response;
// a subscription already produces a sequence of independent responses, one per source event, so the
// two models don't compose. Directives nested deeper in the subscription's selection set are not
// reachable here statically (their enclosing type may only be known once an abstract field resolves
// to a runtime type), but cause no harm if missed: the executor that re-runs the operation per
// event never installs an incrementalPublisher, so a stray @stream/@defer there is simply ignored
// rather than streamed.
func assertNoIncrementalDelivery(node *ExecutionNode) error {
	if node.StreamUsage != nil {
		return graphql.NewError(fmt.Sprintf(
			`@stream is not allowed on field "%s" of a subscription operation.`, node.ResponseKey()))
	}
	if node.DeferUsage != nil {
		return graphql.NewError(fmt.Sprintf(
			`@defer is not allowed on field "%s" of a subscription operation.`, node.ResponseKey()))
	}
	return nil
}

// responseEventStream adapts a source event stream (one value per subscription event) into a
// response event stream (one ExecutionResult per subscription event) by re-running the operation
// with the source event as the new root value.
//
// [0]: https://graphql.github.io/graphql-spec/October2021/#MapSourceToResponseEvent()
type responseEventStream struct {
	logger       *logrus.Entry
	operation    *PreparedOperation
	params       ExecuteParams
	sourceEvents iterator.AsyncIterator
}

// Next implements iterator.AsyncIterator. Each call blocks for the next source event and, once one
// arrives, executes the operation against it, returning an ExecutionResult.
func (stream *responseEventStream) Next(ctx context.Context) (interface{}, error) {
	event, err := stream.sourceEvents.Next(ctx)
	if err != nil {
		return nil, err
	}

	eventParams := stream.params
	eventParams.RootValue = event

	resultChan := stream.operation.Execute(ctx, eventParams)
	select {
	case result := <-resultChan:
		return result, nil
	case <-ctx.Done():
		stream.logger.Warn("context cancelled while executing subscription event")
		return nil, ctx.Err()
	}
}

// Close implements iterator.AsyncIterator.
func (stream *responseEventStream) Close() error {
	return stream.sourceEvents.Close()
}
