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
	"io"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nimbus-gql/nimbus/graphql"
	"github.com/nimbus-gql/nimbus/graphql/internal/value"
)

// discardLogger is used when ExecuteParams.Logger is not supplied, so call sites never need to nil
// check before logging.
var discardLogger = func() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}()

// An ExecutionContext contains data which are required for an Executor to fulfill a request for
// exeuction. The context includes the operation to execute, variables supplied and request-specific
// values, etc..
type ExecutionContext struct {
	// Context for the execution
	ctx context.Context

	// operation being executed.
	operation *PreparedOperation

	// rootValue is the "source" data for the top level field ("root fields").
	rootValue interface{}

	// appContext contains application-specific data which will get passed to all resolve functions.
	appContext interface{}

	// variableValues contains values to the parameters in current query. The values has passed input
	// coercion.
	variableValues graphql.VariableValues

	// dataLoaderManager tracks data loaders used by resolvers during this execution.
	dataLoaderManager graphql.DataLoaderManager

	// logger receives diagnostic (not user-facing) logging for this execution. Defaults to a
	// discard logger when ExecuteParams.Logger is nil.
	logger *logrus.Entry

	// publisher receives deferred-group and stream-tail payloads for delivery after the initial
	// response. nil when the operation is executed through a non-incremental entry point, in which
	// case @defer/@stream usages collected on ExecutionNodes are simply ignored and everything
	// resolves into the single synchronous result.
	publisher *incrementalPublisher

	// deferTracker hands out DeferredFragmentRecords for publisher's deferred groups. Non-nil exactly
	// when publisher is non-nil.
	deferTracker *deferTracker

	// tracer opens one span per resolved field. Defaults to otel's no-op tracer when ExecuteParams
	// doesn't supply one.
	tracer trace.Tracer
}

// newExecutionContext initializes an ExecutionContext given the operation to execute and the
// request data.
func newExecutionContext(ctx context.Context, operation *PreparedOperation, params *ExecuteParams) (*ExecutionContext, graphql.Errors) {
	// Run input coercion on variable values.
	variableValues, errs := value.CoerceVariableValues(
		operation.Schema(),
		operation.VariableDefinitions(),
		params.VariableValues)
	if errs.HaveOccurred() {
		return nil, errs
	}

	logger := params.Logger
	if logger == nil {
		logger = discardLogger
	}

	tracer := params.Tracer
	if tracer == nil {
		// otel.Tracer resolves against the globally registered TracerProvider, which is a no-op until
		// an application calls otel.SetTracerProvider; spans opened against it cost nothing observable.
		tracer = otel.Tracer("github.com/nimbus-gql/nimbus/graphql/executor")
	}

	return &ExecutionContext{
		ctx:               ctx,
		operation:         operation,
		rootValue:         params.RootValue,
		appContext:        params.AppContext,
		variableValues:    variableValues,
		dataLoaderManager: params.DataLoaderManager,
		logger:            logger,
		tracer:            tracer,
	}, graphql.NoErrors()
}

// Logger returns context.logger. It is never nil.
func (context *ExecutionContext) Logger() *logrus.Entry {
	return context.logger
}

// Tracer returns context.tracer. It is never nil.
func (context *ExecutionContext) Tracer() trace.Tracer {
	return context.tracer
}

// Operation returns context.operation.
func (context *ExecutionContext) Operation() *PreparedOperation {
	return context.operation
}

// RootValue returns context.rootValue.
func (context *ExecutionContext) RootValue() interface{} {
	return context.rootValue
}

// AppContext returns context.appContext.
func (context *ExecutionContext) AppContext() interface{} {
	return context.appContext
}

// VariableValues returns context.variableValues.
func (context *ExecutionContext) VariableValues() graphql.VariableValues {
	return context.variableValues
}

// DataLoaderManager returns context.dataLoaderManager.
func (context *ExecutionContext) DataLoaderManager() graphql.DataLoaderManager {
	return context.dataLoaderManager
}
