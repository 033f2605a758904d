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
	goctx "context"
	"fmt"
	"reflect"

	"github.com/pkg/errors"

	"github.com/nimbus-gql/nimbus/graphql"
	"github.com/nimbus-gql/nimbus/graphql/ast"
	values "github.com/nimbus-gql/nimbus/graphql/internal/value"
	"github.com/nimbus-gql/nimbus/iterator"
)

// Common includes common functions shared between Executor implementations. You might find it
// useful when implementing custom Executor.
type Common struct{}

// BuildRootResultNode returns a node to start execution of an operation.
func (executor Common) BuildRootResultNode(context *ExecutionContext) (*ResultNode, error) {
	rootType := context.Operation().RootType()
	// Root node is a special node which behaves like a field with nil parent and definition.
	rootNode := &ExecutionNode{}
	rootResult := &ResultNode{
		Kind: ResultKindUnresolved,
		Value: &UnresolvedResultValue{
			ExecutionNode: rootNode,
			ParentType:    rootType,
			Source:        context.RootValue(),
		},
	}

	err := executor.completeObjectValue(context, rootType, &ResolveInfo{
		ExecutionContext: context,
		ExecutionNode:    rootNode,
		ResultNode:       rootResult,
		ParentType:       rootType,
		ctx:              goctx.Background(),
	}, context.RootValue())
	if err != nil {
		return nil, err
	}

	return rootResult, nil
}

// Given a selectionSet, adds all of the fields in that selection to the passed in map of fields,
// and returns it at the end.
//
// CollectFields requires the "runtime type" of an object. For a field which returns an Interface or
// Union type, the "runtime type" will be the actual Object type returned by that field.
func (executor Common) collectFields(
	context *ExecutionContext,
	node *ExecutionNode,
	runtimeType *graphql.Object) ([]*ExecutionNode, error) {
	// Look up nodes for the Selection Set with the given runtime type in node's child nodes.
	var childNodes []*ExecutionNode

	if node.Children == nil {
		// Initialize the children node map.
		node.Children = map[*graphql.Object][]*ExecutionNode{}
	} else {
		// See whether we have built one before.
		childNodes = node.Children[runtimeType]
	}

	if childNodes == nil {
		// Load selection set into ExecutionNode's.
		var err error
		childNodes, err = executor.buildChildExecutionNodesForSelectionSet(context, node, runtimeType)
		if err != nil {
			return nil, err
		}
	}

	// Store the result before return.
	node.Children[runtimeType] = childNodes

	return childNodes, nil
}

// Build ExecutionNode's for the selection set of given node.
func (executor Common) buildChildExecutionNodesForSelectionSet(
	context *ExecutionContext,
	parentNode *ExecutionNode,
	runtimeType *graphql.Object) ([]*ExecutionNode, error) {
	// Boolean set to prevent named fragment to be applied twice or more in a selection set.
	visitedFragmentNames := map[string]bool{}

	// Map field response key to its corresponding node; This is used to group field definitions when
	// two fields corresponding to the same response key was requested in the selection set.
	fields := map[string]*ExecutionNode{}

	// The result nodes
	childNodes := []*ExecutionNode{}

	type taskData struct {
		// The Selection Set that is being processed into childNodes
		selectionSet ast.SelectionSet

		// The index of Selection to be resumed when restarting the task.
		selectionIndex int

		// The defer usage in scope for selections in this selection set; nil means "immediately
		// delivered", i.e. not nested under any @defer.
		deferUsage *DeferUsage
	}

	// Stack contains task to be processed.
	var stack []taskData

	// Initialize the stack. Find the selection sets in parentNode to processed.
	if parentNode.IsRoot() {
		stack = []taskData{
			{selectionSet: context.Operation().Definition().SelectionSet},
		}
	} else {
		definitions := parentNode.Definitions
		numDefinitions := len(definitions)
		stack = make([]taskData, numDefinitions)
		// stack is LIFO so place the selection sets in reverse order. Subfields inherit the defer
		// scope their parent field was collected under: a field inside an already-deferred fragment
		// stays deferred all the way down unless a nested @defer introduces a new, more specific scope.
		for i, definition := range definitions {
			stack[numDefinitions-i-1] = taskData{
				selectionSet: definition.SelectionSet,
				deferUsage:   parentNode.DeferUsage,
			}
		}
	}

	for len(stack) > 0 {
		task := &stack[len(stack)-1]

		selectionSet := task.selectionSet
		numSelections := len(selectionSet)
		interrupted := false

		for task.selectionIndex < numSelections && !interrupted {
			selection := selectionSet[task.selectionIndex]
			task.selectionIndex++
			if task.selectionIndex >= numSelections {
				// No more selections in the selection set. Pop it from the stack.
				stack = stack[:len(stack)-1]
			}

			// Check @skip and @include.
			shouldInclude, err := executor.shouldIncludeNode(context, selection)
			if err != nil {
				return nil, err
			} else if !shouldInclude {
				continue
			}

			switch selection := selection.(type) {
			case *ast.Field:
				// Find existing fields.
				name := selection.ResponseKey()
				field := fields[name]
				if field != nil {
					// The field with the same name has been added to the selection set before. Append the
					// definition to the same node to coalesce their selection sets.
					field.Definitions = append(field.Definitions, selection)
					if field.DeferUsage == nil {
						field.DeferUsage = task.deferUsage
					}
				} else {
					// Find corresponding runtime Field definition in current schema.
					fieldDef := executor.findFieldDef(
						context.Operation().Schema(),
						runtimeType,
						selection.Name.Value())
					if fieldDef == nil {
						// Schema doesn't contains the field. Note that we should skip the field without an
						// error as per specification.
						//
						// Reference: 3.c. in https://facebook.github.io/graphql/June2018/#ExecuteSelectionSet().
						break
					}

					// Get argument values.
					arguments, err := values.ArgumentValues(fieldDef, selection, context.VariableValues())
					if err != nil {
						return nil, err
					}

					streamUsage, err := executor.extractStreamUsage(context, selection)
					if err != nil {
						return nil, err
					}

					// Build a node.
					field = &ExecutionNode{
						Parent:         parentNode,
						Definitions:    []*ast.Field{selection},
						Field:          fieldDef,
						ArgumentValues: arguments,
						DeferUsage:     task.deferUsage,
						StreamUsage:    streamUsage,
					}

					// Add to result.
					childNodes = append(childNodes, field)

					// Insert a map entry.
					fields[name] = field
				}

			case *ast.InlineFragment:
				// Apply fragment only if the runtime type satisfied the type condition.
				if selection.HasTypeCondition() {
					if !executor.doesTypeConditionSatisfy(context, selection.TypeCondition, runtimeType) {
						break
					}
				}

				deferUsage, err := executor.extractDeferUsage(context, selection.Directives, task.deferUsage)
				if err != nil {
					return nil, err
				}

				// Push a task to process selection set in the fragment.
				stack = append(stack, taskData{
					selectionSet: selection.SelectionSet,
					deferUsage:   deferUsage,
				})

				// Interrupt current loop to start processing the selection set in the fragment.
				// Specification requires fields to be sorted in DFS order.
				interrupted = true

			case *ast.FragmentSpread:
				fragmentName := selection.Name.Value()

				deferUsage, err := executor.extractDeferUsage(context, selection.Directives, task.deferUsage)
				if err != nil {
					return nil, err
				}

				// A fragment deferred at one spread site may be visited again, undeferred, at another
				// spread site, so the visited set is keyed by the defer scope it was reached through, not
				// just by name.
				visitKey := fragmentName
				if deferUsage != nil {
					visitKey = fmt.Sprintf("%s\x00%d", fragmentName, deferUsage.ID)
				}
				if visited := visitedFragmentNames[visitKey]; visited {
					break
				}
				visitedFragmentNames[visitKey] = true

				// Find fragment definition to get type condition and selection set.
				fragmentDef := context.Operation().FragmentDef(fragmentName)
				if fragmentDef == nil {
					break
				}

				if !executor.doesTypeConditionSatisfy(context, fragmentDef.TypeCondition, runtimeType) {
					break
				}

				// Push a task to process selection set in the fragment.
				stack = append(stack, taskData{
					selectionSet: fragmentDef.SelectionSet,
					deferUsage:   deferUsage,
				})

				interrupted = true
			}
		}
	} // for len(stack) > 0 {

	return childNodes, nil
}

// ExecuteNode implements "Executing Fields" [0]. It resolves the field on the given source object.
// In particular, this figures out the value that the field returns by calling its resolve function,
// then calls completeValue to complete promises, serialize scalars, or execute the
// sub-selection-set for objects.
//
// [0]: https://facebook.github.io/graphql/June2018/#sec-Executing-Fields
func (executor Common) ExecuteNode(
	ctx goctx.Context,
	context *ExecutionContext,
	result *ResultNode) graphql.Errors {

	unresolvedValue := result.UnresolvedValue()
	node := unresolvedValue.ExecutionNode
	parentType := unresolvedValue.ParentType
	source := unresolvedValue.Source

	// If parent becomes a "Invalid Nil" result, one of our sibling or decensant nodes came before us
	// and failed the execution. No need to proceed with execution for this node because the result
	// will always discarded.
	if result.Parent != nil && result.Parent.IsNil() {
		return graphql.NoErrors()
	}

	ctx, span := context.Tracer().Start(ctx, "graphql.field."+node.ResponseKey())
	defer span.End()

	info := &ResolveInfo{
		ExecutionContext: context,
		ExecutionNode:    node,
		ResultNode:       result,
		ParentType:       parentType,
		ctx:              ctx,
	}

	// Get the field resolver.
	field := node.Field
	resolver := field.Resolver()
	if resolver == nil {
		resolver = context.Operation().DefaultFieldResolver()
	}

	// Call resolver to resolve the field value. A panicking resolver is recovered here rather than
	// left to unwind the whole request, and reported as a field error carrying a stack trace.
	value, err := executor.safeResolve(ctx, context, resolver, source, info)
	if err != nil {
		span.RecordError(err)
		return graphql.ErrorsOf(executor.handleFieldError(err, result, node))
	}

	return executor.completeValue(context, field.Type(), info, value)
}

// safeResolve calls resolver.Resolve, recovering a panic and converting it into an error carrying a
// stack trace (via github.com/pkg/errors) instead of letting it unwind the request.
func (executor Common) safeResolve(
	ctx goctx.Context,
	context *ExecutionContext,
	resolver graphql.FieldResolver,
	source interface{},
	info *ResolveInfo) (value interface{}, err error) {

	defer func() {
		if r := recover(); r != nil {
			stackErr := errors.WithStack(fmt.Errorf("resolver panicked: %v", r))
			context.Logger().WithField("path", info.Path()).WithError(stackErr).
				Warn("field resolver panicked; recovering and reporting as a field error")
			err = stackErr
		}
	}()

	return resolver.Resolve(ctx, source, info)
}

func (executor Common) handleFieldError(err error, result *ResultNode, node *ExecutionNode) error {
	// Attach location info.
	locations := make([]graphql.ErrorLocation, len(node.Definitions))
	for i := range node.Definitions {
		locations[i] = graphql.ErrorLocationOfASTNode(node.Definitions[i])
	}

	// Compute response path.
	path := result.Path()

	// Wrap it as a graphql.Error to ensure a consistent Error interface.
	e, ok := err.(*graphql.Error)
	if !ok {
		e = graphql.NewError(err.Error(), locations, path).(*graphql.Error)
	} else {
		e.Locations = locations
		e.Path = path
	}

	// Set result value to a nil value.
	result.Kind = ResultKindNil
	result.Value = nil

	// Impelement "Errors and Non-Nullability". Propagate the field error until a nullable field was
	// encountered.
	//
	// Reference: https://facebook.github.io/graphql/June2018/#sec-Errors-and-Non-Nullability
	for result != nil && result.IsNonNull() {
		result = result.Parent
		result.Kind = ResultKindNil
		result.Value = nil
	}

	return e
}

// completeValue implements "Value Completion" [0]. It ensures the value resolved from the field
// resolver adheres to the expected return type.
//
// [0]: https://facebook.github.io/graphql/June2018/#sec-Value-Completion
func (executor Common) completeValue(
	context *ExecutionContext,
	returnType graphql.Type,
	info *ResolveInfo,
	value interface{}) graphql.Errors {

	if wrappingType, isWrappingType := returnType.(graphql.WrappingType); isWrappingType {
		return executor.completeWrappingValue(context, wrappingType, info, value)
	}

	err := executor.completeNonWrappingValue(context, returnType, info, value)
	if err != nil {
		return graphql.ErrorsOf(err)
	}

	return graphql.NoErrors()
}

// completeWrappingValue completes value for NonNull and List type.
func (executor Common) completeWrappingValue(
	context *ExecutionContext,
	returnType graphql.WrappingType,
	info *ResolveInfo,
	value interface{}) graphql.Errors {
	var errs graphql.Errors

	// Resolvers can return error to signify failure. See https://github.com/graphql/graphql-js/commit/f62c0a25.
	if err, ok := value.(*graphql.Error); ok && err != nil {
		return graphql.ErrorsOf(
			executor.handleFieldError(err, info.ResultNode, info.ExecutionNode))
	}

	type taskData struct {
		returnType graphql.WrappingType
		result     *ResultNode
		value      interface{}
	}
	queue := []taskData{
		{
			returnType: returnType,
			result:     info.ResultNode,
			value:      value,
		},
	}
	node := info.ExecutionNode
	field := node.Field

	for len(queue) > 0 {
		var task *taskData
		// Pop one task from queue.
		task, queue = &queue[0], queue[1:]

		var returnType graphql.Type = task.returnType
		result := task.result
		value := task.value

		// If the parent was resolved to nil, stop processing this node.
		if result.Parent.IsNil() {
			continue
		}

		// Handle non-null.
		nonNullType, isNonNullType := returnType.(*graphql.NonNull)

		if isNonNullType {
			// For non-null type, continue on its unwrapped type.
			returnType = nonNullType.ElementType()
		}

		// Handle nil value.
		if values.IsNullish(value) {
			// Check for non-nullability.
			if isNonNullType {
				err := executor.handleFieldError(
					graphql.NewError(fmt.Sprintf("Cannot return null for non-nullable field %v.%s.",
						info.ParentType.Name(), node.Field.Name())),
					result, node)
				errs.Append(err)
			} else {
				// Resolve the value to nil without error.
				result.Kind = ResultKindNil
				result.Value = nil
			}

			// Continue to the next value.
			continue
		} // if values.IsNullish(value)

		listType, isListType := returnType.(graphql.List)
		if !isListType {
			info.ResultNode = result
			err := executor.completeNonWrappingValue(context, returnType, info, value)
			if err != nil {
				errs.Append(err)
			}
			continue
		}

		// Complete a list value by completing each item in the list with the inner type. A
		// graphql.Iterable is drained into a slice first so the rest of the completion logic can stay
		// slice-shaped; otherwise fall back to reflection over a Go array/slice.
		var elements []interface{}
		if iterable, ok := value.(graphql.Iterable); ok {
			iter := iterable.Iterator()
			iterFailed := false
			for {
				item, err := iter.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					e := executor.handleFieldError(graphql.NewError(err.Error()), result, node)
					errs.Append(e)
					iterFailed = true
					break
				}
				elements = append(elements, item)
			}
			if iterFailed {
				continue
			}
		} else {
			v := reflect.ValueOf(value)
			if v.Kind() == reflect.Ptr {
				v = v.Elem()
			}

			if v.Kind() != reflect.Array && v.Kind() != reflect.Slice {
				err := executor.handleFieldError(
					graphql.NewError(
						fmt.Sprintf("Expected Iterable, but did not find one for field %s.%s.",
							info.ParentType.Name(), field.Name())),
					result, node)
				errs.Append(err)
				continue
			}

			elements = make([]interface{}, v.Len())
			for i := range elements {
				elements[i] = v.Index(i).Interface()
			}
		}

		elementType := listType.ElementType()
		elementWrappingType, isWrappingElementType := elementType.(graphql.WrappingType)

		// @stream splits off everything from initialCount onward into a background stream record,
		// leaving only the prefix in this payload. Inner lists (this list is itself an element of an
		// enclosing list) never stream even if the field carries @stream.
		isInnerList := result.Parent != nil && result.Parent.IsList()
		if node.StreamUsage != nil && !isInnerList && context.publisher != nil &&
			len(elements) > node.StreamUsage.InitialCount {
			initialCount := node.StreamUsage.InitialCount
			if initialCount < 0 {
				initialCount = 0
			}
			remainder := append([]interface{}(nil), elements[initialCount:]...)
			elements = elements[:initialCount]
			executor.streamRemainder(context, info, result, elementType, remainder, initialCount)
		}

		// Setup result nodes for elements.
		numElements := len(elements)
		resultNodes := make([]ResultNode, numElements)

		// Set child results to reject nil value if it is unwrapped from a non-null type.
		if isNonNullType {
			for i := range resultNodes {
				resultNodes[i].SetIsNonNull()
			}
		}

		// Complete result.
		result.Kind = ResultKindList
		result.Value = resultNodes

		if isWrappingElementType {
			for i := range resultNodes {
				resultNode := &resultNodes[i]
				resultNode.Parent = result
				queue = append(queue, taskData{
					returnType: elementWrappingType,
					result:     resultNode,
					value:      elements[i],
				})
			}
		} else {
			for i := range resultNodes {
				resultNode := &resultNodes[i]
				resultNode.Parent = result
				info.ResultNode = resultNode
				value := elements[i]
				err := executor.completeNonWrappingValue(context, elementType, info, value)
				if err != nil {
					errs.Append(err)
				}
			}
		}
	}

	return errs
}

// streamRemainder implements @stream's background delivery of list items beyond initialCount. Each
// item is completed against its own detached ResultNode (Parent left nil), so the usual Path()
// walk over it stops immediately instead of reaching into listResult's storage, which the item was
// never embedded in. The item's real path (listResult's own safe path plus its absolute index) is
// computed once up front and spliced onto whatever relative path completion produced, before the
// item is handed to the publisher.
func (executor Common) streamRemainder(
	context *ExecutionContext,
	info *ResolveInfo,
	listResult *ResultNode,
	elementType graphql.Type,
	remainder []interface{},
	initialCount int) {

	publisher := context.publisher
	node := info.ExecutionNode
	parentType := info.ParentType
	label := ""
	if node.StreamUsage != nil {
		label = node.StreamUsage.Label
	}

	listPath := listResult.Path()
	done := publisher.addPending()

	streamCtx, cancel := goctx.WithCancel(info.ctx)
	publisher.trackCancellable(func() error {
		cancel()
		return nil
	})

	go func() {
		defer done()

		for i, value := range remainder {
			select {
			case <-streamCtx.Done():
				return
			default:
			}

			absoluteIndex := initialCount + i

			itemResult := &ResultNode{}
			itemInfo := &ResolveInfo{
				ExecutionContext: context,
				ExecutionNode:    node,
				ResultNode:       itemResult,
				ParentType:       parentType,
				ctx:              streamCtx,
			}

			errs := executor.completeValue(context, elementType, itemInfo, value)

			// Resolve whatever fields the completed item exposed, the same way scheduleDeferredGroups
			// drains a deferred group's subtree.
			var queue serialExecutionQueue
			executor.EnqueueChildNodes(&queue, itemResult)
			for len(queue) > 0 {
				var node *ResultNode
				node, queue = queue[len(queue)-1], queue[:len(queue)-1]
				nodeErrs := executor.ExecuteNode(streamCtx, context, node)
				if nodeErrs.HaveOccurred() {
					errs.AppendErrors(nodeErrs)
					continue
				}
				executor.EnqueueChildNodes(&queue, node)
			}

			itemPath := listPath.Clone()
			itemPath.AppendIndex(absoluteIndex)
			for _, e := range errs.Errors {
				relative := e.Path
				e.Path = itemPath.Clone()
				e.Path.AppendPath(relative)
			}

			publisher.emit(IncrementalItem{
				Path:   itemPath,
				Label:  label,
				Items:  []ResultNode{*itemResult},
				Errors: errs,
			})
		}
	}()
}

func (executor Common) completeNonWrappingValue(
	context *ExecutionContext,
	returnType graphql.Type,
	info *ResolveInfo,
	value interface{}) error {

	// Non-null and List type should already be handled in completeWrappingValue.
	result := info.ResultNode

	// Check for nullish.
	if values.IsNullish(value) {
		result.Value = nil
		result.Kind = ResultKindNil
		return nil
	}

	// Resolvers can return error to signify failure. See https://github.com/graphql/graphql-js/commit/f62c0a25.
	if err, ok := value.(*graphql.Error); ok {
		return executor.handleFieldError(err, result, info.ExecutionNode)
	}

	switch returnType := returnType.(type) {
	// Scalar and Enum.
	case graphql.LeafType:
		return executor.completeLeafValue(context, returnType, info, value)

	case *graphql.Object:
		return executor.completeObjectValue(context, returnType, info, value)

	// Union and Interface
	case graphql.AbstractType:
		return executor.completeAbstractValue(context, returnType, info, value)
	}

	return executor.handleFieldError(
		graphql.NewError(fmt.Sprintf(`Cannot complete value of unexpected type "%v".`, returnType)),
		result, info.ExecutionNode)
}

func (executor Common) completeLeafValue(
	context *ExecutionContext,
	returnType graphql.LeafType,
	info *ResolveInfo,
	value interface{}) error {

	result := info.ResultNode
	coercedValue, err := returnType.CoerceResultValue(value)
	if err != nil {
		// See comments in graphql.NewCoercionError for the rules of handling error.
		if e, ok := err.(*graphql.Error); !ok || e.Kind != graphql.ErrKindCoercion {
			// Wrap the error in our own.
			err = graphql.NewDefaultResultCoercionError(returnType.Name(), value, err)
		}
		return executor.handleFieldError(err, result, info.ExecutionNode)
	}

	// Setup result and return.
	result.Kind = ResultKindLeaf
	result.Value = coercedValue
	return nil
}

func (executor Common) completeObjectValue(
	context *ExecutionContext,
	returnType *graphql.Object,
	info *ResolveInfo,
	value interface{}) error {

	node := info.ExecutionNode
	result := info.ResultNode

	// The fields collected below belong to returnType, so it is their parent type.
	objectInfo := *info
	objectInfo.ParentType = returnType
	info = &objectInfo

	// Collect fields in the selection set.
	childNodes, err := executor.collectFields(context, node, returnType)
	if err != nil {
		return executor.handleFieldError(err, result, node)
	}

	if context.publisher == nil {
		// No incremental delivery in effect; build the whole selection set into this object, same as
		// a classic, non-deferred execution always has.
		return executor.completeObjectFields(context, childNodes, info, value)
	}

	// Split this object boundary's selection set: fields still in node's own defer scope build here,
	// immediately; fields gated behind a deeper @defer are boxed up and handed to the publisher. This
	// runs at every object boundary, not just the root, so a @defer nested under another @defer is
	// discovered the same way once its enclosing group's fields get built.
	plan := buildExecutionPlan(childNodes, node.DeferUsage)
	if err := executor.completeObjectFields(context, plan.Immediate, info, value); err != nil {
		return err
	}
	if plan.HasDeferredWork() {
		executor.scheduleDeferredGroups(context, plan, info, value)
	}
	return nil
}

// completeObjectFields builds result (info.ResultNode) into an ObjectResultValue over fieldNodes,
// sourced from value. fieldNodes may be the object's whole selection set (the non-incremental case)
// or just the portion not gated behind a deeper @defer (executionPlan.Immediate, or one
// deferredGroup's Nodes).
func (executor Common) completeObjectFields(
	context *ExecutionContext,
	fieldNodes []*ExecutionNode,
	info *ResolveInfo,
	value interface{}) error {

	result := info.ResultNode

	numChildNodes := len(fieldNodes)
	fieldResults := make([]ResultNode, numChildNodes)
	for i := 0; i < numChildNodes; i++ {
		fieldResult := &fieldResults[i]
		childNode := fieldNodes[i]
		fieldResult.Parent = result
		fieldResult.Kind = ResultKindUnresolved
		fieldResult.Value = &UnresolvedResultValue{
			ExecutionNode: childNode,
			ParentType:    info.ParentType,
			Source:        value,
		}
		// Set the flag so field can reject nil value on error.
		if graphql.IsNonNullType(childNode.Field.Type()) {
			fieldResult.SetIsNonNull()
		}
	}

	result.Kind = ResultKindObject
	result.Value = &ObjectResultValue{
		ExecutionNodes: fieldNodes,
		FieldValues:    fieldResults,
	}

	return nil
}

// scheduleDeferredGroups boxes each bucket plan carved out at this object boundary into a
// PendingExecutionGroup and runs it as a background publisher producer: it builds the bucket's
// fields into a detached object result, drains that object's own subtree to completion (which may
// itself split off further-nested deferred groups), then hands the finished group to the publisher.
func (executor Common) scheduleDeferredGroups(
	context *ExecutionContext,
	plan *executionPlan,
	info *ResolveInfo,
	value interface{}) {

	// The path to the object boundary where these fragments were spread, computed once while result
	// is still safely reachable through its normal Parent chain.
	basePath := info.ResultNode.Path()
	parentType := info.ParentType
	parentNode := info.ExecutionNode

	for _, group := range plan.Deferred {
		group := group
		record := context.deferTracker.recordFor(group.Usage, basePath.Clone())
		done := context.publisher.addPending()

		go func() {
			defer done()

			groupResult := &ResultNode{Kind: ResultKindObject}
			groupInfo := &ResolveInfo{
				ExecutionContext: context,
				ExecutionNode:    parentNode,
				ResultNode:       groupResult,
				ParentType:       parentType,
				ctx:              goctx.Background(),
			}

			if err := executor.completeObjectFields(context, group.Nodes, groupInfo, value); err != nil {
				context.publisher.emitGroup(&PendingExecutionGroup{
					Records: []*DeferredFragmentRecord{record},
					Errors:  graphql.ErrorsOf(err),
				})
				return
			}

			// Drain the group's own subtree to completion the same way blockingExecutor/SerialExecutor
			// drain the whole operation: pop an unresolved node, execute it, enqueue whatever it exposed.
			var queue serialExecutionQueue
			executor.EnqueueChildNodes(&queue, groupResult)

			var errs graphql.Errors
			for len(queue) > 0 {
				var node *ResultNode
				node, queue = queue[len(queue)-1], queue[:len(queue)-1]

				nodeErrs := executor.ExecuteNode(goctx.Background(), context, node)
				if nodeErrs.HaveOccurred() {
					errs.AppendErrors(nodeErrs)
					continue
				}
				executor.EnqueueChildNodes(&queue, node)
			}

			context.publisher.emitGroup(&PendingExecutionGroup{
				Records: []*DeferredFragmentRecord{record},
				Data:    groupResult,
				Errors:  errs,
			})
		}()
	}
}

func (executor Common) completeAbstractValue(
	context *ExecutionContext,
	returnType graphql.AbstractType,
	info *ResolveInfo,
	value interface{}) error {

	result := info.ResultNode
	node := info.ExecutionNode

	resolver := returnType.TypeResolver()
	if resolver == nil {
		return executor.handleFieldError(
			graphql.NewError(
				fmt.Sprintf("Abstract type %s must provide resolver to resolve to an Object type at "+
					"runtime for field %s.%s with value %s",
					returnType.Name(), info.ParentType.Name(), node.Field.Name(),
					graphql.Inspect(value))), result, node)
	}

	runtimeType, err := resolver.Resolve(info.ctx, value, info)
	if err != nil {
		return executor.handleFieldError(err, result, node)
	}

	if runtimeType == nil {
		return executor.handleFieldError(
			graphql.NewError(
				fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime for field %s.%s "+
					"with value %s, received nil.",
					returnType.Name(), info.ParentType.Name(), node.Field.Name(),
					graphql.Inspect(value))), result, node)
	}

	possibleTypes := context.Operation().Schema().PossibleTypes(returnType)
	if !possibleTypes.Contains(runtimeType) {
		return executor.handleFieldError(
			graphql.NewError(
				fmt.Sprintf(`Runtime Object type "%s" is not a possible type for "%s".`,
					runtimeType.Name(), returnType.Name())), result, node)
	}

	return executor.completeObjectValue(context, runtimeType, info, value)
}

// ExecutionQueue manages ExecutionNode's that are waiting for processing.
type ExecutionQueue interface {
	// Push adds a ResultNode to the queue for processing. The given node must be an unresolved result
	// (i.e., node.IsUnresolved() returns true.)
	Push(node *ResultNode)
}

// EnqueueChildNodes finds any unresolved child nodes of the given node and adds them to queue.
func (executor Common) EnqueueChildNodes(queue ExecutionQueue, node *ResultNode) {
	stack := []*ResultNode{node}
	for len(stack) > 0 {
		node, stack = stack[len(stack)-1], stack[:len(stack)-1]

		var childNodes []ResultNode
		if node.IsUnresolved() {
			queue.Push(node)
		} else if node.IsList() {
			childNodes = node.ListValue()
		} else if node.IsObject() {
			childNodes = node.ObjectValue().FieldValues
		}

		for i := len(childNodes) - 1; i >= 0; i-- {
			node := &childNodes[i]
			if node.IsUnresolved() {
				queue.Push(node)
			} else if node.IsList() || node.IsObject() {
				stack = append(stack, node)
			}
			// Skip nodes with other kinds. They don't have child nodes.
		}
	}
}

// Determines if a field should be included based on the @include and @skip directives, where @skip
// has higher precedence than @include.
//
// Reference: https://facebook.github.io/graphql/June2018/#sec--include
func (executor Common) shouldIncludeNode(context *ExecutionContext, node ast.Selection) (bool, error) {
	// Neither @skip nor @include has precedence over the other. In the case that both the @skip and
	// @include directives are provided in on the same the field or fragment, it must be queried only
	// if the @skip condition is false and the @include condition is true. Stated conversely, the
	// field or fragment must not be queried if either the @skip condition is true or the @include
	// condition is false.
	skip, err := values.DirectiveValues(
		graphql.SkipDirective(), node.GetDirectives(), context.VariableValues())
	if err != nil {
		return false, err
	}
	shouldSkip := skip.Get("if")
	if shouldSkip != nil && shouldSkip.(bool) {
		return false, nil
	}

	include, err := values.DirectiveValues(
		graphql.IncludeDirective(), node.GetDirectives(), context.VariableValues())
	if err != nil {
		return false, err
	}
	shouldInclude := include.Get("if")
	if shouldInclude != nil && !shouldInclude.(bool) {
		return false, nil
	}

	return true, nil
}

// extractDeferUsage inspects directives for @defer; when present and not disabled by its `if`
// argument, it returns a new DeferUsage parented at the enclosing one (nil if this is the first
// @defer encountered on this path). When @defer is absent or disabled, the enclosing defer usage
// is returned unchanged. The operation type is not checked here: @defer inside a mutation is
// collected like any other, and only ExperimentalExecuteIncrementally rejects subscriptions.
func (executor Common) extractDeferUsage(
	context *ExecutionContext, directives ast.Directives, enclosing *DeferUsage) (*DeferUsage, error) {
	args, err := values.DirectiveValues(graphql.DeferDirective(), directives, context.VariableValues())
	if err != nil {
		return nil, err
	}
	enabled := args.Get("if")
	if enabled == nil || !enabled.(bool) {
		return enclosing, nil
	}
	label, _ := args.Lookup("label")
	labelStr, _ := label.(string)
	return newDeferUsage(labelStr, enclosing), nil
}

// extractStreamUsage inspects a field selection's directives for @stream, returning nil when
// absent or disabled by its `if` argument.
func (executor Common) extractStreamUsage(context *ExecutionContext, field *ast.Field) (*StreamUsage, error) {
	args, err := values.DirectiveValues(graphql.StreamDirective(), field.Directives, context.VariableValues())
	if err != nil {
		return nil, err
	}
	enabled := args.Get("if")
	if enabled == nil || !enabled.(bool) {
		return nil, nil
	}
	label, _ := args.Lookup("label")
	labelStr, _ := label.(string)
	initialCount := 0
	if v := args.Get("initialCount"); v != nil {
		initialCount = v.(int)
	}
	return &StreamUsage{Label: labelStr, InitialCount: initialCount}, nil
}

// This method looks up the field on the given type definition. Only the fields defined on
// parentType are found: the introspection meta-fields (__schema, __type and __typename) are not
// special-cased, so a selection of one of them finds no definition and is skipped.
func (executor Common) findFieldDef(
	schema graphql.Schema,
	parentType *graphql.Object,
	fieldName string) graphql.Field {
	// TODO: Deal with special introspection fields.
	return parentType.Fields()[fieldName]
}

// Determines if a type condition is satisfied with the given type.
func (executor Common) doesTypeConditionSatisfy(
	context *ExecutionContext,
	typeCondition ast.NamedType,
	t *graphql.Object) bool {
	schema := context.Operation().Schema()

	conditionalType := schema.TypeFromAST(typeCondition)
	if conditionalType == t {
		return true
	}

	if abstractType, ok := conditionalType.(graphql.AbstractType); ok {
		return schema.PossibleTypes(abstractType).Contains(t)
	}

	return false
}
