/**
 * Copyright (c) 2019, The Artemis Authors.
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

package iterator

import "context"

// AsyncIterator generalizes Iterator for sequences whose next value may not be available yet: a
// subscription's source events, or the remainder of a streamed list. It follows the same
// (value, error) convention as Iterator, with Done as sentinel, except fetching the next value can
// block and must therefore observe ctx cancellation.
type AsyncIterator interface {
	// Next blocks until the next value is available, ctx is done, or the sequence is exhausted. It
	// returns:
	//
	//  - (value, nil): the next value in sequence.
	//  - (<ignored>, Done): the sequence is exhausted; no further calls should be made.
	//  - (<ignored>, ctx.Err()): ctx was cancelled or its deadline exceeded while waiting.
	//  - (<ignored>, <error>): the source failed to produce a next value.
	Next(ctx context.Context) (interface{}, error)

	// Close releases resources held by the iterator (e.g. unsubscribes from the source event
	// stream) and unblocks any in-flight Next call with Done. Close is idempotent.
	Close() error
}

// CloserFunc adapts a plain func() error into something that can be embedded where a Close method
// is required, without pulling in io.Closer's wider surface.
type CloserFunc func() error

// Close calls f().
func (f CloserFunc) Close() error {
	if f == nil {
		return nil
	}
	return f()
}

// SliceAsyncIterator adapts a pre-computed slice of values into an AsyncIterator. It never blocks
// beyond observing ctx, and is mainly useful for tests and for the "remainder" half of a list whose
// prefix has already been completed synchronously.
type SliceAsyncIterator struct {
	values []interface{}
	pos    int
	closed bool
}

// NewSliceAsyncIterator creates an AsyncIterator that yields values in order.
func NewSliceAsyncIterator(values []interface{}) *SliceAsyncIterator {
	return &SliceAsyncIterator{values: values}
}

// Next implements AsyncIterator.
func (it *SliceAsyncIterator) Next(ctx context.Context) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.closed || it.pos >= len(it.values) {
		return nil, Done
	}
	v := it.values[it.pos]
	it.pos++
	return v, nil
}

// Close implements AsyncIterator.
func (it *SliceAsyncIterator) Close() error {
	it.closed = true
	return nil
}

// ChanAsyncIterator adapts a Go channel into an AsyncIterator. It is the usual shape of a
// subscription event source: a resolver returns a ChanAsyncIterator wrapping the channel it
// receives published events on, and Close stops the publishing goroutine via stop.
type ChanAsyncIterator struct {
	values <-chan interface{}
	errs   <-chan error
	stop   func()
	closed bool
}

// NewChanAsyncIterator creates an AsyncIterator backed by values and errs. Exactly one of values or
// errs is expected to carry a value per logical event; stop is invoked (once) on Close.
func NewChanAsyncIterator(values <-chan interface{}, errs <-chan error, stop func()) *ChanAsyncIterator {
	return &ChanAsyncIterator{values: values, errs: errs, stop: stop}
}

// Next implements AsyncIterator.
func (it *ChanAsyncIterator) Next(ctx context.Context) (interface{}, error) {
	if it.closed {
		return nil, Done
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v, ok := <-it.values:
		if !ok {
			return nil, Done
		}
		return v, nil
	case err, ok := <-it.errs:
		if !ok {
			return nil, Done
		}
		return nil, err
	}
}

// Close implements AsyncIterator.
func (it *ChanAsyncIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.stop != nil {
		it.stop()
	}
	return nil
}
