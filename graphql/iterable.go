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

package graphql

import (
	"reflect"

	"github.com/nimbus-gql/nimbus/internal/util"
	"github.com/nimbus-gql/nimbus/iterator"
)

// Iterable defines iteration behavior. The executor recognizes it specially when it is presented
// to a field of a List type, letting a resolver stream values without materializing a slice.
type Iterable interface {
	// Iterator returns an iterator to loop over its values.
	Iterator() Iterator
}

// SizedIterable provides a hint about the size of an Iterable.
type SizedIterable interface {
	Iterable

	// Size provides a hint about the number of values in the sequence.
	Size() int
}

// Iterator defines a way to access values produced by an Iterable.
type Iterator interface {
	// Next returns the next value in iteration. It follows the semantics defined by the iterator
	// package [0] which returns:
	//
	//  - (value, nil): the next value in sequence.
	//  - (<ignored>, iterator.Done): the iterator is past the end of the iterated sequence.
	//  - (<ignored>, <error>): an error occurred when fetching the next value in sequence.
	//
	// [0]: github.com/nimbus-gql/nimbus/iterator
	Next() (interface{}, error)
}

// MapValuesIterable wraps a Go map into an Iterable that loops over the map's values. The given
// map must not be modified during iteration.
type MapValuesIterable struct {
	// m is the map to be iterated; it must be a Go map.
	m interface{}
}

// NewMapValuesIterable creates a MapValuesIterable. m must be a Go map.
func NewMapValuesIterable(m interface{}) *MapValuesIterable {
	return &MapValuesIterable{m}
}

// Iterator implements Iterable.
func (iterable *MapValuesIterable) Iterator() Iterator {
	return NewMapValuesIterator(iterable.m)
}

// Size implements SizedIterable.
func (iterable *MapValuesIterable) Size() int {
	return reflect.ValueOf(iterable.m).Len()
}

// MapValuesIterator iterates over the values in a map.
type MapValuesIterator struct {
	iter *util.ImmutableMapIter
}

// NewMapValuesIterator creates an Iterator that loops over m's values. m must be a Go map.
func NewMapValuesIterator(m interface{}) MapValuesIterator {
	return MapValuesIterator{util.NewImmutableMapIter(m)}
}

// Next implements Iterator.
func (iter MapValuesIterator) Next() (interface{}, error) {
	mapIter := iter.iter
	if !mapIter.Next() {
		return nil, iterator.Done
	}
	return mapIter.Value().Interface(), nil
}
