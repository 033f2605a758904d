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

package graphql

// PossibleTypeSet is the set of concrete Object types that can show up where an abstract type
// (Interface or Union) was expected: the Object types implementing an Interface, or the member
// types of a Union.
type PossibleTypeSet struct {
	types map[*Object]struct{}
}

// NewPossibleTypeSet creates an empty PossibleTypeSet.
func NewPossibleTypeSet() PossibleTypeSet {
	return PossibleTypeSet{
		types: map[*Object]struct{}{},
	}
}

// Add inserts t into the set.
func (s PossibleTypeSet) Add(t *Object) {
	s.types[t] = struct{}{}
}

// Contains returns true if t is a member of the set.
func (s PossibleTypeSet) Contains(t *Object) bool {
	if s.types == nil {
		return false
	}
	_, ok := s.types[t]
	return ok
}

// Len returns the number of types in the set.
func (s PossibleTypeSet) Len() int {
	return len(s.types)
}

// Slice returns the set's members as a slice, in no particular order.
func (s PossibleTypeSet) Slice() []*Object {
	result := make([]*Object, 0, len(s.types))
	for t := range s.types {
		result = append(result, t)
	}
	return result
}
