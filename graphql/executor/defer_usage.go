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
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// DeferUsage marks one occurrence of @defer in the operation (one inline fragment or fragment
// spread carrying the directive). A @defer nested inside an already-deferred fragment is parented
// at the enclosing usage, so a field's full defer ancestry can be walked via Parent.
type DeferUsage struct {
	ID     uint64
	Label  string
	Parent *DeferUsage
}

// StreamUsage records a @stream directive found on a list field.
type StreamUsage struct {
	Label        string
	InitialCount int
}

// nextDeferUsageID hands out process-wide unique ids for newly discovered DeferUsages. Uniqueness
// only needs to hold within one request, but a global counter is simpler than threading an
// allocator through every collectFields call and costs nothing observable.
var nextDeferUsageID uint64

func newDeferUsage(label string, parent *DeferUsage) *DeferUsage {
	return &DeferUsage{
		ID:     atomic.AddUint64(&nextDeferUsageID, 1),
		Label:  label,
		Parent: parent,
	}
}

// deferUsageSetKey is a comparable reduction of a set of DeferUsages, stable regardless of
// discovery order, suitable for use as a map key.
type deferUsageSetKey string

// deferUsageSetKeyOf reduces usages (which may contain duplicates) to a canonical map key.
func deferUsageSetKeyOf(usages []*DeferUsage) deferUsageSetKey {
	if len(usages) == 0 {
		return ""
	}
	ids := make([]uint64, len(usages))
	for i, usage := range usages {
		ids[i] = usage.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(id, 10))
	}
	return deferUsageSetKey(b.String())
}

// ancestry returns usage and all of its ancestors, root-most first.
func (usage *DeferUsage) ancestry() []*DeferUsage {
	if usage == nil {
		return nil
	}
	chain := usage.Parent.ancestry()
	return append(chain, usage)
}
