// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package frame

// optimize rewrites a plan into an equivalent one that does less
// work. The rules are:
//
//  1. A filter directly above a sort moves below it, so the sort sees
//     fewer rows.
//  2. A sort directly below an aggregate is dropped. Aggregation does
//     not preserve input order, so the sort cannot affect the result
//     beyond the order of the groups, which is unspecified.
//  3. If the plan ends in an aggregate or a select, the scan reads
//     only the columns the plan uses.
//
// Rules 1 and 2 are applied until neither matches. optimize never
// modifies its argument and is idempotent.
func optimize(n node) node {
	for {
		var changed bool
		n, changed = rewrite(n)
		if !changed {
			break
		}
	}
	return pushProjection(n, nil)
}

// rewrite applies one bottom-up pass of the reordering rules.
func rewrite(n node) (node, bool) {
	if n == nil {
		return nil, false
	}
	in, changed := rewrite(n.input())
	if changed {
		n = n.withInput(in)
	}
	switch n := n.(type) {
	case *filterNode:
		if s, ok := n.in.(*sortNode); ok {
			return s.withInput(n.withInput(s.in)), true
		}
	case *aggNode:
		if s, ok := n.in.(*sortNode); ok {
			return n.withInput(s.in), true
		}
	}
	return n, changed
}

type projectable interface {
	withCols(cols []string) node
}

// pushProjection threads the set of needed columns down to the leaf
// of the plan. A nil need means every column is needed.
func pushProjection(n node, need []string) node {
	switch n := n.(type) {
	case *aggNode:
		cols := make([]string, len(n.aggs))
		for i, a := range n.aggs {
			cols[i] = a.Column
		}
		return n.withInput(pushProjection(n.in, union(n.keys, cols)))
	case *selectNode:
		return n.withInput(pushProjection(n.in, union(n.cols)))
	case *filterNode:
		if need != nil {
			need = union(need, n.pred.columns())
		}
		return n.withInput(pushProjection(n.in, need))
	case *sortNode:
		if need != nil {
			need = union(need, n.by)
		}
		return n.withInput(pushProjection(n.in, need))
	case projectable:
		if need != nil {
			return n.withCols(need)
		}
	}
	return n
}
