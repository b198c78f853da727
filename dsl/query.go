/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dsl

import (
	"strings"

	"github.com/uptrace/bun"
)

// Query wraps a Bun select query and remembers which relations were joined,
// so that predicates, projections and orders can share joins.
type Query struct {
	sel    *bun.SelectQuery
	joined map[string]struct{}
}

// NewQuery wraps sel.
func NewQuery(sel *bun.SelectQuery) *Query {
	return &Query{sel: sel, joined: make(map[string]struct{})}
}

// From starts a query over the entity of path.
func From(db bun.IDB, path *EntityPath) *Query {
	return NewQuery(db.NewSelect().Model(path.Model()))
}

// Unwrap returns the underlying Bun query.
func (q *Query) Unwrap() *bun.SelectQuery { return q.sel }

// Join joins a to-one relation without selecting its columns. Parents of a
// nested relation are joined first; joining twice is a no-op.
func (q *Query) Join(relation string) *Query {
	if relation == "" {
		return q
	}
	parts := strings.Split(relation, ".")
	for i := range parts {
		name := strings.Join(parts[:i+1], ".")
		if _, ok := q.joined[name]; ok {
			continue
		}
		q.sel.Relation(name, excludeColumns)
		q.joined[name] = struct{}{}
	}
	return q
}

func excludeColumns(q *bun.SelectQuery) *bun.SelectQuery {
	return q.ExcludeColumn("*")
}

// Joined reports whether relation has been joined.
func (q *Query) Joined(relation string) bool {
	_, ok := q.joined[relation]
	return ok
}

// JoinRequired joins every relation the given expressions reference.
func (q *Query) JoinRequired(exprs ...any) *Query {
	for _, rel := range RequiredRelations(exprs...) {
		q.Join(rel)
	}
	return q
}

// Filter adds predicates to the WHERE clause. Zero predicates are skipped.
func (q *Query) Filter(predicates ...Predicate) *Query {
	for _, p := range predicates {
		if p.IsZero() {
			continue
		}
		q.JoinRequired(p)
		q.sel.Where("?", p)
	}
	return q
}

// OrderBy appends order specifiers.
func (q *Query) OrderBy(orders ...OrderSpecifier) *Query {
	for _, o := range orders {
		if o.Target == nil {
			continue
		}
		q.JoinRequired(o)
		q.sel.OrderExpr("?", o)
	}
	return q
}

// Columns sets the select list to the given expressions.
func (q *Query) Columns(exprs ...Expression) *Query {
	for _, e := range exprs {
		q.JoinRequired(e)
		q.sel.ColumnExpr("?", e)
	}
	return q
}

func (q *Query) Offset(n int) *Query {
	q.sel.Offset(n)
	return q
}

func (q *Query) Limit(n int) *Query {
	q.sel.Limit(n)
	return q
}

// Lock adds a FOR clause, e.g. "UPDATE" or "SHARE".
func (q *Query) Lock(clause string) *Query {
	q.sel.For(clause)
	return q
}

func (q *Query) String() string { return q.sel.String() }
