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

	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun/schema"
)

// Expression is a SQL fragment rendered by Bun's formatter.
type Expression interface {
	schema.QueryAppender
}

// relationRequirer is implemented by expressions that reference columns of
// joined relations.
type relationRequirer interface {
	requiredRelations() []string
}

// RequiredRelations returns the relations the given values reference, in
// first-seen order and without duplicates.
func RequiredRelations(values ...any) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		r, ok := v.(relationRequirer)
		if !ok {
			continue
		}
		for _, rel := range r.requiredRelations() {
			if _, dup := seen[rel]; dup {
				continue
			}
			seen[rel] = struct{}{}
			out = append(out, rel)
		}
	}
	return out
}

// template is a query with Bun placeholders and its arguments. Atomic
// templates can be combined without extra parentheses.
type template struct {
	query     string
	args      []any
	relations []string
	atomic    bool
}

func newTemplate(atomic bool, query string, args ...any) *template {
	return &template{
		query:     query,
		args:      args,
		relations: RequiredRelations(args...),
		atomic:    atomic,
	}
}

func (t *template) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	return fmter.AppendQuery(b, t.query, t.args...), nil
}

// Template is a free-form expression, e.g. an aggregate or a function call,
// usable as a projection argument or an order target.
type Template struct {
	t *template
}

var _ Expression = Template{}

// Raw builds an expression from a Bun query template.
func Raw(query string, args ...any) Template {
	return Template{t: newTemplate(false, query, args...)}
}

func (e Template) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	if e.t == nil {
		return append(b, "NULL"...), nil
	}
	return e.t.AppendQuery(fmter, b)
}

func (e Template) requiredRelations() []string {
	if e.t == nil {
		return nil
	}
	return e.t.relations
}

// As aliases the expression in a select list.
func (e Template) As(alias string) Template {
	return Template{t: newTemplate(true, "? AS ?", e, schema.Ident(alias))}
}

func (e Template) Asc() OrderSpecifier { return OrderSpecifier{Target: e} }

func (e Template) Desc() OrderSpecifier { return OrderSpecifier{Target: e, Direction: types.DESC} }

// Predicate is a boolean SQL expression. The zero value is "no predicate" and
// is skipped wherever predicates are combined or applied.
type Predicate struct {
	t *template
}

var _ Expression = Predicate{}

// Expr builds a predicate from a Bun query template such as
// "? > now() - interval '1 day'".
func Expr(query string, args ...any) Predicate {
	return Predicate{t: newTemplate(false, query, args...)}
}

func atom(query string, args ...any) Predicate {
	return Predicate{t: newTemplate(true, query, args...)}
}

func (p Predicate) IsZero() bool { return p.t == nil }

func (p Predicate) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	if p.t == nil {
		return append(b, "1 = 1"...), nil
	}
	return p.t.AppendQuery(fmter, b)
}

func (p Predicate) requiredRelations() []string {
	if p.t == nil {
		return nil
	}
	return p.t.relations
}

func (p Predicate) And(others ...Predicate) Predicate {
	return And(append([]Predicate{p}, others...)...)
}

func (p Predicate) Or(others ...Predicate) Predicate {
	return Or(append([]Predicate{p}, others...)...)
}

func (p Predicate) Not() Predicate { return Not(p) }

// And combines predicates with AND, ignoring zero predicates.
func And(predicates ...Predicate) Predicate { return combine(" AND ", predicates) }

// Or combines predicates with OR, ignoring zero predicates.
func Or(predicates ...Predicate) Predicate { return combine(" OR ", predicates) }

// Not negates p. The negation of a zero predicate is zero.
func Not(p Predicate) Predicate {
	if p.IsZero() {
		return p
	}
	return atom("NOT (?)", p)
}

func combine(op string, predicates []Predicate) Predicate {
	operands := make([]any, 0, len(predicates))
	parts := make([]string, 0, len(predicates))
	for _, p := range predicates {
		if p.IsZero() {
			continue
		}
		operands = append(operands, p)
		if p.t.atomic {
			parts = append(parts, "?")
		} else {
			parts = append(parts, "(?)")
		}
	}
	switch len(operands) {
	case 0:
		return Predicate{}
	case 1:
		return operands[0].(Predicate)
	}
	return atom("("+strings.Join(parts, op)+")", operands...)
}
