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
	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Path is a column of an entity, or of a to-one relation joined to it.
type Path struct {
	property string
	alias    string
	column   string
	relation string
	function string
}

var _ Expression = Path{}

// Column builds a path from a table alias and a column name without
// consulting any entity metadata.
func Column(alias, column string) Path {
	return Path{property: column, alias: alias, column: column}
}

// Property returns the property the path was resolved from.
func (p Path) Property() string { return p.property }

// ColumnName returns the unqualified column name.
func (p Path) ColumnName() string { return p.column }

// TableAlias returns the alias the column is qualified with.
func (p Path) TableAlias() string { return p.alias }

// Relation returns the Bun relation name ("Author.Profile") that has to be
// joined for the path to be valid, or "" for columns of the root entity.
func (p Path) Relation() string { return p.relation }

func (p Path) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	if p.function != "" {
		b = append(b, p.function...)
		b = append(b, '(')
	}
	ident := p.column
	if p.alias != "" {
		ident = p.alias + "." + p.column
	}
	b = fmter.AppendIdent(b, ident)
	if p.function != "" {
		b = append(b, ')')
	}
	return b, nil
}

func (p Path) requiredRelations() []string {
	if p.relation == "" {
		return nil
	}
	return []string{p.relation}
}

// Lower wraps the column in lower().
func (p Path) Lower() Path {
	p.function = "lower"
	return p
}

// As aliases the column in a select list.
func (p Path) As(alias string) Template {
	return Template{t: newTemplate(true, "? AS ?", p, schema.Ident(alias))}
}

func (p Path) Eq(v any) Predicate { return atom("? = ?", p, v) }

func (p Path) Ne(v any) Predicate { return atom("? <> ?", p, v) }

func (p Path) Gt(v any) Predicate { return atom("? > ?", p, v) }

func (p Path) Ge(v any) Predicate { return atom("? >= ?", p, v) }

func (p Path) Lt(v any) Predicate { return atom("? < ?", p, v) }

func (p Path) Le(v any) Predicate { return atom("? <= ?", p, v) }

func (p Path) Between(from, to any) Predicate { return atom("? BETWEEN ? AND ?", p, from, to) }

// In matches any of values. An empty list matches nothing.
func (p Path) In(values ...any) Predicate {
	if len(values) == 0 {
		return atom("1 = 0")
	}
	return atom("? IN (?)", p, bun.In(values))
}

// NotIn matches none of values. An empty list matches everything.
func (p Path) NotIn(values ...any) Predicate {
	if len(values) == 0 {
		return atom("1 = 1")
	}
	return atom("? NOT IN (?)", p, bun.In(values))
}

// Like matches a LIKE pattern; wildcards in pattern are not escaped.
func (p Path) Like(pattern string) Predicate { return atom("? LIKE ?", p, pattern) }

// LikeIgnoreCase compares lower(column) with the lower-cased pattern.
func (p Path) LikeIgnoreCase(pattern string) Predicate {
	return atom("? LIKE lower(?)", p.Lower(), pattern)
}

func (p Path) IsNull() Predicate { return atom("? IS NULL", p) }

func (p Path) IsNotNull() Predicate { return atom("? IS NOT NULL", p) }

func (p Path) Asc() OrderSpecifier { return OrderSpecifier{Target: p, Direction: types.ASC} }

func (p Path) Desc() OrderSpecifier { return OrderSpecifier{Target: p, Direction: types.DESC} }
