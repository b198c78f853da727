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
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/schema"
)

// OrderSpecifier orders by an expression.
type OrderSpecifier struct {
	Target       Expression
	Direction    types.Direction
	NullHandling types.NullHandling
	IgnoreCase   bool
}

var _ Expression = OrderSpecifier{}

func (o OrderSpecifier) NullsFirst() OrderSpecifier {
	o.NullHandling = types.NullsFirst
	return o
}

func (o OrderSpecifier) NullsLast() OrderSpecifier {
	o.NullHandling = types.NullsLast
	return o
}

func (o OrderSpecifier) WithIgnoreCase() OrderSpecifier {
	o.IgnoreCase = true
	return o
}

// AppendQuery renders the ORDER BY item. Dialects without NULLS FIRST/LAST
// get a leading CASE key instead.
func (o OrderSpecifier) AppendQuery(fmter schema.Formatter, b []byte) ([]byte, error) {
	var target any = o.Target
	if o.IgnoreCase {
		target = Raw("lower(?)", o.Target)
	}
	dir := " ASC"
	if o.Direction == types.DESC {
		dir = " DESC"
	}
	if o.NullHandling == types.Native {
		return fmter.AppendQuery(b, "?"+dir, target), nil
	}

	switch fmter.Dialect().Name() {
	case dialect.PG, dialect.SQLite:
		nulls := " NULLS LAST"
		if o.NullHandling == types.NullsFirst {
			nulls = " NULLS FIRST"
		}
		return fmter.AppendQuery(b, "?"+dir+nulls, target), nil
	default:
		key := "CASE WHEN ? IS NULL THEN 1 ELSE 0 END"
		if o.NullHandling == types.NullsFirst {
			key = "CASE WHEN ? IS NULL THEN 0 ELSE 1 END"
		}
		return fmter.AppendQuery(b, key+", ?"+dir, target, target), nil
	}
}

func (o OrderSpecifier) requiredRelations() []string {
	return RequiredRelations(o.Target)
}

// QSort is an ordered list of order specifiers.
type QSort []OrderSpecifier

// NewQSort returns the given specifiers as a QSort.
func NewQSort(orders ...OrderSpecifier) QSort {
	return append(QSort(nil), orders...)
}

func (s QSort) IsSorted() bool { return len(s) > 0 }

// And appends more specifiers.
func (s QSort) And(orders ...OrderSpecifier) QSort {
	out := make(QSort, 0, len(s)+len(orders))
	out = append(out, s...)
	return append(out, orders...)
}

// ToOrderSpecifiers resolves a property based sort against an entity path.
func ToOrderSpecifiers(path *EntityPath, sort types.Sort) (QSort, error) {
	out := make(QSort, 0, len(sort.Orders))
	for _, o := range sort.Orders {
		p, err := path.Get(o.Property)
		if err != nil {
			return nil, err
		}
		out = append(out, OrderSpecifier{
			Target:       p,
			Direction:    o.Direction,
			NullHandling: o.NullHandling,
			IgnoreCase:   o.IgnoreCase,
		})
	}
	return out, nil
}
