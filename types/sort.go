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

package types

import (
	"fmt"
	"strings"
)

// Direction is the sort direction of an order.
type Direction int

const (
	ASC Direction = iota
	DESC
)

var _ BaseEnum = ASC

func (d Direction) IsValid() bool { return d == ASC || d == DESC }

func (d Direction) Number() int {
	if !d.IsValid() {
		return IllegalValue
	}
	return int(d)
}

func (d Direction) Name() string {
	switch d {
	case ASC:
		return "ASC"
	case DESC:
		return "DESC"
	default:
		return IllegalName
	}
}

func (d Direction) String() string { return d.Name() }

func (d Direction) Desc() string {
	switch d {
	case ASC:
		return "ascending"
	case DESC:
		return "descending"
	default:
		return IllegalDesc
	}
}

// ParseDirection parses "asc"/"desc" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return ASC, nil
	case "DESC":
		return DESC, nil
	default:
		return ASC, fmt.Errorf("invalid sort direction %q", s)
	}
}

// NullHandling controls where NULL values are placed in an ordering.
type NullHandling int

const (
	// Native leaves NULL placement to the database.
	Native NullHandling = iota
	NullsFirst
	NullsLast
)

var _ BaseEnum = Native

func (n NullHandling) IsValid() bool { return n >= Native && n <= NullsLast }

func (n NullHandling) Number() int {
	if !n.IsValid() {
		return IllegalValue
	}
	return int(n)
}

func (n NullHandling) Name() string {
	switch n {
	case Native:
		return "NATIVE"
	case NullsFirst:
		return "NULLS_FIRST"
	case NullsLast:
		return "NULLS_LAST"
	default:
		return IllegalName
	}
}

func (n NullHandling) String() string { return n.Name() }

func (n NullHandling) Desc() string {
	switch n {
	case Native:
		return "database default"
	case NullsFirst:
		return "nulls before non-null values"
	case NullsLast:
		return "nulls after non-null values"
	default:
		return IllegalDesc
	}
}

// Order is a single property ordering. Property is a Go field name, a column
// name or a dotted path through to-one relations ("author.name").
type Order struct {
	Property     string
	Direction    Direction
	IgnoreCase   bool
	NullHandling NullHandling
}

// Asc returns an ascending order for property.
func Asc(property string) Order { return Order{Property: property, Direction: ASC} }

// Desc returns a descending order for property.
func Desc(property string) Order { return Order{Property: property, Direction: DESC} }

func (o Order) WithIgnoreCase() Order {
	o.IgnoreCase = true
	return o
}

func (o Order) WithNullsFirst() Order {
	o.NullHandling = NullsFirst
	return o
}

func (o Order) WithNullsLast() Order {
	o.NullHandling = NullsLast
	return o
}

func (o Order) String() string {
	s := o.Property + " " + o.Direction.String()
	if o.IgnoreCase {
		s += " IGNORE_CASE"
	}
	if o.NullHandling != Native {
		s += " " + o.NullHandling.String()
	}
	return s
}

// Sort is an ordered list of property orderings. The zero value is unsorted.
type Sort struct {
	Orders []Order
}

// Unsorted returns a Sort without orders.
func Unsorted() Sort { return Sort{} }

// By returns an ascending Sort over the given properties.
func By(properties ...string) Sort {
	orders := make([]Order, 0, len(properties))
	for _, p := range properties {
		orders = append(orders, Asc(p))
	}
	return Sort{Orders: orders}
}

// ByOrders returns a Sort over the given orders.
func ByOrders(orders ...Order) Sort {
	return Sort{Orders: append([]Order(nil), orders...)}
}

// ParseSort parses expressions like "name DESC" or "id asc".
func ParseSort(exprs ...string) (Sort, error) {
	var s Sort
	for _, expr := range exprs {
		fields := strings.Fields(expr)
		if len(fields) == 0 {
			continue
		}
		if len(fields) > 2 {
			return Sort{}, fmt.Errorf("invalid sort expression %q", expr)
		}
		o := Asc(fields[0])
		if len(fields) == 2 {
			d, err := ParseDirection(fields[1])
			if err != nil {
				return Sort{}, err
			}
			o.Direction = d
		}
		s.Orders = append(s.Orders, o)
	}
	return s, nil
}

func (s Sort) IsSorted() bool { return len(s.Orders) > 0 }

// And returns a new Sort with the orders of other appended.
func (s Sort) And(other Sort) Sort {
	orders := make([]Order, 0, len(s.Orders)+len(other.Orders))
	orders = append(orders, s.Orders...)
	orders = append(orders, other.Orders...)
	return Sort{Orders: orders}
}

func (s Sort) Ascending() Sort { return s.withDirection(ASC) }

func (s Sort) Descending() Sort { return s.withDirection(DESC) }

func (s Sort) withDirection(d Direction) Sort {
	orders := make([]Order, len(s.Orders))
	for i, o := range s.Orders {
		o.Direction = d
		orders[i] = o
	}
	return Sort{Orders: orders}
}

func (s Sort) String() string {
	if !s.IsSorted() {
		return "UNSORTED"
	}
	parts := make([]string, len(s.Orders))
	for i, o := range s.Orders {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}
