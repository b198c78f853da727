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
	"context"
	"fmt"
	"reflect"
)

// Projection turns the rows of a query into result objects. Executors work
// with this untyped contract; ConstructorExpression is the typed
// implementation.
type Projection interface {
	// Select sets the select list of q, joining required relations.
	Select(q *Query) *Query
	// Fetch runs q and stores every row into dest, which must be *[]E.
	Fetch(ctx context.Context, q *Query, dest any) error
	// FetchOne runs q limited to two rows and stores the single row into
	// dest, which must be *E. It reports false when nothing matched and
	// fails with ErrNonUniqueResult when more than one row matched.
	FetchOne(ctx context.Context, q *Query, dest any) (bool, error)
}

type projectionMode int

const (
	constructorMode projectionMode = iota
	fieldsMode
)

var errorType = reflect.TypeFor[error]()

// ConstructorExpression materializes rows as E, either by calling a
// constructor function with the selected values or by mapping the selected
// columns onto the fields of struct E.
type ConstructorExpression[E any] struct {
	mode    projectionMode
	args    []Expression
	fn      reflect.Value
	params  []reflect.Type
	withErr bool
}

var _ Projection = (*ConstructorExpression[struct{}])(nil)

// NewConstructor builds a projection that calls fn for every row. fn takes
// one parameter per argument, in order, and returns E or (E, error).
// Pointer parameters receive nil for SQL NULL.
func NewConstructor[E any](fn any, args ...Expression) (*ConstructorExpression[E], error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil constructor", ErrInvalidProjection)
	}
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: constructor is %s, not a function", ErrInvalidProjection, ft)
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%w: variadic constructor %s", ErrInvalidProjection, ft)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: constructor needs at least one argument", ErrInvalidProjection)
	}
	if ft.NumIn() != len(args) {
		return nil, fmt.Errorf("%w: constructor %s takes %d parameters, got %d arguments",
			ErrInvalidProjection, ft, ft.NumIn(), len(args))
	}
	resultType := reflect.TypeFor[E]()
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == resultType:
	case ft.NumOut() == 2 && ft.Out(0) == resultType && ft.Out(1) == errorType:
	default:
		return nil, fmt.Errorf("%w: constructor %s must return %s or (%s, error)",
			ErrInvalidProjection, ft, resultType, resultType)
	}
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("%w: argument %d is nil", ErrInvalidProjection, i)
		}
	}

	params := make([]reflect.Type, ft.NumIn())
	for i := range params {
		params[i] = ft.In(i)
	}
	return &ConstructorExpression[E]{
		mode:    constructorMode,
		args:    append([]Expression(nil), args...),
		fn:      fv,
		params:  params,
		withErr: ft.NumOut() == 2,
	}, nil
}

// Constructor is like NewConstructor but panics on a malformed constructor.
func Constructor[E any](fn any, args ...Expression) *ConstructorExpression[E] {
	ce, err := NewConstructor[E](fn, args...)
	if err != nil {
		panic(err)
	}
	return ce
}

// NewFields builds a projection that scans the selected columns into the
// fields of struct E by column name, the way Bun scans models. Use As to
// rename columns that do not match.
func NewFields[E any](args ...Expression) (*ConstructorExpression[E], error) {
	typ := reflect.TypeFor[E]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidProjection, typ)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no columns selected", ErrInvalidProjection)
	}
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("%w: argument %d is nil", ErrInvalidProjection, i)
		}
	}
	return &ConstructorExpression[E]{mode: fieldsMode, args: append([]Expression(nil), args...)}, nil
}

// Fields is like NewFields but panics on error.
func Fields[E any](args ...Expression) *ConstructorExpression[E] {
	ce, err := NewFields[E](args...)
	if err != nil {
		panic(err)
	}
	return ce
}

// Args returns the selected expressions.
func (c *ConstructorExpression[E]) Args() []Expression {
	return append([]Expression(nil), c.args...)
}

func (c *ConstructorExpression[E]) Select(q *Query) *Query {
	return q.Columns(c.args...)
}

func (c *ConstructorExpression[E]) Fetch(ctx context.Context, q *Query, dest any) error {
	out, ok := dest.(*[]E)
	if !ok || out == nil {
		return fmt.Errorf("%w: destination %T, want *[]%s", ErrInvalidProjection, dest, reflect.TypeFor[E]())
	}
	rows, err := c.FetchAll(ctx, q)
	if err != nil {
		return err
	}
	*out = rows
	return nil
}

func (c *ConstructorExpression[E]) FetchOne(ctx context.Context, q *Query, dest any) (bool, error) {
	out, ok := dest.(*E)
	if !ok || out == nil {
		return false, fmt.Errorf("%w: destination %T, want *%s", ErrInvalidProjection, dest, reflect.TypeFor[E]())
	}
	rows, err := c.FetchAll(ctx, q.Limit(2))
	if err != nil {
		return false, err
	}
	switch len(rows) {
	case 0:
		return false, nil
	case 1:
		*out = rows[0]
		return true, nil
	default:
		return false, fmt.Errorf("%w: got %d rows", ErrNonUniqueResult, len(rows))
	}
}

// FetchAll runs q, which must already carry this projection's select list,
// and returns the materialized rows.
func (c *ConstructorExpression[E]) FetchAll(ctx context.Context, q *Query) ([]E, error) {
	if c.mode == fieldsMode {
		out := make([]E, 0)
		if err := q.Unwrap().Scan(ctx, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return c.construct(ctx, q)
}

func (c *ConstructorExpression[E]) construct(ctx context.Context, q *Query) ([]E, error) {
	sel := q.Unwrap()
	rows, err := sel.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != len(c.params) {
		return nil, fmt.Errorf("%w: query returned %d columns, constructor takes %d",
			ErrInvalidProjection, len(cols), len(c.params))
	}

	out := make([]E, 0)
	for rows.Next() {
		ptrs := make([]any, len(c.params))
		in := make([]reflect.Value, len(c.params))
		for i, typ := range c.params {
			v := reflect.New(typ)
			ptrs[i] = v.Interface()
			in[i] = v.Elem()
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		res := c.fn.Call(in)
		if c.withErr && !res[1].IsNil() {
			return nil, res[1].Interface().(error)
		}
		v, _ := res[0].Interface().(E)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
