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

package repository

import (
	"context"

	"github.com/tomoncle/hummerx/dsl"
	"github.com/tomoncle/hummerx/types"
)

// FetchOne runs exec.FindOne with a typed projection. It returns nil when
// nothing matched.
func FetchOne[E any](ctx context.Context, exec PredicateProjectionExecutor, pred dsl.Predicate, proj *dsl.ConstructorExpression[E]) (*E, error) {
	var out E
	found, err := exec.FindOne(ctx, pred, proj, &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func FetchAll[E any](ctx context.Context, exec PredicateProjectionExecutor, pred dsl.Predicate, proj *dsl.ConstructorExpression[E]) ([]E, error) {
	var out []E
	if err := exec.FindAll(ctx, pred, proj, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func FetchAllSorted[E any](ctx context.Context, exec PredicateProjectionExecutor, pred dsl.Predicate, sort types.Sort, proj *dsl.ConstructorExpression[E]) ([]E, error) {
	var out []E
	if err := exec.FindAllSorted(ctx, pred, sort, proj, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func FetchAllOrdered[E any](ctx context.Context, exec PredicateProjectionExecutor, pred dsl.Predicate, proj *dsl.ConstructorExpression[E], orders ...dsl.OrderSpecifier) ([]E, error) {
	var out []E
	if err := exec.FindAllOrdered(ctx, pred, proj, &out, orders...); err != nil {
		return nil, err
	}
	return out, nil
}

func FetchAllBy[E any](ctx context.Context, exec PredicateProjectionExecutor, proj *dsl.ConstructorExpression[E], orders ...dsl.OrderSpecifier) ([]E, error) {
	var out []E
	if err := exec.FindAllBy(ctx, proj, &out, orders...); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchPage runs exec.FindPage and assembles the typed page.
func FetchPage[E any](ctx context.Context, exec PredicateProjectionExecutor, pred dsl.Predicate, pageable types.Pageable, proj *dsl.ConstructorExpression[E]) (*types.Page[E], error) {
	var out []E
	info, err := exec.FindPage(ctx, pred, pageable, proj, &out)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = make([]E, 0)
	}
	return &types.Page[E]{PageInfo: *info, Content: out}, nil
}
