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
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, id any) (*T, error)

	GetAll(ctx context.Context) ([]*T, error)

	// List returns the entities matching pred; a zero predicate matches all.
	List(ctx context.Context, pred dsl.Predicate) ([]*T, error)

	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Count(ctx context.Context, pred dsl.Predicate) (int, error)

	Exists(ctx context.Context, pred dsl.Predicate) (bool, error)

	Create(ctx context.Context, entity ...*T) error

	Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error

	Update(ctx context.Context, entity *T) error

	Delete(ctx context.Context, id any) error
}

// TransactionRepository defines CRUD operations executed within a transaction.
type TransactionRepository[T any] interface {
	CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error
	UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error
	UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error
	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, pred dsl.Predicate, pageable types.Pageable) (*types.Page[*T], error)
}

// Repository combines CRUD, pagination, and transactional operations and
// exposes Bun query builders for advanced use cases.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
	TransactionRepository[T]
	EntityPath() (*dsl.EntityPath, error)
	Dialect() schema.Dialect
	NewSelect() *bun.SelectQuery
	NewInsert() *bun.InsertQuery
	NewUpdate() *bun.UpdateQuery
	NewDelete() *bun.DeleteQuery
}

// PredicateProjectionExecutor runs predicate queries whose rows are
// materialized through a projection instead of as entities. Repository
// interfaces embed it to have the factory attach an executor.
//
// dest is *[]E for the list operations and *E for FindOne, where E is the
// projection's result type. The typed Fetch* helpers wrap these methods.
type PredicateProjectionExecutor interface {
	// FindOne loads at most one result. It reports false when nothing
	// matched and fails with ErrIncorrectResultSize when more than one row
	// matched.
	FindOne(ctx context.Context, pred dsl.Predicate, proj dsl.Projection, dest any) (bool, error)

	// FindAll loads every match; no match leaves dest empty.
	FindAll(ctx context.Context, pred dsl.Predicate, proj dsl.Projection, dest any) error

	// FindAllSorted loads every match ordered by sort.
	FindAllSorted(ctx context.Context, pred dsl.Predicate, sort types.Sort, proj dsl.Projection, dest any) error

	// FindAllOrdered loads every match ordered by the given specifiers.
	FindAllOrdered(ctx context.Context, pred dsl.Predicate, proj dsl.Projection, dest any, orders ...dsl.OrderSpecifier) error

	// FindAllBy loads all rows ordered by the given specifiers.
	FindAllBy(ctx context.Context, proj dsl.Projection, dest any, orders ...dsl.OrderSpecifier) error

	// FindPage loads one page of matches and returns its metadata.
	FindPage(ctx context.Context, pred dsl.Predicate, pageable types.Pageable, proj dsl.Projection, dest any) (*types.PageInfo, error)
}

// ProjectingRepository is a Repository that also runs projection queries.
type ProjectingRepository[T any] interface {
	Repository[T]
	PredicateProjectionExecutor
}
