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

package hummerx

import (
	"context"
	"errors"
	"sync"

	"github.com/tomoncle/hummerx/database"
	"github.com/tomoncle/hummerx/dsl"
	"github.com/tomoncle/hummerx/repository"
	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun"
)

// ErrDatabaseNotInitialized is returned by services built with NewService
// before the global database has been initialized.
var ErrDatabaseNotInitialized = errors.New("hummerx: database not initialized")

type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the predicate.
	List(ctx context.Context, pred dsl.Predicate) ([]*T, error)

	// Query executes a raw WHERE condition and maps the results to entities.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	Count(ctx context.Context, pred dsl.Predicate) (int, error)

	Exists(ctx context.Context, pred dsl.Predicate) (bool, error)

	// Page returns one page of the entities matching the predicate.
	Page(ctx context.Context, pred dsl.Predicate, pageable types.Pageable) (*types.Page[*T], error)

	Update(ctx context.Context, model *T) error

	Delete(ctx context.Context, id any) error

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error

	SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error

	UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error

	DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error

	// Projections returns the executor for predicate queries with
	// constructor projections over T.
	Projections() (repository.PredicateProjectionExecutor, error)

	// Path returns the entity path of T for building predicates.
	Path() (*dsl.EntityPath, error)

	// SelectBuilder and the other builders use the current database and
	// panic with ErrDatabaseNotInitialized when there is none.
	SelectBuilder() *bun.SelectQuery

	InsertBuilder() *bun.InsertQuery

	UpdateBuilder() *bun.UpdateQuery

	DeleteBuilder() *bun.DeleteQuery
}

type baseServiceImpl[T any] struct {
	db   func() *bun.DB
	opts []repository.FactoryOption

	mu     sync.Mutex
	repoDB *bun.DB
	repo   repository.ProjectingRepository[T]
	err    error
}

// NewService returns a Service backed by the global database. The
// repository is built on first use and rebuilt when the global database
// is replaced.
func NewService[T any](opts ...repository.FactoryOption) Service[T] {
	return &baseServiceImpl[T]{db: database.GetDB, opts: opts}
}

// NewServiceWithDB returns a Service backed by db.
func NewServiceWithDB[T any](db *bun.DB, opts ...repository.FactoryOption) Service[T] {
	return &baseServiceImpl[T]{db: func() *bun.DB { return db }, opts: opts}
}

func (s *baseServiceImpl[T]) baseRepo() (repository.ProjectingRepository[T], error) {
	db := s.db()
	if db == nil {
		return nil, ErrDatabaseNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repoDB != db {
		factory := repository.NewRepositoryFactory(db, s.opts...)
		s.repo, s.err = repository.GetRepository[repository.ProjectingRepository[T], T](factory)
		s.repoDB = db
	}
	return s.repo, s.err
}

func (s *baseServiceImpl[T]) mustDB() *bun.DB {
	db := s.db()
	if db == nil {
		panic(ErrDatabaseNotInitialized)
	}
	return db
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Create(ctx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Upsert(ctx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetOne(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, pred dsl.Predicate) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, pred)
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Query(ctx, query, args...)
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, pred dsl.Predicate) (int, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return 0, err
	}
	return repo.Count(ctx, pred)
}

func (s *baseServiceImpl[T]) Exists(ctx context.Context, pred dsl.Predicate) (bool, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return false, err
	}
	return repo.Exists(ctx, pred)
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Update(ctx, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, pred dsl.Predicate, pageable types.Pageable) (*types.Page[*T], error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, pred, pageable)
}

func (s *baseServiceImpl[T]) SaveWithTx(ctx context.Context, tx *bun.Tx, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.CreateWithTx(ctx, tx, model...)
}

func (s *baseServiceImpl[T]) SaveOrUpdateWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, model ...*T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.UpsertWithTx(ctx, tx, fields, duplicateKeys, model...)
}

func (s *baseServiceImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, model *T) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.UpdateWithTx(ctx, tx, model)
}

func (s *baseServiceImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	repo, err := s.baseRepo()
	if err != nil {
		return err
	}
	return repo.DeleteWithTx(ctx, tx, id)
}

func (s *baseServiceImpl[T]) Projections() (repository.PredicateProjectionExecutor, error) {
	return s.baseRepo()
}

func (s *baseServiceImpl[T]) Path() (*dsl.EntityPath, error) {
	repo, err := s.baseRepo()
	if err != nil {
		return nil, err
	}
	return repo.EntityPath()
}

func (s *baseServiceImpl[T]) SelectBuilder() *bun.SelectQuery {
	return s.mustDB().NewSelect()
}

func (s *baseServiceImpl[T]) InsertBuilder() *bun.InsertQuery {
	return s.mustDB().NewInsert()
}

func (s *baseServiceImpl[T]) UpdateBuilder() *bun.UpdateQuery {
	return s.mustDB().NewUpdate()
}

func (s *baseServiceImpl[T]) DeleteBuilder() *bun.DeleteQuery {
	return s.mustDB().NewDelete()
}
