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
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/hummerx/database"
	"github.com/tomoncle/hummerx/dsl"
	"github.com/tomoncle/hummerx/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// QueryExecutor is the PredicateProjectionExecutor implementation. Queries
// run against the entity of its path; lock mode, entity graph and hints are
// taken from the CrudMethodMetadata of each call.
type QueryExecutor struct {
	db       *bun.DB
	conn     bun.IDB
	path     *dsl.EntityPath
	metadata MetadataLookup
	logger   database.Logger
}

var _ PredicateProjectionExecutor = (*QueryExecutor)(nil)

// ExecutorOption configures a QueryExecutor.
type ExecutorOption func(*QueryExecutor)

// WithMetadataLookup replaces the context based metadata lookup.
func WithMetadataLookup(lookup MetadataLookup) ExecutorOption {
	return func(e *QueryExecutor) {
		if lookup != nil {
			e.metadata = lookup
		}
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger database.Logger) ExecutorOption {
	return func(e *QueryExecutor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewQueryExecutor returns an executor for the entity of path.
func NewQueryExecutor(db *bun.DB, path *dsl.EntityPath, opts ...ExecutorOption) *QueryExecutor {
	e := &QueryExecutor{
		db:       db,
		conn:     db,
		path:     path,
		metadata: CrudMethodMetadataFrom,
		logger:   database.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithTx returns a copy of the executor that runs its queries in tx.
func (e *QueryExecutor) WithTx(tx bun.Tx) *QueryExecutor {
	c := *e
	c.conn = tx
	return &c
}

// EntityPath returns the path of the entity queried.
func (e *QueryExecutor) EntityPath() *dsl.EntityPath { return e.path }

func (e *QueryExecutor) FindOne(ctx context.Context, pred dsl.Predicate, proj dsl.Projection, dest any) (bool, error) {
	q, err := e.createQuery(ctx, pred)
	if err != nil {
		return false, err
	}
	found, err := proj.FetchOne(ctx, proj.Select(q), dest)
	if errors.Is(err, dsl.ErrNonUniqueResult) {
		return false, &IncorrectResultSizeError{Expected: 1, Actual: -1, Err: err}
	}
	return found, err
}

func (e *QueryExecutor) FindAll(ctx context.Context, pred dsl.Predicate, proj dsl.Projection, dest any) error {
	q, err := e.createQuery(ctx, pred)
	if err != nil {
		return err
	}
	return proj.Fetch(ctx, proj.Select(q), dest)
}

func (e *QueryExecutor) FindAllSorted(ctx context.Context, pred dsl.Predicate, sort types.Sort, proj dsl.Projection, dest any) error {
	q, err := e.createQuery(ctx, pred)
	if err != nil {
		return err
	}
	return e.executeSorted(ctx, proj.Select(q), sort, proj, dest)
}

func (e *QueryExecutor) FindAllOrdered(ctx context.Context, pred dsl.Predicate, proj dsl.Projection, dest any, orders ...dsl.OrderSpecifier) error {
	q, err := e.createQuery(ctx, pred)
	if err != nil {
		return err
	}
	return proj.Fetch(ctx, proj.Select(q).OrderBy(orders...), dest)
}

func (e *QueryExecutor) FindAllBy(ctx context.Context, proj dsl.Projection, dest any, orders ...dsl.OrderSpecifier) error {
	q, err := e.createQuery(ctx)
	if err != nil {
		return err
	}
	return proj.Fetch(ctx, proj.Select(q).OrderBy(orders...), dest)
}

func (e *QueryExecutor) FindPage(ctx context.Context, pred dsl.Predicate, pageable types.Pageable, proj dsl.Projection, dest any) (*types.PageInfo, error) {
	if pageable == nil {
		return nil, invalidUsage("pageable must not be nil")
	}
	countQuery, err := e.createCountQuery(ctx, pred)
	if err != nil {
		return nil, err
	}
	q, err := e.createQuery(ctx, pred)
	if err != nil {
		return nil, err
	}
	if err := applyPagination(e.path, proj.Select(q), pageable); err != nil {
		return nil, err
	}
	if err := proj.Fetch(ctx, q, dest); err != nil {
		return nil, err
	}

	size := reflect.ValueOf(dest).Elem().Len()
	total, err := types.ResolveTotal(size, pageable, func() (int, error) {
		return countQuery.Unwrap().Count(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", e.path.TableName(), err)
	}
	info := types.NewPage[struct{}](nil, pageable, total).PageInfo
	return &info, nil
}

// createQuery builds the select for the predicates with query hints, fetch
// graphs and the lock mode of the current call applied.
func (e *QueryExecutor) createQuery(ctx context.Context, preds ...dsl.Predicate) (*dsl.Query, error) {
	md := e.metadata(ctx)
	hints, err := queryHintsOf(e.path, md, true)
	if err != nil {
		return nil, err
	}
	q := e.doCreateQuery(hints, preds...)
	if md == nil || md.LockMode == LockNone {
		return q, nil
	}
	name := e.conn.Dialect().Name()
	if clause, ok := md.LockMode.forClause(name); ok {
		q.Lock(clause)
	} else if md.LockMode != LockOptimistic {
		e.logger.Debug("Lock mode not supported by dialect, ignored", "lock", md.LockMode, "dialect", name)
	}
	return q, nil
}

// createCountQuery builds the count select for the predicates. Fetch graphs
// and locks are not applied.
func (e *QueryExecutor) createCountQuery(ctx context.Context, preds ...dsl.Predicate) (*dsl.Query, error) {
	hints, err := queryHintsOf(e.path, e.metadata(ctx), false)
	if err != nil {
		return nil, err
	}
	return e.doCreateQuery(hints, preds...), nil
}

func (e *QueryExecutor) doCreateQuery(hints QueryHints, preds ...dsl.Predicate) *dsl.Query {
	q := dsl.From(e.conn, e.path).Filter(preds...)
	for _, h := range hints {
		e.applyHint(q, h)
	}
	return q
}

func (e *QueryExecutor) applyHint(q *dsl.Query, h QueryHint) {
	switch h.Name {
	case HintFetchGraph:
		if rel, ok := h.Value.(string); ok {
			q.Join(rel)
			return
		}
	case HintUseIndex, HintForceIndex, HintIgnoreIndex:
		names, ok := hintNames(h.Value)
		if !ok {
			break
		}
		if e.conn.Dialect().Name() != dialect.MySQL {
			return
		}
		switch h.Name {
		case HintUseIndex:
			q.Unwrap().UseIndex(names...)
		case HintForceIndex:
			q.Unwrap().ForceIndex(names...)
		default:
			q.Unwrap().IgnoreIndex(names...)
		}
		return
	}
	e.logger.Debug("Ignoring query hint", "hint", h.Name, "value", h.Value)
}

func (e *QueryExecutor) executeSorted(ctx context.Context, q *dsl.Query, sort types.Sort, proj dsl.Projection, dest any) error {
	if err := applySorting(e.path, q, sort); err != nil {
		return err
	}
	return proj.Fetch(ctx, q, dest)
}

func applySorting(path *dsl.EntityPath, q *dsl.Query, sort types.Sort) error {
	if !sort.IsSorted() {
		return nil
	}
	orders, err := dsl.ToOrderSpecifiers(path, sort)
	if err != nil {
		return fmt.Errorf("sort %s: %w", path.TableName(), err)
	}
	q.OrderBy(orders...)
	return nil
}

func applyPagination(path *dsl.EntityPath, q *dsl.Query, pageable types.Pageable) error {
	if pageable.IsPaged() {
		q.Offset(pageable.GetOffset()).Limit(pageable.GetPageSize())
	}
	return applySorting(path, q, pageable.GetSort())
}
